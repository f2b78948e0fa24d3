package visual

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"shantu/internal/types"
)

var (
	ErrUnknownChartKind = errors.New("visual: unknown chart kind")
	ErrInvalidSpec      = errors.New("visual: invalid chart spec")
)

// ChartKind 图表形态。
type ChartKind string

const (
	ChartRadar ChartKind = "radar"
	ChartBar   ChartKind = "bar"
	ChartBagua ChartKind = "bagua"
)

func ParseChartKind(raw string) (ChartKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "radar":
		return ChartRadar, nil
	case "bar", "horizontal-bar", "hbar":
		return ChartBar, nil
	case "bagua", "polar-area", "polar":
		return ChartBagua, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChartKind, raw)
}

// ChartKindFor maps a report kind onto the chart used for it: face → radar, palm → bar,
// fengshui → bagua.
func ChartKindFor(kind types.ReportKind) (ChartKind, error) {
	switch kind {
	case types.ReportFace:
		return ChartRadar, nil
	case types.ReportPalm:
		return ChartBar, nil
	case types.ReportFengshui:
		return ChartBagua, nil
	}
	return "", fmt.Errorf("%w: no chart for report kind %q", ErrUnknownChartKind, string(kind))
}

// Spec is a declarative description of one chart.
type Spec struct {
	Kind   ChartKind `json:"chart"`
	Title  string    `json:"title"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// SpecFromScores builds a Spec straight from an extracted score set.
func SpecFromScores(kind ChartKind, title string, set types.ScoreSet) Spec {
	return Spec{
		Kind:   kind,
		Title:  title,
		Labels: append([]string(nil), set.Labels...),
		Values: set.Floats(),
	}
}

func (s Spec) Validate() error {
	switch s.Kind {
	case ChartRadar, ChartBar, ChartBagua:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChartKind, string(s.Kind))
	}
	if len(s.Labels) == 0 {
		return fmt.Errorf("%w: no labels", ErrInvalidSpec)
	}
	if len(s.Labels) != len(s.Values) {
		return fmt.Errorf("%w: %d labels but %d values", ErrInvalidSpec, len(s.Labels), len(s.Values))
	}
	for i, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > scaleMax {
			return fmt.Errorf("%w: value %v for %q outside [0,%d]", ErrInvalidSpec, v, s.Labels[i], scaleMax)
		}
	}
	return nil
}
