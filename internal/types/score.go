package types

import (
	"fmt"
	"strings"
)

// ReportKind 标识一份命理报告的类型，决定词表与图表形态。
type ReportKind string

const (
	ReportFace     ReportKind = "face"
	ReportPalm     ReportKind = "palm"
	ReportFengshui ReportKind = "fengshui"
)

// ReportKinds lists the supported kinds in a stable order.
var ReportKinds = []ReportKind{ReportFace, ReportPalm, ReportFengshui}

// ParseReportKind accepts the canonical names plus a few spellings seen in upstream payloads.
func ParseReportKind(raw string) (ReportKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "face", "face-reading", "face_reading":
		return ReportFace, nil
	case "palm", "palm-reading", "palm_reading":
		return ReportPalm, nil
	case "fengshui", "feng-shui", "feng_shui":
		return ReportFengshui, nil
	default:
		return "", fmt.Errorf("unknown report kind %q", raw)
	}
}

func (k ReportKind) Valid() bool {
	switch k {
	case ReportFace, ReportPalm, ReportFengshui:
		return true
	}
	return false
}

func (k ReportKind) String() string { return string(k) }

// ScoreSet 是抽取结果与图表输入之间传递的标签/分值对，Labels 与 Values 等长。
type ScoreSet struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
}

// Len returns the number of pairs, or -1 when the two sides disagree.
func (s ScoreSet) Len() int {
	if len(s.Labels) != len(s.Values) {
		return -1
	}
	return len(s.Labels)
}

// Valid reports whether the set is non-empty, balanced and every value lies in [0,100].
func (s ScoreSet) Valid() bool {
	if s.Len() <= 0 {
		return false
	}
	for _, v := range s.Values {
		if v < 0 || v > 100 {
			return false
		}
	}
	return true
}

// Append adds one pair.
func (s *ScoreSet) Append(label string, value int) {
	s.Labels = append(s.Labels, label)
	s.Values = append(s.Values, value)
}

// Clone returns a deep copy so callers can't alias package-level tables.
func (s ScoreSet) Clone() ScoreSet {
	return ScoreSet{
		Labels: append([]string(nil), s.Labels...),
		Values: append([]int(nil), s.Values...),
	}
}

// Floats converts the values for chart input.
func (s ScoreSet) Floats() []float64 {
	out := make([]float64, len(s.Values))
	for i, v := range s.Values {
		out[i] = float64(v)
	}
	return out
}

// Lookup returns the value for label.
func (s ScoreSet) Lookup(label string) (int, bool) {
	for i, l := range s.Labels {
		if l == label && i < len(s.Values) {
			return s.Values[i], true
		}
	}
	return 0, false
}
