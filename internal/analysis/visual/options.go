package visual

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

type echart interface {
	Render(w io.Writer) error
	Validate()
	JSON() map[string]interface{}
	ClearPresetJSAssets()
	AddCustomizedHeaders(headers ...string)
}

// ChartID returns the fixed DOM id used for kind. A fixed id keeps the generated page
// byte-identical across calls and gives the rasterizer a stable element to capture.
func ChartID(kind ChartKind) string {
	return "shantu_" + string(kind)
}

func initOpts(kind ChartKind, assetsHost string) opts.Initialization {
	return opts.Initialization{
		PageTitle:       "shantu " + string(kind),
		Theme:           "white",
		Width:           fmt.Sprintf("%dpx", CanvasWidth),
		Height:          fmt.Sprintf("%dpx", CanvasHeight),
		BackgroundColor: colorBackground,
		ChartID:         ChartID(kind),
		AssetsHost:      assetsHost,
	}
}

func titleOpts(title string) opts.Title {
	return opts.Title{
		Title:      title,
		Left:       "center",
		Top:        "8",
		TitleStyle: &opts.TextStyle{Color: colorText, FontSize: 16},
	}
}

func buildChart(spec Spec, assetsHost string) (echart, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	switch spec.Kind {
	case ChartRadar:
		return buildRadar(spec, assetsHost), nil
	case ChartBar:
		return buildBar(spec, assetsHost), nil
	case ChartBagua:
		return buildBagua(spec, assetsHost), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownChartKind, string(spec.Kind))
}

func buildRadar(spec Spec, assetsHost string) *charts.Radar {
	indicators := make([]*opts.Indicator, len(spec.Labels))
	for i, l := range spec.Labels {
		indicators[i] = &opts.Indicator{Name: l, Min: 0, Max: scaleMax}
	}
	radar := charts.NewRadar()
	radar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(spec.Kind, assetsHost)),
		charts.WithAnimation(false),
		charts.WithTitleOpts(titleOpts(spec.Title)),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithRadarComponentOpts(opts.RadarComponent{
			Indicator:   indicators,
			Shape:       "polygon",
			SplitNumber: scaleMax / scaleStep,
			Center:      []string{"50%", "56%"},
			SplitLine:   &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorGrid}},
			AxisName:    &opts.AxisName{Color: colorTextMuted, FontSize: 11},
		}),
	)
	values := make([]float64, len(spec.Values))
	copy(values, spec.Values)
	radar.AddSeries(seriesName(spec), []opts.RadarData{{Name: seriesName(spec), Value: values}},
		charts.WithItemStyleOpts(opts.ItemStyle{Color: colorGold}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorGold, Width: 2}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Color: colorGold, Opacity: opts.Float(radarFillOpacity)}),
	)
	return radar
}

func buildBar(spec Spec, assetsHost string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(spec.Kind, assetsHost)),
		charts.WithAnimation(false),
		charts.WithTitleOpts(titleOpts(spec.Title)),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithGridOpts(opts.Grid{Left: "120", Right: "40", Top: "56", Bottom: "32"}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:        "value",
			Min:         0,
			Max:         scaleMax,
			MinInterval: scaleStep,
			MaxInterval: scaleStep,
			AxisLabel:   &opts.AxisLabel{Color: colorTextMuted},
			SplitLine:   &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorGrid}},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:      "category",
			Inverse:   opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorText},
		}),
	)
	data := make([]opts.BarData, len(spec.Values))
	for i, v := range spec.Values {
		data[i] = opts.BarData{
			Name:  spec.Labels[i],
			Value: v,
			ItemStyle: &opts.ItemStyle{
				Color:       colorGold,
				BorderColor: colorGold,
				BorderWidth: 1,
				Opacity:     opts.Float(barOpacityTiers[i%len(barOpacityTiers)]),
			},
		}
	}
	bar.SetXAxis(append([]string(nil), spec.Labels...))
	bar.AddSeries(seriesName(spec), data)
	bar.XYReversal()
	return bar
}

func buildBagua(spec Spec, assetsHost string) *charts.Pie {
	legend := append([]string(nil), spec.Labels...)
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(spec.Kind, assetsHost)),
		charts.WithAnimation(false),
		charts.WithTitleOpts(titleOpts(spec.Title)),
		charts.WithLegendOpts(opts.Legend{
			Show:      opts.Bool(true),
			Bottom:    "4",
			Left:      "center",
			Data:      legend,
			TextStyle: &opts.TextStyle{Color: colorText, FontSize: 11},
		}),
	)
	data := make([]opts.PieData, len(spec.Values))
	for i, v := range spec.Values {
		st := styleForDirection(spec.Labels[i], i)
		data[i] = opts.PieData{
			Name:  spec.Labels[i],
			Value: v,
			ItemStyle: &opts.ItemStyle{
				Color:       st.color,
				BorderColor: colorBackground,
				BorderWidth: 1,
				Opacity:     opts.Float(st.opacity),
			},
		}
	}
	pie.AddSeries(seriesName(spec), data,
		charts.WithPieChartOpts(opts.PieChart{
			RoseType: "area",
			Radius:   []string{"8%", "62%"},
			Center:   []string{"50%", "50%"},
		}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(false)}),
	)
	return pie
}

func seriesName(spec Spec) string {
	if spec.Title != "" {
		return spec.Title
	}
	return string(spec.Kind)
}

// BuildHTML renders the standalone chart page for spec. With assets.Host set the page
// references host/echarts.min.js; otherwise the bundle is inlined and the page loads nothing.
func BuildHTML(spec Spec, assets Assets) (page []byte, err error) {
	chart, err := buildChart(spec, assets.Host)
	if err != nil {
		return nil, err
	}
	if assets.Host == "" {
		if len(assets.Bundle) == 0 {
			return nil, ErrNoEchartsBundle
		}
		chart.ClearPresetJSAssets()
		chart.AddCustomizedHeaders(inlineScript(assets.Bundle))
	}
	// the template engine panics instead of returning errors
	defer func() {
		if r := recover(); r != nil {
			page, err = nil, fmt.Errorf("visual: render %s page: %v", spec.Kind, r)
		}
	}()
	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// OptionJSON returns the echarts option object that BuildHTML would embed.
func OptionJSON(spec Spec) ([]byte, error) {
	chart, err := buildChart(spec, "")
	if err != nil {
		return nil, err
	}
	chart.Validate()
	return json.Marshal(chart.JSON())
}
