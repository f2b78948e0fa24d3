package visual

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"os/exec"
	"strconv"
	"testing"
	"time"

	"shantu/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

var testAssets = InlineAssets([]byte("window.echarts = {init: function () {}};"))

type MockRasterizer struct {
	mock.Mock
}

func (m *MockRasterizer) Rasterize(ctx context.Context, page []byte, target string, width, height int) ([]byte, error) {
	args := m.Called(ctx, page, target, width, height)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// blankPNG stands in for a real screenshot.
func blankPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func optionJSON(t *testing.T, spec Spec) gjson.Result {
	t.Helper()
	raw, err := OptionJSON(spec)
	require.NoError(t, err)
	require.True(t, gjson.ValidBytes(raw))
	return gjson.ParseBytes(raw)
}

func TestOptionJSON_BaguaLegendAndColors(t *testing.T) {
	opt := optionJSON(t, Spec{
		Kind:   ChartBagua,
		Title:  "Bagua Analysis",
		Labels: []string{"Qian (Northwest)", "Kan (North)"},
		Values: []float64{85, 70},
	})

	assert.Equal(t, int64(2), opt.Get("legend.data.#").Int())
	assert.Equal(t, "Qian (Northwest)", opt.Get("legend.data.0").String())
	assert.True(t, opt.Get("legend.show").Bool())
	assert.NotEmpty(t, opt.Get("legend.bottom").String())
	assert.Equal(t, "area", opt.Get("series.0.roseType").String())
	assert.Equal(t, colorGold, opt.Get("series.0.data.0.itemStyle.color").String())
	assert.Equal(t, colorCrimson, opt.Get("series.0.data.1.itemStyle.color").String())
	assert.Equal(t, "Bagua Analysis", opt.Get("title.text").String())
	assert.Equal(t, colorBackground, opt.Get("backgroundColor").String())
	assert.False(t, opt.Get("animation").Bool())
}

func TestOptionJSON_RadarScale(t *testing.T) {
	labels := []string{"Life Palace", "Wealth Palace", "Career Palace"}
	opt := optionJSON(t, Spec{Kind: ChartRadar, Title: "Face", Labels: labels, Values: []float64{85, 90, 80}})

	assert.Equal(t, int64(3), opt.Get("radar.indicator.#").Int())
	for i, l := range labels {
		ind := opt.Get("radar.indicator." + strconv.Itoa(i))
		assert.Equal(t, l, ind.Get("name").String())
		assert.Equal(t, float64(100), ind.Get("max").Float())
	}
	assert.Equal(t, int64(5), opt.Get("radar.splitNumber").Int())
	assert.False(t, opt.Get("legend.show").Bool())
	assert.Equal(t, "[85,90,80]", opt.Get("series.0.data.0.value").Raw)
	assert.Equal(t, colorGold, opt.Get("series.0.lineStyle.color").String())
	assert.Equal(t, colorGold, opt.Get("series.0.areaStyle.color").String())
}

func TestOptionJSON_BarIsHorizontalWithOpacityTiers(t *testing.T) {
	labels := []string{"Life Line", "Wisdom Line", "Heart Line", "Fate Line"}
	opt := optionJSON(t, Spec{Kind: ChartBar, Title: "Palm", Labels: labels, Values: []float64{88, 85, 90, 70}})

	assert.Equal(t, "category", opt.Get("yAxis.0.type").String())
	assert.True(t, opt.Get("yAxis.0.inverse").Bool())
	assert.Equal(t, int64(4), opt.Get("yAxis.0.data.#").Int())
	assert.Equal(t, "value", opt.Get("xAxis.0.type").String())
	assert.Equal(t, float64(0), opt.Get("xAxis.0.min").Float())
	assert.Equal(t, float64(100), opt.Get("xAxis.0.max").Float())
	assert.Equal(t, float64(20), opt.Get("xAxis.0.minInterval").Float())
	assert.False(t, opt.Get("legend.show").Bool())

	want := []float64{0.9, 0.7, 0.5, 0.9}
	for i, w := range want {
		got := opt.Get("series.0.data." + strconv.Itoa(i) + ".itemStyle.opacity").Float()
		assert.InDelta(t, w, got, 1e-6)
	}
}

func TestBuildHTML_Deterministic(t *testing.T) {
	spec := Spec{Kind: ChartRadar, Title: "面相十二宫位分析", Labels: []string{"命宫", "财帛宫"}, Values: []float64{85, 90}}
	a, err := BuildHTML(spec, Assets{Host: "http://assets.local/"})
	require.NoError(t, err)
	b, err := BuildHTML(spec, Assets{Host: "http://assets.local/"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Contains(t, string(a), `id="`+ChartID(ChartRadar)+`"`)
	assert.Contains(t, string(a), "http://assets.local/echarts.min.js")
	assert.Contains(t, string(a), "600px")
	assert.Contains(t, string(a), "400px")
}

func TestSpecValidate(t *testing.T) {
	cases := map[string]struct {
		spec Spec
		want error
	}{
		"unknown kind": {Spec{Kind: "pie", Labels: []string{"a"}, Values: []float64{1}}, ErrUnknownChartKind},
		"empty":        {Spec{Kind: ChartRadar}, ErrInvalidSpec},
		"mismatch":     {Spec{Kind: ChartBar, Labels: []string{"a", "b"}, Values: []float64{1}}, ErrInvalidSpec},
		"nan":          {Spec{Kind: ChartBar, Labels: []string{"a"}, Values: []float64{math.NaN()}}, ErrInvalidSpec},
		"over 100":     {Spec{Kind: ChartBagua, Labels: []string{"Kan"}, Values: []float64{101}}, ErrInvalidSpec},
		"negative":     {Spec{Kind: ChartBagua, Labels: []string{"Kan"}, Values: []float64{-1}}, ErrInvalidSpec},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, tc.spec.Validate(), tc.want)
			_, err := BuildHTML(tc.spec, Assets{})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParseChartKind(t *testing.T) {
	k, err := ParseChartKind(" Polar-Area ")
	require.NoError(t, err)
	assert.Equal(t, ChartBagua, k)

	_, err = ParseChartKind("line")
	assert.ErrorIs(t, err, ErrUnknownChartKind)

	k, err = ChartKindFor(types.ReportPalm)
	require.NoError(t, err)
	assert.Equal(t, ChartBar, k)
}

func TestStyleForDirection(t *testing.T) {
	assert.True(t, isWaterDirection("Kan (North)"))
	assert.True(t, isWaterDirection("li"))
	assert.True(t, isWaterDirection("离位"))
	assert.False(t, isWaterDirection("Qian (Northwest)"))
	assert.False(t, isWaterDirection("Lion"))

	assert.InDelta(t, 0.4, styleForDirection("Dui (West)", 0).opacity, 1e-6)
	unknown := styleForDirection("Center", 2)
	assert.Equal(t, colorGold, unknown.color)
	assert.InDelta(t, 0.7, unknown.opacity, 1e-6)
}

func TestRenderer_GenerateBaguaChart(t *testing.T) {
	raster := new(MockRasterizer)
	want := blankPNG(t, CanvasWidth, CanvasHeight)
	raster.On("Rasterize", mock.Anything, mock.Anything, ChartID(ChartBagua), CanvasWidth, CanvasHeight).Return(want, nil).Once()

	r := NewRenderer(raster, testAssets)
	got, err := r.GenerateBaguaChart(context.Background(), BaguaInput{
		Directions: []string{"Qian (Northwest)", "Kan (North)"},
		Scores:     []float64{85, 70},
		Title:      "Bagua Analysis",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, got)

	cfg, err := png.DecodeConfig(bytes.NewReader(got))
	require.NoError(t, err)
	assert.Equal(t, CanvasWidth, cfg.Width)
	assert.Equal(t, CanvasHeight, cfg.Height)
	raster.AssertExpectations(t)
}

func TestRenderer_PropagatesRasterizerError(t *testing.T) {
	boom := errors.New("out of memory")
	raster := new(MockRasterizer)
	raster.On("Rasterize", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, boom)

	r := NewRenderer(raster, testAssets)
	_, err := r.GenerateRadarChart(context.Background(), SeriesInput{Labels: []string{"Life Palace"}, Values: []float64{85}})
	assert.ErrorIs(t, err, boom)
}

func TestRenderer_InvalidSpecNeverRasterizes(t *testing.T) {
	raster := new(MockRasterizer)
	r := NewRenderer(raster, testAssets)
	_, err := r.GenerateBarChart(context.Background(), SeriesInput{Labels: []string{"a"}})
	assert.ErrorIs(t, err, ErrInvalidSpec)
	raster.AssertNotCalled(t, "Rasterize", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestImageDataURI(t *testing.T) {
	img := &Image{Bytes: []byte{1, 2, 3}}
	assert.Equal(t, "data:image/png;base64,AQID", img.DataURI())
	var nilImg *Image
	assert.Equal(t, "", nilImg.DataURI())
}

// Needs a local Chrome and a vendored echarts bundle (or SHANTU_ECHARTS_PATH / SHANTU_ASSETS_HOST).
func TestChromeRasterizer_Integration(t *testing.T) {
	if os.Getenv("SHANTU_CHROME_TEST") == "" {
		t.Skip("set SHANTU_CHROME_TEST=1 to run against a local Chrome")
	}
	cfg := DefaultChromeConfig()
	cfg.NoSandbox = true
	cfg.ExecPath = os.Getenv("SHANTU_CHROME_PATH")
	if cfg.ExecPath == "" {
		for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
			if p, err := exec.LookPath(name); err == nil {
				cfg.ExecPath = p
				break
			}
		}
	}
	raster := NewChromeRasterizer(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := raster.EnsureHeadlessAvailable(ctx); err != nil {
		t.Skipf("chrome unavailable: %v", err)
	}

	assets, err := LoadAssets(os.Getenv("SHANTU_ASSETS_HOST"), os.Getenv("SHANTU_ECHARTS_PATH"))
	require.NoError(t, err)
	if !assets.Available() {
		t.Skip("no echarts bundle: run scripts/fetch-echarts.sh or set SHANTU_ECHARTS_PATH")
	}
	r := NewRenderer(raster, assets)
	in := BaguaInput{Directions: []string{"Qian (Northwest)", "Kan (North)"}, Scores: []float64{85, 70}, Title: "Bagua Analysis"}
	first, err := r.GenerateBaguaChart(ctx, in)
	require.NoError(t, err)
	second, err := r.GenerateBaguaChart(ctx, in)
	require.NoError(t, err)

	a, err := png.Decode(bytes.NewReader(first))
	require.NoError(t, err)
	b, err := png.Decode(bytes.NewReader(second))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, CanvasWidth, CanvasHeight), a.Bounds().Sub(a.Bounds().Min))
	assert.Equal(t, a.Bounds(), b.Bounds())
	for y := a.Bounds().Min.Y; y < a.Bounds().Max.Y; y++ {
		for x := a.Bounds().Min.X; x < a.Bounds().Max.X; x++ {
			if a.At(x, y) != b.At(x, y) {
				t.Fatalf("pixel (%d,%d) differs between renders", x, y)
			}
		}
	}
}
