// Package visual renders score sets as fixed-size PNG charts.
//
// Charts are described with go-echarts options, rendered to a standalone HTML page and
// captured by a Rasterizer (headless Chrome in production).
package visual

import (
	"context"
	"encoding/base64"
	"fmt"
)

type Image struct {
	Bytes    []byte    `json:"-"`
	Base64   string    `json:"base64"`
	Filename string    `json:"filename"`
	Kind     ChartKind `json:"chart"`
}

func (r *Image) DataURI() string {
	if r == nil {
		return ""
	}
	if r.Base64 == "" && len(r.Bytes) > 0 {
		r.Base64 = base64.StdEncoding.EncodeToString(r.Bytes)
	}
	if r.Base64 == "" {
		return ""
	}
	return "data:image/png;base64," + r.Base64
}

// Renderer builds chart pages and hands them to a Rasterizer. It keeps no per-call state,
// so one Renderer may be shared across goroutines.
type Renderer struct {
	raster Rasterizer
	assets Assets
}

func NewRenderer(raster Rasterizer, assets Assets) *Renderer {
	return &Renderer{raster: raster, assets: assets}
}

// Render re-renders spec from scratch on every call. Rasterizer errors are returned wrapped,
// never retried.
func (r *Renderer) Render(ctx context.Context, spec Spec) (Image, error) {
	page, err := BuildHTML(spec, r.assets)
	if err != nil {
		return Image{}, err
	}
	if r.raster == nil {
		return Image{}, fmt.Errorf("visual: no rasterizer configured")
	}
	png, err := r.raster.Rasterize(ctx, page, ChartID(spec.Kind), CanvasWidth, CanvasHeight)
	if err != nil {
		return Image{}, err
	}
	return Image{
		Bytes:    png,
		Base64:   base64.StdEncoding.EncodeToString(png),
		Filename: fmt.Sprintf("%s_chart.png", spec.Kind),
		Kind:     spec.Kind,
	}, nil
}

// SeriesInput feeds the radar and bar charts.
type SeriesInput struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	Title  string    `json:"title"`
}

// BaguaInput feeds the bagua chart, named the way feng-shui results are.
type BaguaInput struct {
	Directions []string  `json:"directions"`
	Scores     []float64 `json:"scores"`
	Title      string    `json:"title"`
}

// GenerateRadarChart renders the face-reading radar and returns the PNG bytes.
func (r *Renderer) GenerateRadarChart(ctx context.Context, in SeriesInput) ([]byte, error) {
	img, err := r.Render(ctx, Spec{Kind: ChartRadar, Title: in.Title, Labels: in.Labels, Values: in.Values})
	return img.Bytes, err
}

// GenerateBarChart renders the palm-line horizontal bars and returns the PNG bytes.
func (r *Renderer) GenerateBarChart(ctx context.Context, in SeriesInput) ([]byte, error) {
	img, err := r.Render(ctx, Spec{Kind: ChartBar, Title: in.Title, Labels: in.Labels, Values: in.Values})
	return img.Bytes, err
}

// GenerateBaguaChart renders the eight-direction polar-area chart and returns the PNG bytes.
func (r *Renderer) GenerateBaguaChart(ctx context.Context, in BaguaInput) ([]byte, error) {
	img, err := r.Render(ctx, Spec{Kind: ChartBagua, Title: in.Title, Labels: in.Directions, Values: in.Scores})
	return img.Bytes, err
}
