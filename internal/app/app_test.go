package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shantu/internal/analysis/visual"
	"shantu/internal/config"
	"shantu/internal/store/archive"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type stubRasterizer struct {
	png []byte
}

func (s stubRasterizer) Rasterize(ctx context.Context, page []byte, target string, width, height int) ([]byte, error) {
	return s.png, nil
}

func testConfig(t *testing.T, extra string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	bundle := filepath.Join(dir, "echarts.min.js")
	require.NoError(t, os.WriteFile(bundle, []byte("window.echarts = {};"), 0o644))
	body := "app:\n  env: test\n  http_addr: 127.0.0.1:0\n" +
		"chart:\n  echarts_path: " + bundle + "\n" +
		"store:\n" +
		"  records_path: " + filepath.Join(dir, "records.db") + "\n" +
		"  archive_path: " + filepath.Join(dir, "charts.db") + "\n" + extra
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func buildTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := NewAppBuilder(cfg, WithRasterizer(stubRasterizer{png: []byte("fake-png")})).Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestBuild_ProcessAndFetchChart(t *testing.T) {
	a := buildTestApp(t, testConfig(t, ""))
	h := a.Server().Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/reports",
		strings.NewReader(`{"kind":"fengshui","lang":"zh","text":"Kan **Score:** 70/100 Li **Score:** 60/100"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := gjson.Parse(w.Body.String())
	assert.Equal(t, `["Kan (North)","Li (South)"]`, body.Get("labels").Raw)
	assert.Equal(t, `["坎位（北）","离位（南）"]`, body.Get("display_labels").Raw)
	assert.Equal(t, string(visual.ChartBagua), body.Get("chart").String())
	chartURL := body.Get("chart_url").String()
	require.NotEmpty(t, chartURL)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, chartURL, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fake-png", w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats/scores?kind=fengshui", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), gjson.Get(w.Body.String(), "stats.0.reports").Int())
}

func TestBuild_SummaryAndLocaleFile(t *testing.T) {
	dir := t.TempDir()
	localePath := filepath.Join(dir, "locale.yaml")
	require.NoError(t, os.WriteFile(localePath, []byte("titles:\n  face:\n    en: Palaces\n"), 0o644))

	a := buildTestApp(t, testConfig(t, "locale:\n  path: "+localePath+"\n"))
	require.NotNil(t, a.Summary)
	assert.Equal(t, int64(1), a.Summary.Locale.Version)
	assert.NotNil(t, a.Processor())
	assert.NoError(t, a.ReloadLocale())

	var buf bytes.Buffer
	a.Summary.Fprint(&buf)
	assert.Contains(t, buf.String(), "STARTUP SUMMARY")
	assert.Contains(t, buf.String(), localePath)
}

func TestBuild_BadLocaleFile(t *testing.T) {
	cfg := testConfig(t, "locale:\n  path: /does/not/exist.yaml\n")
	_, err := NewAppBuilder(cfg).Build(context.Background())
	assert.Error(t, err)
}

func TestBuild_BadEchartsPath(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Chart.EchartsPath = "/does/not/exist/echarts.min.js"
	_, err := NewAppBuilder(cfg, WithRasterizer(stubRasterizer{})).Build(context.Background())
	assert.ErrorContains(t, err, "echarts bundle")
}

func TestBuild_InlinesEchartsIntoPages(t *testing.T) {
	a := buildTestApp(t, testConfig(t, ""))
	assert.Contains(t, a.Summary.Chart.Echarts, "inline")

	var buf bytes.Buffer
	a.Summary.Fprint(&buf)
	assert.Contains(t, buf.String(), "echarts.min.js (0 KB inline)")
}

func TestRun_StopsOnCancel(t *testing.T) {
	a := buildTestApp(t, testConfig(t, ""))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, a.Run(ctx))
}

func TestNewApp_NilConfig(t *testing.T) {
	_, err := NewApp(nil)
	assert.Error(t, err)
	var a *App
	assert.Error(t, a.Run(context.Background()))
	assert.NoError(t, a.Close())
}

func TestPruneCharts_RemovesExpired(t *testing.T) {
	store, err := archive.NewStore(filepath.Join(t.TempDir(), "charts.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, store.Put(ctx, archive.Chart{ID: "old", Kind: "palm", Filename: "old.png", PNG: []byte("x"), CreatedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, store.Put(ctx, archive.Chart{ID: "new", Kind: "palm", Filename: "new.png", PNG: []byte("y"), CreatedAt: now}))

	pruneCharts(ctx, store, 24*time.Hour, now)

	_, err = store.Get(ctx, "old")
	assert.ErrorIs(t, err, archive.ErrNotFound)
	_, err = store.Get(ctx, "new")
	assert.NoError(t, err)

	// retention off keeps everything
	pruneCharts(ctx, store, 0, now.Add(time.Hour))
	_, err = store.Get(ctx, "new")
	assert.NoError(t, err)
}

func TestBuild_RetentionConfig(t *testing.T) {
	cfg := testConfig(t, "  archive_retention: 7d\n")
	assert.Equal(t, 7*24*time.Hour, cfg.Store.Retention())
	assert.Equal(t, time.Hour, cfg.Store.PruneEvery())
	a := buildTestApp(t, cfg)
	assert.Equal(t, "7d, every 1h", a.Summary.Store.Retention)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, a.Run(ctx))
}
