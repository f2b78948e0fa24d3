package apihttp

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"shantu/internal/analysis/score"
	"shantu/internal/analysis/visual"
	"shantu/internal/logger"
	"shantu/internal/report"
	"shantu/internal/store/archive"
	"shantu/internal/store/records"
	"shantu/internal/types"

	"github.com/gin-gonic/gin"
)

// Router 挂载 /api 路由。
type Router struct {
	processor ReportProcessor
	renderer  ChartRenderer
	records   RecordReader
	charts    ChartReader
}

func NewRouter(p ReportProcessor, r ChartRenderer, rec RecordReader, charts ChartReader) *Router {
	return &Router{processor: p, renderer: r, records: rec, charts: charts}
}

func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/scores/extract", r.handleExtract)
	group.POST("/charts/render", r.handleRenderChart)
	group.POST("/reports", r.handleProcessReport)
	group.POST("/reports/batch", r.handleProcessBatch)
	group.GET("/reports", r.handleListReports)
	group.GET("/reports/:id", r.handleGetReport)
	group.GET("/reports/:id/chart", r.handleGetChart)
	group.GET("/stats/scores", r.handleScoreStats)
}

type extractRequest struct {
	Kind       string `json:"kind"`
	Text       string `json:"text"`
	Structured string `json:"structured"`
}

type extractResponse struct {
	Kind            types.ReportKind `json:"kind"`
	Labels          []string         `json:"labels"`
	Values          []int            `json:"values"`
	Source          score.Source     `json:"source"`
	FallbackUsed    bool             `json:"fallback_used"`
	StructuredError string           `json:"structured_error,omitempty"`
}

func (r *Router) handleExtract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind, err := types.ParseReportKind(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := score.Resolve(req.Text, req.Structured, kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp := extractResponse{
		Kind:         res.Kind,
		Labels:       res.Labels,
		Values:       res.Values,
		Source:       res.Source,
		FallbackUsed: res.FallbackUsed(),
	}
	if res.StructuredErr != nil {
		resp.StructuredError = res.StructuredErr.Error()
	}
	c.JSON(http.StatusOK, resp)
}

type renderRequest struct {
	Chart  string    `json:"chart"`
	Title  string    `json:"title"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

func (r *Router) handleRenderChart(c *gin.Context) {
	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind, err := visual.ParseChartKind(req.Chart)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	img, err := r.renderer.Render(c.Request.Context(), visual.Spec{Kind: kind, Title: req.Title, Labels: req.Labels, Values: req.Values})
	if err != nil {
		if report.IsClientError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Errorf("render %s chart failed: %v", kind, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+img.Filename+`"`)
	c.Data(http.StatusOK, "image/png", img.Bytes)
}

type processRequest struct {
	Kind         string `json:"kind"`
	Text         string `json:"text"`
	Lang         string `json:"lang"`
	Structured   string `json:"structured"`
	Reference    string `json:"reference"`
	IncludeChart bool   `json:"include_chart"`
}

type processResponse struct {
	report.Artifact
	ChartURL     string `json:"chart_url,omitempty"`
	ChartDataURI string `json:"chart_data_uri,omitempty"`
}

func (r *Router) handleProcessReport(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind, err := types.ParseReportKind(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	art, err := r.processor.Process(c.Request.Context(), report.Request{
		Kind:       kind,
		Text:       req.Text,
		Lang:       req.Lang,
		Structured: req.Structured,
		Reference:  req.Reference,
	})
	if err != nil {
		if report.IsClientError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Errorf("process %s report failed: %v", kind, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	resp := processResponse{Artifact: art}
	if art.Archived {
		resp.ChartURL = chartURL(art.ID)
	}
	if req.IncludeChart && art.Chart != nil {
		resp.ChartDataURI = art.Chart.DataURI()
	}
	c.JSON(http.StatusOK, resp)
}

const maxBatchSize = 100

type batchRequest struct {
	Reports []processRequest `json:"reports"`
}

type batchItem struct {
	*processResponse
	Error string `json:"error,omitempty"`
}

// handleProcessBatch 批量处理报告；单份失败只体现在对应条目的 error 上。
func (r *Router) handleProcessBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Reports) == 0 || len(req.Reports) > maxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reports 数量需在 1-100 之间"})
		return
	}
	reqs := make([]report.Request, len(req.Reports))
	for i, item := range req.Reports {
		kind, err := types.ParseReportKind(item.Kind)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reports[" + strconv.Itoa(i) + "]: " + err.Error()})
			return
		}
		reqs[i] = report.Request{
			Kind:       kind,
			Text:       item.Text,
			Lang:       item.Lang,
			Structured: item.Structured,
			Reference:  item.Reference,
		}
	}
	results := r.processor.ProcessBatch(c.Request.Context(), reqs)
	items := make([]batchItem, len(results))
	for i, res := range results {
		if res.Err != nil {
			items[i] = batchItem{Error: res.Err.Error()}
			continue
		}
		resp := processResponse{Artifact: res.Artifact}
		if res.Artifact.Archived {
			resp.ChartURL = chartURL(res.Artifact.ID)
		}
		items[i] = batchItem{processResponse: &resp}
	}
	c.JSON(http.StatusOK, gin.H{"results": items})
}

func chartURL(id string) string {
	return "/api/reports/" + id + "/chart"
}

func (r *Router) handleListReports(c *gin.Context) {
	if r.records == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "records store disabled"})
		return
	}
	var kind types.ReportKind
	if raw := strings.TrimSpace(c.Query("kind")); raw != "" {
		parsed, err := types.ParseReportKind(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		kind = parsed
	}
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit 非法"})
			return
		}
		limit = n
	}
	list, err := r.records.List(c.Request.Context(), kind, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": list})
}

func (r *Router) handleGetReport(c *gin.Context) {
	if r.records == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "records store disabled"})
		return
	}
	rec, err := r.records.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	resp := gin.H{"report": rec}
	if rec.HasChart {
		resp["chart_url"] = chartURL(rec.ID)
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) handleGetChart(c *gin.Context) {
	if r.charts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chart archive disabled"})
		return
	}
	chart, err := r.charts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chart not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if chart.Filename != "" {
		c.Header("Content-Disposition", `inline; filename="`+chart.Filename+`"`)
	}
	c.Data(http.StatusOK, "image/png", chart.PNG)
}

func (r *Router) handleScoreStats(c *gin.Context) {
	if r.records == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "records store disabled"})
		return
	}
	kinds := types.ReportKinds
	if raw := strings.TrimSpace(c.Query("kind")); raw != "" {
		kind, err := types.ParseReportKind(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		kinds = []types.ReportKind{kind}
	}
	out := make([]records.KindStats, 0, len(kinds))
	for _, kind := range kinds {
		stats, err := r.records.Stats(c.Request.Context(), kind)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		out = append(out, stats)
	}
	c.JSON(http.StatusOK, gin.H{"stats": out})
}
