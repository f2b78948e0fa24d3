package apihttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"shantu/internal/analysis/visual"
	"shantu/internal/logger"
	"shantu/internal/report"
	"shantu/internal/store/archive"
	"shantu/internal/store/records"
	"shantu/internal/types"

	"github.com/gin-gonic/gin"
)

const defaultAddr = ":9992"

// ReportProcessor 由 report.Processor 实现。
type ReportProcessor interface {
	Process(ctx context.Context, req report.Request) (report.Artifact, error)
	ProcessBatch(ctx context.Context, reqs []report.Request) []report.BatchResult
}

type ChartRenderer interface {
	Render(ctx context.Context, spec visual.Spec) (visual.Image, error)
}

type RecordReader interface {
	Get(ctx context.Context, id string) (records.Record, error)
	List(ctx context.Context, kind types.ReportKind, limit int) ([]records.Record, error)
	Stats(ctx context.Context, kind types.ReportKind) (records.KindStats, error)
}

type ChartReader interface {
	Get(ctx context.Context, id string) (archive.Chart, error)
}

// Server 提供 /api 下的抽取、渲染与报告接口。
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig 描述 HTTP 服务依赖。Records 与 Charts 为空时对应的查询接口返回 503。
type ServerConfig struct {
	Addr      string
	Processor ReportProcessor
	Renderer  ChartRenderer
	Records   RecordReader
	Charts    ChartReader
}

// NewServer 构建 HTTP server。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Processor == nil || cfg.Renderer == nil {
		return nil, errors.New("api http server requires processor and renderer")
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api := NewRouter(cfg.Processor, cfg.Renderer, cfg.Records, cfg.Charts)
	api.Register(router.Group("/api"))

	return &Server{addr: cfg.Addr, router: router}, nil
}

// requestLogger 记录每个请求的耗时与状态码。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if query := c.Request.URL.RawQuery; query != "" {
			path = path + "?" + query
		}
		c.Next()
		logger.Slog().Debug("http request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"ip", c.ClientIP(),
			"dur", time.Since(start),
		)
	}
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	if s == nil {
		return nil
	}
	return s.router
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
