package app

import (
	"context"
	"errors"
	"fmt"

	"shantu/internal/analysis/visual"
	"shantu/internal/config"
	cfgloader "shantu/internal/config/loader"
	"shantu/internal/logger"
	"shantu/internal/report"
	"shantu/internal/store/archive"
	"shantu/internal/store/records"
	apihttp "shantu/internal/transport/http/api"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动 HTTP 服务。
type App struct {
	cfg          *config.Config
	server       *apihttp.Server
	processor    *report.Processor
	raster       visual.Rasterizer
	records      *records.Store
	charts       *archive.Store
	localeLoader *cfgloader.LocaleLoader
	Summary      *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动 HTTP 服务，直到 ctx 取消。返回前关闭存储。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.server == nil {
		return fmt.Errorf("http server not initialized")
	}
	defer a.Close()

	if a.Summary != nil {
		a.Summary.Print()
	}

	group, ctx := errgroup.WithContext(ctx)
	if probe, ok := a.raster.(interface {
		EnsureHeadlessAvailable(context.Context) error
	}); ok {
		// Chrome 不可用时服务照常启动，图表接口各自报错
		group.Go(func() error {
			if err := probe.EnsureHeadlessAvailable(ctx); err != nil {
				logger.Warnf("图表渲染不可用: %v", err)
			} else {
				logger.Infof("✓ headless Chrome 就绪")
			}
			return nil
		})
	}
	if retention := a.cfg.Store.Retention(); retention > 0 && a.charts != nil {
		group.Go(func() error {
			runRetention(ctx, a.charts, retention, a.cfg.Store.PruneEvery())
			return nil
		})
	}
	group.Go(func() error {
		logger.Infof("HTTP 服务监听 %s", a.server.Addr())
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	return group.Wait()
}

// Close 释放存储连接，可重复调用。
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.records != nil {
		errs = append(errs, a.records.Close())
	}
	if a.charts != nil {
		errs = append(errs, a.charts.Close())
	}
	return errors.Join(errs...)
}

// ReloadLocale 重新读取外部词条文件；未配置词条文件时为空操作。
func (a *App) ReloadLocale() error {
	if a == nil || a.localeLoader == nil {
		return nil
	}
	return a.localeLoader.Reload()
}

// Processor exposes the report processor for in-process callers.
func (a *App) Processor() *report.Processor {
	if a == nil {
		return nil
	}
	return a.processor
}

// Server exposes the HTTP server (for tests).
func (a *App) Server() *apihttp.Server {
	if a == nil {
		return nil
	}
	return a.server
}
