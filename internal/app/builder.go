package app

import (
	"context"
	"fmt"
	"strings"

	"shantu/internal/analysis/visual"
	"shantu/internal/config"
	cfgloader "shantu/internal/config/loader"
	"shantu/internal/locale"
	"shantu/internal/logger"
	"shantu/internal/report"
	"shantu/internal/store/archive"
	"shantu/internal/store/records"
	apihttp "shantu/internal/transport/http/api"
)

type AppBuilder struct {
	cfg *config.Config

	rasterizerFn func(config.ChartConfig) visual.Rasterizer
	recordsFn    func(string) (*records.Store, error)
	archiveFn    func(string) (*archive.Store, error)
	localeFn     func(config.LocaleConfig) (*locale.Registry, *cfgloader.LocaleLoader, error)
	httpFn       func(config.AppConfig, apihttp.ServerConfig) (*apihttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

// WithRasterizer 替换默认的 headless Chrome 栅格化实现。
func WithRasterizer(r visual.Rasterizer) AppBuilderOption {
	return func(b *AppBuilder) {
		if r != nil {
			b.rasterizerFn = func(config.ChartConfig) visual.Rasterizer { return r }
		}
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:          cfg,
		rasterizerFn: buildRasterizer,
		recordsFn:    records.NewStore,
		archiveFn:    archive.NewStore,
		localeFn:     buildLocale,
		httpFn:       buildHTTPServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func buildRasterizer(cfg config.ChartConfig) visual.Rasterizer {
	chrome := visual.NewChromeRasterizer(visual.ChromeConfig{
		ExecPath:  cfg.ChromePath,
		Headless:  cfg.Headless,
		NoSandbox: cfg.NoSandbox,
		Timeout:   cfg.Timeout,
		Settle:    cfg.Settle,
	})
	if cfg.BreakerThreshold <= 0 {
		return chrome
	}
	return visual.NewGuardedRasterizer(chrome, cfg.BreakerThreshold, cfg.BreakerCooldown)
}

func buildLocale(cfg config.LocaleConfig) (*locale.Registry, *cfgloader.LocaleLoader, error) {
	reg := locale.NewRegistry(cfg.DefaultLang)
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return reg, nil, nil
	}
	loader, err := cfgloader.NewLocaleLoader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load locale file: %w", err)
	}
	reg.Attach(loader)
	return reg, loader, nil
}

func buildHTTPServer(cfg config.AppConfig, sc apihttp.ServerConfig) (*apihttp.Server, error) {
	sc.Addr = cfg.HTTPAddr
	return apihttp.NewServer(sc)
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	reg, localeLoader, err := b.localeFn(cfg.Locale)
	if err != nil {
		return nil, err
	}

	recordStore, err := b.recordsFn(cfg.Store.RecordsPath)
	if err != nil {
		return nil, fmt.Errorf("open records store: %w", err)
	}
	chartStore, err := b.archiveFn(cfg.Store.ArchivePath)
	if err != nil {
		_ = recordStore.Close()
		return nil, fmt.Errorf("open chart archive: %w", err)
	}
	logger.Infof("✓ 存储已就绪 records=%s archive=%s", cfg.Store.RecordsPath, cfg.Store.ArchivePath)

	assets, err := visual.LoadAssets(cfg.Chart.AssetsHost, cfg.Chart.EchartsPath)
	if err != nil {
		_ = recordStore.Close()
		_ = chartStore.Close()
		return nil, err
	}
	if !assets.Available() {
		logger.Warnf("未找到 echarts：运行 scripts/fetch-echarts.sh 或设置 chart.echarts_path，否则图表渲染会失败")
	}
	raster := b.rasterizerFn(cfg.Chart)
	renderer := visual.NewRenderer(raster, assets)
	processor, err := report.NewProcessor(report.Options{
		Renderer:  renderer,
		Localizer: reg,
		Records:   recordStore,
		Archive:   chartStore,
		Workers:   cfg.Processor.Workers,
	})
	if err != nil {
		_ = recordStore.Close()
		_ = chartStore.Close()
		return nil, err
	}

	server, err := b.httpFn(cfg.App, apihttp.ServerConfig{
		Processor: processor,
		Renderer:  renderer,
		Records:   recordStore,
		Charts:    chartStore,
	})
	if err != nil {
		_ = recordStore.Close()
		_ = chartStore.Close()
		return nil, err
	}

	summary := &StartupSummary{
		HTTPAddr:    server.Addr(),
		Environment: cfg.App.Env,
		Workers:     cfg.Processor.Workers,
		ReportDump:  cfg.App.ReportDump,
		ReportLog:   cfg.App.ReportLog,
		Chart: ChartSummary{
			ChromePath: cfg.Chart.ChromePath,
			Headless:   cfg.Chart.Headless,
			NoSandbox:  cfg.Chart.NoSandbox,
			Timeout:    cfg.Chart.Timeout.String(),
			Echarts:    assets.Source(),
			Breaker:    breakerSummary(cfg.Chart),
		},
		Store: StoreSummary{
			RecordsPath: cfg.Store.RecordsPath,
			ArchivePath: cfg.Store.ArchivePath,
			Retention:   retentionSummary(cfg.Store),
		},
		Locale: LocaleSummary{
			Path:        cfg.Locale.Path,
			DefaultLang: reg.DefaultLang(),
			Version:     reg.Version(),
		},
	}

	return &App{
		cfg:          cfg,
		server:       server,
		processor:    processor,
		raster:       raster,
		records:      recordStore,
		charts:       chartStore,
		localeLoader: localeLoader,
		Summary:      summary,
	}, nil
}

func breakerSummary(cfg config.ChartConfig) string {
	if cfg.BreakerThreshold <= 0 {
		return "off"
	}
	return fmt.Sprintf("%d failures / %s", cfg.BreakerThreshold, cfg.BreakerCooldown)
}

func retentionSummary(cfg config.StoreConfig) string {
	if cfg.Retention() <= 0 {
		return "forever"
	}
	return fmt.Sprintf("%s, every %s", cfg.ArchiveRetention, cfg.PruneInterval)
}
