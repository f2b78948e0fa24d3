package config

import (
	"strings"
	"time"
)

// 默认值常量
const (
	defaultAppEnv        = "dev"
	defaultAppLogLevel   = "info"
	defaultAppLogFormat  = "text"
	defaultAppHTTPAddr   = ":9992"
	defaultAppLogPath    = "data/logs/shantu.log"
	defaultAppReportLog  = "data/logs/shantu-reports.log"
	defaultChartTimeout  = 20 * time.Second
	defaultChartSettle   = 300 * time.Millisecond
	defaultBreakerTrips  = 3
	defaultBreakerPause  = time.Minute
	defaultPruneInterval = "1h"
	defaultRecordsPath   = "data/db/records.db"
	defaultArchivePath   = "data/db/charts.db"
	defaultLocaleLang    = "en"
	defaultProcessorJobs = 4
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Chart.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Locale.applyDefaults(keys)
	c.Processor.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.report_log_path", &a.ReportLog, defaultAppReportLog),
	)
	a.LogFormat = strings.ToLower(strings.TrimSpace(a.LogFormat))
}

func (c *ChartConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("chart.headless", &c.Headless, true),
		durationFieldDefault("chart.timeout", &c.Timeout, defaultChartTimeout),
		durationFieldDefault("chart.settle", &c.Settle, defaultChartSettle),
		durationFieldDefault("chart.breaker_cooldown", &c.BreakerCooldown, defaultBreakerPause),
		fieldDefault{
			key:   "chart.breaker_threshold",
			need:  func() bool { return c.BreakerThreshold == 0 },
			apply: func() { c.BreakerThreshold = defaultBreakerTrips },
		},
	)
	c.ChromePath = strings.TrimSpace(c.ChromePath)
	c.EchartsPath = strings.TrimSpace(c.EchartsPath)
	c.AssetsHost = strings.TrimSpace(c.AssetsHost)
	if c.AssetsHost != "" && !strings.HasSuffix(c.AssetsHost, "/") {
		c.AssetsHost += "/"
	}
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.records_path", &s.RecordsPath, defaultRecordsPath),
		stringFieldDefault("store.archive_path", &s.ArchivePath, defaultArchivePath),
		stringFieldDefault("store.prune_interval", &s.PruneInterval, defaultPruneInterval),
	)
}

func (l *LocaleConfig) applyDefaults(keys keySet) {
	if l == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("locale.default_lang", &l.DefaultLang, defaultLocaleLang),
	)
	l.DefaultLang = normalizeLang(l.DefaultLang)
	l.Path = strings.TrimSpace(l.Path)
}

func (p *ProcessorConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "processor.workers",
			need:  func() bool { return p.Workers <= 0 },
			apply: func() { p.Workers = defaultProcessorJobs },
		},
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func durationFieldDefault(key string, target *time.Duration, def time.Duration) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
