package config

import (
	"fmt"
	"slices"
	"strings"

	"shantu/internal/scheduler"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Chart.validate(); err != nil {
		return err
	}
	if err := c.Store.validate(); err != nil {
		return err
	}
	if err := c.Locale.validate(); err != nil {
		return err
	}
	if err := c.Processor.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch a.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("app.log_format must be text or json, got %q", a.LogFormat)
	}
	if strings.TrimSpace(a.HTTPAddr) == "" {
		return fmt.Errorf("app.http_addr cannot be empty")
	}
	return nil
}

func (c *ChartConfig) validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("chart.timeout must be > 0")
	}
	if c.Settle < 0 {
		return fmt.Errorf("chart.settle must be >= 0")
	}
	if c.Settle >= c.Timeout {
		return fmt.Errorf("chart.settle (%s) must be shorter than chart.timeout (%s)", c.Settle, c.Timeout)
	}
	if c.BreakerThreshold < 0 {
		return fmt.Errorf("chart.breaker_threshold must be >= 0")
	}
	return nil
}

func (s *StoreConfig) validate() error {
	if strings.TrimSpace(s.RecordsPath) == "" {
		return fmt.Errorf("store.records_path cannot be empty")
	}
	if strings.TrimSpace(s.ArchivePath) == "" {
		return fmt.Errorf("store.archive_path cannot be empty")
	}
	if strings.TrimSpace(s.ArchiveRetention) != "" {
		if _, ok := scheduler.ParseIntervalDuration(s.ArchiveRetention); !ok {
			return fmt.Errorf("store.archive_retention %q must look like 12h, 30d or 2w", s.ArchiveRetention)
		}
		if _, ok := scheduler.ParseIntervalDuration(s.PruneInterval); !ok {
			return fmt.Errorf("store.prune_interval %q must look like 15m or 1h", s.PruneInterval)
		}
	}
	return nil
}

func (l *LocaleConfig) validate() error {
	if !slices.Contains(SupportedLangs, l.DefaultLang) {
		return fmt.Errorf("locale.default_lang %q not supported (want one of %s)", l.DefaultLang, strings.Join(SupportedLangs, ", "))
	}
	return nil
}

func (p *ProcessorConfig) validate() error {
	if p.Workers <= 0 || p.Workers > 64 {
		return fmt.Errorf("processor.workers must be within [1,64], got %d", p.Workers)
	}
	return nil
}
