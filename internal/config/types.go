package config

import (
	"strings"
	"time"

	"shantu/internal/scheduler"
)

// Config 是 shantu 的主配置载体。
type Config struct {
	App       AppConfig       `yaml:"app"`
	Chart     ChartConfig     `yaml:"chart"`
	Store     StoreConfig     `yaml:"store"`
	Locale    LocaleConfig    `yaml:"locale"`
	Processor ProcessorConfig `yaml:"processor"`
}

type AppConfig struct {
	Env       string `yaml:"env"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	HTTPAddr  string `yaml:"http_addr"`
	LogPath   string `yaml:"log_path"`
	// ReportLog 记录抽取异常的报告原文；ReportDump 为 true 时记录全部报告。
	ReportLog  string `yaml:"report_log_path"`
	ReportDump bool   `yaml:"report_dump"`
}

// ChartConfig 描述 headless Chrome 栅格化参数。
type ChartConfig struct {
	ChromePath string        `yaml:"chrome_path"`
	Headless   bool          `yaml:"headless"`
	NoSandbox  bool          `yaml:"no_sandbox"`
	Timeout    time.Duration `yaml:"timeout"`
	Settle     time.Duration `yaml:"settle"`
	// EchartsPath 指向本地 echarts.min.js，内联进图表页面；留空时使用编译进二进制的版本。
	EchartsPath string `yaml:"echarts_path"`
	// AssetsHost 非空时页面改为从该地址加载 echarts.min.js，覆盖内联方式。
	AssetsHost string `yaml:"assets_host"`
	// 连续失败 BreakerThreshold 次后熔断 BreakerCooldown；显式设为 0 关闭熔断。
	BreakerThreshold int           `yaml:"breaker_threshold"`
	BreakerCooldown  time.Duration `yaml:"breaker_cooldown"`
}

type StoreConfig struct {
	RecordsPath string `yaml:"records_path"`
	ArchivePath string `yaml:"archive_path"`
	// ArchiveRetention 形如 "30d"、"12h"；留空表示图表永久保留。
	ArchiveRetention string `yaml:"archive_retention"`
	PruneInterval    string `yaml:"prune_interval"`
}

// Retention 返回图表保留时长，0 表示不清理。
func (s StoreConfig) Retention() time.Duration {
	d, _ := scheduler.ParseIntervalDuration(s.ArchiveRetention)
	return d
}

func (s StoreConfig) PruneEvery() time.Duration {
	d, _ := scheduler.ParseIntervalDuration(s.PruneInterval)
	return d
}

type LocaleConfig struct {
	// Path 为空时只使用内置词条。
	Path        string `yaml:"path"`
	DefaultLang string `yaml:"default_lang"`
}

type ProcessorConfig struct {
	Workers int `yaml:"workers"`
}

// SupportedLangs 是内置词条覆盖的语言。
var SupportedLangs = []string{"en", "zh", "ja", "ko"}

func normalizeLang(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
