package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	// EnvConfigPath 指定配置文件路径的环境变量。
	EnvConfigPath     = "SHANTU_CONFIG"
	DefaultConfigPath = "configs/config.yaml"
	envPrefix         = "SHANTU"
)

// envKeys 可以被 SHANTU_<SECTION>_<KEY> 环境变量覆盖的配置项，容器部署时常用。
var envKeys = []string{
	"app.env",
	"app.log_level",
	"app.log_format",
	"app.http_addr",
	"chart.chrome_path",
	"chart.no_sandbox",
	"chart.assets_host",
	"store.records_path",
	"store.archive_path",
	"locale.path",
	"locale.default_lang",
	"processor.workers",
}

// PathFromEnv returns $SHANTU_CONFIG or the default path.
func PathFromEnv() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return DefaultConfigPath
}

// Load 读取 path 及其 include 链，环境变量优先于文件，然后补默认值并校验。
func Load(path string) (*Config, error) {
	files, err := resolveIncludes(path)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigType("yaml")
	for _, file := range files {
		if err := mergeFile(v, file); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", file, err)
		}
	}
	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	set := make(keySet)
	markKeys("", v.AllSettings(), set)
	cfg.applyDefaults(set)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
}

func mergeFile(v *viper.Viper, path string) error {
	tmp := viper.New()
	tmp.SetConfigFile(path)
	if err := tmp.ReadInConfig(); err != nil {
		return err
	}
	return v.MergeConfigMap(tmp.AllSettings())
}

// includeWalker 按深度优先展开 include，被包含的文件先于包含者合并。
type includeWalker struct {
	seen    map[string]bool
	onStack map[string]bool
	ordered []string
}

func resolveIncludes(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &includeWalker{seen: map[string]bool{}, onStack: map[string]bool{}}
	if err := w.visit(abs); err != nil {
		return nil, err
	}
	return w.ordered, nil
}

func (w *includeWalker) visit(path string) error {
	path = filepath.Clean(path)
	if w.onStack[path] {
		return fmt.Errorf("include cycle detected: %s", path)
	}
	if w.seen[path] {
		return nil
	}
	w.onStack[path] = true
	defer delete(w.onStack, path)

	includes, err := readIncludes(path)
	if err != nil {
		return fmt.Errorf("parsing include failed (%s): %w", path, err)
	}
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(path), inc)
		}
		if err := w.visit(inc); err != nil {
			return err
		}
	}
	w.seen[path] = true
	w.ordered = append(w.ordered, path)
	return nil
}

func readIncludes(path string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	if !v.IsSet("include") {
		return nil, nil
	}
	if _, isMap := v.Get("include").(map[string]any); isMap {
		return nil, fmt.Errorf("include must be a string array")
	}
	var out []string
	for _, item := range v.GetStringSlice("include") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}

// markKeys 记录配置中出现过的叶子路径（小写、点分），供默认值判断“显式设置”。
func markKeys(prefix string, node any, dest keySet) {
	var children map[string]any
	switch val := node.(type) {
	case map[string]any:
		children = val
	case map[any]any:
		children = make(map[string]any, len(val))
		for k, v := range val {
			if ks, ok := k.(string); ok {
				children[ks] = v
			}
		}
	default:
		if prefix != "" {
			dest.mark(prefix)
		}
		return
	}
	for k, v := range children {
		name := strings.ToLower(strings.TrimSpace(k))
		if name == "" {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		markKeys(name, v, dest)
	}
}
