package loader

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"shantu/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LocaleFile 是图表本地化词条文件的结构：
//
//	titles: { <report kind>: { <lang>: <chart title> } }
//	labels: { <canonical label>: { <lang>: <display label> } }
type LocaleFile struct {
	Titles map[string]map[string]string `yaml:"titles"`
	Labels map[string]map[string]string `yaml:"labels"`
}

//go:embed locale.schema.json
var localeSchemaSource string

var localeSchema = func() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("locale.schema.json", strings.NewReader(localeSchemaSource)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("locale.schema.json")
}()

// ParseLocale decodes a locale file strictly: unknown top-level keys, non-string entries and
// malformed language codes are rejected. Kind and language keys are lower-cased.
func ParseLocale(raw []byte) (LocaleFile, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return LocaleFile{}, fmt.Errorf("parse locale yaml: %w", err)
	}
	if doc == nil {
		return LocaleFile{}, nil
	}
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return LocaleFile{}, fmt.Errorf("locale file is not a plain mapping: %w", err)
	}
	var generic any
	if err := json.Unmarshal(asJSON, &generic); err != nil {
		return LocaleFile{}, err
	}
	if err := localeSchema.Validate(generic); err != nil {
		return LocaleFile{}, fmt.Errorf("locale schema: %w", err)
	}

	var file LocaleFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return LocaleFile{}, fmt.Errorf("decode locale file: %w", err)
	}
	file.Titles = normalizeTable(file.Titles, true)
	file.Labels = normalizeTable(file.Labels, false)
	return file, nil
}

func normalizeTable(in map[string]map[string]string, lowerKey bool) map[string]map[string]string {
	out := make(map[string]map[string]string, len(in))
	for key, langs := range in {
		key = strings.TrimSpace(key)
		if lowerKey {
			key = strings.ToLower(key)
		}
		if key == "" {
			continue
		}
		entry := out[key]
		if entry == nil {
			entry = make(map[string]string, len(langs))
			out[key] = entry
		}
		for lang, text := range langs {
			lang = strings.ToLower(strings.TrimSpace(lang))
			text = strings.TrimSpace(text)
			if lang == "" || text == "" {
				continue
			}
			entry[lang] = text
		}
	}
	return out
}

// ChangeListener 在词条文件变更时被调用。
type ChangeListener func(LocaleSnapshot)

// LocaleSnapshot 对外暴露的只读快照。
type LocaleSnapshot struct {
	Version  int64
	LoadedAt time.Time
	File     LocaleFile
}

// LocaleLoader 负责从 YAML 文件加载词条，并监听热更新。
type LocaleLoader struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  LocaleSnapshot
	listeners []ChangeListener
}

// NewLocaleLoader 读取词条文件并开始监听 FS 事件。
func NewLocaleLoader(path string) (*LocaleLoader, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("locale loader requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read locale file failed: %w", err)
	}
	loader := &LocaleLoader{path: path, v: v}
	if err := loader.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := loader.reload(); err != nil {
			logger.Errorf("locale reload failed (%s): %v", evt.Name, err)
			return
		}
		loader.notify()
	})
	v.WatchConfig()
	return loader, nil
}

// Snapshot 返回当前词条快照（深拷贝）。
func (l *LocaleLoader) Snapshot() LocaleSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneSnapshot(l.snapshot)
}

// Subscribe 注册监听器，并立即收到一次完整快照。
func (l *LocaleLoader) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	snap := cloneSnapshot(l.snapshot)
	l.mu.Unlock()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("locale listener panic: %v", r)
			}
		}()
		fn(snap)
	}()
}

func (l *LocaleLoader) notify() {
	l.mu.RLock()
	snap := cloneSnapshot(l.snapshot)
	listeners := append([]ChangeListener(nil), l.listeners...)
	l.mu.RUnlock()
	for _, fn := range listeners {
		if fn == nil {
			continue
		}
		go func(cb ChangeListener) {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("locale listener panic: %v", r)
				}
			}()
			cb(snap)
		}(fn)
	}
}

// Reload re-reads the file outside of the fsnotify loop.
func (l *LocaleLoader) Reload() error {
	if err := l.reload(); err != nil {
		return err
	}
	l.notify()
	return nil
}

func (l *LocaleLoader) reload() error {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("read locale file failed: %w", err)
	}
	file, err := ParseLocale(raw)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.snapshot = LocaleSnapshot{
		Version:  l.snapshot.Version + 1,
		LoadedAt: time.Now(),
		File:     file,
	}
	l.mu.Unlock()
	logger.Infof("Locale loader reloaded %d titles / %d labels from %s", len(file.Titles), len(file.Labels), filepath.Base(l.path))
	return nil
}

func cloneTable(src map[string]map[string]string) map[string]map[string]string {
	dst := make(map[string]map[string]string, len(src))
	for k, langs := range src {
		inner := make(map[string]string, len(langs))
		for lang, text := range langs {
			inner[lang] = text
		}
		dst[k] = inner
	}
	return dst
}

func cloneSnapshot(src LocaleSnapshot) LocaleSnapshot {
	return LocaleSnapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		File: LocaleFile{
			Titles: cloneTable(src.File.Titles),
			Labels: cloneTable(src.File.Labels),
		},
	}
}
