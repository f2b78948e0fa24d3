// Package locale 提供图表标题与标签的多语言词条。
//
// 内置词条随二进制发布；配置了外部词条文件时，外部条目按 kind/label 覆盖内置条目并支持热更新。
package locale

import (
	_ "embed"
	"strings"
	"sync"

	"shantu/internal/config/loader"
	"shantu/internal/types"
)

// FallbackLang 是任何语言都查不到时的兜底语言。
const FallbackLang = "en"

//go:embed defaults.yaml
var defaultsSource []byte

var builtin = func() loader.LocaleFile {
	file, err := loader.ParseLocale(defaultsSource)
	if err != nil {
		panic(err)
	}
	return file
}()

// Registry resolves chart titles and label display names per language.
type Registry struct {
	defaultLang string

	mu      sync.RWMutex
	titles  map[string]map[string]string
	labels  map[string]map[string]string
	version int64
}

// NewRegistry 使用内置词条创建 Registry。defaultLang 为空时使用英文。
func NewRegistry(defaultLang string) *Registry {
	r := &Registry{defaultLang: NormalizeLang(defaultLang)}
	if r.defaultLang == "" {
		r.defaultLang = FallbackLang
	}
	r.apply(loader.LocaleFile{}, 0)
	return r
}

// Attach 订阅 LocaleLoader，外部词条每次重载后覆盖到内置词条之上。
func (r *Registry) Attach(l *loader.LocaleLoader) {
	if l == nil {
		return
	}
	snap := l.Snapshot()
	r.apply(snap.File, snap.Version)
	l.Subscribe(func(s loader.LocaleSnapshot) {
		r.apply(s.File, s.Version)
	})
}

func (r *Registry) apply(overlay loader.LocaleFile, version int64) {
	titles := merge(builtin.Titles, overlay.Titles)
	labels := merge(builtin.Labels, overlay.Labels)
	r.mu.Lock()
	defer r.mu.Unlock()
	// Subscribe 的首次推送可能晚于 Attach 中的同步应用
	if version != 0 && version < r.version {
		return
	}
	r.titles, r.labels, r.version = titles, labels, version
}

func merge(base, overlay map[string]map[string]string) map[string]map[string]string {
	out := make(map[string]map[string]string, len(base)+len(overlay))
	for _, src := range []map[string]map[string]string{base, overlay} {
		for key, langs := range src {
			entry := out[key]
			if entry == nil {
				entry = make(map[string]string, len(langs))
				out[key] = entry
			}
			for lang, text := range langs {
				entry[lang] = text
			}
		}
	}
	return out
}

func (r *Registry) DefaultLang() string { return r.defaultLang }

// Version 返回当前生效的外部词条版本，0 表示只有内置词条。
func (r *Registry) Version() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Title 返回 kind 对应图表在 lang 下的标题。
func (r *Registry) Title(kind types.ReportKind, lang string) string {
	r.mu.RLock()
	entry := r.titles[strings.ToLower(string(kind))]
	r.mu.RUnlock()
	if text, ok := r.pick(entry, lang); ok {
		return text
	}
	return string(kind)
}

// Label 返回规范标签在 lang 下的显示名；没有译文时原样返回。
func (r *Registry) Label(label, lang string) string {
	r.mu.RLock()
	entry := r.labels[label]
	r.mu.RUnlock()
	if text, ok := r.pick(entry, lang); ok {
		return text
	}
	return label
}

// Labels translates every label in order.
func (r *Registry) Labels(labels []string, lang string) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = r.Label(l, lang)
	}
	return out
}

// pick 依次尝试 lang、lang 的主语言（zh-TW → zh）、默认语言与英文。
func (r *Registry) pick(entry map[string]string, lang string) (string, bool) {
	if len(entry) == 0 {
		return "", false
	}
	lang = NormalizeLang(lang)
	candidates := []string{lang}
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		candidates = append(candidates, lang[:i])
	}
	candidates = append(candidates, r.defaultLang, FallbackLang)
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if text, ok := entry[c]; ok {
			return text, true
		}
	}
	return "", false
}

// NormalizeLang lower-cases lang and trims surrounding space.
func NormalizeLang(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}
