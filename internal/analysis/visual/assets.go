package visual

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
)

// assets/ 下放 echarts.min.js（scripts/fetch-echarts.sh 拉取，版本见 assets/VERSION）。
//
//go:embed assets
var assetsFS embed.FS

const embeddedBundlePath = "assets/echarts.min.js"

// ErrNoEchartsBundle is returned when a page would need echarts but neither an inline
// bundle nor an explicit assets host is configured. Pages never fall back to a remote CDN.
var ErrNoEchartsBundle = errors.New("visual: echarts bundle not available")

// Assets 决定图表页面从哪里加载 echarts：Host 非空时按 <script src> 引用（显式覆盖），
// 否则把 Bundle 内联进页面。
type Assets struct {
	Host   string
	Bundle []byte
	origin string
}

// EmbeddedBundle returns the echarts.min.js compiled into the binary, nil when the build
// did not vendor one.
func EmbeddedBundle() []byte {
	b, err := assetsFS.ReadFile(embeddedBundlePath)
	if err != nil || len(b) == 0 {
		return nil
	}
	return b
}

// InlineAssets inlines bundle into every page.
func InlineAssets(bundle []byte) Assets {
	return Assets{Bundle: bundle, origin: "inline"}
}

// LoadAssets resolves the echarts source: host override, then the file at bundlePath,
// then the embedded bundle. An empty result makes every render fail with ErrNoEchartsBundle.
func LoadAssets(host, bundlePath string) (Assets, error) {
	if host = strings.TrimSpace(host); host != "" {
		return Assets{Host: host, origin: host}, nil
	}
	if bundlePath = strings.TrimSpace(bundlePath); bundlePath != "" {
		b, err := os.ReadFile(bundlePath)
		if err != nil {
			return Assets{}, fmt.Errorf("visual: read echarts bundle: %w", err)
		}
		if len(b) == 0 {
			return Assets{}, fmt.Errorf("visual: echarts bundle %s is empty", bundlePath)
		}
		return Assets{Bundle: b, origin: bundlePath}, nil
	}
	if b := EmbeddedBundle(); b != nil {
		return Assets{Bundle: b, origin: "embedded"}, nil
	}
	return Assets{}, nil
}

// Available 报告页面能否拿到 echarts。
func (a Assets) Available() bool {
	return a.Host != "" || len(a.Bundle) > 0
}

// Source describes the echarts origin for the startup summary.
func (a Assets) Source() string {
	switch {
	case a.Host != "":
		return a.Host
	case len(a.Bundle) > 0:
		return fmt.Sprintf("%s (%d KB inline)", a.origin, len(a.Bundle)/1024)
	default:
		return "missing"
	}
}

// inlineScript wraps the bundle in a script tag; a literal "</script" inside the bundle would
// end the element early.
func inlineScript(bundle []byte) string {
	body := strings.ReplaceAll(string(bundle), "</script", `<\/script`)
	return "<script>" + body + "</script>"
}
