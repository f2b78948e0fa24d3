package app

import (
	"fmt"
	"io"
	"strings"

	"shantu/internal/logger"
)

// StartupSummary 汇总启动时生效的关键配置，便于在日志开头核对。
type StartupSummary struct {
	HTTPAddr    string
	Chart       ChartSummary
	Store       StoreSummary
	Locale      LocaleSummary
	Workers     int
	ReportDump  bool
	ReportLog   string
	Environment string
}

type ChartSummary struct {
	ChromePath string
	Headless   bool
	NoSandbox  bool
	Timeout    string
	Echarts    string
	Breaker    string
}

type StoreSummary struct {
	RecordsPath string
	ArchivePath string
	Retention   string
}

type LocaleSummary struct {
	Path        string
	DefaultLang string
	Version     int64
}

// Print 写入日志，开启 log_path 时摘要也会落盘。
func (s *StartupSummary) Print() {
	var b strings.Builder
	s.Fprint(&b)
	logger.InfoBlock(b.String())
}

func (s *StartupSummary) Fprint(w io.Writer) {
	title := "启动配置摘要 (STARTUP SUMMARY)"
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%*s\n", 40+len(title)/2, title)
	fmt.Fprintln(w, strings.Repeat("=", 80))

	fmt.Fprintln(w, "[服务 (SERVICE)]")
	fmt.Fprintf(w, "  环境: %s\n", orDash(s.Environment))
	fmt.Fprintf(w, "  监听地址: %s\n", orDash(s.HTTPAddr))
	fmt.Fprintf(w, "  批处理并发: %d\n", s.Workers)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[图表渲染 (CHART)]")
	fmt.Fprintf(w, "  Chrome: %s\n", orDash(s.Chart.ChromePath))
	fmt.Fprintf(w, "  Headless: %t  NoSandbox: %t\n", s.Chart.Headless, s.Chart.NoSandbox)
	fmt.Fprintf(w, "  超时: %s\n", orDash(s.Chart.Timeout))
	fmt.Fprintf(w, "  echarts 资源: %s\n", orDash(s.Chart.Echarts))
	fmt.Fprintf(w, "  熔断: %s\n", orDash(s.Chart.Breaker))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[存储 (STORE)]")
	fmt.Fprintf(w, "  抽取记录: %s\n", orDash(s.Store.RecordsPath))
	fmt.Fprintf(w, "  图表归档: %s (保留 %s)\n", orDash(s.Store.ArchivePath), orDash(s.Store.Retention))
	if s.ReportDump {
		fmt.Fprintf(w, "  报告原文: %s (全部)\n", orDash(s.ReportLog))
	} else {
		fmt.Fprintf(w, "  报告原文: %s (仅异常)\n", orDash(s.ReportLog))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[多语言 (LOCALE)]")
	fmt.Fprintf(w, "  默认语言: %s\n", orDash(s.Locale.DefaultLang))
	if s.Locale.Path == "" {
		fmt.Fprintln(w, "  词条文件: (内置)")
	} else {
		fmt.Fprintf(w, "  词条文件: %s (版本 %d)\n", s.Locale.Path, s.Locale.Version)
	}
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
