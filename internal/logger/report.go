package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

// 报告原文单独落盘：抽取失败或结构化数据被拒时，便于回溯上游格式漂移。
var (
	reportMu      sync.Mutex
	reportLog     *log.Logger
	reportDumpAll bool
)

func SetReportWriter(w io.Writer) {
	reportMu.Lock()
	defer reportMu.Unlock()
	if w == nil {
		reportLog = nil
		return
	}
	reportLog = log.New(w, "", log.LstdFlags)
}

// EnableReportDump makes LogReport record every report, not only anomalies.
func EnableReportDump(enabled bool) {
	reportMu.Lock()
	reportDumpAll = enabled
	reportMu.Unlock()
}

type ReportSection struct {
	Title string
	Body  string
}

// LogReport writes one report dump. anomaly marks dumps that are written even when
// full dumping is disabled.
func LogReport(kind, id, reason string, anomaly bool, sections ...ReportSection) {
	reportMu.Lock()
	logger := reportLog
	all := reportDumpAll
	reportMu.Unlock()
	if logger == nil || (!anomaly && !all) {
		return
	}
	var b strings.Builder
	b.WriteString("[REPORT]")
	for _, tag := range []string{kind, id, reason} {
		if tag == "" {
			continue
		}
		b.WriteString("[")
		b.WriteString(tag)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := strings.TrimSpace(sec.Title)
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(t)
		b.WriteString(" ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	logger.Print(b.String())
}
