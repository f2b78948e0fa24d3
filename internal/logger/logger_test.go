package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestSetFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetFormat("json")
	SetLevel("debug")
	defer func() {
		SetFormat("text")
		SetOutput(os.Stdout)
		SetLevel("info")
	}()

	Warnf("fallback used for %s", "palm")

	line := bytes.TrimSpace(buf.Bytes())
	assert.True(t, gjson.ValidBytes(line))
	assert.Equal(t, "WARN", gjson.GetBytes(line, "level").String())
	assert.Equal(t, "fallback used for palm", gjson.GetBytes(line, "msg").String())
}

func TestSetLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel("error")
	defer func() {
		SetOutput(os.Stdout)
		SetLevel("info")
	}()

	Infof("hidden")
	assert.Empty(t, buf.String())
	Errorf("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogReport(t *testing.T) {
	var buf bytes.Buffer
	SetReportWriter(&buf)
	defer SetReportWriter(nil)

	LogReport("face", "r1", "ok", false, ReportSection{Title: "TEXT", Body: "命宫"})
	assert.Empty(t, buf.String())

	LogReport("face", "r1", "fallback", true, ReportSection{Title: "TEXT", Body: "命宫"})
	out := buf.String()
	assert.Contains(t, out, "[REPORT][face][r1][fallback]")
	assert.Contains(t, out, "--- TEXT ---\n命宫\n=====")

	buf.Reset()
	EnableReportDump(true)
	defer EnableReportDump(false)
	LogReport("palm", "", "", false, ReportSection{Body: "x"})
	assert.Contains(t, buf.String(), "--- CONTENT ---")
}

func TestInfoBlockAndSlog(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetFormat("json")
	defer func() {
		SetFormat("text")
		SetOutput(os.Stdout)
	}()

	InfoBlock("\n  line one\nline two\n")
	Slog().Info("http request", "status", 201)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if assert.Len(t, lines, 3) {
		assert.Equal(t, "line one", gjson.GetBytes(lines[0], "msg").String())
		assert.Equal(t, "line two", gjson.GetBytes(lines[1], "msg").String())
		assert.Equal(t, int64(201), gjson.GetBytes(lines[2], "status").Int())
	}
}
