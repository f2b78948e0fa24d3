// Package report runs the analytics step of report processing: score extraction, chart
// rendering, archiving and bookkeeping for one generated report.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shantu/internal/analysis/score"
	"shantu/internal/analysis/visual"
	"shantu/internal/logger"
	"shantu/internal/pkg/text"
	"shantu/internal/store/archive"
	"shantu/internal/store/records"
	"shantu/internal/types"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ChartRenderer 渲染单张图表。
type ChartRenderer interface {
	Render(ctx context.Context, spec visual.Spec) (visual.Image, error)
}

// Localizer 提供图表标题与标签的本地化文本。
type Localizer interface {
	Title(kind types.ReportKind, lang string) string
	Labels(labels []string, lang string) []string
	DefaultLang() string
}

type RecordStore interface {
	Insert(ctx context.Context, rec records.Record) (records.Record, error)
}

type ChartArchive interface {
	Put(ctx context.Context, c archive.Chart) error
}

// Request 是一份待分析的报告。
type Request struct {
	Kind types.ReportKind `json:"kind"`
	Text string           `json:"text"`
	Lang string           `json:"lang,omitempty"`
	// Structured 为上游直接给出的分数 JSON，可为空。
	Structured string `json:"structured,omitempty"`
	Reference  string `json:"reference,omitempty"`
}

// Artifact 是一次处理的产物。Chart 为空时 ChartError 说明原因。
type Artifact struct {
	ID              string           `json:"id"`
	Kind            types.ReportKind `json:"kind"`
	Lang            string           `json:"lang"`
	Labels          []string         `json:"labels"`
	Values          []int            `json:"values"`
	DisplayLabels   []string         `json:"display_labels"`
	Source          score.Source     `json:"source"`
	FallbackUsed    bool             `json:"fallback_used"`
	StructuredError string           `json:"structured_error,omitempty"`
	ChartKind       visual.ChartKind `json:"chart"`
	ChartTitle      string           `json:"chart_title"`
	Chart           *visual.Image    `json:"-"`
	Archived        bool             `json:"archived"`
	ChartError      string           `json:"chart_error,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Options 汇总 Processor 的依赖。Archive 与 Records 可为空。
type Options struct {
	Renderer  ChartRenderer
	Localizer Localizer
	Records   RecordStore
	Archive   ChartArchive
	Workers   int
}

// Processor 串联抽取、渲染、归档与记录。可并发使用。
type Processor struct {
	renderer ChartRenderer
	locale   Localizer
	records  RecordStore
	archive  ChartArchive
	workers  int
}

func NewProcessor(opts Options) (*Processor, error) {
	if opts.Renderer == nil {
		return nil, fmt.Errorf("report processor requires renderer")
	}
	if opts.Localizer == nil {
		return nil, fmt.Errorf("report processor requires localizer")
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Processor{
		renderer: opts.Renderer,
		locale:   opts.Localizer,
		records:  opts.Records,
		archive:  opts.Archive,
		workers:  workers,
	}, nil
}

// Process 处理单份报告。抽取失败（未知类型）与记录写入失败返回错误；图表渲染或归档失败
// 只记录在 Artifact 上。
func (p *Processor) Process(ctx context.Context, req Request) (Artifact, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	lang := strings.ToLower(strings.TrimSpace(req.Lang))
	if lang == "" {
		lang = p.locale.DefaultLang()
	}
	res, err := score.Resolve(req.Text, req.Structured, req.Kind)
	if err != nil {
		return Artifact{}, err
	}
	art := Artifact{
		ID:            uuid.NewString(),
		Kind:          res.Kind,
		Lang:          lang,
		Labels:        res.Labels,
		Values:        res.Values,
		DisplayLabels: p.locale.Labels(res.Labels, lang),
		Source:        res.Source,
		FallbackUsed:  res.FallbackUsed(),
		ChartTitle:    p.locale.Title(res.Kind, lang),
		CreatedAt:     time.Now(),
	}
	p.logExtraction(req, res, art.ID)

	art.ChartKind, err = visual.ChartKindFor(res.Kind)
	if err != nil {
		return Artifact{}, err
	}
	spec := visual.Spec{Kind: art.ChartKind, Title: art.ChartTitle, Labels: art.DisplayLabels, Values: res.Floats()}
	img, err := p.renderer.Render(ctx, spec)
	if err != nil {
		logger.Errorf("[report] %s chart render failed (id=%s): %v", res.Kind, art.ID, err)
		art.ChartError = err.Error()
	} else {
		art.Chart = &img
		art.Archived = p.archiveChart(ctx, art.ID, img)
	}

	if p.records != nil {
		rec := records.Record{
			ID:           art.ID,
			Kind:         art.Kind,
			Lang:         art.Lang,
			Reference:    req.Reference,
			Source:       string(art.Source),
			FallbackUsed: art.FallbackUsed,
			Scores:       res.ScoreSet,
			ChartKind:    string(art.ChartKind),
			HasChart:     art.Archived,
			ChartError:   art.ChartError,
			CreatedAt:    art.CreatedAt,
		}
		if _, err := p.records.Insert(ctx, rec); err != nil {
			return Artifact{}, fmt.Errorf("record extraction %s: %w", art.ID, err)
		}
	}
	if res.StructuredErr != nil {
		art.StructuredError = res.StructuredErr.Error()
	}
	return art, nil
}

func (p *Processor) archiveChart(ctx context.Context, id string, img visual.Image) bool {
	if p.archive == nil {
		return false
	}
	err := p.archive.Put(ctx, archive.Chart{
		ID:       id,
		Kind:     string(img.Kind),
		Filename: img.Filename,
		PNG:      img.Bytes,
	})
	if err != nil {
		logger.Errorf("[report] archive chart %s failed: %v", id, err)
		return false
	}
	return true
}

const logPreviewRunes = 80

func (p *Processor) logExtraction(req Request, res score.Resolution, id string) {
	sections := []logger.ReportSection{{Title: "REPORT", Body: req.Text}}
	if strings.TrimSpace(req.Structured) != "" {
		sections = append(sections, logger.ReportSection{Title: "STRUCTURED", Body: req.Structured})
	}
	if res.StructuredErr != nil {
		logger.Warnf("[report] %s structured scores rejected (id=%s): %v", res.Kind, id, res.StructuredErr)
		logger.LogReport(string(res.Kind), id, "structured_rejected", true, sections...)
	}
	switch {
	case res.FallbackUsed():
		logger.Warnf("[report] %s report has no score markers, using fallback scores (id=%s ref=%s) text=%q",
			res.Kind, id, req.Reference, text.Truncate(strings.TrimSpace(req.Text), logPreviewRunes))
		logger.LogReport(string(res.Kind), id, "fallback", true, sections...)
	case res.StructuredErr == nil:
		logger.Debugf("[report] %s scores from %s: %d labels (id=%s)", res.Kind, res.Source, len(res.Labels), id)
		logger.LogReport(string(res.Kind), id, string(res.Source), false, sections...)
	}
}

// BatchResult 对应 ProcessBatch 中同位置的请求。
type BatchResult struct {
	Artifact Artifact
	Err      error
}

// ProcessBatch 以有限并发处理一批报告，结果顺序与输入一致。单份失败不影响其它报告；
// ctx 取消后尚未开始的报告返回 ctx.Err()。
func (p *Processor) ProcessBatch(ctx context.Context, reqs []Request) []BatchResult {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([]BatchResult, len(reqs))
	var group errgroup.Group
	group.SetLimit(p.workers)
	for i := range reqs {
		i := i
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			art, err := p.Process(ctx, reqs[i])
			results[i] = BatchResult{Artifact: art, Err: err}
			return nil
		})
	}
	_ = group.Wait()
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		logger.Warnf("[report] batch finished: %d/%d failed", failed, len(reqs))
	}
	return results
}

// IsClientError reports whether err was caused by the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, score.ErrUnknownKind) ||
		errors.Is(err, visual.ErrUnknownChartKind) ||
		errors.Is(err, visual.ErrInvalidSpec)
}
