// Package score mines per-section scores out of generated fortune reports.
//
// Two inputs are understood. The preferred one is a structured payload emitted by the report
// generator next to the prose (see DecodeStructured). The legacy one is the prose itself: every
// section heading is expected to be followed by a "**Score:** N/100" marker, and Extract scans
// for those markers on a best-effort basis.
package score

import (
	"errors"
	"fmt"
	"strconv"

	"shantu/internal/types"
)

// ErrUnknownKind is returned for a report kind outside the supported set.
var ErrUnknownKind = errors.New("score: unknown report kind")

// Source tells where a Result's scores came from.
type Source string

const (
	// SourceStructured means the generator supplied the scores directly.
	SourceStructured Source = "structured"
	// SourceText means the scores were mined from the report prose.
	SourceText Source = "text"
	// SourceFallback means nothing matched and the fixed default set was substituted.
	SourceFallback Source = "fallback"
)

// Result is one extraction outcome.
type Result struct {
	Kind types.ReportKind `json:"kind"`
	types.ScoreSet
	Source Source `json:"source"`
}

// FallbackUsed reports whether the scores are the fixed defaults rather than real data.
func (r Result) FallbackUsed() bool { return r.Source == SourceFallback }

// Directions is the feng-shui name for Labels.
func (r Result) Directions() []string { return r.Labels }

// Scores is the feng-shui name for Values.
func (r Result) Scores() []int { return r.Values }

// Extract scans text for every vocabulary label of kind followed later by a score marker.
// Matches are returned in vocabulary order. A text with no match at all yields the fixed
// fallback set; a partial match yields just the matched subset.
func Extract(text string, kind types.ReportKind) (Result, error) {
	v, ok := lookupVocabulary(kind)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}
	return v.extract(text), nil
}

func (v *vocabulary) extract(text string) Result {
	var set types.ScoreSet
	for _, t := range v.terms {
		m := t.re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 0 || n > 100 {
			continue
		}
		set.Append(t.label, n)
	}
	if set.Len() == 0 {
		return Result{Kind: v.kind, ScoreSet: v.fallback.Clone(), Source: SourceFallback}
	}
	return Result{Kind: v.kind, ScoreSet: set, Source: SourceText}
}

// ExtractFace mines the twelve palace scores of a face-reading report.
func ExtractFace(text string) Result { return faceVocabulary.extract(text) }

// ExtractPalm mines the three main line scores of a palm-reading report.
func ExtractPalm(text string) Result { return palmVocabulary.extract(text) }

// ExtractFengshui mines the eight Bagua direction scores of a feng-shui report.
func ExtractFengshui(text string) Result { return fengshuiVocabulary.extract(text) }
