package score

import (
	"regexp"
	"strings"

	"shantu/internal/types"
)

// markerPattern matches "**Score:** N/100" (or the Chinese "**评分:** N/100") with N in [0,100].
// Out-of-range numbers simply don't match, so the scan moves on to the next marker.
const markerPattern = `\*\*\s*(?:score|评分)\s*[:：]\s*\*\*\s*(100|[1-9]?[0-9])\s*/\s*100`

type term struct {
	label   string
	aliases []string
	// wordKey, when set, is matched as a whole ASCII word instead of the label itself.
	wordKey string
	re      *regexp.Regexp
}

type vocabulary struct {
	kind     types.ReportKind
	terms    []term
	fallback types.ScoreSet
}

var (
	faceVocabulary = newVocabulary(types.ReportFace,
		[]term{
			{label: "Life Palace", aliases: []string{"命宫"}},
			{label: "Wealth Palace", aliases: []string{"财帛宫"}},
			{label: "Siblings Palace", aliases: []string{"兄弟宫"}},
			{label: "Property Palace", aliases: []string{"田宅宫"}},
			{label: "Children Palace", aliases: []string{"子女宫"}},
			{label: "Servants Palace", aliases: []string{"奴仆宫"}},
			{label: "Spouse Palace", aliases: []string{"妻妾宫", "夫妻宫"}},
			{label: "Health Palace", aliases: []string{"疾厄宫"}},
			{label: "Travel Palace", aliases: []string{"迁移宫"}},
			{label: "Career Palace", aliases: []string{"官禄宫"}},
			{label: "Virtue Palace", aliases: []string{"福德宫"}},
			{label: "Parents Palace", aliases: []string{"父母宫"}},
		},
		types.ScoreSet{
			Labels: []string{"Life Palace", "Wealth Palace", "Career Palace", "Property Palace", "Virtue Palace", "Parents Palace"},
			Values: []int{85, 90, 80, 88, 92, 87},
		},
	)

	palmVocabulary = newVocabulary(types.ReportPalm,
		[]term{
			{label: "Life Line", aliases: []string{"生命线"}},
			{label: "Wisdom Line", aliases: []string{"智慧线"}},
			{label: "Heart Line", aliases: []string{"感情线"}},
		},
		types.ScoreSet{
			Labels: []string{"Life Line", "Wisdom Line", "Heart Line"},
			Values: []int{88, 85, 90},
		},
	)

	fengshuiVocabulary = newVocabulary(types.ReportFengshui,
		[]term{
			{label: "Qian (Northwest)", wordKey: "Qian", aliases: []string{"乾位"}},
			{label: "Kun (Southwest)", wordKey: "Kun", aliases: []string{"坤位"}},
			{label: "Zhen (East)", wordKey: "Zhen", aliases: []string{"震位"}},
			{label: "Xun (Southeast)", wordKey: "Xun", aliases: []string{"巽位"}},
			{label: "Kan (North)", wordKey: "Kan", aliases: []string{"坎位"}},
			{label: "Li (South)", wordKey: "Li", aliases: []string{"离位"}},
			{label: "Gen (Northeast)", wordKey: "Gen", aliases: []string{"艮位"}},
			{label: "Dui (West)", wordKey: "Dui", aliases: []string{"兑位", "兊位"}},
		},
		types.ScoreSet{
			Labels: []string{
				"Qian (Northwest)", "Kun (Southwest)", "Zhen (East)", "Xun (Southeast)",
				"Kan (North)", "Li (South)", "Gen (Northeast)", "Dui (West)",
			},
			Values: []int{85, 88, 82, 90, 87, 85, 83, 89},
		},
	)
)

func newVocabulary(kind types.ReportKind, terms []term, fallback types.ScoreSet) *vocabulary {
	for i := range terms {
		terms[i].re = compileTerm(terms[i])
	}
	return &vocabulary{kind: kind, terms: terms, fallback: fallback}
}

func compileTerm(t term) *regexp.Regexp {
	keys := make([]string, 0, len(t.aliases)+1)
	if t.wordKey != "" {
		keys = append(keys, `\b`+regexp.QuoteMeta(t.wordKey)+`\b`)
	} else {
		keys = append(keys, regexp.QuoteMeta(t.label))
	}
	for _, alias := range t.aliases {
		keys = append(keys, regexp.QuoteMeta(alias))
	}
	return regexp.MustCompile(`(?is)(?:` + strings.Join(keys, "|") + `).*?` + markerPattern)
}

func lookupVocabulary(kind types.ReportKind) (*vocabulary, bool) {
	switch kind {
	case types.ReportFace:
		return faceVocabulary, true
	case types.ReportPalm:
		return palmVocabulary, true
	case types.ReportFengshui:
		return fengshuiVocabulary, true
	}
	return nil, false
}

// canonical maps a label or alias (case-insensitive) to the vocabulary label and its index.
func (v *vocabulary) canonical(name string) (string, int, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", -1, false
	}
	for i, t := range v.terms {
		if strings.EqualFold(name, t.label) || (t.wordKey != "" && strings.EqualFold(name, t.wordKey)) {
			return t.label, i, true
		}
		for _, alias := range t.aliases {
			if name == alias {
				return t.label, i, true
			}
		}
	}
	return "", -1, false
}

// Labels returns the ordered vocabulary of kind, or nil for an unknown kind.
func Labels(kind types.ReportKind) []string {
	v, ok := lookupVocabulary(kind)
	if !ok {
		return nil
	}
	out := make([]string, len(v.terms))
	for i, t := range v.terms {
		out[i] = t.label
	}
	return out
}

// Canonical resolves a label or one of its aliases to the canonical vocabulary label.
func Canonical(kind types.ReportKind, name string) (string, bool) {
	v, ok := lookupVocabulary(kind)
	if !ok {
		return "", false
	}
	label, _, ok := v.canonical(name)
	return label, ok
}

// Fallback returns a copy of the fixed fallback set for kind.
func Fallback(kind types.ReportKind) (types.ScoreSet, bool) {
	v, ok := lookupVocabulary(kind)
	if !ok {
		return types.ScoreSet{}, false
	}
	return v.fallback.Clone(), true
}
