package records

import (
	"encoding/json"
	"time"

	"shantu/internal/types"

	"gorm.io/datatypes"
)

// extractionModel 对应 extractions 表，每次报告处理写入一行。
type extractionModel struct {
	ID            string         `gorm:"column:id;primaryKey"`
	Kind          string         `gorm:"column:kind;index:idx_extraction_kind,priority:1"`
	Lang          string         `gorm:"column:lang"`
	Reference     string         `gorm:"column:reference;index"`
	Source        string         `gorm:"column:source"`
	FallbackUsed  bool           `gorm:"column:fallback_used"`
	LabelsJSON    datatypes.JSON `gorm:"column:labels_json;type:TEXT"`
	ValuesJSON    datatypes.JSON `gorm:"column:values_json;type:TEXT"`
	ChartKind     string         `gorm:"column:chart_kind"`
	HasChart      bool           `gorm:"column:has_chart"`
	ChartError    string         `gorm:"column:chart_error"`
	CreatedAtUnix int64          `gorm:"column:created_at;index:idx_extraction_kind,priority:2"`
}

func (extractionModel) TableName() string { return "extractions" }

// Record 是一次抽取的持久化视图。
type Record struct {
	ID           string           `json:"id"`
	Kind         types.ReportKind `json:"kind"`
	Lang         string           `json:"lang,omitempty"`
	Reference    string           `json:"reference,omitempty"`
	Source       string           `json:"source"`
	FallbackUsed bool             `json:"fallback_used"`
	Scores       types.ScoreSet   `json:"scores"`
	ChartKind    string           `json:"chart,omitempty"`
	HasChart     bool             `json:"has_chart"`
	ChartError   string           `json:"chart_error,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

func newExtractionModel(rec Record) (extractionModel, error) {
	labels, err := json.Marshal(nonNilStrings(rec.Scores.Labels))
	if err != nil {
		return extractionModel{}, err
	}
	values, err := json.Marshal(nonNilInts(rec.Scores.Values))
	if err != nil {
		return extractionModel{}, err
	}
	return extractionModel{
		ID:            rec.ID,
		Kind:          string(rec.Kind),
		Lang:          rec.Lang,
		Reference:     rec.Reference,
		Source:        rec.Source,
		FallbackUsed:  rec.FallbackUsed,
		LabelsJSON:    datatypes.JSON(labels),
		ValuesJSON:    datatypes.JSON(values),
		ChartKind:     rec.ChartKind,
		HasChart:      rec.HasChart,
		ChartError:    rec.ChartError,
		CreatedAtUnix: rec.CreatedAt.UnixMilli(),
	}, nil
}

func (m extractionModel) scores() (types.ScoreSet, error) {
	var set types.ScoreSet
	if len(m.LabelsJSON) > 0 {
		if err := json.Unmarshal(m.LabelsJSON, &set.Labels); err != nil {
			return types.ScoreSet{}, err
		}
	}
	if len(m.ValuesJSON) > 0 {
		if err := json.Unmarshal(m.ValuesJSON, &set.Values); err != nil {
			return types.ScoreSet{}, err
		}
	}
	return set, nil
}

func (m extractionModel) record() (Record, error) {
	set, err := m.scores()
	if err != nil {
		return Record{}, err
	}
	return Record{
		ID:           m.ID,
		Kind:         types.ReportKind(m.Kind),
		Lang:         m.Lang,
		Reference:    m.Reference,
		Source:       m.Source,
		FallbackUsed: m.FallbackUsed,
		Scores:       set,
		ChartKind:    m.ChartKind,
		HasChart:     m.HasChart,
		ChartError:   m.ChartError,
		CreatedAt:    time.UnixMilli(m.CreatedAtUnix),
	}, nil
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func nonNilInts(in []int) []int {
	if in == nil {
		return []int{}
	}
	return in
}
