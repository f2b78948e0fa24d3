package records

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"shantu/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := NewStore(filepath.Join(t.TempDir(), "db", "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestStore_InsertAndGet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rec, err := st.Insert(ctx, Record{
		Kind:      types.ReportFace,
		Lang:      "zh",
		Reference: "  order-42 ",
		Source:    "text",
		Scores:    types.ScoreSet{Labels: []string{"Life Palace", "Wealth Palace"}, Values: []int{85, 90}},
		ChartKind: "radar",
		HasChart:  true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, "order-42", rec.Reference)

	got, err := st.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, types.ReportFace, got.Kind)
	assert.Equal(t, rec.Scores, got.Scores)
	assert.True(t, got.HasChart)
	assert.Equal(t, rec.CreatedAt.UnixMilli(), got.CreatedAt.UnixMilli())
}

func TestStore_GetMissing(t *testing.T) {
	st := newTestStore(t)
	_, err := st.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_InsertRejectsUnknownKind(t *testing.T) {
	st := newTestStore(t)
	_, err := st.Insert(context.Background(), Record{Kind: "tarot"})
	assert.Error(t, err)
}

func TestStore_ListNewestFirst(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	for i, kind := range []types.ReportKind{types.ReportFace, types.ReportPalm, types.ReportFace} {
		_, err := st.Insert(ctx, Record{
			ID:        string(rune('a' + i)),
			Kind:      kind,
			Source:    "text",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	all, err := st.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	faces, err := st.List(ctx, types.ReportFace, 1)
	require.NoError(t, err)
	require.Len(t, faces, 1)
	assert.Equal(t, "c", faces[0].ID)
	assert.Equal(t, []string{}, faces[0].Scores.Labels)
}

func TestStore_Stats(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	inserts := []Record{
		{Kind: types.ReportPalm, Source: "text", Scores: types.ScoreSet{Labels: []string{"Heart Line", "Life Line"}, Values: []int{80, 90}}},
		{Kind: types.ReportPalm, Source: "structured", Scores: types.ScoreSet{Labels: []string{"Life Line"}, Values: []int{85}}},
		{Kind: types.ReportPalm, Source: "fallback", FallbackUsed: true, Scores: types.ScoreSet{Labels: []string{"Life Line"}, Values: []int{88}}},
		{Kind: types.ReportFace, Source: "text", Scores: types.ScoreSet{Labels: []string{"Life Palace"}, Values: []int{10}}},
	}
	for _, rec := range inserts {
		_, err := st.Insert(ctx, rec)
		require.NoError(t, err)
	}

	stats, err := st.Stats(ctx, types.ReportPalm)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Reports)
	assert.Equal(t, int64(1), stats.Fallbacks)
	assert.InDelta(t, 0.3333, stats.FallbackRate, 1e-9)
	require.Len(t, stats.Averages, 2)
	// vocabulary order: Life Line before Heart Line
	assert.Equal(t, LabelAverage{Label: "Life Line", Average: 87.5, Samples: 2}, stats.Averages[0])
	assert.Equal(t, LabelAverage{Label: "Heart Line", Average: 80, Samples: 1}, stats.Averages[1])
}

func TestStore_StatsEmpty(t *testing.T) {
	st := newTestStore(t)
	stats, err := st.Stats(context.Background(), types.ReportFengshui)
	require.NoError(t, err)
	assert.Zero(t, stats.Reports)
	assert.Zero(t, stats.FallbackRate)
	assert.Empty(t, stats.Averages)

	_, err = st.Stats(context.Background(), "tarot")
	assert.Error(t, err)
}
