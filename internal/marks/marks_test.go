package marks

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutoring/internal/model"
)

func TestSeriesAveragesPerMonth(t *testing.T) {
	records := []model.MarkRecord{
		{Month: "2026-01", Marks: 80, MaxMarks: 100},
		{Month: "2026-01", Marks: 90, MaxMarks: 100},
		{Month: "2026-03", Marks: 45, MaxMarks: 50},
		{Month: "2025-01", Marks: 10, MaxMarks: 100},
	}
	s := Series(records, 2026)
	require.Len(t, s, 12)

	assert.Equal(t, "Jan", s[0].Label)
	require.NotNil(t, s[0].Value)
	assert.Equal(t, 85, *s[0].Value)

	assert.Nil(t, s[1].Value, "month without records must be nil, not zero")
	require.NotNil(t, s[2].Value)
	assert.Equal(t, 90, *s[2].Value)
	assert.Equal(t, "Dec", s[11].Label)
}

func TestSeriesSkipsInvalidMaxMarks(t *testing.T) {
	records := []model.MarkRecord{
		{Month: "2026-02", Marks: 50, MaxMarks: 0},
		{Month: "2026-02", Marks: 70, MaxMarks: 100},
		{Month: "2026-04", Marks: 5, MaxMarks: 0},
		{Month: "2026-05", Marks: 5, MaxMarks: -10},
		{Month: "2026-06", Marks: 5, MaxMarks: math.Inf(1)},
		{Month: "", Marks: 100, MaxMarks: 100},
	}
	s := Series(records, 2026)
	require.NotNil(t, s[1].Value)
	assert.Equal(t, 70, *s[1].Value)
	assert.Nil(t, s[3].Value)
	assert.Nil(t, s[4].Value)
	assert.Nil(t, s[5].Value)
}

func TestSeriesRoundsHalfUp(t *testing.T) {
	records := []model.MarkRecord{
		{Month: "2026-07", Marks: 1, MaxMarks: 8}, // 12.5
		{Month: "2026-08", Marks: 1, MaxMarks: 3}, // 33.33
		{Month: "2026-09", Marks: 2, MaxMarks: 3}, // 66.67
	}
	s := Series(records, 2026)
	assert.Equal(t, 13, *s[6].Value)
	assert.Equal(t, 33, *s[7].Value)
	assert.Equal(t, 67, *s[8].Value)
}

func TestPercentage(t *testing.T) {
	p, ok := Percentage(model.MarkRecord{Marks: 30, MaxMarks: 40})
	assert.True(t, ok)
	assert.InDelta(t, 75.0, p, 1e-9)

	_, ok = Percentage(model.MarkRecord{Marks: 30})
	assert.False(t, ok)
	_, ok = Percentage(model.MarkRecord{Marks: math.NaN(), MaxMarks: 10})
	assert.False(t, ok)
}
