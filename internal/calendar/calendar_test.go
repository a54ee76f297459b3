package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutoring/internal/model"
)

func TestMonthKeyRoundTrip(t *testing.T) {
	for m := 0; m < 12; m++ {
		key := MonthKey(2026, m)
		assert.Len(t, key, 7)
		assert.Equal(t, MonthNames[m], MonthName(key))
		assert.Equal(t, MonthNames[m]+" 2026", MonthLabel(key))

		y, idx, err := ParseMonthKey(key)
		require.NoError(t, err)
		assert.Equal(t, 2026, y)
		assert.Equal(t, m, idx)
	}
	assert.Equal(t, "2026-03", MonthKey(2026, 2))
	assert.Equal(t, "2026-12", MonthKey(2026, 11))
}

func TestMonthLabelFallback(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"March", "March"},
		{"2026-13", "2026-13"},
		{"2026-xx", "2026-xx"},
		{"2026-00", "2026-00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MonthLabel(tt.in), tt.in)
	}
}

func TestParseMonthKeyRejects(t *testing.T) {
	for _, in := range []string{"", "2026", "2026-1", "2026/01", "abcd-01", "2026-13"} {
		_, _, err := ParseMonthKey(in)
		assert.Error(t, err, in)
	}
}

func TestBuildCellCount(t *testing.T) {
	tests := []struct {
		year, month, want int
	}{
		{2026, 0, 31},
		{2026, 1, 28},
		{2028, 1, 29},
		{2100, 1, 28},
		{2000, 1, 29},
		{2026, 3, 30},
	}
	for _, tt := range tests {
		days := Build(tt.year, tt.month, nil, nil)
		assert.Len(t, days, tt.want, "%d-%d", tt.year, tt.month+1)
	}
	last := Build(2028, 1, nil, nil)
	assert.Equal(t, "2028-02-29", last[len(last)-1].Date)
}

func TestBuildClassDaysAndStatus(t *testing.T) {
	classDays := map[string]bool{"Thursday": true, "Saturday": true}
	att := map[string]model.AttendanceStatus{
		"2026-03-05": model.Present,
		"2026-03-07": model.Late,
		"2026-03-12": model.AttendanceStatus("SICK"),
	}
	days := Build(2026, 2, classDays, att)
	require.Len(t, days, 31)

	for _, d := range days {
		ts, err := time.Parse("2006-01-02", d.Date)
		require.NoError(t, err)
		assert.Equal(t, ts.Weekday().String(), d.Weekday)
		assert.Equal(t, classDays[ts.Weekday().String()], d.IsClassDay, d.Date)
	}

	assert.Equal(t, model.Present, days[4].Status)
	assert.Equal(t, model.Late, days[6].Status)
	assert.Equal(t, model.Unmarked, days[11].Status)
	assert.Equal(t, model.Unmarked, days[0].Status)
}

func TestCursorNavigation(t *testing.T) {
	jan := Cursor{Year: 2026, Month: 0}
	assert.Equal(t, Cursor{Year: 2025, Month: 11}, jan.Prev())

	dec := Cursor{Year: 2026, Month: 11}
	assert.Equal(t, Cursor{Year: 2027, Month: 0}, dec.Next())

	c := Cursor{Year: 2026, Month: 5}
	assert.Equal(t, c, c.Next().Prev())

	walk := jan
	for i := 0; i < 24; i++ {
		walk = walk.Next()
		assert.GreaterOrEqual(t, walk.Month, 0)
		assert.LessOrEqual(t, walk.Month, 11)
	}
	assert.Equal(t, Cursor{Year: 2028, Month: 0}, walk)
}

func TestNewCursorNormalizes(t *testing.T) {
	assert.Equal(t, Cursor{Year: 2027, Month: 0}, NewCursor(2026, 12))
	assert.Equal(t, Cursor{Year: 2025, Month: 11}, NewCursor(2026, -1))
	assert.Equal(t, Cursor{Year: 2026, Month: 2}, NewCursor(2026, 2))
	assert.Equal(t, "2026-03", NewCursor(2026, 2).Key())
}

func TestIndexByDate(t *testing.T) {
	m := IndexByDate([]model.AttendanceRecord{
		{Date: "2026-03-01", Status: model.Absent},
		{Date: "2026-03-02", Status: model.Excused},
	})
	assert.Equal(t, model.Absent, m["2026-03-01"])
	assert.Equal(t, model.Excused, m["2026-03-02"])
}
