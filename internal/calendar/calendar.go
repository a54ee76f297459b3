package calendar

import (
	"fmt"
	"time"

	"tutoring/internal/model"
)

// Day is one cell of the attendance calendar.
type Day struct {
	Date       string                 `json:"date"`
	Weekday    string                 `json:"weekday"`
	IsClassDay bool                   `json:"isClassDay"`
	Status     model.AttendanceStatus `json:"status"`
}

// Build returns one Day per calendar day of month (zero-based) in year.
// Statuses missing from attendance, or not in the stored set, render as UNMARKED.
func Build(year, month int, classDays map[string]bool, attendance map[string]model.AttendanceStatus) []Day {
	c := NewCursor(year, month)
	first := time.Date(c.Year, time.Month(c.Month+1), 1, 0, 0, 0, 0, time.UTC)
	n := DaysIn(c.Year, c.Month)

	days := make([]Day, 0, n)
	for i := 0; i < n; i++ {
		d := first.AddDate(0, 0, i)
		date := d.Format("2006-01-02")
		weekday := d.Weekday().String()
		status := attendance[date]
		if !status.Valid() {
			status = model.Unmarked
		}
		days = append(days, Day{
			Date:       date,
			Weekday:    weekday,
			IsClassDay: classDays[weekday],
			Status:     status,
		})
	}
	return days
}

// DaysIn returns the number of days in a zero-based month.
func DaysIn(year, month int) int {
	// day 0 of the following month is the last day of this one
	return time.Date(year, time.Month(month+2), 0, 0, 0, 0, 0, time.UTC).Day()
}

// IndexByDate maps attendance records by date. A later record for the same date wins.
func IndexByDate(records []model.AttendanceRecord) map[string]model.AttendanceStatus {
	out := make(map[string]model.AttendanceStatus, len(records))
	for _, r := range records {
		out[r.Date] = r.Status
	}
	return out
}

// Cursor is a (year, zero-based month) position. Month is always within 0..11.
type Cursor struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// NewCursor normalizes an out-of-range month into the neighbouring years.
func NewCursor(year, month int) Cursor {
	year += month / 12
	month %= 12
	if month < 0 {
		month += 12
		year--
	}
	return Cursor{Year: year, Month: month}
}

// Prev steps back one month, rolling January into the previous December.
func (c Cursor) Prev() Cursor {
	if c.Month == 0 {
		return Cursor{Year: c.Year - 1, Month: 11}
	}
	return Cursor{Year: c.Year, Month: c.Month - 1}
}

// Next steps forward one month, rolling December into the next January.
func (c Cursor) Next() Cursor {
	if c.Month == 11 {
		return Cursor{Year: c.Year + 1, Month: 0}
	}
	return Cursor{Year: c.Year, Month: c.Month + 1}
}

// Key returns the month key of the cursor.
func (c Cursor) Key() string { return MonthKey(c.Year, c.Month) }

func (c Cursor) String() string {
	return fmt.Sprintf("%s %d", MonthNames[c.Month], c.Year)
}
