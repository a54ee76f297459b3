// Package timetable orders class-schedule rows and derives class days.
package timetable

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"tutoring/internal/model"
)

// Unparsed is the start minute assigned to labels without a recognizable time.
const Unparsed = 999999

const unknownIndex = 999

var startPattern = regexp.MustCompile(`(?i)(\d{1,2})(?::(\d{2}))?\s*(AM|PM)`)

var (
	gradeOrder = indexOf(model.Grades)
	dayOrder   = indexOf(model.Weekdays)
)

func indexOf(values []string) map[string]int {
	m := make(map[string]int, len(values))
	for i, v := range values {
		m[v] = i
	}
	return m
}

// StartMinutes converts the start of a label such as "4:00 PM – 6:00 PM"
// into minutes since midnight. Unparseable labels yield Unparsed.
func StartMinutes(label string) int {
	start, _, _ := strings.Cut(label, "–")
	start, _, _ = strings.Cut(start, "-")
	m := startPattern.FindStringSubmatch(strings.TrimSpace(start))
	if m == nil {
		return Unparsed
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return Unparsed
	}
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	total := hour%12*60 + minute
	if strings.EqualFold(m[3], "PM") {
		total += 720
	}
	return total
}

// Sort returns rows ordered by grade, weekday and start time. The input is
// left untouched and ties keep their original relative order.
func Sort(rows []model.TimetableRow) []model.TimetableRow {
	out := make([]model.TimetableRow, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ga, gb := rank(gradeOrder, a.Grade), rank(gradeOrder, b.Grade); ga != gb {
			return ga < gb
		}
		if da, db := rank(dayOrder, a.Day), rank(dayOrder, b.Day); da != db {
			return da < db
		}
		return StartMinutes(a.Time) < StartMinutes(b.Time)
	})
	return out
}

func rank(order map[string]int, key string) int {
	if i, ok := order[key]; ok {
		return i
	}
	return unknownIndex
}

// ClassDays returns the weekday names on which grade has at least one row.
// An empty grade matches every row.
func ClassDays(rows []model.TimetableRow, grade string) map[string]bool {
	days := make(map[string]bool)
	for _, r := range rows {
		if r.Day == "" || (grade != "" && r.Grade != grade) {
			continue
		}
		days[r.Day] = true
	}
	return days
}

// ForGrade filters rows to a single grade, preserving order.
func ForGrade(rows []model.TimetableRow, grade string) []model.TimetableRow {
	out := make([]model.TimetableRow, 0, len(rows))
	for _, r := range rows {
		if r.Grade == grade {
			out = append(out, r)
		}
	}
	return out
}

// ValidDay reports whether day is a known weekday name.
func ValidDay(day string) bool {
	_, ok := dayOrder[day]
	return ok
}
