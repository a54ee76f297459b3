// Package calendar builds month keys and the attendance calendar grid.
package calendar

import (
	"fmt"
	"strconv"
	"strings"
)

// MonthNames are the full English month names, January first.
var MonthNames = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthShort are the three-letter month labels used on charts.
var MonthShort = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// MonthKey returns the canonical "YYYY-MM" key for a zero-based month index.
func MonthKey(year, monthIndex int) string {
	return fmt.Sprintf("%04d-%02d", year, monthIndex+1)
}

// MonthLabel renders a month key as "March 2026". Input without a "-"
// separator, or with an unknown month number, is returned unchanged.
func MonthLabel(key string) string {
	year, name, ok := split(key)
	if !ok {
		return key
	}
	return name + " " + year
}

// MonthName renders a month key as its bare month name, with the same fallback as MonthLabel.
func MonthName(key string) string {
	_, name, ok := split(key)
	if !ok {
		return key
	}
	return name
}

func split(key string) (year, name string, ok bool) {
	year, mm, found := strings.Cut(key, "-")
	if !found {
		return "", "", false
	}
	n, err := strconv.Atoi(mm)
	if err != nil || n < 1 || n > 12 {
		return "", "", false
	}
	return year, MonthNames[n-1], true
}

// ParseMonthKey parses a strict "YYYY-MM" key into year and zero-based month.
func ParseMonthKey(key string) (year, monthIndex int, err error) {
	if len(key) != 7 || key[4] != '-' {
		return 0, 0, fmt.Errorf("month %q: want YYYY-MM", key)
	}
	year, err = strconv.Atoi(key[:4])
	if err != nil {
		return 0, 0, fmt.Errorf("month %q: bad year", key)
	}
	m, err := strconv.Atoi(key[5:])
	if err != nil || m < 1 || m > 12 {
		return 0, 0, fmt.Errorf("month %q: bad month", key)
	}
	return year, m - 1, nil
}

// YearOf returns the year prefix of a month key or date string.
func YearOf(key string) string {
	year, _, _ := strings.Cut(key, "-")
	return year
}
