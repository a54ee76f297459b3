package model

import (
	"regexp"
	"strings"
	"time"
)

// Role of an authenticated account.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleStudent Role = "STUDENT"
)

// GradeAll is the notice grade visible to every student.
const GradeAll = "ALL"

// Grades is the fixed grade ordering used by the timetable and the admin filters.
var Grades = []string{"Grade 6", "Grade 7", "Grade 8", "Grade 9", "Grade 10", "Grade 11"}

// Weekdays is the fixed Monday-first weekday ordering.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// ClassTypes offered in the timetable editor.
var ClassTypes = []string{"Theory & Paper", "Theory", "Paper"}

// StudentProfile is a student account as shown on the dashboards.
type StudentProfile struct {
	ID         string    `json:"id"`
	FullName   string    `json:"fullName"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	StudentID  string    `json:"studentId"`
	ClassID    string    `json:"classId"`
	Phone      string    `json:"phone"`
	SchoolName string    `json:"schoolName"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Account is a profile plus its credential hash; never serialized to clients.
type Account struct {
	StudentProfile
	PasswordHash string `json:"-"`
}

// AttendanceStatus is the recorded state of a student on a date.
type AttendanceStatus string

const (
	Present  AttendanceStatus = "PRESENT"
	Absent   AttendanceStatus = "ABSENT"
	Late     AttendanceStatus = "LATE"
	Excused  AttendanceStatus = "EXCUSED"
	Unmarked AttendanceStatus = "UNMARKED"
)

// Valid reports whether s is one of the storable statuses. UNMARKED is derived, not stored.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case Present, Absent, Late, Excused:
		return true
	}
	return false
}

// AttendanceRecord is unique per (StudentID, Date).
type AttendanceRecord struct {
	StudentID string           `json:"studentId"`
	Date      string           `json:"date"`
	Status    AttendanceStatus `json:"status"`
}

// FeeStatus is the manually recorded fee state for a month.
type FeeStatus string

const (
	FeePaid    FeeStatus = "PAID"
	FeePending FeeStatus = "PENDING"
	FeeAbsent  FeeStatus = "ABSENT"
)

// Valid reports whether s is a known fee status.
func (s FeeStatus) Valid() bool {
	switch s {
	case FeePaid, FeePending, FeeAbsent:
		return true
	}
	return false
}

// FeeRecord is unique per (StudentID, Month).
type FeeRecord struct {
	StudentID string    `json:"studentId"`
	Month     string    `json:"month"`
	Status    FeeStatus `json:"status"`
	PaidDate  *string   `json:"paidDate,omitempty"`
}

// MarkRecord is one exam result; several may share a month.
type MarkRecord struct {
	ID        string    `json:"id"`
	StudentID string    `json:"studentId"`
	Month     string    `json:"month"`
	Title     string    `json:"title"`
	Marks     float64   `json:"marks"`
	MaxMarks  float64   `json:"maxMarks"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notice is an announcement scoped to a grade or to GradeAll.
type Notice struct {
	ID        string     `json:"id"`
	Grade     string     `json:"grade"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	CreatedBy string     `json:"createdBy,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// VisibleTo reports whether a student of grade sees n at instant now.
func (n Notice) VisibleTo(grade string, now time.Time) bool {
	if n.Grade != grade && n.Grade != GradeAll {
		return false
	}
	return n.ExpiresAt == nil || n.ExpiresAt.After(now)
}

// TimetableRow is one scheduled session of a grade.
type TimetableRow struct {
	ID        string `json:"id"`
	Grade     string `json:"grade"`
	Day       string `json:"day"`
	Time      string `json:"time"`
	ClassType string `json:"classType"`
}

// Activity is a change event recorded by the worker for the admin console.
type Activity struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"studentId"`
	Entity     string    `json:"entity"`
	Action     string    `json:"action"`
	Period     string    `json:"period,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NormalizeEmail lower-cases and trims an email for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PhonePattern is the accepted local mobile format, 07XXXXXXXX.
var PhonePattern = regexp.MustCompile(`^07\d{8}$`)

// ValidPhone reports whether phone matches PhonePattern.
func ValidPhone(phone string) bool {
	return PhonePattern.MatchString(phone)
}
