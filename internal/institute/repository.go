package institute

import (
	"context"
	"errors"
	"time"

	"tutoring/internal/model"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrInvalid            = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// InputError carries a human-readable validation message and matches ErrInvalid.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

// Is lets errors.Is(err, ErrInvalid) match.
func (e *InputError) Is(target error) bool { return target == ErrInvalid }

func invalid(msg string) error { return &InputError{Msg: msg} }

// ProfileChanges lists the profile fields to overwrite; nil means unchanged.
type ProfileChanges struct {
	FullName     *string
	Phone        *string
	SchoolName   *string
	ClassID      *string
	PasswordHash *string
}

// StudentFilter narrows the admin student list. Zero values match everything.
type StudentFilter struct {
	Grade string
	Query string
	Year  int
}

// Repository is the persistence contract shared by the Postgres and in-memory stores.
type Repository interface {
	CreateAccount(ctx context.Context, acc model.Account) (model.Account, error)
	AccountByEmail(ctx context.Context, email string) (model.Account, error)
	AccountByID(ctx context.Context, id string) (model.Account, error)
	UpdateProfile(ctx context.Context, id string, ch ProfileChanges) (model.StudentProfile, error)
	ListStudents(ctx context.Context, f StudentFilter) ([]model.StudentProfile, error)

	UpsertAttendance(ctx context.Context, rec model.AttendanceRecord) error
	DeleteAttendance(ctx context.Context, studentID, date string) error
	ListAttendance(ctx context.Context, studentID, month string) ([]model.AttendanceRecord, error)

	UpsertFee(ctx context.Context, rec model.FeeRecord) error
	DeleteFee(ctx context.Context, studentID, month string) error
	ListFees(ctx context.Context, studentID, year string) ([]model.FeeRecord, error)

	InsertMark(ctx context.Context, m model.MarkRecord) (model.MarkRecord, error)
	UpdateMark(ctx context.Context, m model.MarkRecord) error
	GetMark(ctx context.Context, id string) (model.MarkRecord, error)
	DeleteMark(ctx context.Context, id string) error
	ListMarks(ctx context.Context, studentID string) ([]model.MarkRecord, error)

	InsertNotice(ctx context.Context, n model.Notice) (model.Notice, error)
	DeleteNotice(ctx context.Context, id string) error
	ListNotices(ctx context.Context, grades []string) ([]model.Notice, error)
	DeleteExpiredNotices(ctx context.Context, now time.Time) (int64, error)

	ListTimetable(ctx context.Context) ([]model.TimetableRow, error)
	InsertTimetableRow(ctx context.Context, row model.TimetableRow) (model.TimetableRow, error)
	UpdateTimetableRow(ctx context.Context, row model.TimetableRow) error
	DeleteTimetableRow(ctx context.Context, id string) error

	InsertActivity(ctx context.Context, a model.Activity) error
	ListActivity(ctx context.Context, studentID string, limit int) ([]model.Activity, error)
}
