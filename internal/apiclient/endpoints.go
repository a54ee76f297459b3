package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tutoring/internal/calendar"
	"tutoring/internal/marks"
	"tutoring/internal/model"
)

// LoginResult is the response of Login.
type LoginResult struct {
	AccessToken string               `json:"accessToken"`
	ExpiresAt   time.Time            `json:"expiresAt"`
	User        model.StudentProfile `json:"user"`
}

// Dashboard is the combined per-student aggregate.
type Dashboard struct {
	Student     model.StudentProfile     `json:"student"`
	Notices     []model.Notice           `json:"notices"`
	Fees        []model.FeeRecord        `json:"fees"`
	Marks       []model.MarkRecord       `json:"marks"`
	Attendance  []model.AttendanceRecord `json:"attendance"`
	Timetable   []model.TimetableRow     `json:"timetable"`
	Calendar    []calendar.Day           `json:"calendar"`
	MarksSeries []marks.Point            `json:"marksSeries"`
	Year        int                      `json:"year"`
	Month       string                   `json:"month"`
}

// ProfileInput is a partial profile update; nil fields are left unchanged.
type ProfileInput struct {
	FullName   *string `json:"fullName,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	SchoolName *string `json:"schoolName,omitempty"`
	ClassID    *string `json:"classId,omitempty"`
	Password   *string `json:"password,omitempty"`
}

// StudentInput creates a student account.
type StudentInput struct {
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	StudentID  string `json:"studentId"`
	ClassID    string `json:"classId"`
	Phone      string `json:"phone,omitempty"`
	SchoolName string `json:"schoolName,omitempty"`
}

// MarkInput creates a mark, or updates one when MarkID is set.
type MarkInput struct {
	MarkID   string  `json:"markId,omitempty"`
	Month    string  `json:"month"`
	Title    string  `json:"title"`
	Marks    float64 `json:"marks"`
	MaxMarks float64 `json:"maxMarks"`
}

// NoticeInput creates a notice.
type NoticeInput struct {
	Grade     string     `json:"grade"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// TimetableInput creates or replaces a timetable row.
type TimetableInput struct {
	Grade     string `json:"grade"`
	Day       string `json:"day"`
	Time      string `json:"time"`
	ClassType string `json:"classType"`
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult
	err := c.do(ctx, Session{}, http.MethodPost, "/api/auth/login", nil,
		map[string]string{"email": email, "password": password}, &out)
	return out, err
}

// Dashboard fetches the combined aggregate. An empty studentID means the signed-in student.
func (c *Client) Dashboard(ctx context.Context, sess Session, studentID string, year int, month string) (Dashboard, error) {
	var out Dashboard
	q := url.Values{"year": {strconv.Itoa(year)}, "month": {month}}
	err := c.do(ctx, sess, http.MethodGet, studentPath(studentID, "/dashboard", "/api/students/me/dashboard"), q, nil, &out)
	return out, err
}

// Profile returns the signed-in student's profile.
func (c *Client) Profile(ctx context.Context, sess Session) (model.StudentProfile, error) {
	var out model.StudentProfile
	err := c.do(ctx, sess, http.MethodGet, "/api/students/me", nil, nil, &out)
	return out, err
}

// UpdateProfile edits a profile. An empty studentID updates the signed-in student.
func (c *Client) UpdateProfile(ctx context.Context, sess Session, studentID string, in ProfileInput) (model.StudentProfile, error) {
	var out model.StudentProfile
	err := c.do(ctx, sess, http.MethodPut, studentPath(studentID, "/profile", "/api/students/me"), nil, in, &out)
	return out, err
}

// Attendance lists the records of a month.
func (c *Client) Attendance(ctx context.Context, sess Session, studentID, month string) ([]model.AttendanceRecord, error) {
	var out struct {
		Records []model.AttendanceRecord `json:"records"`
	}
	q := url.Values{"month": {month}}
	err := c.do(ctx, sess, http.MethodGet, studentPath(studentID, "/attendance", "/api/attendance/me"), q, nil, &out)
	return out.Records, err
}

// UpsertAttendance records a status for a date.
func (c *Client) UpsertAttendance(ctx context.Context, sess Session, studentID, date string, status model.AttendanceStatus) error {
	return c.do(ctx, sess, http.MethodPost, studentPath(studentID, "/attendance", ""), nil,
		map[string]string{"date": date, "status": string(status)}, nil)
}

// DeleteAttendance clears the record of a date.
func (c *Client) DeleteAttendance(ctx context.Context, sess Session, studentID, date string) error {
	return c.do(ctx, sess, http.MethodDelete, studentPath(studentID, "/attendance", ""), url.Values{"date": {date}}, nil, nil)
}

// Fees lists the fee records of a year.
func (c *Client) Fees(ctx context.Context, sess Session, studentID string, year int) ([]model.FeeRecord, error) {
	var out struct {
		Records []model.FeeRecord `json:"records"`
	}
	q := url.Values{"year": {strconv.Itoa(year)}}
	err := c.do(ctx, sess, http.MethodGet, studentPath(studentID, "/fees", "/api/fees/me"), q, nil, &out)
	return out.Records, err
}

// UpsertFee records the fee status of a month. An empty paidDate is sent as null.
func (c *Client) UpsertFee(ctx context.Context, sess Session, studentID, month string, status model.FeeStatus, paidDate string) error {
	body := struct {
		Month    string          `json:"month"`
		Status   model.FeeStatus `json:"status"`
		PaidDate *string         `json:"paidDate"`
	}{Month: month, Status: status}
	if paidDate != "" {
		body.PaidDate = &paidDate
	}
	return c.do(ctx, sess, http.MethodPost, studentPath(studentID, "/fees", ""), nil, body, nil)
}

// DeleteFee clears the fee record of a month.
func (c *Client) DeleteFee(ctx context.Context, sess Session, studentID, month string) error {
	return c.do(ctx, sess, http.MethodDelete, studentPath(studentID, "/fees", ""), url.Values{"month": {month}}, nil, nil)
}

// Marks lists the signed-in student's marks.
func (c *Client) Marks(ctx context.Context, sess Session) ([]model.MarkRecord, error) {
	var out struct {
		Marks []model.MarkRecord `json:"marks"`
	}
	err := c.do(ctx, sess, http.MethodGet, "/api/marks/me", nil, nil, &out)
	return out.Marks, err
}

// SaveMark creates or updates a mark.
func (c *Client) SaveMark(ctx context.Context, sess Session, studentID string, in MarkInput) (model.MarkRecord, error) {
	var out model.MarkRecord
	err := c.do(ctx, sess, http.MethodPost, studentPath(studentID, "/marks", ""), nil, in, &out)
	return out, err
}

// DeleteMark removes a mark.
func (c *Client) DeleteMark(ctx context.Context, sess Session, markID string) error {
	return c.do(ctx, sess, http.MethodDelete, "/api/admin/students/marks/"+url.PathEscape(markID), nil, nil, nil)
}

// MyNotices returns the signed-in student's visible notices.
func (c *Client) MyNotices(ctx context.Context, sess Session) ([]model.Notice, error) {
	var out struct {
		Notices []model.Notice `json:"notices"`
	}
	err := c.do(ctx, sess, http.MethodGet, "/api/notices/me", nil, nil, &out)
	return out.Notices, err
}

// Notices lists notices for administration; an empty grade lists all.
func (c *Client) Notices(ctx context.Context, sess Session, grade string) ([]model.Notice, error) {
	var out struct {
		Notices []model.Notice `json:"notices"`
	}
	var q url.Values
	if grade != "" {
		q = url.Values{"grade": {grade}}
	}
	err := c.do(ctx, sess, http.MethodGet, "/api/notices", q, nil, &out)
	return out.Notices, err
}

// CreateNotice publishes a notice.
func (c *Client) CreateNotice(ctx context.Context, sess Session, in NoticeInput) (model.Notice, error) {
	var out model.Notice
	err := c.do(ctx, sess, http.MethodPost, "/api/admin/students/notices", nil, in, &out)
	return out, err
}

// DeleteNotice removes a notice.
func (c *Client) DeleteNotice(ctx context.Context, sess Session, id string) error {
	return c.do(ctx, sess, http.MethodDelete, "/api/admin/students/notices/"+url.PathEscape(id), nil, nil, nil)
}

// Timetable returns every row, sorted.
func (c *Client) Timetable(ctx context.Context) ([]model.TimetableRow, error) {
	var out struct {
		Timetable []model.TimetableRow `json:"timetable"`
	}
	err := c.do(ctx, Session{}, http.MethodGet, "/api/timetable", nil, nil, &out)
	return out.Timetable, err
}

// MyTimetable returns the signed-in student's grade rows.
func (c *Client) MyTimetable(ctx context.Context, sess Session) ([]model.TimetableRow, error) {
	var out struct {
		Timetable []model.TimetableRow `json:"timetable"`
	}
	err := c.do(ctx, sess, http.MethodGet, "/api/timetable/my-class", nil, nil, &out)
	return out.Timetable, err
}

// CreateTimetableRow adds a row.
func (c *Client) CreateTimetableRow(ctx context.Context, sess Session, in TimetableInput) (model.TimetableRow, error) {
	var out model.TimetableRow
	err := c.do(ctx, sess, http.MethodPost, "/api/timetable", nil, in, &out)
	return out, err
}

// UpdateTimetableRow replaces a row.
func (c *Client) UpdateTimetableRow(ctx context.Context, sess Session, id string, in TimetableInput) (model.TimetableRow, error) {
	var out model.TimetableRow
	err := c.do(ctx, sess, http.MethodPut, "/api/timetable/"+url.PathEscape(id), nil, in, &out)
	return out, err
}

// DeleteTimetableRow removes a row.
func (c *Client) DeleteTimetableRow(ctx context.Context, sess Session, id string) error {
	return c.do(ctx, sess, http.MethodDelete, "/api/timetable/"+url.PathEscape(id), nil, nil, nil)
}

// CreateStudent adds a student account.
func (c *Client) CreateStudent(ctx context.Context, sess Session, in StudentInput) (model.StudentProfile, error) {
	var out model.StudentProfile
	err := c.do(ctx, sess, http.MethodPost, "/api/students", nil, in, &out)
	return out, err
}

// Students lists students by grade, free-text query and creation year. Zero values match all.
func (c *Client) Students(ctx context.Context, sess Session, grade, query string, year int) ([]model.StudentProfile, error) {
	var out struct {
		Students []model.StudentProfile `json:"students"`
	}
	q := url.Values{}
	if grade != "" {
		q.Set("grade", grade)
	}
	if query != "" {
		q.Set("q", query)
	}
	if year > 0 {
		q.Set("year", strconv.Itoa(year))
	}
	err := c.do(ctx, sess, http.MethodGet, "/api/admin/students", q, nil, &out)
	return out.Students, err
}

// Activity returns a student's recent change events.
func (c *Client) Activity(ctx context.Context, sess Session, studentID string, limit int) ([]model.Activity, error) {
	var out struct {
		Activity []model.Activity `json:"activity"`
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	err := c.do(ctx, sess, http.MethodGet, studentPath(studentID, "/activity", ""), q, nil, &out)
	return out.Activity, err
}
