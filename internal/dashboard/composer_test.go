package dashboard

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutoring/internal/apiclient"
	"tutoring/internal/model"
)

type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	dashboardErr error
	writeErr     error
	feesHook     func(year int) ([]model.FeeRecord, error)
	attHook      func(month string) ([]model.AttendanceRecord, error)

	marks  []model.MarkRecord
	writes []string
}

func newFake() *fakeAPI {
	return &fakeAPI{
		calls: map[string]int{},
		marks: []model.MarkRecord{
			{ID: "m1", StudentID: "s1", Month: "2026-01", Title: "Quiz", Marks: 80, MaxMarks: 100},
			{ID: "m2", StudentID: "s1", Month: "2026-01", Title: "Test", Marks: 90, MaxMarks: 100},
		},
	}
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeAPI) Dashboard(_ context.Context, _ apiclient.Session, studentID string, year int, month string) (apiclient.Dashboard, error) {
	f.hit("dashboard")
	if f.dashboardErr != nil {
		return apiclient.Dashboard{}, f.dashboardErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return apiclient.Dashboard{
		Student:    model.StudentProfile{ID: "s1", FullName: "Nimal", ClassID: "Grade 9", Role: model.RoleStudent},
		Notices:    []model.Notice{{ID: "n1", Grade: "Grade 9", Title: "Exam"}},
		Fees:       []model.FeeRecord{{StudentID: "s1", Month: monthOf(year, 1), Status: model.FeePaid}},
		Marks:      append([]model.MarkRecord(nil), f.marks...),
		Attendance: []model.AttendanceRecord{{StudentID: "s1", Date: month + "-04", Status: model.Present}},
		Timetable: []model.TimetableRow{
			{ID: "t2", Grade: "Grade 9", Day: "Wednesday", Time: "4:00 PM", ClassType: "Theory"},
			{ID: "t1", Grade: "Grade 9", Day: "Monday", Time: "8:00 AM", ClassType: "Paper"},
		},
		Year:  year,
		Month: month,
	}, nil
}

func monthOf(year, m int) string {
	return time.Date(year, time.Month(m), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

func (f *fakeAPI) Fees(_ context.Context, _ apiclient.Session, _ string, year int) ([]model.FeeRecord, error) {
	f.hit("fees")
	if f.feesHook != nil {
		return f.feesHook(year)
	}
	return []model.FeeRecord{{StudentID: "s1", Month: monthOf(year, 2), Status: model.FeePending}}, nil
}

func (f *fakeAPI) Attendance(_ context.Context, _ apiclient.Session, _ string, month string) ([]model.AttendanceRecord, error) {
	f.hit("attendance")
	if f.attHook != nil {
		return f.attHook(month)
	}
	return []model.AttendanceRecord{{StudentID: "s1", Date: month + "-02", Status: model.Absent}}, nil
}

func (f *fakeAPI) write(name string) error {
	f.hit(name)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, name)
	return f.writeErr
}

func (f *fakeAPI) UpdateProfile(context.Context, apiclient.Session, string, apiclient.ProfileInput) (model.StudentProfile, error) {
	return model.StudentProfile{}, f.write("profile")
}

func (f *fakeAPI) UpsertAttendance(context.Context, apiclient.Session, string, string, model.AttendanceStatus) error {
	return f.write("upsertAttendance")
}

func (f *fakeAPI) DeleteAttendance(context.Context, apiclient.Session, string, string) error {
	return f.write("deleteAttendance")
}

func (f *fakeAPI) UpsertFee(context.Context, apiclient.Session, string, string, model.FeeStatus, string) error {
	return f.write("upsertFee")
}

func (f *fakeAPI) DeleteFee(context.Context, apiclient.Session, string, string) error {
	return f.write("deleteFee")
}

func (f *fakeAPI) SaveMark(_ context.Context, _ apiclient.Session, sid string, in apiclient.MarkInput) (model.MarkRecord, error) {
	if err := f.write("saveMark"); err != nil {
		return model.MarkRecord{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m := model.MarkRecord{ID: "m3", StudentID: sid, Month: in.Month, Title: in.Title, Marks: in.Marks, MaxMarks: in.MaxMarks}
	f.marks = append(f.marks, m)
	return m, nil
}

func (f *fakeAPI) DeleteMark(context.Context, apiclient.Session, string) error {
	return f.write("deleteMark")
}

func (f *fakeAPI) CreateNotice(_ context.Context, _ apiclient.Session, in apiclient.NoticeInput) (model.Notice, error) {
	f.mu.Lock()
	f.writes = append(f.writes, "notice:"+in.Grade)
	f.mu.Unlock()
	return model.Notice{}, f.write("createNotice")
}

func (f *fakeAPI) DeleteNotice(context.Context, apiclient.Session, string) error {
	return f.write("deleteNotice")
}

var sess = apiclient.Session{Token: "t"}

func openMarch(t *testing.T, f *fakeAPI) *Composer {
	t.Helper()
	c := New(f, f)
	require.NoError(t, c.Open(context.Background(), sess, "s1", 2026, 2))
	return c
}

func TestOpenIssuesOneCombinedFetch(t *testing.T) {
	f := newFake()
	c := New(f, f)
	assert.Equal(t, Idle, c.View().State)

	require.NoError(t, c.Open(context.Background(), sess, "s1", 2026, 2))
	assert.Equal(t, 1, f.count("dashboard"))
	assert.Zero(t, f.count("fees"))
	assert.Zero(t, f.count("attendance"))

	v := c.View()
	assert.Equal(t, Ready, v.State)
	assert.Equal(t, "March 2026", v.MonthLabel)
	assert.Len(t, v.Calendar, 31)
	require.Len(t, v.Timetable, 2)
	assert.Equal(t, "Monday", v.Timetable[0].Day)
	require.Len(t, v.MarksSeries, 12)
	require.NotNil(t, v.MarksSeries[0].Value)
	assert.Equal(t, 85, *v.MarksSeries[0].Value)
	assert.Nil(t, v.MarksSeries[1].Value)

	// 2026-03-04 is a Wednesday; 2026-03-02 a Monday with no record.
	assert.True(t, v.Calendar[3].IsClassDay)
	assert.Equal(t, model.Present, v.Calendar[3].Status)
	assert.True(t, v.Calendar[1].IsClassDay)
	assert.Equal(t, model.Unmarked, v.Calendar[1].Status)
	assert.False(t, v.Calendar[2].IsClassDay)
}

func TestYearChangeFetchesOnlyFees(t *testing.T) {
	f := newFake()
	c := openMarch(t, f)

	require.NoError(t, c.SetYear(context.Background(), sess, 2025))
	assert.Equal(t, 1, f.count("dashboard"))
	assert.Equal(t, 1, f.count("fees"))
	assert.Zero(t, f.count("attendance"))

	v := c.View()
	assert.Equal(t, Ready, v.State)
	assert.Equal(t, 2025, v.Year)
	require.Len(t, v.Fees, 1)
	assert.Equal(t, "2025-02", v.Fees[0].Month)
	assert.Len(t, v.Notices, 1, "other sections stay loaded")
	assert.Nil(t, v.MarksSeries[0].Value, "no 2025 marks")

	require.NoError(t, c.SetYear(context.Background(), sess, 2025))
	assert.Equal(t, 1, f.count("fees"), "same year is a no-op")
}

func TestMonthChangeFetchesOnlyAttendance(t *testing.T) {
	f := newFake()
	c := openMarch(t, f)

	require.NoError(t, c.SetMonth(context.Background(), sess, 1))
	assert.Equal(t, 1, f.count("attendance"))
	assert.Zero(t, f.count("fees"))

	v := c.View()
	assert.Equal(t, "February 2026", v.MonthLabel)
	assert.Len(t, v.Calendar, 28)
	assert.Equal(t, model.Absent, v.Calendar[1].Status)
	assert.Equal(t, 2026, v.Year)
}

func TestMonthNavigationWrapsYear(t *testing.T) {
	f := newFake()
	c := New(f, f)
	ctx := context.Background()
	require.NoError(t, c.Open(ctx, sess, "s1", 2026, 0))

	require.NoError(t, c.PrevMonth(ctx, sess))
	v := c.View()
	assert.Equal(t, 2025, v.Cursor.Year)
	assert.Equal(t, 11, v.Cursor.Month)
	assert.Equal(t, 2025, v.Year)
	assert.Equal(t, 1, f.count("attendance"))
	assert.Equal(t, 1, f.count("fees"))

	require.NoError(t, c.NextMonth(ctx, sess))
	v = c.View()
	assert.Equal(t, 2026, v.Cursor.Year)
	assert.Equal(t, 0, v.Cursor.Month)
	assert.Equal(t, 2, f.count("attendance"))
	assert.Equal(t, 2, f.count("fees"))

	require.NoError(t, c.NextMonth(ctx, sess))
	assert.Equal(t, 3, f.count("attendance"))
	assert.Equal(t, 2, f.count("fees"), "no wrap, no fee fetch")
}

func TestStaleFeesResponseIsDiscarded(t *testing.T) {
	f := newFake()
	c := openMarch(t, f)
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan struct{})
	f.feesHook = func(year int) ([]model.FeeRecord, error) {
		if year == 2025 {
			close(started)
			<-release
		}
		return []model.FeeRecord{{Month: monthOf(year, 1), Status: model.FeePaid}}, nil
	}

	done := make(chan error, 1)
	go func() { done <- c.SetYear(ctx, sess, 2025) }()
	<-started
	assert.Equal(t, Refreshing, c.View().State)

	require.NoError(t, c.SetYear(ctx, sess, 2024))
	close(release)
	require.NoError(t, <-done)

	v := c.View()
	assert.Equal(t, Ready, v.State)
	assert.Equal(t, 2024, v.Year)
	require.Len(t, v.Fees, 1)
	assert.Equal(t, "2024-01", v.Fees[0].Month)
}

func TestStaleAttendanceDoesNotOverwriteNewerMonth(t *testing.T) {
	f := newFake()
	c := openMarch(t, f)
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan struct{})
	f.attHook = func(month string) ([]model.AttendanceRecord, error) {
		if month == "2026-04" {
			close(started)
			<-release
		}
		return []model.AttendanceRecord{{Date: month + "-01", Status: model.Late}}, nil
	}

	done := make(chan error, 1)
	go func() { done <- c.NextMonth(ctx, sess) }()
	<-started
	require.NoError(t, c.SetMonth(ctx, sess, 5))
	close(release)
	require.NoError(t, <-done)

	v := c.View()
	assert.Equal(t, "June 2026", v.MonthLabel)
	require.Len(t, v.Attendance, 1)
	assert.Equal(t, "2026-06-01", v.Attendance[0].Date)
	assert.Equal(t, model.Late, v.Calendar[0].Status)
}

func TestLoadFailureShowsGenericMessage(t *testing.T) {
	f := newFake()
	f.dashboardErr = errors.New("dial tcp 10.0.0.1:5000: connection refused")
	c := New(f, f)

	err := c.Open(context.Background(), sess, "s1", 2026, 2)
	var ae *ActionError
	require.ErrorAs(t, err, &ae)
	v := c.View()
	assert.Equal(t, Error, v.State)
	assert.Equal(t, "Failed to load dashboard", v.Err)
	assert.NotContains(t, v.Err, "connection refused")
	assert.False(t, v.NeedsLogin)
}

func TestUnauthorizedNeedsLogin(t *testing.T) {
	f := newFake()
	f.dashboardErr = &apiclient.Error{Status: http.StatusUnauthorized, Message: "Not authorized, token failed"}
	c := New(f, f)

	err := c.Open(context.Background(), sess, "s1", 2026, 2)
	require.Error(t, err)
	v := c.View()
	assert.True(t, v.NeedsLogin)
	assert.Equal(t, Error, v.State)
	assert.Equal(t, 1, f.count("dashboard"), "no retry")
}

func TestPartialFailureKeepsData(t *testing.T) {
	f := newFake()
	c := openMarch(t, f)
	f.feesHook = func(int) ([]model.FeeRecord, error) { return nil, errors.New("timeout") }

	require.Error(t, c.SetYear(context.Background(), sess, 2027))
	v := c.View()
	assert.Equal(t, Error, v.State)
	assert.Equal(t, "Failed to load fees", v.Err)
	assert.Len(t, v.Fees, 1, "previous fees remain")
	assert.Len(t, v.Calendar, 31)
}

func TestNavigationBeforeOpen(t *testing.T) {
	f := newFake()
	c := New(f, f)
	ctx := context.Background()
	assert.ErrorIs(t, c.SetYear(ctx, sess, 2025), ErrNotOpen)
	assert.ErrorIs(t, c.NextMonth(ctx, sess), ErrNotOpen)
	assert.ErrorIs(t, c.DeleteFee(ctx, sess, "2026-01"), ErrNotOpen)
	assert.ErrorIs(t, c.Reload(ctx, sess), ErrNotOpen)
}

func TestMutationRefetchesEverything(t *testing.T) {
	f := newFake()
	c := openMarch(t, f)
	ctx := context.Background()

	require.NoError(t, c.AddMark(ctx, sess, MarkForm{Month: "2026-02", Title: "Unit", Marks: 45, MaxMarks: 50}))
	assert.Equal(t, 1, f.count("saveMark"))
	assert.Equal(t, 2, f.count("dashboard"))

	v := c.View()
	assert.Equal(t, Ready, v.State)
	assert.Equal(t, "Mark added", v.Msg)
	assert.Len(t, v.Marks, 3)
	require.NotNil(t, v.MarksSeries[1].Value)
	assert.Equal(t, 90, *v.MarksSeries[1].Value)

	require.NoError(t, c.UpsertAttendance(ctx, sess, AttendanceForm{Date: "2026-03-05", Status: "late"}))
	require.NoError(t, c.UpsertFee(ctx, sess, FeeForm{Month: "2026-03", Status: model.FeePaid, PaidDate: "2026-03-01"}))
	require.NoError(t, c.DeleteAttendance(ctx, sess, "2026-03-05"))
	require.NoError(t, c.DeleteFee(ctx, sess, "2026-03"))
	require.NoError(t, c.UpdateMark(ctx, sess, MarkForm{ID: "m1", Month: "2026-01", Title: "Quiz", Marks: 70, MaxMarks: 100}))
	require.NoError(t, c.DeleteMark(ctx, sess, "m1"))
	require.NoError(t, c.DeleteNotice(ctx, sess, "n1"))
	require.NoError(t, c.UpdateProfile(ctx, sess, ProfileForm{FullName: "Nimal Perera", Phone: "0771234567"}))
	assert.Equal(t, 10, f.count("dashboard"))
}

func TestValidationFailureMakesNoCall(t *testing.T) {
	f := newFake()
	c := openMarch(t, f)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
		msg  string
	}{
		{"attendance without date", func() error {
			return c.UpsertAttendance(ctx, sess, AttendanceForm{Status: model.Present})
		}, "Pick a date"},
		{"attendance unmarked", func() error {
			return c.UpsertAttendance(ctx, sess, AttendanceForm{Date: "2026-03-01", Status: model.Unmarked})
		}, "Pick an attendance status"},
		{"fee bad month", func() error {
			return c.UpsertFee(ctx, sess, FeeForm{Month: "2026-13", Status: model.FeePaid})
		}, "Pick a month"},
		{"fee bad paid date", func() error {
			return c.UpsertFee(ctx, sess, FeeForm{Month: "2026-03", Status: model.FeePaid, PaidDate: "yesterday"})
		}, "Paid date must be a valid date"},
		{"mark without title", func() error {
			return c.AddMark(ctx, sess, MarkForm{Month: "2026-03", Title: "  ", Marks: 1, MaxMarks: 2})
		}, "Title is required"},
		{"mark zero max", func() error {
			return c.AddMark(ctx, sess, MarkForm{Month: "2026-03", Title: "Quiz", Marks: 1})
		}, "Max marks must be greater than zero"},
		{"update mark without id", func() error {
			return c.UpdateMark(ctx, sess, MarkForm{Month: "2026-03", Title: "Quiz", Marks: 1, MaxMarks: 2})
		}, "Pick a mark to edit"},
		{"notice without message", func() error {
			return c.CreateNotice(ctx, sess, NoticeForm{Title: "Exam"})
		}, "Message is required"},
		{"profile bad phone", func() error {
			return c.UpdateProfile(ctx, sess, ProfileForm{FullName: "Nimal", Phone: "0123"})
		}, "Enter a valid phone number (ex: 07XXXXXXXX)"},
		{"profile short password", func() error {
			return c.UpdateProfile(ctx, sess, ProfileForm{FullName: "Nimal", Password: "123"})
		}, "Password must be at least 6 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			var ae *ActionError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.msg, ae.Message)
			assert.Equal(t, tt.msg, c.View().Err)
		})
	}
	assert.Empty(t, f.writes)
	assert.Equal(t, 1, f.count("dashboard"))
}

func TestWriteFailureIsScoped(t *testing.T) {
	f := newFake()
	c := openMarch(t, f)
	ctx := context.Background()

	f.writeErr = &apiclient.Error{Status: http.StatusBadRequest, Message: "status must be one of PAID, PENDING, ABSENT", FromServer: true}
	err := c.UpsertFee(ctx, sess, FeeForm{Month: "2026-03", Status: model.FeePaid})
	require.Error(t, err)
	v := c.View()
	assert.Equal(t, "status must be one of PAID, PENDING, ABSENT", v.Err)
	assert.Equal(t, Ready, v.State, "data still shown")
	assert.Equal(t, 1, f.count("dashboard"), "no refetch after a failed write")

	f.writeErr = errors.New("pq: relation does not exist")
	require.Error(t, c.DeleteNotice(ctx, sess, "n1"))
	assert.Equal(t, "Failed to delete notice", c.View().Err)
}

func TestNoticeGradeDefaultsToStudentGrade(t *testing.T) {
	f := newFake()
	c := openMarch(t, f)

	require.NoError(t, c.CreateNotice(context.Background(), sess, NoticeForm{Title: "Exam", Message: "Friday"}))
	assert.Contains(t, f.writes, "notice:Grade 9")
}

func TestNavigationAfterFailedOpenRetriesFullLoad(t *testing.T) {
	f := newFake()
	f.dashboardErr = errors.New("connection refused")
	c := New(f, f)
	ctx := context.Background()

	require.Error(t, c.Open(ctx, sess, "s1", 2026, 2))
	require.Equal(t, Error, c.View().State)

	require.Error(t, c.SetYear(ctx, sess, 2027))
	v := c.View()
	assert.Equal(t, Error, v.State)
	assert.Equal(t, "Failed to load dashboard", v.Err)
	assert.Empty(t, v.Student.ID)
	assert.Equal(t, 0, f.count("fees"), "no fee-only fetch without a loaded profile")

	require.Error(t, c.NextMonth(ctx, sess))
	assert.Equal(t, Error, c.View().State)
	assert.Equal(t, 0, f.count("attendance"))
	assert.Equal(t, 3, f.count("dashboard"))

	f.dashboardErr = nil
	require.NoError(t, c.NextMonth(ctx, sess))
	v = c.View()
	assert.Equal(t, Ready, v.State)
	assert.Equal(t, "s1", v.Student.ID)
	assert.Equal(t, 2027, v.Year)
	assert.Equal(t, "2026-05", v.Cursor.Key())
	assert.Equal(t, 4, f.count("dashboard"))

	require.NoError(t, c.SetYear(ctx, sess, 2026))
	assert.Equal(t, 1, f.count("fees"), "partial fetches resume once loaded")
	assert.Equal(t, 4, f.count("dashboard"))
}

func TestServerErrorMessageIsShown(t *testing.T) {
	f := newFake()
	c := openMarch(t, f)
	ctx := context.Background()

	f.writeErr = &apiclient.Error{Status: http.StatusInternalServerError, Message: "Student record is locked", FromServer: true}
	require.Error(t, c.DeleteFee(ctx, sess, "2026-03"))
	assert.Equal(t, "Student record is locked", c.View().Err)

	f.writeErr = &apiclient.Error{Status: http.StatusBadGateway, Message: "Bad Gateway"}
	require.Error(t, c.DeleteFee(ctx, sess, "2026-03"))
	assert.Equal(t, "Failed to delete fee", c.View().Err)
}
