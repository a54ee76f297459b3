package institute

import (
	"context"
	"strconv"

	"tutoring/internal/calendar"
	"tutoring/internal/marks"
	"tutoring/internal/model"
	"tutoring/internal/timetable"
)

// Dashboard is the combined per-student aggregate for one year and month.
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

// Dashboard assembles profile, notices, fees of year, marks, attendance of
// month and the grade's timetable, plus the derived calendar and marks series.
// withExpired includes expired notices, for the admin view.
func (s *Service) Dashboard(ctx context.Context, studentID string, year int, month string, withExpired bool) (Dashboard, error) {
	y, m, err := calendar.ParseMonthKey(month)
	if err != nil {
		return Dashboard{}, invalid("month must be YYYY-MM")
	}
	if year <= 0 {
		year = y
	}

	student, err := s.Student(ctx, studentID)
	if err != nil {
		return Dashboard{}, err
	}
	d := Dashboard{Student: student, Year: year, Month: month}

	if withExpired {
		d.Notices, err = s.repo.ListNotices(ctx, []string{student.ClassID, model.GradeAll})
	} else {
		d.Notices, err = s.VisibleNotices(ctx, student.ClassID)
	}
	if err != nil {
		return Dashboard{}, err
	}
	if d.Fees, err = s.Fees(ctx, studentID, strconv.Itoa(year)); err != nil {
		return Dashboard{}, err
	}
	if d.Marks, err = s.Marks(ctx, studentID); err != nil {
		return Dashboard{}, err
	}
	if d.Attendance, err = s.Attendance(ctx, studentID, month); err != nil {
		return Dashboard{}, err
	}
	if d.Timetable, err = s.TimetableFor(ctx, student.ClassID); err != nil {
		return Dashboard{}, err
	}

	d.Calendar = calendar.Build(y, m, timetable.ClassDays(d.Timetable, student.ClassID), calendar.IndexByDate(d.Attendance))
	d.MarksSeries = marks.Series(d.Marks, year)
	return d, nil
}
