package institute

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tutoring/internal/calendar"
	"tutoring/internal/metrics"
	"tutoring/internal/model"
	"tutoring/internal/queue"
	"tutoring/internal/timetable"
)

// Cache is a JSON read-through cache. store.Redis satisfies it.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// NopCache never hits.
type NopCache struct{}

func (NopCache) GetJSON(context.Context, string, any) (bool, error)        { return false, nil }
func (NopCache) SetJSON(context.Context, string, any, time.Duration) error { return nil }
func (NopCache) Del(context.Context, ...string) error                      { return nil }

// Publisher receives change events after successful writes.
type Publisher interface {
	Publish(ctx context.Context, c queue.Change) error
}

// Service coordinates persistence, caching and change events.
type Service struct {
	repo   Repository
	cache  Cache
	events Publisher
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates a service backed by a repository. cache and events may be nil.
func NewService(repo Repository, cache Cache, events Publisher, ttl time.Duration) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	if events == nil {
		events = queue.Discard{}
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Service{repo: repo, cache: cache, events: events, ttl: ttl, now: time.Now}
}

func feesKey(studentID, year string) string       { return "fees:" + studentID + ":" + year }
func attendanceKey(studentID, month string) string { return "attendance:" + studentID + ":" + month }

const timetableKey = "timetable:all"

func readThrough[T any](ctx context.Context, s *Service, entity, key string, load func() (T, error)) (T, error) {
	var v T
	found, err := s.cache.GetJSON(ctx, key, &v)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues(entity, "error").Inc()
		log.Printf("cache get %s: %v", key, err)
	case found:
		metrics.CacheLookups.WithLabelValues(entity, "hit").Inc()
		return v, nil
	default:
		metrics.CacheLookups.WithLabelValues(entity, "miss").Inc()
	}

	v, err = load()
	if err != nil {
		return v, err
	}
	if err := s.cache.SetJSON(ctx, key, v, s.ttl); err != nil {
		log.Printf("cache set %s: %v", key, err)
	}
	return v, nil
}

func (s *Service) evict(ctx context.Context, keys ...string) {
	if err := s.cache.Del(ctx, keys...); err != nil {
		log.Printf("cache evict %v: %v", keys, err)
	}
}

func (s *Service) publish(ctx context.Context, studentID, entity, action, period string) {
	c := queue.Change{StudentID: studentID, Entity: entity, Action: action, Period: period, OccurredAt: s.now().UTC()}
	if err := s.events.Publish(ctx, c); err != nil {
		log.Printf("publish %s.%s for %s: %v", entity, action, studentID, err)
	}
}

// ---------- Accounts ----------

// NewStudent is the input for creating a student account.
type NewStudent struct {
	FullName   string `validate:"min=2"`
	Email      string `validate:"required,email"`
	Password   string `validate:"min=6"`
	StudentID  string `validate:"min=2"`
	ClassID    string `validate:"omitempty,min=3"`
	Phone      string `validate:"omitempty,phone"`
	SchoolName string
}

// Authenticate checks credentials and returns the account profile.
func (s *Service) Authenticate(ctx context.Context, email, password string) (model.StudentProfile, error) {
	acc, err := s.repo.AccountByEmail(ctx, model.NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return model.StudentProfile{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.StudentProfile{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
		return model.StudentProfile{}, ErrInvalidCredentials
	}
	return acc.StudentProfile, nil
}

// CreateStudent validates and stores a new student account.
func (s *Service) CreateStudent(ctx context.Context, in NewStudent) (model.StudentProfile, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = model.NormalizeEmail(in.Email)
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.ClassID = strings.TrimSpace(in.ClassID)
	if err := checkInput(in); err != nil {
		return model.StudentProfile{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.StudentProfile{}, fmt.Errorf("hash password: %w", err)
	}
	acc, err := s.repo.CreateAccount(ctx, model.Account{
		StudentProfile: model.StudentProfile{
			FullName:   in.FullName,
			Email:      in.Email,
			Role:       model.RoleStudent,
			StudentID:  in.StudentID,
			ClassID:    in.ClassID,
			Phone:      in.Phone,
			SchoolName: in.SchoolName,
		},
		PasswordHash: string(hash),
	})
	if err != nil {
		return model.StudentProfile{}, err
	}
	s.publish(ctx, acc.ID, "profile", "create", "")
	return acc.StudentProfile, nil
}

// EnsureAdmin creates the admin account unless the email is already taken.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) (model.StudentProfile, bool, error) {
	email = model.NormalizeEmail(email)
	if acc, err := s.repo.AccountByEmail(ctx, email); err == nil {
		return acc.StudentProfile, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return model.StudentProfile{}, false, err
	}
	if len(password) < 6 {
		return model.StudentProfile{}, false, invalid("admin password must be at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.StudentProfile{}, false, fmt.Errorf("hash password: %w", err)
	}
	acc, err := s.repo.CreateAccount(ctx, model.Account{
		StudentProfile: model.StudentProfile{FullName: name, Email: email, Role: model.RoleAdmin},
		PasswordHash:   string(hash),
	})
	if err != nil {
		return model.StudentProfile{}, false, err
	}
	return acc.StudentProfile, true, nil
}

// Student returns a student profile; admins and unknown ids are ErrNotFound.
func (s *Service) Student(ctx context.Context, id string) (model.StudentProfile, error) {
	acc, err := s.repo.AccountByID(ctx, id)
	if err != nil {
		return model.StudentProfile{}, err
	}
	if acc.Role != model.RoleStudent {
		return model.StudentProfile{}, ErrNotFound
	}
	return acc.StudentProfile, nil
}

// Students lists student profiles matching f.
func (s *Service) Students(ctx context.Context, f StudentFilter) ([]model.StudentProfile, error) {
	return s.repo.ListStudents(ctx, f)
}

// ProfileUpdate holds optional profile edits; Password is plain text and an
// empty one leaves the password unchanged.
type ProfileUpdate struct {
	FullName   *string `validate:"omitempty,min=2"`
	Phone      *string `validate:"omitempty,phone"`
	SchoolName *string
	ClassID    *string `validate:"omitempty,min=3"`
	Password   *string `validate:"omitempty,min=6"`
}

// UpdateStudent applies a profile update to a student account.
func (s *Service) UpdateStudent(ctx context.Context, id string, u ProfileUpdate) (model.StudentProfile, error) {
	if _, err := s.Student(ctx, id); err != nil {
		return model.StudentProfile{}, err
	}
	if u.FullName != nil {
		name := strings.TrimSpace(*u.FullName)
		u.FullName = &name
	}
	if u.Password != nil && *u.Password == "" {
		u.Password = nil
	}
	if err := checkInput(u); err != nil {
		return model.StudentProfile{}, err
	}
	ch := ProfileChanges{FullName: u.FullName, Phone: u.Phone, SchoolName: u.SchoolName, ClassID: u.ClassID}
	if u.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*u.Password), bcrypt.DefaultCost)
		if err != nil {
			return model.StudentProfile{}, fmt.Errorf("hash password: %w", err)
		}
		h := string(hash)
		ch.PasswordHash = &h
	}
	p, err := s.repo.UpdateProfile(ctx, id, ch)
	if err != nil {
		return model.StudentProfile{}, err
	}
	s.publish(ctx, id, "profile", "update", "")
	return p, nil
}

// ---------- Attendance ----------

// Attendance returns a student's records for a month key.
func (s *Service) Attendance(ctx context.Context, studentID, month string) ([]model.AttendanceRecord, error) {
	if _, _, err := calendar.ParseMonthKey(month); err != nil {
		return nil, invalid("month must be YYYY-MM")
	}
	return readThrough(ctx, s, "attendance", attendanceKey(studentID, month), func() ([]model.AttendanceRecord, error) {
		return s.repo.ListAttendance(ctx, studentID, month)
	})
}

// UpsertAttendance records or replaces the status for a date.
func (s *Service) UpsertAttendance(ctx context.Context, rec model.AttendanceRecord) error {
	if !validDate(rec.Date) {
		return invalid("date must be YYYY-MM-DD")
	}
	if !rec.Status.Valid() {
		return invalid("status must be one of PRESENT, ABSENT, LATE, EXCUSED")
	}
	if _, err := s.Student(ctx, rec.StudentID); err != nil {
		return err
	}
	if err := s.repo.UpsertAttendance(ctx, rec); err != nil {
		return err
	}
	s.evict(ctx, attendanceKey(rec.StudentID, rec.Date[:7]))
	s.publish(ctx, rec.StudentID, "attendance", "upsert", rec.Date)
	return nil
}

// DeleteAttendance removes the record for a date.
func (s *Service) DeleteAttendance(ctx context.Context, studentID, date string) error {
	if !validDate(date) {
		return invalid("date must be YYYY-MM-DD")
	}
	if err := s.repo.DeleteAttendance(ctx, studentID, date); err != nil {
		return err
	}
	s.evict(ctx, attendanceKey(studentID, date[:7]))
	s.publish(ctx, studentID, "attendance", "delete", date)
	return nil
}

// ---------- Fees ----------

// Fees returns a student's fee records for a year.
func (s *Service) Fees(ctx context.Context, studentID, year string) ([]model.FeeRecord, error) {
	if !validYear(year) {
		return nil, invalid("year must be YYYY")
	}
	return readThrough(ctx, s, "fees", feesKey(studentID, year), func() ([]model.FeeRecord, error) {
		return s.repo.ListFees(ctx, studentID, year)
	})
}

// UpsertFee records or replaces the fee status for a month.
func (s *Service) UpsertFee(ctx context.Context, rec model.FeeRecord) error {
	if _, _, err := calendar.ParseMonthKey(rec.Month); err != nil {
		return invalid("month must be YYYY-MM")
	}
	if !rec.Status.Valid() {
		return invalid("status must be one of PAID, PENDING, ABSENT")
	}
	if rec.PaidDate != nil && *rec.PaidDate == "" {
		rec.PaidDate = nil
	}
	if rec.PaidDate != nil && !validDate(*rec.PaidDate) {
		return invalid("paid date must be YYYY-MM-DD")
	}
	if _, err := s.Student(ctx, rec.StudentID); err != nil {
		return err
	}
	if err := s.repo.UpsertFee(ctx, rec); err != nil {
		return err
	}
	s.evict(ctx, feesKey(rec.StudentID, calendar.YearOf(rec.Month)))
	s.publish(ctx, rec.StudentID, "fees", "upsert", rec.Month)
	return nil
}

// DeleteFee removes the fee record for a month.
func (s *Service) DeleteFee(ctx context.Context, studentID, month string) error {
	if _, _, err := calendar.ParseMonthKey(month); err != nil {
		return invalid("month must be YYYY-MM")
	}
	if err := s.repo.DeleteFee(ctx, studentID, month); err != nil {
		return err
	}
	s.evict(ctx, feesKey(studentID, calendar.YearOf(month)))
	s.publish(ctx, studentID, "fees", "delete", month)
	return nil
}

// ---------- Marks ----------

// Marks returns every mark of a student.
func (s *Service) Marks(ctx context.Context, studentID string) ([]model.MarkRecord, error) {
	return s.repo.ListMarks(ctx, studentID)
}

// SaveMark inserts a mark, or updates it when m.ID is set.
func (s *Service) SaveMark(ctx context.Context, m model.MarkRecord) (model.MarkRecord, error) {
	if _, _, err := calendar.ParseMonthKey(m.Month); err != nil {
		return model.MarkRecord{}, invalid("month must be YYYY-MM")
	}
	m.Title = strings.TrimSpace(m.Title)
	if m.Title == "" {
		return model.MarkRecord{}, invalid("title is required")
	}
	if m.Marks < 0 || m.MaxMarks < 0 {
		return model.MarkRecord{}, invalid("marks cannot be negative")
	}

	if m.ID != "" {
		old, err := s.repo.GetMark(ctx, m.ID)
		if err != nil {
			return model.MarkRecord{}, err
		}
		if m.StudentID != "" && m.StudentID != old.StudentID {
			return model.MarkRecord{}, ErrNotFound
		}
		m.StudentID, m.CreatedAt = old.StudentID, old.CreatedAt
		if err := s.repo.UpdateMark(ctx, m); err != nil {
			return model.MarkRecord{}, err
		}
		s.publish(ctx, m.StudentID, "marks", "update", m.Month)
		return m, nil
	}

	if _, err := s.Student(ctx, m.StudentID); err != nil {
		return model.MarkRecord{}, err
	}
	saved, err := s.repo.InsertMark(ctx, m)
	if err != nil {
		return model.MarkRecord{}, err
	}
	s.publish(ctx, saved.StudentID, "marks", "create", saved.Month)
	return saved, nil
}

// DeleteMark removes a mark by id.
func (s *Service) DeleteMark(ctx context.Context, id string) error {
	m, err := s.repo.GetMark(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteMark(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, m.StudentID, "marks", "delete", m.Month)
	return nil
}

// ---------- Notices ----------

// VisibleNotices returns the unexpired notices of grade and of GradeAll, newest first.
func (s *Service) VisibleNotices(ctx context.Context, grade string) ([]model.Notice, error) {
	if grade == "" {
		return []model.Notice{}, nil
	}
	all, err := s.repo.ListNotices(ctx, []string{grade, model.GradeAll})
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := all[:0]
	for _, n := range all {
		if n.VisibleTo(grade, now) {
			out = append(out, n)
		}
	}
	return out, nil
}

// Notices lists notices for administration; an empty grade lists all.
func (s *Service) Notices(ctx context.Context, grade string) ([]model.Notice, error) {
	if grade == "" {
		return s.repo.ListNotices(ctx, nil)
	}
	return s.repo.ListNotices(ctx, []string{grade})
}

// CreateNotice validates and stores a notice.
func (s *Service) CreateNotice(ctx context.Context, n model.Notice) (model.Notice, error) {
	n.Grade = strings.TrimSpace(n.Grade)
	n.Title = strings.TrimSpace(n.Title)
	n.Message = strings.TrimSpace(n.Message)
	if n.Grade == "" || n.Title == "" || n.Message == "" {
		return model.Notice{}, invalid("grade, title, message are required")
	}
	return s.repo.InsertNotice(ctx, n)
}

// DeleteNotice removes a notice by id.
func (s *Service) DeleteNotice(ctx context.Context, id string) error {
	return s.repo.DeleteNotice(ctx, id)
}

// SweepExpiredNotices deletes notices that can no longer be seen.
func (s *Service) SweepExpiredNotices(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredNotices(ctx, s.now())
}

// ---------- Timetable ----------

// Timetable returns every row, sorted by grade, weekday and start time.
func (s *Service) Timetable(ctx context.Context) ([]model.TimetableRow, error) {
	return readThrough(ctx, s, "timetable", timetableKey, func() ([]model.TimetableRow, error) {
		rows, err := s.repo.ListTimetable(ctx)
		if err != nil {
			return nil, err
		}
		return timetable.Sort(rows), nil
	})
}

// TimetableFor returns the sorted rows of one grade.
func (s *Service) TimetableFor(ctx context.Context, grade string) ([]model.TimetableRow, error) {
	rows, err := s.Timetable(ctx)
	if err != nil {
		return nil, err
	}
	return timetable.ForGrade(rows, grade), nil
}

func validateRow(row model.TimetableRow) error {
	switch {
	case strings.TrimSpace(row.Grade) == "":
		return invalid("grade is required")
	case !timetable.ValidDay(row.Day):
		return invalid("day must be a weekday name")
	case strings.TrimSpace(row.Time) == "":
		return invalid("time is required")
	case strings.TrimSpace(row.ClassType) == "":
		return invalid("class type is required")
	}
	return nil
}

// CreateTimetableRow stores a new row.
func (s *Service) CreateTimetableRow(ctx context.Context, row model.TimetableRow) (model.TimetableRow, error) {
	if err := validateRow(row); err != nil {
		return model.TimetableRow{}, err
	}
	row.ID = ""
	saved, err := s.repo.InsertTimetableRow(ctx, row)
	if err != nil {
		return model.TimetableRow{}, err
	}
	s.evict(ctx, timetableKey)
	return saved, nil
}

// UpdateTimetableRow overwrites an existing row.
func (s *Service) UpdateTimetableRow(ctx context.Context, row model.TimetableRow) error {
	if err := validateRow(row); err != nil {
		return err
	}
	if err := s.repo.UpdateTimetableRow(ctx, row); err != nil {
		return err
	}
	s.evict(ctx, timetableKey)
	return nil
}

// DeleteTimetableRow removes a row.
func (s *Service) DeleteTimetableRow(ctx context.Context, id string) error {
	if err := s.repo.DeleteTimetableRow(ctx, id); err != nil {
		return err
	}
	s.evict(ctx, timetableKey)
	return nil
}

// ---------- Activity ----------

// RecordChange stores a change event for the admin activity feed.
func (s *Service) RecordChange(ctx context.Context, c queue.Change) error {
	if c.StudentID == "" || c.Entity == "" {
		return invalid("change needs a student and an entity")
	}
	if c.OccurredAt.IsZero() {
		c.OccurredAt = s.now().UTC()
	}
	return s.repo.InsertActivity(ctx, model.Activity{
		StudentID:  c.StudentID,
		Entity:     c.Entity,
		Action:     c.Action,
		Period:     c.Period,
		OccurredAt: c.OccurredAt,
	})
}

// Activity returns a student's recent change events.
func (s *Service) Activity(ctx context.Context, studentID string, limit int) ([]model.Activity, error) {
	return s.repo.ListActivity(ctx, studentID, limit)
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func validYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}
