package institute

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tutoring/internal/model"
)

// MemoryRepository keeps everything in process memory. It backs tests and the
// "memory" store backend.
type MemoryRepository struct {
	mu         sync.RWMutex
	now        func() time.Time
	accounts   map[string]model.Account
	attendance map[[2]string]model.AttendanceRecord
	fees       map[[2]string]model.FeeRecord
	marks      map[string]model.MarkRecord
	notices    map[string]model.Notice
	timetable  []model.TimetableRow
	activity   []model.Activity
}

// NewMemoryRepository returns an empty store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		now:        time.Now,
		accounts:   make(map[string]model.Account),
		attendance: make(map[[2]string]model.AttendanceRecord),
		fees:       make(map[[2]string]model.FeeRecord),
		marks:      make(map[string]model.MarkRecord),
		notices:    make(map[string]model.Notice),
	}
}

func (m *MemoryRepository) CreateAccount(_ context.Context, acc model.Account) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == acc.Email {
			return model.Account{}, ErrConflict
		}
	}
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	acc.CreatedAt = m.now().UTC()
	m.accounts[acc.ID] = acc
	return acc, nil
}

func (m *MemoryRepository) AccountByEmail(_ context.Context, email string) (model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return model.Account{}, ErrNotFound
}

func (m *MemoryRepository) AccountByID(_ context.Context, id string) (model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.accounts[id]; ok {
		return a, nil
	}
	return model.Account{}, ErrNotFound
}

func (m *MemoryRepository) UpdateProfile(_ context.Context, id string, ch ProfileChanges) (model.StudentProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return model.StudentProfile{}, ErrNotFound
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&a.FullName, ch.FullName)
	set(&a.Phone, ch.Phone)
	set(&a.SchoolName, ch.SchoolName)
	set(&a.ClassID, ch.ClassID)
	set(&a.PasswordHash, ch.PasswordHash)
	m.accounts[id] = a
	return a.StudentProfile, nil
}

func (m *MemoryRepository) ListStudents(_ context.Context, f StudentFilter) ([]model.StudentProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(f.Query))
	res := []model.StudentProfile{}
	for _, a := range m.accounts {
		p := a.StudentProfile
		switch {
		case p.Role != model.RoleStudent:
			continue
		case f.Grade != "" && p.ClassID != f.Grade:
			continue
		case f.Year > 0 && p.CreatedAt.Year() != f.Year:
			continue
		case q != "" && !containsAny(q, p.FullName, p.Email, p.StudentID):
			continue
		}
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func containsAny(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func (m *MemoryRepository) UpsertAttendance(_ context.Context, rec model.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attendance[[2]string{rec.StudentID, rec.Date}] = rec
	return nil
}

func (m *MemoryRepository) DeleteAttendance(_ context.Context, studentID, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attendance, [2]string{studentID, date})
	return nil
}

func (m *MemoryRepository) ListAttendance(_ context.Context, studentID, month string) ([]model.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := []model.AttendanceRecord{}
	for k, rec := range m.attendance {
		if k[0] == studentID && strings.HasPrefix(rec.Date, month+"-") {
			res = append(res, rec)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Date < res[j].Date })
	return res, nil
}

func (m *MemoryRepository) UpsertFee(_ context.Context, rec model.FeeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fees[[2]string{rec.StudentID, rec.Month}] = rec
	return nil
}

func (m *MemoryRepository) DeleteFee(_ context.Context, studentID, month string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.fees, [2]string{studentID, month})
	return nil
}

func (m *MemoryRepository) ListFees(_ context.Context, studentID, year string) ([]model.FeeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := []model.FeeRecord{}
	for k, rec := range m.fees {
		if k[0] == studentID && strings.HasPrefix(rec.Month, year+"-") {
			res = append(res, rec)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Month < res[j].Month })
	return res, nil
}

func (m *MemoryRepository) InsertMark(_ context.Context, mk model.MarkRecord) (model.MarkRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mk.ID == "" {
		mk.ID = uuid.NewString()
	}
	mk.CreatedAt = m.now().UTC()
	m.marks[mk.ID] = mk
	return mk, nil
}

func (m *MemoryRepository) UpdateMark(_ context.Context, mk model.MarkRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.marks[mk.ID]
	if !ok {
		return ErrNotFound
	}
	old.Month, old.Title, old.Marks, old.MaxMarks = mk.Month, mk.Title, mk.Marks, mk.MaxMarks
	m.marks[mk.ID] = old
	return nil
}

func (m *MemoryRepository) GetMark(_ context.Context, id string) (model.MarkRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if mk, ok := m.marks[id]; ok {
		return mk, nil
	}
	return model.MarkRecord{}, ErrNotFound
}

func (m *MemoryRepository) DeleteMark(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.marks[id]; !ok {
		return ErrNotFound
	}
	delete(m.marks, id)
	return nil
}

func (m *MemoryRepository) ListMarks(_ context.Context, studentID string) ([]model.MarkRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := []model.MarkRecord{}
	for _, mk := range m.marks {
		if mk.StudentID == studentID {
			res = append(res, mk)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Month != res[j].Month {
			return res[i].Month < res[j].Month
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}

func (m *MemoryRepository) InsertNotice(_ context.Context, n model.Notice) (model.Notice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = m.now().UTC()
	m.notices[n.ID] = n
	return n, nil
}

func (m *MemoryRepository) DeleteNotice(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notices[id]; !ok {
		return ErrNotFound
	}
	delete(m.notices, id)
	return nil
}

func (m *MemoryRepository) ListNotices(_ context.Context, grades []string) ([]model.Notice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := make(map[string]bool, len(grades))
	for _, g := range grades {
		want[g] = true
	}
	res := []model.Notice{}
	for _, n := range m.notices {
		if len(want) == 0 || want[n.Grade] {
			res = append(res, n)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (m *MemoryRepository) DeleteExpiredNotices(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, notice := range m.notices {
		if notice.ExpiresAt != nil && !notice.ExpiresAt.After(now) {
			delete(m.notices, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepository) ListTimetable(context.Context) ([]model.TimetableRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.TimetableRow{}, m.timetable...), nil
}

func (m *MemoryRepository) InsertTimetableRow(_ context.Context, row model.TimetableRow) (model.TimetableRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	m.timetable = append(m.timetable, row)
	return row, nil
}

func (m *MemoryRepository) UpdateTimetableRow(_ context.Context, row model.TimetableRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.timetable {
		if m.timetable[i].ID == row.ID {
			m.timetable[i] = row
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryRepository) DeleteTimetableRow(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.timetable {
		if m.timetable[i].ID == id {
			m.timetable = append(m.timetable[:i], m.timetable[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryRepository) InsertActivity(_ context.Context, a model.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	m.activity = append(m.activity, a)
	return nil
}

func (m *MemoryRepository) ListActivity(_ context.Context, studentID string, limit int) ([]model.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	res := []model.Activity{}
	for i := len(m.activity) - 1; i >= 0 && len(res) < limit; i-- {
		if m.activity[i].StudentID == studentID {
			res = append(res, m.activity[i])
		}
	}
	return res, nil
}
