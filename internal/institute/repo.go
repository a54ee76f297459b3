package institute

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"tutoring/internal/model"
)

// PostgresRepository persists institute data in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const profileColumns = `id, full_name, email, role, student_id, class_id, phone, school_name, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner, extra ...any) (model.StudentProfile, error) {
	var p model.StudentProfile
	dest := append([]any{&p.ID, &p.FullName, &p.Email, &p.Role, &p.StudentID, &p.ClassID, &p.Phone, &p.SchoolName, &p.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, ErrNotFound
		}
		return p, err
	}
	return p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateAccount inserts a new account; ErrConflict on a duplicate email.
func (r *PostgresRepository) CreateAccount(ctx context.Context, acc model.Account) (model.Account, error) {
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, full_name, email, password_hash, role, student_id, class_id, phone, school_name)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at
	`, acc.ID, acc.FullName, acc.Email, acc.PasswordHash, acc.Role, acc.StudentID, acc.ClassID, acc.Phone, acc.SchoolName)
	if err := row.Scan(&acc.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return model.Account{}, ErrConflict
		}
		return model.Account{}, err
	}
	return acc, nil
}

// AccountByEmail looks up an account by normalized email.
func (r *PostgresRepository) AccountByEmail(ctx context.Context, email string) (model.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+`, password_hash FROM users WHERE email = $1`, email)
	var acc model.Account
	p, err := scanProfile(row, &acc.PasswordHash)
	acc.StudentProfile = p
	return acc, err
}

// AccountByID looks up an account by id.
func (r *PostgresRepository) AccountByID(ctx context.Context, id string) (model.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Account{}, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+`, password_hash FROM users WHERE id = $1`, id)
	var acc model.Account
	p, err := scanProfile(row, &acc.PasswordHash)
	acc.StudentProfile = p
	return acc, err
}

// UpdateProfile overwrites the non-nil fields of ch.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, ch ProfileChanges) (model.StudentProfile, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.StudentProfile{}, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE users SET
			full_name     = COALESCE($2, full_name),
			phone         = COALESCE($3, phone),
			school_name   = COALESCE($4, school_name),
			class_id      = COALESCE($5, class_id),
			password_hash = COALESCE($6, password_hash),
			updated_at    = NOW()
		WHERE id = $1
		RETURNING `+profileColumns,
		id, ch.FullName, ch.Phone, ch.SchoolName, ch.ClassID, ch.PasswordHash)
	return scanProfile(row)
}

// ListStudents returns student accounts, newest first.
func (r *PostgresRepository) ListStudents(ctx context.Context, f StudentFilter) ([]model.StudentProfile, error) {
	args := []any{model.RoleStudent}
	clauses := []string{"role = $1"}
	if f.Grade != "" {
		args = append(args, f.Grade)
		clauses = append(clauses, fmt.Sprintf("class_id = $%d", len(args)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(full_name ILIKE $%d OR email ILIKE $%d OR student_id ILIKE $%d)", n, n, n))
	}
	if f.Year > 0 {
		args = append(args, f.Year)
		clauses = append(clauses, fmt.Sprintf("EXTRACT(YEAR FROM created_at) = $%d", len(args)))
	}
	query := `SELECT ` + profileColumns + ` FROM users WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []model.StudentProfile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// UpsertAttendance writes the status for (student, date), replacing any previous one.
func (r *PostgresRepository) UpsertAttendance(ctx context.Context, rec model.AttendanceRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (student_id, date, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (student_id, date) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = NOW()
	`, rec.StudentID, rec.Date, rec.Status)
	return err
}

// DeleteAttendance removes the record for (student, date) if present.
func (r *PostgresRepository) DeleteAttendance(ctx context.Context, studentID, date string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM attendance WHERE student_id = $1 AND date = $2`, studentID, date)
	return err
}

// ListAttendance returns a student's records within a month key, by date.
func (r *PostgresRepository) ListAttendance(ctx context.Context, studentID, month string) ([]model.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT student_id, date, status FROM attendance
		WHERE student_id = $1 AND date LIKE $2
		ORDER BY date
	`, studentID, month+"-%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []model.AttendanceRecord{}
	for rows.Next() {
		var rec model.AttendanceRecord
		if err := rows.Scan(&rec.StudentID, &rec.Date, &rec.Status); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// UpsertFee writes the fee status for (student, month), replacing any previous one.
func (r *PostgresRepository) UpsertFee(ctx context.Context, rec model.FeeRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fees (student_id, month, status, paid_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id, month) DO UPDATE SET
			status = EXCLUDED.status,
			paid_date = EXCLUDED.paid_date,
			updated_at = NOW()
	`, rec.StudentID, rec.Month, rec.Status, rec.PaidDate)
	return err
}

// DeleteFee removes the record for (student, month) if present.
func (r *PostgresRepository) DeleteFee(ctx context.Context, studentID, month string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM fees WHERE student_id = $1 AND month = $2`, studentID, month)
	return err
}

// ListFees returns a student's fee records within a year, by month.
func (r *PostgresRepository) ListFees(ctx context.Context, studentID, year string) ([]model.FeeRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT student_id, month, status, paid_date FROM fees
		WHERE student_id = $1 AND month LIKE $2
		ORDER BY month
	`, studentID, year+"-%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []model.FeeRecord{}
	for rows.Next() {
		var rec model.FeeRecord
		if err := rows.Scan(&rec.StudentID, &rec.Month, &rec.Status, &rec.PaidDate); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// InsertMark writes a new mark.
func (r *PostgresRepository) InsertMark(ctx context.Context, m model.MarkRecord) (model.MarkRecord, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO marks (id, student_id, month, title, marks, max_marks)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, m.ID, m.StudentID, m.Month, m.Title, m.Marks, m.MaxMarks)
	if err := row.Scan(&m.CreatedAt); err != nil {
		return model.MarkRecord{}, err
	}
	return m, nil
}

// UpdateMark overwrites month, title and scores of an existing mark.
func (r *PostgresRepository) UpdateMark(ctx context.Context, m model.MarkRecord) error {
	if _, err := uuid.Parse(m.ID); err != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE marks SET month = $2, title = $3, marks = $4, max_marks = $5
		WHERE id = $1
	`, m.ID, m.Month, m.Title, m.Marks, m.MaxMarks)
	return affected(res, err)
}

// GetMark returns a single mark by id.
func (r *PostgresRepository) GetMark(ctx context.Context, id string) (model.MarkRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.MarkRecord{}, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, month, title, marks, max_marks, created_at FROM marks WHERE id = $1
	`, id)
	var m model.MarkRecord
	if err := row.Scan(&m.ID, &m.StudentID, &m.Month, &m.Title, &m.Marks, &m.MaxMarks, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return m, ErrNotFound
		}
		return m, err
	}
	return m, nil
}

// DeleteMark removes a mark by id.
func (r *PostgresRepository) DeleteMark(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM marks WHERE id = $1`, id)
	return affected(res, err)
}

// ListMarks returns every mark of a student, by month then creation.
func (r *PostgresRepository) ListMarks(ctx context.Context, studentID string) ([]model.MarkRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, month, title, marks, max_marks, created_at FROM marks
		WHERE student_id = $1
		ORDER BY month, created_at
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []model.MarkRecord{}
	for rows.Next() {
		var m model.MarkRecord
		if err := rows.Scan(&m.ID, &m.StudentID, &m.Month, &m.Title, &m.Marks, &m.MaxMarks, &m.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// InsertNotice writes a new notice.
func (r *PostgresRepository) InsertNotice(ctx context.Context, n model.Notice) (model.Notice, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	var createdBy any
	if n.CreatedBy != "" {
		createdBy = n.CreatedBy
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO notices (id, grade, title, message, created_by, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, n.ID, n.Grade, n.Title, n.Message, createdBy, n.ExpiresAt)
	if err := row.Scan(&n.CreatedAt); err != nil {
		return model.Notice{}, err
	}
	return n, nil
}

// DeleteNotice removes a notice by id.
func (r *PostgresRepository) DeleteNotice(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM notices WHERE id = $1`, id)
	return affected(res, err)
}

// ListNotices returns notices of the given grades, newest first. No grades means all.
func (r *PostgresRepository) ListNotices(ctx context.Context, grades []string) ([]model.Notice, error) {
	query := `SELECT id, grade, title, message, COALESCE(created_by::text, ''), created_at, expires_at FROM notices`
	args := make([]any, 0, len(grades))
	if len(grades) > 0 {
		holders := make([]string, len(grades))
		for i, g := range grades {
			args = append(args, g)
			holders[i] = fmt.Sprintf("$%d", i+1)
		}
		query += ` WHERE grade IN (` + strings.Join(holders, ", ") + `)`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []model.Notice{}
	for rows.Next() {
		var n model.Notice
		if err := rows.Scan(&n.ID, &n.Grade, &n.Title, &n.Message, &n.CreatedBy, &n.CreatedAt, &n.ExpiresAt); err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

// DeleteExpiredNotices removes notices whose expiry is at or before now.
func (r *PostgresRepository) DeleteExpiredNotices(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notices WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListTimetable returns every timetable row in storage order.
func (r *PostgresRepository) ListTimetable(ctx context.Context) ([]model.TimetableRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, grade, day, time, class_type FROM timetable`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []model.TimetableRow{}
	for rows.Next() {
		var row model.TimetableRow
		if err := rows.Scan(&row.ID, &row.Grade, &row.Day, &row.Time, &row.ClassType); err != nil {
			return nil, err
		}
		res = append(res, row)
	}
	return res, rows.Err()
}

// InsertTimetableRow writes a new row.
func (r *PostgresRepository) InsertTimetableRow(ctx context.Context, row model.TimetableRow) (model.TimetableRow, error) {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO timetable (id, grade, day, time, class_type) VALUES ($1,$2,$3,$4,$5)
	`, row.ID, row.Grade, row.Day, row.Time, row.ClassType)
	if err != nil {
		return model.TimetableRow{}, err
	}
	return row, nil
}

// UpdateTimetableRow overwrites an existing row.
func (r *PostgresRepository) UpdateTimetableRow(ctx context.Context, row model.TimetableRow) error {
	if _, err := uuid.Parse(row.ID); err != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE timetable SET grade = $2, day = $3, time = $4, class_type = $5 WHERE id = $1
	`, row.ID, row.Grade, row.Day, row.Time, row.ClassType)
	return affected(res, err)
}

// DeleteTimetableRow removes a row by id.
func (r *PostgresRepository) DeleteTimetableRow(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM timetable WHERE id = $1`, id)
	return affected(res, err)
}

// InsertActivity records a change event.
func (r *PostgresRepository) InsertActivity(ctx context.Context, a model.Activity) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activity (id, student_id, entity, action, period, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, a.ID, a.StudentID, a.Entity, a.Action, a.Period, a.OccurredAt)
	return err
}

// ListActivity returns a student's most recent change events.
func (r *PostgresRepository) ListActivity(ctx context.Context, studentID string, limit int) ([]model.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, entity, action, period, occurred_at FROM activity
		WHERE student_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`, studentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []model.Activity{}
	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(&a.ID, &a.StudentID, &a.Entity, &a.Action, &a.Period, &a.OccurredAt); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
