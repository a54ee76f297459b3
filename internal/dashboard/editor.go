package dashboard

import (
	"context"
	"errors"
	"log"
	"slices"
	"sync"

	"tutoring/internal/apiclient"
	"tutoring/internal/model"
	"tutoring/internal/timetable"
)

// ErrRowBusy is returned when a row already has a request in flight.
var ErrRowBusy = errors.New("row is busy")

// RowBusy tracks which rows have a request in flight. Rows are independent.
type RowBusy struct {
	mu   sync.Mutex
	rows map[string]bool
}

// NewRowBusy returns an empty tracker.
func NewRowBusy() *RowBusy {
	return &RowBusy{rows: make(map[string]bool)}
}

// Begin marks id busy. It reports false if id was already busy.
func (b *RowBusy) Begin(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rows[id] {
		return false
	}
	b.rows[id] = true
	return true
}

// End clears id.
func (b *RowBusy) End(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.rows, id)
}

// Busy reports whether id has a request in flight.
func (b *RowBusy) Busy(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rows[id]
}

// TimetableAPI is what the editor needs from the REST client.
type TimetableAPI interface {
	Timetable(ctx context.Context) ([]model.TimetableRow, error)
	CreateTimetableRow(ctx context.Context, sess apiclient.Session, in apiclient.TimetableInput) (model.TimetableRow, error)
	UpdateTimetableRow(ctx context.Context, sess apiclient.Session, id string, in apiclient.TimetableInput) (model.TimetableRow, error)
	DeleteTimetableRow(ctx context.Context, sess apiclient.Session, id string) error
}

// TimetableEditor is the admin timetable list with in-place row edits.
type TimetableEditor struct {
	api  TimetableAPI
	busy *RowBusy

	mu   sync.Mutex
	rows []model.TimetableRow
	err  string
}

// NewTimetableEditor returns an empty editor.
func NewTimetableEditor(api TimetableAPI) *TimetableEditor {
	return &TimetableEditor{api: api, busy: NewRowBusy()}
}

// Rows returns the sorted rows.
func (e *TimetableEditor) Rows() []model.TimetableRow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.rows)
}

// Err returns the last failure message, if any.
func (e *TimetableEditor) Err() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Busy reports whether row id has an update or delete in flight.
func (e *TimetableEditor) Busy(id string) bool { return e.busy.Busy(id) }

// Load fetches every row.
func (e *TimetableEditor) Load(ctx context.Context) error {
	rows, err := e.api.Timetable(ctx)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		return e.failLocked("load", "Failed to load timetable", err)
	}
	e.rows = timetable.Sort(rows)
	e.err = ""
	return nil
}

// Create adds a row and reloads.
func (e *TimetableEditor) Create(ctx context.Context, sess apiclient.Session, f TimetableForm) error {
	if msg, ok := check(f, timetableMessages); !ok {
		return e.fail("create", msg, nil)
	}
	if _, err := e.api.CreateTimetableRow(ctx, sess, input(f)); err != nil {
		return e.fail("create", writeMessage(err, "Failed to create timetable row"), err)
	}
	return e.Load(ctx)
}

// Update replaces row id. Other rows stay editable while it is in flight.
func (e *TimetableEditor) Update(ctx context.Context, sess apiclient.Session, id string, f TimetableForm) error {
	if msg, ok := check(f, timetableMessages); !ok {
		return e.fail("update", msg, nil)
	}
	if !e.busy.Begin(id) {
		return ErrRowBusy
	}
	defer e.busy.End(id)
	if _, err := e.api.UpdateTimetableRow(ctx, sess, id, input(f)); err != nil {
		return e.fail("update", writeMessage(err, "Failed to update timetable row"), err)
	}
	return e.Load(ctx)
}

// Delete removes row id.
func (e *TimetableEditor) Delete(ctx context.Context, sess apiclient.Session, id string) error {
	if !e.busy.Begin(id) {
		return ErrRowBusy
	}
	defer e.busy.End(id)
	if err := e.api.DeleteTimetableRow(ctx, sess, id); err != nil {
		return e.fail("delete", writeMessage(err, "Failed to delete timetable row"), err)
	}
	return e.Load(ctx)
}

func input(f TimetableForm) apiclient.TimetableInput {
	return apiclient.TimetableInput{Grade: f.Grade, Day: f.Day, Time: f.Time, ClassType: f.ClassType}
}

func (e *TimetableEditor) fail(action, msg string, err error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failLocked(action, msg, err)
}

func (e *TimetableEditor) failLocked(action, msg string, err error) error {
	ae := &ActionError{Action: "timetable " + action, Message: msg, cause: err}
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			ae.Unauthorized = true
			ae.Message = msgSession
		}
		log.Printf("timetable %s: %v", action, err)
	}
	e.err = ae.Message
	return ae
}
