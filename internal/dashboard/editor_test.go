package dashboard

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutoring/internal/apiclient"
	"tutoring/internal/model"
)

type fakeTimetable struct {
	mu      sync.Mutex
	rows    map[string]model.TimetableRow
	gate    map[string]chan struct{}
	entered chan string
	loads   int
	err     error
}

func newFakeTimetable() *fakeTimetable {
	return &fakeTimetable{
		rows: map[string]model.TimetableRow{
			"a": {ID: "a", Grade: "Grade 7", Day: "Monday", Time: "4:00 PM", ClassType: "Theory"},
			"b": {ID: "b", Grade: "Grade 6", Day: "Friday", Time: "9:00 AM", ClassType: "Paper"},
		},
		gate:    map[string]chan struct{}{},
		entered: make(chan string, 4),
	}
}

func (f *fakeTimetable) Timetable(context.Context) ([]model.TimetableRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	out := make([]model.TimetableRow, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeTimetable) CreateTimetableRow(_ context.Context, _ apiclient.Session, in apiclient.TimetableInput) (model.TimetableRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.TimetableRow{}, f.err
	}
	row := model.TimetableRow{ID: "c", Grade: in.Grade, Day: in.Day, Time: in.Time, ClassType: in.ClassType}
	f.rows[row.ID] = row
	return row, nil
}

func (f *fakeTimetable) UpdateTimetableRow(_ context.Context, _ apiclient.Session, id string, in apiclient.TimetableInput) (model.TimetableRow, error) {
	f.mu.Lock()
	gate := f.gate[id]
	f.mu.Unlock()
	f.entered <- id
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row := model.TimetableRow{ID: id, Grade: in.Grade, Day: in.Day, Time: in.Time, ClassType: in.ClassType}
	f.rows[id] = row
	return row, nil
}

func (f *fakeTimetable) DeleteTimetableRow(_ context.Context, _ apiclient.Session, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return &apiclient.Error{Status: http.StatusNotFound, Message: "Not found", FromServer: true}
	}
	delete(f.rows, id)
	return nil
}

func TestRowBusy(t *testing.T) {
	b := NewRowBusy()
	assert.True(t, b.Begin("a"))
	assert.False(t, b.Begin("a"))
	assert.True(t, b.Begin("b"))
	assert.True(t, b.Busy("a"))
	b.End("a")
	assert.False(t, b.Busy("a"))
	assert.True(t, b.Busy("b"))
}

func TestEditorLoadSorts(t *testing.T) {
	f := newFakeTimetable()
	e := NewTimetableEditor(f)
	require.NoError(t, e.Load(context.Background()))
	rows := e.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0].ID)
}

func TestEditorRowsAreIndependent(t *testing.T) {
	f := newFakeTimetable()
	e := NewTimetableEditor(f)
	ctx := context.Background()
	require.NoError(t, e.Load(ctx))

	gate := make(chan struct{})
	f.gate["a"] = gate
	form := TimetableForm{Grade: "Grade 7", Day: "Tuesday", Time: "5:00 PM", ClassType: "Theory"}

	done := make(chan error, 1)
	go func() { done <- e.Update(ctx, sess, "a", form) }()
	require.Equal(t, "a", <-f.entered)

	assert.True(t, e.Busy("a"))
	assert.False(t, e.Busy("b"))
	assert.ErrorIs(t, e.Update(ctx, sess, "a", form), ErrRowBusy)
	assert.ErrorIs(t, e.Delete(ctx, sess, "a"), ErrRowBusy)

	require.NoError(t, e.Update(ctx, sess, "b", TimetableForm{Grade: "Grade 6", Day: "Saturday", Time: "9:00 AM", ClassType: "Paper"}))
	require.Equal(t, "b", <-f.entered)
	assert.False(t, e.Busy("b"))

	close(gate)
	require.NoError(t, <-done)
	assert.False(t, e.Busy("a"))

	for _, r := range e.Rows() {
		if r.ID == "a" {
			assert.Equal(t, "Tuesday", r.Day)
		}
	}
}

func TestEditorErrors(t *testing.T) {
	f := newFakeTimetable()
	e := NewTimetableEditor(f)
	ctx := context.Background()

	err := e.Create(ctx, sess, TimetableForm{Grade: "Grade 7", Day: "Someday", Time: "1 PM", ClassType: "Theory"})
	var ae *ActionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Pick a weekday", ae.Message)
	assert.Zero(t, f.loads)

	f.err = errors.New("connection reset")
	err = e.Create(ctx, sess, TimetableForm{Grade: "Grade 7", Day: "Monday", Time: "1 PM", ClassType: "Theory"})
	require.Error(t, err)
	assert.Equal(t, "Failed to create timetable row", e.Err())

	require.Error(t, e.Delete(ctx, sess, "missing"))
	assert.Equal(t, "Not found", e.Err())
	assert.False(t, e.Busy("missing"))

	f.err = nil
	require.NoError(t, e.Create(ctx, sess, TimetableForm{Grade: "Grade 7", Day: "Monday", Time: "1 PM", ClassType: "Theory"}))
	assert.Len(t, e.Rows(), 3)
	assert.Empty(t, e.Err())
}
