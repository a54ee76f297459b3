// Package dashboard assembles the per-student dashboard view on the client
// side of the REST API and keeps it consistent across navigation and edits.
package dashboard

import (
	"context"
	"errors"
	"log"
	"slices"
	"sync"

	"tutoring/internal/apiclient"
	"tutoring/internal/calendar"
	"tutoring/internal/marks"
	"tutoring/internal/model"
	"tutoring/internal/timetable"
)

// State of a Composer.
type State int

const (
	Idle State = iota
	Loading
	Ready
	Refreshing
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Refreshing:
		return "refreshing"
	case Error:
		return "error"
	}
	return "unknown"
}

// Source reads dashboard data. An empty studentID means the signed-in student.
type Source interface {
	Dashboard(ctx context.Context, sess apiclient.Session, studentID string, year int, month string) (apiclient.Dashboard, error)
	Fees(ctx context.Context, sess apiclient.Session, studentID string, year int) ([]model.FeeRecord, error)
	Attendance(ctx context.Context, sess apiclient.Session, studentID, month string) ([]model.AttendanceRecord, error)
}

// Writer applies dashboard edits.
type Writer interface {
	UpdateProfile(ctx context.Context, sess apiclient.Session, studentID string, in apiclient.ProfileInput) (model.StudentProfile, error)
	UpsertAttendance(ctx context.Context, sess apiclient.Session, studentID, date string, status model.AttendanceStatus) error
	DeleteAttendance(ctx context.Context, sess apiclient.Session, studentID, date string) error
	UpsertFee(ctx context.Context, sess apiclient.Session, studentID, month string, status model.FeeStatus, paidDate string) error
	DeleteFee(ctx context.Context, sess apiclient.Session, studentID, month string) error
	SaveMark(ctx context.Context, sess apiclient.Session, studentID string, in apiclient.MarkInput) (model.MarkRecord, error)
	DeleteMark(ctx context.Context, sess apiclient.Session, markID string) error
	CreateNotice(ctx context.Context, sess apiclient.Session, in apiclient.NoticeInput) (model.Notice, error)
	DeleteNotice(ctx context.Context, sess apiclient.Session, id string) error
}

// ErrNotOpen is returned by navigation and edits before Open.
var ErrNotOpen = errors.New("dashboard not opened")

// ActionError is a user-facing failure of one action. Message is safe to show.
type ActionError struct {
	Action       string
	Message      string
	Unauthorized bool
	cause        error
}

func (e *ActionError) Error() string { return e.Message }
func (e *ActionError) Unwrap() error { return e.cause }

const (
	msgLoad       = "Failed to load dashboard"
	msgFees       = "Failed to load fees"
	msgAttendance = "Failed to load attendance"
	msgSession    = "Your session has expired, please log in again"
)

// View is a snapshot of everything the dashboard shows.
type View struct {
	State       State
	StudentID   string
	Year        int
	Cursor      calendar.Cursor
	MonthLabel  string
	Student     model.StudentProfile
	Notices     []model.Notice
	Fees        []model.FeeRecord
	Marks       []model.MarkRecord
	Attendance  []model.AttendanceRecord
	Timetable   []model.TimetableRow
	Calendar    []calendar.Day
	MarksSeries []marks.Point
	Err         string
	Msg         string
	NeedsLogin  bool
}

type slot int

const (
	slotFull slot = iota
	slotFees
	slotAttendance
	slotCount
)

// Composer drives one student dashboard. Every fetch slot carries a
// generation number; a response older than the latest request issued for its
// slot is dropped. Methods are safe for concurrent use and block until their
// own requests finish.
type Composer struct {
	src Source
	w   Writer

	mu        sync.Mutex
	opened    bool
	loaded    bool
	studentID string
	year      int
	cursor    calendar.Cursor
	issued    [slotCount]uint64
	done      [slotCount]uint64
	failed    bool
	view      View
}

// New returns an idle composer.
func New(src Source, w Writer) *Composer {
	return &Composer{src: src, w: w}
}

// View returns a copy of the current view.
func (c *Composer) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.view
	v.Notices = slices.Clone(v.Notices)
	v.Fees = slices.Clone(v.Fees)
	v.Marks = slices.Clone(v.Marks)
	v.Attendance = slices.Clone(v.Attendance)
	v.Timetable = slices.Clone(v.Timetable)
	v.Calendar = slices.Clone(v.Calendar)
	v.MarksSeries = slices.Clone(v.MarksSeries)
	return v
}

// Open loads the dashboard of studentID (empty for the signed-in student) for
// year and the zero-based month with one combined fetch.
func (c *Composer) Open(ctx context.Context, sess apiclient.Session, studentID string, year, month int) error {
	c.mu.Lock()
	c.opened = true
	c.loaded = false
	c.studentID = studentID
	c.year = year
	c.cursor = calendar.NewCursor(year, month)
	c.view = View{StudentID: studentID}
	c.mu.Unlock()
	return c.refetch(ctx, sess, true)
}

// Reload re-fetches the full aggregate.
func (c *Composer) Reload(ctx context.Context, sess apiclient.Session) error {
	if !c.isOpen() {
		return ErrNotOpen
	}
	return c.refetch(ctx, sess, true)
}

// SetYear switches the fee and marks year. Only fees are fetched, unless no
// combined load has succeeded yet, in which case the whole aggregate is.
func (c *Composer) SetYear(ctx context.Context, sess apiclient.Session, year int) error {
	c.mu.Lock()
	if !c.opened {
		c.mu.Unlock()
		return ErrNotOpen
	}
	if year == c.year {
		c.mu.Unlock()
		return nil
	}
	c.year = year
	if !c.loaded {
		c.mu.Unlock()
		return c.refetch(ctx, sess, false)
	}
	c.view.Year = year
	c.view.MarksSeries = marks.Series(c.view.Marks, year)
	gen := c.beginLocked(slotFees)
	sid := c.studentID
	c.mu.Unlock()
	return c.fetchFees(ctx, sess, gen, sid, year)
}

// SetMonth moves the calendar to a zero-based month of the calendar's year.
func (c *Composer) SetMonth(ctx context.Context, sess apiclient.Session, month int) error {
	c.mu.Lock()
	cur := calendar.NewCursor(c.cursor.Year, month)
	c.mu.Unlock()
	return c.moveTo(ctx, sess, cur)
}

// PrevMonth moves the calendar back one month.
func (c *Composer) PrevMonth(ctx context.Context, sess apiclient.Session) error {
	c.mu.Lock()
	cur := c.cursor.Prev()
	c.mu.Unlock()
	return c.moveTo(ctx, sess, cur)
}

// NextMonth moves the calendar forward one month.
func (c *Composer) NextMonth(ctx context.Context, sess apiclient.Session) error {
	c.mu.Lock()
	cur := c.cursor.Next()
	c.mu.Unlock()
	return c.moveTo(ctx, sess, cur)
}

// moveTo fetches attendance for cur. Crossing into another year also moves
// the fee year and fetches its fees. Before the first successful combined
// load there is no profile or timetable to build on, so the full aggregate
// is fetched instead.
func (c *Composer) moveTo(ctx context.Context, sess apiclient.Session, cur calendar.Cursor) error {
	c.mu.Lock()
	if !c.opened {
		c.mu.Unlock()
		return ErrNotOpen
	}
	if cur == c.cursor {
		c.mu.Unlock()
		return nil
	}
	wrapped := cur.Year != c.cursor.Year
	c.cursor = cur
	if !c.loaded {
		if wrapped {
			c.year = cur.Year
		}
		c.mu.Unlock()
		return c.refetch(ctx, sess, false)
	}
	c.view.Cursor = cur
	c.view.MonthLabel = calendar.MonthLabel(cur.Key())
	attGen := c.beginLocked(slotAttendance)
	var feesGen uint64
	if wrapped {
		c.year = cur.Year
		c.view.Year = cur.Year
		c.view.MarksSeries = marks.Series(c.view.Marks, cur.Year)
		feesGen = c.beginLocked(slotFees)
	}
	c.rebuildLocked()
	sid := c.studentID
	c.mu.Unlock()

	err := c.fetchAttendance(ctx, sess, attGen, sid, cur.Key())
	if wrapped {
		if ferr := c.fetchFees(ctx, sess, feesGen, sid, cur.Year); err == nil {
			err = ferr
		}
	}
	return err
}

func (c *Composer) isOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened
}

func (c *Composer) beginLocked(s slot) uint64 {
	c.issued[s]++
	c.failed = false
	c.view.Err = ""
	c.settleLocked()
	return c.issued[s]
}

func (c *Composer) inFlight(s slot) bool { return c.issued[s] != c.done[s] }

func (c *Composer) settleLocked() {
	switch {
	case c.inFlight(slotFull):
		c.view.State = Loading
	case c.inFlight(slotFees), c.inFlight(slotAttendance):
		c.view.State = Refreshing
	case c.failed:
		c.view.State = Error
	default:
		c.view.State = Ready
	}
}

func (c *Composer) rebuildLocked() {
	classDays := timetable.ClassDays(c.view.Timetable, c.view.Student.ClassID)
	c.view.Calendar = calendar.Build(c.cursor.Year, c.cursor.Month, classDays, calendar.IndexByDate(c.view.Attendance))
}

// failLocked records a read or write failure. The raw error is only logged.
func (c *Composer) failLocked(action, msg string, err error) *ActionError {
	ae := &ActionError{Action: action, Message: msg, cause: err}
	if apiclient.IsUnauthorized(err) {
		ae.Unauthorized = true
		ae.Message = msgSession
		c.view.NeedsLogin = true
	}
	c.view.Err = ae.Message
	log.Printf("dashboard %s: %v", action, err)
	return ae
}

// refetch loads the combined aggregate. Fee and attendance slots are
// superseded by it; their parts of the response are kept only if no newer
// fee or attendance request was issued in the meantime.
func (c *Composer) refetch(ctx context.Context, sess apiclient.Session, clearMsg bool) error {
	c.mu.Lock()
	gen := c.beginLocked(slotFull)
	feesGen := c.beginLocked(slotFees)
	c.done[slotFees] = feesGen
	attGen := c.beginLocked(slotAttendance)
	c.done[slotAttendance] = attGen
	if clearMsg {
		c.view.Msg = ""
	}
	c.view.Year = c.year
	c.view.Cursor = c.cursor
	c.view.MonthLabel = calendar.MonthLabel(c.cursor.Key())
	c.settleLocked()
	sid, year, month := c.studentID, c.year, c.cursor.Key()
	c.mu.Unlock()

	d, err := c.src.Dashboard(ctx, sess, sid, year, month)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.issued[slotFull] {
		return nil
	}
	c.done[slotFull] = gen
	if err != nil {
		c.failed = true
		ae := c.failLocked("load", msgLoad, err)
		c.settleLocked()
		return ae
	}
	c.loaded = true
	c.view.Student = d.Student
	c.view.Notices = d.Notices
	c.view.Marks = d.Marks
	c.view.Timetable = timetable.Sort(d.Timetable)
	if c.issued[slotFees] == feesGen {
		c.view.Fees = d.Fees
	}
	if c.issued[slotAttendance] == attGen {
		c.view.Attendance = d.Attendance
	}
	c.view.MarksSeries = marks.Series(c.view.Marks, c.year)
	c.rebuildLocked()
	c.settleLocked()
	return nil
}

func (c *Composer) fetchFees(ctx context.Context, sess apiclient.Session, gen uint64, sid string, year int) error {
	fees, err := c.src.Fees(ctx, sess, sid, year)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.issued[slotFees] {
		return nil
	}
	c.done[slotFees] = gen
	if err != nil {
		c.failed = true
		ae := c.failLocked("fees", msgFees, err)
		c.settleLocked()
		return ae
	}
	c.view.Fees = fees
	c.settleLocked()
	return nil
}

func (c *Composer) fetchAttendance(ctx context.Context, sess apiclient.Session, gen uint64, sid, month string) error {
	recs, err := c.src.Attendance(ctx, sess, sid, month)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.issued[slotAttendance] {
		return nil
	}
	c.done[slotAttendance] = gen
	if err != nil {
		c.failed = true
		ae := c.failLocked("attendance", msgAttendance, err)
		c.settleLocked()
		return ae
	}
	c.view.Attendance = recs
	c.rebuildLocked()
	c.settleLocked()
	return nil
}

// writeMessage picks the text shown for a failed write: the server's message
// as sent, or fallback when the response carried none.
func writeMessage(err error, fallback string) string {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) && apiErr.FromServer && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
