package dashboard

import (
	"context"
	"strings"

	"tutoring/internal/apiclient"
	"tutoring/internal/model"
)

// mutate runs write and, on success, fetches the full aggregate again, so the
// view only shows server-confirmed data. Forms are checked by the caller.
func (c *Composer) mutate(ctx context.Context, sess apiclient.Session, action, failMsg, okMsg string, write func(studentID string) error) error {
	c.mu.Lock()
	if !c.opened {
		c.mu.Unlock()
		return ErrNotOpen
	}
	sid := c.studentID
	c.view.Err, c.view.Msg = "", ""
	c.mu.Unlock()

	if err := write(sid); err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		ae := c.failLocked(action, writeMessage(err, failMsg), err)
		c.settleLocked()
		return ae
	}

	c.mu.Lock()
	c.view.Msg = okMsg
	c.mu.Unlock()
	return c.refetch(ctx, sess, false)
}

func (c *Composer) invalid(action, msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.Err, c.view.Msg = msg, ""
	return &ActionError{Action: action, Message: msg}
}

// UpdateProfile saves the profile form.
func (c *Composer) UpdateProfile(ctx context.Context, sess apiclient.Session, f ProfileForm) error {
	if msg, ok := check(f, profileMessages); !ok {
		return c.invalid("profile", msg)
	}
	in := apiclient.ProfileInput{FullName: &f.FullName, Phone: &f.Phone, SchoolName: &f.SchoolName}
	if f.ClassID != "" {
		in.ClassID = &f.ClassID
	}
	if f.Password != "" {
		in.Password = &f.Password
	}
	return c.mutate(ctx, sess, "profile", "Failed to update profile", "Profile updated", func(sid string) error {
		_, err := c.w.UpdateProfile(ctx, sess, sid, in)
		return err
	})
}

// UpsertAttendance marks one date.
func (c *Composer) UpsertAttendance(ctx context.Context, sess apiclient.Session, f AttendanceForm) error {
	f.Status = model.AttendanceStatus(strings.ToUpper(string(f.Status)))
	if msg, ok := check(f, attendanceMessages); !ok {
		return c.invalid("attendance", msg)
	}
	return c.mutate(ctx, sess, "attendance", "Failed to save attendance", "Attendance saved", func(sid string) error {
		return c.w.UpsertAttendance(ctx, sess, sid, f.Date, f.Status)
	})
}

// DeleteAttendance clears one date.
func (c *Composer) DeleteAttendance(ctx context.Context, sess apiclient.Session, date string) error {
	if msg, ok := check(AttendanceForm{Date: date, Status: model.Present}, attendanceMessages); !ok {
		return c.invalid("attendance", msg)
	}
	return c.mutate(ctx, sess, "attendance", "Failed to delete attendance", "Attendance cleared", func(sid string) error {
		return c.w.DeleteAttendance(ctx, sess, sid, date)
	})
}

// UpsertFee records the fee status of one month.
func (c *Composer) UpsertFee(ctx context.Context, sess apiclient.Session, f FeeForm) error {
	f.Status = model.FeeStatus(strings.ToUpper(string(f.Status)))
	if msg, ok := check(f, feeMessages); !ok {
		return c.invalid("fees", msg)
	}
	return c.mutate(ctx, sess, "fees", "Failed to save fee", "Fee saved", func(sid string) error {
		return c.w.UpsertFee(ctx, sess, sid, f.Month, f.Status, f.PaidDate)
	})
}

// DeleteFee clears the fee record of one month.
func (c *Composer) DeleteFee(ctx context.Context, sess apiclient.Session, month string) error {
	if msg, ok := check(FeeForm{Month: month, Status: model.FeePaid}, feeMessages); !ok {
		return c.invalid("fees", msg)
	}
	return c.mutate(ctx, sess, "fees", "Failed to delete fee", "Fee cleared", func(sid string) error {
		return c.w.DeleteFee(ctx, sess, sid, month)
	})
}

// AddMark stores a new mark.
func (c *Composer) AddMark(ctx context.Context, sess apiclient.Session, f MarkForm) error {
	f.ID = ""
	return c.saveMark(ctx, sess, f, "Mark added")
}

// UpdateMark edits an existing mark.
func (c *Composer) UpdateMark(ctx context.Context, sess apiclient.Session, f MarkForm) error {
	if f.ID == "" {
		return c.invalid("marks", "Pick a mark to edit")
	}
	return c.saveMark(ctx, sess, f, "Mark updated")
}

func (c *Composer) saveMark(ctx context.Context, sess apiclient.Session, f MarkForm, okMsg string) error {
	if msg, ok := check(f, markMessages); !ok {
		return c.invalid("marks", msg)
	}
	in := apiclient.MarkInput{MarkID: f.ID, Month: f.Month, Title: strings.TrimSpace(f.Title), Marks: f.Marks, MaxMarks: f.MaxMarks}
	return c.mutate(ctx, sess, "marks", "Failed to save mark", okMsg, func(sid string) error {
		_, err := c.w.SaveMark(ctx, sess, sid, in)
		return err
	})
}

// DeleteMark removes a mark.
func (c *Composer) DeleteMark(ctx context.Context, sess apiclient.Session, markID string) error {
	if markID == "" {
		return c.invalid("marks", "Pick a mark to delete")
	}
	return c.mutate(ctx, sess, "marks", "Failed to delete mark", "Mark deleted", func(string) error {
		return c.w.DeleteMark(ctx, sess, markID)
	})
}

// CreateNotice publishes a notice, by default to the student's grade or to
// everyone when the student has none.
func (c *Composer) CreateNotice(ctx context.Context, sess apiclient.Session, f NoticeForm) error {
	if msg, ok := check(f, noticeMessages); !ok {
		return c.invalid("notices", msg)
	}
	if f.Grade == "" {
		c.mu.Lock()
		f.Grade = c.view.Student.ClassID
		c.mu.Unlock()
		if f.Grade == "" {
			f.Grade = model.GradeAll
		}
	}
	in := apiclient.NoticeInput{Grade: f.Grade, Title: strings.TrimSpace(f.Title), Message: strings.TrimSpace(f.Message), ExpiresAt: f.ExpiresAt}
	return c.mutate(ctx, sess, "notices", "Failed to create notice", "Notice published", func(string) error {
		_, err := c.w.CreateNotice(ctx, sess, in)
		return err
	})
}

// DeleteNotice removes a notice.
func (c *Composer) DeleteNotice(ctx context.Context, sess apiclient.Session, id string) error {
	if id == "" {
		return c.invalid("notices", "Pick a notice to delete")
	}
	return c.mutate(ctx, sess, "notices", "Failed to delete notice", "Notice deleted", func(string) error {
		return c.w.DeleteNotice(ctx, sess, id)
	})
}
