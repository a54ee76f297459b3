package dashboard

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"tutoring/internal/calendar"
	"tutoring/internal/model"
)

var validate *validator.Validate

const (
	notBlankTag = "notblank"
	monthKeyTag = "monthkey"
	phoneTag    = "phone"
)

func init() {
	validate = validator.New()

	// report json names so messages can be keyed on them
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = validate.RegisterValidation(monthKeyTag, func(fl validator.FieldLevel) bool {
		_, _, err := calendar.ParseMonthKey(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation(phoneTag, func(fl validator.FieldLevel) bool {
		return model.ValidPhone(fl.Field().String())
	})
}

// ProfileForm edits a student profile. An empty Password leaves it unchanged;
// an empty ClassID leaves the grade unchanged.
type ProfileForm struct {
	FullName   string `json:"fullName" validate:"notblank,min=2"`
	Phone      string `json:"phone" validate:"omitempty,phone"`
	SchoolName string `json:"schoolName"`
	ClassID    string `json:"classId"`
	Password   string `json:"password" validate:"omitempty,min=6"`
}

var profileMessages = map[string]string{
	"fullName": "Full name must be at least 2 characters",
	"phone":    "Enter a valid phone number (ex: 07XXXXXXXX)",
	"password": "Password must be at least 6 characters",
}

// AttendanceForm marks one date.
type AttendanceForm struct {
	Date   string                 `json:"date" validate:"required,datetime=2006-01-02"`
	Status model.AttendanceStatus `json:"status" validate:"required,oneof=PRESENT ABSENT LATE EXCUSED"`
}

var attendanceMessages = map[string]string{
	"date":   "Pick a date",
	"status": "Pick an attendance status",
}

// FeeForm records the fee status of one month.
type FeeForm struct {
	Month    string          `json:"month" validate:"required,monthkey"`
	Status   model.FeeStatus `json:"status" validate:"required,oneof=PAID PENDING ABSENT"`
	PaidDate string          `json:"paidDate" validate:"omitempty,datetime=2006-01-02"`
}

var feeMessages = map[string]string{
	"month":    "Pick a month",
	"status":   "Pick a fee status",
	"paidDate": "Paid date must be a valid date",
}

// MarkForm adds a mark, or edits one when ID is set.
type MarkForm struct {
	ID       string  `json:"markId"`
	Month    string  `json:"month" validate:"required,monthkey"`
	Title    string  `json:"title" validate:"notblank"`
	Marks    float64 `json:"marks" validate:"gte=0"`
	MaxMarks float64 `json:"maxMarks" validate:"gt=0"`
}

var markMessages = map[string]string{
	"month":    "Pick a month",
	"title":    "Title is required",
	"marks":    "Marks cannot be negative",
	"maxMarks": "Max marks must be greater than zero",
}

// NoticeForm publishes a notice. An empty Grade targets the student's grade.
type NoticeForm struct {
	Grade     string     `json:"grade"`
	Title     string     `json:"title" validate:"notblank"`
	Message   string     `json:"message" validate:"notblank"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

var noticeMessages = map[string]string{
	"title":   "Title is required",
	"message": "Message is required",
}

// TimetableForm creates or replaces a timetable row.
type TimetableForm struct {
	Grade     string `json:"grade" validate:"notblank"`
	Day       string `json:"day" validate:"oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	Time      string `json:"time" validate:"notblank"`
	ClassType string `json:"classType" validate:"notblank"`
}

var timetableMessages = map[string]string{
	"grade":     "Grade is required",
	"day":       "Pick a weekday",
	"time":      "Time is required",
	"classType": "Class type is required",
}

// check validates form and returns the message of the first failing field.
func check(form any, messages map[string]string) (string, bool) {
	err := validate.Struct(form)
	if err == nil {
		return "", true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := messages[verrs[0].Field()]; ok {
			return msg, false
		}
	}
	return "Please check the form and try again", false
}
