// Package handler exposes the institute service over a JSON REST API.
package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"tutoring/internal/auth"
	"tutoring/internal/calendar"
	"tutoring/internal/institute"
	"tutoring/internal/model"
)

// Options configures token issuing and verification.
type Options struct {
	SigningKey string
	Issuer     string
	AccessTTL  time.Duration
}

// Handler serves the REST API.
type Handler struct {
	svc  *institute.Service
	opts Options
	now  func() time.Time
}

var registerOnce sync.Once

// New builds a handler over svc.
func New(svc *institute.Service, opts Options) *Handler {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 24 * time.Hour
	}
	// request structs use the same custom tags as the service inputs
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			institute.RegisterValidations(v)
		}
	})
	return &Handler{svc: svc, opts: opts, now: time.Now}
}

// Register mounts every /api route on r.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.POST("/auth/login", h.login)
	api.GET("/timetable", h.timetable)

	authn := auth.Required(h.opts.SigningKey, h.opts.Issuer)

	st := api.Group("", authn, auth.RequireRole(model.RoleStudent))
	st.GET("/students/me", h.me)
	st.PUT("/students/me", h.updateMe)
	st.GET("/students/me/dashboard", h.myDashboard)
	st.GET("/attendance/me", h.myAttendance)
	st.GET("/fees/me", h.myFees)
	st.GET("/marks/me", h.myMarks)
	st.GET("/notices/me", h.myNotices)
	st.GET("/timetable/my-class", h.myTimetable)

	ad := api.Group("", authn, auth.RequireRole(model.RoleAdmin))
	ad.POST("/students", h.createStudent)
	ad.GET("/admin/students", h.listStudents)
	ad.GET("/admin/students/:id/dashboard", h.studentDashboard)
	ad.PUT("/admin/students/:id/profile", h.updateStudent)
	ad.GET("/admin/students/:id/attendance", h.studentAttendance)
	ad.POST("/admin/students/:id/attendance", h.upsertAttendance)
	ad.DELETE("/admin/students/:id/attendance", h.deleteAttendance)
	ad.GET("/admin/students/:id/fees", h.studentFees)
	ad.POST("/admin/students/:id/fees", h.upsertFee)
	ad.DELETE("/admin/students/:id/fees", h.deleteFee)
	ad.POST("/admin/students/:id/marks", h.saveMark)
	ad.DELETE("/admin/students/marks/:markId", h.deleteMark)
	ad.GET("/admin/students/:id/activity", h.activity)
	ad.POST("/admin/students/notices", h.createNotice)
	ad.DELETE("/admin/students/notices/:id", h.deleteNotice)
	ad.GET("/notices", h.listNotices)
	ad.POST("/timetable", h.createTimetableRow)
	ad.PUT("/timetable/:id", h.updateTimetableRow)
	ad.DELETE("/timetable/:id", h.deleteTimetableRow)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Email and password are required")
		return
	}
	user, err := h.svc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondErr(c, err, "Login failed")
		return
	}
	tok, err := auth.Issue(user.ID, user.Role, h.opts.Issuer, h.opts.SigningKey, h.opts.AccessTTL)
	if err != nil {
		log.Printf("issue token for %s: %v", user.ID, err)
		fail(c, http.StatusInternalServerError, "Login failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": tok.AccessToken, "expiresAt": tok.ExpiresAt, "user": user})
}

func fail(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{"message": msg})
}

// respondErr maps service errors to a status and a fixed message. Anything
// unrecognised is logged and answered with fallback.
func respondErr(c *gin.Context, err error, fallback string) {
	var ie *institute.InputError
	switch {
	case errors.As(err, &ie):
		fail(c, http.StatusBadRequest, ie.Msg)
	case errors.Is(err, institute.ErrInvalid):
		fail(c, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, institute.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, institute.ErrNotFound):
		fail(c, http.StatusNotFound, "Not found")
	case errors.Is(err, institute.ErrConflict):
		fail(c, http.StatusConflict, "Email already exists")
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		fail(c, http.StatusInternalServerError, fallback)
	}
}

func subject(c *gin.Context) string {
	claims, _ := auth.FromContext(c)
	return claims.Subject
}

// period reads ?year and ?month, defaulting to the current year and month.
func (h *Handler) period(c *gin.Context) (int, string, bool) {
	now := h.now()
	year := now.Year()
	if v := c.Query("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			fail(c, http.StatusBadRequest, "year must be YYYY")
			return 0, "", false
		}
		year = y
	}
	month := c.Query("month")
	if month == "" {
		month = calendar.MonthKey(now.Year(), int(now.Month())-1)
	}
	return year, month, true
}
