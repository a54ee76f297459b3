package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tutoring/internal/institute"
	"tutoring/internal/metrics"
	"tutoring/internal/model"
)

// profileRequest leaves absent fields unchanged; an empty password too.
type profileRequest struct {
	FullName   *string `json:"fullName" binding:"omitempty,min=2"`
	Phone      *string `json:"phone" binding:"omitempty,phone"`
	SchoolName *string `json:"schoolName"`
	ClassID    *string `json:"classId" binding:"omitempty,min=3"`
	Password   string  `json:"password" binding:"omitempty,min=6"`
}

func (r profileRequest) update() institute.ProfileUpdate {
	u := institute.ProfileUpdate{
		FullName:   r.FullName,
		Phone:      r.Phone,
		SchoolName: r.SchoolName,
		ClassID:    r.ClassID,
	}
	if r.Password != "" {
		u.Password = &r.Password
	}
	return u
}

func (h *Handler) me(c *gin.Context) {
	p, err := h.svc.Student(c.Request.Context(), subject(c))
	if err != nil {
		respondErr(c, err, "Failed to load profile")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) updateMe(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, institute.ValidationMessage(err, "Invalid profile"))
		return
	}
	// students cannot move themselves between grades
	req.ClassID = nil
	p, err := h.svc.UpdateStudent(c.Request.Context(), subject(c), req.update())
	if err != nil {
		respondErr(c, err, "Failed to update profile")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) myDashboard(c *gin.Context) {
	h.dashboard(c, subject(c), false, model.RoleStudent)
}

func (h *Handler) studentDashboard(c *gin.Context) {
	h.dashboard(c, c.Param("id"), true, model.RoleAdmin)
}

func (h *Handler) dashboard(c *gin.Context, studentID string, withExpired bool, viewer model.Role) {
	year, month, ok := h.period(c)
	if !ok {
		return
	}
	d, err := h.svc.Dashboard(c.Request.Context(), studentID, year, month, withExpired)
	if err != nil {
		respondErr(c, err, "Failed to load dashboard")
		return
	}
	metrics.DashboardBuilds.WithLabelValues(string(viewer)).Inc()
	c.JSON(http.StatusOK, d)
}

func (h *Handler) myAttendance(c *gin.Context) {
	_, month, ok := h.period(c)
	if !ok {
		return
	}
	recs, err := h.svc.Attendance(c.Request.Context(), subject(c), month)
	if err != nil {
		respondErr(c, err, "Failed to load attendance")
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

func (h *Handler) myFees(c *gin.Context) {
	year, _, ok := h.period(c)
	if !ok {
		return
	}
	recs, err := h.svc.Fees(c.Request.Context(), subject(c), strconv.Itoa(year))
	if err != nil {
		respondErr(c, err, "Failed to load fees")
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

func (h *Handler) myMarks(c *gin.Context) {
	marks, err := h.svc.Marks(c.Request.Context(), subject(c))
	if err != nil {
		respondErr(c, err, "Failed to load marks")
		return
	}
	c.JSON(http.StatusOK, gin.H{"marks": marks})
}

func (h *Handler) myNotices(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := h.svc.Student(ctx, subject(c))
	if err != nil {
		respondErr(c, err, "Failed to load notices")
		return
	}
	notices, err := h.svc.VisibleNotices(ctx, p.ClassID)
	if err != nil {
		respondErr(c, err, "Failed to load notices")
		return
	}
	c.JSON(http.StatusOK, gin.H{"grade": p.ClassID, "notices": notices})
}

func (h *Handler) myTimetable(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := h.svc.Student(ctx, subject(c))
	if err != nil {
		respondErr(c, err, "Failed to load timetable")
		return
	}
	rows, err := h.svc.TimetableFor(ctx, p.ClassID)
	if err != nil {
		respondErr(c, err, "Failed to load timetable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"grade": p.ClassID, "timetable": rows})
}
