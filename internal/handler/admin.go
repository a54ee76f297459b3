package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tutoring/internal/institute"
	"tutoring/internal/model"
)

type createStudentRequest struct {
	FullName   string `json:"fullName" binding:"required,min=2"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=6"`
	StudentID  string `json:"studentId" binding:"required,min=2"`
	ClassID    string `json:"classId" binding:"omitempty,min=3"`
	Phone      string `json:"phone" binding:"omitempty,phone"`
	SchoolName string `json:"schoolName"`
}

func (h *Handler) createStudent(c *gin.Context) {
	var req createStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, institute.ValidationMessage(err, "Invalid student"))
		return
	}
	p, err := h.svc.CreateStudent(c.Request.Context(), institute.NewStudent(req))
	if err != nil {
		respondErr(c, err, "Failed to create student")
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) listStudents(c *gin.Context) {
	f := institute.StudentFilter{Grade: c.Query("grade"), Query: c.Query("q")}
	if v := c.Query("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			fail(c, http.StatusBadRequest, "year must be YYYY")
			return
		}
		f.Year = y
	}
	students, err := h.svc.Students(c.Request.Context(), f)
	if err != nil {
		respondErr(c, err, "Failed to load students")
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (h *Handler) updateStudent(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, institute.ValidationMessage(err, "Invalid profile"))
		return
	}
	p, err := h.svc.UpdateStudent(c.Request.Context(), c.Param("id"), req.update())
	if err != nil {
		respondErr(c, err, "Failed to update profile")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) studentAttendance(c *gin.Context) {
	_, month, ok := h.period(c)
	if !ok {
		return
	}
	recs, err := h.svc.Attendance(c.Request.Context(), c.Param("id"), month)
	if err != nil {
		respondErr(c, err, "Failed to load attendance")
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

type attendanceRequest struct {
	Date   string                 `json:"date"`
	Status model.AttendanceStatus `json:"status"`
}

func (h *Handler) upsertAttendance(c *gin.Context) {
	var req attendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid attendance")
		return
	}
	rec := model.AttendanceRecord{
		StudentID: c.Param("id"),
		Date:      req.Date,
		Status:    model.AttendanceStatus(strings.ToUpper(string(req.Status))),
	}
	if err := h.svc.UpsertAttendance(c.Request.Context(), rec); err != nil {
		respondErr(c, err, "Failed to save attendance")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) deleteAttendance(c *gin.Context) {
	if err := h.svc.DeleteAttendance(c.Request.Context(), c.Param("id"), c.Query("date")); err != nil {
		respondErr(c, err, "Failed to delete attendance")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) studentFees(c *gin.Context) {
	year, _, ok := h.period(c)
	if !ok {
		return
	}
	recs, err := h.svc.Fees(c.Request.Context(), c.Param("id"), strconv.Itoa(year))
	if err != nil {
		respondErr(c, err, "Failed to load fees")
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

type feeRequest struct {
	Month    string          `json:"month"`
	Status   model.FeeStatus `json:"status"`
	PaidDate *string         `json:"paidDate"`
}

func (h *Handler) upsertFee(c *gin.Context) {
	var req feeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid fee")
		return
	}
	rec := model.FeeRecord{
		StudentID: c.Param("id"),
		Month:     req.Month,
		Status:    model.FeeStatus(strings.ToUpper(string(req.Status))),
		PaidDate:  req.PaidDate,
	}
	if err := h.svc.UpsertFee(c.Request.Context(), rec); err != nil {
		respondErr(c, err, "Failed to save fee")
		return
	}
	c.JSON(http.StatusOK, gin.H{"studentId": rec.StudentID, "month": rec.Month, "status": rec.Status})
}

func (h *Handler) deleteFee(c *gin.Context) {
	if err := h.svc.DeleteFee(c.Request.Context(), c.Param("id"), c.Query("month")); err != nil {
		respondErr(c, err, "Failed to delete fee")
		return
	}
	c.Status(http.StatusNoContent)
}

type markRequest struct {
	MarkID   string  `json:"markId"`
	Month    string  `json:"month"`
	Title    string  `json:"title"`
	Marks    float64 `json:"marks"`
	MaxMarks float64 `json:"maxMarks"`
}

func (h *Handler) saveMark(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid mark")
		return
	}
	m, err := h.svc.SaveMark(c.Request.Context(), model.MarkRecord{
		ID:        req.MarkID,
		StudentID: c.Param("id"),
		Month:     req.Month,
		Title:     req.Title,
		Marks:     req.Marks,
		MaxMarks:  req.MaxMarks,
	})
	if err != nil {
		respondErr(c, err, "Failed to save mark")
		return
	}
	code := http.StatusCreated
	if req.MarkID != "" {
		code = http.StatusOK
	}
	c.JSON(code, m)
}

func (h *Handler) deleteMark(c *gin.Context) {
	if err := h.svc.DeleteMark(c.Request.Context(), c.Param("markId")); err != nil {
		respondErr(c, err, "Failed to delete mark")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) activity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	acts, err := h.svc.Activity(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondErr(c, err, "Failed to load activity")
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": acts})
}

type noticeRequest struct {
	Grade     string     `json:"grade"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

func (h *Handler) createNotice(c *gin.Context) {
	var req noticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid notice")
		return
	}
	n, err := h.svc.CreateNotice(c.Request.Context(), model.Notice{
		Grade:     req.Grade,
		Title:     req.Title,
		Message:   req.Message,
		CreatedBy: subject(c),
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		respondErr(c, err, "Failed to create notice")
		return
	}
	c.JSON(http.StatusCreated, n)
}

func (h *Handler) listNotices(c *gin.Context) {
	notices, err := h.svc.Notices(c.Request.Context(), c.Query("grade"))
	if err != nil {
		respondErr(c, err, "Failed to load notices")
		return
	}
	c.JSON(http.StatusOK, gin.H{"notices": notices})
}

func (h *Handler) deleteNotice(c *gin.Context) {
	if err := h.svc.DeleteNotice(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err, "Failed to delete notice")
		return
	}
	c.Status(http.StatusNoContent)
}
