package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tutoring/internal/model"
)

type timetableRequest struct {
	Grade     string `json:"grade"`
	Day       string `json:"day"`
	Time      string `json:"time"`
	ClassType string `json:"classType"`
}

func (r timetableRequest) row(id string) model.TimetableRow {
	return model.TimetableRow{ID: id, Grade: r.Grade, Day: r.Day, Time: r.Time, ClassType: r.ClassType}
}

func (h *Handler) timetable(c *gin.Context) {
	rows, err := h.svc.Timetable(c.Request.Context())
	if err != nil {
		respondErr(c, err, "Failed to load timetable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"timetable": rows})
}

func (h *Handler) createTimetableRow(c *gin.Context) {
	var req timetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid timetable row")
		return
	}
	row, err := h.svc.CreateTimetableRow(c.Request.Context(), req.row(""))
	if err != nil {
		respondErr(c, err, "Failed to create timetable row")
		return
	}
	c.JSON(http.StatusCreated, row)
}

func (h *Handler) updateTimetableRow(c *gin.Context) {
	var req timetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid timetable row")
		return
	}
	row := req.row(c.Param("id"))
	if err := h.svc.UpdateTimetableRow(c.Request.Context(), row); err != nil {
		respondErr(c, err, "Failed to update timetable row")
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *Handler) deleteTimetableRow(c *gin.Context) {
	if err := h.svc.DeleteTimetableRow(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err, "Failed to delete timetable row")
		return
	}
	c.Status(http.StatusNoContent)
}
