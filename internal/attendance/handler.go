package attendance

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/traintrack/backend/internal/middleware"
	"github.com/traintrack/backend/internal/models"
	"github.com/traintrack/backend/pkg/response"
)

// RecordRequest is the body for POST /attendance.
type RecordRequest struct {
	CourseID  uuid.UUID  `json:"courseId" binding:"required"`
	SessionID *uuid.UUID `json:"sessionId"`
	UserID    uuid.UUID  `json:"userId" binding:"required"`
	Date      string     `json:"date"` // YYYY-MM-DD, defaults to today
	Status    string     `json:"status" binding:"required"`
}

// ListResponse bundles records with their summary.
type ListResponse struct {
	Records []models.AttendanceRecord `json:"records"`
	Summary models.AttendanceSummary  `json:"summary"`
}

// Handler handles attendance HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates an attendance handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Record handles POST /attendance (trainer/manager/admin).
func (h *Handler) Record(c *gin.Context) {
	var req RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	status, err := models.ParseAttendanceStatus(req.Status)
	if err != nil {
		response.BadRequest(c, "status must be present or absent")
		return
	}
	date := time.Now()
	if req.Date != "" {
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			response.BadRequest(c, "date must be YYYY-MM-DD")
			return
		}
	}
	recordedBy := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	rec := &models.AttendanceRecord{
		CourseID:   req.CourseID,
		SessionID:  req.SessionID,
		UserID:     req.UserID,
		Date:       date,
		Status:     status,
		RecordedBy: recordedBy,
	}
	if err := h.repo.Record(c.Request.Context(), rec); err != nil {
		response.Internal(c, "failed to record attendance")
		return
	}
	response.Created(c, rec)
}

// ListByCourse handles GET /attendance/course/:id (trainer/manager/admin).
func (h *Handler) ListByCourse(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	records, err := h.repo.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		response.Internal(c, "failed to list attendance")
		return
	}
	response.OK(c, ListResponse{Records: records, Summary: Summarize(records)})
}

// ListMine handles GET /attendance/me.
func (h *Handler) ListMine(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	records, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to list attendance")
		return
	}
	response.OK(c, ListResponse{Records: records, Summary: Summarize(records)})
}
