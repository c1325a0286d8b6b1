package enrollments

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/traintrack/backend/internal/courses"
	"github.com/traintrack/backend/internal/middleware"
	"github.com/traintrack/backend/internal/models"
	"github.com/traintrack/backend/pkg/queue"
	"github.com/traintrack/backend/pkg/response"
)

// CreateRequest is the body for POST /enrollments.
type CreateRequest struct {
	CourseID uuid.UUID `json:"courseId" binding:"required"`
}

// ProgressRequest is the body for PUT /enrollments/:id/progress.
type ProgressRequest struct {
	Progress int `json:"progress" binding:"min=0,max=100"`
}

// Handler handles enrollment HTTP endpoints.
type Handler struct {
	repo       *Repository
	courseRepo *courses.Repository
	jobs       *queue.Queue
	logger     *zap.Logger
}

// NewHandler creates an enrollments handler.
func NewHandler(repo *Repository, courseRepo *courses.Repository, jobs *queue.Queue, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, courseRepo: courseRepo, jobs: jobs, logger: logger}
}

// Create handles POST /enrollments.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	email := c.MustGet(middleware.ContextUserEmail).(string)

	course, err := h.courseRepo.GetByID(c.Request.Context(), req.CourseID)
	if err != nil {
		response.NotFound(c, "course not found")
		return
	}

	enrollment, err := h.repo.Create(c.Request.Context(), course.ID, userID)
	if err != nil {
		response.Conflict(c, "already enrolled in this course")
		return
	}

	if h.jobs != nil {
		err := h.jobs.EnqueueEnrollmentEmail(c.Request.Context(), queue.EnrollmentEmailPayload{
			EnrollmentID:   enrollment.ID,
			CourseID:       course.ID,
			RecipientEmail: email,
			CourseTitle:    course.Title,
		})
		if err != nil {
			h.logger.Warn("enqueue enrollment email", zap.Error(err))
		}
	}

	response.Created(c, enrollment)
}

// ListMine handles GET /enrollments/me.
func (h *Handler) ListMine(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to list enrollments")
		return
	}
	response.OK(c, list)
}

// UpdateProgress handles PUT /enrollments/:id/progress.
func (h *Handler) UpdateProgress(c *gin.Context) {
	enrollment, ok := h.ownEnrollment(c)
	if !ok {
		return
	}
	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "progress must be between 0 and 100")
		return
	}
	if err := h.repo.UpdateProgress(c.Request.Context(), enrollment.ID, req.Progress); err != nil {
		response.Internal(c, "failed to update progress")
		return
	}
	updated, err := h.repo.GetByID(c.Request.Context(), enrollment.ID)
	if err != nil {
		response.Internal(c, "failed to load enrollment")
		return
	}
	response.OK(c, updated)
}

// MarkCompleted handles PUT /enrollments/:id/complete.
func (h *Handler) MarkCompleted(c *gin.Context) {
	enrollment, ok := h.ownEnrollment(c)
	if !ok {
		return
	}
	if err := h.repo.MarkCompleted(c.Request.Context(), enrollment.ID); err != nil {
		response.Internal(c, "failed to mark enrollment completed")
		return
	}
	updated, err := h.repo.GetByID(c.Request.Context(), enrollment.ID)
	if err != nil {
		response.Internal(c, "failed to load enrollment")
		return
	}
	response.OK(c, updated)
}

// Stats handles GET /enrollments/stats (trainer/manager/admin). Trainers see
// their own courses; managers and admins see everything.
func (h *Handler) Stats(c *gin.Context) {
	role := c.MustGet(middleware.ContextUserRole).(models.Role)
	var trainerID *uuid.UUID
	if role == models.RoleTrainer {
		id := c.MustGet(middleware.ContextUserID).(uuid.UUID)
		trainerID = &id
	}
	stats, err := h.repo.Stats(c.Request.Context(), trainerID)
	if err != nil {
		response.Internal(c, "failed to compute stats")
		return
	}
	response.OK(c, stats)
}

// ownEnrollment loads the :id enrollment and checks it belongs to the caller.
func (h *Handler) ownEnrollment(c *gin.Context) (*models.Enrollment, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid enrollment id")
		return nil, false
	}
	enrollment, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "enrollment not found")
		return nil, false
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if enrollment.UserID != userID {
		response.Forbidden(c, "not your enrollment")
		return nil, false
	}
	return enrollment, true
}
