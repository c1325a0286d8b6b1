package courses

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/traintrack/backend/internal/middleware"
	"github.com/traintrack/backend/internal/models"
	"github.com/traintrack/backend/pkg/response"
)

// CreateRequest is the body for POST /courses.
type CreateRequest struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	Level         string `json:"level" binding:"omitempty,oneof=beginner intermediate advanced"`
	DurationHours int    `json:"duration_hours"`
}

// UpdateRequest is the body for PUT /courses/:id.
type UpdateRequest struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	Level         string `json:"level" binding:"omitempty,oneof=beginner intermediate advanced"`
	DurationHours int    `json:"duration_hours"`
}

// Handler handles course HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a courses handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// List handles GET /courses.
func (h *Handler) List(c *gin.Context) {
	var trainerID *uuid.UUID
	if s := c.Query("trainer_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			response.BadRequest(c, "invalid trainer_id")
			return
		}
		trainerID = &id
	}
	list, err := h.repo.List(c.Request.Context(), trainerID)
	if err != nil {
		response.Internal(c, "failed to list courses")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /courses/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	course, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "course not found")
		return
	}
	response.OK(c, course)
}

// Create handles POST /courses (trainer/manager/admin).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	level := req.Level
	if level == "" {
		level = "beginner"
	}
	course := &models.Course{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Level:         level,
		DurationHours: req.DurationHours,
		TrainerID:     userID,
	}
	if err := h.repo.Create(c.Request.Context(), course); err != nil {
		response.Internal(c, "failed to create course")
		return
	}
	response.Created(c, course)
}

// Update handles PUT /courses/:id (owner or manager/admin).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	if !h.canManage(c, id) {
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	level := req.Level
	if level == "" {
		level = "beginner"
	}
	if err := h.repo.Update(c.Request.Context(), id, req.Title, req.Description, req.Category, level, req.DurationHours); err != nil {
		response.Internal(c, "failed to update course")
		return
	}
	course, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "course not found")
		return
	}
	response.OK(c, course)
}

// Delete handles DELETE /courses/:id (owner or manager/admin).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	if !h.canManage(c, id) {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete course")
		return
	}
	response.NoContent(c)
}

// canManage allows the owning trainer, managers and admins. Writes the error
// response itself and returns false when access is denied.
func (h *Handler) canManage(c *gin.Context, courseID uuid.UUID) bool {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role := c.MustGet(middleware.ContextUserRole).(models.Role)
	if role == models.RoleManager || role == models.RoleAdmin {
		return true
	}
	ok, err := h.repo.IsOwner(c.Request.Context(), courseID, userID)
	if err != nil {
		response.NotFound(c, "course not found")
		return false
	}
	if !ok {
		response.Forbidden(c, "only the course trainer can modify this course")
		return false
	}
	return true
}
