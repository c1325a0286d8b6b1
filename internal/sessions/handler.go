package sessions

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/traintrack/backend/internal/middleware"
	"github.com/traintrack/backend/internal/models"
	"github.com/traintrack/backend/pkg/queue"
	"github.com/traintrack/backend/pkg/response"
)

// CreateRequest is the body for POST /training-sessions.
type CreateRequest struct {
	CourseID        uuid.UUID `json:"courseId" binding:"required"`
	Title           string    `json:"title" binding:"required"`
	Description     string    `json:"description"`
	ScheduledFor    time.Time `json:"scheduledFor" binding:"required"`
	DurationMinutes int       `json:"duration"`
	StreamURL       string    `json:"streamUrl"`
}

// UpdateRequest is the body for PUT /training-sessions/:id.
type UpdateRequest struct {
	Title           string `json:"title" binding:"required"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"duration"`
	StreamURL       string `json:"streamUrl"`
}

// LiveHub is the realtime surface the session endpoints need: the room size
// for a session, and closing its open question when the session ends.
type LiveHub interface {
	ParticipantCount(sessionID uuid.UUID) int
	CloseSession(sessionID uuid.UUID)
}

// Handler handles training session HTTP endpoints.
type Handler struct {
	repo   *Repository
	jobs   *queue.Queue
	hub    LiveHub
	logger *zap.Logger
}

// NewHandler creates a sessions handler.
func NewHandler(repo *Repository, jobs *queue.Queue, hub LiveHub, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jobs: jobs, hub: hub, logger: logger}
}

// ListActive handles GET /training-sessions/active.
func (h *Handler) ListActive(c *gin.Context) {
	list, err := h.repo.ListActive(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list sessions")
		return
	}
	response.OK(c, list)
}

// ListScheduled handles GET /training-sessions/scheduled.
func (h *Handler) ListScheduled(c *gin.Context) {
	list, err := h.repo.ListScheduled(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list sessions")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /training-sessions/:id.
func (h *Handler) GetByID(c *gin.Context) {
	session, ok := h.load(c)
	if !ok {
		return
	}
	count := 0
	if h.hub != nil {
		count = h.hub.ParticipantCount(session.ID)
	}
	response.OK(c, gin.H{"session": session, "participant_count": count})
}

// Create handles POST /training-sessions (trainer/manager/admin).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	trainerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	duration := req.DurationMinutes
	if duration <= 0 {
		duration = 60
	}
	session := &models.TrainingSession{
		CourseID:        req.CourseID,
		TrainerID:       trainerID,
		Title:           req.Title,
		Description:     req.Description,
		ScheduledFor:    req.ScheduledFor,
		DurationMinutes: duration,
		StreamURL:       req.StreamURL,
	}
	if err := h.repo.Create(c.Request.Context(), session); err != nil {
		h.logger.Error("create session", zap.Error(err))
		response.Internal(c, "failed to create session")
		return
	}
	response.Created(c, session)
}

// Update handles PUT /training-sessions/:id (owning trainer or manager/admin).
func (h *Handler) Update(c *gin.Context) {
	session, ok := h.loadOwned(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	duration := req.DurationMinutes
	if duration <= 0 {
		duration = session.DurationMinutes
	}
	if err := h.repo.Update(c.Request.Context(), session.ID, req.Title, req.Description, req.StreamURL, duration); err != nil {
		response.Internal(c, "failed to update session")
		return
	}
	updated, err := h.repo.GetByID(c.Request.Context(), session.ID)
	if err != nil {
		response.Internal(c, "failed to load session")
		return
	}
	response.OK(c, updated)
}

// Start handles POST /training-sessions/:id/start (owning trainer or manager/admin).
func (h *Handler) Start(c *gin.Context) {
	session, ok := h.loadOwned(c)
	if !ok {
		return
	}
	if session.IsActive {
		response.Conflict(c, "session already started")
		return
	}
	if session.EndedAt != nil {
		response.Conflict(c, "session already ended")
		return
	}
	if err := h.repo.Start(c.Request.Context(), session.ID); err != nil {
		response.Internal(c, "failed to start session")
		return
	}
	updated, _ := h.repo.GetByID(c.Request.Context(), session.ID)
	response.OK(c, updated)
}

// End handles POST /training-sessions/:id/end (owning trainer or manager/admin).
// Ending enqueues a session report job so attendance is rolled up in the background.
func (h *Handler) End(c *gin.Context) {
	session, ok := h.loadOwned(c)
	if !ok {
		return
	}
	if !session.IsActive {
		response.Conflict(c, "session is not active")
		return
	}
	if err := h.repo.End(c.Request.Context(), session.ID); err != nil {
		response.Internal(c, "failed to end session")
		return
	}
	if h.hub != nil {
		// Flush any still-open question so its final stats are persisted.
		h.hub.CloseSession(session.ID)
	}
	if h.jobs != nil {
		err := h.jobs.EnqueueSessionReport(c.Request.Context(), queue.SessionReportPayload{
			SessionID: session.ID,
			CourseID:  session.CourseID,
			TrainerID: session.TrainerID,
			EndedAt:   time.Now(),
		})
		if err != nil {
			h.logger.Warn("enqueue session report", zap.Error(err))
		}
	}
	updated, _ := h.repo.GetByID(c.Request.Context(), session.ID)
	response.OK(c, updated)
}

// Join handles POST /training-sessions/:id/join. This is the REST join that
// registers interest in the session; the realtime join happens over the socket.
func (h *Handler) Join(c *gin.Context) {
	session, ok := h.load(c)
	if !ok {
		return
	}
	if !session.IsActive {
		response.Conflict(c, "session is not live")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if err := h.repo.LogJoin(c.Request.Context(), session.ID, userID); err != nil {
		response.Internal(c, "failed to join session")
		return
	}
	response.OK(c, gin.H{"session_id": session.ID, "joined": true})
}

// ListParticipants handles GET /training-sessions/:id/participants (trainer/manager/admin).
func (h *Handler) ListParticipants(c *gin.Context) {
	session, ok := h.load(c)
	if !ok {
		return
	}
	list, err := h.repo.ListParticipants(c.Request.Context(), session.ID)
	if err != nil {
		response.Internal(c, "failed to list participants")
		return
	}
	response.OK(c, list)
}

func (h *Handler) load(c *gin.Context) (*models.TrainingSession, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return nil, false
	}
	session, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "session not found")
		return nil, false
	}
	return session, true
}

func (h *Handler) loadOwned(c *gin.Context) (*models.TrainingSession, bool) {
	session, ok := h.load(c)
	if !ok {
		return nil, false
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role := c.MustGet(middleware.ContextUserRole).(models.Role)
	if role != models.RoleManager && role != models.RoleAdmin && session.TrainerID != userID {
		response.Forbidden(c, "only the session trainer can do this")
		return nil, false
	}
	return session, true
}
