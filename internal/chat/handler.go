package chat

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/traintrack/backend/pkg/response"
)

const defaultHistoryLimit = 200

// Handler handles chat history HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a chat handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// ListBySession handles GET /training-sessions/:id/chat.
func (h *Handler) ListBySession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	messages, err := h.repo.ListBySession(c.Request.Context(), sessionID, limit)
	if err != nil {
		h.logger.Error("failed to list chat messages", zap.Error(err))
		response.Internal(c, "failed to list chat messages")
		return
	}
	response.OK(c, messages)
}
