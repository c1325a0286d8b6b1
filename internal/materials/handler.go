package materials

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/traintrack/backend/internal/courses"
	"github.com/traintrack/backend/internal/middleware"
	"github.com/traintrack/backend/internal/models"
	"github.com/traintrack/backend/pkg/response"
	"github.com/traintrack/backend/pkg/storage"
)

// Handler handles course material HTTP endpoints.
type Handler struct {
	repo       *Repository
	courseRepo *courses.Repository
	s3         *storage.S3
	logger     *zap.Logger
}

// NewHandler creates a materials handler.
func NewHandler(repo *Repository, courseRepo *courses.Repository, s3 *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, courseRepo: courseRepo, s3: s3, logger: logger}
}

// canManage reports whether the user may modify a course's materials: the
// owning trainer, or a manager/admin.
func (h *Handler) canManage(c *gin.Context, courseID uuid.UUID) bool {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role := c.MustGet(middleware.ContextUserRole).(models.Role)
	if role == models.RoleManager || role == models.RoleAdmin {
		return true
	}
	owner, err := h.courseRepo.IsOwner(c.Request.Context(), courseID, userID)
	return err == nil && owner
}

// Upload handles POST /courses/:id/materials (trainer+, multipart form field "file").
func (h *Handler) Upload(c *gin.Context) {
	if h.s3 == nil {
		response.Internal(c, "S3 not configured")
		return
	}
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	if !h.canManage(c, courseID) {
		response.Forbidden(c, "not authorized to manage materials for this course")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file (form field: file)")
		return
	}
	if file.Size > storage.MaxMaterialFileSize {
		response.BadRequest(c, "file size exceeds 100MB limit")
		return
	}
	if !storage.ValidateMaterialFileType(file.Header.Get("Content-Type"), file.Filename) {
		response.BadRequest(c, "unsupported file type for course materials")
		return
	}

	contentType := storage.ContentTypeForFilename(file.Filename)
	if ct := file.Header.Get("Content-Type"); ct != "" {
		if _, ok := storage.AllowedMaterialTypes[ct]; ok {
			contentType = ct
		}
	}

	materialID := uuid.New()
	key := storage.MaterialKey(courseID.String(), materialID.String(), file.Filename)
	rc, err := file.Open()
	if err != nil {
		h.logger.Error("open uploaded file failed", zap.Error(err))
		response.Internal(c, "failed to read file")
		return
	}
	defer rc.Close()

	if _, err := h.s3.Upload(c.Request.Context(), h.s3.MaterialsBucket(), key, contentType, rc, file.Size); err != nil {
		h.logger.Error("S3 upload failed", zap.Error(err), zap.String("course_id", courseID.String()), zap.String("key", key))
		response.Internal(c, "failed to upload file to storage")
		return
	}

	material := &models.Material{
		ID:          materialID,
		CourseID:    courseID,
		Filename:    file.Filename,
		S3Key:       key,
		ContentType: contentType,
		SizeBytes:   file.Size,
		UploadedBy:  c.MustGet(middleware.ContextUserID).(uuid.UUID),
	}
	if err := h.repo.Create(c.Request.Context(), material); err != nil {
		h.logger.Error("create material failed", zap.Error(err))
		_ = h.s3.DeleteMaterial(c.Request.Context(), key)
		response.Internal(c, "failed to save material")
		return
	}
	response.Created(c, material)
}

// ListByCourse handles GET /courses/:id/materials.
func (h *Handler) ListByCourse(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	list, err := h.repo.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		h.logger.Error("list materials failed", zap.Error(err))
		response.Internal(c, "failed to list materials")
		return
	}
	response.OK(c, list)
}

// GenerateDownloadURL handles GET /materials/:id/download-url.
func (h *Handler) GenerateDownloadURL(c *gin.Context) {
	if h.s3 == nil {
		response.Internal(c, "S3 not configured")
		return
	}
	materialID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid material id")
		return
	}
	material, err := h.repo.GetByID(c.Request.Context(), materialID)
	if err != nil {
		response.NotFound(c, "material not found")
		return
	}

	expire := h.s3.PresignExpire()
	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), h.s3.MaterialsBucket(), material.S3Key, expire)
	if err != nil {
		h.logger.Error("presign material download failed", zap.Error(err), zap.String("material_id", materialID.String()))
		response.Internal(c, "failed to generate download URL")
		return
	}
	response.OK(c, gin.H{"download_url": url, "expires_in": int(expire.Seconds())})
}

// Delete handles DELETE /materials/:id (trainer+ and course owner).
func (h *Handler) Delete(c *gin.Context) {
	materialID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid material id")
		return
	}
	material, err := h.repo.GetByID(c.Request.Context(), materialID)
	if err != nil {
		response.NotFound(c, "material not found")
		return
	}
	if !h.canManage(c, material.CourseID) {
		response.Forbidden(c, "not authorized to manage materials for this course")
		return
	}

	if err := h.repo.Delete(c.Request.Context(), materialID); err != nil {
		h.logger.Error("delete material failed", zap.Error(err))
		response.Internal(c, "failed to delete material")
		return
	}
	if h.s3 != nil {
		if err := h.s3.DeleteMaterial(c.Request.Context(), material.S3Key); err != nil {
			h.logger.Warn("delete S3 object failed", zap.Error(err), zap.String("key", material.S3Key))
		}
	}
	response.NoContent(c)
}
