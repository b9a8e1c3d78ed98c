package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clearlane/inspection-backend/internal/logger"
	"github.com/clearlane/inspection-backend/internal/services"
)

// maxPhotoBytes caps a single multipart photo part. Larger parts are
// rejected outright, never truncated.
const maxPhotoBytes = 32 << 20

type UploadHandler struct {
	log           *logger.Logger
	uploadService services.UploadService
	rateLimiter   services.RateLimiter

	// Overridable in tests.
	maxPhotoBytes int64
	openPhoto     func(*multipart.FileHeader) (multipart.File, error)
}

func NewUploadHandler(log *logger.Logger, usvc services.UploadService, limiter services.RateLimiter) *UploadHandler {
	return &UploadHandler{
		log:           log.With("handler", "UploadHandler"),
		uploadService: usvc,
		rateLimiter:   limiter,
		maxPhotoBytes: maxPhotoBytes,
		openPhoto: func(fh *multipart.FileHeader) (multipart.File, error) {
			return fh.Open()
		},
	}
}

// POST /api/inspections/:id/uploads
// Seller-facing intake: multipart "photo" plus the single-purpose upload token.
func (h *UploadHandler) Upload(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}

	if h.rateLimiter != nil && !h.rateLimiter.Allow(c.Request.Context(), "upload:"+id.String()) {
		RespondError(c, http.StatusTooManyRequests, "rate_limited", errors.New("too many uploads, slow down"))
		return
	}

	token := extractUploadToken(c)

	in := services.IngestInput{
		Category: c.PostForm("category"),
		Lat:      parseOptionalFloat(c.PostForm("lat")),
		Lng:      parseOptionalFloat(c.PostForm("lng")),
		Accuracy: parseOptionalFloat(c.PostForm("accuracy")),
	}

	// A missing photo part is the service's ErrMissingFile; anything else
	// that goes wrong with a present part is answered here. Oversized parts
	// must never be truncated into stored evidence.
	fileHeader, fErr := c.FormFile("photo")
	if fErr == nil {
		if fileHeader.Size > h.maxPhotoBytes {
			RespondError(c, http.StatusRequestEntityTooLarge, "photo_too_large",
				fmt.Errorf("photo is %d bytes, limit is %d", fileHeader.Size, h.maxPhotoBytes))
			return
		}
		in.FileName = fileHeader.Filename
		in.MimeType = fileHeader.Header.Get("Content-Type")
		f, oErr := h.openPhoto(fileHeader)
		if oErr != nil {
			h.log.Error("Failed to open uploaded photo part", "error", oErr)
			RespondError(c, http.StatusInternalServerError, "photo_read_failed", oErr)
			return
		}
		data, rErr := io.ReadAll(io.LimitReader(f, h.maxPhotoBytes+1))
		f.Close()
		if rErr != nil {
			h.log.Error("Failed to read uploaded photo part", "error", rErr)
			RespondError(c, http.StatusInternalServerError, "photo_read_failed", rErr)
			return
		}
		if int64(len(data)) > h.maxPhotoBytes {
			RespondError(c, http.StatusRequestEntityTooLarge, "photo_too_large",
				fmt.Errorf("photo exceeds %d-byte limit", h.maxPhotoBytes))
			return
		}
		in.Data = data
	}

	upload, err := h.uploadService.Ingest(c.Request.Context(), id, token, in)
	if err != nil {
		h.respondIngestError(c, err)
		return
	}
	RespondCreated(c, upload)
}

func (h *UploadHandler) respondIngestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, services.ErrInvalidToken):
		RespondError(c, http.StatusUnauthorized, "invalid_token", err)
	case errors.Is(err, services.ErrTokenExpired):
		RespondError(c, http.StatusUnauthorized, "token_expired", err)
	case errors.Is(err, services.ErrMissingFile):
		RespondError(c, http.StatusBadRequest, "missing_file", err)
	case errors.Is(err, services.ErrStorage):
		RespondError(c, http.StatusBadGateway, "storage_unavailable", err)
	default:
		RespondError(c, http.StatusInternalServerError, "upload_failed", err)
	}
}

func extractUploadToken(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return c.PostForm("token")
}

func parseOptionalFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
