package handlers

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"public-chat/internal/models"
	"public-chat/internal/observability"
	"public-chat/internal/repositories"
	"public-chat/internal/telemetry"
)

// imageTypes are the upload formats browsers render without running scripts.
var imageTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp", "image/bmp", "image/avif"}

func isImage(mime string) bool {
	return mimetype.EqualsAny(mime, imageTypes...)
}

// StorageHandler stores and serves bucket files.
type StorageHandler struct {
	files    repositories.FileRepository
	audit    *telemetry.AuditEmitter
	maxBytes int64
}

// NewStorageHandler builds a StorageHandler accepting uploads up to maxBytes.
func NewStorageHandler(files repositories.FileRepository, audit *telemetry.AuditEmitter, maxBytes int64) *StorageHandler {
	return &StorageHandler{files: files, audit: audit, maxBytes: maxBytes}
}

func fileParams(c *gin.Context) (string, string, bool) {
	bucketID, fileID := c.Param("bucket_id"), c.Param("file_id")
	if !validID(bucketID) || (fileID != "" && !validID(fileID)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bucket or file id"})
		return "", "", false
	}
	return bucketID, fileID, true
}

// CreateFile accepts a multipart upload with fields fileId and file. Only raster
// images are stored; the type is sniffed from the content, not the file name.
func (h *StorageHandler) CreateFile(c *gin.Context) {
	bucketID, _, ok := fileParams(c)
	if !ok {
		return
	}

	fileID, err := resolveID(c.PostForm("fileId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	if header.Size > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	src, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer src.Close()
	content, err := io.ReadAll(io.LimitReader(src, h.maxBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	if int64(len(content)) > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	detected := mimetype.Detect(content).String()
	if !isImage(detected) {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported file type " + detected})
		return
	}

	ownerID := c.GetString("userID")
	file, err := h.files.CreateFile(c.Request.Context(), models.File{
		ID:       fileID,
		BucketID: bucketID,
		OwnerID:  ownerID,
		Name:     filepath.Base(header.Filename),
		MimeType: detected,
		Size:     int64(len(content)),
		Content:  content,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrFileExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "file already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
		return
	}

	observability.AddFileUploaded(bucketID, file.Size)
	h.audit.Emit(c.Request.Context(), "INFO", telemetry.ActionFileUploaded, bucketID+"/"+file.ID, "file uploaded", requestIDFromContext(c), &ownerID)
	c.JSON(http.StatusCreated, file)
}

// ViewFile serves the raw file bytes. It is public so image links work without a session.
func (h *StorageHandler) ViewFile(c *gin.Context) {
	bucketID, fileID, ok := fileParams(c)
	if !ok {
		return
	}

	file, err := h.files.GetFile(c.Request.Context(), bucketID, fileID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrFileNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "file not found"})
		return
	}

	// rows written before the image check may hold anything
	disposition, contentType := "inline", file.MimeType
	if !isImage(file.MimeType) {
		disposition, contentType = "attachment", "application/octet-stream"
	}
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Content-Disposition", disposition+"; filename*=UTF-8''"+url.PathEscape(file.Name))
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, contentType, file.Content)
}

// DeleteFile removes a file owned by the caller.
func (h *StorageHandler) DeleteFile(c *gin.Context) {
	bucketID, fileID, ok := fileParams(c)
	if !ok {
		return
	}

	userID := c.GetString("userID")
	file, err := h.files.GetFile(c.Request.Context(), bucketID, fileID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrFileNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "file not found"})
		return
	}
	if file.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the file owner"})
		return
	}

	if err := h.files.DeleteFile(c.Request.Context(), bucketID, fileID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrFileNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "failed to delete file"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", telemetry.ActionFileDeleted, bucketID+"/"+fileID, "file deleted", requestIDFromContext(c), &userID)
	c.Status(http.StatusNoContent)
}
