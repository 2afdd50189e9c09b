package files

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"fileservices/internal/pkg/response"
	"fileservices/internal/storage"
)

// multipartOverhead is the slack allowed on top of the payload limit for
// multipart boundaries and part headers.
const multipartOverhead = 1 << 20

// Handler handles HTTP requests for file storage.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Upload handles POST /upload with a single multipart field "file".
func (h *Handler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.service.MaxUploadSize()+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, ErrFileTooLarge.Error())
			return
		}
		response.Error(c, http.StatusBadRequest, "No file uploaded")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Internal(c, "upload failed", fmt.Errorf("open multipart file: %w", err))
		return
	}
	defer file.Close()

	result, err := h.service.Upload(c.Request.Context(), UploadInput{
		OriginalName: fileHeader.Filename,
		ContentType:  fileHeader.Header.Get("Content-Type"),
		Size:         fileHeader.Size,
		Body:         file,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingPayload):
			response.Error(c, http.StatusBadRequest, "No file uploaded")
		case errors.Is(err, ErrFileTooLarge):
			response.Error(c, http.StatusRequestEntityTooLarge, err.Error())
		default:
			response.Internal(c, "upload failed", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "File uploaded successfully",
		"filename": result.Filename,
		"path":     result.Path,
		"url":      result.URL,
		"isImage":  result.IsImage,
	})
}

// ListFiles handles GET /files.
func (h *Handler) ListFiles(c *gin.Context) {
	listing, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list files", err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// ListImages handles GET /images.
func (h *Handler) ListImages(c *gin.Context) {
	images, err := h.service.ListImages(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list images", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}

// GetImage handles GET /images/:filename. Only the image store is consulted.
func (h *Handler) GetImage(c *gin.Context) {
	obj, err := h.service.OpenImage(c.Request.Context(), c.Param("filename"))
	if err != nil {
		h.lookupError(c, err, "Image not found")
		return
	}
	defer obj.Close()

	c.DataFromReader(http.StatusOK, obj.Size, contentTypeFor(obj.Name), obj, nil)
}

// Download handles GET /download/:filename. Only the generic store is consulted.
func (h *Handler) Download(c *gin.Context) {
	obj, err := h.service.OpenDownload(c.Request.Context(), c.Param("filename"))
	if err != nil {
		h.lookupError(c, err, "File not found")
		return
	}
	defer obj.Close()

	c.DataFromReader(http.StatusOK, obj.Size, contentTypeFor(obj.Name), obj, map[string]string{
		"Content-Disposition": attachment(obj.Name),
	})
}

// StaticImage serves GET/HEAD /public/images/*filepath from the image store.
// Nested paths never exist there, so anything that fails validation is a 404.
func (h *Handler) StaticImage(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("filepath"), "/")
	obj, err := h.service.OpenImage(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, ErrInvalidFilename) {
			err = ErrNotFound
		}
		h.lookupError(c, err, "Image not found")
		return
	}
	defer obj.Close()

	c.Header("Last-Modified", obj.ModTime.UTC().Format(http.TimeFormat))
	c.DataFromReader(http.StatusOK, obj.Size, contentTypeFor(obj.Name), obj, nil)
}

// Delete handles DELETE /files/:filename. The generic store wins when the
// same filename exists in both.
func (h *Handler) Delete(c *gin.Context) {
	kind, err := h.service.Delete(c.Request.Context(), c.Param("filename"))
	if err != nil {
		h.lookupError(c, err, "File not found")
		return
	}

	if kind == storage.KindImage {
		response.Message(c, http.StatusOK, "Image deleted successfully")
		return
	}
	response.Message(c, http.StatusOK, "File deleted successfully")
}

// Events handles GET /events?limit=N.
func (h *Handler) Events(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.Error(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	events, err := h.service.Events(c.Request.Context(), limit)
	if err != nil {
		response.Internal(c, "failed to list events", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *Handler) lookupError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, ErrInvalidFilename):
		response.Error(c, http.StatusBadRequest, "Invalid filename")
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, notFound)
	default:
		response.Internal(c, "storage failure", err)
	}
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func attachment(name string) string {
	safe := strings.NewReplacer(`"`, "", "\r", "", "\n", "").Replace(name)
	return fmt.Sprintf("attachment; filename=\"%s\"", safe)
}
