package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quocanhngo/gatelog/internal/middleware"
	"github.com/quocanhngo/gatelog/internal/model"
	"github.com/quocanhngo/gatelog/internal/service"
	"go.uber.org/zap"
)

// Max upload size: 10MB
const maxUploadSize = 10 << 20

// EntryHandler handles vehicle entry endpoints
type EntryHandler struct {
	entryService *service.EntryService
	logger       *zap.Logger
}

func NewEntryHandler(entryService *service.EntryService, logger *zap.Logger) *EntryHandler {
	return &EntryHandler{entryService: entryService, logger: logger}
}

// Upload godoc
// @Summary Record a vehicle entry from an uploaded photo
// @Description The plate number is read by the recognition service, or stored as UNKNOWN.
// @Tags Entries
// @Accept multipart/form-data
// @Produce json
// @Security CookieAuth
// @Param entry formData file true "Vehicle photo (png, jpg, jpeg, gif, bmp, avif, webp; max 10MB)"
// @Success 201 {object} model.EntryWithURL
// @Failure 400 {object} model.ErrorResponse
// @Failure 413 {object} model.ErrorResponse
// @Router /upload [post]
func (h *EntryHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	file, header, err := c.Request.FormFile("entry")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, model.ErrorResponse{Error: "File too large (max 10MB)"})
			return
		}
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "No file uploaded", Message: err.Error()})
		return
	}
	defer file.Close()

	userID, _ := middleware.UserID(c)
	entry, err := h.entryService.CreateFromUpload(c.Request.Context(), service.ImageUpload{
		Reader:      file,
		Size:        header.Size,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, userID)
	if errors.Is(err, service.ErrInvalidImage) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "Invalid file type",
			Message: "Allowed: png, jpg, jpeg, gif, bmp, avif, webp",
		})
		return
	}
	if err != nil {
		h.logger.Error("entry upload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to upload file"})
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// List godoc
// @Summary List vehicle entries, newest first
// @Tags Entries
// @Produce json
// @Security CookieAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size (max 100)" default(20)
// @Param from query string false "Earliest timestamp (RFC3339)"
// @Param to query string false "Latest timestamp (RFC3339)"
// @Success 200 {object} model.EntryListResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /entries [get]
func (h *EntryHandler) List(c *gin.Context) {
	var req model.EntryListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid query", Message: err.Error()})
		return
	}

	res, err := h.entryService.List(c.Request.Context(), req)
	if errors.Is(err, service.ErrInvalidTimeRange) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid time range", Message: err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("list entries failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to fetch entries"})
		return
	}

	c.JSON(http.StatusOK, res)
}

// UpdateNumber godoc
// @Summary Correct the plate number of an entry
// @Tags Entries
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param id path string true "Entry ID"
// @Param body body model.UpdateEntryNumberRequest true "Plate number"
// @Success 200 {object} model.Entry
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /entries/{id} [put]
func (h *EntryHandler) UpdateNumber(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.UpdateEntryNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Number is required", Message: err.Error()})
		return
	}

	entry, err := h.entryService.UpdateNumber(c.Request.Context(), id, req.Number)
	switch {
	case errors.Is(err, service.ErrInvalidNumber):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Number is required"})
	case errors.Is(err, service.ErrEntryNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Entry not found"})
	case err != nil:
		h.logger.Error("update entry failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to update entry"})
	default:
		c.JSON(http.StatusOK, entry)
	}
}

// Delete godoc
// @Summary Delete an entry and its photo
// @Tags Entries
// @Produce json
// @Security CookieAuth
// @Param id path string true "Entry ID"
// @Success 200 {object} model.SuccessResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /entries/{id} [delete]
func (h *EntryHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	err := h.entryService.Delete(c.Request.Context(), id)
	switch {
	case errors.Is(err, service.ErrEntryNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Entry not found"})
	case err != nil:
		h.logger.Error("delete entry failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to delete entry"})
	default:
		c.JSON(http.StatusOK, model.SuccessResponse{Message: "Entry deleted successfully"})
	}
}

// parseID reads the :id path parameter, answering 400 when it is not a UUID
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid ID"})
		return uuid.Nil, false
	}
	return id, true
}
