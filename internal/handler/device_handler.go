package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/gatelog/internal/model"
	"github.com/quocanhngo/gatelog/internal/service"
	"go.uber.org/zap"
)

// DeviceHandler accepts captures pushed by gate cameras.
// Its responses keep the shape the camera firmware parses.
type DeviceHandler struct {
	entryService *service.EntryService
	logger       *zap.Logger
}

func NewDeviceHandler(entryService *service.EntryService, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{entryService: entryService, logger: logger}
}

// Upload godoc
// @Summary Camera upload of a capture with its plate number
// @Tags Devices
// @Accept multipart/form-data
// @Produce json
// @Param X-Device-Key header string false "Shared device key, when configured"
// @Param image formData file true "Capture (jpeg, jpg, png, bmp)"
// @Param number_plate formData string true "Plate number read by the camera"
// @Success 200 {object} model.DeviceUploadResponse
// @Failure 400 {object} model.DeviceUploadResponse
// @Failure 401 {object} model.DeviceUploadResponse
// @Router /esp32-cam/upload [post]
func (h *DeviceHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, model.DeviceUploadResponse{Status: "error", Detail: "Image too large (max 10MB)"})
			return
		}
		c.JSON(http.StatusBadRequest, model.DeviceUploadResponse{Status: "error", Detail: "No image uploaded"})
		return
	}
	defer file.Close()

	entry, err := h.entryService.CreateFromDevice(c.Request.Context(), service.ImageUpload{
		Reader:      file,
		Size:        header.Size,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, c.PostForm("number_plate"))
	if errors.Is(err, service.ErrInvalidNumber) {
		c.JSON(http.StatusBadRequest, model.DeviceUploadResponse{Status: "error", Detail: "Missing required fields: number_plate"})
		return
	}
	if errors.Is(err, service.ErrInvalidImage) {
		c.JSON(http.StatusBadRequest, model.DeviceUploadResponse{
			Status: "error",
			Detail: "Only image files are allowed (jpeg, jpg, png, bmp)",
		})
		return
	}
	if err != nil {
		h.logger.Error("device upload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.DeviceUploadResponse{Status: "error", Detail: "Failed to store capture"})
		return
	}

	c.JSON(http.StatusOK, model.DeviceUploadResponse{
		Status:  "success",
		Message: "Capture stored",
		Record: &model.DeviceUploadRecord{
			ID:          entry.ID.String(),
			NumberPlate: entry.Number,
			Timestamp:   entry.Timestamp.UnixMilli(),
			ImageKey:    entry.ImageKey,
		},
	})
}
