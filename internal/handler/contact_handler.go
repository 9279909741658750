package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/gatelog/internal/model"
	"github.com/quocanhngo/gatelog/internal/service"
)

type ContactHandler struct {
	contactService *service.ContactService
}

func NewContactHandler(contactService *service.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// Submit godoc
// @Summary Send a message to the site operators
// @Tags Contact
// @Accept json
// @Produce json
// @Param body body model.ContactRequest true "Message"
// @Success 200 {object} model.SuccessResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /contact/submit [post]
func (h *ContactHandler) Submit(c *gin.Context) {
	var req model.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Name, email and message are required", Message: err.Error()})
		return
	}

	err := h.contactService.Submit(c.Request.Context(), req)
	switch {
	case errors.Is(err, service.ErrContactNotEnabled):
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: "Contact form is not available"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to send message. Please try again."})
	default:
		c.JSON(http.StatusOK, model.SuccessResponse{Message: "Message sent successfully"})
	}
}
