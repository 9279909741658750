package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/gatelog/internal/model"
	"github.com/quocanhngo/gatelog/internal/service"
	"go.uber.org/zap"
)

// AccessRequestHandler handles account requests and their review
type AccessRequestHandler struct {
	accessService *service.AccessService
	logger        *zap.Logger
}

func NewAccessRequestHandler(accessService *service.AccessService, logger *zap.Logger) *AccessRequestHandler {
	return &AccessRequestHandler{accessService: accessService, logger: logger}
}

// Create godoc
// @Summary Request an account
// @Tags Access Requests
// @Accept json
// @Produce json
// @Param body body model.CreateAccessRequest true "Request"
// @Success 201 {object} model.AccessRequest
// @Failure 400 {object} model.ErrorResponse
// @Router /access-request/create [post]
func (h *AccessRequestHandler) Create(c *gin.Context) {
	var req model.CreateAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "All fields are required", Message: err.Error()})
		return
	}

	ar, err := h.accessService.Submit(c.Request.Context(), req)
	switch {
	case errors.Is(err, service.ErrMissingFields),
		errors.Is(err, service.ErrPurposeTooLong),
		errors.Is(err, service.ErrUserExists),
		errors.Is(err, service.ErrRequestPending):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
	case err != nil:
		h.logger.Error("submit access request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to submit access request"})
	default:
		c.JSON(http.StatusCreated, ar)
	}
}

// List godoc
// @Summary List access requests, newest first
// @Tags Access Requests
// @Produce json
// @Security CookieAuth
// @Success 200 {array} model.AccessRequest
// @Router /access-request/get-all [get]
func (h *AccessRequestHandler) List(c *gin.Context) {
	reqs, err := h.accessService.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list access requests failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to fetch access requests"})
		return
	}
	c.JSON(http.StatusOK, reqs)
}

// Approve godoc
// @Summary Approve a request and create the account
// @Tags Access Requests
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param id path string true "Request ID"
// @Param body body model.ApproveAccessRequest false "Role (default VIEWER)"
// @Success 200 {object} model.SuccessResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /access-request/approve/{id} [put]
func (h *AccessRequestHandler) Approve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.ApproveAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid role", Message: err.Error()})
		return
	}

	user, err := h.accessService.Approve(c.Request.Context(), id, req.Role)
	if h.reviewFailed(c, err) {
		return
	}
	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Access request approved", Data: user})
}

// Reject godoc
// @Summary Reject a request
// @Tags Access Requests
// @Produce json
// @Security CookieAuth
// @Param id path string true "Request ID"
// @Success 200 {object} model.SuccessResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /access-request/reject/{id} [put]
func (h *AccessRequestHandler) Reject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if h.reviewFailed(c, h.accessService.Reject(c.Request.Context(), id)) {
		return
	}
	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Access request rejected"})
}

func (h *AccessRequestHandler) reviewFailed(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, service.ErrRequestNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Access request not found"})
	case errors.Is(err, service.ErrRequestProcessed), errors.Is(err, service.ErrUserExists):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
	default:
		h.logger.Error("review access request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to process access request"})
	}
	return true
}
