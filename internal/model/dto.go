package model

import "time"

// ========== Auth DTOs ==========

type RequestOTPRequest struct {
	Email string `json:"email" form:"email" binding:"required,email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" form:"email" binding:"required,email"`
	OTP   string `json:"otp" form:"otp" binding:"required"`
}

type AuthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
	User    *User  `json:"user,omitempty"`
}

// ========== User DTOs ==========

type CreateUserRequest struct {
	Name  string `json:"name" binding:"max=150"`
	Email string `json:"email" binding:"required,email"`
	Role  Role   `json:"role" binding:"required,oneof=GUEST VIEWER OPERATOR ADMIN"`
}

// ========== Entry DTOs ==========

type EntryListRequest struct {
	Page  int    `form:"page,default=1" binding:"min=1"`
	Limit int    `form:"limit,default=20" binding:"min=1,max=100"`
	From  string `form:"from"` // RFC3339, inclusive
	To    string `form:"to"`   // RFC3339, inclusive
}

// EntryFilter is the parsed form of EntryListRequest
type EntryFilter struct {
	From   *time.Time
	To     *time.Time
	Offset int
	Limit  int
}

type EntryListResponse struct {
	Entries []EntryWithURL `json:"entries"`
	Total   int64          `json:"total"`
	Page    int            `json:"page"`
	Limit   int            `json:"limit"`
}

type UpdateEntryNumberRequest struct {
	Number string `json:"number" binding:"required,max=32"`
}

// DeviceUploadRecord is returned to camera devices after an upload
type DeviceUploadRecord struct {
	ID          string `json:"id"`
	NumberPlate string `json:"number_plate"`
	Timestamp   int64  `json:"timestamp"`
	ImageKey    string `json:"imageKey"`
}

type DeviceUploadResponse struct {
	Status  string              `json:"status"`
	Message string              `json:"message,omitempty"`
	Detail  string              `json:"detail,omitempty"`
	Record  *DeviceUploadRecord `json:"record,omitempty"`
}

// ========== Access Request DTOs ==========

type CreateAccessRequest struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Purpose  string `json:"purpose" binding:"required"`
}

type ApproveAccessRequest struct {
	Role Role `json:"role" binding:"omitempty,oneof=GUEST VIEWER OPERATOR ADMIN"`
}

// ========== Contact DTOs ==========

type ContactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone"`
	Message string `json:"message" binding:"required"`
}

// ========== WebSocket Event DTOs ==========

type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocket event types
const (
	WSEventEntryCreated = "entry_created"
	WSEventEntryUpdated = "entry_updated"
	WSEventEntryDeleted = "entry_deleted"
)

type EntryDeletedEvent struct {
	ID string `json:"id"`
}

// ========== Common ==========

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
