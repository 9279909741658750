package service

import (
	"errors"
	"fmt"
)

var (
	ErrOTPNotFound = errors.New("no OTP found for this email")
	ErrOTPExpired  = errors.New("OTP has expired")
	ErrOTPMismatch = errors.New("invalid OTP")

	ErrUserNotFound      = errors.New("user not found")
	ErrUserExists        = errors.New("user already exists")
	ErrEmailDelivery     = errors.New("failed to send email")
	ErrEntryNotFound     = errors.New("entry not found")
	ErrInvalidImage      = errors.New("invalid file type")
	ErrInvalidNumber     = errors.New("number plate is required")
	ErrInvalidTimeRange  = errors.New("invalid time range")
	ErrRequestNotFound   = errors.New("access request not found")
	ErrRequestProcessed  = errors.New("this request has already been processed")
	ErrRequestPending    = errors.New("you already have a pending access request")
	ErrPurposeTooLong    = errors.New("purpose must not exceed 500 characters")
	ErrMissingFields     = errors.New("all fields are required")
	ErrContactNotEnabled = errors.New("contact form is not configured")
)

// RateLimitError is returned when an OTP is requested inside the cooldown
type RateLimitError struct {
	MinutesLeft int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Please wait %d minute(s) before requesting a new OTP", e.MinutesLeft)
}
