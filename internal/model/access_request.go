package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccessRequestStatus tracks an access request through review
type AccessRequestStatus string

const (
	AccessRequestPending  AccessRequestStatus = "PENDING"
	AccessRequestApproved AccessRequestStatus = "APPROVED"
	AccessRequestRejected AccessRequestStatus = "REJECTED"
)

// MaxPurposeLength caps the free-text purpose of an access request
const MaxPurposeLength = 500

// AccessRequest is a self-service request for an account
type AccessRequest struct {
	ID          uuid.UUID           `json:"id" gorm:"type:uuid;primaryKey"`
	FullName    string              `json:"full_name" gorm:"size:150;not null"`
	Email       string              `json:"email" gorm:"index;size:255;not null"`
	Purpose     string              `json:"purpose" gorm:"size:500;not null"`
	Status      AccessRequestStatus `json:"status" gorm:"size:16;not null;default:'PENDING'"`
	RequestedAt time.Time           `json:"requested_at" gorm:"not null"`
}

func (a *AccessRequest) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Email = NormalizeEmail(a.Email)
	a.FullName = strings.TrimSpace(a.FullName)
	if a.Status == "" {
		a.Status = AccessRequestPending
	}
	if a.RequestedAt.IsZero() {
		a.RequestedAt = time.Now()
	}
	return nil
}

// IsPending checks if the request has not been reviewed yet
func (a *AccessRequest) IsPending() bool {
	return a.Status == AccessRequestPending
}
