package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role defines what a user is allowed to do
type Role string

const (
	RoleGuest    Role = "GUEST"
	RoleViewer   Role = "VIEWER"
	RoleOperator Role = "OPERATOR"
	RoleAdmin    Role = "ADMIN"
)

// IsValid reports whether r is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleGuest, RoleViewer, RoleOperator, RoleAdmin:
		return true
	}
	return false
}

// User is an account allowed to sign in with an emailed OTP
type User struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	FullName  string    `json:"full_name" gorm:"size:150"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Role      Role      `json:"role" gorm:"size:20;not null;default:'GUEST'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = NormalizeEmail(u.Email)
	u.FullName = strings.TrimSpace(u.FullName)
	if u.Role == "" {
		u.Role = RoleGuest
	}
	return nil
}

// NormalizeEmail lower-cases and trims an email address.
// Every lookup and write keyed by email goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
