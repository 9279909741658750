package model

import (
	"time"
)

// OTPRecord holds the current one-time passcode for an email.
// There is at most one record per email; ExpiresAt is always
// LastGeneratedAt plus the expiry window.
type OTPRecord struct {
	Email           string    `json:"email" gorm:"primaryKey;size:255"`
	Code            string    `json:"-" gorm:"size:6;not null"`
	ExpiresAt       time.Time `json:"expires_at" gorm:"not null"`
	LastGeneratedAt time.Time `json:"last_generated_at" gorm:"not null"`
}

// IsExpiredAt checks if the code is no longer accepted at t
func (o *OTPRecord) IsExpiredAt(t time.Time) bool {
	return t.After(o.ExpiresAt)
}

// CooldownEnd returns the earliest time a new code may be issued
func (o *OTPRecord) CooldownEnd(cooldown time.Duration) time.Time {
	return o.LastGeneratedAt.Add(cooldown)
}
