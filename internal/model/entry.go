package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntrySource tells where an entry was captured
type EntrySource string

const (
	EntrySourceWeb    EntrySource = "web"
	EntrySourceDevice EntrySource = "device"
)

// UnknownPlate is stored when no plate number could be read
const UnknownPlate = "UNKNOWN"

// Entry is a single vehicle passing the gate
type Entry struct {
	ID        uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	Timestamp time.Time   `json:"timestamp" gorm:"not null;index"`
	ImageKey  string      `json:"imageKey" gorm:"size:500;not null"`
	Number    string      `json:"number" gorm:"size:32;not null;default:'UNKNOWN'"`
	Source    EntrySource `json:"source" gorm:"size:16;not null;default:'web'"`
	CreatedBy *uuid.UUID  `json:"created_by,omitempty" gorm:"type:uuid"`
}

func (Entry) TableName() string {
	return "vehicle_entries"
}

func (e *Entry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Number == "" {
		e.Number = UnknownPlate
	}
	if e.Source == "" {
		e.Source = EntrySourceWeb
	}
	return nil
}

// EntryWithURL is an entry plus a short-lived link to its image
type EntryWithURL struct {
	Entry
	SignedURL string `json:"signedUrl"`
}
