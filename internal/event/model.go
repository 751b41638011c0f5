package event

import (
	"time"

	"gorm.io/gorm"
)

type Source string

const (
	SourceUserCreated Source = "user_created"
	SourceDiscovered  Source = "discovered"
)

type ReminderType string

const (
	ReminderBeforeEvent ReminderType = "before_event"
	ReminderRemindLater ReminderType = "remind_later"
)

type ReminderStatus string

const (
	ReminderPending ReminderStatus = "pending"
	ReminderSent    ReminderStatus = "sent"
)

// Event is a normalized event record. Optional fields stay nil/empty when
// unknown: a field is either a verified value from user input or web-search
// extraction, or it is absent. Placeholders are rejected at the store level.
type Event struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Title           string         `gorm:"size:512;not null" json:"title"`
	NormalizedTitle string         `gorm:"size:512;not null;uniqueIndex:idx_events_identity" json:"-"`
	Category        string         `gorm:"size:64" json:"category,omitempty"`
	StartDate       *time.Time     `json:"startDate,omitempty"`
	EndDate         *time.Time     `json:"endDate,omitempty"`
	Location        string         `gorm:"size:256" json:"location,omitempty"`
	Lat             *float64       `json:"lat,omitempty"`
	Lng             *float64       `json:"lng,omitempty"`
	Mode            string         `gorm:"size:16" json:"mode,omitempty"` // online/offline/hybrid
	Price           string         `gorm:"size:64" json:"price,omitempty"`
	Snippet         string         `gorm:"type:text" json:"snippet,omitempty"`
	Description     string         `gorm:"type:text" json:"description,omitempty"`
	Source          Source         `gorm:"size:16;not null;uniqueIndex:idx_events_identity;uniqueIndex:idx_events_url_identity" json:"source"`
	SourceURL       string         `gorm:"size:1024;uniqueIndex:idx_events_url_identity,where:source_url <> ''" json:"sourceUrl,omitempty"`
	Saved           bool           `gorm:"not null;default:false" json:"saved"`
	UserID          uint           `gorm:"not null;index;uniqueIndex:idx_events_identity;uniqueIndex:idx_events_url_identity" json:"userId"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
}

type Registration struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;uniqueIndex:idx_registrations_pair" json:"userId"`
	EventID   uint           `gorm:"not null;uniqueIndex:idx_registrations_pair" json:"eventId"`
	Name      string         `gorm:"size:128" json:"name"`
	Email     string         `gorm:"size:128" json:"email"`
	Status    string         `gorm:"size:16;not null;default:'confirmed'" json:"status"`
	Reference string         `gorm:"size:64;not null" json:"reference"` // opaque id encoded into the QR payload
	CreatedAt time.Time      `json:"createdAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

type Reminder struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"not null;index" json:"userId"`
	EventID      uint           `gorm:"not null;index" json:"eventId"`
	ReminderDate time.Time      `gorm:"not null" json:"reminderDate"`
	ReminderType ReminderType   `gorm:"size:16;not null" json:"reminderType"`
	Status       ReminderStatus `gorm:"size:16;not null;default:'pending'" json:"status"`
	CreatedAt    time.Time      `json:"createdAt"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}
