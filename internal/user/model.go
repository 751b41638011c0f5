package user

import (
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:32;not null" json:"username"`
	Name         string    `gorm:"size:128" json:"name"`
	Email        string    `gorm:"uniqueIndex;size:128;not null" json:"email"`
	PasswordHash string    `gorm:"size:128;not null" json:"-"`
	Role         Role      `gorm:"type:varchar(10);not null;default:'user'" json:"role"`
	// Last known location, updated whenever a chat turn carries coordinates.
	// Every consumer must treat these as optional.
	LastCity  string   `gorm:"size:128" json:"lastCity,omitempty"`
	LastLat   *float64 `json:"lastLat,omitempty"`
	LastLng   *float64 `json:"lastLng,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasLocation reports whether a usable last known location is stored.
func (u *User) HasLocation() bool {
	return u.LastCity != "" || (u.LastLat != nil && u.LastLng != nil)
}
