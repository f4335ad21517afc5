package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles
const (
	RoleAdmin  = "admin"
	RoleLawyer = "lawyer"
	RoleClient = "client"
)

type User struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name     string `gorm:"not null" json:"name"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`
	Phone    string `gorm:"size:20" json:"phone,omitempty"`
	Role     string `gorm:"not null;default:lawyer" json:"role"` // admin, lawyer, client
	IsActive bool   `gorm:"not null;default:true" json:"is_active"`
	Language string `gorm:"size:5;default:'es'" json:"language"`

	// Booking window preference (weeks ahead a client may pick a date)
	BookingWindowEnabled bool `gorm:"default:false" json:"booking_window_enabled"`
	DefaultBookingWeeks  int  `gorm:"default:0" json:"default_booking_weeks"`
	MaxBookingWeeks      int  `gorm:"default:0" json:"max_booking_weeks"`

	// Relationships
	PracticeAreas []PracticeArea `gorm:"many2many:lawyer_practice_areas" json:"practice_areas,omitempty"`
}

// BeforeCreate hook to generate UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// CanHoldSchedule reports whether the user may own schedule entries and take consultations
func (u *User) CanHoldSchedule() bool {
	return u.Role == RoleLawyer || u.Role == RoleAdmin
}

// Handles checks whether the lawyer is specialized in the given practice area (by code or name)
func (u *User) Handles(practiceArea string) bool {
	for _, pa := range u.PracticeAreas {
		if pa.Matches(practiceArea) {
			return true
		}
	}
	return false
}

// PracticeAreaNames returns the names of the lawyer's practice areas joined by commas
func (u *User) PracticeAreaNames() string {
	names := make([]string, 0, len(u.PracticeAreas))
	for _, pa := range u.PracticeAreas {
		names = append(names, pa.Name)
	}
	return strings.Join(names, ", ")
}
