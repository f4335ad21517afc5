package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PracticeArea is an area of law a lawyer takes consultations for (family, labor, criminal...)
type PracticeArea struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Code     string `gorm:"size:50;not null;uniqueIndex" json:"code"` // e.g. "family"
	Name     string `gorm:"size:150;not null" json:"name"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
}

// BeforeCreate hook to generate UUID
func (p *PracticeArea) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (PracticeArea) TableName() string {
	return "practice_areas"
}

// Matches compares a free-form practice area value against code and name, case-insensitively
func (p *PracticeArea) Matches(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" || !p.IsActive {
		return false
	}
	return strings.EqualFold(p.Code, value) || strings.EqualFold(p.Name, value)
}
