package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Consultation status constants
const (
	ConsultationStatusPending   = "pending"
	ConsultationStatusConfirmed = "confirmed"
	ConsultationStatusCompleted = "completed"
	ConsultationStatusCancelled = "cancelled"
)

// Consultation sources
const (
	ConsultationSourceClient = "client"
	ConsultationSourceAdmin  = "admin"
)

// ActiveConsultationStatuses are the statuses that consume a lawyer's daily capacity
var ActiveConsultationStatuses = []string{ConsultationStatusPending, ConsultationStatusConfirmed}

// consultationTransitions lists the allowed next statuses for each status
var consultationTransitions = map[string][]string{
	ConsultationStatusPending:   {ConsultationStatusConfirmed, ConsultationStatusCancelled},
	ConsultationStatusConfirmed: {ConsultationStatusCompleted, ConsultationStatusCancelled},
	ConsultationStatusCompleted: {},
	ConsultationStatusCancelled: {},
}

// Consultation is a client's request to meet a lawyer on a given date
type Consultation struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Client Info
	FullName        string `gorm:"size:200;not null" json:"full_name"`
	Email           string `gorm:"size:255;not null;index" json:"email"`
	Phone           string `gorm:"size:20;not null" json:"phone"`
	PracticeArea    string `gorm:"size:150;not null;index" json:"practice_area"`
	CaseDescription string `gorm:"type:text;not null" json:"case_description"`

	// Lawyer relationship
	LawyerID *string `gorm:"type:uuid;index:idx_consultation_lawyer_date" json:"lawyer_id,omitempty"`
	Lawyer   *User   `gorm:"foreignKey:LawyerID" json:"lawyer,omitempty"`

	// Schedule
	ConsultationDate string `gorm:"size:10;not null;index:idx_consultation_lawyer_date" json:"consultation_date"` // YYYY-MM-DD
	ConsultationTime string `gorm:"size:8;not null" json:"consultation_time"`                                     // HH:MM:SS

	// Status
	Status             string     `gorm:"size:20;default:'pending';index" json:"status"`
	CancellationReason *string    `gorm:"type:text" json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	Source             string     `gorm:"size:10;default:'client'" json:"source"`
}

// BeforeCreate hook to generate UUID
func (c *Consultation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = ConsultationStatusPending
	}
	return nil
}

// TableName specifies the table name for Consultation model
func (Consultation) TableName() string {
	return "consultations"
}

// IsValidConsultationStatus checks if the status is valid
func IsValidConsultationStatus(status string) bool {
	_, ok := consultationTransitions[status]
	return ok
}

// CanTransition reports whether a consultation may move from one status to another
func CanTransition(from, to string) bool {
	for _, next := range consultationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further status change is possible
func (c *Consultation) IsTerminal() bool {
	return len(consultationTransitions[c.Status]) == 0
}

// AssignedLawyerID returns the lawyer id or an empty string when unassigned
func (c *Consultation) AssignedLawyerID() string {
	if c.LawyerID == nil {
		return ""
	}
	return *c.LawyerID
}
