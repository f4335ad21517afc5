package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification types
const (
	NotificationTypeNewConsultation      = "new_consultation"
	NotificationTypeConsultationReceived = "consultation_received"
	NotificationTypeConfirmation         = "confirmation"
	NotificationTypeCompletion           = "completion"
	NotificationTypeCancellation         = "cancellation"
	NotificationTypeReminder             = "reminder"
)

// Queue statuses
const (
	NotificationStatusPending = "pending"
	NotificationStatusSending = "sending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)

// QueuedNotification is an outbound email waiting for the asynchronous sender
type QueuedNotification struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Targeting
	RecipientUserID *string `gorm:"type:uuid;index" json:"recipient_user_id,omitempty"` // null = client without account
	Email           string  `gorm:"size:255;not null;index" json:"email"`

	// Content
	Type     string `gorm:"size:30;not null;index" json:"type"`
	Subject  string `gorm:"not null" json:"subject"`
	Body     string `gorm:"type:text" json:"body"`
	HTMLBody string `gorm:"type:text" json:"html_body,omitempty"`

	// Context
	ConsultationID *string `gorm:"type:uuid;index" json:"consultation_id,omitempty"`
	PracticeArea   string  `gorm:"size:150" json:"practice_area,omitempty"`
	IdempotencyKey string  `gorm:"size:64;uniqueIndex;not null" json:"-"`

	// Delivery tracking
	Status        string     `gorm:"size:10;default:'pending';index" json:"status"`
	Attempts      int        `gorm:"default:0" json:"attempts"`
	LastError     string     `gorm:"type:text" json:"last_error,omitempty"`
	ClaimToken    *string    `gorm:"size:36;index" json:"-"`
	ClaimedAt     *time.Time `json:"claimed_at,omitempty"`
	NextAttemptAt *time.Time `gorm:"index" json:"next_attempt_at,omitempty"` // null = due now
	SentAt        *time.Time `json:"sent_at,omitempty"`
}

func (n *QueuedNotification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Status == "" {
		n.Status = NotificationStatusPending
	}
	return nil
}

func (QueuedNotification) TableName() string {
	return "notification_queue"
}

func (n *QueuedNotification) IsSent() bool {
	return n.SentAt != nil
}
