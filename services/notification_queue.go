package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"law_consult_app/config"
	"law_consult_app/models"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Message is an outbound notification before it is queued
type Message struct {
	RecipientUserID string // empty for clients without an account
	Email           string
	Type            string
	Subject         string
	Body            string
	HTMLBody        string
	ConsultationID  string
	PracticeArea    string
}

// NotificationQueue is the durable outbox written by request paths and drained by the sender job
type NotificationQueue struct {
	DB     *gorm.DB
	Config *config.Config
	Log    *zap.Logger
	Now    func() time.Time
	kick   chan struct{}
}

func NewNotificationQueue(db *gorm.DB, cfg *config.Config, log *zap.Logger) *NotificationQueue {
	return &NotificationQueue{
		DB:     db,
		Config: cfg,
		Log:    log,
		Now:    time.Now,
		kick:   make(chan struct{}, 1),
	}
}

func (q *NotificationQueue) now() time.Time {
	if q.Now != nil {
		return q.Now()
	}
	return time.Now()
}

// IdempotencyKey identifies one event for one recipient
func IdempotencyKey(consultationID, notificationType, email string) string {
	sum := sha256.Sum256([]byte(consultationID + "|" + notificationType + "|" + strings.ToLower(email)))
	return hex.EncodeToString(sum[:])
}

// Enqueue stores msg unless the same event was already queued for the recipient.
// It returns the queue id and whether a new row was created.
func (q *NotificationQueue) Enqueue(ctx context.Context, msg Message) (string, bool, error) {
	var problems []string
	if strings.TrimSpace(msg.Email) == "" {
		problems = append(problems, "notification email is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		problems = append(problems, "notification subject is required")
	}
	if _, ok := templateNames[msg.Type]; !ok {
		problems = append(problems, "unknown notification type "+msg.Type)
	}
	if len(problems) > 0 {
		return "", false, NewValidationError(problems...)
	}

	key := msg.ConsultationID
	if key == "" {
		key = uuid.New().String()
	}
	row := &models.QueuedNotification{
		CreatedAt:      q.now(),
		Email:          strings.TrimSpace(msg.Email),
		Type:           msg.Type,
		Subject:        msg.Subject,
		Body:           msg.Body,
		HTMLBody:       msg.HTMLBody,
		PracticeArea:   msg.PracticeArea,
		IdempotencyKey: IdempotencyKey(key, msg.Type, msg.Email),
		Status:         models.NotificationStatusPending,
	}
	if msg.RecipientUserID != "" {
		row.RecipientUserID = &msg.RecipientUserID
	}
	if msg.ConsultationID != "" {
		row.ConsultationID = &msg.ConsultationID
	}

	db := q.DB.WithContext(ctx)
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "idempotency_key"}},
		DoNothing: true,
	}).Create(row)
	if result.Error != nil {
		return "", false, dependency("enqueue notification", result.Error)
	}

	if result.RowsAffected == 0 {
		var existing models.QueuedNotification
		if err := db.Select("id").Where("idempotency_key = ?", row.IdempotencyKey).First(&existing).Error; err != nil {
			return "", false, dependency("load queued notification", err)
		}
		q.Log.Debug("notification already queued",
			zap.String("type", msg.Type),
			zap.String("consultation_id", msg.ConsultationID))
		return existing.ID, false, nil
	}

	q.Log.Info("notification queued",
		zap.String("id", row.ID),
		zap.String("type", msg.Type),
		zap.String("consultation_id", msg.ConsultationID))
	return row.ID, true, nil
}

// Kick wakes the sender without blocking. Several kicks before a pass collapse into one.
func (q *NotificationQueue) Kick() {
	select {
	case q.kick <- struct{}{}:
	default:
	}
}

// Kicks is the channel the sender worker listens on
func (q *NotificationQueue) Kicks() <-chan struct{} {
	return q.kick
}

// Claim marks up to limit due pending rows as in-flight for this pass and returns them.
// Rows waiting out a retry backoff are skipped. The single UPDATE keeps two passes from
// claiming the same row.
func (q *NotificationQueue) Claim(ctx context.Context, limit int) ([]models.QueuedNotification, string, error) {
	token := uuid.New().String()
	now := q.now()
	db := q.DB.WithContext(ctx)

	pending := db.Model(&models.QueuedNotification{}).
		Select("id").
		Where("status = ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)", models.NotificationStatusPending, now).
		Order("created_at ASC").
		Limit(limit)

	err := db.Model(&models.QueuedNotification{}).
		Where("id IN (?) AND status = ?", pending, models.NotificationStatusPending).
		Updates(map[string]interface{}{
			"status":      models.NotificationStatusSending,
			"claim_token": token,
			"claimed_at":  now,
		}).Error
	if err != nil {
		return nil, "", dependency("claim notifications", err)
	}

	var claimed []models.QueuedNotification
	if err := db.Where("claim_token = ?", token).Order("created_at ASC").Find(&claimed).Error; err != nil {
		return nil, "", dependency("load claimed notifications", err)
	}
	return claimed, token, nil
}

// MarkSent records a successful delivery
func (q *NotificationQueue) MarkSent(ctx context.Context, id, token string) error {
	now := q.now()
	err := q.DB.WithContext(ctx).Model(&models.QueuedNotification{}).
		Where("id = ? AND claim_token = ?", id, token).
		Updates(map[string]interface{}{
			"status":      models.NotificationStatusSent,
			"sent_at":     now,
			"claim_token": nil,
			"last_error":  "",
		}).Error
	return dependency("mark notification sent", err)
}

// MarkFailed counts a failed attempt. The row goes back to pending until its backoff has passed,
// or to failed once maxAttempts is reached.
func (q *NotificationQueue) MarkFailed(ctx context.Context, n *models.QueuedNotification, token string, sendErr error, maxAttempts int) error {
	status := models.NotificationStatusPending
	var nextAttempt interface{}
	if n.Attempts+1 >= maxAttempts {
		status = models.NotificationStatusFailed
	} else {
		nextAttempt = q.now().Add(q.RetryDelay(n.Attempts + 1))
	}

	message := ""
	if sendErr != nil {
		message = sendErr.Error()
	}

	err := q.DB.WithContext(ctx).Model(&models.QueuedNotification{}).
		Where("id = ? AND claim_token = ?", n.ID, token).
		Updates(map[string]interface{}{
			"status":          status,
			"attempts":        gorm.Expr("attempts + 1"),
			"last_error":      message,
			"claim_token":     nil,
			"claimed_at":      nil,
			"next_attempt_at": nextAttempt,
		}).Error
	return dependency("mark notification failed", err)
}

// RetryDelay is the wait after the given number of failed attempts: the configured backoff,
// doubled for every failure after the first
func (q *NotificationQueue) RetryDelay(failures int) time.Duration {
	base := time.Minute
	if q.Config != nil && q.Config.NotificationRetryBackoff > 0 {
		base = q.Config.NotificationRetryBackoff
	}
	if failures < 1 {
		return 0
	}
	return base << (failures - 1)
}

// ReleaseStale returns rows stuck in sending for longer than olderThan to pending
func (q *NotificationQueue) ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := q.now().Add(-olderThan)
	result := q.DB.WithContext(ctx).Model(&models.QueuedNotification{}).
		Where("status = ? AND claimed_at < ?", models.NotificationStatusSending, cutoff).
		Updates(map[string]interface{}{
			"status":      models.NotificationStatusPending,
			"claim_token": nil,
			"claimed_at":  nil,
		})
	if result.Error != nil {
		return 0, dependency("release stale notifications", result.Error)
	}
	return result.RowsAffected, nil
}

// RecentlyQueued reports whether a notification of the same type went to email for practiceArea within window
func (q *NotificationQueue) RecentlyQueued(ctx context.Context, email, practiceArea, notificationType string, window time.Duration) (bool, error) {
	var count int64
	err := q.DB.WithContext(ctx).Model(&models.QueuedNotification{}).
		Where("email = ? AND practice_area = ? AND type = ? AND created_at >= ?",
			strings.TrimSpace(email), practiceArea, notificationType, q.now().Add(-window)).
		Count(&count).Error
	if err != nil {
		return false, dependency("check recent notifications", err)
	}
	return count > 0, nil
}

// Counts returns the number of queued rows per status
func (q *NotificationQueue) Counts(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := q.DB.WithContext(ctx).Model(&models.QueuedNotification{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, dependency("count notifications", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}

// ConsultationNotice describes a consultation event to notify
type ConsultationNotice struct {
	Type         string
	Consultation *models.Consultation
	Lawyer       *models.User
	Reason       string
}

// QueueConsultationNotice renders and queues a consultation event. new_consultation goes to the
// lawyer in the lawyer's language; every other type goes to the client.
func (q *NotificationQueue) QueueConsultationNotice(ctx context.Context, notice ConsultationNotice) (string, bool, error) {
	c := notice.Consultation
	if c == nil {
		return "", false, errors.New("consultation notice without consultation")
	}

	lang := q.Config.DefaultLanguage
	data := NewConsultationEmailData(c, notice.Lawyer, notice.Reason, q.Config.AppURL)
	to := c.Email
	recipientID := ""

	if notice.Type == models.NotificationTypeNewConsultation {
		if notice.Lawyer == nil {
			return "", false, errors.New("new consultation notice without lawyer")
		}
		to = notice.Lawyer.Email
		recipientID = notice.Lawyer.ID
		data.RecipientName = notice.Lawyer.Name
		if notice.Lawyer.Language != "" {
			lang = notice.Lawyer.Language
		}
	}

	email, err := BuildConsultationEmail(notice.Type, to, data, lang)
	if err != nil {
		return "", false, NewValidationError(err.Error())
	}

	return q.Enqueue(ctx, Message{
		RecipientUserID: recipientID,
		Email:           to,
		Type:            notice.Type,
		Subject:         email.Subject,
		Body:            email.TextBody,
		HTMLBody:        email.HTMLBody,
		ConsultationID:  c.ID,
		PracticeArea:    c.PracticeArea,
	})
}
