package services

import (
	"context"
	"errors"
	"fmt"
	"law_consult_app/config"
	"law_consult_app/models"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConsultationService changes and lists consultations on behalf of lawyers and admins
type ConsultationService struct {
	DB     *gorm.DB
	Config *config.Config
	Log    *zap.Logger
	Queue  *NotificationQueue
	Now    func() time.Time
}

func NewConsultationService(db *gorm.DB, cfg *config.Config, log *zap.Logger, queue *NotificationQueue) *ConsultationService {
	return &ConsultationService{DB: db, Config: cfg, Log: log, Queue: queue, Now: time.Now}
}

func (s *ConsultationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// StatusResult is the outcome of a status change. Changed is false for same-status requests.
type StatusResult struct {
	Consultation *models.Consultation `json:"consultation"`
	Changed      bool                 `json:"changed"`
	Notified     bool                 `json:"notified"`
}

// GetConsultation loads a consultation the actor may manage. Non-admins cannot tell missing from foreign.
func (s *ConsultationService) GetConsultation(ctx context.Context, actor Actor, id string) (*models.Consultation, error) {
	var c models.Consultation
	err := s.DB.WithContext(ctx).Preload("Lawyer").First(&c, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if actor.IsAdmin() {
				return nil, &NotFoundError{Resource: "consultation", ID: id}
			}
			return nil, errAccessDenied
		}
		return nil, dependency("load consultation", err)
	}

	if !actor.IsAdmin() && !(actor.IsLawyer() && c.AssignedLawyerID() == actor.UserID) {
		return nil, errAccessDenied
	}
	return &c, nil
}

// UpdateConsultationStatus moves a consultation through pending, confirmed, completed and cancelled
func (s *ConsultationService) UpdateConsultationStatus(ctx context.Context, actor Actor, id, newStatus, reason string) (*StatusResult, error) {
	newStatus = strings.ToLower(strings.TrimSpace(newStatus))
	reason = SanitizeText(reason)
	if !models.IsValidConsultationStatus(newStatus) {
		return nil, NewValidationError(fmt.Sprintf("invalid status %q", newStatus))
	}

	c, err := s.GetConsultation(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if c.Status == newStatus {
		return &StatusResult{Consultation: c, Changed: false}, nil
	}
	if c.IsTerminal() {
		return nil, NewValidationError(fmt.Sprintf("consultation is already %s and cannot change", c.Status))
	}
	if !models.CanTransition(c.Status, newStatus) {
		return nil, NewValidationError(fmt.Sprintf("cannot change status from %s to %s", c.Status, newStatus))
	}
	if newStatus == models.ConsultationStatusCancelled && reason == "" {
		return nil, NewValidationError("a cancellation reason is required")
	}

	updates := map[string]interface{}{
		"status":              newStatus,
		"cancellation_reason": nil,
		"cancelled_at":        nil,
	}
	if newStatus == models.ConsultationStatusCancelled {
		updates["cancellation_reason"] = reason
		updates["cancelled_at"] = s.now()
	}

	result := s.DB.WithContext(ctx).Model(&models.Consultation{}).
		Where("id = ? AND status = ?", c.ID, c.Status).
		Updates(updates)
	if result.Error != nil {
		return nil, dependency("update consultation status", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, NewValidationError("consultation was modified concurrently, reload and try again")
	}

	oldStatus := c.Status
	if err := s.DB.WithContext(ctx).Preload("Lawyer").First(c, "id = ?", c.ID).Error; err != nil {
		return nil, dependency("reload consultation", err)
	}

	s.Log.Info("consultation status changed",
		zap.String("id", c.ID),
		zap.String("from", oldStatus),
		zap.String("to", newStatus),
		zap.String("actor", actor.UserID))

	notified := s.notifyStatus(ctx, c, reason)
	return &StatusResult{Consultation: c, Changed: true, Notified: notified}, nil
}

// notifyStatus queues the client notice for the new status. Confirmations are suppressed when
// one already went to the same email and practice area within the dedupe window.
func (s *ConsultationService) notifyStatus(ctx context.Context, c *models.Consultation, reason string) bool {
	var notificationType string
	switch c.Status {
	case models.ConsultationStatusConfirmed:
		notificationType = models.NotificationTypeConfirmation
	case models.ConsultationStatusCompleted:
		notificationType = models.NotificationTypeCompletion
	case models.ConsultationStatusCancelled:
		notificationType = models.NotificationTypeCancellation
	default:
		return false
	}

	if notificationType == models.NotificationTypeConfirmation {
		recent, err := s.Queue.RecentlyQueued(ctx, c.Email, c.PracticeArea, notificationType, s.Config.ConfirmationDedupeWindow)
		if err != nil {
			s.Log.Error("failed to check recent confirmations", zap.String("consultation_id", c.ID), zap.Error(err))
			return false
		}
		if recent {
			s.Log.Info("confirmation already sent recently, skipping", zap.String("consultation_id", c.ID))
			return false
		}
	}

	_, created, err := s.Queue.QueueConsultationNotice(ctx, ConsultationNotice{
		Type:         notificationType,
		Consultation: c,
		Lawyer:       c.Lawyer,
		Reason:       reason,
	})
	if err != nil {
		s.Log.Error("failed to queue notification",
			zap.String("type", notificationType),
			zap.String("consultation_id", c.ID),
			zap.Error(err))
		return false
	}
	if created {
		s.Queue.Kick()
	}
	return created
}

// ConsultationFilter narrows consultation listings and exports
type ConsultationFilter struct {
	LawyerID     string `query:"lawyer_id"`
	Status       string `query:"status"`
	PracticeArea string `query:"practice_area"`
	From         string `query:"from"`
	To           string `query:"to"`
}

// ListConsultations returns consultations visible to the actor. Lawyers only see their own.
func (s *ConsultationService) ListConsultations(ctx context.Context, actor Actor, filter ConsultationFilter) ([]models.Consultation, error) {
	if !actor.IsAdmin() {
		if !actor.IsLawyer() {
			return nil, errAccessDenied
		}
		if filter.LawyerID != "" && filter.LawyerID != actor.UserID {
			return nil, errAccessDenied
		}
		filter.LawyerID = actor.UserID
	}

	var problems []string
	query := s.DB.WithContext(ctx).Preload("Lawyer")
	if filter.LawyerID != "" {
		query = query.Where("lawyer_id = ?", filter.LawyerID)
	}
	if filter.Status != "" {
		if !models.IsValidConsultationStatus(filter.Status) {
			problems = append(problems, fmt.Sprintf("invalid status %q", filter.Status))
		}
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PracticeArea != "" {
		query = query.Where("practice_area = ?", filter.PracticeArea)
	}
	if filter.From != "" {
		if _, err := ParseDate(filter.From); err != nil {
			problems = append(problems, "from must be a valid date (YYYY-MM-DD)")
		}
		query = query.Where("consultation_date >= ?", filter.From)
	}
	if filter.To != "" {
		if _, err := ParseDate(filter.To); err != nil {
			problems = append(problems, "to must be a valid date (YYYY-MM-DD)")
		}
		query = query.Where("consultation_date <= ?", filter.To)
	}
	if len(problems) > 0 {
		return nil, NewValidationError(problems...)
	}

	var consultations []models.Consultation
	err := query.Order("consultation_date ASC, consultation_time ASC").Find(&consultations).Error
	if err != nil {
		return nil, dependency("list consultations", err)
	}
	return consultations, nil
}
