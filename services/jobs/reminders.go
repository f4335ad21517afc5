package jobs

import (
	"context"
	"law_consult_app/models"
	"law_consult_app/services"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QueueConsultationReminders queues a reminder for every confirmed consultation taking place
// the day after now. Reminders are keyed per consultation, so running twice queues nothing new.
func QueueConsultationReminders(ctx context.Context, database *gorm.DB, queue *services.NotificationQueue, now time.Time, log *zap.Logger) (int, error) {
	tomorrow := now.AddDate(0, 0, 1).Format(models.DateLayout)

	var consultations []models.Consultation
	err := database.WithContext(ctx).Preload("Lawyer").
		Where("status = ? AND consultation_date = ?", models.ConsultationStatusConfirmed, tomorrow).
		Find(&consultations).Error
	if err != nil {
		return 0, err
	}

	log.Info("queueing consultation reminders", zap.String("date", tomorrow), zap.Int("found", len(consultations)))

	queued := 0
	for i := range consultations {
		c := &consultations[i]
		_, created, err := queue.QueueConsultationNotice(ctx, services.ConsultationNotice{
			Type:         models.NotificationTypeReminder,
			Consultation: c,
			Lawyer:       c.Lawyer,
		})
		if err != nil {
			log.Error("failed to queue reminder", zap.String("consultation_id", c.ID), zap.Error(err))
			continue
		}
		if created {
			queued++
		}
	}

	if queued > 0 {
		queue.Kick()
	}
	return queued, nil
}
