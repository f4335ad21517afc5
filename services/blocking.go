package services

import (
	"context"
	"fmt"
	"law_consult_app/models"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxBlockRangeDays bounds a single block-range request
const MaxBlockRangeDays = 366

// DefaultBlockReason is stored on cancelled consultations when the lawyer gave no reason
const DefaultBlockReason = "The lawyer is not available on this date"

// BlockingService records blocked dates and cancels the consultations they displace
type BlockingService struct {
	DB    *gorm.DB
	Log   *zap.Logger
	Queue *NotificationQueue
	Locks *DateLocker
	Now   func() time.Time
}

func NewBlockingService(db *gorm.DB, log *zap.Logger, queue *NotificationQueue, locks *DateLocker) *BlockingService {
	return &BlockingService{DB: db, Log: log, Queue: queue, Locks: locks, Now: time.Now}
}

// BlockResult summarizes a block operation
type BlockResult struct {
	BlockedDates         []string               `json:"blocked_dates"`
	SkippedDates         []string               `json:"skipped_dates"`
	Entries              []models.ScheduleEntry `json:"entries"`
	CancelledIDs         []string               `json:"cancelled_ids"`
	Cancelled            int                    `json:"cancelled"`
	NotificationsQueued  int                    `json:"notifications_queued"`
	NotificationFailures int                    `json:"notification_failures"`
	Message              string                 `json:"message"`
}

func (s *BlockingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// BlockDate blocks a single date. A date that is already blocked is rejected.
func (s *BlockingService) BlockDate(ctx context.Context, actor Actor, lawyerID, date, reason string) (*BlockResult, error) {
	return s.block(ctx, actor, lawyerID, date, date, reason, true)
}

// BlockRange blocks every day in [startDate, endDate], silently skipping days already blocked
func (s *BlockingService) BlockRange(ctx context.Context, actor Actor, lawyerID, startDate, endDate, reason string) (*BlockResult, error) {
	return s.block(ctx, actor, lawyerID, startDate, endDate, reason, false)
}

func (s *BlockingService) block(ctx context.Context, actor Actor, lawyerID, startDate, endDate, reason string, single bool) (*BlockResult, error) {
	if !actor.CanManageLawyer(lawyerID) {
		return nil, errAccessDenied
	}

	var problems []string
	start, startErr := ParseDate(startDate)
	if startErr != nil {
		problems = append(problems, "start date must be a valid date (YYYY-MM-DD)")
	}
	end, endErr := ParseDate(endDate)
	if endErr != nil {
		problems = append(problems, "end date must be a valid date (YYYY-MM-DD)")
	}
	if startErr == nil && endErr == nil {
		if start.Before(today(s.now())) {
			problems = append(problems, "cannot block dates in the past")
		}
		if end.Before(start) {
			problems = append(problems, "end date must not be before start date")
		} else if int(end.Sub(start).Hours()/24) >= MaxBlockRangeDays {
			problems = append(problems, fmt.Sprintf("a block range is limited to %d days", MaxBlockRangeDays))
		}
	}
	if len(problems) > 0 {
		return nil, NewValidationError(problems...)
	}

	reason = SanitizeText(reason)
	cancelReason := reason
	if cancelReason == "" {
		cancelReason = DefaultBlockReason
	}

	db := s.DB.WithContext(ctx)
	lawyer, err := GetLawyer(db, lawyerID)
	if err != nil {
		return nil, err
	}

	dates := DatesInRange(start, end)
	unlock := s.Locks.LockMany(lawyerID, dates)
	defer unlock()

	alreadyBlocked, err := blockedDatesIn(db, lawyerID, dates[0], dates[len(dates)-1])
	if err != nil {
		return nil, dependency("load blocked dates", err)
	}

	result := &BlockResult{BlockedDates: []string{}, SkippedDates: []string{}, CancelledIDs: []string{}}
	for _, d := range dates {
		if alreadyBlocked[d] {
			result.SkippedDates = append(result.SkippedDates, d)
		} else {
			result.BlockedDates = append(result.BlockedDates, d)
		}
	}
	if len(result.BlockedDates) == 0 {
		if single {
			return nil, NewValidationError(fmt.Sprintf("%s is already blocked", dates[0]))
		}
		return nil, NewValidationError("all dates already blocked")
	}

	var found []models.Consultation
	err = db.Where("lawyer_id = ? AND consultation_date IN ? AND status IN ?",
		lawyerID, result.BlockedDates, models.ActiveConsultationStatuses).
		Order("consultation_date ASC, consultation_time ASC").
		Find(&found).Error
	if err != nil {
		return nil, dependency("load affected consultations", err)
	}

	seen := make(map[string]bool, len(found))
	affected := make([]models.Consultation, 0, len(found))
	for _, c := range found {
		if !seen[c.ID] {
			seen[c.ID] = true
			affected = append(affected, c)
		}
	}

	// Clients hear about the cancellation before their row changes
	for i := range affected {
		c := &affected[i]
		_, created, err := s.Queue.QueueConsultationNotice(ctx, ConsultationNotice{
			Type:         models.NotificationTypeCancellation,
			Consultation: c,
			Lawyer:       lawyer,
			Reason:       cancelReason,
		})
		if err != nil {
			result.NotificationFailures++
			s.Log.Error("failed to queue cancellation notification",
				zap.String("consultation_id", c.ID),
				zap.Error(err))
			continue
		}
		if created {
			result.NotificationsQueued++
		}
	}

	ids := make([]string, 0, len(affected))
	for _, c := range affected {
		ids = append(ids, c.ID)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		entries, err := insertBlocked(tx, lawyerID, result.BlockedDates, reason)
		if err != nil {
			return err
		}
		result.Entries = entries

		if len(ids) == 0 {
			return nil
		}
		update := tx.Model(&models.Consultation{}).
			Where("lawyer_id = ? AND id IN ? AND status IN ?", lawyerID, ids, models.ActiveConsultationStatuses).
			Updates(map[string]interface{}{
				"status":              models.ConsultationStatusCancelled,
				"cancellation_reason": cancelReason,
				"cancelled_at":        s.now(),
			})
		if update.Error != nil {
			return update.Error
		}
		result.Cancelled = int(update.RowsAffected)
		return nil
	})
	if err != nil {
		return nil, dependency("block dates", err)
	}
	result.CancelledIDs = ids

	if result.NotificationsQueued > 0 {
		s.Queue.Kick()
	}

	if len(ids) == 0 {
		result.Message = "no appointments affected"
	} else {
		result.Message = fmt.Sprintf("%d consultation(s) cancelled, %d notification(s) queued", result.Cancelled, result.NotificationsQueued)
	}

	s.Log.Info("dates blocked",
		zap.String("lawyer_id", lawyerID),
		zap.Strings("blocked", result.BlockedDates),
		zap.Strings("skipped", result.SkippedDates),
		zap.Int("cancelled", result.Cancelled),
		zap.Int("notifications", result.NotificationsQueued))
	return result, nil
}
