package services

import (
	"context"
	"errors"
	"fmt"
	"law_consult_app/config"
	"law_consult_app/models"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BookingService admits new consultations against the lawyers' daily capacity
type BookingService struct {
	DB     *gorm.DB
	Config *config.Config
	Log    *zap.Logger
	Queue  *NotificationQueue
	Locks  *DateLocker
	Now    func() time.Time
}

func NewBookingService(db *gorm.DB, cfg *config.Config, log *zap.Logger, queue *NotificationQueue, locks *DateLocker) *BookingService {
	return &BookingService{DB: db, Config: cfg, Log: log, Queue: queue, Locks: locks, Now: time.Now}
}

// BookingResult describes an admitted consultation
type BookingResult struct {
	Consultation    *models.Consultation `json:"consultation"`
	Lawyer          *models.User         `json:"lawyer"`
	MaxAppointments int                  `json:"max_appointments"`
	Remaining       int                  `json:"remaining"`
	Notifications   int                  `json:"notifications_queued"`
}

func (s *BookingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CreateConsultation validates the request, picks the lawyer and inserts the consultation
// if the lawyer still has capacity on the requested date
func (s *BookingService) CreateConsultation(ctx context.Context, actor Actor, in ConsultationInput) (*BookingResult, error) {
	in.Normalize()
	now := s.now()

	var problems []string
	if err := ValidateConsultationInput(ctx, &in, now); err != nil {
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			return nil, err
		}
		problems = append(problems, validationErr.Messages...)
	}
	if in.Status != "" && in.Status != models.ConsultationStatusPending && !actor.IsAdmin() {
		problems = append(problems, "only administrators can choose the initial status")
	}
	if len(problems) > 0 {
		return nil, NewValidationError(problems...)
	}

	date, _ := ParseDate(in.ConsultationDate)
	clock, _ := NormalizeTime(in.ConsultationTime)

	status := models.ConsultationStatusPending
	source := models.ConsultationSourceClient
	if actor.IsAdmin() {
		source = models.ConsultationSourceAdmin
		if in.Status != "" {
			status = in.Status
		}
	}

	consultation := &models.Consultation{
		FullName:         in.FullName,
		Email:            in.Email,
		Phone:            in.Phone,
		PracticeArea:     in.PracticeArea,
		CaseDescription:  in.CaseDescription,
		ConsultationDate: DateString(date),
		ConsultationTime: clock,
		Status:           status,
		Source:           source,
	}

	var (
		result *BookingResult
		err    error
	)
	if in.WantsAnyLawyer() {
		result, err = s.admitAnyLawyer(ctx, consultation, date, now)
	} else {
		result, err = s.admitExplicitLawyer(ctx, in.LawyerID, consultation, date, now)
	}
	if err != nil {
		return nil, err
	}

	s.Log.Info("consultation booked",
		zap.String("id", consultation.ID),
		zap.String("lawyer_id", result.Lawyer.ID),
		zap.String("date", consultation.ConsultationDate),
		zap.String("status", consultation.Status),
		zap.Int("remaining", result.Remaining))

	result.Notifications = s.notifyBooking(ctx, result)
	return result, nil
}

func (s *BookingService) admitExplicitLawyer(ctx context.Context, lawyerID string, c *models.Consultation, date, now time.Time) (*BookingResult, error) {
	lawyer, err := GetLawyer(s.DB.WithContext(ctx), lawyerID)
	if err != nil {
		return nil, err
	}

	window := ResolveBookingWindow(lawyer, s.Config)
	if date.After(window.LatestDate(now)) {
		return nil, NewValidationError(fmt.Sprintf("consultation_date is beyond the %d weeks this lawyer accepts bookings for", window.MaxWeeks))
	}

	return s.admit(ctx, lawyer, c, date)
}

// admitAnyLawyer tries the specialized lawyers in policy order until one admits the booking
func (s *BookingService) admitAnyLawyer(ctx context.Context, c *models.Consultation, date, now time.Time) (*BookingResult, error) {
	db := s.DB.WithContext(ctx)
	candidates, err := ResolveCandidateLawyers(db, c.PracticeArea)
	if err != nil {
		return nil, err
	}

	inWindow := candidates[:0]
	for _, lawyer := range candidates {
		if !date.After(ResolveBookingWindow(&lawyer, s.Config).LatestDate(now)) {
			inWindow = append(inWindow, lawyer)
		}
	}

	ranked, err := SelectLawyers(db, inWindow, date)
	if err != nil {
		return nil, err
	}

	for i := range ranked {
		lawyer := ranked[i].Lawyer
		result, err := s.admit(ctx, &lawyer, c, date)
		if err == nil {
			return result, nil
		}
		var capacityErr *CapacityExceededError
		if !errors.As(err, &capacityErr) {
			return nil, err
		}
		// Taken by a concurrent booking since ranking; try the next lawyer
		c.ID = ""
	}

	return nil, &CapacityExceededError{Date: DateString(date), Reason: UnavailableNoLawyer}
}

// admit re-resolves capacity and inserts the consultation under the (lawyer, date) lock
// inside one immediate transaction
func (s *BookingService) admit(ctx context.Context, lawyer *models.User, c *models.Consultation, date time.Time) (*BookingResult, error) {
	day := DateString(date)
	unlock := s.Locks.Lock(lawyer.ID, day)
	defer unlock()

	var avail *DayAvailability
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		avail, err = ResolveAvailability(tx, lawyer.ID, date)
		if err != nil {
			return err
		}
		if !avail.Available {
			return &CapacityExceededError{
				LawyerID: lawyer.ID,
				Date:     day,
				Max:      avail.MaxAppointments,
				Reason:   avail.Reason,
			}
		}

		c.LawyerID = &lawyer.ID
		return tx.Create(c).Error
	})
	if err != nil {
		return nil, dependency("create consultation", err)
	}

	return &BookingResult{
		Consultation:    c,
		Lawyer:          lawyer,
		MaxAppointments: avail.MaxAppointments,
		Remaining:       avail.Remaining - 1,
	}, nil
}

// notifyBooking queues the booking notifications and wakes the sender. Failures are logged only.
func (s *BookingService) notifyBooking(ctx context.Context, result *BookingResult) int {
	notices := []ConsultationNotice{
		{Type: models.NotificationTypeNewConsultation, Consultation: result.Consultation, Lawyer: result.Lawyer},
		{Type: models.NotificationTypeConsultationReceived, Consultation: result.Consultation, Lawyer: result.Lawyer},
	}
	if result.Consultation.Status == models.ConsultationStatusConfirmed {
		notices = append(notices, ConsultationNotice{
			Type:         models.NotificationTypeConfirmation,
			Consultation: result.Consultation,
			Lawyer:       result.Lawyer,
		})
	}

	queued := 0
	for _, notice := range notices {
		_, created, err := s.Queue.QueueConsultationNotice(ctx, notice)
		if err != nil {
			s.Log.Error("failed to queue notification",
				zap.String("type", notice.Type),
				zap.String("consultation_id", result.Consultation.ID),
				zap.Error(err))
			continue
		}
		if created {
			queued++
		}
	}

	if queued > 0 {
		s.Queue.Kick()
	}
	return queued
}
