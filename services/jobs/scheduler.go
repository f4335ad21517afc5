package jobs

import (
	"context"
	"law_consult_app/config"
	"law_consult_app/services"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Scheduler runs the notification sender in a single worker goroutine. Passes start on queue
// kicks from request handlers and on the cron poll; reminders are queued on their own schedule.
type Scheduler struct {
	DB     *gorm.DB
	Queue  *services.NotificationQueue
	Mailer services.Mailer
	Config *config.Config
	Log    *zap.Logger

	cron *cron.Cron
	wg   sync.WaitGroup
}

func NewScheduler(db *gorm.DB, queue *services.NotificationQueue, mailer services.Mailer, cfg *config.Config, log *zap.Logger) *Scheduler {
	return &Scheduler{DB: db, Queue: queue, Mailer: mailer, Config: cfg, Log: log}
}

// Start registers the cron entries and launches the worker. It stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New()

	if _, err := s.cron.AddFunc(s.Config.NotificationPollSpec, s.Queue.Kick); err != nil {
		return err
	}
	_, err := s.cron.AddFunc(s.Config.ReminderSpec, func() {
		if _, err := QueueConsultationReminders(ctx, s.DB, s.Queue, time.Now(), s.Log); err != nil {
			s.Log.Error("reminder job failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.wg.Add(1)
	go s.run(ctx)

	// Deliver whatever was left queued by a previous run
	s.Queue.Kick()
	s.Log.Info("notification scheduler started",
		zap.String("poll", s.Config.NotificationPollSpec),
		zap.String("reminders", s.Config.ReminderSpec))
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.Queue.Kicks():
			s.drain(ctx)
		}
	}
}

// drain runs passes while full batches keep getting delivered. Failed rows wait out their retry backoff.
func (s *Scheduler) drain(ctx context.Context) {
	for ctx.Err() == nil {
		result, err := ProcessPendingNotifications(ctx, s.Queue, s.Mailer, s.Config, s.Log)
		if err != nil {
			s.Log.Error("notification pass failed", zap.Error(err))
			return
		}
		if result.Claimed < s.Config.NotificationBatchSize || result.Sent == 0 {
			return
		}
	}
}

// Stop halts the cron entries and waits for the worker to exit. ctx passed to Start must be cancelled first.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.wg.Wait()
}
