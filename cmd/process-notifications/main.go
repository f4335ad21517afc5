package main

import (
	"context"
	"flag"
	"fmt"
	"law_consult_app/config"
	"law_consult_app/db"
	"law_consult_app/logger"
	"law_consult_app/models"
	"law_consult_app/services"
	"law_consult_app/services/jobs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// One delivery pass over the notification queue, for cron or manual use when the server is down
func main() {
	reminders := flag.Bool("reminders", false, "also queue reminders for tomorrow's confirmed consultations")
	flag.Parse()

	cfg := config.Load()

	zlog, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()
	zap.ReplaceGlobals(zlog)

	if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		zlog.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(models.All()...); err != nil {
		zlog.Fatal("Failed to run migrations", zap.Error(err))
	}

	mailer, err := services.NewMailer(cfg, zlog)
	if err != nil {
		zlog.Fatal("Failed to configure mailer", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue := services.NewNotificationQueue(db.DB, cfg, zlog)

	if *reminders {
		queued, err := jobs.QueueConsultationReminders(ctx, db.DB, queue, time.Now(), zlog)
		if err != nil {
			zlog.Fatal("Failed to queue reminders", zap.Error(err))
		}
		fmt.Printf("Reminders queued: %d\n", queued)
	}

	result, err := jobs.ProcessPendingNotifications(ctx, queue, mailer, cfg, zlog)
	if err != nil {
		zlog.Fatal("Notification pass failed", zap.Error(err))
	}

	counts, err := queue.Counts(ctx)
	if err != nil {
		zlog.Fatal("Failed to count notifications", zap.Error(err))
	}

	fmt.Printf("Claimed: %d  Sent: %d  Failed: %d  Released: %d\n", result.Claimed, result.Sent, result.Failed, result.Released)
	fmt.Printf("Queue: pending=%d sending=%d sent=%d failed=%d\n",
		counts[models.NotificationStatusPending],
		counts[models.NotificationStatusSending],
		counts[models.NotificationStatusSent],
		counts[models.NotificationStatusFailed])
}
