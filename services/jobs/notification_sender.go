package jobs

import (
	"context"
	"law_consult_app/config"
	"law_consult_app/services"

	"go.uber.org/zap"
)

// PassResult counts what one sender pass did
type PassResult struct {
	Released int64 `json:"released"`
	Claimed  int   `json:"claimed"`
	Sent     int   `json:"sent"`
	Failed   int   `json:"failed"`
}

// ProcessPendingNotifications claims one batch of queued notifications and delivers it.
// Each message gets its own timeout; a timeout or send error only counts as a failed attempt.
func ProcessPendingNotifications(ctx context.Context, queue *services.NotificationQueue, mailer services.Mailer, cfg *config.Config, log *zap.Logger) (PassResult, error) {
	var result PassResult

	released, err := queue.ReleaseStale(ctx, cfg.NotificationStaleAfter)
	if err != nil {
		return result, err
	}
	result.Released = released
	if released > 0 {
		log.Warn("released stale notification claims", zap.Int64("count", released))
	}

	batch, token, err := queue.Claim(ctx, cfg.NotificationBatchSize)
	if err != nil {
		return result, err
	}
	result.Claimed = len(batch)

	for i := range batch {
		n := &batch[i]
		email := &services.Email{
			To:       []string{n.Email},
			Subject:  n.Subject,
			HTMLBody: n.HTMLBody,
			TextBody: n.Body,
		}

		sendCtx, cancel := context.WithTimeout(ctx, cfg.NotificationSendTimeout)
		sendErr := mailer.Send(sendCtx, email)
		cancel()

		if sendErr != nil {
			result.Failed++
			log.Warn("notification delivery failed",
				zap.String("id", n.ID),
				zap.String("type", n.Type),
				zap.Int("attempt", n.Attempts+1),
				zap.Error(sendErr))
			if err := queue.MarkFailed(ctx, n, token, sendErr, cfg.NotificationMaxAttempts); err != nil {
				log.Error("failed to record delivery failure", zap.String("id", n.ID), zap.Error(err))
			}
			continue
		}

		result.Sent++
		if err := queue.MarkSent(ctx, n.ID, token); err != nil {
			log.Error("failed to mark notification sent", zap.String("id", n.ID), zap.Error(err))
		}
	}

	if result.Claimed > 0 {
		log.Info("notification pass completed",
			zap.Int("claimed", result.Claimed),
			zap.Int("sent", result.Sent),
			zap.Int("failed", result.Failed))
	}
	return result, nil
}
