package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("EMAIL_TEST_MODE", "false")
	t.Setenv("NOTIFICATION_MAX_ATTEMPTS", "5")
	t.Setenv("CONFIRMATION_DEDUPE_WINDOW", "2m")
	t.Setenv("NOTIFICATION_BATCH_SIZE", "lots")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.False(t, cfg.EmailTestMode)
	assert.Equal(t, 5, cfg.NotificationMaxAttempts)
	assert.Equal(t, 2*time.Minute, cfg.ConfirmationDedupeWindow)
	assert.Equal(t, 10, cfg.NotificationBatchSize, "unparsable values fall back to the default")
	assert.Equal(t, "@every 1m", cfg.NotificationPollSpec)
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.True(t, cfg.EmailTestMode)
	assert.Equal(t, DefaultBookingWeeks, cfg.DefaultBookingWeeks)
	assert.Equal(t, MaxBookingWeeks, cfg.MaxBookingWeeks)
	assert.Equal(t, 5*time.Minute, cfg.ConfirmationDedupeWindow)
}
