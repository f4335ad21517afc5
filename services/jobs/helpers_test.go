package jobs

import (
	"context"
	"law_consult_app/config"
	"law_consult_app/models"
	"law_consult_app/services"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2025, 6, 8, 9, 0, 0, 0, time.UTC)

func setupJobsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbName := "mem_" + uuid.New().String()
	db, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newTestQueue(t *testing.T) (*gorm.DB, *config.Config, *services.NotificationQueue) {
	t.Helper()
	db := setupJobsTestDB(t)
	cfg := config.Default()
	queue := services.NewNotificationQueue(db, cfg, zap.NewNop())
	queue.Now = func() time.Time { return testNow }
	return db, cfg, queue
}

func enqueue(t *testing.T, queue *services.NotificationQueue, consultationID string) string {
	t.Helper()
	id, created, err := queue.Enqueue(context.Background(), services.Message{
		Email:          "client@example.com",
		Type:           models.NotificationTypeConfirmation,
		Subject:        "Confirmed",
		Body:           "See you",
		ConsultationID: consultationID,
		PracticeArea:   "family",
	})
	require.NoError(t, err)
	require.True(t, created)
	return id
}

// recordingMailer keeps sent emails in memory and fails with Err when set
type recordingMailer struct {
	mu   sync.Mutex
	Sent []*services.Email
	Err  error
}

func (m *recordingMailer) Send(ctx context.Context, email *services.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, email)
	return nil
}

func (m *recordingMailer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}
