package services

import (
	"context"
	"law_consult_app/config"
	"law_consult_app/models"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testNow is a Sunday; 2025-06-09 is the Monday after, 2025-06-10 the Tuesday
var testNow = time.Date(2025, 6, 8, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Unique shared memory name isolates tests while letting every connection see the same data
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, testDB.AutoMigrate(models.All()...))
	return testDB
}

type testEnv struct {
	DB            *gorm.DB
	Config        *config.Config
	Queue         *NotificationQueue
	Locks         *DateLocker
	Schedules     *ScheduleStore
	Booking       *BookingService
	Consultations *ConsultationService
	Blocking      *BlockingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	testDB := setupTestDB(t)
	cfg := config.Default()
	log := zap.NewNop()

	queue := NewNotificationQueue(testDB, cfg, log)
	queue.Now = fixedClock
	locks := NewDateLocker()

	env := &testEnv{
		DB:            testDB,
		Config:        cfg,
		Queue:         queue,
		Locks:         locks,
		Schedules:     NewScheduleStore(testDB, log),
		Booking:       NewBookingService(testDB, cfg, log, queue, locks),
		Consultations: NewConsultationService(testDB, cfg, log, queue),
		Blocking:      NewBlockingService(testDB, log, queue, locks),
	}
	env.Schedules.Now = fixedClock
	env.Booking.Now = fixedClock
	env.Consultations.Now = fixedClock
	env.Blocking.Now = fixedClock
	return env
}

func createLawyer(t *testing.T, db *gorm.DB, name string, areas ...string) *models.User {
	t.Helper()
	practiceAreas, err := EnsurePracticeAreas(db, areas)
	require.NoError(t, err)

	lawyer := &models.User{
		Name:          name,
		Email:         uuid.New().String()[:8] + "@firm.test",
		Password:      "x",
		Role:          models.RoleLawyer,
		IsActive:      true,
		Language:      "en",
		PracticeAreas: practiceAreas,
	}
	require.NoError(t, db.Create(lawyer).Error)
	return lawyer
}

func lawyerActor(u *models.User) Actor {
	return Actor{UserID: u.ID, Role: models.RoleLawyer}
}

var adminActor = Actor{UserID: "admin-1", Role: models.RoleAdmin}

func addWeekly(t *testing.T, env *testEnv, lawyer *models.User, weekday time.Weekday, start, end string, maxAppointments int) {
	t.Helper()
	_, err := env.Schedules.AddWeekly(context.Background(), lawyerActor(lawyer), lawyer.ID, WeeklyInput{
		Weekdays:            []int{int(weekday)},
		StartTime:           start,
		EndTime:             end,
		MaxAppointments:     maxAppointments,
		SlotDurationMinutes: 60,
	})
	require.NoError(t, err)
}

func bookingInput(lawyerID, date, clock string) ConsultationInput {
	return ConsultationInput{
		FullName:         "Maria Gomez",
		Email:            "maria@example.com",
		Phone:            "57300123456",
		PracticeArea:     "family",
		CaseDescription:  "Custody agreement needs review before the hearing",
		LawyerID:         lawyerID,
		ConsultationDate: date,
		ConsultationTime: clock,
	}
}

func insertConsultation(t *testing.T, db *gorm.DB, lawyerID, date, status string) *models.Consultation {
	t.Helper()
	c := &models.Consultation{
		FullName:         "Client " + uuid.New().String()[:4],
		Email:            uuid.New().String()[:8] + "@client.test",
		Phone:            "30012345678",
		PracticeArea:     "family",
		CaseDescription:  "Existing consultation",
		LawyerID:         &lawyerID,
		ConsultationDate: date,
		ConsultationTime: "10:00:00",
		Status:           status,
		Source:           models.ConsultationSourceClient,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func queuedOfType(t *testing.T, db *gorm.DB, notificationType string) []models.QueuedNotification {
	t.Helper()
	var rows []models.QueuedNotification
	require.NoError(t, db.Where("type = ?", notificationType).Order("created_at ASC").Find(&rows).Error)
	return rows
}
