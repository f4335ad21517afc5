package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"law_consult_app/config"
	"law_consult_app/middleware"
	"law_consult_app/models"
	"law_consult_app/services"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "GoodPassword1"

// testNow is a Sunday; 2025-06-09 is the Monday after
var testNow = time.Date(2025, 6, 8, 9, 0, 0, 0, time.UTC)

type apiTest struct {
	DB      *gorm.DB
	Handler *Handler
	Echo    *echo.Echo
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
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

func newAPITest(t *testing.T, limit middleware.RateLimitConfig) *apiTest {
	t.Helper()
	testDB := setupTestDB(t)
	cfg := config.Default()
	log := zap.NewNop()

	queue := services.NewNotificationQueue(testDB, cfg, log)
	h := New(testDB, cfg, log, queue)
	h.SetClock(func() time.Time { return testNow })

	limiter := middleware.NewRateLimiter(limit)
	t.Cleanup(limiter.Close)

	e := echo.New()
	RegisterRoutes(e, h, limiter)
	return &apiTest{DB: testDB, Handler: h, Echo: e}
}

func createUser(t *testing.T, db *gorm.DB, name, role string, areas ...string) *models.User {
	t.Helper()
	user, err := services.CreateUser(context.Background(), db, services.UserInput{
		Name:          name,
		Email:         uuid.New().String()[:8] + "@firm.example",
		Password:      testPassword,
		Role:          role,
		Language:      "en",
		PracticeAreas: areas,
	})
	require.NoError(t, err)
	return user
}

type testResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	IDs     []string        `json:"ids"`
	Errors  []string        `json:"errors"`
}

// do sends a request as the given user (nil for anonymous) and decodes JSON replies
func (a *apiTest) do(t *testing.T, method, target string, as *models.User, body interface{}) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if as != nil {
		req.SetBasicAuth(as.Email, testPassword)
	}

	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)

	var resp testResponse
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func addWeekly(t *testing.T, a *apiTest, lawyer *models.User, weekday, maxAppointments int) {
	t.Helper()
	rec, _ := a.do(t, http.MethodPost, "/api/schedules/weekly", lawyer, map[string]interface{}{
		"weekdays":              []int{weekday},
		"start_time":            "09:00",
		"end_time":              "12:00",
		"max_appointments":      maxAppointments,
		"slot_duration_minutes": 60,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func bookingBody(lawyerID, date, clock string) map[string]string {
	return map[string]string{
		"full_name":         "Maria Gomez",
		"email":             "maria@example.com",
		"phone":             "57300123456",
		"practice_area":     "family",
		"case_description":  "Custody agreement needs review before the hearing",
		"lawyer_id":         lawyerID,
		"consultation_date": date,
		"consultation_time": clock,
	}
}
