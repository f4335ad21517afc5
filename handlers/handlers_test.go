package handlers

import (
	"encoding/json"
	"law_consult_app/middleware"
	"law_consult_app/models"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var generousLimit = middleware.RateLimitConfig{Requests: 100, Window: time.Minute}

func TestListLawyers(t *testing.T) {
	api := newAPITest(t, generousLimit)
	createUser(t, api.DB, "Ana Torres", models.RoleLawyer, "family")
	createUser(t, api.DB, "Luis Perez", models.RoleLawyer, "labor")
	createUser(t, api.DB, "Office Admin", models.RoleAdmin)

	rec, resp := api.do(t, http.MethodGet, "/api/lawyers?practice_area=family", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var lawyers []LawyerSummary
	require.NoError(t, json.Unmarshal(resp.Data, &lawyers))
	require.Len(t, lawyers, 1)
	assert.Equal(t, "Ana Torres", lawyers[0].Name)
	assert.Equal(t, []string{"family"}, lawyers[0].PracticeAreas)

	rec, resp = api.do(t, http.MethodGet, "/api/lawyers", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &lawyers))
	assert.Len(t, lawyers, 2)
}

func TestAvailabilityAndSlots(t *testing.T) {
	api := newAPITest(t, generousLimit)
	lawyer := createUser(t, api.DB, "Ana Torres", models.RoleLawyer, "family")
	addWeekly(t, api, lawyer, 1, 2)

	rec, resp := api.do(t, http.MethodGet, "/api/lawyers/"+lawyer.ID+"/availability?from=2025-06-09&to=2025-06-10", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var days []struct {
		Date      string `json:"date"`
		Available bool   `json:"available"`
		Remaining int    `json:"remaining"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &days))
	require.Len(t, days, 2)
	assert.True(t, days[0].Available)
	assert.Equal(t, 2, days[0].Remaining)
	assert.False(t, days[1].Available)

	rec, resp = api.do(t, http.MethodGet, "/api/lawyers/"+lawyer.ID+"/slots?date=2025-06-09", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var slots []struct {
		Time string `json:"time"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &slots))
	assert.Len(t, slots, 3)

	rec, resp = api.do(t, http.MethodGet, "/api/lawyers/"+lawyer.ID+"/slots?date=June", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation failed", resp.Message)

	rec, _ = api.do(t, http.MethodGet, "/api/lawyers/missing/availability", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateConsultation(t *testing.T) {
	api := newAPITest(t, generousLimit)
	lawyer := createUser(t, api.DB, "Ana Torres", models.RoleLawyer, "family")
	addWeekly(t, api, lawyer, 1, 1)

	rec, resp := api.do(t, http.MethodPost, "/api/consultations", nil, bookingBody(lawyer.ID, "2025-06-09", "10:00"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, resp.Success)
	assert.Equal(t, "consultation booked with Ana Torres on 2025-06-09", resp.Message)
	require.Len(t, resp.IDs, 1)

	var stored models.Consultation
	require.NoError(t, api.DB.First(&stored, "id = ?", resp.IDs[0]).Error)
	assert.Equal(t, models.ConsultationStatusPending, stored.Status)

	rec, resp = api.do(t, http.MethodPost, "/api/consultations", nil, bookingBody(lawyer.ID, "2025-06-09", "11:00"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, resp.Success)
}

func TestCreateConsultation_ValidationErrors(t *testing.T) {
	api := newAPITest(t, generousLimit)
	lawyer := createUser(t, api.DB, "Ana Torres", models.RoleLawyer, "family")

	body := bookingBody(lawyer.ID, "2025-06-01", "10:00")
	body["email"] = "not-an-email"
	rec, resp := api.do(t, http.MethodPost, "/api/consultations", nil, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation failed", resp.Message)
	assert.GreaterOrEqual(t, len(resp.Errors), 2)
}

func TestAdminBooking(t *testing.T) {
	api := newAPITest(t, generousLimit)
	lawyer := createUser(t, api.DB, "Ana Torres", models.RoleLawyer, "family")
	admin := createUser(t, api.DB, "Office Admin", models.RoleAdmin)
	addWeekly(t, api, lawyer, 1, 2)

	body := bookingBody(lawyer.ID, "2025-06-09", "09:00")
	body["status"] = models.ConsultationStatusConfirmed

	rec, _ := api.do(t, http.MethodPost, "/api/admin/consultations", lawyer, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, resp := api.do(t, http.MethodPost, "/api/admin/consultations", admin, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var stored models.Consultation
	require.NoError(t, api.DB.First(&stored, "id = ?", resp.IDs[0]).Error)
	assert.Equal(t, models.ConsultationStatusConfirmed, stored.Status)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	api := newAPITest(t, generousLimit)
	lawyer := createUser(t, api.DB, "Ana Torres", models.RoleLawyer, "family")

	rec, _ := api.do(t, http.MethodGet, "/api/consultations", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	impostor := *lawyer
	impostor.Email = "nobody@firm.example"
	rec, _ = api.do(t, http.MethodGet, "/api/schedules", &impostor, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = api.do(t, http.MethodGet, "/api/schedules", lawyer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateConsultationStatus(t *testing.T) {
	api := newAPITest(t, generousLimit)
	lawyer := createUser(t, api.DB, "Ana Torres", models.RoleLawyer, "family")
	other := createUser(t, api.DB, "Luis Perez", models.RoleLawyer, "family")
	addWeekly(t, api, lawyer, 1, 2)

	_, booked := api.do(t, http.MethodPost, "/api/consultations", nil, bookingBody(lawyer.ID, "2025-06-09", "10:00"))
	require.Len(t, booked.IDs, 1)
	target := "/api/consultations/" + booked.IDs[0] + "/status"

	rec, _ := api.do(t, http.MethodPut, target, other, StatusRequest{Status: models.ConsultationStatusConfirmed})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, resp := api.do(t, http.MethodPut, target, lawyer, StatusRequest{Status: models.ConsultationStatusConfirmed})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "status updated", resp.Message)

	rec, resp = api.do(t, http.MethodPut, target, lawyer, StatusRequest{Status: models.ConsultationStatusConfirmed})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "status unchanged", resp.Message)

	rec, resp = api.do(t, http.MethodPut, target, lawyer, StatusRequest{Status: models.ConsultationStatusCancelled})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp.Errors, "a cancellation reason is required")
}

func TestBlockRangeEndpoint(t *testing.T) {
	api := newAPITest(t, generousLimit)
	lawyer := createUser(t, api.DB, "Ana Torres", models.RoleLawyer, "family")
	addWeekly(t, api, lawyer, 1, 2)

	rec, _ := api.do(t, http.MethodPost, "/api/consultations", nil, bookingBody(lawyer.ID, "2025-06-09", "10:00"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, resp := api.do(t, http.MethodPost, "/api/schedules/block-range", lawyer, BlockRequest{
		StartDate: "2025-06-09", EndDate: "2025-06-10", Reason: "Court hearing",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "1 consultation(s) cancelled, 1 notification(s) queued", resp.Message)
	require.Len(t, resp.IDs, 2)

	rec, resp = api.do(t, http.MethodGet, "/api/lawyers/"+lawyer.ID+"/availability?from=2025-06-09&to=2025-06-09", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(resp.Data), `"available":false`)

	rec, resp = api.do(t, http.MethodPost, "/api/schedules/block-range", lawyer, BlockRequest{
		StartDate: "2025-06-09", EndDate: "2025-06-10",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp.Errors, "all dates already blocked")
}

func TestBulkUnblockEndpoint(t *testing.T) {
	api := newAPITest(t, generousLimit)
	lawyer := createUser(t, api.DB, "Ana Torres", models.RoleLawyer, "family")

	_, blocked := api.do(t, http.MethodPost, "/api/schedules/block-range", lawyer, BlockRequest{
		StartDate: "2025-06-09", EndDate: "2025-06-11",
	})
	require.Len(t, blocked.IDs, 3)

	rec, resp := api.do(t, http.MethodPost, "/api/schedules/unblock", lawyer, UnblockRequest{IDs: blocked.IDs[:2]})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2 date(s) unblocked", resp.Message)

	rec, _ = api.do(t, http.MethodDelete, "/api/schedules/"+blocked.IDs[2], lawyer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var remaining int64
	api.DB.Model(&models.ScheduleEntry{}).Where("lawyer_id = ?", lawyer.ID).Count(&remaining)
	assert.Zero(t, remaining)
}

func TestExportConsultations(t *testing.T) {
	api := newAPITest(t, generousLimit)
	lawyer := createUser(t, api.DB, "Ana Torres", models.RoleLawyer, "family")
	admin := createUser(t, api.DB, "Office Admin", models.RoleAdmin)
	addWeekly(t, api, lawyer, 1, 2)

	rec, resp := api.do(t, http.MethodGet, "/api/consultations/export", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no matching records", resp.Message)

	rec, _ = api.do(t, http.MethodPost, "/api/consultations", nil, bookingBody(lawyer.ID, "2025-06-09", "10:00"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = api.do(t, http.MethodGet, "/api/consultations/export?status=pending", lawyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "consultations_20250608_090000.xlsx")
	assert.NotZero(t, rec.Body.Len())
}

func TestBookingWindowEndpoints(t *testing.T) {
	api := newAPITest(t, generousLimit)
	lawyer := createUser(t, api.DB, "Ana Torres", models.RoleLawyer, "family")
	other := createUser(t, api.DB, "Luis Perez", models.RoleLawyer, "family")

	body := map[string]interface{}{
		"booking_window_enabled": true,
		"default_booking_weeks":  2,
		"max_booking_weeks":      4,
	}
	rec, _ := api.do(t, http.MethodPut, "/api/lawyers/"+lawyer.ID+"/booking-window", other, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = api.do(t, http.MethodPut, "/api/lawyers/"+lawyer.ID+"/booking-window", lawyer, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, resp := api.do(t, http.MethodGet, "/api/lawyers/"+lawyer.ID+"/booking-window", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var window struct {
		MaxWeeks   int    `json:"max_weeks"`
		Custom     bool   `json:"custom"`
		LatestDate string `json:"latest_date"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &window))
	assert.Equal(t, 4, window.MaxWeeks)
	assert.True(t, window.Custom)
	assert.Equal(t, "2025-07-06", window.LatestDate)
}

func TestPublicBookingIsRateLimited(t *testing.T) {
	api := newAPITest(t, middleware.RateLimitConfig{Requests: 1, Window: time.Hour})

	rec, _ := api.do(t, http.MethodPost, "/api/consultations", nil, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = api.do(t, http.MethodPost, "/api/consultations", nil, map[string]string{})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Reads are not limited
	rec, _ = api.do(t, http.MethodGet, "/api/lawyers", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
