package handlers

import (
	"fmt"
	"law_consult_app/middleware"
	"law_consult_app/models"
	"law_consult_app/services"
	"net/http"

	"github.com/labstack/echo/v4"
)

// WeeklyRequest adds weekly windows for a lawyer (the caller when lawyer_id is empty)
type WeeklyRequest struct {
	LawyerID string `json:"lawyer_id" form:"lawyer_id"`
	services.WeeklyInput
}

// OneTimeRequest adds a single-date window
type OneTimeRequest struct {
	LawyerID string `json:"lawyer_id" form:"lawyer_id"`
	services.OneTimeInput
}

// BlockRequest blocks one date, or a range when end_date is set on block-range
type BlockRequest struct {
	LawyerID  string `json:"lawyer_id" form:"lawyer_id"`
	Date      string `json:"date" form:"date"`
	StartDate string `json:"start_date" form:"start_date"`
	EndDate   string `json:"end_date" form:"end_date"`
	Reason    string `json:"reason" form:"reason"`
}

// UnblockRequest removes several blocked dates
type UnblockRequest struct {
	IDs []string `json:"ids" form:"ids"`
}

func entryIDs(entries []models.ScheduleEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}

// ListSchedulesHandler lists a lawyer's schedule entries (?lawyer_id=, ?include_past=true)
func (h *Handler) ListSchedulesHandler(c echo.Context) error {
	lawyerID := lawyerParam(c, c.QueryParam("lawyer_id"))
	entries, err := h.Schedules.List(c.Request().Context(), middleware.GetActor(c), lawyerID, boolQuery(c, "include_past"))
	if err != nil {
		return h.respondError(c, err)
	}
	return respondOK(c, http.StatusOK, fmt.Sprintf("%d schedule entries", len(entries)), entries)
}

// AddWeeklyScheduleHandler fans a window out to one entry per weekday
func (h *Handler) AddWeeklyScheduleHandler(c echo.Context) error {
	var req WeeklyRequest
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}

	entries, err := h.Schedules.AddWeekly(c.Request().Context(), middleware.GetActor(c), lawyerParam(c, req.LawyerID), req.WeeklyInput)
	if err != nil {
		return h.respondError(c, err)
	}
	return respondOK(c, http.StatusCreated, fmt.Sprintf("%d weekly schedule(s) added", len(entries)), entries, entryIDs(entries)...)
}

// AddOneTimeScheduleHandler adds a single-date window
func (h *Handler) AddOneTimeScheduleHandler(c echo.Context) error {
	var req OneTimeRequest
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}

	entry, err := h.Schedules.AddOneTime(c.Request().Context(), middleware.GetActor(c), lawyerParam(c, req.LawyerID), req.OneTimeInput)
	if err != nil {
		return h.respondError(c, err)
	}
	return respondOK(c, http.StatusCreated, "one-time schedule added", entry, entry.ID)
}

// BlockDateHandler blocks a single date and cancels its consultations
func (h *Handler) BlockDateHandler(c echo.Context) error {
	var req BlockRequest
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}

	result, err := h.Blocking.BlockDate(c.Request().Context(), middleware.GetActor(c), lawyerParam(c, req.LawyerID), req.Date, req.Reason)
	if err != nil {
		return h.respondError(c, err)
	}
	return respondOK(c, http.StatusCreated, result.Message, result, entryIDs(result.Entries)...)
}

// BlockRangeHandler blocks every day from start_date to end_date
func (h *Handler) BlockRangeHandler(c echo.Context) error {
	var req BlockRequest
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}

	result, err := h.Blocking.BlockRange(c.Request().Context(), middleware.GetActor(c), lawyerParam(c, req.LawyerID), req.StartDate, req.EndDate, req.Reason)
	if err != nil {
		return h.respondError(c, err)
	}
	return respondOK(c, http.StatusCreated, result.Message, result, entryIDs(result.Entries)...)
}

// BulkUnblockHandler removes the listed blocked dates, all or nothing
func (h *Handler) BulkUnblockHandler(c echo.Context) error {
	var req UnblockRequest
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}

	count, err := h.Schedules.BulkUnblock(c.Request().Context(), middleware.GetActor(c), req.IDs)
	if err != nil {
		return h.respondError(c, err)
	}
	return respondOK(c, http.StatusOK, fmt.Sprintf("%d date(s) unblocked", count), nil)
}

// DeactivateScheduleHandler hides an entry from availability
func (h *Handler) DeactivateScheduleHandler(c echo.Context) error {
	entry, err := h.Schedules.Deactivate(c.Request().Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return respondOK(c, http.StatusOK, "schedule deactivated", entry, entry.ID)
}

// ReactivateScheduleHandler restores a deactivated entry
func (h *Handler) ReactivateScheduleHandler(c echo.Context) error {
	entry, err := h.Schedules.Reactivate(c.Request().Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return respondOK(c, http.StatusOK, "schedule reactivated", entry, entry.ID)
}

// DeleteScheduleHandler permanently deletes an entry
func (h *Handler) DeleteScheduleHandler(c echo.Context) error {
	if err := h.Schedules.Purge(c.Request().Context(), middleware.GetActor(c), c.Param("id")); err != nil {
		return h.respondError(c, err)
	}
	return respondOK(c, http.StatusOK, "schedule deleted", nil, c.Param("id"))
}
