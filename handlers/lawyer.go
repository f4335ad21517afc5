package handlers

import (
	"law_consult_app/middleware"
	"law_consult_app/models"
	"law_consult_app/services"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// defaultAvailabilityDays is the range returned when the client gives no end date
const defaultAvailabilityDays = 14

// LawyerSummary is the public view of a lawyer
type LawyerSummary struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	PracticeAreas []string `json:"practice_areas"`
}

func summarizeLawyer(l *models.User) LawyerSummary {
	areas := make([]string, 0, len(l.PracticeAreas))
	for _, pa := range l.PracticeAreas {
		if pa.IsActive {
			areas = append(areas, pa.Code)
		}
	}
	return LawyerSummary{ID: l.ID, Name: l.Name, PracticeAreas: areas}
}

// ListLawyersHandler lists active lawyers, optionally filtered by ?practice_area=
func (h *Handler) ListLawyersHandler(c echo.Context) error {
	lawyers, err := services.ListLawyers(h.DB.WithContext(c.Request().Context()), c.QueryParam("practice_area"))
	if err != nil {
		return h.respondError(c, err)
	}

	summaries := make([]LawyerSummary, 0, len(lawyers))
	for i := range lawyers {
		summaries = append(summaries, summarizeLawyer(&lawyers[i]))
	}
	return respondOK(c, http.StatusOK, "lawyers", summaries)
}

// GetAvailabilityHandler resolves each date in ?from=&to= (defaults to two weeks from today)
func (h *Handler) GetAvailabilityHandler(c echo.Context) error {
	db := h.DB.WithContext(c.Request().Context())
	lawyer, err := services.GetLawyer(db, c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}

	now := h.Now()
	from, err := dateQuery(c, "from", now)
	if err != nil {
		return h.respondError(c, err)
	}
	to, err := dateQuery(c, "to", from.AddDate(0, 0, defaultAvailabilityDays-1))
	if err != nil {
		return h.respondError(c, err)
	}

	days, err := services.ResolveAvailabilityRange(db, lawyer.ID, from, to)
	if err != nil {
		return h.respondError(c, err)
	}
	return respondOK(c, http.StatusOK, "availability", days)
}

// GetSlotsHandler lists the time slots of ?date=
func (h *Handler) GetSlotsHandler(c echo.Context) error {
	db := h.DB.WithContext(c.Request().Context())
	lawyer, err := services.GetLawyer(db, c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}

	date, err := services.ParseDate(c.QueryParam("date"))
	if err != nil {
		return h.respondError(c, services.NewValidationError("date must be a valid date (YYYY-MM-DD)"))
	}

	slots, err := services.GetTimeSlots(db, lawyer.ID, date)
	if err != nil {
		return h.respondError(c, err)
	}
	return respondOK(c, http.StatusOK, "slots", slots)
}

// GetBookingWindowHandler returns how many weeks ahead the lawyer can be booked
func (h *Handler) GetBookingWindowHandler(c echo.Context) error {
	lawyer, err := services.GetLawyer(h.DB.WithContext(c.Request().Context()), c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}

	window := services.ResolveBookingWindow(lawyer, h.Config)
	return respondOK(c, http.StatusOK, "booking window", map[string]interface{}{
		"default_weeks": window.DefaultWeeks,
		"max_weeks":     window.MaxWeeks,
		"custom":        window.Custom,
		"latest_date":   services.DateString(window.LatestDate(h.Now())),
	})
}

// UpdateBookingWindowHandler stores the lawyer's booking window preference
func (h *Handler) UpdateBookingWindowHandler(c echo.Context) error {
	var in services.BookingWindowInput
	if err := bind(c, &in); err != nil {
		return h.respondError(c, err)
	}

	lawyer, err := services.UpdateBookingWindow(h.DB.WithContext(c.Request().Context()), middleware.GetActor(c), c.Param("id"), in)
	if err != nil {
		return h.respondError(c, err)
	}

	window := services.ResolveBookingWindow(lawyer, h.Config)
	return respondOK(c, http.StatusOK, "booking window updated", window, lawyer.ID)
}

func dateQuery(c echo.Context, name string, fallback time.Time) (time.Time, error) {
	value := c.QueryParam(name)
	if value == "" {
		return services.ParseDate(services.DateString(fallback))
	}
	date, err := services.ParseDate(value)
	if err != nil {
		return date, services.NewValidationError(name + " must be a valid date (YYYY-MM-DD)")
	}
	return date, nil
}

func boolQuery(c echo.Context, name string) bool {
	v, _ := strconv.ParseBool(c.QueryParam(name))
	return v
}
