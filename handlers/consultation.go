package handlers

import (
	"errors"
	"fmt"
	"law_consult_app/middleware"
	"law_consult_app/services"
	"net/http"

	"github.com/labstack/echo/v4"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CreateConsultationHandler books a consultation. Public clients and admins share it;
// the actor decides the source and whether a status can be chosen.
func (h *Handler) CreateConsultationHandler(c echo.Context) error {
	var in services.ConsultationInput
	if err := bind(c, &in); err != nil {
		return h.respondError(c, err)
	}

	result, err := h.Booking.CreateConsultation(c.Request().Context(), middleware.GetActor(c), in)
	if err != nil {
		return h.respondError(c, err)
	}

	message := fmt.Sprintf("consultation booked with %s on %s", result.Lawyer.Name, result.Consultation.ConsultationDate)
	return respondOK(c, http.StatusCreated, message, result, result.Consultation.ID)
}

// ListConsultationsHandler lists consultations visible to the caller
func (h *Handler) ListConsultationsHandler(c echo.Context) error {
	var filter services.ConsultationFilter
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &filter); err != nil {
		return h.respondError(c, services.NewValidationError("malformed query parameters"))
	}

	consultations, err := h.Consultations.ListConsultations(c.Request().Context(), middleware.GetActor(c), filter)
	if err != nil {
		return h.respondError(c, err)
	}
	return respondOK(c, http.StatusOK, fmt.Sprintf("%d consultation(s)", len(consultations)), consultations)
}

// StatusRequest changes a consultation's status
type StatusRequest struct {
	Status string `json:"status" form:"status"`
	Reason string `json:"reason" form:"reason"`
}

// UpdateConsultationStatusHandler applies a status transition
func (h *Handler) UpdateConsultationStatusHandler(c echo.Context) error {
	var req StatusRequest
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}

	result, err := h.Consultations.UpdateConsultationStatus(c.Request().Context(), middleware.GetActor(c), c.Param("id"), req.Status, req.Reason)
	if err != nil {
		return h.respondError(c, err)
	}

	message := "status updated"
	if !result.Changed {
		message = "status unchanged"
	}
	return respondOK(c, http.StatusOK, message, result, result.Consultation.ID)
}

// ExportConsultationsHandler downloads the filtered consultations as xlsx
func (h *Handler) ExportConsultationsHandler(c echo.Context) error {
	var filter services.ConsultationFilter
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &filter); err != nil {
		return h.respondError(c, services.NewValidationError("malformed query parameters"))
	}

	consultations, err := h.Consultations.ListConsultations(c.Request().Context(), middleware.GetActor(c), filter)
	if err != nil {
		return h.respondError(c, err)
	}

	buf, err := services.ExportConsultations(consultations)
	if err != nil {
		if errors.Is(err, services.ErrNoMatchingRecords) {
			return h.respondError(c, err)
		}
		return h.respondError(c, &services.DependencyError{Op: "export consultations", Err: err})
	}

	filename := fmt.Sprintf("consultations_%s.xlsx", h.Now().Format("20060102_150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
