package handlers

import (
	"errors"
	"law_consult_app/config"
	"law_consult_app/middleware"
	"law_consult_app/services"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler holds the services behind the HTTP API
type Handler struct {
	DB            *gorm.DB
	Config        *config.Config
	Log           *zap.Logger
	Schedules     *services.ScheduleStore
	Booking       *services.BookingService
	Consultations *services.ConsultationService
	Blocking      *services.BlockingService
	Queue         *services.NotificationQueue
	Now           func() time.Time
}

// New wires the services sharing one notification queue and one date locker
func New(db *gorm.DB, cfg *config.Config, log *zap.Logger, queue *services.NotificationQueue) *Handler {
	locks := services.NewDateLocker()
	return &Handler{
		DB:            db,
		Config:        cfg,
		Log:           log,
		Schedules:     services.NewScheduleStore(db, log),
		Booking:       services.NewBookingService(db, cfg, log, queue, locks),
		Consultations: services.NewConsultationService(db, cfg, log, queue),
		Blocking:      services.NewBlockingService(db, log, queue, locks),
		Queue:         queue,
		Now:           time.Now,
	}
}

// SetClock replaces the clock of the handler and every service
func (h *Handler) SetClock(now func() time.Time) {
	h.Now = now
	h.Schedules.Now = now
	h.Booking.Now = now
	h.Consultations.Now = now
	h.Blocking.Now = now
	h.Queue.Now = now
}

// Response is the payload of every API endpoint
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	IDs     []string    `json:"ids,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

func respondOK(c echo.Context, status int, message string, data interface{}, ids ...string) error {
	return c.JSON(status, Response{Success: true, Message: message, Data: data, IDs: ids})
}

// respondError maps the service error taxonomy to HTTP statuses
func (h *Handler) respondError(c echo.Context, err error) error {
	var (
		validationErr *services.ValidationError
		authErr       *services.AuthorizationError
		capacityErr   *services.CapacityExceededError
		notFoundErr   *services.NotFoundError
		dependencyErr *services.DependencyError
	)

	switch {
	case errors.Is(err, services.ErrNoMatchingRecords):
		return c.JSON(http.StatusOK, Response{Success: true, Message: "no matching records"})
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusBadRequest, Response{
			Message: "validation failed",
			Errors:  validationErr.Messages,
		})
	case errors.As(err, &authErr):
		return c.JSON(http.StatusForbidden, Response{Message: authErr.Error()})
	case errors.As(err, &capacityErr):
		return c.JSON(http.StatusConflict, Response{Message: capacityErr.Error()})
	case errors.As(err, &notFoundErr):
		return c.JSON(http.StatusNotFound, Response{Message: notFoundErr.Error()})
	case errors.As(err, &dependencyErr):
		h.Log.Error("dependency failure",
			zap.String("op", dependencyErr.Op),
			zap.String("path", c.Path()),
			zap.Error(dependencyErr.Err))
		return c.JSON(http.StatusInternalServerError, Response{Message: "internal error, please try again"})
	}

	h.Log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, Response{Message: "internal error, please try again"})
}

// bind decodes the request body, reporting malformed payloads as validation errors
func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return services.NewValidationError("malformed request body")
	}
	return nil
}

// lawyerParam returns the lawyer a request targets, defaulting to the caller
func lawyerParam(c echo.Context, requested string) string {
	if requested != "" {
		return requested
	}
	return middleware.GetActor(c).UserID
}
