package services

import (
	"law_consult_app/config"
	"law_consult_app/models"
	"sort"
	"time"

	"gorm.io/gorm"
)

// Reasons a lawyer cannot take a consultation on a date
const (
	UnavailableBlocked    = "blocked"
	UnavailableNoSchedule = "no_schedule"
	UnavailableFull       = "full"
	UnavailableNoLawyer   = "no_lawyer"
)

// Schedule sources that decide the effective capacity of a date
const (
	SourceWeekly  = models.ScheduleTypeWeekly
	SourceOneTime = models.ScheduleTypeOneTime
)

// MaxAvailabilityRangeDays bounds the range accepted by ResolveAvailabilityRange
const MaxAvailabilityRangeDays = 62

// ScheduleWindow is a working window contributing to a day's capacity
type ScheduleWindow struct {
	ScheduleID          string `json:"schedule_id"`
	Start               string `json:"start_time"`
	End                 string `json:"end_time"`
	SlotDurationMinutes int    `json:"slot_duration_minutes"`
	MaxAppointments     int    `json:"max_appointments"`
}

// DayAvailability is the resolved availability of one lawyer on one date
type DayAvailability struct {
	LawyerID        string           `json:"lawyer_id"`
	Date            string           `json:"date"`
	Available       bool             `json:"available"`
	Reason          string           `json:"reason,omitempty"`
	BlockReason     string           `json:"block_reason,omitempty"`
	Source          string           `json:"source,omitempty"`
	Windows         []ScheduleWindow `json:"windows,omitempty"`
	MaxAppointments int              `json:"max_appointments"`
	Booked          int              `json:"booked"`
	Remaining       int              `json:"remaining"`
}

// ResolveDay applies Blocked > OneTime > Weekly precedence to the lawyer's schedules for date.
// booked is the number of pending and confirmed consultations already on that date.
func ResolveDay(schedules []models.Schedule, date time.Time, booked int) DayAvailability {
	day := DateString(date)
	result := DayAvailability{Date: day, Booked: booked}

	var oneTime *models.OneTimeSchedule
	var weekly []models.WeeklySchedule

	for _, s := range schedules {
		if result.LawyerID == "" {
			result.LawyerID = s.Owner()
		}
		switch v := s.(type) {
		case models.BlockedSchedule:
			if v.Covers(day) {
				result.Reason = UnavailableBlocked
				result.BlockReason = v.Reason
				return result
			}
		case models.OneTimeSchedule:
			if v.Active && v.Date == day && oneTime == nil {
				ot := v
				oneTime = &ot
			}
		case models.WeeklySchedule:
			if v.Active && v.AppliesTo(date) {
				weekly = append(weekly, v)
			}
		}
	}

	switch {
	case oneTime != nil:
		result.Source = SourceOneTime
		result.MaxAppointments = oneTime.MaxAppointments
		result.Windows = []ScheduleWindow{{
			ScheduleID:          oneTime.ID,
			Start:               oneTime.Window.Start,
			End:                 oneTime.Window.End,
			SlotDurationMinutes: oneTime.SlotDurationMinutes,
			MaxAppointments:     oneTime.MaxAppointments,
		}}
	case len(weekly) > 0:
		// Several windows on one weekday: slots come from all of them, the largest max applies
		sort.Slice(weekly, func(i, j int) bool { return weekly[i].Window.Start < weekly[j].Window.Start })
		result.Source = SourceWeekly
		for _, w := range weekly {
			if w.MaxAppointments > result.MaxAppointments {
				result.MaxAppointments = w.MaxAppointments
			}
			result.Windows = append(result.Windows, ScheduleWindow{
				ScheduleID:          w.ID,
				Start:               w.Window.Start,
				End:                 w.Window.End,
				SlotDurationMinutes: w.SlotDurationMinutes,
				MaxAppointments:     w.MaxAppointments,
			})
		}
	default:
		result.Reason = UnavailableNoSchedule
		return result
	}

	result.Remaining = result.MaxAppointments - booked
	if result.Remaining <= 0 {
		result.Remaining = 0
		result.Reason = UnavailableFull
		return result
	}
	result.Available = true
	return result
}

// LoadSchedules fetches every schedule of a lawyer as typed variants. Malformed rows are skipped.
func LoadSchedules(db *gorm.DB, lawyerID string) ([]models.Schedule, error) {
	var entries []models.ScheduleEntry
	if err := db.Where("lawyer_id = ?", lawyerID).Find(&entries).Error; err != nil {
		return nil, err
	}

	schedules := make([]models.Schedule, 0, len(entries))
	for i := range entries {
		variant, err := entries[i].Variant()
		if err != nil {
			continue
		}
		schedules = append(schedules, variant)
	}
	return schedules, nil
}

// CountActiveConsultations counts pending and confirmed consultations of a lawyer on a date
func CountActiveConsultations(db *gorm.DB, lawyerID, date string) (int64, error) {
	var count int64
	err := db.Model(&models.Consultation{}).
		Where("lawyer_id = ? AND consultation_date = ? AND status IN ?", lawyerID, date, models.ActiveConsultationStatuses).
		Count(&count).Error
	return count, err
}

// ResolveAvailability answers whether a lawyer is bookable on date and how many slots remain
func ResolveAvailability(db *gorm.DB, lawyerID string, date time.Time) (*DayAvailability, error) {
	schedules, err := LoadSchedules(db, lawyerID)
	if err != nil {
		return nil, dependency("load schedules", err)
	}

	booked, err := CountActiveConsultations(db, lawyerID, DateString(date))
	if err != nil {
		return nil, dependency("count consultations", err)
	}

	result := ResolveDay(schedules, date, int(booked))
	result.LawyerID = lawyerID
	return &result, nil
}

// ResolveAvailabilityRange resolves every date in [from, to] with one schedule load and one count query
func ResolveAvailabilityRange(db *gorm.DB, lawyerID string, from, to time.Time) ([]DayAvailability, error) {
	if to.Before(from) {
		return nil, NewValidationError("end date must not be before start date")
	}
	if int(to.Sub(from).Hours()/24) >= MaxAvailabilityRangeDays {
		return nil, NewValidationError("date range is limited to 62 days")
	}

	schedules, err := LoadSchedules(db, lawyerID)
	if err != nil {
		return nil, dependency("load schedules", err)
	}

	var rows []struct {
		ConsultationDate string
		Total            int
	}
	err = db.Model(&models.Consultation{}).
		Select("consultation_date, COUNT(*) AS total").
		Where("lawyer_id = ? AND consultation_date BETWEEN ? AND ? AND status IN ?",
			lawyerID, DateString(from), DateString(to), models.ActiveConsultationStatuses).
		Group("consultation_date").
		Scan(&rows).Error
	if err != nil {
		return nil, dependency("count consultations", err)
	}

	booked := make(map[string]int, len(rows))
	for _, row := range rows {
		booked[row.ConsultationDate] = row.Total
	}

	var days []DayAvailability
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		day := ResolveDay(schedules, d, booked[DateString(d)])
		day.LawyerID = lawyerID
		days = append(days, day)
	}
	return days, nil
}

// TimeSlot is a bookable start time within a lawyer's working window
type TimeSlot struct {
	Time      string `json:"time"` // HH:MM
	Available bool   `json:"available"`
}

// GetTimeSlots generates the start times of a day from its windows and slot durations,
// marking those already taken by pending or confirmed consultations
func GetTimeSlots(db *gorm.DB, lawyerID string, date time.Time) ([]TimeSlot, error) {
	avail, err := ResolveAvailability(db, lawyerID, date)
	if err != nil {
		return nil, err
	}
	if avail.Reason == UnavailableBlocked || avail.Reason == UnavailableNoSchedule {
		return []TimeSlot{}, nil
	}

	var taken []string
	err = db.Model(&models.Consultation{}).
		Where("lawyer_id = ? AND consultation_date = ? AND status IN ?", lawyerID, avail.Date, models.ActiveConsultationStatuses).
		Pluck("consultation_time", &taken).Error
	if err != nil {
		return nil, dependency("load booked times", err)
	}

	takenSet := make(map[string]bool, len(taken))
	for _, t := range taken {
		if len(t) >= 5 {
			takenSet[t[:5]] = true
		}
	}

	slots := []TimeSlot{}
	for _, w := range avail.Windows {
		start, end, err := models.TimeWindow{Start: w.Start, End: w.End}.Minutes()
		if err != nil || w.SlotDurationMinutes <= 0 {
			continue
		}
		for m := start; m+w.SlotDurationMinutes <= end; m += w.SlotDurationMinutes {
			label := time.Date(0, 1, 1, m/60, m%60, 0, 0, time.UTC).Format(models.TimeLayout)
			slots = append(slots, TimeSlot{
				Time:      label,
				Available: avail.Available && !takenSet[label],
			})
		}
	}
	return slots, nil
}

// BookingWindow is how far ahead a client may book a lawyer
type BookingWindow struct {
	DefaultWeeks int  `json:"default_weeks"`
	MaxWeeks     int  `json:"max_weeks"`
	Custom       bool `json:"custom"`
}

// LatestDate returns the last bookable date counted from now
func (w BookingWindow) LatestDate(now time.Time) time.Time {
	return today(now).AddDate(0, 0, w.MaxWeeks*7)
}

// ResolveBookingWindow uses the lawyer's preference when enabled and the system defaults otherwise
func ResolveBookingWindow(lawyer *models.User, cfg *config.Config) BookingWindow {
	window := BookingWindow{DefaultWeeks: cfg.DefaultBookingWeeks, MaxWeeks: cfg.MaxBookingWeeks}
	if window.DefaultWeeks <= 0 {
		window.DefaultWeeks = config.DefaultBookingWeeks
	}
	if window.MaxWeeks <= 0 {
		window.MaxWeeks = config.MaxBookingWeeks
	}

	if lawyer == nil || !lawyer.BookingWindowEnabled {
		return window
	}

	window.Custom = true
	if lawyer.DefaultBookingWeeks > 0 {
		window.DefaultWeeks = lawyer.DefaultBookingWeeks
	}
	if lawyer.MaxBookingWeeks > 0 {
		window.MaxWeeks = lawyer.MaxBookingWeeks
	}
	if window.DefaultWeeks > window.MaxWeeks {
		window.DefaultWeeks = window.MaxWeeks
	}
	return window
}

// BookingWindowInput updates a lawyer's booking window preference
type BookingWindowInput struct {
	Enabled      bool `json:"booking_window_enabled" form:"booking_window_enabled"`
	DefaultWeeks int  `json:"default_booking_weeks" form:"default_booking_weeks"`
	MaxWeeks     int  `json:"max_booking_weeks" form:"max_booking_weeks"`
}

// UpdateBookingWindow stores the booking window preference of a lawyer
func UpdateBookingWindow(db *gorm.DB, actor Actor, lawyerID string, in BookingWindowInput) (*models.User, error) {
	if !actor.CanManageLawyer(lawyerID) {
		return nil, errAccessDenied
	}

	var problems []string
	if in.Enabled {
		if in.DefaultWeeks < 1 || in.DefaultWeeks > config.MaxBookingWeeks {
			problems = append(problems, "default_booking_weeks must be between 1 and 104")
		}
		if in.MaxWeeks < 1 || in.MaxWeeks > config.MaxBookingWeeks {
			problems = append(problems, "max_booking_weeks must be between 1 and 104")
		}
		if in.DefaultWeeks > in.MaxWeeks {
			problems = append(problems, "default_booking_weeks cannot exceed max_booking_weeks")
		}
	}
	if len(problems) > 0 {
		return nil, NewValidationError(problems...)
	}

	lawyer, err := GetLawyer(db, lawyerID)
	if err != nil {
		return nil, err
	}

	err = db.Model(lawyer).Updates(map[string]interface{}{
		"booking_window_enabled": in.Enabled,
		"default_booking_weeks":  in.DefaultWeeks,
		"max_booking_weeks":      in.MaxWeeks,
	}).Error
	if err != nil {
		return nil, dependency("update booking window", err)
	}
	return GetLawyer(db, lawyerID)
}
