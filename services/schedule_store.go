package services

import (
	"context"
	"errors"
	"fmt"
	"law_consult_app/models"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxSlotDurationMinutes is the longest slot a schedule may define
const MaxSlotDurationMinutes = 480

// ScheduleStore manages the weekly, one-time and blocked entries of lawyers
type ScheduleStore struct {
	DB  *gorm.DB
	Log *zap.Logger
	Now func() time.Time
}

func NewScheduleStore(db *gorm.DB, log *zap.Logger) *ScheduleStore {
	return &ScheduleStore{DB: db, Log: log, Now: time.Now}
}

// WeeklyInput adds a recurring window on one or more weekdays (0=Sunday...6=Saturday)
type WeeklyInput struct {
	Weekdays            []int  `json:"weekdays" form:"weekdays"`
	StartTime           string `json:"start_time" form:"start_time"`
	EndTime             string `json:"end_time" form:"end_time"`
	MaxAppointments     int    `json:"max_appointments" form:"max_appointments"`
	SlotDurationMinutes int    `json:"slot_duration_minutes" form:"slot_duration_minutes"`
}

// OneTimeInput adds a window for a single date, overriding the weekly schedule
type OneTimeInput struct {
	Date                string `json:"date" form:"date"`
	StartTime           string `json:"start_time" form:"start_time"`
	EndTime             string `json:"end_time" form:"end_time"`
	MaxAppointments     int    `json:"max_appointments" form:"max_appointments"`
	SlotDurationMinutes int    `json:"slot_duration_minutes" form:"slot_duration_minutes"`
}

func (s *ScheduleStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// validateWindow checks times, capacity and slot duration, returning the normalized window
func validateWindow(start, end string, maxAppointments, slotMinutes int) (models.TimeWindow, []string) {
	var problems []string
	window := models.TimeWindow{}

	startClock, startErr := NormalizeClock(start)
	if startErr != nil {
		problems = append(problems, "start_time must be a valid time (HH:MM)")
	}
	endClock, endErr := NormalizeClock(end)
	if endErr != nil {
		problems = append(problems, "end_time must be a valid time (HH:MM)")
	}
	if startErr == nil && endErr == nil {
		if startClock >= endClock {
			problems = append(problems, "start_time must be before end_time")
		}
		window = models.TimeWindow{Start: startClock, End: endClock}
	}

	if maxAppointments < 1 {
		problems = append(problems, "max_appointments must be at least 1")
	}
	if slotMinutes <= 0 || slotMinutes > MaxSlotDurationMinutes {
		problems = append(problems, fmt.Sprintf("slot_duration_minutes must be between 1 and %d", MaxSlotDurationMinutes))
	}
	return window, problems
}

func windowsOverlap(a, b models.TimeWindow) bool {
	return a.Start < b.End && a.End > b.Start
}

// requireLawyer checks the actor may manage lawyerID and that the lawyer exists
func (s *ScheduleStore) requireLawyer(db *gorm.DB, actor Actor, lawyerID string) (*models.User, error) {
	if !actor.CanManageLawyer(lawyerID) {
		return nil, errAccessDenied
	}
	return GetLawyer(db, lawyerID)
}

// AddWeekly inserts one weekly row per requested weekday in a single transaction
func (s *ScheduleStore) AddWeekly(ctx context.Context, actor Actor, lawyerID string, in WeeklyInput) ([]models.ScheduleEntry, error) {
	if _, err := s.requireLawyer(s.DB.WithContext(ctx), actor, lawyerID); err != nil {
		return nil, err
	}

	window, problems := validateWindow(in.StartTime, in.EndTime, in.MaxAppointments, in.SlotDurationMinutes)
	if len(in.Weekdays) == 0 {
		problems = append(problems, "at least one weekday is required")
	}
	seen := make(map[int]bool)
	var weekdays []int
	for _, d := range in.Weekdays {
		if d < 0 || d > 6 {
			problems = append(problems, fmt.Sprintf("invalid weekday %d", d))
			continue
		}
		if !seen[d] {
			seen[d] = true
			weekdays = append(weekdays, d)
		}
	}
	if len(problems) > 0 {
		return nil, NewValidationError(problems...)
	}
	sort.Ints(weekdays)

	var created []models.ScheduleEntry
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []models.ScheduleEntry
		if err := tx.Where("lawyer_id = ? AND type = ? AND is_active = ? AND day_of_week IN ?",
			lawyerID, models.ScheduleTypeWeekly, true, weekdays).Find(&existing).Error; err != nil {
			return err
		}

		var conflicts []string
		for _, e := range existing {
			if e.StartTime == nil || e.EndTime == nil {
				continue
			}
			if windowsOverlap(window, models.TimeWindow{Start: *e.StartTime, End: *e.EndTime}) {
				conflicts = append(conflicts, fmt.Sprintf("overlaps the existing %s schedule %s-%s", e.DayName(), *e.StartTime, *e.EndTime))
			}
		}
		if len(conflicts) > 0 {
			return NewValidationError(conflicts...)
		}

		for _, d := range weekdays {
			entry := models.NewScheduleEntry(models.WeeklySchedule{
				LawyerID:            lawyerID,
				Weekday:             time.Weekday(d),
				Window:              window,
				MaxAppointments:     in.MaxAppointments,
				SlotDurationMinutes: in.SlotDurationMinutes,
				Active:              true,
			})
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
			created = append(created, *entry)
		}
		return nil
	})
	if err != nil {
		return nil, dependency("add weekly schedule", err)
	}

	s.Log.Info("weekly schedule added",
		zap.String("lawyer_id", lawyerID),
		zap.Ints("weekdays", weekdays),
		zap.String("start", window.Start),
		zap.String("end", window.End))
	return created, nil
}

// AddOneTime inserts a single-date schedule. The date must not be past, blocked or already scheduled.
func (s *ScheduleStore) AddOneTime(ctx context.Context, actor Actor, lawyerID string, in OneTimeInput) (*models.ScheduleEntry, error) {
	if _, err := s.requireLawyer(s.DB.WithContext(ctx), actor, lawyerID); err != nil {
		return nil, err
	}

	window, problems := validateWindow(in.StartTime, in.EndTime, in.MaxAppointments, in.SlotDurationMinutes)
	date, err := ParseDate(in.Date)
	if err != nil {
		problems = append(problems, "date must be a valid date (YYYY-MM-DD)")
	} else if date.Before(today(s.now())) {
		problems = append(problems, "date cannot be in the past")
	}
	if len(problems) > 0 {
		return nil, NewValidationError(problems...)
	}
	day := DateString(date)

	var entry *models.ScheduleEntry
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureNoActiveOneTime(tx, lawyerID, day, ""); err != nil {
			return err
		}

		blocked, err := blockedDatesIn(tx, lawyerID, day, day)
		if err != nil {
			return err
		}
		if blocked[day] {
			return NewValidationError(fmt.Sprintf("%s is blocked", day))
		}

		entry = models.NewScheduleEntry(models.OneTimeSchedule{
			LawyerID:            lawyerID,
			Date:                day,
			Window:              window,
			MaxAppointments:     in.MaxAppointments,
			SlotDurationMinutes: in.SlotDurationMinutes,
			Active:              true,
		})
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, dependency("add one-time schedule", err)
	}

	s.Log.Info("one-time schedule added", zap.String("lawyer_id", lawyerID), zap.String("date", day))
	return entry, nil
}

func ensureNoActiveOneTime(tx *gorm.DB, lawyerID, date, excludeID string) error {
	query := tx.Model(&models.ScheduleEntry{}).
		Where("lawyer_id = ? AND type = ? AND specific_date = ? AND is_active = ?",
			lawyerID, models.ScheduleTypeOneTime, date, true)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return NewValidationError(fmt.Sprintf("a one-time schedule already exists for %s", date))
	}
	return nil
}

// Get returns an entry the actor may see
func (s *ScheduleStore) Get(ctx context.Context, actor Actor, id string) (*models.ScheduleEntry, error) {
	var entry models.ScheduleEntry
	if err := s.DB.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "schedule entry", ID: id}
		}
		return nil, dependency("load schedule entry", err)
	}
	if !actor.CanManageLawyer(entry.LawyerID) {
		return nil, errAccessDenied
	}
	return &entry, nil
}

// loadOwned fetches an entry for a write. Missing and foreign entries are indistinguishable.
func loadOwned(tx *gorm.DB, actor Actor, id string) (*models.ScheduleEntry, error) {
	var entry models.ScheduleEntry
	if err := tx.First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errAccessDenied
		}
		return nil, err
	}
	if !actor.CanManageLawyer(entry.LawyerID) {
		return nil, errAccessDenied
	}
	return &entry, nil
}

// Deactivate hides a weekly or one-time entry from availability while keeping it
func (s *ScheduleStore) Deactivate(ctx context.Context, actor Actor, id string) (*models.ScheduleEntry, error) {
	return s.setActive(ctx, actor, id, false)
}

// Reactivate restores a deactivated entry, re-checking date and window conflicts
func (s *ScheduleStore) Reactivate(ctx context.Context, actor Actor, id string) (*models.ScheduleEntry, error) {
	return s.setActive(ctx, actor, id, true)
}

func (s *ScheduleStore) setActive(ctx context.Context, actor Actor, id string, active bool) (*models.ScheduleEntry, error) {
	var entry *models.ScheduleEntry
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = loadOwned(tx, actor, id)
		if err != nil {
			return err
		}
		if entry.Type == models.ScheduleTypeBlocked {
			return NewValidationError("blocked dates cannot be deactivated, unblock them instead")
		}
		if entry.IsActive == active {
			return nil
		}

		if active {
			if err := checkReactivation(tx, entry); err != nil {
				return err
			}
		}

		if err := tx.Model(entry).Update("is_active", active).Error; err != nil {
			return err
		}
		entry.IsActive = active
		return nil
	})
	if err != nil {
		return nil, dependency("update schedule entry", err)
	}

	s.Log.Info("schedule entry updated", zap.String("id", id), zap.Bool("active", active))
	return entry, nil
}

func checkReactivation(tx *gorm.DB, entry *models.ScheduleEntry) error {
	variant, err := entry.Variant()
	if err != nil {
		return NewValidationError(err.Error())
	}

	switch v := variant.(type) {
	case models.OneTimeSchedule:
		return ensureNoActiveOneTime(tx, v.LawyerID, v.Date, v.ID)
	case models.WeeklySchedule:
		var others []models.ScheduleEntry
		if err := tx.Where("lawyer_id = ? AND type = ? AND is_active = ? AND day_of_week = ? AND id <> ?",
			v.LawyerID, models.ScheduleTypeWeekly, true, int(v.Weekday), v.ID).Find(&others).Error; err != nil {
			return err
		}
		for _, o := range others {
			if o.StartTime != nil && o.EndTime != nil &&
				windowsOverlap(v.Window, models.TimeWindow{Start: *o.StartTime, End: *o.EndTime}) {
				return NewValidationError(fmt.Sprintf("overlaps the active %s schedule %s-%s", o.DayName(), *o.StartTime, *o.EndTime))
			}
		}
	}
	return nil
}

// Purge permanently deletes an entry of any type
func (s *ScheduleStore) Purge(ctx context.Context, actor Actor, id string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := loadOwned(tx, actor, id)
		if err != nil {
			return err
		}
		return tx.Unscoped().Delete(entry).Error
	})
	if err != nil {
		return dependency("delete schedule entry", err)
	}

	s.Log.Info("schedule entry deleted", zap.String("id", id))
	return nil
}

// BulkUnblock removes several blocked entries at once. Either all ids are blocked entries
// owned by the actor and all are removed, or nothing changes.
func (s *ScheduleStore) BulkUnblock(ctx context.Context, actor Actor, ids []string) (int, error) {
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return 0, NewValidationError("no blocked dates selected")
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entries []models.ScheduleEntry
		if err := tx.Where("id IN ?", ids).Find(&entries).Error; err != nil {
			return err
		}
		if len(entries) != len(ids) {
			return errAccessDenied
		}
		for _, e := range entries {
			if !actor.CanManageLawyer(e.LawyerID) {
				return errAccessDenied
			}
			if e.Type != models.ScheduleTypeBlocked {
				return NewValidationError(fmt.Sprintf("entry %s is not a blocked date", e.ID))
			}
		}
		return tx.Where("id IN ?", ids).Delete(&models.ScheduleEntry{}).Error
	})
	if err != nil {
		return 0, dependency("unblock dates", err)
	}

	s.Log.Info("dates unblocked", zap.Strings("ids", ids))
	return len(ids), nil
}

// List returns a lawyer's entries. Past one-time and blocked entries are left out unless includePast is set.
func (s *ScheduleStore) List(ctx context.Context, actor Actor, lawyerID string, includePast bool) ([]models.ScheduleEntry, error) {
	if !actor.CanManageLawyer(lawyerID) {
		return nil, errAccessDenied
	}

	query := s.DB.WithContext(ctx).Where("lawyer_id = ?", lawyerID)
	if !includePast {
		day := DateString(today(s.now()))
		query = query.Where("type = ? OR COALESCE(end_date, specific_date) >= ?", models.ScheduleTypeWeekly, day)
	}

	var entries []models.ScheduleEntry
	err := query.Order("type ASC, day_of_week ASC, specific_date ASC, start_time ASC").Find(&entries).Error
	if err != nil {
		return nil, dependency("list schedules", err)
	}
	return entries, nil
}

// blockedDatesIn returns the set of dates in [from, to] covered by the lawyer's blocked entries
func blockedDatesIn(tx *gorm.DB, lawyerID, from, to string) (map[string]bool, error) {
	var entries []models.ScheduleEntry
	err := tx.Where("lawyer_id = ? AND type = ? AND specific_date <= ? AND COALESCE(end_date, specific_date) >= ?",
		lawyerID, models.ScheduleTypeBlocked, to, from).Find(&entries).Error
	if err != nil {
		return nil, err
	}

	blocked := make(map[string]bool)
	for i := range entries {
		variant, err := entries[i].Variant()
		if err != nil {
			continue
		}
		b := variant.(models.BlockedSchedule)
		start, err1 := ParseDate(maxString(b.StartDate, from))
		end, err2 := ParseDate(minString(b.EndDate, to))
		if err1 != nil || err2 != nil {
			continue
		}
		for _, d := range DatesInRange(start, end) {
			blocked[d] = true
		}
	}
	return blocked, nil
}

// insertBlocked records one blocked entry per date
func insertBlocked(tx *gorm.DB, lawyerID string, dates []string, reason string) ([]models.ScheduleEntry, error) {
	created := make([]models.ScheduleEntry, 0, len(dates))
	for _, d := range dates {
		entry := models.NewScheduleEntry(models.BlockedSchedule{
			LawyerID:  lawyerID,
			StartDate: d,
			EndDate:   d,
			Reason:    reason,
		})
		if err := tx.Create(entry).Error; err != nil {
			return nil, err
		}
		created = append(created, *entry)
	}
	return created, nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func maxString(a, b string) string {
	if a > b {
		return a
	}
	return b
}

func minString(a, b string) string {
	if a < b {
		return a
	}
	return b
}
