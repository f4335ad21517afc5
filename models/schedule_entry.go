package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Schedule entry types stored in the type column
const (
	ScheduleTypeWeekly  = "weekly"
	ScheduleTypeOneTime = "onetime"
	ScheduleTypeBlocked = "blocked"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ScheduleEntry is the persisted row for every kind of lawyer schedule.
// Only the columns relevant to Type are populated; use Variant to work with it.
type ScheduleEntry struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	LawyerID string `gorm:"type:uuid;index;not null" json:"lawyer_id"`
	Type     string `gorm:"size:10;index;not null" json:"type"`

	DayOfWeek    *int    `json:"day_of_week,omitempty"`                        // 0=Sunday...6=Saturday (weekly)
	SpecificDate *string `gorm:"size:10;index" json:"specific_date,omitempty"` // YYYY-MM-DD (onetime, blocked)
	EndDate      *string `gorm:"size:10" json:"end_date,omitempty"`            // inclusive range end (blocked)

	StartTime           *string `gorm:"size:5" json:"start_time,omitempty"` // "09:00"
	EndTime             *string `gorm:"size:5" json:"end_time,omitempty"`   // "17:00"
	MaxAppointments     int     `gorm:"default:0" json:"max_appointments,omitempty"`
	SlotDurationMinutes int     `gorm:"default:0" json:"slot_duration_minutes,omitempty"`

	IsActive bool   `gorm:"default:true;index" json:"is_active"`
	Reason   string `gorm:"type:text" json:"reason,omitempty"`
}

// BeforeCreate hook to generate UUID
func (e *ScheduleEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for ScheduleEntry model
func (ScheduleEntry) TableName() string {
	return "schedule_entries"
}

// Schedule is the closed set of schedule variants: WeeklySchedule, OneTimeSchedule and BlockedSchedule.
type Schedule interface {
	EntryID() string
	Owner() string
	Kind() string
	isSchedule()
}

// TimeWindow is a same-day working window in "HH:MM" form
type TimeWindow struct {
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

// Minutes returns the window bounds as minutes since midnight
func (w TimeWindow) Minutes() (int, int, error) {
	start, err := time.Parse(TimeLayout, w.Start)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start time %q", w.Start)
	}
	end, err := time.Parse(TimeLayout, w.End)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid end time %q", w.End)
	}
	return start.Hour()*60 + start.Minute(), end.Hour()*60 + end.Minute(), nil
}

// WeeklySchedule repeats every week on Weekday
type WeeklySchedule struct {
	ID                  string
	LawyerID            string
	Weekday             time.Weekday
	Window              TimeWindow
	MaxAppointments     int
	SlotDurationMinutes int
	Active              bool
}

// OneTimeSchedule applies to a single date and overrides any weekly schedule on it
type OneTimeSchedule struct {
	ID                  string
	LawyerID            string
	Date                string
	Window              TimeWindow
	MaxAppointments     int
	SlotDurationMinutes int
	Active              bool
}

// BlockedSchedule removes availability for every date in [StartDate, EndDate]
type BlockedSchedule struct {
	ID        string
	LawyerID  string
	StartDate string
	EndDate   string
	Reason    string
}

func (s WeeklySchedule) EntryID() string { return s.ID }
func (s WeeklySchedule) Owner() string { return s.LawyerID }
func (s WeeklySchedule) Kind() string { return ScheduleTypeWeekly }
func (WeeklySchedule) isSchedule() {}
func (s OneTimeSchedule) EntryID() string { return s.ID }
func (s OneTimeSchedule) Owner() string { return s.LawyerID }
func (s OneTimeSchedule) Kind() string { return ScheduleTypeOneTime }
func (OneTimeSchedule) isSchedule() {}
func (s BlockedSchedule) EntryID() string { return s.ID }
func (s BlockedSchedule) Owner() string { return s.LawyerID }
func (s BlockedSchedule) Kind() string { return ScheduleTypeBlocked }
func (BlockedSchedule) isSchedule() {}

// AppliesTo reports whether the weekly schedule covers the given date
func (s WeeklySchedule) AppliesTo(date time.Time) bool {
	return date.Weekday() == s.Weekday
}

// Covers reports whether date (YYYY-MM-DD) falls inside the blocked range
func (s BlockedSchedule) Covers(date string) bool {
	return s.StartDate <= date && date <= s.EndDate
}

// Variant converts the row into its typed schedule. Rows missing the columns their type requires are rejected.
func (e *ScheduleEntry) Variant() (Schedule, error) {
	switch e.Type {
	case ScheduleTypeWeekly:
		if e.DayOfWeek == nil || e.StartTime == nil || e.EndTime == nil {
			return nil, fmt.Errorf("weekly schedule %s is missing day or times", e.ID)
		}
		return WeeklySchedule{
			ID:                  e.ID,
			LawyerID:            e.LawyerID,
			Weekday:             time.Weekday(*e.DayOfWeek),
			Window:              TimeWindow{Start: *e.StartTime, End: *e.EndTime},
			MaxAppointments:     e.MaxAppointments,
			SlotDurationMinutes: e.SlotDurationMinutes,
			Active:              e.IsActive,
		}, nil
	case ScheduleTypeOneTime:
		if e.SpecificDate == nil || e.StartTime == nil || e.EndTime == nil {
			return nil, fmt.Errorf("one-time schedule %s is missing date or times", e.ID)
		}
		return OneTimeSchedule{
			ID:                  e.ID,
			LawyerID:            e.LawyerID,
			Date:                *e.SpecificDate,
			Window:              TimeWindow{Start: *e.StartTime, End: *e.EndTime},
			MaxAppointments:     e.MaxAppointments,
			SlotDurationMinutes: e.SlotDurationMinutes,
			Active:              e.IsActive,
		}, nil
	case ScheduleTypeBlocked:
		if e.SpecificDate == nil {
			return nil, fmt.Errorf("blocked schedule %s is missing its date", e.ID)
		}
		end := *e.SpecificDate
		if e.EndDate != nil && *e.EndDate != "" {
			end = *e.EndDate
		}
		return BlockedSchedule{
			ID:        e.ID,
			LawyerID:  e.LawyerID,
			StartDate: *e.SpecificDate,
			EndDate:   end,
			Reason:    e.Reason,
		}, nil
	default:
		return nil, fmt.Errorf("unknown schedule type %q", e.Type)
	}
}

// NewScheduleEntry builds the row for a schedule variant
func NewScheduleEntry(s Schedule) *ScheduleEntry {
	switch v := s.(type) {
	case WeeklySchedule:
		day := int(v.Weekday)
		return &ScheduleEntry{
			ID:                  v.ID,
			LawyerID:            v.LawyerID,
			Type:                ScheduleTypeWeekly,
			DayOfWeek:           &day,
			StartTime:           strPtr(v.Window.Start),
			EndTime:             strPtr(v.Window.End),
			MaxAppointments:     v.MaxAppointments,
			SlotDurationMinutes: v.SlotDurationMinutes,
			IsActive:            v.Active,
		}
	case OneTimeSchedule:
		return &ScheduleEntry{
			ID:                  v.ID,
			LawyerID:            v.LawyerID,
			Type:                ScheduleTypeOneTime,
			SpecificDate:        strPtr(v.Date),
			StartTime:           strPtr(v.Window.Start),
			EndTime:             strPtr(v.Window.End),
			MaxAppointments:     v.MaxAppointments,
			SlotDurationMinutes: v.SlotDurationMinutes,
			IsActive:            v.Active,
		}
	case BlockedSchedule:
		entry := &ScheduleEntry{
			ID:           v.ID,
			LawyerID:     v.LawyerID,
			Type:         ScheduleTypeBlocked,
			SpecificDate: strPtr(v.StartDate),
			Reason:       v.Reason,
			IsActive:     true,
		}
		if v.EndDate != "" && v.EndDate != v.StartDate {
			entry.EndDate = strPtr(v.EndDate)
		}
		return entry
	}
	return nil
}

// DayName returns the name of the weekday for weekly entries
func (e *ScheduleEntry) DayName() string {
	if e.DayOfWeek == nil || *e.DayOfWeek < 0 || *e.DayOfWeek > 6 {
		return ""
	}
	return time.Weekday(*e.DayOfWeek).String()
}

func strPtr(s string) *string {
	return &s
}
