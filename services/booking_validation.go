package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	validate      *validator.Validate
	phoneDigits   = regexp.MustCompile(`^\d{11}$`)
	phoneStripper = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
)

type nowKey struct{}

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	validate.RegisterValidation("phone11", validatePhone11)
	validate.RegisterValidation("date_ymd", validateDate)
	validate.RegisterValidation("clock_time", validateClock)
	validate.RegisterValidationCtx("not_past_date", validateNotPastDate)
}

// ConsultationInput is the booking request submitted by a client or an admin
type ConsultationInput struct {
	FullName         string `json:"full_name" form:"full_name" validate:"required,min=3,max=200"`
	Email            string `json:"email" form:"email" validate:"required,email,max=255"`
	Phone            string `json:"phone" form:"phone" validate:"required,phone11"`
	PracticeArea     string `json:"practice_area" form:"practice_area" validate:"required,max=150"`
	CaseDescription  string `json:"case_description" form:"case_description" validate:"required,min=10"`
	LawyerID         string `json:"lawyer_id" form:"lawyer_id"` // empty or "any" lets the system pick
	ConsultationDate string `json:"consultation_date" form:"consultation_date" validate:"required,date_ymd,not_past_date"`
	ConsultationTime string `json:"consultation_time" form:"consultation_time" validate:"required,clock_time"`
	Status           string `json:"status" form:"status" validate:"omitempty,oneof=pending confirmed"`
}

// Normalize sanitizes free text and strips phone separators before validation
func (in *ConsultationInput) Normalize() {
	in.FullName = SanitizeText(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = phoneStripper.Replace(strings.TrimSpace(in.Phone))
	in.PracticeArea = SanitizeText(in.PracticeArea)
	in.CaseDescription = SanitizeText(in.CaseDescription)
	in.LawyerID = strings.TrimSpace(in.LawyerID)
	in.ConsultationDate = strings.TrimSpace(in.ConsultationDate)
	in.ConsultationTime = strings.TrimSpace(in.ConsultationTime)
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))
}

// WantsAnyLawyer reports whether the system has to choose the lawyer
func (in *ConsultationInput) WantsAnyLawyer() bool {
	return in.LawyerID == "" || strings.EqualFold(in.LawyerID, AnyLawyer)
}

// ValidateConsultationInput checks every field and returns all problems as one ValidationError
func ValidateConsultationInput(ctx context.Context, in *ConsultationInput, now time.Time) error {
	ctx = context.WithValue(ctx, nowKey{}, now)
	err := validate.StructCtx(ctx, in)
	if err == nil {
		return nil
	}

	return NewValidationError(structProblems(err)...)
}

// structProblems turns a validator error into one message per failing field
func structProblems(err error) []string {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fieldMessage(fe))
	}
	return messages
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "phone11":
		return fmt.Sprintf("%s must contain exactly 11 digits", field)
	case "date_ymd":
		return fmt.Sprintf("%s must be a valid date (YYYY-MM-DD)", field)
	case "not_past_date":
		return fmt.Sprintf("%s cannot be in the past", field)
	case "clock_time":
		return fmt.Sprintf("%s must be a valid time (HH:MM)", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", field)
}

func validatePhone11(fl validator.FieldLevel) bool {
	return phoneDigits.MatchString(fl.Field().String())
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := ParseDate(fl.Field().String())
	return err == nil
}

func validateClock(fl validator.FieldLevel) bool {
	_, err := parseClock(fl.Field().String())
	return err == nil
}

// validateNotPastDate passes malformed dates through, date_ymd reports those
func validateNotPastDate(ctx context.Context, fl validator.FieldLevel) bool {
	date, err := ParseDate(fl.Field().String())
	if err != nil {
		return true
	}
	now, ok := ctx.Value(nowKey{}).(time.Time)
	if !ok {
		now = time.Now()
	}
	return !date.Before(today(now))
}
