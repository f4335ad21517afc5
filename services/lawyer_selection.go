package services

import (
	"errors"
	"law_consult_app/models"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

// AnyLawyer is the lawyer_id value clients send when any lawyer of the practice area will do
const AnyLawyer = "any"

// GetLawyer loads an active user that can hold a schedule, with practice areas
func GetLawyer(db *gorm.DB, id string) (*models.User, error) {
	var lawyer models.User
	err := db.Preload("PracticeAreas").
		Where("id = ? AND is_active = ? AND role IN ?", id, true, []string{models.RoleLawyer, models.RoleAdmin}).
		First(&lawyer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "lawyer", ID: id}
		}
		return nil, dependency("load lawyer", err)
	}
	return &lawyer, nil
}

// ListLawyers returns active lawyers, optionally only those handling practiceArea
func ListLawyers(db *gorm.DB, practiceArea string) ([]models.User, error) {
	var lawyers []models.User
	err := db.Preload("PracticeAreas").
		Where("is_active = ? AND role = ?", true, models.RoleLawyer).
		Order("name ASC").
		Find(&lawyers).Error
	if err != nil {
		return nil, dependency("list lawyers", err)
	}

	if strings.TrimSpace(practiceArea) == "" {
		return lawyers, nil
	}

	filtered := lawyers[:0]
	for _, l := range lawyers {
		if l.Handles(practiceArea) {
			filtered = append(filtered, l)
		}
	}
	return filtered, nil
}

// ResolveCandidateLawyers lists the active lawyers specialized in practiceArea
func ResolveCandidateLawyers(db *gorm.DB, practiceArea string) ([]models.User, error) {
	if strings.TrimSpace(practiceArea) == "" {
		return nil, NewValidationError("practice_area is required")
	}
	return ListLawyers(db, practiceArea)
}

// LawyerCandidate is a lawyer together with the capacity resolved for the requested date
type LawyerCandidate struct {
	Lawyer       models.User
	Availability DayAvailability
}

// SelectLawyers filters candidates to those with capacity left on date and orders them by
// most remaining slots, then by name and id. The first element is the preferred lawyer.
func SelectLawyers(db *gorm.DB, candidates []models.User, date time.Time) ([]LawyerCandidate, error) {
	var eligible []LawyerCandidate
	for _, lawyer := range candidates {
		avail, err := ResolveAvailability(db, lawyer.ID, date)
		if err != nil {
			return nil, err
		}
		if !avail.Available {
			continue
		}
		eligible = append(eligible, LawyerCandidate{Lawyer: lawyer, Availability: *avail})
	}

	RankCandidates(eligible)
	return eligible, nil
}

// RankCandidates sorts candidates by the any-lawyer policy
func RankCandidates(candidates []LawyerCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Availability.Remaining != b.Availability.Remaining {
			return a.Availability.Remaining > b.Availability.Remaining
		}
		if a.Lawyer.Name != b.Lawyer.Name {
			return a.Lawyer.Name < b.Lawyer.Name
		}
		return a.Lawyer.ID < b.Lawyer.ID
	})
}
