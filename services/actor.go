package services

import "law_consult_app/models"

// Actor is the authenticated caller of a core operation
type Actor struct {
	UserID string
	Role   string
}

// Anonymous is the actor for public requests (clients without an account)
var Anonymous = Actor{Role: models.RoleClient}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func (a Actor) IsLawyer() bool {
	return a.Role == models.RoleLawyer
}

// CanManageLawyer reports whether the actor may change the schedule or consultations of lawyerID
func (a Actor) CanManageLawyer(lawyerID string) bool {
	if a.IsAdmin() {
		return true
	}
	return a.UserID != "" && a.UserID == lawyerID
}
