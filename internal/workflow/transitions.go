// Package workflow defines the legal state transitions of the radicado
// review pipeline as an explicit table. Legality rules (role gating,
// mandatory notes, attachment gates) live here so they can be verified in
// one place; services consult the table instead of branching ad hoc.
package workflow

import (
	"github.com/siscuentas/radicados-api/internal/models"
)

// Transition is one legal edge of the pipeline.
type Transition struct {
	From         models.DocumentState
	To           models.DocumentState
	Roles        []models.UserRole
	NoteRequired bool
}

// AllowsRole reports whether the role may perform this transition.
// ADMIN is allowed on every edge as the administrative override.
func (t Transition) AllowsRole(role models.UserRole) bool {
	if role == models.RoleAdmin {
		return true
	}
	for _, r := range t.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// stage describes one review stage of the strictly ordered pipeline: the
// state a document waits in before the stage's reviewer claims it, the
// in-review state, the state reached on approval, and the owning role.
type stage struct {
	preClaim models.DocumentState
	review   models.DocumentState
	approved models.DocumentState
	role     models.UserRole
}

var stages = []stage{
	{models.StateFiled, models.StateSupervisorReview, models.StateSupervisorApproved, models.RoleSupervisor},
	{models.StateSupervisorApproved, models.StateAuditReview, models.StateAuditApproved, models.RoleAuditor},
	{models.StateAuditApproved, models.StateAccountingReview, models.StateAccountingApproved, models.RoleAccounting},
	{models.StateAccountingApproved, models.StateTreasuryReview, models.StateTreasuryApproved, models.RoleTreasury},
	{models.StateTreasuryApproved, models.StateManagementReview, models.StateManagementApproved, models.RoleAdvisor},
	{models.StateManagementApproved, models.StateRenditionReview, models.StateFinalized, models.RoleRendition},
}

func stageByReview(state models.DocumentState) (stage, bool) {
	for _, s := range stages {
		if s.review == state {
			return s, true
		}
	}
	return stage{}, false
}

// ClaimTransition returns the edge entering review from the given
// pre-claim state.
func ClaimTransition(pre models.DocumentState) (Transition, bool) {
	for _, s := range stages {
		if s.preClaim == pre {
			return Transition{
				From:  s.preClaim,
				To:    s.review,
				Roles: []models.UserRole{s.role},
			}, true
		}
	}
	return Transition{}, false
}

// ReleaseTransition returns the edge that hands a document back from
// review to its pre-claim state.
func ReleaseTransition(review models.DocumentState) (Transition, bool) {
	s, ok := stageByReview(review)
	if !ok {
		return Transition{}, false
	}
	return Transition{
		From:  s.review,
		To:    s.preClaim,
		Roles: []models.UserRole{s.role},
	}, true
}

// ClaimableState returns the pre-claim state a reviewer of the given role
// may pick documents from.
func ClaimableState(role models.UserRole) (models.DocumentState, bool) {
	for _, s := range stages {
		if s.role == role {
			return s.preClaim, true
		}
	}
	return "", false
}

// StageRole returns the role owning the given review state.
func StageRole(review models.DocumentState) (models.UserRole, bool) {
	s, ok := stageByReview(review)
	if !ok {
		return "", false
	}
	return s.role, true
}

// DecisionTransition resolves a reviewer outcome recorded in the given
// review state to the resulting edge. OBSERVED, REJECTED and RETURNED all
// route to the RETURNED escape and require a note; COMPLETED is valid only
// at the rendition stage, where it finalizes the document.
func DecisionTransition(from models.DocumentState, outcome models.DecisionOutcome) (Transition, bool) {
	s, ok := stageByReview(from)
	if !ok {
		return Transition{}, false
	}
	switch outcome {
	case models.OutcomeApproved:
		return Transition{From: s.review, To: s.approved, Roles: []models.UserRole{s.role}}, true
	case models.OutcomeCompleted:
		if s.review != models.StateRenditionReview {
			return Transition{}, false
		}
		return Transition{From: s.review, To: models.StateFinalized, Roles: []models.UserRole{s.role}}, true
	case models.OutcomeObserved, models.OutcomeRejected, models.OutcomeReturned:
		return Transition{From: s.review, To: models.StateReturned, Roles: []models.UserRole{s.role}, NoteRequired: true}, true
	}
	return Transition{}, false
}

// RefileTransition is the single edge out of RETURNED, re-entering the
// pipeline from the top. Beyond the role gate the caller must be the
// document's original filer (or an administrator); services enforce that
// identity check.
func RefileTransition() Transition {
	return Transition{
		From:  models.StateReturned,
		To:    models.StateFiled,
		Roles: []models.UserRole{models.RoleFiler},
	}
}

// RequiresAttachmentGate reports whether the outcome at the given state is
// blocked until the compliance attachment set resolves complete. The gate
// applies to the audit stage only.
func RequiresAttachmentGate(from models.DocumentState, outcome models.DecisionOutcome) bool {
	if from != models.StateAuditReview {
		return false
	}
	switch outcome {
	case models.OutcomeApproved, models.OutcomeRejected, models.OutcomeCompleted:
		return true
	}
	return false
}

// OutcomeStatus maps a decision outcome to the review status recorded on
// the custodian's audit record. RETURNED carries no verdict; the record
// returns to AVAILABLE and the note lives in history.
func OutcomeStatus(outcome models.DecisionOutcome) models.ReviewStatus {
	switch outcome {
	case models.OutcomeApproved:
		return models.ReviewApproved
	case models.OutcomeObserved:
		return models.ReviewObserved
	case models.OutcomeRejected:
		return models.ReviewRejected
	case models.OutcomeCompleted:
		return models.ReviewCompleted
	}
	return models.ReviewAvailable
}

// Transitions enumerates every legal edge, useful for verification.
func Transitions() []Transition {
	all := make([]Transition, 0, len(stages)*6+1)
	for _, s := range stages {
		all = append(all,
			Transition{From: s.preClaim, To: s.review, Roles: []models.UserRole{s.role}},
			Transition{From: s.review, To: s.preClaim, Roles: []models.UserRole{s.role}},
			Transition{From: s.review, To: s.approved, Roles: []models.UserRole{s.role}},
			Transition{From: s.review, To: models.StateReturned, Roles: []models.UserRole{s.role}, NoteRequired: true},
		)
	}
	all = append(all, RefileTransition())
	return all
}
