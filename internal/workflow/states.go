package workflow

import "github.com/siscuentas/radicados-api/internal/models"

// IsReviewState reports whether the state grants exclusive custody.
func IsReviewState(state models.DocumentState) bool {
	_, ok := stageByReview(state)
	return ok
}

// IsTerminal reports whether no further transitions leave the state.
func IsTerminal(state models.DocumentState) bool {
	return state == models.StateFinalized
}

// IsPreClaimState reports whether a reviewer may claim from the state.
func IsPreClaimState(state models.DocumentState) bool {
	_, ok := ClaimTransition(state)
	return ok
}

// ValidOutcome reports whether the string names a known decision outcome.
func ValidOutcome(raw models.DecisionOutcome) bool {
	switch raw {
	case models.OutcomeApproved, models.OutcomeObserved, models.OutcomeRejected,
		models.OutcomeCompleted, models.OutcomeReturned:
		return true
	}
	return false
}
