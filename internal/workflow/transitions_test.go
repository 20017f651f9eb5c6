package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/siscuentas/radicados-api/internal/models"
)

func TestPipelineOrder(t *testing.T) {
	// Each stage's approved state must be the next stage's pre-claim state.
	for i := 0; i < len(stages)-1; i++ {
		require.Equal(t, stages[i].approved, stages[i+1].preClaim,
			"stage %d approved state must feed stage %d", i, i+1)
	}
	require.Equal(t, models.StateFiled, stages[0].preClaim)
	require.Equal(t, models.StateFinalized, stages[len(stages)-1].approved)
}

func TestClaimTransitionPerStage(t *testing.T) {
	cases := []struct {
		pre    models.DocumentState
		review models.DocumentState
		role   models.UserRole
	}{
		{models.StateFiled, models.StateSupervisorReview, models.RoleSupervisor},
		{models.StateSupervisorApproved, models.StateAuditReview, models.RoleAuditor},
		{models.StateAuditApproved, models.StateAccountingReview, models.RoleAccounting},
		{models.StateAccountingApproved, models.StateTreasuryReview, models.RoleTreasury},
		{models.StateTreasuryApproved, models.StateManagementReview, models.RoleAdvisor},
		{models.StateManagementApproved, models.StateRenditionReview, models.RoleRendition},
	}
	for _, tc := range cases {
		tr, ok := ClaimTransition(tc.pre)
		require.True(t, ok, "claim from %s", tc.pre)
		require.Equal(t, tc.review, tr.To)
		require.True(t, tr.AllowsRole(tc.role))
		require.True(t, tr.AllowsRole(models.RoleAdmin))
		require.False(t, tr.AllowsRole(models.RoleFiler))
	}

	_, ok := ClaimTransition(models.StateReturned)
	require.False(t, ok)
	_, ok = ClaimTransition(models.StateFinalized)
	require.False(t, ok)
	_, ok = ClaimTransition(models.StateAuditReview)
	require.False(t, ok)
}

func TestReleaseRestoresPreClaimState(t *testing.T) {
	for _, s := range stages {
		tr, ok := ReleaseTransition(s.review)
		require.True(t, ok)
		require.Equal(t, s.preClaim, tr.To)
	}
	_, ok := ReleaseTransition(models.StateFiled)
	require.False(t, ok)
}

func TestDecisionApprovedAdvances(t *testing.T) {
	tr, ok := DecisionTransition(models.StateAuditReview, models.OutcomeApproved)
	require.True(t, ok)
	require.Equal(t, models.StateAuditApproved, tr.To)
	require.False(t, tr.NoteRequired)
	require.True(t, tr.AllowsRole(models.RoleAuditor))
	require.False(t, tr.AllowsRole(models.RoleTreasury))
}

func TestDecisionEscapeRequiresNote(t *testing.T) {
	for _, outcome := range []models.DecisionOutcome{models.OutcomeObserved, models.OutcomeRejected, models.OutcomeReturned} {
		for _, s := range stages {
			tr, ok := DecisionTransition(s.review, outcome)
			require.True(t, ok, "%s from %s", outcome, s.review)
			require.Equal(t, models.StateReturned, tr.To)
			require.True(t, tr.NoteRequired)
		}
	}
}

func TestCompletedOnlyAtRendition(t *testing.T) {
	tr, ok := DecisionTransition(models.StateRenditionReview, models.OutcomeCompleted)
	require.True(t, ok)
	require.Equal(t, models.StateFinalized, tr.To)

	_, ok = DecisionTransition(models.StateSupervisorReview, models.OutcomeCompleted)
	require.False(t, ok)
	_, ok = DecisionTransition(models.StateAuditReview, models.OutcomeCompleted)
	require.False(t, ok)
}

func TestRenditionApprovalFinalizes(t *testing.T) {
	tr, ok := DecisionTransition(models.StateRenditionReview, models.OutcomeApproved)
	require.True(t, ok)
	require.Equal(t, models.StateFinalized, tr.To)
}

func TestNoDecisionsOutsideReviewStates(t *testing.T) {
	for _, state := range []models.DocumentState{
		models.StateFiled, models.StateSupervisorApproved, models.StateReturned, models.StateFinalized,
	} {
		for _, outcome := range []models.DecisionOutcome{
			models.OutcomeApproved, models.OutcomeObserved, models.OutcomeRejected,
			models.OutcomeCompleted, models.OutcomeReturned,
		} {
			_, ok := DecisionTransition(state, outcome)
			require.False(t, ok, "%s from %s must be illegal", outcome, state)
		}
	}
}

func TestRefileTransition(t *testing.T) {
	tr := RefileTransition()
	require.Equal(t, models.StateReturned, tr.From)
	require.Equal(t, models.StateFiled, tr.To)
	require.True(t, tr.AllowsRole(models.RoleFiler))
	require.True(t, tr.AllowsRole(models.RoleAdmin))
	require.False(t, tr.AllowsRole(models.RoleAuditor))
}

func TestAttachmentGateIsAuditStageOnly(t *testing.T) {
	require.True(t, RequiresAttachmentGate(models.StateAuditReview, models.OutcomeApproved))
	require.True(t, RequiresAttachmentGate(models.StateAuditReview, models.OutcomeRejected))
	require.True(t, RequiresAttachmentGate(models.StateAuditReview, models.OutcomeCompleted))
	require.False(t, RequiresAttachmentGate(models.StateAuditReview, models.OutcomeObserved))
	require.False(t, RequiresAttachmentGate(models.StateAuditReview, models.OutcomeReturned))
	require.False(t, RequiresAttachmentGate(models.StateSupervisorReview, models.OutcomeApproved))
	require.False(t, RequiresAttachmentGate(models.StateTreasuryReview, models.OutcomeCompleted))
}

func TestOutcomeStatusMapping(t *testing.T) {
	require.Equal(t, models.ReviewApproved, OutcomeStatus(models.OutcomeApproved))
	require.Equal(t, models.ReviewObserved, OutcomeStatus(models.OutcomeObserved))
	require.Equal(t, models.ReviewRejected, OutcomeStatus(models.OutcomeRejected))
	require.Equal(t, models.ReviewCompleted, OutcomeStatus(models.OutcomeCompleted))
	require.Equal(t, models.ReviewAvailable, OutcomeStatus(models.OutcomeReturned))
}

func TestClaimableStatePerRole(t *testing.T) {
	state, ok := ClaimableState(models.RoleAuditor)
	require.True(t, ok)
	require.Equal(t, models.StateSupervisorApproved, state)

	_, ok = ClaimableState(models.RoleFiler)
	require.False(t, ok)
	_, ok = ClaimableState(models.RoleAdmin)
	require.False(t, ok)
}

func TestStatePredicates(t *testing.T) {
	require.True(t, IsReviewState(models.StateAuditReview))
	require.False(t, IsReviewState(models.StateAuditApproved))
	require.True(t, IsTerminal(models.StateFinalized))
	require.False(t, IsTerminal(models.StateReturned))
	require.True(t, IsPreClaimState(models.StateFiled))
	require.False(t, IsPreClaimState(models.StateReturned))
}

func TestTransitionsTableIsClosed(t *testing.T) {
	known := map[models.DocumentState]struct{}{
		models.StateFiled: {}, models.StateSupervisorReview: {}, models.StateSupervisorApproved: {},
		models.StateAuditReview: {}, models.StateAuditApproved: {}, models.StateAccountingReview: {},
		models.StateAccountingApproved: {}, models.StateTreasuryReview: {}, models.StateTreasuryApproved: {},
		models.StateManagementReview: {}, models.StateManagementApproved: {}, models.StateRenditionReview: {},
		models.StateFinalized: {}, models.StateReturned: {},
	}
	for _, tr := range Transitions() {
		_, fromKnown := known[tr.From]
		_, toKnown := known[tr.To]
		require.True(t, fromKnown, "unknown from state %s", tr.From)
		require.True(t, toKnown, "unknown to state %s", tr.To)
		require.NotEqual(t, models.StateFinalized, tr.From, "terminal state must have no outgoing edges")
		require.NotEmpty(t, tr.Roles)
	}
}
