package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationMachineHappyPath(t *testing.T) {
	state := ApplicationMachine.Initial()
	require.Equal(t, StateUnverified, state)

	for _, step := range []struct {
		action Action
		want   State
	}{
		{ActionSubmit, StatePending},
		{ActionStartReview, StateInReview},
		{ActionRequestChanges, StateNeedsUpdate},
		{ActionResubmit, StatePending},
		{ActionApprove, StateApproved},
	} {
		next, err := ApplicationMachine.Transition(state, step.action)
		require.NoError(t, err, "action %s from %s", step.action, state)
		assert.Equal(t, step.want, next)
		state = next
	}

	assert.True(t, ApplicationMachine.IsTerminal(state))
}

func TestApplicationMachineRejectsInvalidTransitions(t *testing.T) {
	tests := []struct {
		name   string
		state  State
		action Action
	}{
		{"approve before submit", StateUnverified, ActionApprove},
		{"double submit", StatePending, ActionSubmit},
		{"approve after approval", StateApproved, ActionApprove},
		{"resubmit after rejection", StateRejected, ActionResubmit},
		{"unknown action", StatePending, Action("escalate")},
		{"unknown state", State("limbo"), ActionSubmit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplicationMachine.Transition(tt.state, tt.action)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTransition)

			var terr *TransitionError
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, "application", terr.Machine)
			assert.Equal(t, tt.state, terr.State)
			assert.Equal(t, tt.action, terr.Action)
		})
	}
}

func TestVerificationMachine(t *testing.T) {
	next, err := VerificationMachine.Transition(StateVerified, ActionSuspend)
	require.NoError(t, err)
	assert.Equal(t, StateSuspended, next)

	next, err = VerificationMachine.Transition(StateSuspended, ActionReinstate)
	require.NoError(t, err)
	assert.Equal(t, StateVerified, next)

	// Rejected profiles can come back through resubmission.
	next, err = VerificationMachine.Transition(StateRejected, ActionResubmit)
	require.NoError(t, err)
	assert.Equal(t, StatePending, next)

	_, err = VerificationMachine.Transition(StateSuspended, ActionVerify)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSwapMachineTransitions(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		action  Action
		want    State
		wantErr bool
	}{
		{"accept pending", SwapPending, SwapActionAccept, SwapAccepted, false},
		{"reject pending", SwapPending, SwapActionReject, SwapRejected, false},
		{"cancel pending", SwapPending, SwapActionCancel, SwapCancelled, false},
		{"expire pending", SwapPending, SwapActionExpire, SwapExpired, false},
		{"complete accepted", SwapAccepted, SwapActionComplete, SwapCompleted, false},
		{"dispute accepted", SwapAccepted, SwapActionDispute, SwapDisputed, false},
		{"resolve dispute", SwapDisputed, SwapActionResolve, SwapCompleted, false},
		{"refund dispute", SwapDisputed, SwapActionRefund, SwapRefunded, false},

		{"dispute completed swap", SwapCompleted, SwapActionDispute, "", true},
		{"accept accepted swap", SwapAccepted, SwapActionAccept, "", true},
		{"cancel accepted swap", SwapAccepted, SwapActionCancel, "", true},
		{"complete pending swap", SwapPending, SwapActionComplete, "", true},
		{"refund completed swap", SwapCompleted, SwapActionRefund, "", true},
		{"expire accepted swap", SwapAccepted, SwapActionExpire, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := SwapMachine.Transition(tt.state, tt.action)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, next)
		})
	}
}

func TestMachineDerivesTerminalStates(t *testing.T) {
	for _, s := range []State{SwapRejected, SwapCancelled, SwapCompleted, SwapExpired, SwapRefunded} {
		assert.True(t, SwapMachine.IsTerminal(s), "%s should be terminal", s)
	}
	for _, s := range []State{SwapPending, SwapAccepted, SwapDisputed} {
		assert.False(t, SwapMachine.IsTerminal(s), "%s should not be terminal", s)
	}

	assert.True(t, ApplicationMachine.IsTerminal(StateApproved))
	assert.True(t, ApplicationMachine.IsTerminal(StateRejected))
	assert.False(t, ApplicationMachine.IsTerminal(StateNeedsUpdate))

	// Rejected has an outgoing resubmit edge in the profile machine,
	// so it is terminal in one machine and not the other.
	assert.False(t, VerificationMachine.IsTerminal(StateRejected))
}

func TestMachineNextAndActions(t *testing.T) {
	assert.Equal(t, []State{SwapAccepted, SwapCancelled, SwapExpired, SwapRejected}, SwapMachine.Next(SwapPending))
	assert.Equal(t, []Action{SwapActionAccept, SwapActionCancel, SwapActionExpire, SwapActionReject}, SwapMachine.Actions(SwapPending))

	assert.Empty(t, SwapMachine.Next(SwapCompleted))
	assert.Empty(t, SwapMachine.Actions(SwapCompleted))

	assert.True(t, SwapMachine.CanTransition(SwapPending, SwapActionAccept))
	assert.False(t, SwapMachine.CanTransition(SwapCompleted, SwapActionDispute))
}

func TestMachineByName(t *testing.T) {
	for _, name := range []string{"application", "verification", "swap"} {
		m, ok := MachineByName(name)
		require.True(t, ok)
		assert.Equal(t, name, m.Name())
	}

	_, ok := MachineByName("escrow")
	assert.False(t, ok)
}
