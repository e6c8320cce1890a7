package lifecycle

// Application states. Applications start unverified and are driven by
// reviewer actions; approved and rejected are terminal. A rejected
// applicant may submit a fresh application after the cooldown window,
// which is policy enforced by the verification service, not here.
const (
	StateUnverified  State = "unverified"
	StatePending     State = "pending"
	StateInReview    State = "in_review"
	StateApproved    State = "approved"
	StateRejected    State = "rejected"
	StateNeedsUpdate State = "needs_update"
)

// Application actions.
const (
	ActionSubmit         Action = "submit"
	ActionStartReview    Action = "start_review"
	ActionApprove        Action = "approve"
	ActionReject         Action = "reject"
	ActionRequestChanges Action = "request_changes"
	ActionResubmit       Action = "resubmit"
)

// ApplicationMachine governs seller/mentor/creator applications.
var ApplicationMachine = NewMachine("application", StateUnverified, map[State]map[Action]State{
	StateUnverified: {
		ActionSubmit: StatePending,
	},
	StatePending: {
		ActionStartReview:    StateInReview,
		ActionApprove:        StateApproved,
		ActionReject:         StateRejected,
		ActionRequestChanges: StateNeedsUpdate,
	},
	StateInReview: {
		ActionApprove:        StateApproved,
		ActionReject:         StateRejected,
		ActionRequestChanges: StateNeedsUpdate,
	},
	StateNeedsUpdate: {
		ActionResubmit: StatePending,
	},
})

// Profile verification states.
const (
	StateVerified  State = "verified"
	StateSuspended State = "suspended"
)

// Profile verification actions.
const (
	ActionVerify    Action = "verify"
	ActionSuspend   Action = "suspend"
	ActionReinstate Action = "reinstate"
)

// VerificationMachine governs the single current verification status a
// profile owns. Historical requests are immutable audit rows.
var VerificationMachine = NewMachine("verification", StateUnverified, map[State]map[Action]State{
	StateUnverified: {
		ActionSubmit: StatePending,
	},
	StatePending: {
		ActionVerify: StateVerified,
		ActionReject: StateRejected,
	},
	StateVerified: {
		ActionSuspend: StateSuspended,
	},
	StateSuspended: {
		ActionReinstate: StateVerified,
	},
	StateRejected: {
		ActionResubmit: StatePending,
	},
})

// Swap states. Funds/items are held in escrow-style status only: the
// status tracks mutual confirmation, it does not custody anything.
const (
	SwapPending   State = "pending"
	SwapAccepted  State = "accepted"
	SwapRejected  State = "rejected"
	SwapCancelled State = "cancelled"
	SwapCompleted State = "completed"
	SwapDisputed  State = "disputed"
	SwapExpired   State = "expired"
	SwapRefunded  State = "refunded"
)

// Swap actions.
const (
	SwapActionAccept   Action = "accept"
	SwapActionReject   Action = "reject"
	SwapActionCancel   Action = "cancel"
	SwapActionExpire   Action = "expire"
	SwapActionComplete Action = "complete"
	SwapActionDispute  Action = "dispute"
	SwapActionResolve  Action = "resolve"
	SwapActionRefund   Action = "refund"
)

// SwapMachine governs peer-to-peer swaps. Only pending swaps can be
// accepted, rejected, or cancelled; only accepted swaps can complete or
// enter dispute. A dispute either resolves to completed (admin
// decision) or refunds after the dispute window lapses.
var SwapMachine = NewMachine("swap", SwapPending, map[State]map[Action]State{
	SwapPending: {
		SwapActionAccept: SwapAccepted,
		SwapActionReject: SwapRejected,
		SwapActionCancel: SwapCancelled,
		SwapActionExpire: SwapExpired,
	},
	SwapAccepted: {
		SwapActionComplete: SwapCompleted,
		SwapActionDispute:  SwapDisputed,
	},
	SwapDisputed: {
		SwapActionResolve: SwapCompleted,
		SwapActionRefund:  SwapRefunded,
	},
})

// MachineByName returns a machine by its wire name.
func MachineByName(name string) (*Machine, bool) {
	switch name {
	case "application":
		return ApplicationMachine, true
	case "verification":
		return VerificationMachine, true
	case "swap":
		return SwapMachine, true
	default:
		return nil, false
	}
}
