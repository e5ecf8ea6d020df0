package types

// ProcessState is the phase of a transaction state machine.
type ProcessState string

const (
	ProcessNone       ProcessState = "NONE"
	ProcessValidating ProcessState = "VALIDATING"
	ProcessProcessing ProcessState = "PROCESSING"
	ProcessSuccess    ProcessState = "SUCCESS"
	ProcessFailure    ProcessState = "FAILURE"
)

// AsyncState is the phase of a quote request.
type AsyncState string

const (
	AsyncNone    AsyncState = "NONE"
	AsyncPending AsyncState = "PENDING"
	AsyncSuccess AsyncState = "SUCCESS"
	AsyncFailure AsyncState = "FAILURE"
)

// Progress is the simulated confirmation window shown while a transaction is
// mining. Computed once at broadcast and never revised; it is a UI estimate,
// not a correctness gate.
type Progress struct {
	StartTimeUnix       int64
	ExpectedEndTimeUnix int64
}

// TxState is the lifecycle of one on-chain attempt:
//
//	None → Validating → Processing → Success | Failure
//
// The pre-tx phases (None, Validating) carry no transaction hash; the post-tx
// phases always carry one, so a Success without a hash is unrepresentable.
// The swap order machine and the approval machine are two independent slots
// of this same type.
type TxState interface {
	Phase() ProcessState
}

// OrderState is the swap order's machine slot.
type OrderState = TxState

// ApproveState is the approval's machine slot.
type ApproveState = TxState

type (
	// TxNone is the idle phase.
	TxNone struct{}
	// TxValidating is the phase between the user confirming the action and
	// the wallet broadcasting (or rejecting) the transaction.
	TxValidating struct{}
	// TxProcessing carries the broadcast transaction awaiting confirmation.
	TxProcessing struct {
		TxHash   string
		Progress Progress
	}
	// TxSuccess is the confirmed terminal phase.
	TxSuccess struct {
		TxHash   string
		Progress Progress
	}
	// TxFailure is the reverted/failed terminal phase.
	TxFailure struct {
		TxHash   string
		Progress Progress
	}
)

func (TxNone) Phase() ProcessState       { return ProcessNone }
func (TxValidating) Phase() ProcessState { return ProcessValidating }
func (TxProcessing) Phase() ProcessState { return ProcessProcessing }
func (TxSuccess) Phase() ProcessState    { return ProcessSuccess }
func (TxFailure) Phase() ProcessState    { return ProcessFailure }

// TxHashOf returns the hash recorded in a post-tx phase, or "" for pre-tx phases.
func TxHashOf(s TxState) string {
	switch v := s.(type) {
	case TxProcessing:
		return v.TxHash
	case TxSuccess:
		return v.TxHash
	case TxFailure:
		return v.TxHash
	default:
		return ""
	}
}

// SwapStep is the panel of the flow currently shown.
type SwapStep string

const (
	StepSwap        SwapStep = "Swap"
	StepApprove     SwapStep = "Approve"
	StepReviewOrder SwapStep = "ReviewOrder"
)
