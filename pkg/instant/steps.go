package instant

import (
	"go.uber.org/zap"

	"instant-swap/pkg/store"
	"instant-swap/pkg/types"
)

// Action is what the caller must do after a primary-button press, once the
// controller has routed the step.
type Action int

const (
	// ActionNone: the press only moved the flow to another panel.
	ActionNone Action = iota
	// ActionApprove: submit the allowance transaction.
	ActionApprove
	// ActionSwap: submit the swap transaction.
	ActionSwap
)

// StepController routes the primary button through the panel flow. Whether
// the review panel is preceded by an approval panel depends solely on the
// input token's allowance at the moment the flow starts.
type StepController struct {
	store  *store.Store
	logger *zap.Logger
}

func NewStepController(st *store.Store, logger *zap.Logger) *StepController {
	return &StepController{store: st, logger: logger.With(zap.String("module", "steps"))}
}

// PrimaryAction interprets a press of the main button for the current step.
func (c *StepController) PrimaryAction() Action {
	snap := c.store.Snapshot()

	switch snap.Step {
	case types.StepApprove:
		return ActionApprove
	case types.StepReviewOrder:
		return ActionSwap
	}

	// StepSwap: open the flow. Requires a usable quote and a connected account.
	if snap.LatestQuote == nil || snap.QuoteState != types.AsyncSuccess {
		c.logger.Debug("primary action ignored, no quote")
		return ActionNone
	}
	if snap.Account.State != types.AccountReady {
		c.logger.Debug("primary action ignored, account not ready")
		return ActionNone
	}

	if c.needsApproval(snap) {
		c.store.SetStepWithApprove(true)
		c.store.SetStep(types.StepApprove)
	} else {
		c.store.SetStepWithApprove(false)
		c.store.SetStep(types.StepReviewOrder)
	}
	return ActionNone
}

// AdvanceAfterApproval moves the flow from the approval panel to the review
// panel once the allowance transaction confirmed.
func (c *StepController) AdvanceAfterApproval() {
	snap := c.store.Snapshot()
	if snap.Step != types.StepApprove {
		return
	}
	c.store.SetStep(types.StepReviewOrder)
}

// needsApproval reports whether the input token requires an allowance grant.
// The native coin never does; an ERC-20 does unless its slot is unlocked. A
// missing slot balance is treated as locked, the safe direction: the approval
// submit path re-checks nothing, but an unnecessary approve merely wastes gas
// while a skipped one would make the swap revert.
func (c *StepController) needsApproval(snap store.State) bool {
	if snap.TokenIn == nil || snap.TokenIn.IsNative() {
		return false
	}
	if snap.TokenBalanceIn == nil {
		return true
	}
	return !snap.TokenBalanceIn.IsUnlocked
}
