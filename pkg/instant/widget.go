package instant

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"instant-swap/pkg/multicall"
	"instant-swap/pkg/store"
	"instant-swap/pkg/types"
	"instant-swap/pkg/wallet"
)

// Config wires a Widget.
type Config struct {
	ChainID   int64
	Affiliate *types.AffiliateInfo
	// AllowanceTarget overrides the canonical per-chain spender. Zero means
	// use the chain table.
	AllowanceTarget   common.Address
	Debounce          time.Duration
	HeartbeatInterval time.Duration
	// OnSuccess is invoked with the tx hash after a swap confirms.
	OnSuccess func(txHash string)
}

// Widget is the top-level facade: every user gesture enters through one of
// its methods, and State exposes the resulting snapshot. It owns the store
// and the collaborators; callers never touch those directly.
type Widget struct {
	store        *store.Store
	quotes       *QuoteFetcher
	balances     *BalanceFetcher
	steps        *StepController
	orchestrator *Orchestrator
	heartbeat    *Heartbeat
	wallet       wallet.Provider
	logger       *zap.Logger
}

// New assembles a widget from its external collaborators.
func New(
	cfg Config,
	provider wallet.Provider,
	quoteClient QuoteClient,
	caller multicall.ContractCaller,
	logger *zap.Logger,
) *Widget {
	st := store.New(cfg.ChainID, cfg.Affiliate, logger)
	reporter := NewZapReporter(logger)

	spender := cfg.AllowanceTarget
	if spender == (common.Address{}) {
		spender = AllowanceTargetForChain(cfg.ChainID)
	}

	batcher := multicall.NewBatcher(caller, common.Address{}, logger)
	balances := NewBalanceFetcher(st, provider, batcher, spender, reporter, logger)
	quotes := NewQuoteFetcher(st, quoteClient, reporter, cfg.Debounce, logger)
	steps := NewStepController(st, logger)
	gas := wallet.NewNodeGasEstimator(provider, 0)
	orchestrator := NewOrchestrator(st, provider, gas, steps, balances, reporter, logger)
	orchestrator.OnSuccess = cfg.OnSuccess
	heartbeat := NewHeartbeat(st, quotes, cfg.HeartbeatInterval, logger)

	return &Widget{
		store:        st,
		quotes:       quotes,
		balances:     balances,
		steps:        steps,
		orchestrator: orchestrator,
		heartbeat:    heartbeat,
		wallet:       provider,
		logger:       logger.With(zap.String("module", "widget")),
	}
}

// State returns the current widget snapshot.
func (w *Widget) State() store.State {
	return w.store.Snapshot()
}

// RunHeartbeat starts the silent quote refresh loop; it returns when the
// context is cancelled.
func (w *Widget) RunHeartbeat(ctx context.Context) {
	w.heartbeat.Run(ctx)
}

// Wait blocks until in-flight confirmation watchers finish.
func (w *Widget) Wait() {
	w.orchestrator.Wait()
}

// Connect walks the account through Loading and lands on Ready or Locked,
// then refreshes balances for the connected address.
func (w *Widget) Connect(ctx context.Context) error {
	w.store.SetAccountLoading()
	addresses, err := w.wallet.ListAvailableAddresses(ctx)
	if err != nil {
		w.store.SetAccountNone()
		return err
	}
	if len(addresses) == 0 {
		w.store.SetAccountLocked()
		return nil
	}
	w.store.SetAccountReady(addresses[0].Hex())
	w.balances.Refresh(ctx)
	return nil
}

// SetAvailableTokens installs the selectable token universe.
func (w *Widget) SetAvailableTokens(tokens []types.Token) {
	w.store.SetAvailableTokens(tokens)
}

// SelectTokenIn changes the input token. The held quote and any typed output
// amount no longer describe the new pair, so the quote is re-requested for
// the driving amount if one exists.
func (w *Widget) SelectTokenIn(ctx context.Context, token types.Token) {
	w.store.SelectTokenIn(token)
	w.quotes.Invalidate()
	w.balances.Refresh(ctx)
	w.refreshQuoteForCurrentAmount()
}

// SelectTokenOut changes the output token.
func (w *Widget) SelectTokenOut(ctx context.Context, token types.Token) {
	w.store.SelectTokenOut(token)
	w.quotes.Invalidate()
	w.balances.Refresh(ctx)
	w.refreshQuoteForCurrentAmount()
}

// EditAmount records a newly typed amount and schedules the matching quote.
// A zero or cleared amount tears the quote down instead. The quote request
// outlives ctx: it fires after the debounce window, on the fetcher's own
// context.
func (w *Widget) EditAmount(ctx context.Context, amount *big.Int, isIn bool) {
	w.store.SetAmount(amount, isIn)

	if amount == nil || amount.Sign() <= 0 {
		w.quotes.Invalidate()
		w.store.SetQuoteNone()
		return
	}

	// Pending is asserted before the debounce window so the UI reacts to the
	// keystroke immediately.
	w.store.SetQuotePending()
	w.scheduleQuote(amount, isIn)
}

// PrimaryAction handles a press of the main button: it either advances the
// panel flow or submits the transaction the current panel calls for.
func (w *Widget) PrimaryAction(ctx context.Context) error {
	switch w.steps.PrimaryAction() {
	case ActionApprove:
		return w.orchestrator.SubmitApprove(ctx)
	case ActionSwap:
		return w.orchestrator.SubmitSwap(ctx)
	default:
		// The press opened a panel. If it opened the approval panel, kick off
		// the gas estimate it displays.
		if w.store.Snapshot().Step == types.StepApprove {
			if err := w.orchestrator.EstimateApprovalGas(ctx); err != nil {
				w.logger.Debug("approval gas estimate failed", zap.Error(err))
			}
		}
		return nil
	}
}

// Retry resets both transaction machines and the typed amount, returning the
// widget to its starting state after a failure. Safe to call repeatedly.
func (w *Widget) Retry() {
	w.quotes.Invalidate()
	w.store.SetOrderNone()
	w.store.SetApproveNone()
	w.store.ResetAmount()
	w.store.SetStep(types.StepSwap)
	w.store.ClearError()
}

// ClosePanel dismisses the step flow. A transaction already broadcast keeps
// confirming in the background; its result is dropped as stale.
func (w *Widget) ClosePanel() {
	w.quotes.Invalidate()
	w.store.ClosePanel()
}

// SwitchBaseCurrency toggles the display currency between USD and the native coin.
func (w *Widget) SwitchBaseCurrency() {
	if w.store.Snapshot().BaseCurrency == types.BaseCurrencyUSD {
		w.store.SetBaseCurrency(types.BaseCurrencyETH)
	} else {
		w.store.SetBaseCurrency(types.BaseCurrencyUSD)
	}
}

// HideError dismisses the error flash without clearing its message.
func (w *Widget) HideError() {
	w.store.HideError()
}

// RefreshBalances re-reads balances and allowances for the selected tokens.
func (w *Widget) RefreshBalances(ctx context.Context) {
	w.balances.Refresh(ctx)
}

func (w *Widget) refreshQuoteForCurrentAmount() {
	snap := w.store.Snapshot()
	amount := snap.AmountIn
	if !snap.IsIn {
		amount = snap.AmountOut
	}
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	w.store.SetQuotePending()
	w.scheduleQuote(amount, snap.IsIn)
}

func (w *Widget) scheduleQuote(amount *big.Int, isIn bool) {
	snap := w.store.Snapshot()
	if snap.TokenIn == nil || snap.TokenOut == nil {
		return
	}
	params := QuoteParams{
		TokenIn:   *snap.TokenIn,
		TokenOut:  *snap.TokenOut,
		Amount:    amount,
		IsIn:      isIn,
		Affiliate: snap.Affiliate,
	}
	if snap.Account.State == types.AccountReady {
		params.TakerAddress = snap.Account.Address.Hex()
	}
	w.quotes.Schedule(params)
}
