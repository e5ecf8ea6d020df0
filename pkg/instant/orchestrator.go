package instant

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"go.uber.org/zap"

	"instant-swap/pkg/store"
	"instant-swap/pkg/types"
	"instant-swap/pkg/wallet"
)

// User-facing flash messages for submission failures.
const (
	msgSignatureDenied  = "You denied this transaction"
	msgValueTooLow      = "Transaction value too low"
	msgCouldNotSubmit   = "Could not submit transaction"
	msgInsufficientGas  = "You don't have enough ETH"
	msgApprovalFailed   = "Token approval failed"
	msgApprovalRejected = "You denied the approval"
)

const erc20ApproveABI = `[{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}]`

var (
	approveOnce   sync.Once
	parsedApprove abi.ABI
	approveErr    error
)

func approveABI() (abi.ABI, error) {
	approveOnce.Do(func() {
		parsedApprove, approveErr = abi.JSON(strings.NewReader(erc20ApproveABI))
	})
	return parsedApprove, approveErr
}

// Orchestrator drives the two transaction machines: it validates, submits,
// and watches the approval and swap transactions, translating every outcome
// into store intents. All blocking work happens on the calling goroutine
// except confirmation watching, which runs in the background so a dismissed
// panel does not cancel an already-broadcast transaction.
type Orchestrator struct {
	store    *store.Store
	wallet   wallet.Provider
	gas      wallet.GasEstimator
	steps    *StepController
	balances *BalanceFetcher
	reporter Reporter
	logger   *zap.Logger

	// OnSuccess, if set, is invoked with the tx hash after a swap confirms.
	OnSuccess func(txHash string)

	watchCtx context.Context
	wg       sync.WaitGroup
}

func NewOrchestrator(
	st *store.Store,
	provider wallet.Provider,
	gas wallet.GasEstimator,
	steps *StepController,
	balances *BalanceFetcher,
	reporter Reporter,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:    st,
		wallet:   provider,
		gas:      gas,
		steps:    steps,
		balances: balances,
		reporter: reporter,
		logger:   logger.With(zap.String("module", "orchestrator")),
		watchCtx: context.Background(),
	}
}

// Wait blocks until all background confirmation watchers finish. Test hook
// and shutdown aid.
func (o *Orchestrator) Wait() { o.wg.Wait() }

// SubmitSwap validates and broadcasts the held quote's transaction. The
// quote's calldata, value and gas price are sent verbatim; nothing is
// recomputed between quoting and broadcast.
func (o *Orchestrator) SubmitSwap(ctx context.Context) error {
	snap := o.store.Snapshot()
	if snap.LatestQuote == nil {
		return types.ErrNoQuote
	}
	if snap.Account.State != types.AccountReady {
		return types.ErrNoAccount
	}

	// Claims the machine; a second click while the first is underway is a no-op.
	if !o.store.BeginOrderValidation() {
		o.logger.Debug("swap already in flight, ignoring submit")
		return nil
	}

	quote := snap.LatestQuote

	// Pre-flight: if the native balance is known and cannot cover the
	// transaction value, fail locally instead of letting the node reject.
	if native := snap.Account.NativeBalance; native != nil && quote.Value != nil && native.Cmp(quote.Value) < 0 {
		o.store.SetOrderNone()
		o.store.FlashError(msgInsufficientGas)
		return types.ErrInsufficientNativeBalance
	}

	gasInfo, err := o.gas.GasInfo(ctx)
	if err != nil {
		// The progress window is cosmetic; fall back rather than block the swap.
		o.logger.Warn("gas info unavailable, using defaults", zap.Error(err))
		gasInfo = wallet.GasInfo{}
	}

	// Last look before broadcast: an amount edit racing the click resets the
	// machine and drops the quote. The edit wins; nothing is sent.
	fresh := o.store.Snapshot()
	if fresh.OrderState.Phase() != types.ProcessValidating || fresh.LatestQuote != quote {
		o.logger.Debug("quote invalidated during validation, not sending")
		return nil
	}

	hash, err := o.wallet.SendTransaction(ctx, quote.Payload())
	if err != nil {
		return o.failSubmit(err)
	}

	progress := store.NewProgress(gasInfo.EstimatedWait)
	if !o.store.SetOrderProcessing(hash.Hex(), progress) {
		// The panel was dismissed between broadcast and here; the chain state
		// is what it is, but the UI no longer tracks it.
		o.logger.Debug("order machine reset during broadcast", zap.String("tx_hash", hash.Hex()))
		return nil
	}
	o.logger.Info("swap broadcast", zap.String("tx_hash", hash.Hex()))

	o.wg.Add(1)
	go o.watchSwap(hash.Hex())
	return nil
}

func (o *Orchestrator) failSubmit(err error) error {
	classified := types.ClassifySubmitError(err)
	o.store.SetOrderNone()
	switch {
	case errors.Is(classified, types.ErrSignatureDenied):
		// Denial means the user changed their mind; clear the typed amount so
		// the widget returns to its starting state.
		o.store.ResetAmount()
		o.store.FlashError(msgSignatureDenied)
	case errors.Is(classified, types.ErrTransactionValueTooLow):
		o.store.FlashError(msgValueTooLow)
	default:
		o.store.FlashError(msgCouldNotSubmit)
		o.reporter.Report(fmt.Errorf("swap submission failed: %w", err))
	}
	return classified
}

func (o *Orchestrator) watchSwap(txHash string) {
	defer o.wg.Done()

	hash := common.HexToHash(txHash)
	ok, err := o.wallet.AwaitConfirmation(o.watchCtx, hash)
	if err != nil {
		o.reporter.Report(fmt.Errorf("swap confirmation watch failed: %w", err))
		o.store.SetOrderFailure(txHash)
		return
	}
	if !ok {
		o.logger.Info("swap reverted", zap.String("tx_hash", txHash))
		o.store.SetOrderFailure(txHash)
		return
	}

	if !o.store.SetOrderSuccess(txHash) {
		// Stale: the flow was dismissed or restarted while confirming.
		return
	}
	o.logger.Info("swap confirmed", zap.String("tx_hash", txHash))
	o.balances.Refresh(o.watchCtx)
	if o.OnSuccess != nil {
		o.OnSuccess(txHash)
	}
}

// SubmitApprove grants the allowance target an unlimited allowance on the
// input token, then advances to the review panel once it confirms. Unlimited
// rather than exact: the quote amount drifts with every refresh, and one
// grant spares a second transaction on every future swap.
func (o *Orchestrator) SubmitApprove(ctx context.Context) error {
	snap := o.store.Snapshot()
	if snap.LatestQuote == nil {
		return types.ErrNoQuote
	}
	if snap.Account.State != types.AccountReady {
		return types.ErrNoAccount
	}
	if snap.TokenIn == nil || snap.TokenIn.IsNative() {
		return fmt.Errorf("input token does not require approval")
	}

	if !o.store.BeginApproveValidation() {
		o.logger.Debug("approval already in flight, ignoring submit")
		return nil
	}

	payload, err := approvePayload(*snap.TokenIn, snap.LatestQuote)
	if err != nil {
		o.store.SetApproveNone()
		o.reporter.Report(err)
		return err
	}

	gasInfo, err := o.gas.GasInfo(ctx)
	if err != nil {
		o.logger.Warn("gas info unavailable, using defaults", zap.Error(err))
		gasInfo = wallet.GasInfo{}
	}

	hash, err := o.wallet.SendTransaction(ctx, payload)
	if err != nil {
		classified := types.ClassifySubmitError(err)
		o.store.SetApproveNone()
		if errors.Is(classified, types.ErrSignatureDenied) {
			o.store.FlashError(msgApprovalRejected)
		} else {
			o.store.FlashError(msgApprovalFailed)
			o.reporter.Report(fmt.Errorf("approval submission failed: %w", err))
		}
		return classified
	}

	progress := store.NewProgress(gasInfo.EstimatedWait)
	if !o.store.SetApproveProcessing(hash.Hex(), progress) {
		o.logger.Debug("approve machine reset during broadcast", zap.String("tx_hash", hash.Hex()))
		return nil
	}
	o.logger.Info("approval broadcast", zap.String("tx_hash", hash.Hex()))

	o.wg.Add(1)
	go o.watchApprove(hash.Hex())
	return nil
}

func (o *Orchestrator) watchApprove(txHash string) {
	defer o.wg.Done()

	hash := common.HexToHash(txHash)
	ok, err := o.wallet.AwaitConfirmation(o.watchCtx, hash)
	if err != nil {
		o.reporter.Report(fmt.Errorf("approval confirmation watch failed: %w", err))
		o.store.SetApproveFailure(txHash)
		return
	}
	if !ok {
		o.logger.Info("approval reverted", zap.String("tx_hash", txHash))
		o.store.SetApproveFailure(txHash)
		return
	}

	if !o.store.SetApproveSuccess(txHash) {
		return
	}
	o.logger.Info("approval confirmed", zap.String("tx_hash", txHash))
	o.balances.Refresh(o.watchCtx)
	o.steps.AdvanceAfterApproval()
}

// EstimateApprovalGas simulates the pending approval and records its
// projected native cost (gas x gas price) for display on the approval panel.
func (o *Orchestrator) EstimateApprovalGas(ctx context.Context) error {
	snap := o.store.Snapshot()
	if snap.LatestQuote == nil || snap.Account.State != types.AccountReady {
		return nil
	}
	if snap.TokenIn == nil || snap.TokenIn.IsNative() {
		return nil
	}

	payload, err := approvePayload(*snap.TokenIn, snap.LatestQuote)
	if err != nil {
		return err
	}
	gasUnits, err := o.wallet.EstimateGas(ctx, snap.Account.Address, payload)
	if err != nil {
		return fmt.Errorf("failed to estimate approval gas: %w", err)
	}
	gasInfo, err := o.gas.GasInfo(ctx)
	if err != nil {
		return err
	}

	cost := new(big.Int).Mul(new(big.Int).SetUint64(gasUnits), gasInfo.GasPriceWei)
	o.store.SetApprovalGasEstimate(cost)
	return nil
}

func approvePayload(token types.Token, quote *types.SwapQuote) (types.TxPayload, error) {
	parsed, err := approveABI()
	if err != nil {
		return types.TxPayload{}, fmt.Errorf("failed to parse approve ABI: %w", err)
	}
	data, err := parsed.Pack("approve", quote.AllowanceTarget, math.MaxBig256)
	if err != nil {
		return types.TxPayload{}, fmt.Errorf("failed to pack approve call: %w", err)
	}
	return types.TxPayload{
		To:   common.HexToAddress(token.Address),
		Data: data,
	}, nil
}
