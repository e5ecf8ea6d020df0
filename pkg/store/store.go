// Package store holds the widget's single process-wide state. Components
// never reach into each other's state: every mutation goes through an intent
// method here, under one lock, and readers get snapshot copies.
package store

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"instant-swap/pkg/types"
)

// State is the full widget state. Snapshots returned by the store are copies;
// pointer fields must be treated as read-only by callers.
type State struct {
	ChainID int64

	Account types.Account

	TokenIn  *types.Token
	TokenOut *types.Token

	TokenBalanceIn  *types.TokenBalance
	TokenBalanceOut *types.TokenBalance

	AvailableTokens []types.Token

	// AmountIn/AmountOut are base-unit amounts. IsIn records which side the
	// user last typed into; the other side is derived from the quote.
	AmountIn  *big.Int
	AmountOut *big.Int
	IsIn      bool

	LatestQuote *types.SwapQuote
	QuoteState  types.AsyncState

	OrderState   types.OrderState
	ApproveState types.ApproveState

	Step            types.SwapStep
	StepWithApprove bool

	// ApprovalGasEstimate is the projected native cost of the approve call,
	// shown on the review panel.
	ApprovalGasEstimate *big.Int

	BaseCurrency types.BaseCurrency
	Affiliate    *types.AffiliateInfo

	ErrorMessage string
	ErrorHidden  bool
}

// Store is the single-writer owner of State.
type Store struct {
	mu     sync.RWMutex
	state  State
	logger *zap.Logger
}

// New creates a store with default state for a chain.
func New(chainID int64, affiliate *types.AffiliateInfo, logger *zap.Logger) *Store {
	return &Store{
		state: State{
			ChainID:      chainID,
			Account:      types.Account{State: types.AccountNone},
			QuoteState:   types.AsyncNone,
			OrderState:   types.TxNone{},
			ApproveState: types.TxNone{},
			Step:         types.StepSwap,
			BaseCurrency: types.BaseCurrencyUSD,
			Affiliate:    affiliate,
			ErrorHidden:  true,
		},
		logger: logger.With(zap.String("module", "store")),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// --- account intents ---

func (s *Store) SetAccountLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Account = types.Account{State: types.AccountLoading}
}

func (s *Store) SetAccountLocked() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Account = types.Account{State: types.AccountLocked}
}

func (s *Store) SetAccountNone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Account = types.Account{State: types.AccountNone}
}

// SetAccountReady marks the account connected. A native balance already known
// for the same address is preserved across reconnects.
func (s *Store) SetAccountReady(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account := types.Account{State: types.AccountReady, Address: common.HexToAddress(address)}
	current := s.state.Account
	if current.State == types.AccountReady && current.Address == account.Address {
		account.NativeBalance = current.NativeBalance
	}
	s.state.Account = account
}

// UpdateNativeBalance records the account's native balance. The update is
// dropped if the account changed while the balance read was in flight.
func (s *Store) UpdateNativeBalance(address string, balance *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Account.State != types.AccountReady || s.state.Account.Address != common.HexToAddress(address) {
		return
	}
	s.state.Account.NativeBalance = balance
}

// --- token selection and amounts ---

// SelectTokenIn replaces the input token. The slot's balance is cleared: a
// TokenBalance is only ever valid for the token it was read for.
func (s *Store) SelectTokenIn(token types.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TokenIn = &token
	s.state.TokenBalanceIn = nil
}

func (s *Store) SelectTokenOut(token types.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TokenOut = &token
	s.state.TokenBalanceOut = nil
}

func (s *Store) SetAvailableTokens(tokens []types.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AvailableTokens = tokens
}

// SetTokenBalanceIn replaces the input token's balance wholesale.
func (s *Store) SetTokenBalanceIn(balance types.TokenBalance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TokenBalanceIn = &balance
}

func (s *Store) SetTokenBalanceOut(balance types.TokenBalance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TokenBalanceOut = &balance
}

// SetAmount records the user-typed base-unit amount for one side, marks that
// side as driving, invalidates the held quote and resets the order machine.
// The stale quote is removed before any new request is issued so it can never
// be displayed or acted on.
func (s *Store) SetAmount(amount *big.Int, isIn bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if isIn {
		s.state.AmountIn = amount
		s.state.AmountOut = nil
	} else {
		s.state.AmountOut = amount
		s.state.AmountIn = nil
	}
	s.state.IsIn = isIn
	s.state.LatestQuote = nil
	s.state.OrderState = types.TxNone{}
}

// ResetAmount clears both amount fields and the quote. Used by retry and by
// signature denial.
func (s *Store) ResetAmount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AmountIn = nil
	s.state.AmountOut = nil
	s.state.LatestQuote = nil
	s.state.QuoteState = types.AsyncNone
}

// --- quote intents ---

func (s *Store) SetQuotePending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LatestQuote = nil
	s.state.QuoteState = types.AsyncPending
}

// SetQuoteNone clears the quote slot entirely (amount emptied, flow dismissed).
func (s *Store) SetQuoteNone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LatestQuote = nil
	s.state.QuoteState = types.AsyncNone
}

func (s *Store) SetQuoteFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LatestQuote = nil
	s.state.QuoteState = types.AsyncFailure
}

// ApplyQuote accepts a quote response and populates the derived amount field:
// the side the user did not type into, always from the response's buyAmount
// (the request direction already swapped sell/buy tokens accordingly).
func (s *Store) ApplyQuote(quote *types.SwapQuote, isIn bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if isIn {
		s.state.AmountOut = quote.BuyAmount
	} else {
		s.state.AmountIn = quote.BuyAmount
	}
	s.state.LatestQuote = quote
	s.state.QuoteState = types.AsyncSuccess
}

func (s *Store) SetApprovalGasEstimate(wei *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ApprovalGasEstimate = wei
}

// --- swap order machine ---

// BeginOrderValidation moves None → Validating. It reports false when the
// machine is not idle, which is what makes a double click on the action
// button a no-op: the first accepted click claims the machine.
func (s *Store) BeginOrderValidation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.OrderState.Phase() != types.ProcessNone {
		return false
	}
	s.state.OrderState = types.TxValidating{}
	return true
}

func (s *Store) SetOrderProcessing(txHash string, progress types.Progress) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.OrderState.Phase() != types.ProcessValidating {
		return false
	}
	s.state.OrderState = types.TxProcessing{TxHash: txHash, Progress: progress}
	return true
}

// SetOrderSuccess moves Processing → Success, but only for the transaction
// currently recorded: a late confirmation from an abandoned attempt must not
// overwrite a newer attempt's state.
func (s *Store) SetOrderSuccess(txHash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	processing, ok := s.state.OrderState.(types.TxProcessing)
	if !ok || processing.TxHash != txHash {
		s.logger.Debug("dropping stale order success", zap.String("tx_hash", txHash))
		return false
	}
	s.state.OrderState = types.TxSuccess{TxHash: processing.TxHash, Progress: processing.Progress}
	return true
}

func (s *Store) SetOrderFailure(txHash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	processing, ok := s.state.OrderState.(types.TxProcessing)
	if !ok || processing.TxHash != txHash {
		s.logger.Debug("dropping stale order failure", zap.String("tx_hash", txHash))
		return false
	}
	s.state.OrderState = types.TxFailure{TxHash: processing.TxHash, Progress: processing.Progress}
	return true
}

func (s *Store) SetOrderNone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.OrderState = types.TxNone{}
}

// --- approval machine ---

func (s *Store) BeginApproveValidation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.ApproveState.Phase() != types.ProcessNone {
		return false
	}
	s.state.ApproveState = types.TxValidating{}
	return true
}

func (s *Store) SetApproveProcessing(txHash string, progress types.Progress) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.ApproveState.Phase() != types.ProcessValidating {
		return false
	}
	s.state.ApproveState = types.TxProcessing{TxHash: txHash, Progress: progress}
	return true
}

func (s *Store) SetApproveSuccess(txHash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	processing, ok := s.state.ApproveState.(types.TxProcessing)
	if !ok || processing.TxHash != txHash {
		s.logger.Debug("dropping stale approve success", zap.String("tx_hash", txHash))
		return false
	}
	s.state.ApproveState = types.TxSuccess{TxHash: processing.TxHash, Progress: processing.Progress}
	return true
}

func (s *Store) SetApproveFailure(txHash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	processing, ok := s.state.ApproveState.(types.TxProcessing)
	if !ok || processing.TxHash != txHash {
		s.logger.Debug("dropping stale approve failure", zap.String("tx_hash", txHash))
		return false
	}
	s.state.ApproveState = types.TxFailure{TxHash: processing.TxHash, Progress: processing.Progress}
	return true
}

func (s *Store) SetApproveNone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ApproveState = types.TxNone{}
}

// --- step intents ---

func (s *Store) SetStep(step types.SwapStep) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Step = step
}

func (s *Store) SetStepWithApprove(withApprove bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.StepWithApprove = withApprove
}

// ClosePanel dismisses the step panel: both machines reset to None so a stale
// progress bar can never reappear on re-open. An already-broadcast transaction
// keeps confirming in the background; its late result is dropped by the
// txHash guards above.
func (s *Store) ClosePanel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Step = types.StepSwap
	s.state.OrderState = types.TxNone{}
	s.state.ApproveState = types.TxNone{}
}

// --- error flash ---

func (s *Store) FlashError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ErrorMessage = message
	s.state.ErrorHidden = false
}

func (s *Store) HideError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ErrorHidden = true
}

func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ErrorMessage = ""
	s.state.ErrorHidden = true
}

// --- misc ---

func (s *Store) SetBaseCurrency(currency types.BaseCurrency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.BaseCurrency = currency
}

// NewProgress builds a progress window starting now.
func NewProgress(expectedWait time.Duration) types.Progress {
	start := time.Now().Unix()
	return types.Progress{
		StartTimeUnix:       start,
		ExpectedEndTimeUnix: start + int64(expectedWait.Seconds()),
	}
}

