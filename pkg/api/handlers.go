package api

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"instant-swap/pkg/instant"
	"instant-swap/pkg/store"
	"instant-swap/pkg/types"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	widget *instant.Widget
	logger *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(widget *instant.Widget, logger *zap.Logger) *Handler {
	return &Handler{widget: widget, logger: logger}
}

// HandleHealth returns service health status
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: "1.0.0"})
}

// HandleGetState handles GET /api/v1/state
func (h *Handler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, stateResponse(h.widget.State()))
}

// HandleGetTokens handles GET /api/v1/tokens
func (h *Handler) HandleGetTokens(w http.ResponseWriter, r *http.Request) {
	snap := h.widget.State()
	tokens := make([]TokenView, 0, len(snap.AvailableTokens))
	for _, t := range snap.AvailableTokens {
		tokens = append(tokens, tokenView(t))
	}
	respondJSON(w, http.StatusOK, TokensResponse{Tokens: tokens})
}

// HandleConnect handles POST /api/v1/connect
func (h *Handler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	if err := h.widget.Connect(r.Context()); err != nil {
		h.logger.Error("Failed to connect account", zap.Error(err))
		respondError(w, http.StatusBadGateway, "Failed to connect account", err)
		return
	}
	respondJSON(w, http.StatusOK, stateResponse(h.widget.State()))
}

// HandleSelectTokenIn handles POST /api/v1/tokens/in
func (h *Handler) HandleSelectTokenIn(w http.ResponseWriter, r *http.Request) {
	h.selectToken(w, r, true)
}

// HandleSelectTokenOut handles POST /api/v1/tokens/out
func (h *Handler) HandleSelectTokenOut(w http.ResponseWriter, r *http.Request) {
	h.selectToken(w, r, false)
}

func (h *Handler) selectToken(w http.ResponseWriter, r *http.Request, isIn bool) {
	var req SelectTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required", nil)
		return
	}

	token, ok := h.findToken(req.Symbol)
	if !ok {
		respondError(w, http.StatusNotFound, "Unknown token symbol", nil)
		return
	}

	if isIn {
		h.widget.SelectTokenIn(r.Context(), token)
	} else {
		h.widget.SelectTokenOut(r.Context(), token)
	}
	respondJSON(w, http.StatusOK, stateResponse(h.widget.State()))
}

// HandleEditAmount handles POST /api/v1/amount
func (h *Handler) HandleEditAmount(w http.ResponseWriter, r *http.Request) {
	var req EditAmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	snap := h.widget.State()
	var token *types.Token
	if req.IsIn {
		token = snap.TokenIn
	} else {
		token = snap.TokenOut
	}
	if token == nil {
		respondError(w, http.StatusBadRequest, "Select a token before entering an amount", nil)
		return
	}

	var baseUnits *big.Int
	if req.Amount != "" {
		unitAmount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid amount: must be a decimal number", err)
			return
		}
		if unitAmount.Sign() < 0 {
			respondError(w, http.StatusBadRequest, "Amount must not be negative", nil)
			return
		}
		baseUnits = token.BaseUnitAmount(unitAmount)
	}

	h.widget.EditAmount(r.Context(), baseUnits, req.IsIn)
	respondJSON(w, http.StatusOK, stateResponse(h.widget.State()))
}

// HandlePrimaryAction handles POST /api/v1/action
func (h *Handler) HandlePrimaryAction(w http.ResponseWriter, r *http.Request) {
	if err := h.widget.PrimaryAction(r.Context()); err != nil {
		// The store already recorded the failure; the snapshot carries it.
		h.logger.Debug("Primary action failed", zap.Error(err))
	}
	respondJSON(w, http.StatusOK, stateResponse(h.widget.State()))
}

// HandleRetry handles POST /api/v1/retry
func (h *Handler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	h.widget.Retry()
	respondJSON(w, http.StatusOK, stateResponse(h.widget.State()))
}

// HandleClosePanel handles POST /api/v1/close
func (h *Handler) HandleClosePanel(w http.ResponseWriter, r *http.Request) {
	h.widget.ClosePanel()
	respondJSON(w, http.StatusOK, stateResponse(h.widget.State()))
}

// HandleToggleBaseCurrency handles POST /api/v1/base-currency/toggle
func (h *Handler) HandleToggleBaseCurrency(w http.ResponseWriter, r *http.Request) {
	h.widget.SwitchBaseCurrency()
	respondJSON(w, http.StatusOK, stateResponse(h.widget.State()))
}

// HandleHideError handles POST /api/v1/error/hide
func (h *Handler) HandleHideError(w http.ResponseWriter, r *http.Request) {
	h.widget.HideError()
	respondJSON(w, http.StatusOK, stateResponse(h.widget.State()))
}

func (h *Handler) findToken(symbol string) (types.Token, bool) {
	for _, t := range h.widget.State().AvailableTokens {
		if t.Symbol == symbol {
			return t, true
		}
	}
	return types.Token{}, false
}

// ==================== View Builders ====================

func tokenView(t types.Token) TokenView {
	return TokenView{
		ChainID:  t.ChainID,
		Address:  t.Address,
		Symbol:   t.Symbol,
		Name:     t.Name,
		Decimals: t.Decimals,
	}
}

func bigString(v *big.Int) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}

func txStateView(s types.TxState) TxStateView {
	view := TxStateView{Phase: string(s.Phase())}
	switch v := s.(type) {
	case types.TxProcessing:
		view.TxHash = v.TxHash
		view.StartTimeUnix = v.Progress.StartTimeUnix
		view.ExpectedEndTimeUnix = v.Progress.ExpectedEndTimeUnix
	case types.TxSuccess:
		view.TxHash = v.TxHash
		view.StartTimeUnix = v.Progress.StartTimeUnix
		view.ExpectedEndTimeUnix = v.Progress.ExpectedEndTimeUnix
	case types.TxFailure:
		view.TxHash = v.TxHash
		view.StartTimeUnix = v.Progress.StartTimeUnix
		view.ExpectedEndTimeUnix = v.Progress.ExpectedEndTimeUnix
	}
	return view
}

func stateResponse(snap store.State) StateResponse {
	resp := StateResponse{
		ChainID:             snap.ChainID,
		Account:             AccountView{State: string(snap.Account.State)},
		AmountIn:            bigString(snap.AmountIn),
		AmountOut:           bigString(snap.AmountOut),
		IsIn:                snap.IsIn,
		QuoteState:          string(snap.QuoteState),
		OrderState:          txStateView(snap.OrderState),
		ApproveState:        txStateView(snap.ApproveState),
		Step:                string(snap.Step),
		StepWithApprove:     snap.StepWithApprove,
		ApprovalGasEstimate: bigString(snap.ApprovalGasEstimate),
		BaseCurrency:        string(snap.BaseCurrency),
		ErrorMessage:        snap.ErrorMessage,
		ErrorHidden:         snap.ErrorHidden,
	}

	if snap.Account.State == types.AccountReady {
		resp.Account.Address = snap.Account.Address.Hex()
		resp.Account.NativeBalance = bigString(snap.Account.NativeBalance)
	}
	if snap.TokenIn != nil {
		v := tokenView(*snap.TokenIn)
		resp.TokenIn = &v
	}
	if snap.TokenOut != nil {
		v := tokenView(*snap.TokenOut)
		resp.TokenOut = &v
	}
	if snap.TokenBalanceIn != nil {
		resp.TokenBalanceIn = balanceView(*snap.TokenBalanceIn)
	}
	if snap.TokenBalanceOut != nil {
		resp.TokenBalanceOut = balanceView(*snap.TokenBalanceOut)
	}
	if snap.LatestQuote != nil {
		q := snap.LatestQuote
		resp.Quote = &QuoteView{
			Price:           q.Price.String(),
			GuaranteedPrice: q.GuaranteedPrice.String(),
			SellAmount:      q.SellAmount.String(),
			BuyAmount:       q.BuyAmount.String(),
			Value:           q.Value.String(),
			GasPrice:        q.GasPrice.String(),
			AllowanceTarget: q.AllowanceTarget.Hex(),
			To:              q.To.Hex(),
		}
	}
	return resp
}

func balanceView(b types.TokenBalance) *TokenBalanceView {
	return &TokenBalanceView{
		Token:      tokenView(b.Token),
		Balance:    b.Balance.String(),
		IsUnlocked: b.IsUnlocked,
	}
}

// ==================== Helper Functions ====================

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		fmt.Printf("Failed to encode JSON response: %v\n", err)
	}
}

// respondError sends an error response
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errorMsg := message
	if err != nil {
		errorMsg = fmt.Sprintf("%s: %v", message, err)
	}
	respondJSON(w, statusCode, ErrorResponse{Error: message, Message: errorMsg})
}
