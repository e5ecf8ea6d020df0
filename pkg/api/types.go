package api

// ErrorResponse is the uniform error envelope
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse reports service health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// SelectTokenRequest selects a token by symbol for one side
type SelectTokenRequest struct {
	Symbol string `json:"symbol"`
}

// EditAmountRequest records a typed amount. Amount is a decimal string in
// token units ("1.5"); IsIn says which side the user typed into.
type EditAmountRequest struct {
	Amount string `json:"amount"`
	IsIn   bool   `json:"is_in"`
}

// TokenView is the JSON shape of a token
type TokenView struct {
	ChainID  int64  `json:"chain_id"`
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int32  `json:"decimals"`
}

// TokenBalanceView is the JSON shape of one slot's balance
type TokenBalanceView struct {
	Token      TokenView `json:"token"`
	Balance    string    `json:"balance"`
	IsUnlocked bool      `json:"is_unlocked"`
}

// AccountView is the JSON shape of the connected account
type AccountView struct {
	State         string  `json:"state"`
	Address       string  `json:"address,omitempty"`
	NativeBalance *string `json:"native_balance,omitempty"`
}

// QuoteView is the JSON shape of the held quote. On-chain amounts are
// base-unit decimal strings.
type QuoteView struct {
	Price           string `json:"price"`
	GuaranteedPrice string `json:"guaranteed_price"`
	SellAmount      string `json:"sell_amount"`
	BuyAmount       string `json:"buy_amount"`
	Value           string `json:"value"`
	GasPrice        string `json:"gas_price"`
	AllowanceTarget string `json:"allowance_target"`
	To              string `json:"to"`
}

// TxStateView is the JSON shape of one transaction machine slot
type TxStateView struct {
	Phase               string `json:"phase"`
	TxHash              string `json:"tx_hash,omitempty"`
	StartTimeUnix       int64  `json:"start_time_unix,omitempty"`
	ExpectedEndTimeUnix int64  `json:"expected_end_time_unix,omitempty"`
}

// StateResponse is the full widget snapshot
type StateResponse struct {
	ChainID             int64             `json:"chain_id"`
	Account             AccountView       `json:"account"`
	TokenIn             *TokenView        `json:"token_in,omitempty"`
	TokenOut            *TokenView        `json:"token_out,omitempty"`
	TokenBalanceIn      *TokenBalanceView `json:"token_balance_in,omitempty"`
	TokenBalanceOut     *TokenBalanceView `json:"token_balance_out,omitempty"`
	AmountIn            *string           `json:"amount_in,omitempty"`
	AmountOut           *string           `json:"amount_out,omitempty"`
	IsIn                bool              `json:"is_in"`
	QuoteState          string            `json:"quote_state"`
	Quote               *QuoteView        `json:"quote,omitempty"`
	OrderState          TxStateView       `json:"order_state"`
	ApproveState        TxStateView       `json:"approve_state"`
	Step                string            `json:"step"`
	StepWithApprove     bool              `json:"step_with_approve"`
	ApprovalGasEstimate *string           `json:"approval_gas_estimate,omitempty"`
	BaseCurrency        string            `json:"base_currency"`
	ErrorMessage        string            `json:"error_message,omitempty"`
	ErrorHidden         bool              `json:"error_hidden"`
}

// TokensResponse lists the selectable tokens
type TokensResponse struct {
	Tokens []TokenView `json:"tokens"`
}
