package types

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// NativeTokenAddress is the sentinel address the quote API uses for the chain's
// native coin. Native coins have no ERC-20 call surface: no balanceOf, no allowance.
var NativeTokenAddress = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// Token describes an ERC-20 token (or the native coin via NativeTokenAddress).
type Token struct {
	ChainID  int64  `json:"chainId"`
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
	LogoURI  string `json:"logoURI,omitempty"`
}

// IsNative returns true if the token is the chain's native coin.
func (t Token) IsNative() bool {
	return strings.EqualFold(t.Address, NativeTokenAddress.Hex())
}

// Equal reports whether two tokens refer to the same asset. Addresses are
// compared case-insensitively since checksummed and lowercase forms coexist
// in token lists.
func (t Token) Equal(other Token) bool {
	return t.ChainID == other.ChainID && strings.EqualFold(t.Address, other.Address)
}

// UnitAmount converts a base-unit amount to a human-readable decimal amount.
func (t Token) UnitAmount(baseUnits *big.Int) decimal.Decimal {
	if baseUnits == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(baseUnits, -t.Decimals)
}

// BaseUnitAmount converts a human-readable decimal amount to base units,
// truncating anything below the token's precision.
func (t Token) BaseUnitAmount(unitAmount decimal.Decimal) *big.Int {
	return unitAmount.Shift(t.Decimals).Truncate(0).BigInt()
}

// TokenBalance is the on-chain truth for one token slot. It is always replaced
// wholesale, never patched field by field.
type TokenBalance struct {
	Token      Token
	Balance    *big.Int
	IsUnlocked bool
}

// AffiliateInfo is passed through to quote requests unchanged.
type AffiliateInfo struct {
	FeeRecipient  string
	FeePercentage float64
}

// BaseCurrency is the display currency preference.
type BaseCurrency string

const (
	BaseCurrencyUSD BaseCurrency = "USD"
	BaseCurrencyETH BaseCurrency = "ETH"
)

// AccountState tracks the wallet connection lifecycle.
type AccountState string

const (
	AccountNone    AccountState = "NONE"
	AccountLoading AccountState = "LOADING"
	AccountLocked  AccountState = "LOCKED"
	AccountReady   AccountState = "READY"
)

// Account is the connected wallet account. Address and NativeBalance are only
// meaningful when State is AccountReady; NativeBalance may be nil until the
// first balance fetch completes.
type Account struct {
	State         AccountState
	Address       common.Address
	NativeBalance *big.Int
}

// SwapQuote is the normalized response of the quote API. All integer
// on-chain amounts are big.Ints parsed with zero precision loss; the two
// price fields are arbitrary-precision decimals.
type SwapQuote struct {
	Price              decimal.Decimal
	GuaranteedPrice    decimal.Decimal
	Value              *big.Int
	GasPrice           *big.Int
	Gas                *big.Int
	EstimatedGas       *big.Int
	EstimatedGasRefund *big.Int
	ProtocolFee        *big.Int
	MinimumProtocolFee *big.Int
	BuyAmount          *big.Int
	SellAmount         *big.Int
	BuyTokenAddress    string
	SellTokenAddress   string
	AllowanceTarget    common.Address
	To                 common.Address
	Data               []byte
}

// TxPayload is a raw transaction ready to hand to the wallet collaborator.
type TxPayload struct {
	To       common.Address
	Data     []byte
	Value    *big.Int
	GasPrice *big.Int
	Gas      uint64
}

// Payload extracts the quote's transaction for broadcast, verbatim.
func (q *SwapQuote) Payload() TxPayload {
	return TxPayload{
		To:       q.To,
		Data:     q.Data,
		Value:    q.Value,
		GasPrice: q.GasPrice,
	}
}
