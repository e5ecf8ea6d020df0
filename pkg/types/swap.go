package types

// SwapRequest represents a user's swap command
type SwapRequest struct {
	Amount    string
	SellToken string
	BuyToken  string
}
