// Package parser reads the CLI's swap phrase.
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"instant-swap/pkg/types"
)

// Accepted phrase: "<amount> <SELL> to <BUY>", case-insensitive, with an
// optional leading "swap". The amount may carry a fractional part; token
// symbols are alphanumeric.
var swapPhrase = regexp.MustCompile(`^(?:SWAP\s+)?(\d+(?:\.\d+)?)\s+([A-Z0-9]+)\s+TO\s+([A-Z0-9]+)$`)

// ParseSwapCommand turns phrases like "swap 1.5 WETH to DAI" or
// "100 usdc to wbtc" into a request with upper-cased symbols. A phrase
// selling a token to itself is rejected here, before any network work.
func ParseSwapCommand(command string) (*types.SwapRequest, error) {
	matches := swapPhrase.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(command)))
	if matches == nil {
		return nil, fmt.Errorf("could not read %q. Expected: 'swap <amount> <token> to <token>' (e.g., 'swap 1 ETH to USDC')", command)
	}

	req := &types.SwapRequest{
		Amount:    matches[1],
		SellToken: matches[2],
		BuyToken:  matches[3],
	}
	if req.SellToken == req.BuyToken {
		return nil, fmt.Errorf("sell and buy tokens must differ")
	}
	return req, nil
}
