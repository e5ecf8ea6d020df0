package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"instant-swap/pkg/types"
)

// TokenList is the standard token-list JSON document.
type TokenList struct {
	Name   string        `json:"name"`
	Tokens []types.Token `json:"tokens"`
}

// FetchTokenList downloads and decodes a token list.
func FetchTokenList(ctx context.Context, listURL string) (*TokenList, error) {
	httpClient := &http.Client{Timeout: 15 * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build token list request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch token list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token list returned status code %d", resp.StatusCode)
	}

	var list TokenList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode token list: %w", err)
	}
	return &list, nil
}

// FindToken searches a token list by symbol, for a chain. Exact symbol match
// wins; a partial match is accepted as a fallback.
func (l *TokenList) FindToken(symbol string, chainID int64) (*types.Token, error) {
	symbol = strings.ToUpper(symbol)

	for _, token := range l.Tokens {
		if token.ChainID == chainID && strings.ToUpper(token.Symbol) == symbol {
			t := token
			return &t, nil
		}
	}
	for _, token := range l.Tokens {
		if token.ChainID == chainID && strings.Contains(strings.ToUpper(token.Symbol), symbol) {
			t := token
			return &t, nil
		}
	}
	return nil, fmt.Errorf("token '%s' not found on chain %d", symbol, chainID)
}
