package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"instant-swap/config"
	"instant-swap/pkg/client"
	"instant-swap/pkg/history"
	"instant-swap/pkg/instant"
	"instant-swap/pkg/types"
	"instant-swap/pkg/wallet"
)

func buildLogger(verbose bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		logger, err = cfg.Build()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// buildWidget assembles a widget from the loaded configuration: quote client,
// token universe, and the wallet provider doubling as the multicall caller.
func buildWidget(ctx context.Context, cfg *config.Config, provider *wallet.EthProvider, logger *zap.Logger) (*instant.Widget, error) {
	quoteClient := client.NewZeroExClient(cfg.QuoteBaseURL)

	var affiliate *types.AffiliateInfo
	if cfg.FeeRecipient != "" {
		affiliate = &types.AffiliateInfo{
			FeeRecipient:  cfg.FeeRecipient,
			FeePercentage: cfg.FeePercentage,
		}
	}

	hist, err := history.NewStore("")
	if err != nil {
		logger.Warn("swap history unavailable", zap.Error(err))
		hist = nil
	}

	var widget *instant.Widget
	widget = instant.New(instant.Config{
		ChainID:           cfg.ChainID,
		Affiliate:         affiliate,
		AllowanceTarget:   common.HexToAddress(cfg.AllowanceTarget),
		Debounce:          cfg.Debounce,
		HeartbeatInterval: cfg.HeartbeatInterval,
		OnSuccess: func(txHash string) {
			if hist == nil {
				return
			}
			if err := hist.Append(historyEntry(widget, cfg.ChainID, txHash)); err != nil {
				logger.Warn("failed to record swap history", zap.Error(err))
			}
		},
	}, provider, quoteClient, provider, logger)

	tokens, err := loadTokens(ctx, cfg)
	if err != nil {
		return nil, err
	}
	widget.SetAvailableTokens(tokens)
	return widget, nil
}

// historyEntry builds a history record from the widget snapshot at
// confirmation time.
func historyEntry(widget *instant.Widget, chainID int64, txHash string) history.Entry {
	entry := history.Entry{TxHash: txHash, ChainID: chainID}
	snap := widget.State()
	if snap.TokenIn != nil {
		entry.SellSymbol = snap.TokenIn.Symbol
	}
	if snap.TokenOut != nil {
		entry.BuySymbol = snap.TokenOut.Symbol
	}
	if q := snap.LatestQuote; q != nil {
		entry.SellAmount = q.SellAmount.String()
		entry.BuyAmount = q.BuyAmount.String()
		entry.Price = q.Price.String()
	}
	return entry
}

// loadTokens fetches the token list and prepends the native coin, which token
// lists never carry.
func loadTokens(ctx context.Context, cfg *config.Config) ([]types.Token, error) {
	list, err := client.FetchTokenList(ctx, cfg.TokenListURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load token list: %w", err)
	}

	tokens := []types.Token{nativeToken(cfg.ChainID)}
	for _, t := range list.Tokens {
		if t.ChainID == cfg.ChainID {
			tokens = append(tokens, t)
		}
	}
	return tokens, nil
}

func nativeToken(chainID int64) types.Token {
	return types.Token{
		ChainID:  chainID,
		Address:  types.NativeTokenAddress.Hex(),
		Name:     "Ether",
		Symbol:   "ETH",
		Decimals: 18,
	}
}

// resolveToken finds a token by symbol in the widget's universe: exact match
// first, then prefix match.
func resolveToken(widget *instant.Widget, chainID int64, symbol string) (types.Token, error) {
	tokens := widget.State().AvailableTokens

	for _, t := range tokens {
		if strings.EqualFold(t.Symbol, symbol) && t.ChainID == chainID {
			return t, nil
		}
	}
	for _, t := range tokens {
		if strings.HasPrefix(strings.ToUpper(t.Symbol), strings.ToUpper(symbol)) && t.ChainID == chainID {
			return t, nil
		}
	}
	return types.Token{}, fmt.Errorf("unknown token: %s (try: instant-swap list-tokens)", symbol)
}
