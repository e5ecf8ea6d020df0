package client_test

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"instant-swap/pkg/client"
	"instant-swap/pkg/types"
)

const quoteBody = `{
	"price": "1914.25",
	"guaranteedPrice": "1895.10",
	"value": "50000000000000000",
	"gasPrice": "21000000000",
	"gas": "111000",
	"estimatedGas": "111000",
	"estimatedGasTokenRefund": "0",
	"protocolFee": "0",
	"minimumProtocolFee": "0",
	"buyAmount": "95712500000000000000",
	"sellAmount": "50000000000000000",
	"buyTokenAddress": "0x6b175474e89094c44da98b954eedeac495271d0f",
	"sellTokenAddress": "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee",
	"allowanceTarget": "0xdef1c0ded9bec7f1a1670819833240f027b25eff",
	"to": "0xdef1c0ded9bec7f1a1670819833240f027b25eff",
	"data": "0xd9627aa40000"
}`

func TestFetchQuote(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/quote", r.URL.Path)
		gotQuery = map[string]string{}
		for k, v := range r.URL.Query() {
			gotQuery[k] = v[0]
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(quoteBody))
	}))
	defer server.Close()

	c := client.NewZeroExClient(server.URL)
	quote, err := c.FetchQuote(context.Background(), client.QuoteRequest{
		SellToken:      "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE",
		BuyToken:       "0x6B175474E89094C44Da98b954EedeAC495271d0F",
		SellAmount:     big.NewInt(50000000000000000),
		TakerAddress:   "0x1111111111111111111111111111111111111111",
		SkipValidation: true,
		Affiliate:      &types.AffiliateInfo{FeeRecipient: "0x2222222222222222222222222222222222222222", FeePercentage: 0.0075},
	})
	require.NoError(t, err)

	// Request parameters went out as the API expects them.
	require.Equal(t, "50000000000000000", gotQuery["sellAmount"])
	require.Equal(t, "0x1111111111111111111111111111111111111111", gotQuery["takerAddress"])
	require.Equal(t, "true", gotQuery["skipValidation"])
	require.Equal(t, "0.0075", gotQuery["buyTokenPercentageFee"])
	require.Equal(t, "0x2222222222222222222222222222222222222222", gotQuery["feeRecipient"])

	// Numeric strings became arbitrary-precision values, unrounded.
	require.Equal(t, "1914.25", quote.Price.String())
	require.Equal(t, "1895.1", quote.GuaranteedPrice.String())
	require.Equal(t, "95712500000000000000", quote.BuyAmount.String())
	require.Equal(t, "50000000000000000", quote.SellAmount.String())
	require.Equal(t, big.NewInt(21000000000), quote.GasPrice)
	require.Equal(t, common.HexToAddress("0xdef1c0ded9bec7f1a1670819833240f027b25eff"), quote.AllowanceTarget)
	require.Equal(t, []byte{0xd9, 0x62, 0x7a, 0xa4, 0x00, 0x00}, quote.Data)
}

func TestFetchQuoteAPIError(t *testing.T) {
	t.Run("reason from body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"reason": "INSUFFICIENT_ASSET_LIQUIDITY"}`))
		}))
		defer server.Close()

		c := client.NewZeroExClient(server.URL)
		_, err := c.FetchQuote(context.Background(), client.QuoteRequest{
			SellToken: "WETH", BuyToken: "DAI", SellAmount: big.NewInt(1),
		})

		var quoteErr *types.QuoteError
		require.ErrorAs(t, err, &quoteErr)
		require.Equal(t, "INSUFFICIENT_ASSET_LIQUIDITY", quoteErr.Reason)
	})

	t.Run("opaque non-200", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`boom`))
		}))
		defer server.Close()

		c := client.NewZeroExClient(server.URL)
		_, err := c.FetchQuote(context.Background(), client.QuoteRequest{
			SellToken: "WETH", BuyToken: "DAI", SellAmount: big.NewInt(1),
		})

		var quoteErr *types.QuoteError
		require.ErrorAs(t, err, &quoteErr)
		require.Empty(t, quoteErr.Reason)
	})
}

func TestFetchQuoteRejectsMalformedNumbers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"price": "1.0", "guaranteedPrice": "1.0", "value": "not-a-number",
			"gasPrice": "1", "gas": "1", "estimatedGas": "1", "estimatedGasTokenRefund": "0",
			"protocolFee": "0", "minimumProtocolFee": "0", "buyAmount": "1", "sellAmount": "1",
			"data": "0x00"}`))
	}))
	defer server.Close()

	c := client.NewZeroExClient(server.URL)
	_, err := c.FetchQuote(context.Background(), client.QuoteRequest{
		SellToken: "WETH", BuyToken: "DAI", SellAmount: big.NewInt(1),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "value")
}

func TestTokenListFindToken(t *testing.T) {
	list := &client.TokenList{Tokens: []types.Token{
		{ChainID: 1, Symbol: "USDC", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6},
		{ChainID: 1, Symbol: "USDT", Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Decimals: 6},
		{ChainID: 137, Symbol: "USDC", Address: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", Decimals: 6},
	}}

	t.Run("exact match on chain", func(t *testing.T) {
		token, err := list.FindToken("usdc", 1)
		require.NoError(t, err)
		require.Equal(t, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", token.Address)
	})

	t.Run("partial match fallback", func(t *testing.T) {
		token, err := list.FindToken("USDT", 1)
		require.NoError(t, err)
		require.Equal(t, "USDT", token.Symbol)
	})

	t.Run("wrong chain misses", func(t *testing.T) {
		_, err := list.FindToken("USDC", 10)
		require.Error(t, err)
	})
}
