package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"instant-swap/pkg/types"
)

// QuoteRequest is one request against the quote API. Amount is always an
// integer base-unit quantity of the sell token.
type QuoteRequest struct {
	SellToken      string
	BuyToken       string
	SellAmount     *big.Int
	TakerAddress   string
	SkipValidation bool
	Affiliate      *types.AffiliateInfo
}

// ZeroExClient wraps the swap quote REST API.
type ZeroExClient struct {
	baseURL string
	http    *http.Client
}

// NewZeroExClient creates a quote API client for the given base URL
// (e.g. "https://api.0x.org/swap/v1").
func NewZeroExClient(baseURL string) *ZeroExClient {
	return &ZeroExClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// quoteResponse is the wire shape: every numeric field arrives as a string.
type quoteResponse struct {
	Price                   string `json:"price"`
	GuaranteedPrice         string `json:"guaranteedPrice"`
	Value                   string `json:"value"`
	GasPrice                string `json:"gasPrice"`
	Gas                     string `json:"gas"`
	EstimatedGas            string `json:"estimatedGas"`
	EstimatedGasTokenRefund string `json:"estimatedGasTokenRefund"`
	ProtocolFee             string `json:"protocolFee"`
	MinimumProtocolFee      string `json:"minimumProtocolFee"`
	BuyAmount               string `json:"buyAmount"`
	SellAmount              string `json:"sellAmount"`
	BuyTokenAddress         string `json:"buyTokenAddress"`
	SellTokenAddress        string `json:"sellTokenAddress"`
	AllowanceTarget         string `json:"allowanceTarget"`
	To                      string `json:"to"`
	Data                    string `json:"data"`
}

type errorResponse struct {
	Reason string `json:"reason"`
}

// FetchQuote issues GET /quote and normalizes the response. Failures never
// panic past this boundary; they come back as *types.QuoteError.
func (c *ZeroExClient) FetchQuote(ctx context.Context, req QuoteRequest) (*types.SwapQuote, error) {
	endpoint := fmt.Sprintf("%s/quote", c.baseURL)

	params := url.Values{}
	params.Set("sellToken", req.SellToken)
	params.Set("buyToken", req.BuyToken)
	params.Set("sellAmount", req.SellAmount.String())
	if req.TakerAddress != "" {
		params.Set("takerAddress", req.TakerAddress)
	}
	if req.SkipValidation {
		params.Set("skipValidation", "true")
	}
	if req.Affiliate != nil {
		params.Set("buyTokenPercentageFee", strconv.FormatFloat(req.Affiliate.FeePercentage, 'f', -1, 64))
		params.Set("feeRecipient", req.Affiliate.FeeRecipient)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &types.QuoteError{Err: fmt.Errorf("failed to build quote request: %w", err)}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &types.QuoteError{Err: fmt.Errorf("quote request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.QuoteError{Err: fmt.Errorf("failed to read quote response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Reason == "" {
			return nil, &types.QuoteError{Err: fmt.Errorf("API returned status code %d", resp.StatusCode)}
		}
		return nil, &types.QuoteError{Reason: apiErr.Reason}
	}

	var raw quoteResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &types.QuoteError{Err: fmt.Errorf("failed to decode quote response: %w", err)}
	}

	quote, err := normalizeQuote(&raw)
	if err != nil {
		return nil, &types.QuoteError{Err: err}
	}
	return quote, nil
}

// normalizeQuote converts the wire strings into arbitrary-precision values.
// These are on-chain amounts; any precision loss here would be a fund-safety
// bug, so parsing is strict.
func normalizeQuote(raw *quoteResponse) (*types.SwapQuote, error) {
	price, err := decimal.NewFromString(raw.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", raw.Price, err)
	}
	guaranteedPrice, err := decimal.NewFromString(raw.GuaranteedPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid guaranteedPrice %q: %w", raw.GuaranteedPrice, err)
	}

	ints := map[string]string{
		"value":                   raw.Value,
		"gasPrice":                raw.GasPrice,
		"gas":                     raw.Gas,
		"estimatedGas":            raw.EstimatedGas,
		"estimatedGasTokenRefund": raw.EstimatedGasTokenRefund,
		"protocolFee":             raw.ProtocolFee,
		"minimumProtocolFee":      raw.MinimumProtocolFee,
		"buyAmount":               raw.BuyAmount,
		"sellAmount":              raw.SellAmount,
	}
	parsed := make(map[string]*big.Int, len(ints))
	for field, s := range ints {
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("invalid %s: %q", field, s)
		}
		parsed[field] = n
	}

	data, err := hexutil.Decode(raw.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction data: %w", err)
	}

	return &types.SwapQuote{
		Price:              price,
		GuaranteedPrice:    guaranteedPrice,
		Value:              parsed["value"],
		GasPrice:           parsed["gasPrice"],
		Gas:                parsed["gas"],
		EstimatedGas:       parsed["estimatedGas"],
		EstimatedGasRefund: parsed["estimatedGasTokenRefund"],
		ProtocolFee:        parsed["protocolFee"],
		MinimumProtocolFee: parsed["minimumProtocolFee"],
		BuyAmount:          parsed["buyAmount"],
		SellAmount:         parsed["sellAmount"],
		BuyTokenAddress:    raw.BuyTokenAddress,
		SellTokenAddress:   raw.SellTokenAddress,
		AllowanceTarget:    common.HexToAddress(raw.AllowanceTarget),
		To:                 common.HexToAddress(raw.To),
		Data:               data,
	}, nil
}
