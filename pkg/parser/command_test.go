package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"instant-swap/pkg/parser"
	"instant-swap/pkg/types"
)

func TestParseSwapCommand(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		want  *types.SwapRequest
		fails bool
	}{
		{
			name: "basic",
			in:   "1 ETH to USDC",
			want: &types.SwapRequest{Amount: "1", SellToken: "ETH", BuyToken: "USDC"},
		},
		{
			name: "decimal amount with swap prefix",
			in:   "swap 1.5 WETH to DAI",
			want: &types.SwapRequest{Amount: "1.5", SellToken: "WETH", BuyToken: "DAI"},
		},
		{
			name: "lowercase",
			in:   "100 usdc to wbtc",
			want: &types.SwapRequest{Amount: "100", SellToken: "USDC", BuyToken: "WBTC"},
		},
		{name: "missing to", in: "1 ETH USDC", fails: true},
		{name: "missing amount", in: "ETH to USDC", fails: true},
		{name: "trailing dot amount", in: "1. ETH to USDC", fails: true},
		{name: "same token both sides", in: "1 eth to ETH", fails: true},
		{name: "empty", in: "", fails: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parser.ParseSwapCommand(tc.in)
			if tc.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}
