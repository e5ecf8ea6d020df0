package history_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"instant-swap/pkg/history"
)

func TestHistoryStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	s, err := history.NewStore(path)
	require.NoError(t, err)
	require.Zero(t, s.Count())

	first := history.Entry{
		TxHash:     "0xaaa",
		ChainID:    1,
		SellSymbol: "WETH",
		BuySymbol:  "DAI",
		SellAmount: "50000000000000000",
		BuyAmount:  "95712500000000000000",
		Price:      "1914.25",
		Timestamp:  time.Now().Add(-time.Hour),
	}
	require.NoError(t, s.Append(first))
	require.NoError(t, s.Append(history.Entry{TxHash: "0xbbb", ChainID: 1, SellSymbol: "DAI", BuySymbol: "USDC"}))

	t.Run("list is newest first", func(t *testing.T) {
		entries := s.List()
		require.Len(t, entries, 2)
		require.Equal(t, "0xbbb", entries[0].TxHash)
		require.Equal(t, "0xaaa", entries[1].TxHash)
	})

	t.Run("entries survive reload", func(t *testing.T) {
		reloaded, err := history.NewStore(path)
		require.NoError(t, err)
		require.Equal(t, 2, reloaded.Count())

		entries := reloaded.List()
		require.Equal(t, "WETH", entries[1].SellSymbol)
		require.Equal(t, "95712500000000000000", entries[1].BuyAmount)
	})

	t.Run("missing timestamp is filled", func(t *testing.T) {
		require.NoError(t, s.Append(history.Entry{TxHash: "0xccc"}))
		require.False(t, s.List()[0].Timestamp.IsZero())
	})
}
