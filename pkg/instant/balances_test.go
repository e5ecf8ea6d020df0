package instant_test

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"instant-swap/pkg/instant"
	"instant-swap/pkg/multicall"
	"instant-swap/pkg/store"
	"instant-swap/pkg/types"
)

const tryAggregateABI = `[{"inputs":[{"components":[{"name":"target","type":"address"},{"name":"callData","type":"bytes"}],"name":"calls","type":"tuple[]"},{"name":"requireSuccess","type":"bool"}],"name":"tryAggregate","outputs":[{"components":[{"name":"success","type":"bool"},{"name":"returnData","type":"bytes"}],"name":"returnData","type":"tuple[]"}],"stateMutability":"payable","type":"function"}]`

type callResult struct {
	Success    bool   `abi:"success"`
	ReturnData []byte `abi:"returnData"`
}

type scriptedCaller struct {
	results []callResult
	calls   int
}

func (c *scriptedCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.calls++
	parsed, err := abi.JSON(strings.NewReader(tryAggregateABI))
	if err != nil {
		return nil, err
	}
	return parsed.Methods["tryAggregate"].Outputs.Pack(c.results)
}

func uint256Word(v int64) []byte {
	return common.LeftPadBytes(big.NewInt(v).Bytes(), 32)
}

type fakeBalanceReader struct {
	balance *big.Int
}

func (f *fakeBalanceReader) NativeBalance(context.Context, common.Address) (*big.Int, error) {
	return f.balance, nil
}

func newBalanceFetcher(st *store.Store, reader instant.BalanceReader, caller multicall.ContractCaller) *instant.BalanceFetcher {
	logger := zap.NewNop()
	batcher := multicall.NewBatcher(caller, common.Address{}, logger)
	spender := common.HexToAddress("0xDef1C0ded9bec7F1a1670819833240f027b25EfF")
	return instant.NewBalanceFetcher(st, reader, batcher, spender, instant.NewZapReporter(logger), logger)
}

func TestBalanceFetcherNativeSlot(t *testing.T) {
	st := store.New(1, nil, zap.NewNop())
	st.SetAccountReady(testAccount)
	st.SelectTokenIn(nativeEth())
	st.SelectTokenOut(dai)

	caller := &scriptedCaller{results: []callResult{
		{Success: true, ReturnData: uint256Word(777)}, // dai balance
		{Success: true, ReturnData: uint256Word(0)},   // dai allowance
	}}
	f := newBalanceFetcher(st, &fakeBalanceReader{balance: big.NewInt(42)}, caller)

	f.Refresh(context.Background())

	snap := st.Snapshot()
	// The native slot comes from the account balance, no contract reads, and
	// is always unlocked.
	require.NotNil(t, snap.TokenBalanceIn)
	require.Equal(t, big.NewInt(42), snap.TokenBalanceIn.Balance)
	require.True(t, snap.TokenBalanceIn.IsUnlocked)
	require.Equal(t, big.NewInt(42), snap.Account.NativeBalance)

	// The ERC-20 slot comes from the batch; zero allowance means locked.
	require.NotNil(t, snap.TokenBalanceOut)
	require.Equal(t, big.NewInt(777), snap.TokenBalanceOut.Balance)
	require.False(t, snap.TokenBalanceOut.IsUnlocked)

	require.Equal(t, 1, caller.calls)
}

func TestBalanceFetcherPositiveAllowanceUnlocks(t *testing.T) {
	st := store.New(1, nil, zap.NewNop())
	st.SetAccountReady(testAccount)
	st.SelectTokenIn(weth)
	st.SelectTokenOut(dai)

	caller := &scriptedCaller{results: []callResult{
		{Success: true, ReturnData: uint256Word(10)}, // weth balance
		{Success: true, ReturnData: uint256Word(1)},  // weth allowance
		{Success: true, ReturnData: uint256Word(20)}, // dai balance
		{Success: true, ReturnData: uint256Word(0)},  // dai allowance
	}}
	f := newBalanceFetcher(st, &fakeBalanceReader{balance: big.NewInt(0)}, caller)

	f.Refresh(context.Background())

	snap := st.Snapshot()
	require.True(t, snap.TokenBalanceIn.IsUnlocked)
	require.False(t, snap.TokenBalanceOut.IsUnlocked)
}

func TestBalanceFetcherKeepsSlotOnFailedRead(t *testing.T) {
	st := store.New(1, nil, zap.NewNop())
	st.SetAccountReady(testAccount)
	st.SelectTokenIn(weth)
	st.SetTokenBalanceIn(types.TokenBalance{Token: weth, Balance: big.NewInt(555), IsUnlocked: true})

	caller := &scriptedCaller{results: []callResult{
		{Success: false}, // weth balance reverted
		{Success: false}, // weth allowance reverted
	}}
	f := newBalanceFetcher(st, &fakeBalanceReader{balance: big.NewInt(0)}, caller)

	f.Refresh(context.Background())

	// A failed read must not flash a zero balance over a known one.
	snap := st.Snapshot()
	require.Equal(t, big.NewInt(555), snap.TokenBalanceIn.Balance)
	require.True(t, snap.TokenBalanceIn.IsUnlocked)
}

func TestBalanceFetcherRequiresReadyAccount(t *testing.T) {
	st := store.New(1, nil, zap.NewNop())
	st.SelectTokenIn(weth)

	caller := &scriptedCaller{}
	f := newBalanceFetcher(st, &fakeBalanceReader{balance: big.NewInt(1)}, caller)

	f.Refresh(context.Background())

	require.Zero(t, caller.calls)
	require.Nil(t, st.Snapshot().TokenBalanceIn)
}
