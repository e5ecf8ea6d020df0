package multicall_test

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"instant-swap/pkg/multicall"
)

const tryAggregateABI = `[{"inputs":[{"components":[{"name":"target","type":"address"},{"name":"callData","type":"bytes"}],"name":"calls","type":"tuple[]"},{"name":"requireSuccess","type":"bool"}],"name":"tryAggregate","outputs":[{"components":[{"name":"success","type":"bool"},{"name":"returnData","type":"bytes"}],"name":"returnData","type":"tuple[]"}],"stateMutability":"payable","type":"function"}]`

type callResult struct {
	Success    bool   `abi:"success"`
	ReturnData []byte `abi:"returnData"`
}

// scriptedCaller answers every CallContract with a canned tryAggregate result
// set, or an error.
type scriptedCaller struct {
	results []callResult
	err     error
	calls   int
}

func (c *scriptedCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	parsed, err := abi.JSON(strings.NewReader(tryAggregateABI))
	if err != nil {
		return nil, err
	}
	return parsed.Methods["tryAggregate"].Outputs.Pack(c.results)
}

func uint256Word(v int64) []byte {
	return common.LeftPadBytes(big.NewInt(v).Bytes(), 32)
}

var (
	owner   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	spender = common.HexToAddress("0x2222222222222222222222222222222222222222")
	tokenA  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	tokenB  = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
)

func TestBalancesAndAllowances(t *testing.T) {
	caller := &scriptedCaller{results: []callResult{
		{Success: true, ReturnData: uint256Word(100)}, // tokenA balance
		{Success: true, ReturnData: uint256Word(5)},   // tokenA allowance
		{Success: true, ReturnData: uint256Word(7)},   // tokenB balance
		{Success: true, ReturnData: uint256Word(0)},   // tokenB allowance
	}}
	b := multicall.NewBatcher(caller, common.Address{}, zap.NewNop())

	out, err := b.BalancesAndAllowances(context.Background(), []common.Address{tokenA, tokenB}, owner, spender)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, 1, caller.calls)

	require.Equal(t, big.NewInt(100), out[tokenA].Balance)
	require.Equal(t, big.NewInt(5), out[tokenA].Allowance)
	require.False(t, out[tokenA].Failed)

	require.Equal(t, big.NewInt(7), out[tokenB].Balance)
	// Sign, not Equal: a decoded zero and big.NewInt(0) differ internally.
	require.Zero(t, out[tokenB].Allowance.Sign())
	require.False(t, out[tokenB].Failed)
}

func TestBalancesAndAllowancesPartialFailure(t *testing.T) {
	caller := &scriptedCaller{results: []callResult{
		{Success: false},                              // tokenA balance reverted
		{Success: true, ReturnData: uint256Word(5)},   // tokenA allowance
		{Success: true, ReturnData: uint256Word(7)},   // tokenB balance
		{Success: true, ReturnData: uint256Word(9)},   // tokenB allowance
	}}
	b := multicall.NewBatcher(caller, common.Address{}, zap.NewNop())

	out, err := b.BalancesAndAllowances(context.Background(), []common.Address{tokenA, tokenB}, owner, spender)
	require.NoError(t, err)

	// One bad token degrades to zeros without sinking the batch.
	require.True(t, out[tokenA].Failed)
	require.Zero(t, out[tokenA].Balance.Sign())

	require.False(t, out[tokenB].Failed)
	require.Equal(t, big.NewInt(7), out[tokenB].Balance)
	require.Equal(t, big.NewInt(9), out[tokenB].Allowance)
}

func TestBalancesAndAllowancesEmptyTokens(t *testing.T) {
	caller := &scriptedCaller{}
	b := multicall.NewBatcher(caller, common.Address{}, zap.NewNop())

	out, err := b.BalancesAndAllowances(context.Background(), nil, owner, spender)
	require.NoError(t, err)
	require.Empty(t, out)
	require.Zero(t, caller.calls)
}

func TestBalancesAndAllowancesRPCError(t *testing.T) {
	caller := &scriptedCaller{err: errors.New("connection refused")}
	b := multicall.NewBatcher(caller, common.Address{}, zap.NewNop())

	_, err := b.BalancesAndAllowances(context.Background(), []common.Address{tokenA}, owner, spender)
	require.Error(t, err)
}

func TestBalancesAndAllowancesResultCountMismatch(t *testing.T) {
	caller := &scriptedCaller{results: []callResult{
		{Success: true, ReturnData: uint256Word(1)},
	}}
	b := multicall.NewBatcher(caller, common.Address{}, zap.NewNop())

	_, err := b.BalancesAndAllowances(context.Background(), []common.Address{tokenA}, owner, spender)
	require.Error(t, err)
}
