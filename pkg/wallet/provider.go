package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"instant-swap/pkg/types"
)

// Provider is the wallet/signing collaborator. Everything the widget needs
// from the underlying wallet infrastructure goes through this interface so
// tests can substitute a fake.
type Provider interface {
	// ListAvailableAddresses returns the unlocked account addresses, primary first.
	ListAvailableAddresses(ctx context.Context) ([]common.Address, error)
	// NativeBalance reads the native-coin balance of an address in wei.
	NativeBalance(ctx context.Context, address common.Address) (*big.Int, error)
	// ChainID returns the connected chain's id.
	ChainID(ctx context.Context) (*big.Int, error)
	// SendTransaction signs and broadcasts a payload, returning the tx hash.
	SendTransaction(ctx context.Context, payload types.TxPayload) (common.Hash, error)
	// AwaitConfirmation blocks until the transaction is mined and reports
	// whether it succeeded (true) or reverted (false).
	AwaitConfirmation(ctx context.Context, txHash common.Hash) (bool, error)
	// EstimateGas simulates a payload and returns the gas it would consume.
	EstimateGas(ctx context.Context, from common.Address, payload types.TxPayload) (uint64, error)
	// SuggestGasPrice returns the node's current gas price suggestion in wei.
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

const receiptPollInterval = 4 * time.Second

// EthProvider is a Provider backed by an ethclient connection and a local
// signing key.
type EthProvider struct {
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
}

// NewEthProvider connects to an RPC endpoint and derives the account from the
// given hex-encoded private key.
func NewEthProvider(rpcURL, privateKeyHex string, chainID int64) (*EthProvider, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("RPC URL not configured")
	}
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to derive public key")
	}

	return &EthProvider{
		client:     client,
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(*publicKey),
		chainID:    big.NewInt(chainID),
	}, nil
}

func (p *EthProvider) ListAvailableAddresses(_ context.Context) ([]common.Address, error) {
	return []common.Address{p.address}, nil
}

func (p *EthProvider) NativeBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	balance, err := p.client.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get native balance: %w", err)
	}
	return balance, nil
}

// CallContract performs a read-only contract call. Satisfies the multicall
// batcher's caller interface.
func (p *EthProvider) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return p.client.CallContract(ctx, msg, blockNumber)
}

func (p *EthProvider) ChainID(_ context.Context) (*big.Int, error) {
	return new(big.Int).Set(p.chainID), nil
}

func (p *EthProvider) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	gasPrice, err := p.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return gasPrice, nil
}

func (p *EthProvider) EstimateGas(ctx context.Context, from common.Address, payload types.TxPayload) (uint64, error) {
	to := payload.To
	msg := ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: payload.Value,
		Data:  payload.Data,
	}
	gas, err := p.client.EstimateGas(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("failed to estimate gas: %w", err)
	}
	return gas, nil
}

// SendTransaction signs the payload with the local key and broadcasts it.
// Missing gas parameters are filled from the node.
func (p *EthProvider) SendTransaction(ctx context.Context, payload types.TxPayload) (common.Hash, error) {
	nonce, err := p.client.PendingNonceAt(ctx, p.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice := payload.GasPrice
	if gasPrice == nil {
		gasPrice, err = p.SuggestGasPrice(ctx)
		if err != nil {
			return common.Hash{}, err
		}
	}

	gasLimit := payload.Gas
	if gasLimit == 0 {
		estimated, err := p.EstimateGas(ctx, p.address, payload)
		if err != nil {
			return common.Hash{}, err
		}
		gasLimit = estimated * 120 / 100
	}

	value := payload.Value
	if value == nil {
		value = big.NewInt(0)
	}

	tx := ethtypes.NewTransaction(nonce, payload.To, value, gasLimit, gasPrice, payload.Data)

	signedTx, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(p.chainID), p.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := p.client.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx.Hash(), nil
}

// AwaitConfirmation polls for the receipt until the transaction is mined.
func (p *EthProvider) AwaitConfirmation(ctx context.Context, txHash common.Hash) (bool, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := p.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt.Status == ethtypes.ReceiptStatusSuccessful, nil
		}
		if err != ethereum.NotFound {
			return false, fmt.Errorf("failed to get transaction receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close closes the underlying RPC connection.
func (p *EthProvider) Close() {
	if p.client != nil {
		p.client.Close()
	}
}
