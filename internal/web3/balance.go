package web3

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/ouf-ai/ouf-gateway/internal/domain"
)

// BalanceReader reads a wallet's token balance. Implemented by ChainReader;
// tests substitute a stub.
type BalanceReader interface {
	BalanceOf(ctx context.Context, wallet string) (*big.Int, error)
	HasMinimumBalance(ctx context.Context, wallet string) (bool, error)
}

// ChainReader reads ERC-20 balances over JSON-RPC.
type ChainReader struct {
	client     *ethclient.Client
	token      common.Address
	minBalance *big.Int
	timeout    time.Duration
	logger     *zap.Logger
}

// NewChainReader connects to the RPC endpoint and targets the given token
// contract. minBalance is the threshold HasMinimumBalance checks against;
// timeout bounds each RPC call.
func NewChainReader(rpcURL, tokenAddress string, minBalance *big.Int, timeout time.Duration, logger *zap.Logger) (*ChainReader, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to RPC endpoint: %w", err)
	}
	return &ChainReader{
		client:     client,
		token:      common.HexToAddress(tokenAddress),
		minBalance: minBalance,
		timeout:    timeout,
		logger:     logger,
	}, nil
}

// Close releases the RPC connection.
func (r *ChainReader) Close() {
	r.client.Close()
}

// BalanceOf calls balanceOf(address) on the token contract.
func (r *ChainReader) BalanceOf(ctx context.Context, wallet string) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	selector := crypto.Keccak256([]byte("balanceOf(address)"))[:4]
	data := append(selector, common.LeftPadBytes(common.HexToAddress(wallet).Bytes(), 32)...)

	result, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &r.token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: balanceOf call: %v", domain.ErrUpstream, err)
	}
	return new(big.Int).SetBytes(result), nil
}

// HasMinimumBalance reports whether the wallet holds at least the configured
// token threshold.
func (r *ChainReader) HasMinimumBalance(ctx context.Context, wallet string) (bool, error) {
	balance, err := r.BalanceOf(ctx, wallet)
	if err != nil {
		return false, err
	}
	ok := balance.Cmp(r.minBalance) >= 0
	r.logger.Debug("token balance check",
		zap.String("wallet", wallet),
		zap.String("balance", balance.String()),
		zap.Bool("sufficient", ok))
	return ok, nil
}
