// Package executor turns an opportunity into an on-chain router swap. It is
// an optional consumer of the monitor's event stream; the monitor itself
// never submits anything.
package executor

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbwatch/arbitrage"
)

// ErrExecutionInProgress is returned when a submission is already in flight.
// Submissions are serialized: at most one outstanding transaction per
// account, to avoid conflicting nonces and pool state.
var ErrExecutionInProgress = errors.New("executor: trade execution already in progress")

const swapDeadline = 5 * time.Minute

const routerABIJson = `[{
	"name": "swapExactTokensForTokens",
	"type": "function",
	"inputs": [
		{"name": "amountIn", "type": "uint256"},
		{"name": "amountOutMin", "type": "uint256"},
		{"name": "path", "type": "address[]"},
		{"name": "to", "type": "address"},
		{"name": "deadline", "type": "uint256"}
	],
	"outputs": [{"name": "amounts", "type": "uint256[]"}]
}]`

const erc20ABIJson = `[{
	"name": "approve",
	"type": "function",
	"inputs": [
		{"name": "spender", "type": "address"},
		{"name": "amount", "type": "uint256"}
	],
	"outputs": [{"name": "", "type": "bool"}]
}, {
	"name": "allowance",
	"type": "function",
	"constant": true,
	"stateMutability": "view",
	"inputs": [
		{"name": "owner", "type": "address"},
		{"name": "spender", "type": "address"}
	],
	"outputs": [{"name": "", "type": "uint256"}]
}]`

// maxAllowance approves once for the maximum so later trades skip the
// approval transaction.
var maxAllowance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Executor submits router swaps for opportunities.
type Executor struct {
	client  *ethclient.Client
	router  common.Address
	chainID *big.Int
	key     *ecdsa.PrivateKey
	from    common.Address

	routerABI abi.ABI
	erc20ABI  abi.ABI
	logger    *zap.Logger

	mu        sync.Mutex
	executing bool
}

// New creates an executor signing with the given hex private key.
func New(client *ethclient.Client, router common.Address, chainID *big.Int, privateKeyHex string, logger *zap.Logger) (*Executor, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	routerABI, err := abi.JSON(strings.NewReader(routerABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}
	erc20ABI, err := abi.JSON(strings.NewReader(erc20ABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC-20 ABI: %w", err)
	}

	return &Executor{
		client:    client,
		router:    router,
		chainID:   chainID,
		key:       key,
		from:      crypto.PubkeyToAddress(key.PublicKey),
		routerABI: routerABI,
		erc20ABI:  erc20ABI,
		logger:    logger,
	}, nil
}

// From returns the submitting account address.
func (e *Executor) From() common.Address {
	return e.from
}

// Execute submits the opportunity's cycle swap with the opportunity's MinOut
// as the slippage floor. Only one submission may be in flight at a time.
func (e *Executor) Execute(ctx context.Context, opp *arbitrage.Opportunity) (*types.Transaction, error) {
	e.mu.Lock()
	if e.executing {
		e.mu.Unlock()
		return nil, ErrExecutionInProgress
	}
	e.executing = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.executing = false
		e.mu.Unlock()
	}()

	inputToken := opp.Path[0].Address
	if err := e.ensureAllowance(ctx, inputToken, opp.AmountIn); err != nil {
		return nil, fmt.Errorf("token approval failed: %w", err)
	}

	path := make([]common.Address, len(opp.Path))
	for i, asset := range opp.Path {
		path[i] = asset.Address
	}
	deadline := big.NewInt(time.Now().Add(swapDeadline).Unix())

	callData, err := e.routerABI.Pack(
		"swapExactTokensForTokens",
		opp.AmountIn,
		opp.MinOut,
		path,
		e.from,
		deadline,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack swap call: %w", err)
	}

	tx, err := e.sendTransaction(ctx, e.router, callData)
	if err != nil {
		return nil, fmt.Errorf("failed to execute trade: %w", err)
	}

	e.logger.Info("Trade transaction sent",
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.Strings("path", opp.PathSymbols()),
		zap.String("amount_in", opp.AmountIn.String()),
		zap.String("min_out", opp.MinOut.String()),
	)
	return tx, nil
}

// ensureAllowance checks the router's allowance on the input token and
// approves the maximum if it is insufficient.
func (e *Executor) ensureAllowance(ctx context.Context, token common.Address, amount *big.Int) error {
	callData, err := e.erc20ABI.Pack("allowance", e.from, e.router)
	if err != nil {
		return fmt.Errorf("failed to pack allowance call: %w", err)
	}

	result, err := e.client.CallContract(ctx, ethereum.CallMsg{
		From: e.from,
		To:   &token,
		Data: callData,
	}, nil)
	if err != nil {
		return fmt.Errorf("allowance call failed: %w", err)
	}

	allowance := new(big.Int).SetBytes(result)
	if allowance.Cmp(amount) >= 0 {
		return nil
	}

	approveData, err := e.erc20ABI.Pack("approve", e.router, maxAllowance)
	if err != nil {
		return fmt.Errorf("failed to pack approve call: %w", err)
	}

	tx, err := e.sendTransaction(ctx, token, approveData)
	if err != nil {
		return fmt.Errorf("approve transaction failed: %w", err)
	}

	e.logger.Info("Token approved",
		zap.String("token", token.Hex()),
		zap.String("tx_hash", tx.Hash().Hex()),
	)

	receipt, err := bind.WaitMined(ctx, e.client, tx)
	if err != nil {
		return fmt.Errorf("approve confirmation failed: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return errors.New("approve transaction reverted")
	}
	return nil
}

// sendTransaction signs and submits a legacy transaction to the given
// contract.
func (e *Executor) sendTransaction(ctx context.Context, to common.Address, data []byte) (*types.Transaction, error) {
	nonce, err := e.client.PendingNonceAt(ctx, e.from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	gasLimit, err := e.client.EstimateGas(ctx, ethereum.CallMsg{
		From:     e.from,
		To:       &to,
		GasPrice: gasPrice,
		Data:     data,
	})
	if err != nil {
		return nil, fmt.Errorf("gas estimation failed: %w", err)
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(e.chainID), e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := e.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}
	return signed, nil
}
