// Package uniswap implements the dex.Source boundary against Uniswap
// V2-style pair contracts. Pool addresses are derived off-chain via CREATE2,
// so no factory call is needed per pair.
package uniswap

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"

	"github.com/michaelpento.lv/arbwatch/dex"
	"github.com/michaelpento.lv/arbwatch/market"
)

// Mainnet contract constants.
var (
	MainnetRouter   = common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	MainnetFactory  = common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	MainnetInitCode = common.FromHex("0x96e8ac4277198ff8b6f785478aa9a39f403cb768dd02cbee326c3e7da348845f")
)

const pairCacheSize = 512

// V2Source implements dex.Source for any Uniswap V2 fork, parameterized by
// factory address and pair init code hash.
type V2Source struct {
	name     string
	client   *ethclient.Client
	factory  common.Address
	router   common.Address
	initCode []byte
	pairABI  abi.ABI
	pairs    *lru.Cache
	limiter  *rate.Limiter
}

// NewV2Source creates a source for a V2 fork. The limiter bounds on-chain
// reserve reads; pass nil to disable rate limiting.
func NewV2Source(name string, client *ethclient.Client, factory, router common.Address, initCode []byte, limiter *rate.Limiter) (*V2Source, error) {
	parsedABI, err := abi.JSON(strings.NewReader(pairABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pair ABI: %w", err)
	}

	cache, err := lru.New(pairCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create pair cache: %w", err)
	}

	return &V2Source{
		name:     name,
		client:   client,
		factory:  factory,
		router:   router,
		initCode: initCode,
		pairABI:  parsedABI,
		pairs:    cache,
		limiter:  limiter,
	}, nil
}

// NewUniswapV2 creates a source against the mainnet Uniswap V2 factory.
func NewUniswapV2(client *ethclient.Client, limiter *rate.Limiter) (*V2Source, error) {
	return NewV2Source("UniswapV2", client, MainnetFactory, MainnetRouter, MainnetInitCode, limiter)
}

// Name returns the exchange name.
func (u *V2Source) Name() string {
	return u.name
}

// RouterAddress returns the router contract address for trade submission.
func (u *V2Source) RouterAddress() common.Address {
	return u.router
}

// FetchPair reads the current reserves for the pool between the two assets.
func (u *V2Source) FetchPair(ctx context.Context, assetA, assetB market.Asset) (*market.Pair, error) {
	if u.limiter != nil {
		if err := u.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", dex.ErrUnavailable, err)
		}
	}

	pairContract, err := u.pairContract(assetA.Address, assetB.Address)
	if err != nil {
		return nil, err
	}

	reserve0, reserve1, blockTimestamp, err := pairContract.GetReserves(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %v", dex.ErrUnavailable, assetA, assetB, err)
	}
	_ = blockTimestamp

	// getReserves orders reserves by token0/token1 (ascending addresses);
	// orient them back onto the assets the caller passed.
	reserveA, reserveB := reserve0, reserve1
	if bytes.Compare(assetA.Address.Bytes(), assetB.Address.Bytes()) > 0 {
		reserveA, reserveB = reserve1, reserve0
	}

	return market.NewPair(assetA, assetB, reserveA, reserveB, 0)
}

// pairContract returns the bound pair contract, from cache when possible.
func (u *V2Source) pairContract(token0, token1 common.Address) (*PairContract, error) {
	addr := u.PairFor(token0, token1)
	if cached, ok := u.pairs.Get(addr); ok {
		return cached.(*PairContract), nil
	}

	pairContract := NewPairContract(addr, u.pairABI, u.client)
	u.pairs.Add(addr, pairContract)
	return pairContract, nil
}

// PairFor derives the CREATE2 pair address for two tokens. Tokens sort by
// byte order, matching the factory's token0/token1 assignment.
func (u *V2Source) PairFor(token0, token1 common.Address) common.Address {
	if bytes.Compare(token0.Bytes(), token1.Bytes()) > 0 {
		token0, token1 = token1, token0
	}

	salt := crypto.Keccak256(token0.Bytes(), token1.Bytes())
	return common.BytesToAddress(crypto.Keccak256([]byte{
		0xff,
	}, u.factory.Bytes(), salt, u.initCode))
}

// Price returns the mid price of assetB in terms of assetA, fixed-point 1e18.
func (u *V2Source) Price(ctx context.Context, assetA, assetB market.Asset) (*big.Int, error) {
	pair, err := u.FetchPair(ctx, assetA, assetB)
	if err != nil {
		return nil, err
	}
	if pair.Degenerate() {
		return nil, fmt.Errorf("insufficient liquidity for %s/%s", assetA, assetB)
	}

	return new(big.Int).Div(
		new(big.Int).Mul(pair.ReserveB, big.NewInt(1e18)),
		pair.ReserveA,
	), nil
}

var _ dex.Source = (*V2Source)(nil)

// PairContract wraps a bound V2 pair contract.
type PairContract struct {
	contract *bind.BoundContract
	address  common.Address
}

// Pair contract ABI.
const pairABIJson = `[{
	"constant": true,
	"inputs": [],
	"name": "getReserves",
	"outputs": [
		{"name": "reserve0", "type": "uint112"},
		{"name": "reserve1", "type": "uint112"},
		{"name": "blockTimestampLast", "type": "uint32"}
	],
	"payable": false,
	"stateMutability": "view",
	"type": "function"
}, {
	"constant": true,
	"inputs": [],
	"name": "token0",
	"outputs": [{"name": "", "type": "address"}],
	"payable": false,
	"stateMutability": "view",
	"type": "function"
}, {
	"constant": true,
	"inputs": [],
	"name": "token1",
	"outputs": [{"name": "", "type": "address"}],
	"payable": false,
	"stateMutability": "view",
	"type": "function"
}]`

// NewPairContract binds the pair contract at the given address.
func NewPairContract(address common.Address, pairABI abi.ABI, client *ethclient.Client) *PairContract {
	return &PairContract{
		contract: bind.NewBoundContract(address, pairABI, client, client, client),
		address:  address,
	}
}

// Address returns the pair contract address.
func (p *PairContract) Address() common.Address {
	return p.address
}

// GetReserves returns the current reserves and last update timestamp.
func (p *PairContract) GetReserves(ctx context.Context) (*big.Int, *big.Int, uint32, error) {
	var out []interface{}
	err := p.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getReserves")
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to get reserves: %w", err)
	}

	reserve0, ok := out[0].(*big.Int)
	if !ok {
		return nil, nil, 0, fmt.Errorf("failed to parse reserve0")
	}
	reserve1, ok := out[1].(*big.Int)
	if !ok {
		return nil, nil, 0, fmt.Errorf("failed to parse reserve1")
	}
	blockTimestamp, ok := out[2].(uint32)
	if !ok {
		blockTimestamp = 0
	}

	return reserve0, reserve1, blockTimestamp, nil
}
