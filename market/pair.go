package market

import (
	"bytes"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrDegeneratePair marks a pair with a zero reserve on either side.
// Such pairs exist on-chain but cannot price a trade.
var ErrDegeneratePair = errors.New("pair has a zero reserve")

// PairKey canonically identifies an unordered asset pair. The key sorts the
// two addresses so {A,B} and {B,A} resolve to the same entry.
type PairKey struct {
	Lo common.Address
	Hi common.Address
}

// KeyFor builds the canonical key for two assets.
func KeyFor(a, b Asset) PairKey {
	return keyForAddresses(a.Address, b.Address)
}

func keyForAddresses(a, b common.Address) PairKey {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	return PairKey{Lo: a, Hi: b}
}

// Pair holds the latest reserve snapshot for a liquidity pool between two
// assets. Reserves are in each asset's base units.
type Pair struct {
	AssetA   Asset
	AssetB   Asset
	ReserveA *big.Int
	ReserveB *big.Int
	Block    uint64
}

// NewPair creates a pair snapshot. Reserves must be non-negative.
func NewPair(assetA, assetB Asset, reserveA, reserveB *big.Int, block uint64) (*Pair, error) {
	if reserveA == nil || reserveB == nil || reserveA.Sign() < 0 || reserveB.Sign() < 0 {
		return nil, errors.New("reserves must be non-negative")
	}
	return &Pair{
		AssetA:   assetA,
		AssetB:   assetB,
		ReserveA: reserveA,
		ReserveB: reserveB,
		Block:    block,
	}, nil
}

// Key returns the pair's canonical key.
func (p *Pair) Key() PairKey {
	return KeyFor(p.AssetA, p.AssetB)
}

// Degenerate reports whether either reserve is zero.
func (p *Pair) Degenerate() bool {
	return p.ReserveA.Sign() == 0 || p.ReserveB.Sign() == 0
}

// ReservesFor orients the reserves for a trade selling assetIn. Returns
// (reserveIn, reserveOut) or an error if assetIn is not a side of the pair.
func (p *Pair) ReservesFor(assetIn Asset) (*big.Int, *big.Int, error) {
	switch {
	case assetIn.Equal(p.AssetA):
		return p.ReserveA, p.ReserveB, nil
	case assetIn.Equal(p.AssetB):
		return p.ReserveB, p.ReserveA, nil
	default:
		return nil, nil, errors.New("asset is not a side of this pair")
	}
}
