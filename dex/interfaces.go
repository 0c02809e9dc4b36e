// Package dex defines the market-data boundary: everything the monitor
// needs from an exchange is the current reserve snapshot for a pair.
package dex

import (
	"context"
	"errors"

	"github.com/michaelpento.lv/arbwatch/market"
)

// ErrUnavailable is returned when a pair cannot be resolved upstream
// (no pool deployed, RPC failure, rate limit exhausted).
var ErrUnavailable = errors.New("dex: pair unavailable")

// Source supplies reserve snapshots for asset pairs.
type Source interface {
	// Name returns the exchange name.
	Name() string

	// FetchPair returns the current reserves for the pool between the two
	// assets, in each asset's base units.
	FetchPair(ctx context.Context, assetA, assetB market.Asset) (*market.Pair, error)
}
