package market

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Asset represents a tradable ERC-20 token identity.
// Two assets are equal iff their addresses are equal.
type Asset struct {
	Address  common.Address
	Decimals uint8
	Symbol   string
}

// NewAsset creates an asset from its on-chain identity.
func NewAsset(address common.Address, decimals uint8, symbol string) Asset {
	return Asset{
		Address:  address,
		Decimals: decimals,
		Symbol:   symbol,
	}
}

// Equal reports whether two assets refer to the same token contract.
func (a Asset) Equal(other Asset) bool {
	return a.Address == other.Address
}

func (a Asset) String() string {
	if a.Symbol != "" {
		return a.Symbol
	}
	return a.Address.Hex()
}

// PathString renders a path as "WETH -> DAI -> USDC -> WETH" for logging.
func PathString(path []Asset) string {
	s := ""
	for i, asset := range path {
		if i > 0 {
			s += " -> "
		}
		s += asset.String()
	}
	return s
}

// AssetRegistry maps symbols and addresses to registered assets.
type AssetRegistry struct {
	bySymbol  map[string]Asset
	byAddress map[common.Address]Asset
}

// NewAssetRegistry creates an empty registry.
func NewAssetRegistry() *AssetRegistry {
	return &AssetRegistry{
		bySymbol:  make(map[string]Asset),
		byAddress: make(map[common.Address]Asset),
	}
}

// Add registers an asset. Re-registering the same address is a no-op.
func (r *AssetRegistry) Add(asset Asset) {
	if _, ok := r.byAddress[asset.Address]; ok {
		return
	}
	r.byAddress[asset.Address] = asset
	r.bySymbol[asset.Symbol] = asset
}

// BySymbol looks up an asset by its symbol.
func (r *AssetRegistry) BySymbol(symbol string) (Asset, error) {
	asset, ok := r.bySymbol[symbol]
	if !ok {
		return Asset{}, fmt.Errorf("unknown asset symbol %q", symbol)
	}
	return asset, nil
}

// ByAddress looks up an asset by its contract address.
func (r *AssetRegistry) ByAddress(address common.Address) (Asset, error) {
	asset, ok := r.byAddress[address]
	if !ok {
		return Asset{}, fmt.Errorf("unknown asset address %s", address.Hex())
	}
	return asset, nil
}

// All returns every registered asset.
func (r *AssetRegistry) All() []Asset {
	assets := make([]Asset, 0, len(r.byAddress))
	for _, asset := range r.byAddress {
		assets = append(assets, asset)
	}
	return assets
}
