// Package sushiswap configures the V2 source for the SushiSwap fork, which
// shares the Uniswap V2 pair bytecode but deploys from its own factory.
package sushiswap

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"

	"github.com/michaelpento.lv/arbwatch/dex/uniswap"
)

// Mainnet contract constants.
var (
	MainnetRouter   = common.HexToAddress("0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F")
	MainnetFactory  = common.HexToAddress("0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac")
	MainnetInitCode = common.FromHex("0xe18a34eb0e04b04f7a0ac29a6e80748dca96319b42c54d679cb821dca90c6303")
)

// NewSushiswapV2 creates a source against the mainnet SushiSwap factory.
func NewSushiswapV2(client *ethclient.Client, limiter *rate.Limiter) (*uniswap.V2Source, error) {
	return uniswap.NewV2Source("SushiswapV2", client, MainnetFactory, MainnetRouter, MainnetInitCode, limiter)
}
