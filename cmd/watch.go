package cmd

import (
	"context"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/michaelpento.lv/arbwatch/config"
	"github.com/michaelpento.lv/arbwatch/dex/sushiswap"
	"github.com/michaelpento.lv/arbwatch/dex/uniswap"
	"github.com/michaelpento.lv/arbwatch/executor"
	"github.com/michaelpento.lv/arbwatch/gas"
	"github.com/michaelpento.lv/arbwatch/market"
	"github.com/michaelpento.lv/arbwatch/monitor"
	"github.com/michaelpento.lv/arbwatch/utils"
	"github.com/michaelpento.lv/arbwatch/utils/metrics"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Start the arbitrage monitor",
	Run: func(cmd *cobra.Command, args []string) {
		log := utils.GetLogger()

		if err := config.LoadEnv(); err != nil {
			log.Debug("No .env file loaded", zap.Error(err))
		}

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatal("Failed to load config", zap.Error(err))
		}

		client, err := ethclient.Dial(cfg.RPCEndpoint)
		if err != nil {
			log.Fatal("Failed to connect to Ethereum node", zap.Error(err))
		}
		defer client.Close()

		limiter := rate.NewLimiter(
			rate.Limit(cfg.RPCRateLimit.RequestsPerSecond),
			cfg.RPCRateLimit.BurstSize,
		)

		var source *uniswap.V2Source
		switch cfg.Exchange {
		case "sushiswap":
			source, err = sushiswap.NewSushiswapV2(client, limiter)
		default:
			source, err = uniswap.NewUniswapV2(client, limiter)
		}
		if err != nil {
			log.Fatal("Failed to create market data source", zap.Error(err))
		}

		registry, base, err := buildUniverse(cfg)
		if err != nil {
			log.Fatal("Invalid token universe", zap.Error(err))
		}

		var m *metrics.MonitorMetrics
		if cfg.PrometheusEnabled {
			metrics.Initialize(log)
			m = metrics.NewMonitorMetrics("arbwatch")
			go func() {
				if err := metrics.Serve(cfg.PrometheusEndpoint); err != nil {
					log.Error("Metrics server failed", zap.Error(err))
				}
			}()
		}

		fees := gas.NewEstimator(client, cfg.FeeRefreshInterval.Std(), log)
		defer fees.Stop()

		mon := monitor.New(monitor.Options{
			BaseAsset:      base,
			Universe:       registry.All(),
			MaxHops:        cfg.MaxHops,
			TradeAmount:    cfg.TradeAmount.Int(),
			MinProfit:      cfg.MinProfitThreshold.Int(),
			SlippageBps:    cfg.MaxSlippageBps,
			MaxConcurrency: cfg.MaxConcurrency,
			EventBuffer:    cfg.TickQueueSize * 4,
		}, source, fees, m, log)

		var exec *executor.Executor
		if cfg.ExecutionEnabled {
			privateKey, err := config.GetRequiredEnv(config.EnvPrivateKey)
			if err != nil {
				log.Fatal("Execution enabled but no private key", zap.Error(err))
			}
			exec, err = executor.New(client, source.RouterAddress(), chainID(cfg), privateKey, log)
			if err != nil {
				log.Fatal("Failed to create executor", zap.Error(err))
			}
			log.Info("Execution enabled", zap.String("account", exec.From().Hex()))
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		ticks := tickSource(cfg, client, log)
		if err := mon.Start(ctx, ticks); err != nil {
			log.Fatal("Failed to start monitor", zap.Error(err))
		}

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			log.Info("Shutting down gracefully...")
			cancel()
			mon.Stop()
		}()

		consumeEvents(ctx, mon, exec, log)
	},
}

// tickSource prefers block-driven ticks over the websocket endpoint and
// falls back to a wall-clock interval.
func tickSource(cfg *config.Config, client *ethclient.Client, log *zap.Logger) monitor.TickSource {
	if cfg.WSEndpoint != "" {
		wsClient, err := ethclient.Dial(cfg.WSEndpoint)
		if err == nil {
			return monitor.NewHeaderTickSource(headerClient{wsClient}, log)
		}
		log.Warn("Websocket endpoint unavailable, falling back to interval ticks", zap.Error(err))
	}
	return monitor.NewIntervalTickSource(cfg.TickInterval.Std())
}

// consumeEvents drains the monitor's event stream, logging warnings and
// handing opportunities to the executor when one is configured.
func consumeEvents(ctx context.Context, mon *monitor.Monitor, exec *executor.Executor, log *zap.Logger) {
	for event := range mon.Events() {
		switch event.Kind {
		case monitor.EventOpportunity:
			opp := event.Opportunity
			log.Info("Arbitrage opportunity found",
				zap.Strings("path", opp.PathSymbols()),
				zap.String("net_profit", opp.NetProfit.String()),
				zap.Uint64("block", opp.Block),
			)
			if exec != nil {
				if _, err := exec.Execute(ctx, opp); err != nil {
					log.Error("Failed to execute trade", zap.Error(err))
				}
			}
		case monitor.EventWarning:
			warn := event.Warning
			log.Warn("Monitor warning",
				zap.String("kind", string(warn.Kind)),
				zap.String("pair", warn.Pair),
				zap.String("path", warn.Path),
				zap.Uint64("block", warn.Block),
				zap.Error(warn.Err),
			)
		}
	}
}

// headerClient adapts ethclient's concrete subscription type to the
// monitor's interface.
type headerClient struct {
	*ethclient.Client
}

func (h headerClient) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (monitor.Subscription, error) {
	return h.Client.SubscribeNewHead(ctx, ch)
}

func chainID(cfg *config.Config) *big.Int {
	return new(big.Int).SetUint64(cfg.ChainID)
}

func buildUniverse(cfg *config.Config) (*market.AssetRegistry, market.Asset, error) {
	registry := market.NewAssetRegistry()
	for _, token := range cfg.Tokens {
		registry.Add(market.NewAsset(
			common.HexToAddress(token.Address),
			token.Decimals,
			token.Symbol,
		))
	}
	base, err := registry.BySymbol(cfg.BaseToken)
	if err != nil {
		return nil, market.Asset{}, err
	}
	return registry, base, nil
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
