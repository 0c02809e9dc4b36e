package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbwatch/config"
	"github.com/michaelpento.lv/arbwatch/market"
	"github.com/michaelpento.lv/arbwatch/pathfinder"
	"github.com/michaelpento.lv/arbwatch/utils"
)

var pathsMaxHops int

// pathsCmd dumps the cycle candidates the search would evaluate, assuming a
// pool exists for every token pair in the universe. Offline debug aid: no
// node connection needed.
var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "List candidate arbitrage cycles for the configured universe",
	Run: func(cmd *cobra.Command, args []string) {
		log := utils.GetLogger()

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatal("Failed to load config", zap.Error(err))
		}

		registry, base, err := buildUniverse(cfg)
		if err != nil {
			log.Fatal("Invalid token universe", zap.Error(err))
		}

		graph := market.NewTokenGraph()
		assets := registry.All()
		for i := 0; i < len(assets); i++ {
			for j := i + 1; j < len(assets); j++ {
				graph.AddEdge(assets[i], assets[j])
			}
		}

		maxHops := cfg.MaxHops
		if pathsMaxHops > 0 {
			maxHops = pathsMaxHops
		}

		finder := pathfinder.NewPathFinder(graph, log)
		cycles := finder.FindCycles(base, maxHops)

		fmt.Printf("%d cycles from %s (max %d hops):\n", len(cycles), base, maxHops)
		for _, cycle := range cycles {
			fmt.Println("  " + market.PathString(cycle))
		}
	},
}

func init() {
	rootCmd.AddCommand(pathsCmd)
	pathsCmd.Flags().IntVar(&pathsMaxHops, "max-hops", 0, "override configured max hops")
}
