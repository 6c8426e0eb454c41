package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "prism",
	Short: "prism - portfolio optimization analytics dashboard",
	Long: `prism renders coordinated visual analytics for portfolio optimization
results: allocation breakdown, efficient frontier, simulated performance and
asset correlation, served over HTTP or written as one-shot artifacts.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
