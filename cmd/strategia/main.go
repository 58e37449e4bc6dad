// Command strategia generates, scores and exports mobile app ideas with an LLM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/letieu/strategia/config"
	"github.com/letieu/strategia/internal/logging"
)

var (
	configPath string
	verbose    bool
	pretty     bool
	asJSON     bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "strategia",
	Short: "Generate and evaluate viral app ideas",
	Long: `strategia asks a language model for mobile app ideas, scores them for
virality and ad revenue, and keeps a local library of the ones you save.

Deep analysis, concept art, comparison and export need a license. The free
tier allows 3 generations a day and 3 saved ideas.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.LoadFile(configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger, err = logging.New(cfg, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "dump results as colored Go values")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print results as JSON")

	rootCmd.AddCommand(
		generateCmd,
		refineCmd,
		listCmd,
		analyzeCmd,
		namesCmd,
		marketingCmd,
		mvpCmd,
		imageCmd,
		compareCmd,
		saveCmd,
		unsaveCmd,
		savedCmd,
		similarCmd,
		exportCmd,
		licenseCmd,
		usageCmd,
		themeCmd,
		serveCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
