// Package cli provides the command-line interface for the trading application.
package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"consensus-trader/internal/config"
	"consensus-trader/internal/logging"
	"consensus-trader/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.RunStore
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	runStore, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, runs will not be persisted")
	} else {
		app.Store = runStore
		logger.Debug().Str("path", cfg.Store.Path).Msg("SQLite store initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "trader",
		Short: "Consensus Trader - vote-driven backtest and live trading CLI",
		Long: `Consensus Trader runs a tick-driven decision engine over stock and crypto
symbols. Multiple signal producers vote on each tick; positions open and
close only on consensus.

Use 'trader help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file path")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newBacktestCmd(app))
	rootCmd.AddCommand(newLiveCmd(app))
	rootCmd.AddCommand(newRunsCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Consensus Trader v%s\n", Version)
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(config.DefaultConfigDir())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Config.Validate(); err != nil {
				color.Red("Configuration validation failed: %v", err)
				return err
			}
			color.Green("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(cfg *config.Config) {
	color.Cyan("Engine Configuration")
	fmt.Printf("  Initial Capital:  %.2f\n", cfg.Engine.InitialCapital)
	fmt.Printf("  Notional Frac:    %.4f\n", cfg.Engine.NotionalFrac)
	fmt.Println()

	color.Cyan("Strategies")
	fmt.Printf("  Active Set:       %v\n", cfg.Strategies.Set)
	fmt.Printf("  RSI:              period=%d overbought=%.0f oversold=%.0f\n",
		cfg.Strategies.RSI.Period, cfg.Strategies.RSI.Overbought, cfg.Strategies.RSI.Oversold)
	fmt.Printf("  Bollinger:        period=%d std=%.1f\n",
		cfg.Strategies.Bollinger.Period, cfg.Strategies.Bollinger.Std)
	fmt.Printf("  ZScore:           period=%d threshold=%.1f\n",
		cfg.Strategies.ZScore.Period, cfg.Strategies.ZScore.Threshold)
	fmt.Printf("  MA Cross:         short=%d long=%d\n",
		cfg.Strategies.MACross.ShortWindow, cfg.Strategies.MACross.LongWindow)
	fmt.Println()

	color.Cyan("Universe")
	fmt.Printf("  Stocks:           %d symbols\n", len(cfg.Universe.Stocks))
	fmt.Printf("  Crypto:           %d symbols\n", len(cfg.Universe.Crypto))
	fmt.Println()

	color.Cyan("Data")
	fmt.Printf("  Data Dir:         %s\n", cfg.Data.Dir)
	fmt.Printf("  Output Dir:       %s\n", cfg.Data.OutputDir)
	fmt.Printf("  Store Path:       %s\n", cfg.Store.Path)
	fmt.Println()

	color.Cyan("Live")
	fmt.Printf("  Metrics Addr:     %s\n", cfg.Live.MetricsAddr)
	fmt.Printf("  Queue Size:       %d\n", cfg.Live.QueueSize)
	fmt.Printf("  Kite Enabled:     %v\n", cfg.Live.Kite.Enabled)
	fmt.Printf("  Binance Enabled:  %v\n", cfg.Live.Binance.Enabled)
}
