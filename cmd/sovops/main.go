package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/DistributedCollective/sovryn-ops/internal/config"
	"github.com/DistributedCollective/sovryn-ops/internal/logger"
	"github.com/DistributedCollective/sovryn-ops/internal/state"
)

var (
	// Global flags
	dryRun    bool
	routeFlag string
	jsonOut   bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sovops",
	Short: "Sovryn protocol operations toolkit",
	Long: `sovops administers a Sovryn deployment on RSK.

State-changing calls are routed through the protocol multisig when the target
contract is owned by it, and signed directly otherwise. Configuration comes from
the environment (a .env file is loaded when present).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return bootstrap()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		state.CloseDB()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "encode and print calls without sending them")
	rootCmd.PersistentFlags().StringVar(&routeFlag, "route", "auto", "how state-changing calls are sent: auto, direct or multisig")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print results as JSON")

	rootCmd.AddCommand(
		multisigCmd,
		tokenCmd,
		protocolCmd,
		loanTokenCmd,
		ammCmd,
		vestingCmd,
		distributeCmd,
		verifyCmd,
		serveCmd,
		watchCmd,
		dbCmd,
	)
}

// bootstrap loads configuration, sets up logging and opens the ledger when DB_HOST is set.
func bootstrap() error {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE"))

	if os.Getenv("DB_HOST") == "" {
		log.Debug().Msg("DB_HOST not set, running without the ledger")
		return nil
	}
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	if err := state.EnsureSchema(); err != nil {
		return fmt.Errorf("ensure database schema: %w", err)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("Command failed")
		stop()
		os.Exit(1)
	}
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
