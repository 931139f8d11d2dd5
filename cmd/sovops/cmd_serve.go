package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/DistributedCollective/sovryn-ops/internal/state"
	"github.com/DistributedCollective/sovryn-ops/internal/watch"
	"github.com/DistributedCollective/sovryn-ops/internal/web"
)

var errNoLedger = errors.New("this command needs the ledger database, set DB_HOST")

var (
	webPort       string
	watchInterval time.Duration
	watchExecute  bool
	watchServe    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only status API and Prometheus metrics",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the multisig and keep the submission ledger in sync",
	Long: `Refreshes every pending multisig transaction on a fixed interval, records
confirmation counts, flags transactions that reached the threshold without being
executed and marks executed ones in the ledger. With --execute-ready the
configured owner key executes those transactions.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	defaultPort := os.Getenv("WEB_PORT")
	if defaultPort == "" {
		defaultPort = "8080"
	}
	for _, c := range []*cobra.Command{serveCmd, watchCmd} {
		c.Flags().StringVar(&webPort, "port", defaultPort, "HTTP port of the status API")
	}
	watchCmd.Flags().DurationVar(&watchInterval, "interval", time.Minute, "time between cycles")
	watchCmd.Flags().BoolVar(&watchExecute, "execute-ready", false, "execute confirmed but unexecuted transactions")
	watchCmd.Flags().BoolVar(&watchServe, "serve", false, "also serve the status API")
}

// confirmationThreshold reads required() from the multisig, 0 when unavailable.
func confirmationThreshold(ctx context.Context, env *opsEnv) int {
	if env == nil || env.wallet == nil {
		return 0
	}
	required, err := env.wallet.Required(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Could not read the multisig threshold, ready submissions are not flagged")
		return 0
	}
	return int(required)
}

func runServe(cmd *cobra.Command, args []string) error {
	if !state.Enabled() {
		return errNoLedger
	}
	ctx := cmd.Context()

	env, err := newEnv(ctx, false)
	if err != nil {
		log.Warn().Err(err).Msg("RPC unavailable, serving the ledger only")
		env = nil
	} else {
		defer env.Close()
	}

	server := web.NewWebServer(webPort, confirmationThreshold(ctx, env))
	log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting status API")
	return server.Start(ctx)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := newEnv(ctx, watchExecute)
	if err != nil {
		return err
	}
	defer env.Close()

	wallet, err := env.requireWallet()
	if err != nil {
		return err
	}
	cfg := watch.Config{Wallet: wallet, ExecuteReady: watchExecute}
	if state.Enabled() {
		cfg.Ledger = state.SubmissionLedger{}
		cfg.NextCycle = state.IncrementCycleNumber
	} else {
		log.Warn().Msg("DB_HOST not set, watching without the ledger")
	}
	watcher, err := watch.New(cfg)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if watchServe {
		if !state.Enabled() {
			return errNoLedger
		}
		server := web.NewWebServer(webPort, confirmationThreshold(ctx, env))
		g.Go(func() error {
			log.Info().Str("port", webPort).Msg("Starting status API")
			return server.Start(gctx)
		})
	}
	g.Go(func() error {
		watcher.RunLoop(gctx, watchInterval)
		return nil
	})
	return g.Wait()
}
