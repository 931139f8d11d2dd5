package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/DistributedCollective/sovryn-ops/internal/state"
)

var dbResetConfirmed bool

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the ledger database",
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and recreate every ledger table",
	Long: `Drops the submission, distribution, check and watcher tables and recreates them
empty. Distribution progress is lost, so interrupted runs can no longer resume.`,
	Args: cobra.NoArgs,
	RunE: runDBReset,
}

func init() {
	dbResetCmd.Flags().BoolVar(&dbResetConfirmed, "yes", false, "confirm that all ledger data is deleted")
	dbCmd.AddCommand(dbResetCmd)
}

func runDBReset(cmd *cobra.Command, args []string) error {
	if !dbResetConfirmed {
		return fmt.Errorf("%w: db reset deletes all ledger data, pass --yes", errBadArgument)
	}
	if !state.Enabled() {
		return errNoLedger
	}

	log.Warn().Strs("tables", state.Tables).Msg("Dropping ledger tables; submission history and distribution progress are lost")
	if err := state.DropSchema(); err != nil {
		return err
	}
	if err := state.EnsureSchema(); err != nil {
		return err
	}
	log.Info().Msg("Ledger reset complete")
	return nil
}
