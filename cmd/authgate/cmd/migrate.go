package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/authgate/internal/config"
	"github.com/MrEthical07/authgate/userstore/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply PostgreSQL user store migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openPostgres(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		// Open already migrates; report what is applied.
		return printMigrationStatus(cmd, s)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status without applying anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Store.Driver != config.StorePostgres {
			return errors.New("migrations apply to the postgres store only")
		}
		s, err := postgres.Connect(cmd.Context(), cfg.Store.PostgresDSN)
		if err != nil {
			return err
		}
		defer s.Close()
		return printMigrationStatus(cmd, s)
	},
}

func init() {
	migrateCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

func openPostgres(cmd *cobra.Command) (*postgres.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Store.Driver != config.StorePostgres {
		return nil, errors.New("migrations apply to the postgres store only")
	}
	return postgres.Open(cmd.Context(), cfg.Store.PostgresDSN)
}

func printMigrationStatus(cmd *cobra.Command, s *postgres.Store) error {
	statuses, err := postgres.MigrationStatus(cmd.Context(), s.Pool())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, st := range statuses {
		applied := "-"
		if !st.AppliedAt.IsZero() {
			applied = st.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(out, "%05d  %-8s  %s  %s\n", st.Source.Version, st.State, applied, st.Source.Path)
	}
	return nil
}
