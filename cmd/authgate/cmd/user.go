package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts in the configured user store",
}

var setRoleCmd = &cobra.Command{
	Use:   "set-role <username> <role>",
	Short: "Change a user's role",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		users, closeStore, err := openStore(cmd.Context(), cfg.Store, zap.NewNop())
		if err != nil {
			return err
		}
		defer closeStore()

		u, err := users.FindByUsername(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("finding %q: %w", args[0], err)
		}
		if err := users.SetRole(cmd.Context(), u.ID, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %s -> %s\n", u.Username, u.ID, u.Role, args[1])
		return nil
	},
}

func init() {
	userCmd.AddCommand(setRoleCmd)
	rootCmd.AddCommand(userCmd)
}
