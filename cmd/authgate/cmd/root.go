package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MrEthical07/authgate/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "authgate",
	Short: "authgate issues and validates session tokens",
	Long: `authgate authenticates users, keeps one Redis-backed session per user
and guards requests with a token, session and CSRF check.

Configuration is read from the file given by --config and from AUTHGATE_*
environment variables, which take precedence.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("AUTHGATE_CONFIG"), "path to a YAML config file")
	rootCmd.AddCommand(envCmd)
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := config.Describe()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
