package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gitsink/internal/config"
	"gitsink/internal/secrets"
	"gitsink/internal/ui"
	"gitsink/pkg/models"
)

var (
	verbose bool

	rootCmd = &cobra.Command{
		Use:   "gitsink",
		Short: "Mirror git history into Snowflake",
		Long: "gitsink incrementally syncs a git repository's commit history, " +
			"file-level diffs and current file contents into Snowflake tables " +
			"for SQL analytics.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// exitCodeError carries a non-zero exit status out of a command after
// its deferred cleanups have run.
type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exit exitCodeError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		ui.ShowError(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose progress output")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
}

// addConnectionFlags registers the Snowflake flags shared by init and sync.
func addConnectionFlags(flags *pflag.FlagSet) {
	flags.String("account", "", "Snowflake account identifier")
	flags.String("user", "", "Snowflake username")
	flags.String("password", "", "Snowflake password")
	flags.String("role", "", "Snowflake role")
	flags.String("warehouse", "", "Snowflake warehouse")
	flags.String("database", "", "Snowflake database")
	flags.String("schema", "", "Snowflake schema")
}

// loadConfig resolves the layered configuration for a command and fills
// the password from the OS keyring when every other source left it empty.
func loadConfig(cmd *cobra.Command) (*models.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}

	if cfg.Snowflake.Password == "" && cfg.Snowflake.Username != "" {
		password, err := secrets.LookupPassword(cfg.Snowflake.Username)
		if err != nil {
			return nil, fmt.Errorf("password not configured and keyring lookup failed: %w", err)
		}
		cfg.Snowflake.Password = password
	}

	return cfg, nil
}
