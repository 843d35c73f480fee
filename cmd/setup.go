package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gitsink/internal/config"
	"gitsink/internal/secrets"
	"gitsink/internal/ui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive configuration",
	Long: "Walks through the Snowflake connection and sync settings, writes " +
		"~/.gitsink/config.yaml and optionally stores the password in the " +
		"OS keyring.",
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	if config.Exists() {
		overwrite, err := ui.Confirm(
			fmt.Sprintf("Configuration already exists at %s. Overwrite?", config.File()), false)
		if err != nil {
			return err
		}
		if !overwrite {
			ui.ShowInfo("Setup cancelled, existing configuration kept")
			return nil
		}
	}

	wizard := ui.NewSetupWizard()
	cfg, err := wizard.Run()
	if err != nil {
		return err
	}

	if wizard.StoreInKeyring {
		if err := secrets.StorePassword(cfg.Snowflake.Username, cfg.Snowflake.Password); err != nil {
			ui.ShowWarning("Keyring unavailable, keeping the password in the config file")
		} else {
			cfg.Snowflake.Password = ""
		}
	}

	if err := config.Save(cfg); err != nil {
		return err
	}

	ui.ShowSuccess(fmt.Sprintf("Configuration written to %s", config.File()))
	ui.ShowInfo("Run 'gitsink init' to create the warehouse tables")
	return nil
}
