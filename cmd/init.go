package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gitsink/internal/ui"
	"gitsink/internal/warehouse"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the warehouse tables",
	Long: "Creates the five gitsink tables in the configured Snowflake " +
		"database and schema. Safe to run repeatedly.",
	RunE: runInit,
}

func init() {
	addConnectionFlags(initCmd.Flags())
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := warehouse.ValidateConfig(cfg.Snowflake); err != nil {
		return err
	}

	service := warehouse.NewService(cfg.Snowflake)
	if err := service.Connect(cmd.Context()); err != nil {
		return err
	}
	defer service.Close()

	if err := service.EnsureSchema(cmd.Context()); err != nil {
		return err
	}

	ui.ShowSuccess(fmt.Sprintf("Warehouse tables ready in %s.%s",
		cfg.Snowflake.Database, cfg.Snowflake.Schema))
	return nil
}
