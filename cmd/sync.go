package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gitsink/internal/gitrepo"
	"gitsink/internal/logging"
	"gitsink/internal/sync"
	"gitsink/internal/ui"
	"gitsink/internal/warehouse"
)

var syncCmd = &cobra.Command{
	Use:   "sync [path]",
	Short: "Sync the repository into the warehouse",
	Long: "Incrementally syncs commit history, per-commit file changes and " +
		"current file contents for one branch (the checked-out branch by " +
		"default) or all branches. Re-running after a partial failure " +
		"resumes from the last ingested commit.",
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	flags := syncCmd.Flags()
	addConnectionFlags(flags)
	flags.String("repo-id", "", "repository id (defaults to the origin remote, normalized)")
	flags.String("branch", "", "branch to sync (defaults to the checked-out branch)")
	flags.Bool("all-branches", false, "sync every branch")
	flags.Bool("remote", false, "include remote-tracking branches with --all-branches")
	flags.Int64("max-file-size", 0, "largest file content to mirror, in bytes")
	flags.Int("concurrency", 0, "parallel branch syncs with --all-branches")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := warehouse.ValidateConfig(cfg.Snowflake); err != nil {
		return err
	}

	path := "."
	if len(args) == 1 {
		path = args[0]
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger, err := logging.NewLogger(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	defer logger.Sync()

	reader, err := gitrepo.Open(path)
	if err != nil {
		return err
	}

	service := warehouse.NewService(cfg.Snowflake)
	if err := service.Connect(cmd.Context()); err != nil {
		return err
	}
	defer service.Close()

	orchestrator := sync.NewOrchestrator(reader, service, logger.Logger, cfg.Sync)
	summary, err := orchestrator.Run(cmd.Context())
	if err != nil {
		if summary != nil {
			ui.RenderSummary(summary)
		}
		return err
	}

	ui.RenderSummary(summary)

	// deferred closes run before Execute maps this to the process exit
	if code := summary.ExitCode(); code != 0 {
		return exitCodeError{code: code}
	}
	return nil
}
