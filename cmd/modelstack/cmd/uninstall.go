package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/modelstack/modelstack/internal/provision"
	"github.com/modelstack/modelstack/internal/runner"
	"github.com/modelstack/modelstack/internal/ui"
)

var (
	uninstallYes   bool
	uninstallPurge bool
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the Ollama and Open WebUI services",
	Long: "Stop both services, deregister them from the service manager, and\n" +
		"delete their descriptors. Installed binaries stay in place; --purge\n" +
		"also removes the Open WebUI installation directory.",
	RunE: runUninstall,
}

func init() {
	uninstallCmd.Flags().BoolVarP(&uninstallYes, "yes", "y", false, "skip the confirmation prompt")
	uninstallCmd.Flags().BoolVar(&uninstallPurge, "purge", false, "also remove the Open WebUI installation directory")
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("modelstack uninstall: %w", err)
	}

	if !uninstallYes {
		if !ui.CanPrompt() {
			return fmt.Errorf("modelstack uninstall: no terminal for confirmation, re-run with --yes")
		}
		ok, err := ui.Confirm("Remove the Ollama and Open WebUI services?", false)
		if err != nil {
			return fmt.Errorf("modelstack uninstall: %w", err)
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "aborted")
			return nil
		}
	}

	logger := setupLogger(cfg.LogLevel)
	out := ui.NewPrinter(cmd.OutOrStdout())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	p := provision.New(cfg, runner.New(logger), provision.NewRootChecker(), out, logger)
	if err := p.Uninstall(ctx, uninstallPurge); err != nil {
		return fmt.Errorf("modelstack uninstall: %w", err)
	}
	return nil
}
