package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/modelstack/modelstack/internal/config"
	"github.com/modelstack/modelstack/internal/provision"
	"github.com/modelstack/modelstack/internal/runner"
	"github.com/modelstack/modelstack/internal/ui"
)

var (
	installYes    bool
	installExpose bool
	installBind   string
	installModels []string
	installDryRun bool
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install Ollama and Open WebUI as system services",
	Long: "Install the Ollama model server and the Open WebUI front end, then\n" +
		"register both with the OS service manager so they start at boot and\n" +
		"restart on failure. Services bind to loopback unless --expose is given.",
	RunE: runInstall,
}

func init() {
	installCmd.Flags().BoolVarP(&installYes, "yes", "y", false, "skip the confirmation prompt")
	installCmd.Flags().BoolVar(&installExpose, "expose", false, "bind services on all interfaces instead of loopback")
	installCmd.Flags().StringVar(&installBind, "bind", "", "bind address for both services (overrides config)")
	installCmd.Flags().StringArrayVar(&installModels, "model", nil, "model to pull after install (repeatable)")
	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false, "print the install plan without changing the host")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("modelstack install: %w", err)
	}

	if installBind != "" {
		cfg.BindAddress = installBind
	}
	if installExpose {
		cfg.BindAddress = config.ExposedBindAddress
	}
	if len(installModels) > 0 {
		cfg.Models = append(cfg.Models, installModels...)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("modelstack install: %w", err)
	}

	if !installYes && !installDryRun {
		if !ui.CanPrompt() {
			return fmt.Errorf("modelstack install: no terminal for confirmation, re-run with --yes")
		}
		ok, err := ui.Confirm(fmt.Sprintf("Install Ollama and Open WebUI on this machine (services bind to %s)?", cfg.BindAddress), true)
		if err != nil {
			return fmt.Errorf("modelstack install: %w", err)
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
	p.DryRun = installDryRun
	if err := p.Install(ctx); err != nil {
		return fmt.Errorf("modelstack install: %w", err)
	}
	return nil
}
