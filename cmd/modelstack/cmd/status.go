package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelstack/modelstack/internal/provision"
	"github.com/modelstack/modelstack/internal/runner"
	"github.com/modelstack/modelstack/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show service status",
	Long:  "Report install state, service manager state, and endpoint reachability for both services.",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("modelstack status: %w", err)
	}

	logger := setupLogger(cfg.LogLevel)
	out := ui.NewPrinter(cmd.OutOrStdout())

	p := provision.New(cfg, runner.New(logger), provision.NewRootChecker(), out, logger)
	statuses, err := p.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("modelstack status: %w", err)
	}

	w := cmd.OutOrStdout()
	for _, st := range statuses {
		state := "not installed"
		switch {
		case st.Active:
			state = "running"
		case st.Installed:
			state = "installed, stopped"
		}
		endpoint := st.Addr + " (unreachable)"
		if st.Reachable {
			endpoint = st.Addr + " (reachable)"
		}
		fmt.Fprintf(w, "%-10s %-20s %s\n", st.Name, state, endpoint)
	}
	return nil
}
