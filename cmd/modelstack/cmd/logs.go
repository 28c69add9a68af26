package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"
)

var logsFollow bool

// logTargets maps a service name to its journald unit and its process name
// for the macOS unified log.
var logTargets = map[string]struct {
	unit    string
	process string
}{
	"ollama":    {unit: "ollama", process: "ollama"},
	"openwebui": {unit: "openwebui", process: "open-webui"},
}

var logsCmd = &cobra.Command{
	Use:       "logs <service>",
	Short:     "Stream service logs",
	Long:      "Stream logs for one service (ollama or openwebui) from journald on Linux or the unified log on macOS.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"ollama", "openwebui"},
	RunE:      runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "follow log output")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	target, ok := logTargets[args[0]]
	if !ok {
		return fmt.Errorf("modelstack logs: unknown service %q (want ollama or openwebui)", args[0])
	}

	var c *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		predicate := fmt.Sprintf("process == %q", target.process)
		if logsFollow {
			c = exec.Command("log", "stream", "--predicate", predicate)
		} else {
			c = exec.Command("log", "show", "--last", "15m", "--predicate", predicate)
		}
	default:
		journalctl, err := exec.LookPath("journalctl")
		if err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), "journalctl not found; logs may be available on stdout of the service process")
			return nil
		}
		jargs := []string{"-u", target.unit, "--no-pager"}
		if logsFollow {
			jargs = append(jargs, "-f")
		}
		c = exec.Command(journalctl, jargs...)
	}

	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("modelstack logs: %w", err)
	}
	return nil
}
