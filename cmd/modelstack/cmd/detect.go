package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelstack/modelstack/internal/gpu"
	"github.com/modelstack/modelstack/internal/platform"
	"github.com/modelstack/modelstack/internal/runner"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Show what the installer sees on this host",
	Long:  "Detect the platform and GPU without changing anything. Useful before a real install.",
	RunE:  runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, _ []string) error {
	logger := setupLogger(logLevel)

	info, err := platform.NewDetector(logger).Detect()
	if err != nil {
		return fmt.Errorf("modelstack detect: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Platform:     %s\n", info.Pretty)
	fmt.Fprintf(w, "OS:           %s\n", info.OS)
	if info.Distribution != "" {
		fmt.Fprintf(w, "Distribution: %s (%s family)\n", info.Distribution, info.Family)
	}
	fmt.Fprintf(w, "Architecture: %s\n", info.Arch)
	fmt.Fprintf(w, "CPUs:         %d\n", info.CPUCount)
	if info.MemoryBytes > 0 {
		fmt.Fprintf(w, "Memory:       %.1f GiB\n", float64(info.MemoryBytes)/(1<<30))
	}

	if info.OS == platform.Linux {
		g := gpu.Detect(cmd.Context(), runner.New(logger), logger)
		if g.Present {
			fmt.Fprintf(w, "GPU:          %s (%d MiB, driver %s)\n", g.Name, g.MemoryMiB, g.DriverVersion)
		} else {
			fmt.Fprintln(w, "GPU:          none detected")
		}
	}
	return nil
}
