// Package gpu probes for NVIDIA acceleration hardware. Detection is
// best-effort: a host without a GPU (or without the NVIDIA driver tools)
// is a normal outcome, not an error.
package gpu

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/modelstack/modelstack/internal/runner"
)

// probeTimeout bounds the nvidia-smi invocation so a wedged driver cannot
// stall the whole provisioning run.
const probeTimeout = 10 * time.Second

// Info describes the detected GPU, if any.
type Info struct {
	// Present reports whether a usable NVIDIA GPU was found.
	Present bool

	// Name is the GPU product name, e.g. "NVIDIA GeForce RTX 4090".
	Name string

	// MemoryMiB is the total video memory in MiB.
	MemoryMiB int

	// DriverVersion is the installed NVIDIA driver version.
	DriverVersion string
}

// Detect probes for an NVIDIA GPU via nvidia-smi. A missing binary, a
// failing query, or unparseable output all yield Info{Present: false}.
func Detect(ctx context.Context, run runner.Runner, logger *slog.Logger) Info {
	logger = logger.With("component", "gpu")

	if _, err := run.LookPath("nvidia-smi"); err != nil {
		logger.Info("nvidia-smi not found, no GPU acceleration")
		return Info{}
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	res, err := run.Run(ctx, runner.Spec{
		Name: "nvidia-smi",
		Args: []string{
			"--query-gpu=name,memory.total,driver_version",
			"--format=csv,noheader,nounits",
		},
	})
	if err != nil {
		logger.Warn("nvidia-smi query failed", "error", err)
		return Info{}
	}

	info, ok := parseQueryOutput(res.Output)
	if !ok {
		logger.Warn("unexpected nvidia-smi output", "output", res.Output)
		return Info{}
	}

	logger.Info("NVIDIA GPU detected",
		"name", info.Name,
		"memory_mib", info.MemoryMiB,
		"driver", info.DriverVersion,
	)
	return info
}

// parseQueryOutput extracts the first GPU from nvidia-smi CSV output.
// Multi-GPU hosts report one line per device; acceleration flags are the
// same either way, so only the first is inspected.
func parseQueryOutput(output string) (Info, bool) {
	output = strings.TrimSpace(output)
	if output == "" {
		return Info{}, false
	}
	line := strings.TrimSpace(strings.Split(output, "\n")[0])

	// nvidia-smi delimits CSV fields with ", ".
	parts := strings.Split(line, ", ")
	if len(parts) < 3 {
		return Info{}, false
	}

	mem, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Info{}, false
	}

	return Info{
		Present:       true,
		Name:          strings.TrimSpace(parts[0]),
		MemoryMiB:     int(mem),
		DriverVersion: strings.TrimSpace(parts[2]),
	}, true
}
