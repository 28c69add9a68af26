// Package service registers applications with the OS service manager:
// systemd on Linux, launchd on macOS. It renders the descriptor file for
// each application and drives the manager's lifecycle commands.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelstack/modelstack/internal/platform"
	"github.com/modelstack/modelstack/internal/runner"
)

// ErrNoManager indicates no supported service manager is available for the host.
var ErrNoManager = errors.New("service: no supported service manager")

// App describes one application to run as a supervised background service.
type App struct {
	// Name is the short service name ("ollama"). On Linux it becomes the
	// systemd unit name <Name>.service.
	Name string

	// Label is the launchd job label ("com.ollama.ollama"). Unused on Linux.
	Label string

	// Description is the human-readable service description.
	Description string

	// ExecPath is the absolute path of the program to supervise.
	ExecPath string

	// Args are the program arguments.
	Args []string

	// WorkingDir is the working directory, when the program needs one.
	WorkingDir string

	// Env holds KEY=VALUE pairs set in the service environment, emitted in
	// slice order so descriptors are deterministic.
	Env []string

	// User runs the service as this user instead of root. Only honored by
	// systemd; launch daemons run as root.
	User string
}

// Manager abstracts an OS service manager for testability.
// All methods that modify state must be idempotent: repeating an operation
// that is already applied returns nil.
type Manager interface {
	// Kind identifies the manager ("systemd", "launchd").
	Kind() string

	// IsAvailable reports whether the manager is usable on this host.
	IsAvailable() bool

	// DescriptorPath returns the filesystem path of the app's descriptor.
	DescriptorPath(app App) string

	// WriteDescriptor renders the app's descriptor and writes it to
	// DescriptorPath, replacing any previous version.
	WriteDescriptor(app App) error

	// Reload makes the manager re-read descriptor files. No-op for managers
	// that read the descriptor on every load.
	Reload(ctx context.Context) error

	// Enable registers the app to start at boot.
	Enable(ctx context.Context, app App) error

	// Start starts (or restarts) the app's service.
	Start(ctx context.Context, app App) error

	// Stop stops the app's service. Returns nil if it is not running.
	Stop(ctx context.Context, app App) error

	// Disable deregisters the app from starting at boot.
	Disable(ctx context.Context, app App) error

	// Remove deletes the app's descriptor. Returns nil if it is absent.
	Remove(app App) error

	// IsActive reports whether the app's service is currently running.
	IsActive(ctx context.Context, app App) bool

	// IsInstalled reports whether the app's descriptor exists.
	IsInstalled(app App) bool
}

// ForPlatform selects the service manager for the detected host.
func ForPlatform(info platform.Info, run runner.Runner, logger *slog.Logger) (Manager, error) {
	switch info.OS {
	case platform.Linux:
		return NewSystemd(run, logger), nil
	case platform.Darwin:
		return NewLaunchd(run, logger), nil
	default:
		return nil, fmt.Errorf("%w for %q", ErrNoManager, info.OS)
	}
}
