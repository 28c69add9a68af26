// Package pkgmgr drives the host's native package manager: apt on
// Debian-family Linux, Homebrew on macOS.
package pkgmgr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelstack/modelstack/internal/platform"
	"github.com/modelstack/modelstack/internal/runner"
)

// ErrNoManager indicates no supported package manager is available for the host.
var ErrNoManager = errors.New("pkgmgr: no supported package manager")

// Manager abstracts a native package manager. Install must be safe to repeat
// for packages that are already present.
type Manager interface {
	// Name identifies the manager ("apt", "homebrew").
	Name() string

	// IsAvailable reports whether the manager is usable on this host.
	IsAvailable() bool

	// Bootstrap readies the manager, installing it first where that is
	// supported. Returns an error wrapping ErrNoManager when the manager
	// cannot be made available.
	Bootstrap(ctx context.Context) error

	// Update refreshes the package index.
	Update(ctx context.Context) error

	// Install installs the named packages.
	Install(ctx context.Context, pkgs ...string) error
}

// ForPlatform selects the package manager for the detected host.
func ForPlatform(info platform.Info, run runner.Runner, logger *slog.Logger) (Manager, error) {
	switch info.OS {
	case platform.Darwin:
		return NewBrew(info, run, logger)
	case platform.Linux:
		return NewApt(run, logger), nil
	default:
		return nil, fmt.Errorf("%w for %q", ErrNoManager, info.OS)
	}
}
