package pkgmgr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelstack/modelstack/internal/runner"
)

// Apt implements Manager using apt-get. It assumes apt is preinstalled, as it
// is on every Debian-family distribution.
type Apt struct {
	run    runner.Runner
	logger *slog.Logger
}

// NewApt returns an apt-backed Manager.
func NewApt(run runner.Runner, logger *slog.Logger) *Apt {
	return &Apt{
		run:    run,
		logger: logger.With("component", "pkgmgr", "manager", "apt"),
	}
}

// Name implements Manager.
func (a *Apt) Name() string { return "apt" }

// IsAvailable reports whether apt-get is on PATH.
func (a *Apt) IsAvailable() bool {
	_, err := a.run.LookPath("apt-get")
	return err == nil
}

// Bootstrap verifies apt is present and refreshes the package index.
// apt cannot be installed by this provisioner; its absence is fatal.
func (a *Apt) Bootstrap(ctx context.Context) error {
	if !a.IsAvailable() {
		return fmt.Errorf("%w: apt-get not found on PATH", ErrNoManager)
	}
	return a.Update(ctx)
}

// Update runs apt-get update.
func (a *Apt) Update(ctx context.Context) error {
	return a.aptGet(ctx, "update")
}

// Install runs apt-get install -y for the named packages.
func (a *Apt) Install(ctx context.Context, pkgs ...string) error {
	if len(pkgs) == 0 {
		return nil
	}
	a.logger.Info("installing packages", "packages", pkgs)
	args := append([]string{"install", "-y"}, pkgs...)
	return a.aptGet(ctx, args...)
}

func (a *Apt) aptGet(ctx context.Context, args ...string) error {
	res, err := a.run.Run(ctx, runner.Spec{
		Name: "apt-get",
		Args: args,
		Env:  []string{"DEBIAN_FRONTEND=noninteractive"},
	})
	if err != nil {
		return fmt.Errorf("pkgmgr: apt-get %s: %s: %w", args[0], runner.LastLine(res.Output), err)
	}
	return nil
}
