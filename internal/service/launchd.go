package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/modelstack/modelstack/internal/fsutil"
	"github.com/modelstack/modelstack/internal/runner"
)

// DefaultDaemonDir holds system-wide launch daemons on macOS.
const DefaultDaemonDir = "/Library/LaunchDaemons"

// launchdManager implements Manager by shelling out to launchctl.
type launchdManager struct {
	run       runner.Runner
	logger    *slog.Logger
	daemonDir string

	// chownRootWheel sets descriptor ownership; launchd refuses daemons not
	// owned by root:wheel.
	chownRootWheel func(path string) error
}

// NewLaunchd returns a Manager backed by launchd.
func NewLaunchd(run runner.Runner, logger *slog.Logger) Manager {
	return &launchdManager{
		run:       run,
		logger:    logger.With("component", "service", "manager", "launchd"),
		daemonDir: DefaultDaemonDir,
		chownRootWheel: func(path string) error {
			return os.Chown(path, 0, 0)
		},
	}
}

// Kind implements Manager.
func (m *launchdManager) Kind() string { return "launchd" }

// IsAvailable reports whether launchctl is on PATH.
func (m *launchdManager) IsAvailable() bool {
	_, err := m.run.LookPath("launchctl")
	return err == nil
}

// DescriptorPath implements Manager.
func (m *launchdManager) DescriptorPath(app App) string {
	return filepath.Join(m.daemonDir, app.Label+".plist")
}

// WriteDescriptor renders the plist, writes it atomically, and hands
// ownership to root:wheel.
func (m *launchdManager) WriteDescriptor(app App) error {
	if err := os.MkdirAll(m.daemonDir, 0o755); err != nil {
		return fmt.Errorf("service: create daemon directory: %w", err)
	}
	content := GeneratePlist(app)
	path := m.DescriptorPath(app)
	if err := fsutil.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("service: write plist: %w", err)
	}
	if err := m.chownRootWheel(path); err != nil {
		return fmt.Errorf("service: chown plist %s: %w", path, err)
	}
	m.logger.Info("plist written", "path", path)
	return nil
}

// Reload is a no-op: launchctl load reads the plist directly.
func (m *launchdManager) Reload(context.Context) error { return nil }

// Enable is a no-op: a loaded launch daemon with RunAtLoad starts at boot.
func (m *launchdManager) Enable(_ context.Context, app App) error {
	m.logger.Debug("launch daemons start at boot once loaded", "label", app.Label)
	return nil
}

// Start loads the daemon, unloading a stale instance first so a rewritten
// plist takes effect.
func (m *launchdManager) Start(ctx context.Context, app App) error {
	path := m.DescriptorPath(app)
	if m.IsActive(ctx, app) {
		if err := m.launchctl(ctx, "unload", path); err != nil {
			return err
		}
	}
	return m.launchctl(ctx, "load", path)
}

// Stop unloads the daemon. Returns nil if it is not loaded.
func (m *launchdManager) Stop(ctx context.Context, app App) error {
	if !m.IsActive(ctx, app) {
		return nil
	}
	return m.launchctl(ctx, "unload", m.DescriptorPath(app))
}

// Disable unloads the daemon so it no longer starts at boot.
func (m *launchdManager) Disable(ctx context.Context, app App) error {
	return m.Stop(ctx, app)
}

// Remove deletes the plist.
func (m *launchdManager) Remove(app App) error {
	path := m.DescriptorPath(app)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("service: remove plist: %w", err)
	}
	m.logger.Info("plist removed", "path", path)
	return nil
}

// IsActive reports whether launchd knows the job.
func (m *launchdManager) IsActive(ctx context.Context, app App) bool {
	_, err := m.run.Run(ctx, runner.Spec{
		Name: "launchctl",
		Args: []string{"list", app.Label},
	})
	return err == nil
}

// IsInstalled reports whether the plist exists.
func (m *launchdManager) IsInstalled(app App) bool {
	_, err := os.Stat(m.DescriptorPath(app))
	return err == nil
}

func (m *launchdManager) launchctl(ctx context.Context, args ...string) error {
	res, err := m.run.Run(ctx, runner.Spec{Name: "launchctl", Args: args})
	if err != nil {
		return fmt.Errorf("service: launchctl %s: %s: %w", args[0], runner.LastLine(res.Output), err)
	}
	return nil
}
