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

// DefaultUnitDir is where systemd looks for administrator-provided units.
const DefaultUnitDir = "/etc/systemd/system"

// systemdManager implements Manager by shelling out to systemctl.
type systemdManager struct {
	run     runner.Runner
	logger  *slog.Logger
	unitDir string
}

// NewSystemd returns a Manager backed by systemd.
func NewSystemd(run runner.Runner, logger *slog.Logger) Manager {
	return &systemdManager{
		run:     run,
		logger:  logger.With("component", "service", "manager", "systemd"),
		unitDir: DefaultUnitDir,
	}
}

// Kind implements Manager.
func (m *systemdManager) Kind() string { return "systemd" }

// IsAvailable reports whether systemctl is on PATH.
func (m *systemdManager) IsAvailable() bool {
	_, err := m.run.LookPath("systemctl")
	return err == nil
}

// unitName returns the systemd unit name for the app.
func unitName(app App) string {
	return app.Name + ".service"
}

// DescriptorPath implements Manager.
func (m *systemdManager) DescriptorPath(app App) string {
	return filepath.Join(m.unitDir, unitName(app))
}

// WriteDescriptor renders the unit file and writes it atomically, so systemd
// never reads a half-written unit.
func (m *systemdManager) WriteDescriptor(app App) error {
	if err := os.MkdirAll(m.unitDir, 0o755); err != nil {
		return fmt.Errorf("service: create unit directory: %w", err)
	}
	content := GenerateUnit(app)
	if err := fsutil.WriteFileAtomic(m.DescriptorPath(app), []byte(content), 0o644); err != nil {
		return fmt.Errorf("service: write unit file: %w", err)
	}
	m.logger.Info("unit file written", "path", m.DescriptorPath(app))
	return nil
}

// Reload runs systemctl daemon-reload.
func (m *systemdManager) Reload(ctx context.Context) error {
	return m.systemctl(ctx, "daemon-reload")
}

// Enable registers the unit to start at boot.
func (m *systemdManager) Enable(ctx context.Context, app App) error {
	return m.systemctl(ctx, "enable", unitName(app))
}

// Start restarts the unit. restart rather than start keeps re-provisioning
// idempotent: a running service picks up the rewritten descriptor.
func (m *systemdManager) Start(ctx context.Context, app App) error {
	return m.systemctl(ctx, "restart", unitName(app))
}

// Stop stops the unit. systemctl stop of an inactive unit exits zero.
func (m *systemdManager) Stop(ctx context.Context, app App) error {
	return m.systemctl(ctx, "stop", unitName(app))
}

// Disable deregisters the unit from boot.
func (m *systemdManager) Disable(ctx context.Context, app App) error {
	return m.systemctl(ctx, "disable", unitName(app))
}

// Remove deletes the unit file.
func (m *systemdManager) Remove(app App) error {
	path := m.DescriptorPath(app)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("service: remove unit file: %w", err)
	}
	m.logger.Info("unit file removed", "path", path)
	return nil
}

// IsActive reports whether the unit is running.
func (m *systemdManager) IsActive(ctx context.Context, app App) bool {
	_, err := m.run.Run(ctx, runner.Spec{
		Name: "systemctl",
		Args: []string{"is-active", "--quiet", unitName(app)},
	})
	return err == nil
}

// IsInstalled reports whether the unit file exists.
func (m *systemdManager) IsInstalled(app App) bool {
	_, err := os.Stat(m.DescriptorPath(app))
	return err == nil
}

func (m *systemdManager) systemctl(ctx context.Context, args ...string) error {
	res, err := m.run.Run(ctx, runner.Spec{Name: "systemctl", Args: args})
	if err != nil {
		return fmt.Errorf("service: systemctl %s: %s: %w", args[0], runner.LastLine(res.Output), err)
	}
	return nil
}
