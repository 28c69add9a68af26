package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Uninstall stops and deregisters both services and removes their
// descriptors. With purge, the web UI installation directory is removed as
// well. Pieces that are already absent are skipped, so re-running is safe.
// The installed applications themselves (the ollama binary, system
// packages) are left in place.
func (p *Provisioner) Uninstall(ctx context.Context, purge bool) error {
	if !p.root.IsRoot() {
		return errors.New("provision: uninstall requires root privileges")
	}

	info, err := p.detect()
	if err != nil {
		return fmt.Errorf("provision: detect platform: %w", err)
	}
	svc, err := p.pickSvcMgr(info)
	if err != nil {
		return fmt.Errorf("provision: %w", err)
	}

	// Reverse dependency order: the web UI goes down before the model
	// server it talks to.
	managed := managedApps()
	for i := len(managed) - 1; i >= 0; i-- {
		app := managed[i]
		if !svc.IsInstalled(app) {
			p.logger.Info("service not installed, nothing to remove", "service", app.Name)
			continue
		}
		p.out.Stepf("Removing %s", app.Name)
		// Stop and disable are best effort: the service may have died or
		// been disabled by hand since installation.
		if err := svc.Stop(ctx, app); err != nil {
			p.logger.Warn("stop service", "service", app.Name, "error", err)
		}
		if err := svc.Disable(ctx, app); err != nil {
			p.logger.Warn("disable service", "service", app.Name, "error", err)
		}
		if err := svc.Remove(app); err != nil {
			return fmt.Errorf("provision: remove %s: %w", app.Name, err)
		}
		p.out.Successf("%s removed", app.Name)
	}

	if err := svc.Reload(ctx); err != nil {
		return fmt.Errorf("provision: reload %s: %w", svc.Kind(), err)
	}

	if purge {
		home := p.cfg.WebUI.Home
		p.out.Stepf("Removing %s", home)
		if err := os.RemoveAll(home); err != nil {
			return fmt.Errorf("provision: remove %s: %w", home, err)
		}
	}

	p.out.Successf("Uninstall complete")
	return nil
}
