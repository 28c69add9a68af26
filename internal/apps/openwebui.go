package apps

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"github.com/modelstack/modelstack/internal/config"
	"github.com/modelstack/modelstack/internal/platform"
	"github.com/modelstack/modelstack/internal/runner"
	"github.com/modelstack/modelstack/internal/runtimes"
	"github.com/modelstack/modelstack/internal/service"
)

// WebUI installs and describes the Open WebUI front end. It lives in a
// Python virtualenv under the configured home directory, owned by the
// invoking user rather than root.
type WebUI struct {
	cfg    *config.Config
	run    runner.Runner
	logger *slog.Logger

	// owner resolves the user the installation is attributed to.
	owner func() (*user.User, error)
}

// NewWebUI returns an installer for the web UI.
func NewWebUI(cfg *config.Config, run runner.Runner, logger *slog.Logger) *WebUI {
	return &WebUI{
		cfg:    cfg,
		run:    run,
		logger: logger.With("component", "apps", "app", "open-webui"),
		owner:  platform.InvokingUser,
	}
}

// binPath is the open-webui entry point inside the virtualenv.
func (w *WebUI) binPath() string {
	return filepath.Join(w.cfg.WebUI.Home, "venv", "bin", "open-webui")
}

// Installed reports whether the virtualenv already carries open-webui.
func (w *WebUI) Installed() bool {
	_, err := os.Stat(w.binPath())
	return err == nil
}

// Install creates the virtualenv and installs open-webui into it. An
// existing installation skips the venv and pip steps; ownership is always
// re-applied so a root-created tree ends up with the invoking user.
func (w *WebUI) Install(ctx context.Context) error {
	home := w.cfg.WebUI.Home
	if err := os.MkdirAll(home, 0o755); err != nil {
		return fmt.Errorf("apps: create %s: %w", home, err)
	}

	if w.Installed() {
		w.logger.Info("open-webui already installed", "path", w.binPath())
	} else {
		python := runtimes.PythonPath(w.run)
		if python == "" {
			return fmt.Errorf("apps: python3.11 interpreter not found")
		}

		venv := filepath.Join(home, "venv")
		pip := filepath.Join(venv, "bin", "pip")

		steps := []struct {
			desc string
			spec runner.Spec
		}{
			{"create virtualenv", runner.Spec{Name: python, Args: []string{"-m", "venv", venv}}},
			{"upgrade pip", runner.Spec{Name: pip, Args: []string{"install", "--upgrade", "pip"}}},
			{"install open-webui", runner.Spec{Name: pip, Args: []string{"install", "open-webui"}}},
		}
		for _, s := range steps {
			w.logger.Info(s.desc)
			res, err := w.run.Run(ctx, s.spec)
			if err != nil {
				return fmt.Errorf("apps: %s: %s: %w", s.desc, runner.LastLine(res.Output), err)
			}
		}
	}

	u, err := w.owner()
	if err != nil {
		return fmt.Errorf("apps: resolve invoking user: %w", err)
	}
	res, err := w.run.Run(ctx, runner.Spec{
		Name: "chown",
		Args: []string{"-R", u.Uid + ":" + u.Gid, home},
	})
	if err != nil {
		return fmt.Errorf("apps: chown %s: %s: %w", home, runner.LastLine(res.Output), err)
	}

	w.logger.Info("open-webui installed", "path", w.binPath(), "owner", u.Username)
	return nil
}

// ServiceApp describes the web UI service. On Linux the unit runs as the
// invoking user; launch daemons stay root like the rest of the system ones.
func (w *WebUI) ServiceApp(info platform.Info) (service.App, error) {
	app := service.App{
		Name:        WebUIServiceName,
		Label:       WebUIServiceLabel,
		Description: "Open WebUI Service",
		ExecPath:    w.binPath(),
		Args: []string{
			"serve",
			"--host", w.cfg.BindAddress,
			"--port", strconv.Itoa(w.cfg.WebUI.Port),
		},
		WorkingDir: w.cfg.WebUI.Home,
		Env: []string{
			"OLLAMA_BASE_URL=http://" + w.cfg.DialAddr(w.cfg.Ollama.Port),
		},
	}

	if info.OS == platform.Linux {
		u, err := w.owner()
		if err != nil {
			return service.App{}, fmt.Errorf("apps: resolve invoking user: %w", err)
		}
		app.User = u.Username
	}
	return app, nil
}
