// Package apps installs the two target applications, the Ollama model
// server and the Open WebUI front end. Installers are idempotent: an
// application that is already present is left alone.
package apps

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/modelstack/modelstack/internal/config"
	"github.com/modelstack/modelstack/internal/gpu"
	"github.com/modelstack/modelstack/internal/pkgmgr"
	"github.com/modelstack/modelstack/internal/platform"
	"github.com/modelstack/modelstack/internal/runner"
	"github.com/modelstack/modelstack/internal/service"
)

// Service identities. The name keys systemd units, the label keys launchd
// daemons; both are fixed so uninstall can find descriptors written by any
// earlier run.
const (
	OllamaServiceName  = "ollama"
	OllamaServiceLabel = "com.ollama.ollama"
	WebUIServiceName   = "openwebui"
	WebUIServiceLabel  = "com.openwebui"
)

// DefaultInstallScriptURL is the vendor install script for Linux.
const DefaultInstallScriptURL = "https://ollama.com/install.sh"

// maxScriptBytes caps the downloaded install script. The real script is a
// few tens of kilobytes; anything near the cap means we are not talking to
// the vendor.
const maxScriptBytes = 4 << 20

// ollamaCandidates are checked in order when resolving the installed binary.
var ollamaCandidates = []string{
	"ollama",
	"/usr/local/bin/ollama",
	"/usr/bin/ollama",
	"/opt/homebrew/bin/ollama",
}

// Ollama installs and describes the model server.
type Ollama struct {
	cfg    *config.Config
	run    runner.Runner
	mgr    pkgmgr.Manager
	logger *slog.Logger

	scriptURL string
	client    *http.Client
}

// NewOllama returns an installer for the model server.
func NewOllama(cfg *config.Config, run runner.Runner, mgr pkgmgr.Manager, logger *slog.Logger) *Ollama {
	return &Ollama{
		cfg:       cfg,
		run:       run,
		mgr:       mgr,
		logger:    logger.With("component", "apps", "app", "ollama"),
		scriptURL: DefaultInstallScriptURL,
		client:    &http.Client{},
	}
}

// BinaryPath resolves the installed ollama binary, or "" if absent. Fresh
// Homebrew and vendor-script installs land outside the provisioner's PATH,
// so well-known locations are checked after PATH.
func (o *Ollama) BinaryPath() string {
	for _, c := range ollamaCandidates {
		if p, err := o.run.LookPath(c); err == nil {
			return p
		}
	}
	return ""
}

// Install installs ollama. A present binary short-circuits the install so
// re-provisioning never re-downloads the server.
func (o *Ollama) Install(ctx context.Context, info platform.Info) error {
	if p := o.BinaryPath(); p != "" {
		o.logger.Info("ollama already installed", "path", p)
		return nil
	}

	switch info.OS {
	case platform.Darwin:
		if err := o.mgr.Install(ctx, "ollama"); err != nil {
			return fmt.Errorf("apps: install ollama: %w", err)
		}
	case platform.Linux:
		if err := o.installFromScript(ctx); err != nil {
			return err
		}
	}

	if o.BinaryPath() == "" {
		return fmt.Errorf("apps: ollama binary not found after install")
	}
	return nil
}

// installFromScript downloads the vendor install script to a temp file and
// executes it, the documented installation method on Linux.
func (o *Ollama) installFromScript(ctx context.Context) error {
	o.logger.Info("downloading install script", "url", o.scriptURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.scriptURL, nil)
	if err != nil {
		return fmt.Errorf("apps: build script request: %w", err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("apps: download install script: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("apps: download install script: unexpected status %s", resp.Status)
	}
	script, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptBytes))
	if err != nil {
		return fmt.Errorf("apps: read install script: %w", err)
	}

	f, err := os.CreateTemp("", "ollama-install-*.sh")
	if err != nil {
		return fmt.Errorf("apps: create script file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(script); err != nil {
		f.Close()
		return fmt.Errorf("apps: write script file: %w", err)
	}
	if err := f.Chmod(0o755); err != nil {
		f.Close()
		return fmt.Errorf("apps: chmod script file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("apps: close script file: %w", err)
	}

	o.logger.Info("running install script", "path", path)
	res, err := o.run.Run(ctx, runner.Spec{Name: path})
	if err != nil {
		return fmt.Errorf("apps: install script: %s: %w", runner.LastLine(res.Output), err)
	}
	return nil
}

// ServiceApp describes the model server service. GPU presence turns on the
// acceleration environment in the descriptor.
func (o *Ollama) ServiceApp(gpuInfo gpu.Info) service.App {
	env := []string{
		"OLLAMA_NUM_THREADS=0",
		"OLLAMA_HOST=" + o.cfg.OllamaAddr(),
	}
	if gpuInfo.Present {
		env = append(env, "OLLAMA_USE_GPU=1")
	}

	exec := o.BinaryPath()
	if exec == "" {
		exec = "/usr/local/bin/ollama"
	}

	return service.App{
		Name:        OllamaServiceName,
		Label:       OllamaServiceLabel,
		Description: "Ollama Service",
		ExecPath:    exec,
		Args:        []string{"serve"},
		Env:         env,
	}
}

// Pull downloads a model through the running server. The server must be
// reachable; pulls go through its API.
func (o *Ollama) Pull(ctx context.Context, model string) error {
	bin := o.BinaryPath()
	if bin == "" {
		return fmt.Errorf("apps: ollama binary not found")
	}
	res, err := o.run.Run(ctx, runner.Spec{
		Name: bin,
		Args: []string{"pull", model},
		Env:  []string{"OLLAMA_HOST=" + o.cfg.DialAddr(o.cfg.Ollama.Port)},
	})
	if err != nil {
		return fmt.Errorf("apps: pull model %s: %s: %w", model, runner.LastLine(res.Output), err)
	}
	o.logger.Info("model pulled", "model", model)
	return nil
}
