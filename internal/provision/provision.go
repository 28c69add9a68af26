// Package provision orchestrates the installation of the model stack:
// platform detection, package-manager bootstrap, language runtimes, the
// two applications, service registration, and endpoint verification.
// Steps run strictly in order, each external command completing before the
// next begins, and the first failure aborts the run with an error naming
// the failed step.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/modelstack/modelstack/internal/apps"
	"github.com/modelstack/modelstack/internal/config"
	"github.com/modelstack/modelstack/internal/gpu"
	"github.com/modelstack/modelstack/internal/pkgmgr"
	"github.com/modelstack/modelstack/internal/platform"
	"github.com/modelstack/modelstack/internal/probe"
	"github.com/modelstack/modelstack/internal/runner"
	"github.com/modelstack/modelstack/internal/runtimes"
	"github.com/modelstack/modelstack/internal/service"
	"github.com/modelstack/modelstack/internal/ui"
)

// verifyTimeout is how long each service gets to accept connections after
// being started.
const verifyTimeout = 30 * time.Second

// RootChecker abstracts privilege checking for testability.
type RootChecker interface {
	// IsRoot reports whether the current process has root privileges.
	IsRoot() bool
}

// realRootChecker implements RootChecker using os.Getuid.
type realRootChecker struct{}

// NewRootChecker returns a RootChecker that checks the real process UID.
func NewRootChecker() RootChecker {
	return &realRootChecker{}
}

func (realRootChecker) IsRoot() bool {
	return os.Getuid() == 0
}

// ollamaInstaller is the part of apps.Ollama the provisioner drives.
type ollamaInstaller interface {
	Install(ctx context.Context, info platform.Info) error
	ServiceApp(gpuInfo gpu.Info) service.App
	Pull(ctx context.Context, model string) error
}

// webuiInstaller is the part of apps.WebUI the provisioner drives.
type webuiInstaller interface {
	Install(ctx context.Context) error
	ServiceApp(info platform.Info) (service.App, error)
}

// Provisioner drives the installation, removal, and inspection of the
// model stack.
type Provisioner struct {
	cfg    *config.Config
	run    runner.Runner
	root   RootChecker
	out    *ui.Printer
	logger *slog.Logger

	// DryRun prints the step plan without executing it.
	DryRun bool

	// Collaborator factories, replaced by fakes in tests.
	detect         func() (platform.Info, error)
	pickPkgMgr     func(info platform.Info) (pkgmgr.Manager, error)
	pickSvcMgr     func(info platform.Info) (service.Manager, error)
	detectGPU      func(ctx context.Context) gpu.Info
	ensureRuntimes func(ctx context.Context, info platform.Info, mgr pkgmgr.Manager) error
	newOllama      func(mgr pkgmgr.Manager) ollamaInstaller
	newWebUI       func() webuiInstaller
	waitFor        func(ctx context.Context, addr string, timeout time.Duration) error
	reachable      func(ctx context.Context, addr string) bool
}

// New returns a Provisioner wired to the real host.
func New(cfg *config.Config, run runner.Runner, root RootChecker, out *ui.Printer, logger *slog.Logger) *Provisioner {
	p := &Provisioner{
		cfg:    cfg,
		run:    run,
		root:   root,
		out:    out,
		logger: logger.With("component", "provision"),
	}
	p.detect = func() (platform.Info, error) {
		return platform.NewDetector(logger).Detect()
	}
	p.pickPkgMgr = func(info platform.Info) (pkgmgr.Manager, error) {
		return pkgmgr.ForPlatform(info, run, logger)
	}
	p.pickSvcMgr = func(info platform.Info) (service.Manager, error) {
		return service.ForPlatform(info, run, logger)
	}
	p.detectGPU = func(ctx context.Context) gpu.Info {
		return gpu.Detect(ctx, run, logger)
	}
	p.ensureRuntimes = func(ctx context.Context, info platform.Info, mgr pkgmgr.Manager) error {
		return runtimes.NewEnsurer(run, logger).EnsureAll(ctx, info, mgr, cfg.Runtimes)
	}
	p.newOllama = func(mgr pkgmgr.Manager) ollamaInstaller {
		return apps.NewOllama(cfg, run, mgr, logger)
	}
	p.newWebUI = func() webuiInstaller {
		return apps.NewWebUI(cfg, run, logger)
	}
	p.waitFor = probe.WaitReachable
	p.reachable = func(ctx context.Context, addr string) bool {
		return probe.CheckHTTP(ctx, "http://"+addr) == nil
	}
	return p
}

// step is one named unit of the provisioning sequence. The name appears in
// the error when the step fails.
type step struct {
	name string
	run  func(ctx context.Context) error
}

// Install runs the full provisioning sequence and prints access
// instructions on success. A dry run skips the privilege check since it
// only prints the plan.
func (p *Provisioner) Install(ctx context.Context) error {
	if !p.root.IsRoot() && !p.DryRun {
		return errors.New("provision: install requires root privileges")
	}

	info, err := p.detect()
	if err != nil {
		return fmt.Errorf("provision: step %q: %w", "detect platform", err)
	}
	p.out.Stepf("Detected %s (%s, %d CPUs)", info.Pretty, info.Arch, info.CPUCount)

	steps := p.steps(info)
	if p.DryRun {
		p.out.Plainf("Planned steps for %s:", info.Pretty)
		for i, s := range steps {
			p.out.Plainf("  %d. %s", i+1, s.name)
		}
		return nil
	}

	for _, s := range steps {
		p.logger.Info("step started", "step", s.name)
		if err := s.run(ctx); err != nil {
			p.out.Failf("%s failed", s.name)
			return fmt.Errorf("provision: step %q: %w", s.name, err)
		}
		p.logger.Info("step completed", "step", s.name)
	}

	p.printAccess()
	return nil
}

// steps builds the ordered step list for the detected platform. State
// produced by one step (package manager, GPU report, service apps) flows to
// later ones through the shared closure variables.
func (p *Provisioner) steps(info platform.Info) []step {
	var (
		mgr       pkgmgr.Manager
		svc       service.Manager
		gpuInfo   gpu.Info
		ollama    ollamaInstaller
		webui     webuiInstaller
		ollamaApp service.App
		webuiApp  service.App
	)

	steps := []step{
		{"bootstrap package manager", func(ctx context.Context) error {
			var err error
			mgr, err = p.pickPkgMgr(info)
			if err != nil {
				return err
			}
			p.out.Stepf("Preparing %s", mgr.Name())
			return mgr.Bootstrap(ctx)
		}},
		{"install runtimes", func(ctx context.Context) error {
			p.out.Stepf("Installing base dependencies and language runtimes")
			return p.ensureRuntimes(ctx, info, mgr)
		}},
	}

	if info.OS == platform.Linux {
		steps = append(steps, step{"detect gpu", func(ctx context.Context) error {
			gpuInfo = p.detectGPU(ctx)
			if gpuInfo.Present {
				p.out.Successf("NVIDIA GPU detected: %s (%d MiB)", gpuInfo.Name, gpuInfo.MemoryMiB)
			}
			return nil
		}})
	}

	steps = append(steps,
		step{"install ollama", func(ctx context.Context) error {
			p.out.Stepf("Installing Ollama")
			ollama = p.newOllama(mgr)
			return ollama.Install(ctx, info)
		}},
		step{"install open-webui", func(ctx context.Context) error {
			p.out.Stepf("Installing Open WebUI")
			webui = p.newWebUI()
			return webui.Install(ctx)
		}},
		step{"write service descriptors", func(ctx context.Context) error {
			var err error
			svc, err = p.pickSvcMgr(info)
			if err != nil {
				return err
			}
			if !svc.IsAvailable() {
				return fmt.Errorf("%s is not available on this host", svc.Kind())
			}
			if p.cfg.Exposed() {
				p.out.Warnf("services will accept connections from other machines on %s and %s", p.cfg.OllamaAddr(), p.cfg.WebUIAddr())
				p.logger.Warn("services exposed beyond loopback", "bind_address", p.cfg.BindAddress)
			}
			p.out.Stepf("Registering services with %s", svc.Kind())
			ollamaApp = ollama.ServiceApp(gpuInfo)
			webuiApp, err = webui.ServiceApp(info)
			if err != nil {
				return err
			}
			for _, app := range []service.App{ollamaApp, webuiApp} {
				if err := svc.WriteDescriptor(app); err != nil {
					return err
				}
			}
			return nil
		}},
		step{"start services", func(ctx context.Context) error {
			p.out.Stepf("Starting services")
			if err := svc.Reload(ctx); err != nil {
				return err
			}
			for _, app := range []service.App{ollamaApp, webuiApp} {
				if err := svc.Enable(ctx, app); err != nil {
					return fmt.Errorf("enable %s: %w", app.Name, err)
				}
				if err := svc.Start(ctx, app); err != nil {
					return fmt.Errorf("start %s: %w", app.Name, err)
				}
			}
			return nil
		}},
		step{"verify endpoints", func(ctx context.Context) error {
			p.out.Stepf("Waiting for services to come up")
			for _, target := range []struct {
				name string
				port int
			}{
				{apps.OllamaServiceName, p.cfg.Ollama.Port},
				{apps.WebUIServiceName, p.cfg.WebUI.Port},
			} {
				addr := p.probeAddr(target.port)
				if err := p.waitFor(ctx, addr, verifyTimeout); err != nil {
					return fmt.Errorf("%s: %w", target.name, err)
				}
			}
			return nil
		}},
	)

	if len(p.cfg.Models) > 0 {
		steps = append(steps, step{"preload models", func(ctx context.Context) error {
			for _, m := range p.cfg.Models {
				p.out.Stepf("Pulling model %s", m)
				if err := ollama.Pull(ctx, m); err != nil {
					return err
				}
			}
			return nil
		}})
	}

	return steps
}

// probeAddr returns the address local checks dial for a service port.
// A wildcard bind is probed over loopback.
func (p *Provisioner) probeAddr(port int) string {
	return p.cfg.DialAddr(port)
}

func (p *Provisioner) printAccess() {
	p.out.Successf("Installation complete")
	p.out.Plainf("Access Open WebUI at http://%s", p.probeAddr(p.cfg.WebUI.Port))
	p.out.Plainf("Ollama API is listening at http://%s", p.probeAddr(p.cfg.Ollama.Port))
	if len(p.cfg.Models) == 0 {
		p.out.Plainf("To download a model: ollama pull llama3")
	}
}

// managedApps returns the descriptor identities of both services, in
// dependency order: the model server first, the web UI that fronts it
// second.
func managedApps() []service.App {
	return []service.App{
		{Name: apps.OllamaServiceName, Label: apps.OllamaServiceLabel, Description: "Ollama Service"},
		{Name: apps.WebUIServiceName, Label: apps.WebUIServiceLabel, Description: "Open WebUI Service"},
	}
}
