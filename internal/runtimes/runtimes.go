// Package runtimes ensures the language runtimes the applications need:
// Python 3.11 for the web UI and Node.js 20 for its frontend tooling.
// A runtime whose installed version already satisfies its constraint is
// left untouched.
package runtimes

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/Masterminds/semver/v3"

	"github.com/modelstack/modelstack/internal/config"
	"github.com/modelstack/modelstack/internal/pkgmgr"
	"github.com/modelstack/modelstack/internal/platform"
	"github.com/modelstack/modelstack/internal/runner"
)

// nodesourceSetupURL is the NodeSource repository setup script for Node 20.
const nodesourceSetupURL = "https://deb.nodesource.com/setup_20.x"

// versionPattern extracts a dotted version from tool output such as
// "Python 3.11.4" or "v20.11.1".
var versionPattern = regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?)`)

// pythonCandidates are checked in order when python3.11 is not on PATH.
// Homebrew's python@3.11 is keg-only and never linked into the default PATH.
var pythonCandidates = []string{
	"python3.11",
	"/opt/homebrew/opt/python@3.11/bin/python3.11",
	"/usr/local/opt/python@3.11/bin/python3.11",
	"/usr/bin/python3.11",
}

// nodeCandidates mirror pythonCandidates for the keg-only node@20 formula.
var nodeCandidates = []string{
	"node",
	"/opt/homebrew/opt/node@20/bin/node",
	"/usr/local/opt/node@20/bin/node",
	"/usr/bin/node",
}

// PythonPath resolves the python3.11 interpreter, or returns "" if absent.
func PythonPath(run runner.Runner) string {
	return firstPath(run, pythonCandidates)
}

// NodePath resolves the node binary, or returns "" if absent.
func NodePath(run runner.Runner) string {
	return firstPath(run, nodeCandidates)
}

func firstPath(run runner.Runner, candidates []string) string {
	for _, c := range candidates {
		if p, err := run.LookPath(c); err == nil {
			return p
		}
	}
	return ""
}

// Ensurer probes and installs language runtimes.
type Ensurer struct {
	run    runner.Runner
	logger *slog.Logger
}

// NewEnsurer returns an Ensurer using the given command runner.
func NewEnsurer(run runner.Runner, logger *slog.Logger) *Ensurer {
	return &Ensurer{
		run:    run,
		logger: logger.With("component", "runtimes"),
	}
}

// EnsureAll installs the base dependencies and both language runtimes.
func (e *Ensurer) EnsureAll(ctx context.Context, info platform.Info, mgr pkgmgr.Manager, cfg config.RuntimesConfig) error {
	if err := mgr.Install(ctx, "curl", "git"); err != nil {
		return fmt.Errorf("runtimes: install base dependencies: %w", err)
	}
	if err := e.ensurePython(ctx, info, mgr, cfg.Python); err != nil {
		return err
	}
	if err := e.ensureNode(ctx, info, mgr, cfg.Node); err != nil {
		return err
	}
	return nil
}

func (e *Ensurer) ensurePython(ctx context.Context, info platform.Info, mgr pkgmgr.Manager, constraint string) error {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("runtimes: python constraint %q: %w", constraint, err)
	}

	if v, ok := e.probeVersion(ctx, PythonPath(e.run)); ok && c.Check(v) {
		e.logger.Info("python already satisfies constraint", "version", v, "constraint", constraint)
		return nil
	}

	e.logger.Info("installing python 3.11")
	switch info.OS {
	case platform.Darwin:
		if err := mgr.Install(ctx, "python@3.11"); err != nil {
			return fmt.Errorf("runtimes: install python: %w", err)
		}
	case platform.Linux:
		if err := mgr.Install(ctx, "software-properties-common"); err != nil {
			return fmt.Errorf("runtimes: install python prerequisites: %w", err)
		}
		res, err := e.run.Run(ctx, runner.Spec{
			Name: "add-apt-repository",
			Args: []string{"-y", "ppa:deadsnakes/ppa"},
		})
		if err != nil {
			return fmt.Errorf("runtimes: add deadsnakes ppa: %s: %w", runner.LastLine(res.Output), err)
		}
		if err := mgr.Update(ctx); err != nil {
			return fmt.Errorf("runtimes: refresh package index: %w", err)
		}
		if err := mgr.Install(ctx, "python3.11", "python3.11-dev", "python3.11-venv"); err != nil {
			return fmt.Errorf("runtimes: install python: %w", err)
		}
	}

	v, ok := e.probeVersion(ctx, PythonPath(e.run))
	if !ok {
		return fmt.Errorf("runtimes: python3.11 not found after install")
	}
	if !c.Check(v) {
		return fmt.Errorf("runtimes: installed python %s does not satisfy %q", v, constraint)
	}
	e.logger.Info("python installed", "version", v)
	return nil
}

func (e *Ensurer) ensureNode(ctx context.Context, info platform.Info, mgr pkgmgr.Manager, constraint string) error {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("runtimes: node constraint %q: %w", constraint, err)
	}

	if v, ok := e.probeVersion(ctx, NodePath(e.run)); ok && c.Check(v) {
		e.logger.Info("node already satisfies constraint", "version", v, "constraint", constraint)
		return nil
	}

	e.logger.Info("installing node 20")
	switch info.OS {
	case platform.Darwin:
		if err := mgr.Install(ctx, "node@20"); err != nil {
			return fmt.Errorf("runtimes: install node: %w", err)
		}
	case platform.Linux:
		res, err := e.run.Run(ctx, runner.Spec{
			Name: "/bin/bash",
			Args: []string{"-c", "curl -fsSL " + nodesourceSetupURL + " | bash -"},
		})
		if err != nil {
			return fmt.Errorf("runtimes: nodesource setup: %s: %w", runner.LastLine(res.Output), err)
		}
		if err := mgr.Install(ctx, "nodejs"); err != nil {
			return fmt.Errorf("runtimes: install node: %w", err)
		}
	}

	v, ok := e.probeVersion(ctx, NodePath(e.run))
	if !ok {
		return fmt.Errorf("runtimes: node not found after install")
	}
	if !c.Check(v) {
		return fmt.Errorf("runtimes: installed node %s does not satisfy %q", v, constraint)
	}
	e.logger.Info("node installed", "version", v)
	return nil
}

// probeVersion runs `<bin> --version` and parses the reported version.
// A missing binary or unparseable output yields ok=false.
func (e *Ensurer) probeVersion(ctx context.Context, bin string) (*semver.Version, bool) {
	if bin == "" {
		return nil, false
	}
	res, err := e.run.Run(ctx, runner.Spec{Name: bin, Args: []string{"--version"}})
	if err != nil {
		return nil, false
	}
	m := versionPattern.FindString(res.Output)
	if m == "" {
		return nil, false
	}
	v, err := semver.NewVersion(m)
	if err != nil {
		return nil, false
	}
	return v, true
}
