package pkgmgr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/modelstack/modelstack/internal/fsutil"
	"github.com/modelstack/modelstack/internal/platform"
	"github.com/modelstack/modelstack/internal/runner"
)

// brewInstallScriptURL is the official Homebrew bootstrap script.
const brewInstallScriptURL = "https://raw.githubusercontent.com/Homebrew/install/HEAD/install.sh"

const (
	armBrewPrefix   = "/opt/homebrew"
	intelBrewPrefix = "/usr/local"
)

// Brew implements Manager using Homebrew. Homebrew refuses to run as root,
// so every brew invocation is performed as the invoking (pre-sudo) user.
type Brew struct {
	run    runner.Runner
	logger *slog.Logger

	arch string
	user string
	home string
	uid  int
	gid  int
}

// NewBrew returns a Homebrew-backed Manager for the invoking user.
func NewBrew(info platform.Info, run runner.Runner, logger *slog.Logger) (*Brew, error) {
	u, err := platform.InvokingUser()
	if err != nil {
		return nil, fmt.Errorf("pkgmgr: resolve invoking user: %w", err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return nil, fmt.Errorf("pkgmgr: parse uid %q: %w", u.Uid, err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return nil, fmt.Errorf("pkgmgr: parse gid %q: %w", u.Gid, err)
	}
	return &Brew{
		run:    run,
		logger: logger.With("component", "pkgmgr", "manager", "homebrew"),
		arch:   info.Arch,
		user:   u.Username,
		home:   u.HomeDir,
		uid:    uid,
		gid:    gid,
	}, nil
}

// Name implements Manager.
func (b *Brew) Name() string { return "homebrew" }

// prefix returns the Homebrew installation prefix for the architecture.
func (b *Brew) prefix() string {
	if strings.HasPrefix(b.arch, "arm") {
		return armBrewPrefix
	}
	return intelBrewPrefix
}

// brewPath resolves the brew binary, falling back to the fixed prefix when a
// fresh install is not on PATH yet.
func (b *Brew) brewPath() string {
	if p, err := b.run.LookPath("brew"); err == nil {
		return p
	}
	return filepath.Join(b.prefix(), "bin", "brew")
}

// IsAvailable reports whether brew is installed.
func (b *Brew) IsAvailable() bool {
	if _, err := b.run.LookPath("brew"); err == nil {
		return true
	}
	_, err := b.run.LookPath(filepath.Join(b.prefix(), "bin", "brew"))
	return err == nil
}

// Bootstrap installs Homebrew via the official install script when absent.
func (b *Brew) Bootstrap(ctx context.Context) error {
	if b.IsAvailable() {
		b.logger.Info("homebrew already installed", "prefix", b.prefix())
		return nil
	}

	b.logger.Info("installing homebrew", "prefix", b.prefix(), "user", b.user)
	res, err := b.run.Run(ctx, runner.Spec{
		Name: "/bin/bash",
		Args: []string{"-c", "curl -fsSL " + brewInstallScriptURL + " | /bin/bash"},
		Env:  []string{"NONINTERACTIVE=1"},
		User: b.user,
	})
	if err != nil {
		return fmt.Errorf("pkgmgr: homebrew bootstrap: %s: %w", runner.LastLine(res.Output), err)
	}

	// Later shells need the prefix on PATH; this process uses brewPath directly.
	if err := b.appendPathLine(); err != nil {
		b.logger.Warn("could not update shell profile", "error", err)
	}
	return nil
}

func (b *Brew) appendPathLine() error {
	zshrc := filepath.Join(b.home, ".zshrc")
	line := fmt.Sprintf("export PATH=%s/bin:$PATH", b.prefix())

	_, statErr := os.Stat(zshrc)
	created := errors.Is(statErr, os.ErrNotExist)

	if err := fsutil.AppendLineIfMissing(zshrc, line, 0o644); err != nil {
		return err
	}
	if created {
		return os.Chown(zshrc, b.uid, b.gid)
	}
	return nil
}

// Update runs brew update.
func (b *Brew) Update(ctx context.Context) error {
	return b.brew(ctx, "update")
}

// Install runs brew install for the named packages.
func (b *Brew) Install(ctx context.Context, pkgs ...string) error {
	if len(pkgs) == 0 {
		return nil
	}
	b.logger.Info("installing packages", "packages", pkgs)
	return b.brew(ctx, append([]string{"install"}, pkgs...)...)
}

func (b *Brew) brew(ctx context.Context, args ...string) error {
	res, err := b.run.Run(ctx, runner.Spec{
		Name: b.brewPath(),
		Args: args,
		User: b.user,
	})
	if err != nil {
		return fmt.Errorf("pkgmgr: brew %s: %s: %w", args[0], runner.LastLine(res.Output), err)
	}
	return nil
}
