package pkgmgr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelstack/modelstack/internal/platform"
	"github.com/modelstack/modelstack/internal/runner"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRunner records command invocations and serves canned responses.
type fakeRunner struct {
	calls   []runner.Spec
	respond func(spec runner.Spec) (runner.Result, error)
	paths   map[string]string
}

func (f *fakeRunner) Run(_ context.Context, spec runner.Spec) (runner.Result, error) {
	f.calls = append(f.calls, spec)
	if f.respond != nil {
		return f.respond(spec)
	}
	return runner.Result{}, nil
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if p, ok := f.paths[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
}

func newTestBrew(t *testing.T, arch string, run runner.Runner) *Brew {
	t.Helper()
	return &Brew{
		run:    run,
		logger: testLogger(),
		arch:   arch,
		user:   "alice",
		home:   t.TempDir(),
		uid:    os.Getuid(),
		gid:    os.Getgid(),
	}
}

func TestApt_Install(t *testing.T) {
	fake := &fakeRunner{paths: map[string]string{"apt-get": "/usr/bin/apt-get"}}
	apt := NewApt(fake, testLogger())

	if err := apt.Install(context.Background(), "curl", "git"); err != nil {
		t.Fatalf("Install returned error: %v", err)
	}

	if len(fake.calls) != 1 {
		t.Fatalf("expected 1 command, got %d", len(fake.calls))
	}
	call := fake.calls[0]
	if call.Name != "apt-get" {
		t.Errorf("expected apt-get, got %q", call.Name)
	}
	if got := strings.Join(call.Args, " "); got != "install -y curl git" {
		t.Errorf("unexpected args %q", got)
	}
	if len(call.Env) != 1 || call.Env[0] != "DEBIAN_FRONTEND=noninteractive" {
		t.Errorf("expected noninteractive frontend, got %v", call.Env)
	}
}

func TestApt_InstallNothingIsNoop(t *testing.T) {
	fake := &fakeRunner{}
	apt := NewApt(fake, testLogger())

	if err := apt.Install(context.Background()); err != nil {
		t.Fatalf("Install returned error: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Errorf("expected no commands, got %d", len(fake.calls))
	}
}

func TestApt_BootstrapMissingAptGet(t *testing.T) {
	fake := &fakeRunner{}
	apt := NewApt(fake, testLogger())

	err := apt.Bootstrap(context.Background())
	if !errors.Is(err, ErrNoManager) {
		t.Fatalf("expected ErrNoManager, got %v", err)
	}
}

func TestApt_BootstrapRunsUpdate(t *testing.T) {
	fake := &fakeRunner{paths: map[string]string{"apt-get": "/usr/bin/apt-get"}}
	apt := NewApt(fake, testLogger())

	if err := apt.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap returned error: %v", err)
	}
	if len(fake.calls) != 1 || fake.calls[0].Args[0] != "update" {
		t.Errorf("expected apt-get update, got %+v", fake.calls)
	}
}

func TestApt_InstallFailureNamesPackageManager(t *testing.T) {
	fake := &fakeRunner{
		paths: map[string]string{"apt-get": "/usr/bin/apt-get"},
		respond: func(runner.Spec) (runner.Result, error) {
			return runner.Result{ExitCode: 100, Output: "Reading package lists...\nE: Unable to locate package nosuch"},
				errors.New("runner: apt-get: exit status 100")
		},
	}
	apt := NewApt(fake, testLogger())

	err := apt.Install(context.Background(), "nosuch")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "pkgmgr: apt-get install") {
		t.Errorf("error should name the failing command, got %v", err)
	}
	if !strings.Contains(err.Error(), "Unable to locate package") {
		t.Errorf("error should carry the last output line, got %v", err)
	}
}

func TestBrew_PrefixByArch(t *testing.T) {
	if got := newTestBrew(t, "arm64", &fakeRunner{}).prefix(); got != "/opt/homebrew" {
		t.Errorf("arm64 prefix = %q, want /opt/homebrew", got)
	}
	if got := newTestBrew(t, "amd64", &fakeRunner{}).prefix(); got != "/usr/local" {
		t.Errorf("amd64 prefix = %q, want /usr/local", got)
	}
}

func TestBrew_BootstrapSkipsWhenInstalled(t *testing.T) {
	fake := &fakeRunner{paths: map[string]string{"brew": "/opt/homebrew/bin/brew"}}
	brew := newTestBrew(t, "arm64", fake)

	if err := brew.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap returned error: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Errorf("expected no commands for installed brew, got %d", len(fake.calls))
	}
}

func TestBrew_BootstrapInstallsAsInvokingUser(t *testing.T) {
	fake := &fakeRunner{}
	brew := newTestBrew(t, "arm64", fake)

	if err := brew.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap returned error: %v", err)
	}

	if len(fake.calls) != 1 {
		t.Fatalf("expected 1 command, got %d", len(fake.calls))
	}
	call := fake.calls[0]
	if call.Name != "/bin/bash" {
		t.Errorf("expected /bin/bash, got %q", call.Name)
	}
	if call.User != "alice" {
		t.Errorf("bootstrap must run as the invoking user, got %q", call.User)
	}
	if len(call.Env) != 1 || call.Env[0] != "NONINTERACTIVE=1" {
		t.Errorf("expected NONINTERACTIVE=1, got %v", call.Env)
	}
	if !strings.Contains(strings.Join(call.Args, " "), brewInstallScriptURL) {
		t.Errorf("expected install script URL in command, got %v", call.Args)
	}

	// The PATH line lands in the user's shell profile.
	data, err := os.ReadFile(filepath.Join(brew.home, ".zshrc"))
	if err != nil {
		t.Fatalf("read .zshrc: %v", err)
	}
	if !strings.Contains(string(data), "export PATH=/opt/homebrew/bin:$PATH") {
		t.Errorf(".zshrc missing PATH line: %q", data)
	}
}

func TestBrew_BootstrapIdempotentShellProfile(t *testing.T) {
	fake := &fakeRunner{}
	brew := newTestBrew(t, "arm64", fake)

	for i := 0; i < 2; i++ {
		if err := brew.Bootstrap(context.Background()); err != nil {
			t.Fatalf("Bootstrap run %d returned error: %v", i+1, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(brew.home, ".zshrc"))
	if err != nil {
		t.Fatalf("read .zshrc: %v", err)
	}
	if got := strings.Count(string(data), "export PATH="); got != 1 {
		t.Errorf("expected one PATH line after re-run, got %d", got)
	}
}

func TestBrew_InstallRunsAsUserWithPrefixFallback(t *testing.T) {
	fake := &fakeRunner{} // brew not on PATH
	brew := newTestBrew(t, "amd64", fake)

	if err := brew.Install(context.Background(), "ollama"); err != nil {
		t.Fatalf("Install returned error: %v", err)
	}

	call := fake.calls[0]
	if call.Name != "/usr/local/bin/brew" {
		t.Errorf("expected prefix fallback path, got %q", call.Name)
	}
	if call.User != "alice" {
		t.Errorf("brew must run as the invoking user, got %q", call.User)
	}
	if got := strings.Join(call.Args, " "); got != "install ollama" {
		t.Errorf("unexpected args %q", got)
	}
}

func TestForPlatform(t *testing.T) {
	t.Setenv("SUDO_USER", "")

	t.Run("linux selects apt", func(t *testing.T) {
		mgr, err := ForPlatform(platform.Info{OS: platform.Linux}, &fakeRunner{}, testLogger())
		if err != nil {
			t.Fatalf("ForPlatform returned error: %v", err)
		}
		if mgr.Name() != "apt" {
			t.Errorf("expected apt, got %q", mgr.Name())
		}
	})

	t.Run("darwin selects homebrew", func(t *testing.T) {
		mgr, err := ForPlatform(platform.Info{OS: platform.Darwin, Arch: "arm64"}, &fakeRunner{}, testLogger())
		if err != nil {
			t.Fatalf("ForPlatform returned error: %v", err)
		}
		if mgr.Name() != "homebrew" {
			t.Errorf("expected homebrew, got %q", mgr.Name())
		}
	})

	t.Run("unknown platform", func(t *testing.T) {
		_, err := ForPlatform(platform.Info{}, &fakeRunner{}, testLogger())
		if !errors.Is(err, ErrNoManager) {
			t.Fatalf("expected ErrNoManager, got %v", err)
		}
	})
}
