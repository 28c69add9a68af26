package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/modelstack/modelstack/internal/runner"
)

func newTestLaunchd(t *testing.T, fake *fakeRunner) (*launchdManager, *[]string) {
	t.Helper()
	var chowned []string
	m := &launchdManager{
		run:       fake,
		logger:    testLogger(),
		daemonDir: t.TempDir(),
		chownRootWheel: func(path string) error {
			chowned = append(chowned, path)
			return nil
		},
	}
	return m, &chowned
}

// notLoaded makes launchctl list fail so the job reads as inactive.
func notLoaded(spec runner.Spec) (runner.Result, error) {
	if len(spec.Args) > 0 && spec.Args[0] == "list" {
		return runner.Result{ExitCode: 113}, errors.New("runner: launchctl: exit status 113")
	}
	return runner.Result{}, nil
}

func TestLaunchd_WriteDescriptorChownsRootWheel(t *testing.T) {
	m, chowned := newTestLaunchd(t, &fakeRunner{})
	app := testApp()

	if err := m.WriteDescriptor(app); err != nil {
		t.Fatalf("WriteDescriptor returned error: %v", err)
	}

	path := m.DescriptorPath(app)
	if !strings.HasSuffix(path, "com.ollama.ollama.plist") {
		t.Errorf("unexpected descriptor path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read plist: %v", err)
	}
	if !strings.Contains(string(data), "<string>com.ollama.ollama</string>") {
		t.Errorf("plist missing label, got:\n%s", data)
	}
	if len(*chowned) != 1 || (*chowned)[0] != path {
		t.Errorf("expected chown of %q, got %v", path, *chowned)
	}
}

func TestLaunchd_StartLoadsWhenNotLoaded(t *testing.T) {
	fake := &fakeRunner{respond: notLoaded}
	m, _ := newTestLaunchd(t, fake)
	app := testApp()

	if err := m.Start(context.Background(), app); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	got := commandLines(fake.calls)
	want := []string{
		"launchctl list com.ollama.ollama",
		"launchctl load " + m.DescriptorPath(app),
	}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("commands = %v, want %v", got, want)
	}
}

func TestLaunchd_StartReloadsWhenLoaded(t *testing.T) {
	fake := &fakeRunner{} // every call succeeds, so the job reads as loaded
	m, _ := newTestLaunchd(t, fake)
	app := testApp()

	if err := m.Start(context.Background(), app); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	got := commandLines(fake.calls)
	path := m.DescriptorPath(app)
	want := []string{
		"launchctl list com.ollama.ollama",
		"launchctl unload " + path,
		"launchctl load " + path,
	}
	if len(got) != len(want) {
		t.Fatalf("commands = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLaunchd_StopNotLoadedIsNoop(t *testing.T) {
	fake := &fakeRunner{respond: notLoaded}
	m, _ := newTestLaunchd(t, fake)

	if err := m.Stop(context.Background(), testApp()); err != nil {
		t.Fatalf("Stop of unloaded job returned error: %v", err)
	}
	for _, line := range commandLines(fake.calls) {
		if strings.Contains(line, "unload") {
			t.Errorf("Stop of unloaded job must not unload, ran %q", line)
		}
	}
}

func TestLaunchd_RemoveIdempotent(t *testing.T) {
	m, _ := newTestLaunchd(t, &fakeRunner{})
	app := testApp()

	if err := m.WriteDescriptor(app); err != nil {
		t.Fatalf("WriteDescriptor: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := m.Remove(app); err != nil {
			t.Fatalf("Remove run %d returned error: %v", i+1, err)
		}
	}
	if m.IsInstalled(app) {
		t.Error("IsInstalled should report false after Remove")
	}
}

func TestLaunchd_ReloadIsNoop(t *testing.T) {
	fake := &fakeRunner{}
	m, _ := newTestLaunchd(t, fake)

	if err := m.Reload(context.Background()); err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Errorf("Reload must not shell out, ran %v", commandLines(fake.calls))
	}
}
