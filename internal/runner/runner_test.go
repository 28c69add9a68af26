package runner

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeScript creates an executable shell script in a temp dir and returns its path.
func writeScript(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "script.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+content), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestRun_CapturesCombinedOutput(t *testing.T) {
	script := writeScript(t, "echo out-line\necho err-line >&2\n")
	r := New(testLogger())

	res, err := r.Run(context.Background(), Spec{Name: script})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", res.ExitCode)
	}
	if !strings.Contains(res.Output, "out-line") {
		t.Errorf("output missing stdout line: %q", res.Output)
	}
	if !strings.Contains(res.Output, "err-line") {
		t.Errorf("output missing stderr line: %q", res.Output)
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	script := writeScript(t, "echo boom >&2\nexit 3\n")
	r := New(testLogger())

	res, err := r.Run(context.Background(), Spec{Name: script})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if res.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", res.ExitCode)
	}
	if !strings.Contains(res.Output, "boom") {
		t.Errorf("output should be captured on failure: %q", res.Output)
	}
}

func TestRun_CommandNotFound(t *testing.T) {
	r := New(testLogger())

	res, err := r.Run(context.Background(), Spec{Name: "/nonexistent/command"})
	if err == nil {
		t.Fatal("expected error for missing command")
	}
	if res.ExitCode != -1 {
		t.Errorf("expected exit code -1 for missing command, got %d", res.ExitCode)
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	script := writeScript(t, "sleep 30\n")
	r := New(testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := r.Run(ctx, Spec{Name: script})
	if err == nil {
		t.Fatal("expected error after context cancellation")
	}
}

func TestRun_AppendsEnv(t *testing.T) {
	script := writeScript(t, "echo \"value=$PROVISION_TEST_VAR\"\n")
	r := New(testLogger())

	res, err := r.Run(context.Background(), Spec{
		Name: script,
		Env:  []string{"PROVISION_TEST_VAR=hello"},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !strings.Contains(res.Output, "value=hello") {
		t.Errorf("env var not passed to command: %q", res.Output)
	}
}

func TestRun_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, "pwd\n")
	r := New(testLogger())

	res, err := r.Run(context.Background(), Spec{Name: script, Dir: dir})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !strings.Contains(res.Output, filepath.Base(dir)) {
		t.Errorf("command did not run in %q: %q", dir, res.Output)
	}
}

func TestRun_TruncatesLongOutput(t *testing.T) {
	script := writeScript(t, "head -c 100000 /dev/zero | tr '\\0' 'a'\n")
	r := New(testLogger())

	res, err := r.Run(context.Background(), Spec{Name: script})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !strings.HasSuffix(res.Output, truncMarker) {
		t.Error("expected truncation marker on oversized output")
	}
	if len(res.Output) > maxOutputBytes+len(truncMarker) {
		t.Errorf("output exceeds cap: %d bytes", len(res.Output))
	}
}

func TestBuildCommand(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		name, args := buildCommand(Spec{Name: "apt-get", Args: []string{"install", "-y", "curl"}})
		if name != "apt-get" {
			t.Errorf("expected apt-get, got %q", name)
		}
		if strings.Join(args, " ") != "install -y curl" {
			t.Errorf("unexpected args: %v", args)
		}
	})

	t.Run("as user wraps in sudo", func(t *testing.T) {
		name, args := buildCommand(Spec{
			Name: "brew",
			Args: []string{"install", "ollama"},
			Env:  []string{"NONINTERACTIVE=1"},
			User: "alice",
		})
		if name != "sudo" {
			t.Errorf("expected sudo, got %q", name)
		}
		want := "-u alice -H NONINTERACTIVE=1 brew install ollama"
		if strings.Join(args, " ") != want {
			t.Errorf("expected %q, got %q", want, strings.Join(args, " "))
		}
	})
}

func TestLookPath(t *testing.T) {
	r := New(testLogger())

	if _, err := r.LookPath("sh"); err != nil {
		t.Errorf("sh should be on PATH: %v", err)
	}
	if _, err := r.LookPath("definitely-not-a-real-binary-xyz"); err == nil {
		t.Error("expected error for unknown binary")
	}
}

func TestLastLine(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		expect string
	}{
		{"empty", "", ""},
		{"single", "one line", "one line"},
		{"multi", "first\nsecond\nthird", "third"},
		{"trailing newline", "first\nlast\n", "last"},
		{"trailing blanks", "useful\n\n   \n", "useful"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LastLine(tc.input); got != tc.expect {
				t.Errorf("LastLine(%q) = %q, want %q", tc.input, got, tc.expect)
			}
		})
	}
}

func TestLimitedWriter(t *testing.T) {
	w := &limitedWriter{max: 10}

	n, err := w.Write([]byte("0123456789abcdef"))
	if err != nil {
		t.Fatalf("write error: %v", err)
	}
	if n != 16 {
		t.Errorf("writer must report all bytes written, got %d", n)
	}
	if got := w.contents(); got != "0123456789"+truncMarker {
		t.Errorf("expected capped content with marker, got %q", got)
	}
}
