package service

import (
	"strings"
	"testing"
)

func TestGenerateUnit_OllamaShape(t *testing.T) {
	output := GenerateUnit(App{
		Name:        "ollama",
		Description: "Ollama Service",
		ExecPath:    "/usr/local/bin/ollama",
		Args:        []string{"serve"},
		Env:         []string{"OLLAMA_NUM_THREADS=0", "OLLAMA_HOST=0.0.0.0:11434"},
	})

	for _, want := range []string{
		"[Unit]",
		"Description=Ollama Service",
		"After=network.target",
		"[Service]",
		"ExecStart=/usr/local/bin/ollama serve",
		"Restart=always",
		`Environment="OLLAMA_NUM_THREADS=0"`,
		`Environment="OLLAMA_HOST=0.0.0.0:11434"`,
		"[Install]",
		"WantedBy=multi-user.target",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("unit file missing %q:\n%s", want, output)
		}
	}

	if strings.Contains(output, "WorkingDirectory") {
		t.Error("unit file should omit WorkingDirectory when unset")
	}
	if strings.Contains(output, "User=") {
		t.Error("unit file should omit User when unset")
	}
}

func TestGenerateUnit_WebUIShape(t *testing.T) {
	output := GenerateUnit(App{
		Name:        "openwebui",
		Description: "Open WebUI Service",
		ExecPath:    "/opt/open-webui/venv/bin/open-webui",
		Args:        []string{"serve", "--host", "127.0.0.1", "--port", "8080"},
		WorkingDir:  "/opt/open-webui",
		User:        "alice",
		Env:         []string{"OLLAMA_BASE_URL=http://127.0.0.1:11434"},
	})

	for _, want := range []string{
		"ExecStart=/opt/open-webui/venv/bin/open-webui serve --host 127.0.0.1 --port 8080",
		"WorkingDirectory=/opt/open-webui",
		"User=alice",
		`Environment="OLLAMA_BASE_URL=http://127.0.0.1:11434"`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("unit file missing %q:\n%s", want, output)
		}
	}
}

func TestGenerateUnit_EnvOrderPreserved(t *testing.T) {
	output := GenerateUnit(App{
		Name:     "ollama",
		ExecPath: "/usr/local/bin/ollama",
		Env:      []string{"A=1", "B=2", "C=3"},
	})

	a := strings.Index(output, `Environment="A=1"`)
	b := strings.Index(output, `Environment="B=2"`)
	c := strings.Index(output, `Environment="C=3"`)
	if a < 0 || b < 0 || c < 0 || !(a < b && b < c) {
		t.Errorf("environment lines out of order:\n%s", output)
	}
}
