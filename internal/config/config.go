// Package config defines the provisioner configuration.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is the default configuration file location.
	DefaultPath = "/etc/modelstack/config.yaml"

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"

	// DefaultBindAddress is the address services listen on. Loopback by
	// default; set to ExposedBindAddress to serve the local network.
	DefaultBindAddress = "127.0.0.1"

	// ExposedBindAddress binds services on all interfaces.
	ExposedBindAddress = "0.0.0.0"

	// DefaultOllamaPort is the model server API port.
	DefaultOllamaPort = 11434

	// DefaultWebUIPort is the web UI port.
	DefaultWebUIPort = 8080

	// DefaultWebUIHome is the Open WebUI installation directory.
	DefaultWebUIHome = "/opt/open-webui"

	// DefaultPythonConstraint is the required Python interpreter version.
	DefaultPythonConstraint = ">= 3.11.0"

	// DefaultNodeConstraint is the required Node.js version.
	DefaultNodeConstraint = ">= 20.10.0"
)

// Config is the top-level provisioner configuration, populated from an
// optional YAML file and overridden by CLI flags.
type Config struct {
	// LogLevel is the log level: "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// BindAddress is the address both services bind to.
	// Default: 127.0.0.1
	BindAddress string `yaml:"bind_address"`

	Ollama   OllamaConfig   `yaml:"ollama"`
	WebUI    WebUIConfig    `yaml:"webui"`
	Runtimes RuntimesConfig `yaml:"runtimes"`

	// Models are pulled into the model server after it starts.
	Models []string `yaml:"models"`
}

// OllamaConfig configures the model server service.
type OllamaConfig struct {
	// Port is the API port. Default: 11434
	Port int `yaml:"port"`
}

// WebUIConfig configures the web UI service.
type WebUIConfig struct {
	// Port is the HTTP port. Default: 8080
	Port int `yaml:"port"`

	// Home is the installation directory. Default: /opt/open-webui
	Home string `yaml:"home"`
}

// RuntimesConfig holds the language runtime version constraints.
type RuntimesConfig struct {
	// Python is the required interpreter version. Default: ">= 3.11.0"
	Python string `yaml:"python"`

	// Node is the required Node.js version. Default: ">= 20.10.0"
	Node string `yaml:"node"`
}

// Default returns a Config with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.BindAddress == "" {
		c.BindAddress = DefaultBindAddress
	}
	if c.Ollama.Port == 0 {
		c.Ollama.Port = DefaultOllamaPort
	}
	if c.WebUI.Port == 0 {
		c.WebUI.Port = DefaultWebUIPort
	}
	if c.WebUI.Home == "" {
		c.WebUI.Home = DefaultWebUIHome
	}
	if c.Runtimes.Python == "" {
		c.Runtimes.Python = DefaultPythonConstraint
	}
	if c.Runtimes.Node == "" {
		c.Runtimes.Node = DefaultNodeConstraint
	}
}

// Validate checks that required fields are set and values are acceptable.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log_level %q", c.LogLevel)
	}
	if net.ParseIP(c.BindAddress) == nil {
		return fmt.Errorf("config: invalid bind_address %q", c.BindAddress)
	}
	if err := validatePort("ollama.port", c.Ollama.Port); err != nil {
		return err
	}
	if err := validatePort("webui.port", c.WebUI.Port); err != nil {
		return err
	}
	if c.Ollama.Port == c.WebUI.Port {
		return fmt.Errorf("config: ollama.port and webui.port must differ (both %d)", c.Ollama.Port)
	}
	if !filepath.IsAbs(c.WebUI.Home) {
		return fmt.Errorf("config: webui.home must be an absolute path, got %q", c.WebUI.Home)
	}
	if _, err := semver.NewConstraint(c.Runtimes.Python); err != nil {
		return fmt.Errorf("config: invalid runtimes.python constraint %q: %w", c.Runtimes.Python, err)
	}
	if _, err := semver.NewConstraint(c.Runtimes.Node); err != nil {
		return fmt.Errorf("config: invalid runtimes.node constraint %q: %w", c.Runtimes.Node, err)
	}
	for _, m := range c.Models {
		if m == "" {
			return fmt.Errorf("config: models must not contain empty names")
		}
	}
	return nil
}

// Load reads a YAML configuration file, applies defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// OllamaAddr returns the host:port the model server binds to.
func (c *Config) OllamaAddr() string {
	return net.JoinHostPort(c.BindAddress, strconv.Itoa(c.Ollama.Port))
}

// WebUIAddr returns the host:port the web UI binds to.
func (c *Config) WebUIAddr() string {
	return net.JoinHostPort(c.BindAddress, strconv.Itoa(c.WebUI.Port))
}

// Exposed reports whether the bind address serves beyond loopback.
func (c *Config) Exposed() bool {
	ip := net.ParseIP(c.BindAddress)
	return ip != nil && !ip.IsLoopback()
}

// DialAddr returns the host:port a local client uses to reach a service
// bound to BindAddress on port. A wildcard bind is dialed over loopback.
func (c *Config) DialAddr(port int) string {
	host := c.BindAddress
	if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
		host = DefaultBindAddress
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func validatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("config: %s must be between 1 and 65535, got %d", field, port)
	}
	return nil
}
