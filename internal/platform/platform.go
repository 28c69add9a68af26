// Package platform detects the host operating system and decides whether the
// provisioner supports it. Supported targets are macOS and Debian-family
// Linux; everything else fails fast before any installation step runs.
package platform

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

// ErrUnsupported indicates the host OS or distribution is not supported.
var ErrUnsupported = errors.New("platform: unsupported operating system")

// OS identifies a supported operating system.
type OS string

const (
	// Darwin is macOS.
	Darwin OS = "darwin"
	// Linux is a Debian-family Linux distribution.
	Linux OS = "linux"
)

// Info describes the detected host.
type Info struct {
	// OS is the operating system tag.
	OS OS

	// Family is the distribution family on Linux ("debian"). Empty on macOS.
	Family string

	// Distribution is the os-release ID on Linux (e.g. "ubuntu"). Empty on macOS.
	Distribution string

	// Pretty is a human-readable platform name.
	Pretty string

	// Arch is the machine architecture (runtime.GOARCH).
	Arch string

	// CPUCount is the number of logical CPUs.
	CPUCount int

	// MemoryBytes is the total physical memory, or 0 if the probe failed.
	MemoryBytes uint64
}

// Detector probes the host platform.
type Detector struct {
	goos          string
	arch          string
	osReleasePath string
	memory        func() (uint64, error)
	logger        *slog.Logger
}

// NewDetector returns a Detector wired to the real host.
func NewDetector(logger *slog.Logger) *Detector {
	return &Detector{
		goos:          runtime.GOOS,
		arch:          runtime.GOARCH,
		osReleasePath: "/etc/os-release",
		memory:        readMemoryBytes,
		logger:        logger.With("component", "platform"),
	}
}

// Detect identifies the host and returns its Info. Unsupported hosts yield
// an error wrapping ErrUnsupported.
func (d *Detector) Detect() (Info, error) {
	info := Info{
		Arch:     d.arch,
		CPUCount: runtime.NumCPU(),
	}

	switch d.goos {
	case "darwin":
		info.OS = Darwin
		info.Pretty = "macOS"
	case "linux":
		rel, err := parseOSRelease(d.osReleasePath)
		if err != nil {
			return Info{}, fmt.Errorf("platform: read os-release: %w", err)
		}
		if !isDebianFamily(rel) {
			return Info{}, fmt.Errorf("%w: %s is not a Debian-family distribution", ErrUnsupported, rel.label())
		}
		info.OS = Linux
		info.Family = "debian"
		info.Distribution = rel.ID
		info.Pretty = rel.PrettyName
	default:
		return Info{}, fmt.Errorf("%w: %s", ErrUnsupported, d.goos)
	}

	mem, err := d.memory()
	if err != nil {
		d.logger.Warn("memory probe failed", "error", err)
	} else {
		info.MemoryBytes = mem
	}

	d.logger.Info("platform detected",
		"os", info.OS,
		"distribution", info.Distribution,
		"arch", info.Arch,
		"cpus", info.CPUCount,
	)
	return info, nil
}

// osRelease holds the fields of /etc/os-release the detector cares about.
type osRelease struct {
	ID         string
	IDLike     string
	PrettyName string
}

func (r osRelease) label() string {
	if r.PrettyName != "" {
		return r.PrettyName
	}
	if r.ID != "" {
		return r.ID
	}
	return "unknown distribution"
}

// parseOSRelease reads the KEY=VALUE pairs of an os-release file.
func parseOSRelease(path string) (osRelease, error) {
	f, err := os.Open(path)
	if err != nil {
		return osRelease{}, err
	}
	defer f.Close()

	var rel osRelease
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.Trim(value, `"'`)
		switch key {
		case "ID":
			rel.ID = value
		case "ID_LIKE":
			rel.IDLike = value
		case "PRETTY_NAME":
			rel.PrettyName = value
		}
	}
	if err := scanner.Err(); err != nil {
		return osRelease{}, err
	}
	return rel, nil
}

// isDebianFamily reports whether the distribution is Debian or derives from it.
func isDebianFamily(rel osRelease) bool {
	switch rel.ID {
	case "debian", "ubuntu":
		return true
	}
	for _, like := range strings.Fields(rel.IDLike) {
		if like == "debian" || like == "ubuntu" {
			return true
		}
	}
	return false
}
