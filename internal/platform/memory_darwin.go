//go:build darwin

package platform

import "golang.org/x/sys/unix"

// readMemoryBytes returns total physical memory via the hw.memsize sysctl.
func readMemoryBytes() (uint64, error) {
	return unix.SysctlUint64("hw.memsize")
}
