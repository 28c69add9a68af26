//go:build !linux && !darwin

package platform

import "errors"

func readMemoryBytes() (uint64, error) {
	return 0, errors.New("platform: memory probe not supported on this OS")
}
