package platform

import (
	"os"
	"os/user"
)

// InvokingUser returns the user who launched the process, resolving through
// SUDO_USER when the provisioner was elevated via sudo. Installed files and
// services that should not run as root are attributed to this user.
func InvokingUser() (*user.User, error) {
	if name := os.Getenv("SUDO_USER"); name != "" && name != "root" {
		if u, err := user.Lookup(name); err == nil {
			return u, nil
		}
	}
	return user.Current()
}
