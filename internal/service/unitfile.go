package service

import (
	"fmt"
	"strings"
)

// GenerateUnit produces a complete systemd unit file for the app.
func GenerateUnit(app App) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[Unit]\nDescription=%s\nAfter=network.target\n\n", app.Description)

	b.WriteString("[Service]\n")
	b.WriteString("ExecStart=" + app.ExecPath)
	for _, arg := range app.Args {
		b.WriteString(" " + arg)
	}
	b.WriteString("\n")
	if app.WorkingDir != "" {
		fmt.Fprintf(&b, "WorkingDirectory=%s\n", app.WorkingDir)
	}
	b.WriteString("Restart=always\n")
	if app.User != "" {
		fmt.Fprintf(&b, "User=%s\n", app.User)
	}
	for _, kv := range app.Env {
		fmt.Fprintf(&b, "Environment=%q\n", kv)
	}

	b.WriteString("\n[Install]\nWantedBy=multi-user.target\n")
	return b.String()
}
