package service

import (
	"fmt"
	"strings"
)

// xmlEscaper escapes the five XML special characters in plist string values.
var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// GeneratePlist produces a complete launchd property list for the app.
// RunAtLoad and KeepAlive make launchd both start the daemon at boot and
// restart it on exit, matching the systemd Restart=always behavior.
func GeneratePlist(app App) string {
	var b strings.Builder

	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
`)

	fmt.Fprintf(&b, "    <key>Label</key>\n    <string>%s</string>\n", xmlEscaper.Replace(app.Label))

	b.WriteString("    <key>ProgramArguments</key>\n    <array>\n")
	fmt.Fprintf(&b, "        <string>%s</string>\n", xmlEscaper.Replace(app.ExecPath))
	for _, arg := range app.Args {
		fmt.Fprintf(&b, "        <string>%s</string>\n", xmlEscaper.Replace(arg))
	}
	b.WriteString("    </array>\n")

	b.WriteString("    <key>RunAtLoad</key>\n    <true/>\n")
	b.WriteString("    <key>KeepAlive</key>\n    <true/>\n")

	if len(app.Env) > 0 {
		b.WriteString("    <key>EnvironmentVariables</key>\n    <dict>\n")
		for _, kv := range app.Env {
			key, value, _ := strings.Cut(kv, "=")
			fmt.Fprintf(&b, "        <key>%s</key>\n        <string>%s</string>\n",
				xmlEscaper.Replace(key), xmlEscaper.Replace(value))
		}
		b.WriteString("    </dict>\n")
	}

	if app.WorkingDir != "" {
		fmt.Fprintf(&b, "    <key>WorkingDirectory</key>\n    <string>%s</string>\n", xmlEscaper.Replace(app.WorkingDir))
	}

	b.WriteString("</dict>\n</plist>\n")
	return b.String()
}
