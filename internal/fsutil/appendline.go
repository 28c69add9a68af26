package fsutil

import (
	"errors"
	"os"
	"strings"
)

// AppendLineIfMissing appends line to the file at path unless an identical
// line is already present, creating the file with perm if absent. Re-running
// the caller therefore never duplicates the line.
func AppendLineIfMissing(path, line string, perm os.FileMode) error {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	trimmed := strings.TrimSpace(line)
	for _, existing := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(existing) == trimmed {
			return nil
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, perm)
	if err != nil {
		return err
	}

	entry := line + "\n"
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		entry = "\n" + entry
	}
	if _, err := f.WriteString(entry); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
