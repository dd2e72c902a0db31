package osx

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// UserHomeDir is similar to os.UserHomeDir,
// but returns the temp dir if the home dir is not found.
func UserHomeDir() string {
	hd, err := os.UserHomeDir()
	if err != nil {
		hd = filepath.Join(os.TempDir(), time.Now().Format(time.DateOnly))
	}
	return hd
}

// InlineTilde replaces the leading ~ of the given path with the home directory.
func InlineTilde(p string) string {
	if strings.HasPrefix(p, "~"+string(filepath.Separator)) {
		p = filepath.Join(UserHomeDir(), p[2:])
	}
	return p
}
