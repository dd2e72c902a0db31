//go:build windows

package signalx

import (
	"os"
	"syscall"
)

var sigs = []os.Signal{os.Interrupt, syscall.SIGTERM}
