//go:build unix

package supervisor

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// terminateProcess asks the child to exit.
func terminateProcess(p *os.Process) error {
	return p.Signal(unix.SIGTERM)
}

// exitSignal reports the signal that killed the process, if any.
func exitSignal(state *os.ProcessState) (int, bool) {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return 0, false
	}
	return int(ws.Signal()), true
}

func signalName(sig int) string {
	if name := unix.SignalName(syscall.Signal(sig)); name != "" {
		return fmt.Sprintf("%s (%d)", name, sig)
	}
	return fmt.Sprintf("signal %d", sig)
}
