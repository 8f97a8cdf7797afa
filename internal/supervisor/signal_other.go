//go:build !unix

package supervisor

import (
	"fmt"
	"os"
)

// terminateProcess kills the child. Platforms without signals have no
// graceful request to send.
func terminateProcess(p *os.Process) error {
	return p.Kill()
}

func exitSignal(*os.ProcessState) (int, bool) {
	return 0, false
}

func signalName(sig int) string {
	return fmt.Sprintf("signal %d", sig)
}
