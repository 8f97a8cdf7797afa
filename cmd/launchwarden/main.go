// Command launchwarden launches one server process with an environment
// assembled from the caller's environment, a .env file, Doppler secrets and
// explicit overrides, waits for it and exits with its status.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var version = "dev"

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// exitCodeError carries the child's status out of a command so that only
// main calls os.Exit.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func execute(args []string, stdout, stderr io.Writer) int {
	if shouldRewriteArgs(args) {
		args = insertArgSeparator(args)
	}

	if args == nil {
		// cobra reads os.Args when given nil
		args = []string{}
	}

	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return 0
	}
	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	fmt.Fprintln(stderr, "Error:", err)
	return 1
}
