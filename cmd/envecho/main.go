// Command envecho prints selected environment variables as JSON and exits
// with a chosen status. It is the child process launchwarden's end-to-end
// tests supervise.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"
)

func main() {
	exitCode := flag.Int("exit", 0, "status to exit with")
	sleep := flag.Duration("sleep", 0, "how long to wait before exiting")
	flag.Parse()

	if err := writeVars(os.Stdout, flag.Args(), os.LookupEnv); err != nil {
		fmt.Fprintln(os.Stderr, "envecho:", err)
		os.Exit(2)
	}
	if *sleep > 0 {
		time.Sleep(*sleep)
	}
	os.Exit(*exitCode)
}

// writeVars encodes the named variables as one JSON object. Unset variables
// are null so they can be told apart from empty ones.
func writeVars(w io.Writer, names []string, lookup func(string) (string, bool)) error {
	vars := make(map[string]*string, len(names))
	for _, name := range names {
		if value, ok := lookup(name); ok {
			vars[name] = &value
		} else {
			vars[name] = nil
		}
	}
	return json.NewEncoder(w).Encode(vars)
}
