// nozzectl runs maintenance and planning commands against the nozze database
// without going through the web UI.
package main

import (
	"fmt"
	"os"

	"nozze/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	rootCmd, release := newRootCmd()
	err := rootCmd.Execute()
	if cerr := release(); cerr != nil {
		fmt.Fprintln(os.Stderr, cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}
