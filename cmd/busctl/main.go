// Command busctl drives the go-bus packages from the command line: social
// login against the configured providers, GitLab API queries, JPEG-LS header
// patching, and an HTTP server that hosts the login endpoints and the GitLab
// webhook receiver.
package main

import (
	"fmt"
	"os"
)

func main() {
	Execute()
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
