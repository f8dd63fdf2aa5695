// Package main is the entry point for the bloglist API server.
//
// main stays minimal: build the command tree, parse flags, hand a
// server.Config to the server package. Every flag defaults from an
// environment variable so the binary runs the same way under a process
// manager (env only) and from a shell (flags).
//
//	JWT_SECRET=$(openssl rand -hex 32) bloglist serve --port 3003
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
