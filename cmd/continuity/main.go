// Command continuity runs the continuity engine either as an MCP
// server (stdio transport, for an AI coding host to talk to) or as a
// one-shot CLI for scripting and manual testing — mirroring Hoofy's own
// cmd/hoofy, generalized to urfave/cli/v2 the way hpungsan-moss's
// cmd/moss CLI surface is built.
//
// Usage:
//
//	continuity serve   # Start the MCP server (stdio transport)
//	continuity apply   # One-shot pre-run hook
//	continuity record  # One-shot post-run hook
//	continuity version # Print the build version
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/onecode-dev/continuity-engine/internal/server"
)

func main() {
	app := newCLIApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newCLIApp() *cli.App {
	return &cli.App{
		Name:    "continuity",
		Usage:   "MCP server and CLI for cross-turn coding-session continuity",
		Version: server.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Value:   defaultDataDir(),
				Usage:   "directory holding the engine's SQLite-backed stores",
			},
		},
		Commands: []*cli.Command{
			serveCmd(),
			applyCmd(),
			recordCmd(),
			versionCmd(),
		},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir + "/.continuity-engine"
	}
	return ".continuity-engine"
}

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print the build version",
		Action: func(c *cli.Context) error {
			fmt.Printf("continuity v%s\n", server.Version)
			return nil
		},
	}
}
