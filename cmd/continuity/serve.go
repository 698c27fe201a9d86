package main

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v2"

	sddserver "github.com/onecode-dev/continuity-engine/internal/server"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "start the MCP server (stdio transport)",
		Action: func(c *cli.Context) error {
			s, cleanup, err := sddserver.New(sddserver.Config{DataDir: c.String("data-dir")})
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			defer cleanup()

			return server.ServeStdio(s)
		},
	}
}
