package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/onecode-dev/continuity-engine/internal/continuity"
	sddserver "github.com/onecode-dev/continuity-engine/internal/server"
)

func recordCmd() *cli.Command {
	return &cli.Command{
		Name:  "record",
		Usage: "run the post-run hook once and print the governor action as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "sub-session-id", Required: true, Usage: "sub-session identifier"},
			&cli.StringFlag{Name: "cwd", Required: true, Usage: "repository working tree"},
			&cli.StringFlag{Name: "project-path", Usage: "project path, if distinct from cwd"},
			&cli.StringFlag{Name: "provider", Value: "claude", Usage: "claude or codex"},
			&cli.StringFlag{Name: "mode", Value: "agent", Usage: "plan or agent"},
			&cli.StringFlag{Name: "prompt", Usage: "the prompt that was sent for this turn"},
			&cli.StringFlag{Name: "assistant-response", Usage: "the provider's response text for this turn"},
			&cli.IntFlag{Name: "injected-bytes", Usage: "bytes of continuity pack injected ahead of this turn's prompt"},
			&cli.BoolFlag{Name: "was-error", Usage: "whether this turn ended in an error"},
		},
		Action: func(c *cli.Context) error {
			engine, _, cleanup, err := sddserver.NewEngine(sddserver.Config{DataDir: c.String("data-dir")})
			if err != nil {
				return fmt.Errorf("opening engine: %w", err)
			}
			defer cleanup()

			var projectPath *string
			if v := c.String("project-path"); v != "" {
				projectPath = &v
			}
			var injectedBytes *int
			if c.IsSet("injected-bytes") {
				v := c.Int("injected-bytes")
				injectedBytes = &v
			}
			var wasError *bool
			if c.IsSet("was-error") {
				v := c.Bool("was-error")
				wasError = &v
			}

			out := engine.RecordRunOutcome(context.Background(), continuity.RecordRunOutcomeInput{
				SubSessionID:      c.String("sub-session-id"),
				Cwd:               c.String("cwd"),
				ProjectPath:       projectPath,
				Provider:          parseCLIProvider(c.String("provider")),
				Mode:              parseCLIMode(c.String("mode")),
				Prompt:            c.String("prompt"),
				AssistantResponse: c.String("assistant-response"),
				InjectedBytes:     injectedBytes,
				WasError:          wasError,
			})

			return printJSON(map[string]any{
				"action":  string(out.Action),
				"reasons": out.Reasons,
			})
		},
	}
}
