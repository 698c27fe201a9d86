package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/onecode-dev/continuity-engine/internal/continuity"
	sddserver "github.com/onecode-dev/continuity-engine/internal/server"
	"github.com/onecode-dev/continuity-engine/internal/sessionstore"
)

func applyCmd() *cli.Command {
	return &cli.Command{
		Name:  "apply",
		Usage: "run the pre-run hook once and print the composed prompt as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "sub-session-id", Required: true, Usage: "sub-session identifier"},
			&cli.StringFlag{Name: "cwd", Required: true, Usage: "repository working tree"},
			&cli.StringFlag{Name: "project-path", Usage: "project path, if distinct from cwd"},
			&cli.StringFlag{Name: "prompt", Required: true, Usage: "the user's raw prompt for this turn"},
			&cli.StringFlag{Name: "mode", Value: "agent", Usage: "plan or agent"},
			&cli.StringFlag{Name: "provider", Value: "claude", Usage: "claude or codex"},
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

			out := engine.Apply(context.Background(), continuity.ApplyInput{
				SubSessionID: c.String("sub-session-id"),
				Cwd:          c.String("cwd"),
				ProjectPath:  projectPath,
				Prompt:       c.String("prompt"),
				Mode:         parseCLIMode(c.String("mode")),
				Provider:     parseCLIProvider(c.String("provider")),
			})

			return printJSON(map[string]any{
				"prompt_out":     out.PromptOut,
				"cache_hit":      out.CacheHit,
				"injected_bytes": out.InjectedBytes,
				"reused_percent": out.ReusedPercent,
				"state_ids": map[string]string{
					"anchor_pack_id":   out.StateIDs.AnchorPackID,
					"context_pack_id":  out.StateIDs.ContextPackID,
					"plan_contract_id": out.StateIDs.PlanContractID,
					"delta_pack_id":    out.StateIDs.DeltaPackID,
				},
			})
		},
	}
}

func parseCLIMode(s string) sessionstore.Mode {
	if sessionstore.Mode(s) == sessionstore.ModePlan {
		return sessionstore.ModePlan
	}
	return sessionstore.ModeAgent
}

func parseCLIProvider(s string) continuity.Provider {
	if continuity.Provider(s) == continuity.ProviderCodex {
		return continuity.ProviderCodex
	}
	return continuity.ProviderClaude
}

func printJSON(v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	fmt.Println(string(payload))
	return nil
}
