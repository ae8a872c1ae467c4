package server

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wolfslender/Media-Usage-Checker/internal/agent"
	"github.com/wolfslender/Media-Usage-Checker/internal/config"
)

func NewAgentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Start the scan agent",
		Long: `Start the long running scan agent.

The agent resumes the batch scan every agent.interval, re-entering quickly
while a run is incomplete, and serves the HTTP API when api.enabled is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			return agent.NewAgent(cfg).Serve(context.Background())
		},
	}

	return cmd
}
