package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mohammadpnp/member-import/internal/bootstrap"
	"github.com/mohammadpnp/member-import/internal/config"
)

// session opens the configured services for one command run.
type session struct {
	services *bootstrap.Services
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load(config.DefaultEnvFiles...)
	if err != nil {
		return nil, err
	}
	services, err := bootstrap.NewServices(ctx, cfg, cfg.Logger())
	if err != nil {
		return nil, err
	}
	return &session{services: services}, nil
}

func withSession(run func(cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.services.Close()
		return run(cmd, args, s)
	}
}

func printJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "importctl",
		Short:         "Operate member bulk imports",
		SilenceUsage: true,
	}
	root.AddCommand(
		newMigrateCommand(),
		newPreviewCommand(),
		newCommitCommand(),
		newHistoryCommand(),
		newResendCommand(),
	)
	return root
}
