package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/operion-drivelock/pkg/cmd"
)

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Check that the API key and base URL are accepted",
		Action: func(ctx context.Context, command *cli.Command) error {
			if err := cmd.NewClient(command).Verify(ctx); err != nil {
				return fmt.Errorf("credentials rejected: %w", err)
			}

			return writeJSON(command.Root().Writer, map[string]any{"valid": true})
		},
	}
}
