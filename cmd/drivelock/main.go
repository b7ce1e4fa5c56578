// Package main provides the drivelock command-line client.
package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/operion-drivelock/pkg/cmd"
)

func main() {
	if err := cmd.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	var shutdown func()

	return &cli.Command{
		Name:                  "drivelock",
		Usage:                 "Query and manage a DriveLock tenant",
		EnableShellCompletion: true,
		Flags:                 cmd.CommonFlags(),
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			var err error

			shutdown, err = cmd.Setup(ctx, command, "drivelock")

			return ctx, err
		},
		After: func(_ context.Context, _ *cli.Command) error {
			if shutdown != nil {
				shutdown()
			}

			return nil
		},
		Commands: []*cli.Command{
			entityCommand(),
			binariesCommand(),
			computerCommand(),
			policyCommand(),
			customPropsCommand(),
			filterCommand(),
			runCommand(),
			verifyCommand(),
		},
	}
}
