package main

import (
	"github.com/spf13/cobra"

	"github.com/rushsh/rush/internal/shell"
)

// NewRootCmd creates the rush command. The session's exit status is stored
// in status.
func NewRootCmd(deps shell.Deps, status *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rush",
		Short: "rush - a shell built from plugins",
		Long: `rush is an interactive shell whose commands are provided by
dynamically loaded plugins, plus the exit and plugin builtins.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sh, err := shell.New(ctx, version, deps)
			if err != nil {
				cmd.PrintErrf("rush: %v\n", err)
				return err
			}
			code, err := sh.Run(ctx)
			if err != nil {
				cmd.PrintErrf("rush: %v\n", err)
				return err
			}
			*status = int(code)
			return nil
		},
	}
	return cmd
}
