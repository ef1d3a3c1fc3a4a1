package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	apperr "github.com/kdeps/mediacmd/pkg/errors"
	"github.com/kdeps/mediacmd/pkg/registry"
)

// NewResolveCommand creates the 'resolve' command, which prints what would be
// sent for a command: a local path or a URL.
func NewResolveCommand(reg *registry.Registry) *cobra.Command {
	return &cobra.Command{
		Use:     "resolve [command]",
		Example: "$ mediacmd resolve cat",
		Short:   "Print the file or link served for a command",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := reg.Resolve(args[0])
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render(apperr.UserMessage(err)))
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), d.Target)
			return nil
		},
	}
}
