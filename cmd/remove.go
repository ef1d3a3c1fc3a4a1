package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/kdeps/mediacmd/pkg/domain"
	"github.com/kdeps/mediacmd/pkg/environment"
	apperr "github.com/kdeps/mediacmd/pkg/errors"
	"github.com/kdeps/mediacmd/pkg/logging"
	"github.com/kdeps/mediacmd/pkg/messages"
	"github.com/kdeps/mediacmd/pkg/registry"
)

// Allow override for testing.
var confirmRemoval = func(rec *domain.Record) (bool, error) {
	var confirm bool
	err := huh.Run(
		huh.NewConfirm().
			Title(fmt.Sprintf("Remove command %q?", rec.Command)).
			Description("The local file will be deleted as well.").
			Value(&confirm),
	)
	return confirm, err
}

// NewRemoveCommand creates the 'remove' command.
func NewRemoveCommand(ctx context.Context, reg *registry.Registry, env *environment.Environment, logger *logging.Logger) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "remove [index]",
		Aliases: []string{"rm"},
		Example: "$ mediacmd remove 0",
		Short:   "Remove the command at an index and delete its file",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := registry.ParseIndex(args[0])
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render(apperr.UserMessage(err)))
				return err
			}

			if !yes && !env.IsNonInteractive() {
				list := reg.List()
				if index >= 0 && index < len(list) {
					ok, err := confirmRemoval(list[index])
					if err != nil {
						return fmt.Errorf("could not confirm removal: %w", err)
					}
					if !ok {
						return errors.New("aborted by user")
					}
				}
			}

			rec, err := reg.Remove(ctx, index)
			if err != nil {
				logger.Error("remove failed", "index", index, "error", err)
				fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render(apperr.UserMessage(err)))
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf(messages.ReplyRemoved, rec.Command)))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
