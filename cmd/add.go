package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	apperr "github.com/kdeps/mediacmd/pkg/errors"
	"github.com/kdeps/mediacmd/pkg/logging"
	"github.com/kdeps/mediacmd/pkg/messages"
	"github.com/kdeps/mediacmd/pkg/registry"
)

func defaultAuthor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

// NewAddCommand creates the 'add' command.
func NewAddCommand(ctx context.Context, reg *registry.Registry, logger *logging.Logger) *cobra.Command {
	var author string
	cmd := &cobra.Command{
		Use:     "add [command] [url]",
		Aliases: []string{"a"},
		Example: "$ mediacmd add cat https://example.com/cat.png",
		Short:   "Download, compress and bind media to a command",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := reg.Add(ctx, args[1], args[0], author)
			if err != nil {
				logger.Error("add failed", "command", args[0], "error", err)
				fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render(apperr.UserMessage(err)))
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf(messages.ReplyAdded, res.Record.Command)))
			if res.Advisory {
				size, _ := res.Record.Size()
				fmt.Fprintln(cmd.OutOrStdout(), warnStyle.Render(fmt.Sprintf(messages.ReplyOversizeAdvisory, humanize.Bytes(uint64(size)))))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&author, "author", "u", defaultAuthor(), "who is adding the media")
	return cmd
}
