package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kdeps/mediacmd/pkg/messages"
	"github.com/kdeps/mediacmd/pkg/policy"
	"github.com/kdeps/mediacmd/pkg/registry"
)

// NewListCommand creates the 'list' command.
func NewListCommand(fs afero.Fs, reg *registry.Registry) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered commands in insertion order",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			records := reg.List()
			if len(records) == 0 {
				fmt.Fprintln(out, dimStyle.Render(messages.ReplyEmptyList))
				return nil
			}

			fmt.Fprintln(out, headerStyle.Render("Image Commands"))
			for i, r := range records {
				size := "unknown size"
				if n, ok := r.Size(); ok {
					size = humanize.Bytes(uint64(n))
				}
				serve := policy.DecideRecord(r).String()
				if r.LocalPath != "" {
					if ok, _ := afero.Exists(fs, r.LocalPath); !ok {
						serve = warnStyle.Render("file missing")
					}
				}
				fmt.Fprintf(out, "%d). %s %s\n", i, r.Command,
					dimStyle.Render(fmt.Sprintf("(%s, %s, added by %s %s)", size, serve, r.Author, humanize.Time(r.CreatedAt))))
			}
			return nil
		},
	}
}
