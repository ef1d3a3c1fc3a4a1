package cmd

import (
	"context"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kdeps/mediacmd/pkg/environment"
	"github.com/kdeps/mediacmd/pkg/logging"
	"github.com/kdeps/mediacmd/pkg/registry"
	"github.com/kdeps/mediacmd/pkg/version"
)

// NewRootCommand returns the root command with all subcommands attached.
func NewRootCommand(ctx context.Context, fs afero.Fs, reg *registry.Registry, env *environment.Environment, logger *logging.Logger) *cobra.Command {
	cobra.EnableCommandSorting = false
	rootCmd := &cobra.Command{
		Use:   "mediacmd",
		Short: "Bind chat commands to compressed media.",
		Long: `mediacmd downloads media from a URL, compresses it, and binds it to a chat command.
Small files are replayed from local storage; files that stay above the size limit after
compression are served as a link to their source instead.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(NewAddCommand(ctx, reg, logger))
	rootCmd.AddCommand(NewRemoveCommand(ctx, reg, env, logger))
	rootCmd.AddCommand(NewListCommand(fs, reg))
	rootCmd.AddCommand(NewResolveCommand(reg))
	rootCmd.AddCommand(NewListenCommand(ctx, reg, env, logger))

	return rootCmd
}
