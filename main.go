package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"

	"github.com/kdeps/mediacmd/cmd"
	"github.com/kdeps/mediacmd/pkg/encoder"
	"github.com/kdeps/mediacmd/pkg/environment"
	"github.com/kdeps/mediacmd/pkg/kdepsexec"
	"github.com/kdeps/mediacmd/pkg/logging"
	"github.com/kdeps/mediacmd/pkg/pipeline"
	"github.com/kdeps/mediacmd/pkg/registry"
	"github.com/kdeps/mediacmd/pkg/store"
)

func main() {
	// Initialize filesystem and context
	fs := afero.NewOsFs()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := logging.GetLogger()

	env, err := setupEnvironment(fs)
	if err != nil {
		logger.Error("Failed to set up environment", "error", err)
		os.Exit(1)
	}

	if env.IsDebug() {
		logger.EnableDebug()
	}

	setupSignalHandler(cancel, logger)

	reg, err := setupRegistry(fs, env, logger)
	if err != nil {
		logger.Error("Failed to load registry", "error", err)
		os.Exit(1)
	}

	rootCmd := cmd.NewRootCommand(ctx, fs, reg, env, logger)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupEnvironment initializes the environment using the filesystem.
func setupEnvironment(fs afero.Fs) (*environment.Environment, error) {
	return environment.NewEnvironment(fs, nil)
}

// setupRegistry wires the pipeline and store and loads the backing file.
func setupRegistry(fs afero.Fs, env *environment.Environment, logger *logging.Logger) (*registry.Registry, error) {
	paths := env.Paths()
	if err := paths.EnsureDirs(fs); err != nil {
		return nil, fmt.Errorf("failed to create data directories: %w", err)
	}

	encoders := encoder.DefaultSet(kdepsexec.NewExecRunner(logger), logger)
	p := pipeline.New(fs, paths, encoders, logger, pipeline.WithKeepLossless(env.KeepsLossless()))
	reg := registry.New(fs, store.NewFileStore(fs, paths.RegistryFile, logger), p, logger)
	if err := reg.Load(); err != nil {
		return nil, err
	}
	return reg, nil
}

// setupSignalHandler cancels the context on SIGINT/SIGTERM so in-flight
// downloads and encoders stop.
func setupSignalHandler(cancelFunc context.CancelFunc, logger *logging.Logger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigs
		logger.Debug(fmt.Sprintf("Received signal: %v, initiating shutdown...", sig))
		cancelFunc()
	}()
}
