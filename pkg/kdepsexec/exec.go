// Package kdepsexec is the only place the module starts external processes.
package kdepsexec

import (
	"context"
	"errors"
	"fmt"
	"time"

	execute "github.com/alexellis/go-execute/v2"

	"github.com/kdeps/mediacmd/pkg/logging"
	"github.com/kdeps/mediacmd/pkg/messages"
)

// ErrNonZeroExit is returned when a process ran but reported failure.
var ErrNonZeroExit = errors.New("non-zero exit code")

// Command is one external tool invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
}

func (c Command) String() string {
	return fmt.Sprintf("%s %v", c.Name, c.Args)
}

// Result holds what a finished process produced.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes commands. Encoders depend on this so tests can swap in a fake.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands through go-execute.
type ExecRunner struct {
	Logger *logging.Logger
}

// NewExecRunner returns a Runner backed by real processes.
func NewExecRunner(logger *logging.Logger) *ExecRunner {
	return &ExecRunner{Logger: logger}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	stdout, stderr, code, err := KdepsExec(ctx, cmd.Name, cmd.Args, cmd.Dir, r.Logger)
	return Result{Stdout: stdout, Stderr: stderr, ExitCode: code}, err
}

// KdepsExec runs command in the foreground and waits for it. Cancelling ctx
// kills the process; no timeout is applied here.
func KdepsExec(
	ctx context.Context,
	command string,
	args []string,
	workingDir string, // Optional: pass "" to use current working dir
	logger *logging.Logger,
) (string, string, int, error) {
	if logger == nil {
		logger = logging.GetLogger()
	}
	logger.Debug(messages.MsgExecutingCommand, "command", command, "args", args, "dir", workingDir)

	task := execute.ExecTask{
		Command: command,
		Args:    args,
		Cwd:     workingDir,
	}

	start := time.Now()
	oplog := logging.NewOperationLogger(logger)

	result, err := task.Execute(ctx)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		oplog.LogCommandExecution(command, result.ExitCode, time.Since(start), err)
		return result.Stdout, result.Stderr, result.ExitCode, err
	}

	oplog.LogCommandExecution(command, result.ExitCode, time.Since(start), nil)
	if result.ExitCode != 0 {
		logger.Warn("command exited with non-zero code", "code", result.ExitCode, "stderr", result.Stderr)
		return result.Stdout, result.Stderr, result.ExitCode, ErrNonZeroExit
	}

	return result.Stdout, result.Stderr, result.ExitCode, nil
}
