package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kdeps/mediacmd/pkg/dispatch"
	"github.com/kdeps/mediacmd/pkg/environment"
	"github.com/kdeps/mediacmd/pkg/logging"
	"github.com/kdeps/mediacmd/pkg/messages"
	"github.com/kdeps/mediacmd/pkg/metrics"
	"github.com/kdeps/mediacmd/pkg/registry"
	"github.com/kdeps/mediacmd/pkg/worker"
)

// queueSize bounds how many read lines may wait for the worker.
const queueSize = 16

// NewListenCommand creates the 'listen' command. Each input line is handled
// as one job; a failing job is logged and the loop carries on.
func NewListenCommand(ctx context.Context, reg *registry.Registry, env *environment.Environment, logger *logging.Logger) *cobra.Command {
	var author string
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Read chat lines from stdin and reply on stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := dispatch.New(reg, env.Trigger, logger)
			return listen(ctx, d, cmd.InOrStdin(), cmd.OutOrStdout(), author, logger)
		},
	}
	cmd.Flags().StringVarP(&author, "author", "u", defaultAuthor(), "author recorded for added media")
	return cmd
}

func listen(ctx context.Context, d *dispatch.Dispatcher, in io.Reader, out io.Writer, author string, logger *logging.Logger) error {
	q := worker.NewQueue(queueSize, logger)
	if err := q.Start(ctx); err != nil {
		return err
	}
	defer q.Close()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := scanner.Text()
		err := q.Submit(worker.Job{
			Label: line,
			Run: func(ctx context.Context) error {
				reply, err := d.Handle(ctx, author, line)
				writeReply(out, reply)
				return err
			},
		})
		if err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	q.Close()
	stats := metrics.Default().Overall()
	logger.Info(messages.MsgSessionSummary,
		"acquired", stats.TotalSucceeded,
		"failed", stats.TotalFailed,
		"stored", humanize.Bytes(uint64(stats.BytesStored)),
		"average", stats.AverageTime)
	return nil
}

// writeReply prints one message per chunk, then the file to upload.
func writeReply(out io.Writer, reply *dispatch.Reply) {
	if reply == nil {
		return
	}
	for _, chunk := range reply.Chunks() {
		fmt.Fprintln(out, strings.TrimSuffix(chunk, "\n"))
	}
	if reply.File != "" {
		fmt.Fprintln(out, "file: "+reply.File)
	}
}
