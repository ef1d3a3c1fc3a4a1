// Package dispatch turns trigger-prefixed chat lines into registry calls and
// reply text.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/kdeps/mediacmd/pkg/domain"
	apperr "github.com/kdeps/mediacmd/pkg/errors"
	"github.com/kdeps/mediacmd/pkg/logging"
	"github.com/kdeps/mediacmd/pkg/messages"
	"github.com/kdeps/mediacmd/pkg/policy"
	"github.com/kdeps/mediacmd/pkg/registry"
)

// Registry is the part of *registry.Registry the dispatcher drives.
type Registry interface {
	Add(ctx context.Context, sourceURL, command, author string) (*registry.AddResult, error)
	Remove(ctx context.Context, index int) (*domain.Record, error)
	List() []*domain.Record
	Resolve(command string) (*registry.Delivery, error)
}

// Reply is what goes back to the chat: text, and optionally a file to upload.
type Reply struct {
	Text string
	File string
}

// MaxReplyLength is the longest single chat message, in characters.
const MaxReplyLength = 1900

// Chunks splits Text into messages of at most MaxReplyLength characters.
// Breaks fall between lines; a single longer line is cut.
func (r *Reply) Chunks() []string {
	if r == nil || r.Text == "" {
		return nil
	}

	var pieces []string
	for _, line := range strings.SplitAfter(r.Text, "\n") {
		for utf8.RuneCountInString(line) > MaxReplyLength {
			runes := []rune(line)
			pieces = append(pieces, string(runes[:MaxReplyLength]))
			line = string(runes[MaxReplyLength:])
		}
		if line != "" {
			pieces = append(pieces, line)
		}
	}

	var chunks []string
	var cur strings.Builder
	n := 0
	for _, p := range pieces {
		size := utf8.RuneCountInString(p)
		if n > 0 && n+size > MaxReplyLength {
			chunks = append(chunks, cur.String())
			cur.Reset()
			n = 0
		}
		cur.WriteString(p)
		n += size
	}
	if n > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// Dispatcher routes one line at a time.
type Dispatcher struct {
	reg     Registry
	trigger string
	logger  *logging.Logger
}

// New creates a dispatcher that reacts to lines starting with trigger.
func New(reg Registry, trigger string, logger *logging.Logger) *Dispatcher {
	if trigger == "" {
		trigger = "!"
	}
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Dispatcher{reg: reg, trigger: trigger, logger: logger}
}

// Handle processes one line. Lines without the trigger are ignored and yield
// a nil reply. Errors from the registry come back with a reply already
// rendered for the user. An unknown command is not an error: it only gets
// the "don't know that command" reply.
func (d *Dispatcher) Handle(ctx context.Context, author, line string) (*Reply, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, d.trigger) {
		return nil, nil
	}
	fields := strings.Fields(line[len(d.trigger):])
	if len(fields) == 0 {
		return nil, nil
	}

	verb := domain.NormalizeCommand(fields[0])
	args := fields[1:]

	switch verb {
	case "help":
		return &Reply{Text: d.help()}, nil
	case "addimage", "imageadd":
		return d.add(ctx, author, args)
	case "removeimage", "imageremove":
		return d.remove(ctx, args)
	case "listimage", "listimages", "imagelist", "imageslist":
		return &Reply{Text: d.list()}, nil
	default:
		return d.resolve(fields[0])
	}
}

func (d *Dispatcher) add(ctx context.Context, author string, args []string) (*Reply, error) {
	if len(args) < 2 {
		err := apperr.NewValidationError("command and url are required")
		return &Reply{Text: messages.ReplyMissingParameters}, err
	}
	res, err := d.reg.Add(ctx, args[1], args[0], author)
	if err != nil {
		return &Reply{Text: apperr.UserMessage(err)}, err
	}

	text := fmt.Sprintf(messages.ReplyAdded, res.Record.Command)
	if res.Advisory {
		size, _ := res.Record.Size()
		text += "\n" + fmt.Sprintf(messages.ReplyOversizeAdvisory, humanize.Bytes(uint64(size)))
	}
	return &Reply{Text: text}, nil
}

func (d *Dispatcher) remove(ctx context.Context, args []string) (*Reply, error) {
	if len(args) < 1 {
		err := apperr.NewInvalidIndexError("")
		return &Reply{Text: messages.ReplyMissingIndex}, err
	}
	index, err := registry.ParseIndex(args[0])
	if err != nil {
		return &Reply{Text: apperr.UserMessage(err)}, err
	}
	rec, err := d.reg.Remove(ctx, index)
	if err != nil {
		return &Reply{Text: apperr.UserMessage(err)}, err
	}
	return &Reply{Text: fmt.Sprintf(messages.ReplyRemoved, rec.Command)}, nil
}

func (d *Dispatcher) resolve(command string) (*Reply, error) {
	delivery, err := d.reg.Resolve(command)
	if err != nil {
		if apperr.HasErrorCode(err, apperr.ErrUnknownCommand) {
			d.logger.Info(messages.MsgUnrecognized, "command", command)
			return &Reply{Text: apperr.UserMessage(err)}, nil
		}
		return &Reply{Text: apperr.UserMessage(err)}, err
	}
	if delivery.Decision == policy.ServeInline {
		return &Reply{File: delivery.Target}, nil
	}
	return &Reply{Text: delivery.Target}, nil
}

func (d *Dispatcher) list() string {
	records := d.reg.List()
	if len(records) == 0 {
		return messages.ReplyEmptyList
	}
	var b strings.Builder
	b.WriteString("Image Commands:\n")
	for i, r := range records {
		fmt.Fprintf(&b, "%d). Triggered with `%s%s` added by %s on %s\n",
			i, d.trigger, r.Command, r.Author, r.CreatedAt.Format("02/01/2006 at 15:04"))
	}
	return b.String()
}

func (d *Dispatcher) help() string {
	t := d.trigger
	return strings.Join([]string{
		"Greetings! The current commands are as follows:",
		fmt.Sprintf("0). 'Add Image' can be triggered with `%saddImage <command> <url>` and will bind the image to a new command.", t),
		fmt.Sprintf("1). 'Remove Image' can be triggered with `%sremoveImage <index>` and will remove the image at that index.", t),
		fmt.Sprintf("2). 'List Images' can be triggered with `%slistImages` and will list every image command.", t),
		fmt.Sprintf("3). Any image command can be triggered with `%s<command>`.", t),
	}, "\n")
}
