// Package registry is the command-keyed catalog of acquired media.
//
// A Registry owns one backing file. Every operation, including the network
// and disk work inside Add, runs under a single mutex, so a process has
// exactly one writer. Running two processes against the same file is not
// supported.
package registry

import (
	"context"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/kdeps/mediacmd/pkg/domain"
	apperr "github.com/kdeps/mediacmd/pkg/errors"
	"github.com/kdeps/mediacmd/pkg/logging"
	"github.com/kdeps/mediacmd/pkg/messages"
	"github.com/kdeps/mediacmd/pkg/pipeline"
	"github.com/kdeps/mediacmd/pkg/policy"
	"github.com/kdeps/mediacmd/pkg/store"
)

// AddResult is returned by a successful Add. Advisory is set when the asset
// is too large to be served inline.
type AddResult struct {
	Record   *domain.Record
	Decision policy.Decision
	Advisory bool
}

// Delivery tells the caller what to send for a command: the local file
// when it is small enough, the source URL otherwise.
type Delivery struct {
	Record   *domain.Record
	Decision policy.Decision
	Target   string
}

// Registry maps chat commands to media records.
type Registry struct {
	mu       sync.Mutex
	entries  *orderedMap[string, *domain.Record]
	fs       afero.Fs
	store    store.Store
	acquirer pipeline.Acquirer
	logger   *logging.Logger
}

// New creates an empty registry. Call Load to read the backing file.
func New(fs afero.Fs, st store.Store, acquirer pipeline.Acquirer, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Registry{
		entries:  newOrderedMap[string, *domain.Record](),
		fs:       fs,
		store:    st,
		acquirer: acquirer,
		logger:   logger,
	}
}

// Load replaces the in-memory state with the backing file. Inconsistent
// documents are repaired and the fixes logged.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.store.Load()
	if err != nil {
		return err
	}
	if fixes := doc.Repair(); len(fixes) > 0 {
		r.logger.Warn(messages.MsgRegistryRepaired, "fixes", fixes)
	}

	entries := newOrderedMap[string, *domain.Record]()
	for _, c := range doc.Commands {
		entries.Set(c, doc.Images[c])
	}
	r.entries = entries

	r.logger.Info(messages.MsgRegistryLoaded, "commands", entries.Len())
	return nil
}

// Save writes the in-memory state to the backing file.
func (r *Registry) Save() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save()
}

func (r *Registry) save() error {
	doc := store.NewDocument()
	for _, rec := range r.entries.Values() {
		doc.Images[rec.Command] = rec
		doc.Commands = append(doc.Commands, rec.Command)
	}
	return r.store.Save(doc)
}

// validateAdd checks everything Add can check without touching the network
// or the disk.
func (r *Registry) validateAdd(sourceURL, command string) error {
	if command == "" || sourceURL == "" {
		return apperr.NewValidationError("command and url are required").WithCommand(command)
	}
	if n := domain.CommandLength(command); n > domain.MaxCommandLength {
		return apperr.NewCommandTooLongError(command, n, domain.MaxCommandLength)
	}
	if strings.ContainsAny(command, " \t\r\n") {
		return apperr.NewValidationError("command must be a single word").WithCommand(command)
	}
	u, err := url.Parse(sourceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperr.NewValidationError("url must be an absolute http(s) url").
			WithCommand(command).
			WithContext("url", sourceURL)
	}
	if r.entries.Has(command) || r.lookup(command) != "" {
		return apperr.NewDuplicateCommandError(command)
	}
	return nil
}

// lookup finds the stored key for command: an exact match first, then one
// that differs only in case. Documents written before commands were
// normalized may still hold mixed-case keys.
func (r *Registry) lookup(command string) string {
	if r.entries.Has(command) {
		return command
	}
	want := domain.NormalizeCommand(command)
	for _, key := range r.entries.Keys() {
		if domain.NormalizeCommand(key) == want {
			return key
		}
	}
	return ""
}

// Add acquires sourceURL and binds it to command, stored in its
// lower-cased form. Validation failures are reported before any I/O. If the
// acquired file cannot be recorded in the backing file the entry is dropped
// again, but the file itself stays on disk.
func (r *Registry) Add(ctx context.Context, sourceURL, command, author string) (*AddResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	command = domain.NormalizeCommand(command)

	if err := r.validateAdd(sourceURL, command); err != nil {
		return nil, err
	}

	rec, err := r.acquirer.Acquire(ctx, sourceURL, command, author)
	if err != nil {
		return nil, err
	}

	r.entries.Set(command, rec)
	if err := r.save(); err != nil {
		r.logger.Error(messages.MsgPersistFailedRevert, "command", command, "error", err)
		r.entries.Delete(command)
		return nil, err
	}

	result := &AddResult{
		Record:   rec.Clone(),
		Decision: policy.DecideRecord(rec),
		Advisory: policy.Oversize(rec),
	}
	decision := result.Decision
	if result.Advisory {
		size, _ := rec.Size()
		r.logger.Warn(messages.MsgOversizeAsset, "command", command, "size", humanize.Bytes(uint64(size)))
	}
	r.logger.Info(messages.MsgAssetAdded, "command", command, "path", rec.LocalPath, "decision", decision)
	return result, nil
}

// ParseIndex converts user input to a zero-based index.
func ParseIndex(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, apperr.NewInvalidIndexError(raw)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.NewInvalidIndexError(raw).WithCause(err)
	}
	return n, nil
}

// Remove deletes the entry at index together with its local file. An index
// outside [0, Len) leaves both the registry and the backing file untouched.
func (r *Registry) Remove(ctx context.Context, index int) (*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 || index >= r.entries.Len() {
		return nil, apperr.NewIndexOutOfRangeError(index, r.entries.Len())
	}

	command, rec := r.entries.At(index)
	if rec.LocalPath != "" {
		if err := r.fs.Remove(rec.LocalPath); err != nil {
			if !os.IsNotExist(err) {
				return nil, apperr.NewStorageError("remove local file", rec.LocalPath, err).WithCommand(command)
			}
			r.logger.Warn(messages.MsgLocalFileMissing, "command", command, "path", rec.LocalPath)
		}
	}

	pos := r.entries.Delete(command)
	if err := r.save(); err != nil {
		r.logger.Error(messages.MsgPersistFailedRevert, "command", command, "error", err)
		r.entries.Insert(pos, command, rec)
		return nil, err
	}

	r.logger.Info(messages.MsgAssetRemoved, "command", command, "index", index)
	return rec.Clone(), nil
}

// List returns copies of all records in insertion order.
func (r *Registry) List() []*domain.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.Record, 0, r.entries.Len())
	for _, rec := range r.entries.Values() {
		out = append(out, rec.Clone())
	}
	return out
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries.Len()
}

// Resolve decides what to send for command. Case is ignored.
func (r *Registry) Resolve(command string) (*Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.lookup(command)
	if key == "" {
		return nil, apperr.NewUnknownCommandError(command)
	}
	rec, _ := r.entries.Get(key)

	d := &Delivery{Record: rec.Clone(), Decision: policy.DecideRecord(rec)}
	if d.Decision == policy.ServeInline && rec.LocalPath != "" {
		d.Target = rec.LocalPath
	} else {
		d.Decision = policy.ServeRemoteLink
		d.Target = rec.SourceURL
	}
	return d, nil
}
