// Package pipeline turns a remote URL into a compressed local file: fetch,
// normalize lossless rasters to JPEG, compress, then measure.
package pipeline

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/kdeps/mediacmd/pkg/domain"
	"github.com/kdeps/mediacmd/pkg/download"
	"github.com/kdeps/mediacmd/pkg/encoder"
	"github.com/kdeps/mediacmd/pkg/environment"
	apperr "github.com/kdeps/mediacmd/pkg/errors"
	"github.com/kdeps/mediacmd/pkg/logging"
	"github.com/kdeps/mediacmd/pkg/messages"
	"github.com/kdeps/mediacmd/pkg/metrics"
	"github.com/kdeps/mediacmd/pkg/transcode"
)

// Acquirer is what the registry needs from a pipeline.
type Acquirer interface {
	Acquire(ctx context.Context, sourceURL, command, author string) (*domain.Record, error)
}

// Pipeline acquires media into the images directory.
type Pipeline struct {
	fs       afero.Fs
	paths    environment.Paths
	encoders encoder.Set
	logger   *logging.Logger

	client       *http.Client
	metrics      *metrics.AcquisitionMetrics
	keepLossless bool
	newName      func() string
	now          func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithHTTPClient sets the client used for fetching.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Pipeline) { p.client = c }
}

// WithKeepLossless keeps PNG files as PNG and compresses them with the
// lossless-raster encoder instead of transcoding to JPEG.
func WithKeepLossless(keep bool) Option {
	return func(p *Pipeline) { p.keepLossless = keep }
}

// WithMetrics sets the collector acquisitions are recorded in.
func WithMetrics(m *metrics.AcquisitionMetrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithNameFunc overrides how fresh file names are generated.
func WithNameFunc(fn func() string) Option {
	return func(p *Pipeline) { p.newName = fn }
}

// WithClock overrides the creation timestamp source.
func WithClock(fn func() time.Time) Option {
	return func(p *Pipeline) { p.now = fn }
}

// New creates a Pipeline writing below paths.ImagesDir.
func New(fs afero.Fs, paths environment.Paths, encoders encoder.Set, logger *logging.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.GetLogger()
	}
	p := &Pipeline{
		fs:       fs,
		paths:    paths,
		encoders: encoders,
		logger:   logger,
		client:   http.DefaultClient,
		metrics:  metrics.Default(),
		newName:  uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Acquire fetches sourceURL and returns a record pointing at the final file.
// Fetch failures are acquisition errors; anything that goes wrong locally
// afterwards is a storage error. No intermediate file survives a call, and
// on failure the output file is removed as well.
func (p *Pipeline) Acquire(ctx context.Context, sourceURL, command, author string) (rec *domain.Record, err error) {
	oplog := logging.NewOperationLogger(p.logger).WithCommand(command)
	oplog.Info(messages.MsgAcquisitionStarted, "url", sourceURL)

	ext := domain.ExtensionFromURL(sourceURL)
	start := time.Now()
	defer func() {
		var size int64
		if rec != nil {
			size, _ = rec.Size()
		}
		p.metrics.Record(domain.CategoryOf(ext).String(), time.Since(start), size, err == nil)
	}()

	for _, dir := range []string{p.paths.ImagesDir, p.paths.DownloadingDir} {
		if err := p.fs.MkdirAll(dir, 0o755); err != nil {
			return nil, apperr.NewStorageError("create directory", dir, err).WithCommand(command)
		}
	}

	record := domain.NewRecord(command, sourceURL, author, p.newName(), p.now())

	s := newScratch(p.fs, p.logger)
	defer s.release()

	current := filepath.Join(p.paths.DownloadingDir, record.Name+ext)
	s.track(current)
	err = oplog.TimeOperation("fetch", func() error {
		_, err := download.DownloadFile(ctx, p.fs, p.client, sourceURL, current, p.logger)
		return err
	})
	if err != nil {
		return nil, withCommand(err, command)
	}

	contentType, sniffedExt := p.sniff(current)
	record.ContentType = contentType
	switch {
	case ext == "" && sniffedExt != "":
		ext = sniffedExt
	case sniffedExt != "" && domain.CategoryOf(sniffedExt) != domain.CategoryOf(ext):
		oplog.Warn(messages.MsgContentTypeMismatch, "extension", ext, "contentType", contentType)
	}

	if domain.IsLossless(ext) && !(p.keepLossless && ext == ".png") {
		oplog.Debug(messages.MsgTranscodingLossless, "extension", ext)
		jpgPath := filepath.Join(p.paths.DownloadingDir, record.Name+domain.LossyTarget)
		s.track(jpgPath)
		if err := oplog.TimeOperation("transcode", func() error {
			return transcode.ToJPEG(p.fs, current, jpgPath)
		}); err != nil {
			return nil, apperr.NewStorageError("transcode", current, err).WithCommand(command)
		}
		oplog.Debug(messages.MsgDeletingOriginal, "path", current)
		if err := p.fs.Remove(current); err != nil {
			return nil, apperr.NewStorageError("remove original", current, err).WithCommand(command)
		}
		current = jpgPath
		ext = domain.LossyTarget
	}

	finalPath := filepath.Join(p.paths.ImagesDir, record.Name+ext)
	s.output(finalPath)

	compressed := false
	if enc, ok := p.encoders.For(ext); ok {
		oplog.Debug(messages.MsgCompressingFile, "from", current, "to", finalPath)
		err := oplog.TimeOperation("compress", func() error {
			return enc.Encode(ctx, p.fs, current, finalPath)
		})
		switch {
		case err == nil:
			compressed = true
		case errors.Is(err, encoder.ErrNotCompressed):
			oplog.Warn(messages.MsgCompressionDeclined, "extension", ext, "reason", err)
		default:
			return nil, apperr.NewStorageError("compress", current, err).WithCommand(command)
		}
	} else {
		oplog.Debug(messages.MsgCompressionSkipped, "extension", ext)
	}

	if compressed {
		oplog.Debug(messages.MsgDeletingOriginal, "path", current)
		if err := p.fs.Remove(current); err != nil {
			return nil, apperr.NewStorageError("remove original", current, err).WithCommand(command)
		}
	} else if err := p.fs.Rename(current, finalPath); err != nil {
		return nil, apperr.NewStorageError("move", current, err).WithCommand(command)
	}

	info, statErr := p.fs.Stat(finalPath)
	if statErr != nil {
		return nil, apperr.NewStorageError("stat", finalPath, statErr).WithCommand(command)
	}

	record.Extension = ext
	record.LocalPath = finalPath
	record.SetSize(info.Size())
	s.commit()

	oplog.Info(messages.MsgAcquisitionComplete, "path", finalPath, "size", humanize.Bytes(uint64(info.Size())))
	return record, nil
}

// sniff reports the MIME type of the file and the extension it implies.
func (p *Pipeline) sniff(path string) (string, string) {
	f, err := p.fs.Open(path)
	if err != nil {
		return "", ""
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", ""
	}
	return mt.String(), mt.Extension()
}

func withCommand(err error, command string) error {
	if ae, ok := apperr.AsAssetError(err); ok {
		return ae.WithCommand(command)
	}
	return apperr.NewStorageError("acquire", "", err).WithCommand(command)
}
