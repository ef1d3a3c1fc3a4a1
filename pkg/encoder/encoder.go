// Package encoder compresses stored media with external tools, one tool per
// media category.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/afero"

	"github.com/kdeps/mediacmd/pkg/domain"
	"github.com/kdeps/mediacmd/pkg/kdepsexec"
	"github.com/kdeps/mediacmd/pkg/logging"
)

// ErrNotCompressed means the tool declined to compress src, for example
// because it could not reach its quality target. The caller keeps src as is.
var ErrNotCompressed = errors.New("tool declined to compress")

// Encoder writes a compressed copy of src to dst.
type Encoder interface {
	Encode(ctx context.Context, fs afero.Fs, src, dst string) error
}

// Func adapts a plain function to the Encoder interface.
type Func func(ctx context.Context, fs afero.Fs, src, dst string) error

// Encode implements Encoder.
func (f Func) Encode(ctx context.Context, fs afero.Fs, src, dst string) error {
	return f(ctx, fs, src, dst)
}

// Tool runs an external compressor. Args builds the argument list for a
// given source and destination path.
type Tool struct {
	Name   string
	Args   func(src, dst string) []string
	Runner kdepsexec.Runner
	Logger *logging.Logger
	// Declines lists exit codes that mean "nothing worth writing" rather
	// than failure.
	Declines []int
}

// Encode implements Encoder. The tool operates on real paths, so fs must be
// backed by the OS filesystem; fs is only used to verify the output.
func (t *Tool) Encode(ctx context.Context, fs afero.Fs, src, dst string) error {
	cmd := kdepsexec.Command{Name: t.Name, Args: t.Args(src, dst)}
	res, err := t.Runner.Run(ctx, cmd)
	if err != nil && ctx.Err() == nil && slices.Contains(t.Declines, res.ExitCode) {
		_ = fs.Remove(dst)
		if t.Logger != nil {
			t.Logger.Debug("encoder declined", "tool", t.Name, "code", res.ExitCode)
		}
		return fmt.Errorf("%s exited %d: %w", t.Name, res.ExitCode, ErrNotCompressed)
	}
	if err != nil {
		if res.Stderr != "" {
			return fmt.Errorf("%s: %w: %s", t.Name, err, res.Stderr)
		}
		return fmt.Errorf("%s: %w", t.Name, err)
	}
	if ok, _ := afero.Exists(fs, dst); !ok {
		return fmt.Errorf("%s produced no output at %s", t.Name, dst)
	}
	if t.Logger != nil {
		t.Logger.Debug("encoder finished", "tool", t.Name, "output", dst)
	}
	return nil
}

// Cjpeg compresses JPEG files with mozjpeg.
func Cjpeg(runner kdepsexec.Runner, logger *logging.Logger) *Tool {
	return &Tool{
		Name:   "cjpeg",
		Runner: runner,
		Logger: logger,
		Args: func(src, dst string) []string {
			return []string{"-quality", "30", "-outfile", dst, src}
		},
	}
}

// pngquantQualityTooLow is pngquant's exit status when --quality cannot be met.
const pngquantQualityTooLow = 99

// Pngquant compresses PNG files.
func Pngquant(runner kdepsexec.Runner, logger *logging.Logger) *Tool {
	return &Tool{
		Name:     "pngquant",
		Runner:   runner,
		Logger:   logger,
		Declines: []int{pngquantQualityTooLow},
		Args: func(src, dst string) []string {
			return []string{"--quality=20-50", "--force", "--output", dst, src}
		},
	}
}

// Svgo minifies SVG files.
func Svgo(runner kdepsexec.Runner, logger *logging.Logger) *Tool {
	return &Tool{
		Name:   "svgo",
		Runner: runner,
		Logger: logger,
		Args: func(src, dst string) []string {
			return []string{"--multipass", "-i", src, "-o", dst}
		},
	}
}

// Gifsicle compresses GIF files lossily.
func Gifsicle(runner kdepsexec.Runner, logger *logging.Logger) *Tool {
	return &Tool{
		Name:   "gifsicle",
		Runner: runner,
		Logger: logger,
		Args: func(src, dst string) []string {
			return []string{"-O3", "--lossy=80", "-o", dst, src}
		},
	}
}

// Set maps media categories to encoders. Categories with no encoder are
// stored without compression.
type Set map[domain.Category]Encoder

// DefaultSet wires the external tools used in production.
func DefaultSet(runner kdepsexec.Runner, logger *logging.Logger) Set {
	return Set{
		domain.CategoryRasterLossy:    Cjpeg(runner, logger),
		domain.CategoryRasterLossless: Pngquant(runner, logger),
		domain.CategoryVector:         Svgo(runner, logger),
		domain.CategoryAnimated:       Gifsicle(runner, logger),
	}
}

// For returns the encoder for ext. Video and unknown types report false.
func (s Set) For(ext string) (Encoder, bool) {
	c := domain.CategoryOf(ext)
	if c == domain.CategoryVideo || c == domain.CategoryUnknown {
		return nil, false
	}
	e, ok := s[c]
	return e, ok && e != nil
}
