// Package transcode converts lossless raster images to JPEG so they can go
// through the lossy compressor.
package transcode

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png" // register decoder

	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
)

// Quality is the JPEG quality used for the intermediate file. The real size
// reduction happens in the compression step.
const Quality = 100

// ToJPEG decodes src (png, bmp or tiff) and writes it to dst as a JPEG.
// Transparent areas are flattened onto white.
func ToJPEG(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	img, format, err := image.Decode(in)
	if err != nil {
		return fmt.Errorf("decode %s: %w", src, err)
	}

	out, err := fs.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if err := jpeg.Encode(out, flatten(img), &jpeg.Options{Quality: Quality}); err != nil {
		out.Close()
		_ = fs.Remove(dst)
		return fmt.Errorf("encode %s image as jpeg: %w", format, err)
	}
	if err := out.Close(); err != nil {
		_ = fs.Remove(dst)
		return fmt.Errorf("close %s: %w", dst, err)
	}
	return nil
}

func flatten(img image.Image) image.Image {
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(rgba, b, img, b.Min, draw.Over)
	return rgba
}
