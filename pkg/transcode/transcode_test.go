package transcode

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func sampleImage() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 30), G: uint8(y * 30), B: 100, A: 255})
		}
	}
	// fully transparent corner
	img.Set(0, 0, color.NRGBA{})
	return img
}

func TestToJPEGFromPNG(t *testing.T) {
	fs := afero.NewMemMapFs()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, sampleImage()))
	require.NoError(t, afero.WriteFile(fs, "/in.png", buf.Bytes(), 0o644))

	require.NoError(t, ToJPEG(fs, "/in.png", "/out.jpg"))

	f, err := fs.Open("/out.jpg")
	require.NoError(t, err)
	defer f.Close()
	img, err := jpeg.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())

	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Greater(t, r>>8, uint32(200))
	assert.Greater(t, g>>8, uint32(200))
	assert.Greater(t, b>>8, uint32(200))
}

func TestToJPEGFromBMP(t *testing.T) {
	fs := afero.NewMemMapFs()
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, sampleImage()))
	require.NoError(t, afero.WriteFile(fs, "/in.bmp", buf.Bytes(), 0o644))

	require.NoError(t, ToJPEG(fs, "/in.bmp", "/out.jpg"))
	exists, _ := afero.Exists(fs, "/out.jpg")
	assert.True(t, exists)
}

func TestToJPEGErrors(t *testing.T) {
	fs := afero.NewMemMapFs()

	err := ToJPEG(fs, "/missing.png", "/out.jpg")
	assert.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "/garbage.png", []byte("not an image"), 0o644))
	err = ToJPEG(fs, "/garbage.png", "/out.jpg")
	assert.Error(t, err)
	exists, _ := afero.Exists(fs, "/out.jpg")
	assert.False(t, exists)
}
