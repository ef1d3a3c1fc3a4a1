package domain

import (
	"net/url"
	"strings"
)

// Category groups file extensions by how they are compressed.
type Category int

const (
	// CategoryUnknown covers extensions with no encoder; they are stored as-is.
	CategoryUnknown Category = iota
	CategoryRasterLossy
	CategoryRasterLossless
	CategoryVector
	CategoryAnimated
	// CategoryVideo is exempt from compression.
	CategoryVideo
)

func (c Category) String() string {
	switch c {
	case CategoryRasterLossy:
		return "raster-lossy"
	case CategoryRasterLossless:
		return "raster-lossless"
	case CategoryVector:
		return "vector"
	case CategoryAnimated:
		return "animated"
	case CategoryVideo:
		return "video"
	default:
		return "unknown"
	}
}

// LossyTarget is the extension lossless rasters are transcoded to.
const LossyTarget = ".jpg"

var categories = map[string]Category{
	".jpg":  CategoryRasterLossy,
	".jpeg": CategoryRasterLossy,
	".png":  CategoryRasterLossless,
	".bmp":  CategoryRasterLossless,
	".tif":  CategoryRasterLossless,
	".tiff": CategoryRasterLossless,
	".svg":  CategoryVector,
	".gif":  CategoryAnimated,
	".mp4":  CategoryVideo,
	".webm": CategoryVideo,
	".mov":  CategoryVideo,
}

// CategoryOf returns the compression category of a dotted extension.
func CategoryOf(ext string) Category {
	return categories[strings.ToLower(ext)]
}

// IsLossless reports whether ext should be transcoded to LossyTarget.
func IsLossless(ext string) bool {
	return CategoryOf(ext) == CategoryRasterLossless
}

// ExtensionFromURL returns the dotted, lower-cased extension of the last path
// segment of rawURL, ignoring any query string or fragment. It returns "" when
// the path has no extension.
func ExtensionFromURL(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	base := p[strings.LastIndex(p, "/")+1:]
	i := strings.LastIndex(base, ".")
	if i < 0 || i == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[i:])
}
