package challenge

import "errors"

var (
	// ErrInvalidInput reports a non-positive length, a non-alphanumeric exclusion,
	// or an exclusion set that leaves no glyphs.
	ErrInvalidInput = errors.New("invalid challenge input")
	// ErrUnsupportedRenderingBackend reports that no raster backend is available.
	ErrUnsupportedRenderingBackend = errors.New("unsupported rendering backend")
)
