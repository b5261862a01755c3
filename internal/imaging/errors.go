package imaging

import "errors"

var (
	// ErrDecode is returned for corrupt or unsupported image bytes.
	ErrDecode = errors.New("decode image")
	// ErrInvalidDimensions is returned when the scaled image would be empty.
	ErrInvalidDimensions = errors.New("invalid image dimensions")
)
