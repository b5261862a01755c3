// Package imaging decodes uploaded images and scales them to the width sent to the model.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// TargetWidth is the fixed width of every normalized image.
const TargetWidth = 500

// Normalized is an image scaled to TargetWidth and re-encoded as PNG.
type Normalized struct {
	SourceFormat string
	SourceWidth  int
	SourceHeight int
	Width        int
	Height       int
	PNG          []byte
}

// MIMEType of the encoded payload.
func (Normalized) MIMEType() string { return "image/png" }

// TargetSize returns the normalized size for a source of w x h pixels.
// Height is truncated, matching int(TargetWidth / (w / h)).
func TargetSize(w, h int) (int, int, error) {
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: source %dx%d", ErrInvalidDimensions, w, h)
	}
	aspect := float64(w) / float64(h)
	height := int(float64(TargetWidth) / aspect)
	if height < 1 {
		return 0, 0, fmt.Errorf("%w: source %dx%d scales to zero height", ErrInvalidDimensions, w, h)
	}
	return TargetWidth, height, nil
}

// Normalize decodes data (png, jpeg, gif or bmp), resizes it to TargetWidth
// preserving the aspect ratio, and encodes the result as PNG.
func Normalize(data []byte) (Normalized, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Normalized{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	bounds := src.Bounds()

	dst, err := Resize(src)
	if err != nil {
		return Normalized{}, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return Normalized{}, fmt.Errorf("encode png: %w", err)
	}

	size := dst.Bounds()
	return Normalized{
		SourceFormat: format,
		SourceWidth:  bounds.Dx(),
		SourceHeight: bounds.Dy(),
		Width:        size.Dx(),
		Height:       size.Dy(),
		PNG:          buf.Bytes(),
	}, nil
}

// Resize scales src to TargetSize with Catmull-Rom resampling.
func Resize(src image.Image) (*image.RGBA, error) {
	bounds := src.Bounds()
	w, h, err := TargetSize(bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst, nil
}
