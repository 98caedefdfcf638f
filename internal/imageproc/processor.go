// Package imageproc renders local previews of review images.
package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
)

// ErrUnsupported is returned for bytes that are not a raster image the
// previewer can decode.
var ErrUnsupported = errors.New("unsupported or unrecognized image format")

// DetectFormat inspects the raw bytes and returns the image format:
// "jpeg", "png", "gif", "webp", or "" if unknown.
func DetectFormat(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return "jpeg"
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return "png"
	case bytes.HasPrefix(data, []byte("GIF8")):
		return "gif"
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "webp"
	}
	return ""
}

// Info describes a decoded image.
type Info struct {
	Format string
	Width  int
	Height int
}

// Resolution formats the dimensions the way the metadata sheet does.
func (i Info) Resolution() string { return fmt.Sprintf("%dx%d", i.Width, i.Height) }

// Inspect reads only the image header.
func Inspect(data []byte) (Info, error) {
	format := DetectFormat(data)
	if format == "" || format == "webp" {
		return Info{}, ErrUnsupported
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("decoding header: %w", err)
	}
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Fit selects how a preview is sized.
type Fit string

const (
	// FitScaleDown shrinks to fit the box and never enlarges.
	FitScaleDown Fit = "scale-down"
	// FitPad fits the box and pads to its exact size on white.
	FitPad Fit = "pad"
)

// PreviewOptions sizes a preview.
type PreviewOptions struct {
	Width  int
	Height int
	Fit    Fit
}

// DefaultPreview is the console's thumbnail box.
var DefaultPreview = PreviewOptions{Width: 320, Height: 320, Fit: FitScaleDown}

// Preview renders src as a thumbnail and returns the encoded bytes with
// their format. GIFs are flattened to their first frame and re-encoded as
// PNG; other formats keep their own.
func Preview(src io.Reader, opts PreviewOptions) ([]byte, string, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, "", fmt.Errorf("reading source: %w", err)
	}

	format := DetectFormat(data)
	if format == "" || format == "webp" {
		return nil, "", ErrUnsupported
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("decoding image: %w", err)
	}

	img = applyFit(img, opts)

	if format == "gif" {
		format = "png"
	}
	out, err := encodeImage(img, format)
	if err != nil {
		return nil, "", fmt.Errorf("encoding image: %w", err)
	}
	return out, format, nil
}

// Extension is the file suffix for an output format.
func Extension(format string) string {
	if format == "jpeg" {
		return ".jpg"
	}
	return "." + format
}

// applyFit applies the requested fit mode to the image.
func applyFit(img image.Image, opts PreviewOptions) image.Image {
	origW := img.Bounds().Dx()
	origH := img.Bounds().Dy()

	targetW := opts.Width
	targetH := opts.Height
	if targetW == 0 {
		targetW = origW
	}
	if targetH == 0 {
		targetH = origH
	}

	switch opts.Fit {
	case FitPad:
		fitted := img
		if origW > targetW || origH > targetH {
			fitted = imaging.Fit(img, targetW, targetH, imaging.Lanczos)
		}
		return imaging.PasteCenter(imaging.New(targetW, targetH, image.White), fitted)
	default:
		if origW <= targetW && origH <= targetH {
			return img
		}
		return imaging.Fit(img, targetW, targetH, imaging.Lanczos)
	}
}

// encodeImage encodes an image to the specified format and returns the bytes.
func encodeImage(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85})
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
