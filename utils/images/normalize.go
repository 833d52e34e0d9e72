package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupported is returned for data which is not an image the document
// can carry.
var ErrUnsupported = errors.New("unsupported image format")

// Image is image data ready to be embedded into the document.
type Image struct {
	Data   []byte
	Format string // png, jpeg or gif
	Width  int    // pixels
	Height int
}

// Ext returns file extension for the format.
func (i *Image) Ext() string {
	if i.Format == "jpeg" {
		return "jpg"
	}
	return i.Format
}

// ContentType returns MIME type for the format.
func (i *Image) ContentType() string {
	return "image/" + i.Format
}

// NormalizeOptions controls Normalize.
type NormalizeOptions struct {
	RasterizeSVG bool
	// display box of the image, SVG is rasterized at twice this size
	DisplayWidth  int
	DisplayHeight int
}

// Detect returns format of the image data: "png", "jpeg", "gif", "bmp",
// "tiff", "webp", "svg" or empty string when unknown.
func Detect(data []byte) string {
	if isSVG(data) {
		return "svg"
	}
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	switch kind.Extension {
	case "png", "gif", "bmp", "webp":
		return kind.Extension
	case "jpg":
		return "jpeg"
	case "tif":
		return "tiff"
	default:
		return ""
	}
}

// Normalize turns image data into one of the formats every word processor
// renders. PNG, JPEG and GIF are kept as is, BMP, TIFF and WebP are re-encoded
// as PNG, SVG is rasterized to PNG when enabled.
func Normalize(data []byte, opts NormalizeOptions) (*Image, error) {
	switch format := Detect(data); format {
	case "png", "jpeg", "gif":
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("unable to decode %s image: %w", format, err)
		}
		return &Image{Data: data, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
	case "bmp", "tiff", "webp":
		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("unable to decode %s image: %w", format, err)
		}
		return encodePNG(img)
	case "svg":
		if !opts.RasterizeSVG {
			return nil, fmt.Errorf("%w: svg rasterization disabled", ErrUnsupported)
		}
		img, err := RasterizeSVGToImage(data, opts.DisplayWidth*2, opts.DisplayHeight*2)
		if err != nil {
			return nil, fmt.Errorf("unable to rasterize svg image: %w", err)
		}
		return encodePNG(img)
	default:
		return nil, ErrUnsupported
	}
}

func encodePNG(img image.Image) (*Image, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
		return nil, fmt.Errorf("unable to encode png: %w", err)
	}
	b := img.Bounds()
	return &Image{Data: buf.Bytes(), Format: "png", Width: b.Dx(), Height: b.Dy()}, nil
}

// isSVG sniffs for svg root element within the first KiB, skipping xml
// declaration, comments and doctype.
func isSVG(data []byte) bool {
	head := data[:min(len(data), 1024)]
	s := strings.ToLower(strings.TrimSpace(string(head)))
	if strings.HasPrefix(s, "<svg") {
		return true
	}
	if !strings.HasPrefix(s, "<?xml") && !strings.HasPrefix(s, "<!--") && !strings.HasPrefix(s, "<!doctype") {
		return false
	}
	return strings.Contains(s, "<svg")
}
