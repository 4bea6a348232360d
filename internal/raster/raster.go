// Package raster loads and saves the textures the generators work on.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/gift"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// ErrUnsupportedFormat is returned for extensions no codec is registered for.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Format names an image codec.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	GIF  Format = "gif"
	TIFF Format = "tiff"
	BMP  Format = "bmp"
	TGA  Format = "tga"
	WebP Format = "webp"
)

const jpegQuality = 95

var extFormats = map[string]Format{
	".png":  PNG,
	".jpg":  JPEG,
	".jpeg": JPEG,
	".gif":  GIF,
	".tif":  TIFF,
	".tiff": TIFF,
	".bmp":  BMP,
	".tga":  TGA,
	".webp": WebP,
}

var decoders = map[Format]func(io.Reader) (image.Image, error){
	PNG:  png.Decode,
	JPEG: jpeg.Decode,
	GIF:  gif.Decode,
	TIFF: tiff.Decode,
	BMP:  bmp.Decode,
	TGA:  tga.Decode,
	WebP: webp.Decode,
}

// FormatForPath returns the codec for the extension of path.
func FormatForPath(path string) (Format, bool) {
	f, ok := extFormats[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// SupportedInput reports whether path has an extension Load can decode.
func SupportedInput(path string) bool {
	f, ok := FormatForPath(path)
	if !ok {
		return false
	}
	_, ok = decoders[f]
	return ok
}

// OutputExt normalises an output extension: ".tga" is written as ".png" and
// an empty extension defaults to ".png".
func OutputExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	switch ext {
	case "", ".tga":
		return ".png"
	default:
		return ext
	}
}

// Load reads and decodes the image at path into an NRGBA buffer.
func Load(path string) (*image.NRGBA, error) {
	format, ok := FormatForPath(path)
	if !ok {
		return nil, fmt.Errorf("failed to load %s: %w", path, ErrUnsupportedFormat)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	img, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return img, nil
}

// Decode decodes r with the codec of format.
func Decode(r io.Reader, format Format) (*image.NRGBA, error) {
	decode, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("cannot decode %q: %w", format, ErrUnsupportedFormat)
	}
	img, err := decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", format, err)
	}
	return ToNRGBA(img), nil
}

// ToNRGBA converts img to a non-premultiplied RGBA buffer whose bounds start at
// the origin. NRGBA images already at the origin are returned as is.
func ToNRGBA(img image.Image) *image.NRGBA {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format Format) error {
	var err error
	switch format {
	case PNG:
		err = png.Encode(w, img)
	case JPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	case GIF:
		err = gif.Encode(w, img, nil)
	case TIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case BMP:
		err = bmp.Encode(w, img)
	case WebP:
		err = nativewebp.Encode(w, img, nil)
	default:
		return fmt.Errorf("cannot encode %q: %w", format, ErrUnsupportedFormat)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return nil
}

// Save encodes img into path, picking the codec from the extension.
func Save(path string, img image.Image) error {
	format, ok := FormatForPath(path)
	if !ok || format == TGA {
		return fmt.Errorf("failed to save %s: %w", path, ErrUnsupportedFormat)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Encode(f, img, format); err != nil {
		f.Close()
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// Percentage returns percent of value, truncated and never below 1.
func Percentage(value, percent int) int {
	return max(int(float64(value)/100.0*float64(percent)), 1)
}

// ScalePercent downscales src to percent of its size, keeping the aspect ratio.
// Percentages outside 1..99 return src unchanged.
func ScalePercent(src *image.NRGBA, percent int) *image.NRGBA {
	if src == nil || src.Bounds().Empty() || percent <= 0 || percent >= 100 {
		return src
	}
	b := src.Bounds()
	g := gift.New(gift.Resize(Percentage(b.Dx(), percent), Percentage(b.Dy(), percent), gift.LanczosResampling))
	dst := image.NewNRGBA(g.Bounds(b))
	g.Draw(dst, src)
	return dst
}
