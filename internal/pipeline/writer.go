package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/texturemaps/internal/pack"
	"github.com/MeKo-Tech/texturemaps/internal/raster"
)

// MapWriter stores a generated map and returns where it went.
type MapWriter interface {
	WriteMap(name string, kind Kind, img image.Image) (string, error)
}

// FolderWriter writes each map to {dir}/{name}_{kind}{ext}.
type FolderWriter struct {
	dir string
	ext string
}

// NewFolderWriter creates a writer into dir. ext is normalised with
// raster.OutputExt, so ".tga" and "" both produce PNG files.
func NewFolderWriter(dir, ext string) *FolderWriter {
	if dir == "" {
		dir = "."
	}
	return &FolderWriter{dir: dir, ext: raster.OutputExt(ext)}
}

// MapPath returns the file a map would be written to.
func (w *FolderWriter) MapPath(name string, kind Kind) string {
	ext := w.ext
	if kind == KindChannel {
		ext = ".png"
	}
	return filepath.Join(w.dir, MapFileName(name, kind, ext))
}

// WriteMap encodes img to its map path.
func (w *FolderWriter) WriteMap(name string, kind Kind, img image.Image) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	path := w.MapPath(name, kind)
	if err := raster.Save(path, img); err != nil {
		return "", err
	}
	return path, nil
}

// MapFileName builds {name}_{kind}{ext}.
func MapFileName(name string, kind Kind, ext string) string {
	return name + "_" + string(kind) + ext
}

// PackWriter stores maps in a texture pack.
type PackWriter struct {
	pack   *pack.Writer
	format raster.Format
}

// NewPackWriter creates a writer that encodes maps as format into w.
func NewPackWriter(w *pack.Writer, format raster.Format) *PackWriter {
	if format == "" || format == raster.TGA {
		format = raster.PNG
	}
	return &PackWriter{pack: w, format: format}
}

// WriteMap encodes img and queues it in the pack.
func (w *PackWriter) WriteMap(name string, kind Kind, img image.Image) (string, error) {
	format := w.format
	if kind == KindChannel {
		format = raster.PNG
	}

	var buf bytes.Buffer
	if err := raster.Encode(&buf, img, format); err != nil {
		return "", fmt.Errorf("failed to encode %s map of %s: %w", kind, name, err)
	}

	b := img.Bounds()
	err := w.pack.WriteMap(pack.Entry{
		Source: name,
		Kind:   string(kind),
		Format: string(format),
		Width:  b.Dx(),
		Height: b.Dy(),
		Data:   buf.Bytes(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store %s map of %s: %w", kind, name, err)
	}
	return w.pack.Path() + "#" + name + "/" + string(kind), nil
}

// BaseName returns the file name of path without directory and extension.
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
