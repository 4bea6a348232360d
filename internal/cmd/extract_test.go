package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/texturemaps/internal/pack"
	"github.com/MeKo-Tech/texturemaps/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngEntry(t *testing.T) pack.Entry {
	t.Helper()
	path := writeTexture(t, t.TempDir(), "stone_normal.png")
	entry, err := readMapFile(mapFile{source: "stone", kind: "normal", path: path})
	require.NoError(t, err)
	return entry
}

func TestWriteEntry_SameFormat(t *testing.T) {
	entry := pngEntry(t)
	out := filepath.Join(t.TempDir(), "deep", "out.png")

	require.NoError(t, writeEntry(entry, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, entry.Data, data)
}

func TestWriteEntry_Reencode(t *testing.T) {
	entry := pngEntry(t)
	out := filepath.Join(t.TempDir(), "out.bmp")

	require.NoError(t, writeEntry(entry, out))

	img, err := raster.Load(out)
	require.NoError(t, err)
	want, err := raster.Decode(bytes.NewReader(entry.Data), raster.PNG)
	require.NoError(t, err)
	assert.Equal(t, want.Pix, img.Pix)
}

func TestWriteEntry_Unsupported(t *testing.T) {
	err := writeEntry(pngEntry(t), filepath.Join(t.TempDir(), "out.ppm"))
	assert.ErrorIs(t, err, raster.ErrUnsupportedFormat)
}

func TestRunExtract(t *testing.T) {
	packFile := filepath.Join(t.TempDir(), "maps.texpack")
	w, err := pack.New(packFile, pack.Metadata{Name: "test", Description: "extract", Version: "1.0"})
	require.NoError(t, err)
	require.NoError(t, w.WriteMap(pngEntry(t)))
	require.NoError(t, w.Close())

	out := t.TempDir()
	setConfig(t, "output-dir", out)
	setConfig(t, "extract.input", packFile)
	setConfig(t, "extract.source", "stone")

	require.NoError(t, runExtract(extractCmd, nil))
	assert.FileExists(t, filepath.Join(out, "stone_normal.png"))

	t.Run("list", func(t *testing.T) {
		setConfig(t, "extract.list", true)
		var buf bytes.Buffer
		extractCmd.SetOut(&buf)
		t.Cleanup(func() { extractCmd.SetOut(nil) })

		require.NoError(t, runExtract(extractCmd, nil))
		assert.Contains(t, buf.String(), "test (extract) version 1.0")
		assert.Contains(t, buf.String(), "stone")
		assert.Contains(t, buf.String(), "16x16")
	})

	t.Run("missing map", func(t *testing.T) {
		setConfig(t, "extract.kind", "occlusion")
		assert.Error(t, runExtract(extractCmd, nil))
	})

	t.Run("unknown kind", func(t *testing.T) {
		setConfig(t, "extract.kind", "bump")
		assert.Error(t, runExtract(extractCmd, nil))
	})

	t.Run("missing source", func(t *testing.T) {
		setConfig(t, "extract.source", "")
		assert.Error(t, runExtract(extractCmd, nil))
	})
}

func TestRunExtract_RequiresInput(t *testing.T) {
	setConfig(t, "extract.input", "")
	assert.Error(t, runExtract(extractCmd, nil))
}
