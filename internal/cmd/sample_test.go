package cmd

import (
	"image/color"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/texturemaps/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		input   string
		want    color.NRGBA
		wantErr bool
	}{
		{input: "#968c80", want: color.NRGBA{R: 0x96, G: 0x8c, B: 0x80, A: 255}},
		{input: "FF0010", want: color.NRGBA{R: 255, G: 0, B: 16, A: 255}},
		{input: " #000000 ", want: color.NRGBA{A: 255}},
		{input: "#fff", wantErr: true},
		{input: "#zzzzzz", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseHexColor(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunSample(t *testing.T) {
	out := filepath.Join(t.TempDir(), "textures", "rock.png")
	setConfig(t, "sample.output", out)
	setConfig(t, "sample.size", 32)
	setConfig(t, "sample.preview", true)

	require.NoError(t, runSample(sampleCmd, nil))

	img, err := raster.Load(out)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())

	tiled, err := raster.Load(filepath.Join(filepath.Dir(out), "rock_tiled.png"))
	require.NoError(t, err)
	assert.Equal(t, 64, tiled.Bounds().Dx())
	assert.Equal(t, img.NRGBAAt(3, 5), tiled.NRGBAAt(35, 37))

	// refuses to overwrite without --force
	assert.Error(t, runSample(sampleCmd, nil))

	setConfig(t, "sample.force", true)
	assert.NoError(t, runSample(sampleCmd, nil))
}

func TestRunSample_InvalidInput(t *testing.T) {
	setConfig(t, "sample.output", filepath.Join(t.TempDir(), "s.png"))

	t.Run("variation", func(t *testing.T) {
		setConfig(t, "sample.variation", 1.5)
		assert.Error(t, runSample(sampleCmd, nil))
	})

	t.Run("color", func(t *testing.T) {
		setConfig(t, "sample.base_color", "blue")
		assert.Error(t, runSample(sampleCmd, nil))
	})

	t.Run("size", func(t *testing.T) {
		setConfig(t, "sample.size", 0)
		assert.Error(t, runSample(sampleCmd, nil))
	})
}
