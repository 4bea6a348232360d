package cmd

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/texturemaps/internal/raster"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

// setConfig overrides a viper key for the duration of the test.
func setConfig(t *testing.T, key string, value any) {
	t.Helper()
	prev := viper.Get(key)
	viper.Set(key, value)
	t.Cleanup(func() { viper.Set(key, prev) })
}

// writeTexture writes a small checkered gradient texture to dir/name.
func writeTexture(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			v := uint8(x * 16)
			if (x/4+y/4)%2 == 0 {
				v = 255 - v
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v / 2, B: 255 - v, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, raster.Save(path, img))
	return path
}
