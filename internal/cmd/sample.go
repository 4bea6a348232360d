package cmd

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/texturemaps/internal/raster"
	"github.com/MeKo-Tech/texturemaps/internal/texture"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Generate a seamless sample texture",
	Long:  "Generate a seamless procedural diffuse texture to try the map generators on.",
	RunE:  runSample,
}

func init() {
	rootCmd.AddCommand(sampleCmd)

	sampleCmd.Flags().StringP("output", "o", "sample.png", "Output texture file")
	sampleCmd.Flags().Int("size", 256, "Texture size in pixels (square)")
	sampleCmd.Flags().Int64("seed", 1337, "Deterministic seed for texture generation")
	sampleCmd.Flags().Float64("variation", 0.8, "How strongly the noise modulates the base color (0..1)")
	sampleCmd.Flags().Float64("scale", 32, "Noise feature size in pixels")
	sampleCmd.Flags().String("base-color", "#968c80", "Base color as #rrggbb")
	sampleCmd.Flags().Bool("preview", false, "Also write a 2x2 tiled preview next to the texture")
	sampleCmd.Flags().Bool("force", false, "Overwrite the texture if it already exists")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"sample.output", "output"},
		{"sample.size", "size"},
		{"sample.seed", "seed"},
		{"sample.variation", "variation"},
		{"sample.scale", "scale"},
		{"sample.base_color", "base-color"},
		{"sample.preview", "preview"},
		{"sample.force", "force"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, sampleCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runSample(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	output := viper.GetString("sample.output")
	variation := viper.GetFloat64("sample.variation")
	preview := viper.GetBool("sample.preview")
	force := viper.GetBool("sample.force")

	if variation < 0 || variation > 1 {
		return fmt.Errorf("variation must be within [0,1]")
	}
	base, err := parseHexColor(viper.GetString("sample.base_color"))
	if err != nil {
		return fmt.Errorf("invalid base color: %w", err)
	}

	if !force {
		if _, err := os.Stat(output); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", output)
		}
	}

	img, err := texture.GenerateSample(texture.SampleParams{
		Size:      viper.GetInt("sample.size"),
		BaseColor: base,
		Variation: variation,
		Scale:     viper.GetFloat64("sample.scale"),
		Seed:      viper.GetInt64("sample.seed"),
	})
	if err != nil {
		return err
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	if err := raster.Save(output, img); err != nil {
		return err
	}
	logger.Info("Sample texture written", "path", output, "size", img.Bounds().Dx())

	if preview {
		ext := filepath.Ext(output)
		previewPath := strings.TrimSuffix(output, ext) + "_tiled" + ext
		b := img.Bounds()
		tiled := texture.TileTexture(img, b.Dx()*2, b.Dy()*2, 0, 0)
		if err := raster.Save(previewPath, tiled); err != nil {
			return err
		}
		logger.Info("Tiled preview written", "path", previewPath)
	}

	return nil
}

// parseHexColor parses "#rrggbb" or "rrggbb" into an opaque color.
func parseHexColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.NRGBA{}, fmt.Errorf("expected 6 hex digits, got %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
