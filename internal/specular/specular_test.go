package specular

import (
	"image"
	"image/color"
	"testing"

	"github.com/MeKo-Tech/texturemaps/internal/intensity"
)

func onePixel(c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, c)
	return img
}

func TestNeutralRedReproducesRedChannel(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: uint8(y*16 + x), G: 200, B: 13, A: 77})
		}
	}

	out := Generate(src, Params{
		Mode:     intensity.Average,
		Weights:  Weights{R: 1},
		Scale:    1,
		Contrast: 1,
	})

	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if got, want := out.GrayAt(x, y).Y, src.NRGBAAt(x, y).R; got != want {
				t.Fatalf("(%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestGenerate(t *testing.T) {
	px := color.NRGBA{R: 200, G: 100, B: 50, A: 255}

	tests := []struct {
		name   string
		params Params
		want   uint8
	}{
		{
			name:   "weighted average",
			params: Params{Mode: intensity.Average, Weights: Weights{R: 1, G: 1}, Scale: 1, Contrast: 1},
			want:   150,
		},
		{
			name:   "average normalises by weight magnitude",
			params: Params{Mode: intensity.Average, Weights: Weights{R: 2, B: -1}, Scale: 1, Contrast: 1},
			// (2*200 - 50) / 3 = 116.67
			want: 117,
		},
		{
			name:   "all zero weights give black",
			params: Params{Mode: intensity.Average, Weights: Weights{}, Scale: 1, Contrast: 1},
			want:   0,
		},
		{
			name:   "max picks the channel with the largest weighted value",
			params: Params{Mode: intensity.Max, Weights: Weights{R: 0.1, G: 1, B: 0.5}, Scale: 1, Contrast: 1},
			want:   100,
		},
		{
			name:   "max with zero weights gives black",
			params: Params{Mode: intensity.Max, Weights: Weights{}, Scale: 1, Contrast: 1},
			want:   0,
		},
		{
			name:   "scale brightens",
			params: Params{Mode: intensity.Average, Weights: Weights{B: 1}, Scale: 2, Contrast: 1},
			want:   100,
		},
		{
			name:   "scale clamps to white",
			params: Params{Mode: intensity.Average, Weights: Weights{R: 1}, Scale: 3, Contrast: 1},
			want:   255,
		},
		{
			name:   "zero contrast flattens to mid gray",
			params: Params{Mode: intensity.Average, Weights: Weights{R: 1}, Scale: 1, Contrast: 0},
			want:   128,
		},
		{
			name:   "high contrast pushes away from mid gray",
			params: Params{Mode: intensity.Average, Weights: Weights{R: 1}, Scale: 1, Contrast: 4},
			want:   255,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Generate(onePixel(px), tt.params)
			if got := out.GrayAt(0, 0).Y; got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestContrastIsMonotonic(t *testing.T) {
	px := onePixel(color.NRGBA{R: 180, A: 255})
	prev := -1
	for _, c := range []float64{0, 0.5, 1, 1.5, 2, 3} {
		v := int(Generate(px, Params{Mode: intensity.Average, Weights: Weights{R: 1}, Scale: 1, Contrast: c}).GrayAt(0, 0).Y)
		if v < prev {
			t.Fatalf("contrast %v decreased a bright value: %d < %d", c, v, prev)
		}
		prev = v
	}
}

func TestDisplacementIgnoresAlpha(t *testing.T) {
	a := Generate(onePixel(color.NRGBA{R: 10, G: 20, B: 30, A: 0}), DisplacementParams())
	b := Generate(onePixel(color.NRGBA{R: 10, G: 20, B: 30, A: 255}), DisplacementParams())
	if a.GrayAt(0, 0) != b.GrayAt(0, 0) {
		t.Fatalf("alpha leaked into displacement: %d vs %d", a.GrayAt(0, 0).Y, b.GrayAt(0, 0).Y)
	}
}

func TestEmptySource(t *testing.T) {
	if out := Generate(image.NewNRGBA(image.Rect(0, 0, 3, 0)), DefaultParams()); !out.Bounds().Empty() {
		t.Fatal("expected empty output")
	}
	if out := Generate(nil, DefaultParams()); !out.Bounds().Empty() {
		t.Fatal("expected empty output for nil source")
	}
}
