// Package specular builds grayscale specular and displacement maps from a
// weighted combination of a texture's channels.
package specular

import (
	"image"
	"math"

	"github.com/MeKo-Tech/texturemaps/internal/intensity"
)

// Weights are the per-channel multipliers.
type Weights struct {
	R, G, B, A float64
}

// Params configures specular map generation.
type Params struct {
	Mode     intensity.Mode
	Weights  Weights
	Scale    float64
	Contrast float64
}

// DefaultParams returns the specular defaults of the interactive tool.
func DefaultParams() Params {
	return Params{
		Mode:     intensity.Average,
		Weights:  Weights{R: 1, G: 1, B: 1, A: 0},
		Scale:    1,
		Contrast: 1.5,
	}
}

// DisplacementParams returns the displacement defaults. Displacement maps never
// read the alpha channel.
func DisplacementParams() Params {
	return Params{
		Mode:     intensity.Average,
		Weights:  Weights{R: 1, G: 1, B: 1},
		Scale:    1,
		Contrast: 1,
	}
}

// Generate computes the grayscale map of src. An empty source yields an empty image.
func Generate(src *image.NRGBA, p Params) *image.Gray {
	if src == nil {
		return image.NewGray(image.Rectangle{})
	}
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	if dst.Bounds().Empty() {
		return dst
	}

	weights := [4]float64{p.Weights.R, p.Weights.G, p.Weights.B, p.Weights.A}
	factor := contrastFactor(p.Contrast)

	for y := 0; y < b.Dy(); y++ {
		off := src.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < b.Dx(); x++ {
			px := src.Pix[off+x*4 : off+x*4+4]
			v := combine(px, p.Mode, weights)
			v = clamp01(0.5 + (v-0.5)*factor)
			v = clamp01(v * p.Scale)
			dst.Pix[y*dst.Stride+x] = uint8(math.Round(v * 255))
		}
	}

	return dst
}

// combine merges the normalized channels of one pixel.
func combine(px []uint8, mode intensity.Mode, weights [4]float64) float64 {
	if mode == intensity.Max {
		best, winner := 0.0, -1
		for i, w := range weights {
			if w == 0 {
				continue
			}
			v := float64(px[i]) / 255.0
			if winner < 0 || w*v > best {
				best, winner = w*v, i
			}
		}
		if winner < 0 {
			return 0
		}
		return float64(px[winner]) / 255.0
	}

	var sum, total float64
	for i, w := range weights {
		sum += w * float64(px[i]) / 255.0
		total += math.Abs(w)
	}
	if total == 0 {
		return 0
	}
	return sum / total
}

// contrastFactor maps the contrast setting onto the slope applied around 0.5.
// It is monotonic and 1 leaves values unchanged.
func contrastFactor(contrast float64) float64 {
	return math.Max(contrast, 0)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
