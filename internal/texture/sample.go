// Package texture produces procedural sample textures and tiled previews.
package texture

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/aquilax/go-perlin"
)

// SampleParams defines a seamless procedural diffuse texture.
type SampleParams struct {
	Size      int
	BaseColor color.NRGBA
	// Variation is how strongly the noise modulates the base color, 0..1.
	Variation float64
	// Scale is the noise feature size in pixels.
	Scale float64
	Seed  int64
}

// DefaultSampleParams returns a stone-like gray sample.
func DefaultSampleParams() SampleParams {
	return SampleParams{
		Size:      256,
		BaseColor: color.NRGBA{R: 150, G: 140, B: 128, A: 255},
		Variation: 0.8,
		Scale:     32,
		Seed:      1337,
	}
}

// GenerateSample creates a texture that tiles without visible seams. Two Perlin
// layers are blended across the wrap edges so that column 0 continues column
// Size-1 and row 0 continues row Size-1.
func GenerateSample(p SampleParams) (*image.NRGBA, error) {
	if p.Size <= 0 {
		return nil, fmt.Errorf("size must be positive")
	}
	if p.Scale <= 0 {
		return nil, fmt.Errorf("scale must be positive")
	}
	p.Variation = clamp01(p.Variation)

	coarse := perlin.NewPerlin(2.0, 2.0, 3, p.Seed)
	fine := perlin.NewPerlin(2.0, 2.0, 4, p.Seed+4242)

	out := image.NewNRGBA(image.Rect(0, 0, p.Size, p.Size))
	base := [3]float64{float64(p.BaseColor.R), float64(p.BaseColor.G), float64(p.BaseColor.B)}

	for y := 0; y < p.Size; y++ {
		for x := 0; x < p.Size; x++ {
			c := seamless(coarse, x, y, p.Size, p.Scale)
			f := seamless(fine, x, y, p.Size, p.Scale/4)

			// Both layers are roughly in [-1,1].
			n := 0.75*c + 0.25*f
			shade := 1 + p.Variation*0.6*n

			off := out.PixOffset(x, y)
			for ch := 0; ch < 3; ch++ {
				out.Pix[off+ch] = uint8(math.Round(math.Max(0, math.Min(255, base[ch]*shade))))
			}
			out.Pix[off+3] = 255
		}
	}

	return out, nil
}

// seamless blends the four wrapped copies of the noise field so the result has
// period size in both directions.
func seamless(p *perlin.Perlin, x, y, size int, scale float64) float64 {
	s := float64(size)
	fx, fy := float64(x), float64(y)
	u, v := fx/s, fy/s

	n00 := p.Noise2D(fx/scale, fy/scale)
	n10 := p.Noise2D((fx-s)/scale, fy/scale)
	n01 := p.Noise2D(fx/scale, (fy-s)/scale)
	n11 := p.Noise2D((fx-s)/scale, (fy-s)/scale)

	return n00*(1-u)*(1-v) + n10*u*(1-v) + n01*(1-u)*v + n11*u*v
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
