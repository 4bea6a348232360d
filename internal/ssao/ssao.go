// Package ssao estimates ambient occlusion from a normal map and a height field
// by hemisphere sampling.
package ssao

import (
	"image"
	"math"
	"math/rand"

	"github.com/MeKo-Tech/texturemaps/internal/intensity"
	"github.com/MeKo-Tech/texturemaps/internal/mathutil"
)

// DefaultSeed makes repeated runs produce identical maps.
const DefaultSeed = 1337

// Params configures occlusion estimation.
type Params struct {
	// Size is the sampling radius in pixels.
	Size         float64
	Samples      int
	NoiseTexSize int
	Seed         int64
	// Tileable wraps neighbour lookups at the image edges instead of clamping.
	Tileable bool
}

// DefaultParams returns the defaults of the interactive tool.
func DefaultParams() Params {
	return Params{
		Size:         1,
		Samples:      16,
		NoiseTexSize: 4,
		Seed:         DefaultSeed,
		Tileable:     true,
	}
}

type vec3 = mathutil.Vec3

// Generate computes the occlusion map of normal. height is resampled to the
// normal map's dimensions when they differ. White means unoccluded.
func Generate(normal *image.NRGBA, height *intensity.Map, p Params) *image.Gray {
	if normal == nil {
		return image.NewGray(image.Rectangle{})
	}
	nb := normal.Bounds()
	w, h := nb.Dx(), nb.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	if dst.Bounds().Empty() {
		return dst
	}

	if p.Samples <= 0 || p.Size <= 0 || height.Empty() {
		for i := range dst.Pix {
			dst.Pix[i] = 255
		}
		return dst
	}

	if height.Width() != w || height.Height() != h {
		height = height.Rescale(w, h, p.Tileable)
	}

	rng := rand.New(rand.NewSource(p.Seed))
	kernel := hemisphereKernel(rng, p.Samples)
	noiseSize := max(p.NoiseTexSize, 1)
	noise := noiseTable(rng, noiseSize)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := decodeNormal(normal.Pix[normal.PixOffset(nb.Min.X+x, nb.Min.Y+y):])
			rot := noise[(y%noiseSize)*noiseSize+x%noiseSize]

			// Gram-Schmidt: tangent from the rotation vector, orthogonal to n.
			tangent := rot.Sub(n.Scale(rot.Dot(n))).Normalize()
			if tangent.IsZero() {
				tangent = fallbackTangent(n)
			}
			bitangent := n.Cross(tangent)

			h0 := height.At(x, y)
			var occlusion float64
			for _, k := range kernel {
				s := tangent.Scale(k[0]).Add(bitangent.Scale(k[1])).Add(n.Scale(k[2]))
				sx := x + int(math.Round(s[0]*p.Size))
				sy := y + int(math.Round(s[1]*p.Size))
				neighbour := height.Sample(sx, sy, p.Tileable)
				occlusion += clamp01(neighbour - (h0 + s[2]))
			}

			v := clamp01(1 - occlusion/float64(len(kernel)))
			dst.Pix[y*dst.Stride+x] = uint8(math.Round(v * 255))
		}
	}

	return dst
}

// hemisphereKernel returns n offsets inside the unit hemisphere around +z,
// concentrated towards the origin.
func hemisphereKernel(rng *rand.Rand, n int) []vec3 {
	kernel := make([]vec3, n)
	for i := range kernel {
		k := vec3{rng.Float64()*2 - 1, rng.Float64()*2 - 1, rng.Float64()}.Normalize()
		k = k.Scale(rng.Float64())
		t := float64(i) / float64(n)
		kernel[i] = k.Scale(lerp(0.1, 1, t*t))
	}
	return kernel
}

// noiseTable returns size*size unit rotation vectors in the xy plane.
func noiseTable(rng *rand.Rand, size int) []vec3 {
	noise := make([]vec3, size*size)
	for i := range noise {
		for {
			v := vec3{rng.Float64()*2 - 1, rng.Float64()*2 - 1, 0}
			if v.Dot(v) > 1e-6 {
				noise[i] = v.Normalize()
				break
			}
		}
	}
	return noise
}

func decodeNormal(px []uint8) vec3 {
	n := vec3{
		mathutil.FromUnit(float64(px[0]) / 255),
		mathutil.FromUnit(float64(px[1]) / 255),
		mathutil.FromUnit(float64(px[2]) / 255),
	}.Normalize()
	if n.IsZero() {
		return vec3{0, 0, 1}
	}
	return n
}

// fallbackTangent is used when the rotation vector is parallel to n.
func fallbackTangent(n vec3) vec3 {
	axis := vec3{1, 0, 0}
	if math.Abs(n[0]) > 0.9 {
		axis = vec3{0, 1, 0}
	}
	return axis.Sub(n.Scale(axis.Dot(n))).Normalize()
}

func lerp(a, b, t float64) float64 {
	return (1-t)*a + t*b
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
