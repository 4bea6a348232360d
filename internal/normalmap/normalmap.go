// Package normalmap derives tangent-space normal maps from color textures.
package normalmap

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/MeKo-Tech/texturemaps/internal/intensity"
	"github.com/MeKo-Tech/texturemaps/internal/mathutil"
)

// Kernel is a 3x3 gradient operator.
type Kernel int

const (
	Sobel Kernel = iota
	Prewitt
)

func (k Kernel) String() string {
	switch k {
	case Sobel:
		return "sobel"
	case Prewitt:
		return "prewitt"
	default:
		return fmt.Sprintf("Kernel(%d)", int(k))
	}
}

// ParseKernel parses "sobel" or "prewitt" (case-insensitive).
func ParseKernel(s string) (Kernel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sobel":
		return Sobel, nil
	case "prewitt":
		return Prewitt, nil
	default:
		return Sobel, fmt.Errorf("invalid kernel %q: must be 'sobel' or 'prewitt'", s)
	}
}

// coefficients returns the horizontal and vertical 3x3 sets, indexed [row][col].
func (k Kernel) coefficients() (h, v [3][3]float64) {
	switch k {
	case Prewitt:
		h = [3][3]float64{{-1, 0, 1}, {-1, 0, 1}, {-1, 0, 1}}
		v = [3][3]float64{{-1, -1, -1}, {0, 0, 0}, {1, 1, 1}}
	default:
		h = [3][3]float64{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
		v = [3][3]float64{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}
	}
	return h, v
}

// Params configures normal map generation.
type Params struct {
	Channels intensity.Channels
	Mode     intensity.Mode
	Kernel   Kernel
	Strength float64
	Invert   bool
	Tileable bool

	// KeepLargeDetail blends in normals computed from a LargeDetailScale percent
	// downsampled copy, weighted by LargeDetailHeight.
	KeepLargeDetail   bool
	LargeDetailScale  int
	LargeDetailHeight float64
}

// DefaultParams mirrors the defaults of the interactive tool.
func DefaultParams() Params {
	return Params{
		Channels:          intensity.RGB,
		Mode:              intensity.Average,
		Kernel:            Sobel,
		Strength:          2.0,
		Tileable:          true,
		LargeDetailScale:  25,
		LargeDetailHeight: 1.0,
	}
}

const (
	largeDetailMinSize   = 300
	largeDetailClampSize = 2300
	largeDetailMinScale  = 20
)

// LargeDetailDefaults picks the keep-large-detail settings for an image of the
// given size: disabled below 300px on the longest side, scale 20 above 2300px,
// round(-0.037*size + 100) in between.
func LargeDetailDefaults(width, height int) (keep bool, scale int) {
	size := max(width, height)
	scale = int(math.Round(-0.037*float64(size) + 100))
	if size < largeDetailMinSize {
		return false, scale
	}
	if size > largeDetailClampSize {
		scale = largeDetailMinScale
	}
	return true, scale
}

type vec3 = mathutil.Vec3

var up = vec3{0, 0, 1}

// unit normalizes v, falling back to straight up for a zero vector.
func unit(v vec3) vec3 {
	n := v.Normalize()
	if n.IsZero() {
		return up
	}
	return n
}

// Generate computes the normal map of src together with the raw intensity map it
// was derived from. An empty source yields an empty normal map and intensity map.
func Generate(src *image.NRGBA, p Params) (*image.NRGBA, *intensity.Map) {
	raw := intensity.FromImage(src, p.Mode, p.Channels)
	if raw.Empty() {
		return image.NewNRGBA(image.Rectangle{}), raw
	}

	normals := computeNormals(raw, p)

	if p.KeepLargeDetail {
		if large := largeDetailNormals(raw, p); large != nil {
			for i := range normals {
				normals[i] = unit(normals[i].Add(large[i].Scale(p.LargeDetailHeight)))
			}
		}
	}

	return encode(normals, raw.Width(), raw.Height()), raw
}

// computeNormals convolves m with the kernel and builds one unit normal per pixel.
func computeNormals(m *intensity.Map, p Params) []vec3 {
	w, h := m.Width(), m.Height()
	kh, kv := p.Kernel.coefficients()
	out := make([]vec3, w*h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var dx, dy float64
			for ky := 0; ky < 3; ky++ {
				for kx := 0; kx < 3; kx++ {
					v := m.Sample(x+kx-1, y+ky-1, p.Tileable)
					dx += kh[ky][kx] * v
					dy += kv[ky][kx] * v
				}
			}

			ny := -dy
			if p.Invert {
				ny = dy
			}
			n := vec3{-dx * p.Strength, ny * p.Strength, 1}
			if n[0] == 0 && n[1] == 0 {
				out[y*w+x] = up
				continue
			}
			out[y*w+x] = unit(n)
		}
	}

	return out
}

// largeDetailNormals computes normals on a downsampled copy of m and upsamples
// them back to m's resolution. Both resamples wrap around when tileable.
// Returns nil when there is nothing to blend.
func largeDetailNormals(m *intensity.Map, p Params) []vec3 {
	scale := min(max(p.LargeDetailScale, 1), 100)
	w, h := m.Width(), m.Height()
	sw := max(int(float64(w)/100.0*float64(scale)), 1)
	sh := max(int(float64(h)/100.0*float64(scale)), 1)

	small := m.Rescale(sw, sh, p.Tileable)
	coarse := computeNormals(small, p)

	// Components are carried through the resampler in [0,1] form.
	var comps [3][]float64
	for c := range comps {
		comps[c] = make([]float64, len(coarse))
		for i, n := range coarse {
			comps[c][i] = mathutil.ToUnit(n[c])
		}
		comps[c] = intensity.FromValues(sw, sh, comps[c]).Rescale(w, h, p.Tileable).Values()
	}

	out := make([]vec3, w*h)
	for i := range out {
		out[i] = unit(vec3{
			mathutil.FromUnit(comps[0][i]),
			mathutil.FromUnit(comps[1][i]),
			mathutil.FromUnit(comps[2][i]),
		})
	}
	return out
}

func encode(normals []vec3, w, h int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i, n := range normals {
		off := (i/w)*dst.Stride + (i%w)*4
		dst.Pix[off+0] = encodeComponent(n[0])
		dst.Pix[off+1] = encodeComponent(n[1])
		dst.Pix[off+2] = encodeComponent(n[2])
		dst.Pix[off+3] = 255
	}
	return dst
}

func encodeComponent(c float64) uint8 {
	v := math.Round(mathutil.ToUnit(c) * 255)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
