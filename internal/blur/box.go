// Package blur implements a separable box (mean) filter over intensity maps.
package blur

import "github.com/MeKo-Tech/texturemaps/internal/intensity"

// Box replaces every value with the mean of the (2*radius+1)^2 window around it,
// computed as a horizontal pass followed by a vertical pass.
// Samples outside the map wrap around when tileable and clamp to the edge otherwise.
// A radius <= 0 returns an exact copy of m.
func Box(m *intensity.Map, radius int, tileable bool) *intensity.Map {
	if m.Empty() {
		return &intensity.Map{}
	}
	if radius <= 0 {
		return m.Clone()
	}

	w, h := m.Width(), m.Height()
	src := m.Values()
	tmp := make([]float64, w*h)
	dst := make([]float64, w*h)

	// Horizontal pass must complete before the vertical pass reads tmp.
	for y := 0; y < h; y++ {
		slide(src[y*w:(y+1)*w], 1, tmp[y*w:(y+1)*w], 1, w, radius, tileable)
	}
	for x := 0; x < w; x++ {
		slide(tmp[x:], w, dst[x:], w, h, radius, tileable)
	}

	return intensity.FromValues(w, h, dst)
}

// slide runs a sliding-window mean over n samples of in (spaced by inStride)
// and writes n results into out (spaced by outStride).
func slide(in []float64, inStride int, out []float64, outStride int, n, radius int, tileable bool) {
	index := intensity.ClampIndex
	if tileable {
		index = intensity.WrapIndex
	}
	at := func(i int) float64 {
		return in[index(i, n)*inStride]
	}

	window := float64(2*radius + 1)
	var sum float64
	for k := -radius; k <= radius; k++ {
		sum += at(k)
	}

	for i := 0; i < n; i++ {
		out[i*outStride] = sum / window
		sum += at(i+radius+1) - at(i-radius)
	}
}
