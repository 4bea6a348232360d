// Package intensity projects RGBA textures onto scalar fields in [0,1].
package intensity

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/draw"
)

// Mode selects how the selected channels of a pixel are combined.
type Mode int

const (
	// Average uses the mean of the selected channels.
	Average Mode = iota
	// Max uses the largest of the selected channels.
	Max
)

func (m Mode) String() string {
	switch m {
	case Average:
		return "average"
	case Max:
		return "max"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "average" or "max" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "average", "avg":
		return Average, nil
	case "max":
		return Max, nil
	default:
		return Average, fmt.Errorf("invalid mode %q: must be 'average' or 'max'", s)
	}
}

// Channels selects which RGBA channels contribute to the intensity.
type Channels struct {
	R, G, B, A bool
}

// RGB selects the three color channels, the default for normal maps.
var RGB = Channels{R: true, G: true, B: true}

// Any reports whether at least one channel is selected.
func (c Channels) Any() bool {
	return c.R || c.G || c.B || c.A
}

func (c Channels) String() string {
	var sb strings.Builder
	if c.R {
		sb.WriteByte('r')
	}
	if c.G {
		sb.WriteByte('g')
	}
	if c.B {
		sb.WriteByte('b')
	}
	if c.A {
		sb.WriteByte('a')
	}
	return sb.String()
}

// ParseChannels parses a channel selection such as "rgb", "ra" or "a".
// An empty string selects no channel.
func ParseChannels(s string) (Channels, error) {
	var c Channels
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch r {
		case 'r':
			c.R = true
		case 'g':
			c.G = true
		case 'b':
			c.B = true
		case 'a':
			c.A = true
		default:
			return Channels{}, fmt.Errorf("invalid channel %q in %q: use any of r, g, b, a", r, s)
		}
	}
	return c, nil
}

// Map is an immutable width x height field of intensities in [0,1], stored row-major.
type Map struct {
	values []float64
	width  int
	height int
}

func newMap(width, height int) *Map {
	if width <= 0 || height <= 0 {
		return &Map{}
	}
	return &Map{
		width:  width,
		height: height,
		values: make([]float64, width*height),
	}
}

// FromImage builds an intensity map from the selected channels of src.
// With no channel selected every value is 0. A nil or empty source yields an empty map.
func FromImage(src *image.NRGBA, mode Mode, channels Channels) *Map {
	if src == nil {
		return &Map{}
	}

	b := src.Bounds()
	m := newMap(b.Dx(), b.Dy())
	if m.Empty() || !channels.Any() {
		return m
	}

	selected := [4]bool{channels.R, channels.G, channels.B, channels.A}
	for y := 0; y < m.height; y++ {
		off := src.PixOffset(b.Min.X, b.Min.Y+y)
		row := src.Pix[off : off+m.width*4]
		for x := 0; x < m.width; x++ {
			m.values[y*m.width+x] = project(row[x*4:x*4+4], mode, selected)
		}
	}

	return m
}

func project(px []uint8, mode Mode, selected [4]bool) float64 {
	var sum, peak float64
	n := 0
	for i, on := range selected {
		if !on {
			continue
		}
		v := float64(px[i])
		sum += v
		if v > peak {
			peak = v
		}
		n++
	}
	if n == 0 {
		return 0
	}
	if mode == Max {
		return peak / 255.0
	}
	return sum / float64(n) / 255.0
}

// FromGray builds an intensity map from a grayscale image (value / 255).
func FromGray(src *image.Gray) *Map {
	if src == nil {
		return &Map{}
	}

	b := src.Bounds()
	m := newMap(b.Dx(), b.Dy())
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			m.values[y*m.width+x] = float64(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y) / 255.0
		}
	}
	return m
}

// FromValues copies values (row-major, len == width*height) into a new map,
// clamping each value to [0,1].
func FromValues(width, height int, values []float64) *Map {
	m := newMap(width, height)
	if len(values) != len(m.values) {
		panic(fmt.Sprintf("intensity: %d values for a %dx%d map", len(values), width, height))
	}
	for i, v := range values {
		m.values[i] = clamp01(v)
	}
	return m
}

// Width returns the map width (0 for an empty map).
func (m *Map) Width() int {
	if m == nil {
		return 0
	}
	return m.width
}

// Height returns the map height (0 for an empty map).
func (m *Map) Height() int {
	if m == nil {
		return 0
	}
	return m.height
}

// Empty reports whether the map has zero width or height.
func (m *Map) Empty() bool {
	return m == nil || m.width == 0 || m.height == 0
}

// At returns the value at (x, y), which must lie inside the map.
func (m *Map) At(x, y int) float64 {
	return m.values[y*m.width+x]
}

// AtWrap returns the value at (x mod width, y mod height).
func (m *Map) AtWrap(x, y int) float64 {
	return m.values[WrapIndex(y, m.height)*m.width+WrapIndex(x, m.width)]
}

// AtClamp returns the value at the nearest in-bounds position.
func (m *Map) AtClamp(x, y int) float64 {
	return m.values[ClampIndex(y, m.height)*m.width+ClampIndex(x, m.width)]
}

// Sample reads (x, y) with wraparound when tileable, else edge-clamped.
func (m *Map) Sample(x, y int, tileable bool) float64 {
	if tileable {
		return m.AtWrap(x, y)
	}
	return m.AtClamp(x, y)
}

// Values returns a copy of the row-major values.
func (m *Map) Values() []float64 {
	if m.Empty() {
		return nil
	}
	out := make([]float64, len(m.values))
	copy(out, m.values)
	return out
}

// Clone returns an independent copy of the map.
func (m *Map) Clone() *Map {
	if m.Empty() {
		return &Map{}
	}
	return &Map{width: m.width, height: m.height, values: m.Values()}
}

// Sum returns the sum of all values.
func (m *Map) Sum() float64 {
	if m.Empty() {
		return 0
	}
	var s float64
	for _, v := range m.values {
		s += v
	}
	return s
}

// ToGray encodes the map as an 8-bit grayscale image.
func (m *Map) ToGray() *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, m.Width(), m.Height()))
	if m.Empty() {
		return dst
	}
	for i, v := range m.values {
		dst.Pix[(i/m.width)*dst.Stride+i%m.width] = toByte(v)
	}
	return dst
}

// ToNRGBA encodes the map into the RGB channels of an opaque image, for display.
func (m *Map) ToNRGBA() *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, m.Width(), m.Height()))
	if m.Empty() {
		return dst
	}
	for i, v := range m.values {
		c := toByte(v)
		dst.SetNRGBA(i%m.width, i/m.width, color.NRGBA{R: c, G: c, B: c, A: 255})
	}
	return dst
}

// Resize resamples the map to width x height with bilinear filtering.
// The aspect ratio is not preserved.
func (m *Map) Resize(width, height int) *Map {
	if m.Empty() || width <= 0 || height <= 0 {
		return newMap(width, height)
	}
	if width == m.width && height == m.height {
		return m.Clone()
	}

	src := image.NewGray16(image.Rect(0, 0, m.width, m.height))
	for i, v := range m.values {
		src.SetGray16(i%m.width, i/m.width, color.Gray16{Y: uint16(math.Round(v * 65535))})
	}

	dst := image.NewGray16(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := newMap(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			out.values[y*width+x] = float64(dst.Gray16At(x, y).Y) / 65535.0
		}
	}
	return out
}

// ResizeWrap resamples like Resize but treats the map as periodic: values near
// one edge are filtered together with the opposite edge. It resamples a 3x3
// tiling of the map and keeps the center, so the scale ratio is unchanged.
func (m *Map) ResizeWrap(width, height int) *Map {
	if m.Empty() || width <= 0 || height <= 0 {
		return newMap(width, height)
	}
	if width == m.width && height == m.height {
		return m.Clone()
	}

	tiled := newMap(3*m.width, 3*m.height)
	for y := 0; y < tiled.height; y++ {
		row := m.values[(y%m.height)*m.width : (y%m.height+1)*m.width]
		for t := 0; t < 3; t++ {
			copy(tiled.values[y*tiled.width+t*m.width:], row)
		}
	}

	big := tiled.Resize(3*width, 3*height)
	out := newMap(width, height)
	for y := 0; y < height; y++ {
		off := (y+height)*big.width + width
		copy(out.values[y*width:(y+1)*width], big.values[off:off+width])
	}
	return out
}

// Rescale picks ResizeWrap when tileable and Resize otherwise.
func (m *Map) Rescale(width, height int, tileable bool) *Map {
	if tileable {
		return m.ResizeWrap(width, height)
	}
	return m.Resize(width, height)
}

// WrapIndex maps i into [0, n) with modulo wraparound.
func WrapIndex(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// ClampIndex maps i into [0, n) by clamping to the nearest edge.
func ClampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
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

func toByte(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}
