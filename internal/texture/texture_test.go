package texture

import (
	"image"
	"image/color"
	"testing"

	"github.com/aquilax/go-perlin"
)

func TestGenerateSample(t *testing.T) {
	tests := []struct {
		name     string
		params   func() SampleParams
		wantErr  bool
		validate func(t *testing.T, img *image.NRGBA)
	}{
		{
			name: "default size and opaque",
			params: func() SampleParams {
				p := DefaultSampleParams()
				p.Size = 48
				return p
			},
			validate: func(t *testing.T, img *image.NRGBA) {
				if img.Bounds() != image.Rect(0, 0, 48, 48) {
					t.Fatalf("bounds = %v", img.Bounds())
				}
				for i := 3; i < len(img.Pix); i += 4 {
					if img.Pix[i] != 255 {
						t.Fatalf("alpha at byte %d = %d", i, img.Pix[i])
					}
				}
			},
		},
		{
			name: "zero variation is the base color",
			params: func() SampleParams {
				p := DefaultSampleParams()
				p.Size = 16
				p.Variation = 0
				return p
			},
			validate: func(t *testing.T, img *image.NRGBA) {
				want := DefaultSampleParams().BaseColor
				for y := 0; y < 16; y++ {
					for x := 0; x < 16; x++ {
						if got := img.NRGBAAt(x, y); got != want {
							t.Fatalf("(%d,%d) = %+v, want %+v", x, y, got, want)
						}
					}
				}
			},
		},
		{
			name: "variation produces texture",
			params: func() SampleParams {
				p := DefaultSampleParams()
				p.Size = 64
				p.Scale = 8
				return p
			},
			validate: func(t *testing.T, img *image.NRGBA) {
				seen := map[color.NRGBA]bool{}
				for y := 0; y < 64; y++ {
					for x := 0; x < 64; x++ {
						seen[img.NRGBAAt(x, y)] = true
					}
				}
				if len(seen) < 8 {
					t.Fatalf("expected a varied texture, got %d distinct colors", len(seen))
				}
			},
		},
		{
			name:    "zero size",
			params:  func() SampleParams { p := DefaultSampleParams(); p.Size = 0; return p },
			wantErr: true,
		},
		{
			name:    "zero scale",
			params:  func() SampleParams { p := DefaultSampleParams(); p.Scale = 0; return p },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := GenerateSample(tt.params())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.validate(t, img)
		})
	}
}

func TestGenerateSampleDeterministic(t *testing.T) {
	p := DefaultSampleParams()
	p.Size = 32
	a, err := GenerateSample(p)
	if err != nil {
		t.Fatal(err)
	}
	b, err := GenerateSample(p)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatalf("byte %d differs between runs", i)
		}
	}
}

func TestSeamlessWraps(t *testing.T) {
	p := perlin.NewPerlin(2.0, 2.0, 3, 99)
	const size = 40

	for i := 0; i < size; i++ {
		if a, b := seamless(p, size, i, size, 7.3), seamless(p, 0, i, size, 7.3); a != b {
			t.Fatalf("row %d: right edge %v does not continue left edge %v", i, a, b)
		}
		if a, b := seamless(p, i, size, size, 7.3), seamless(p, i, 0, size, 7.3); a != b {
			t.Fatalf("column %d: bottom edge %v does not continue top edge %v", i, a, b)
		}
	}
}

func TestTileTextureWithOffsetsSeamless(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.SetNRGBA(x, y, color.NRGBA{
				R: uint8(10*x + y),
				G: uint8(20*y + x),
				B: uint8(x + 2*y),
				A: 255,
			})
		}
	}

	ref := TileTexture(src, 8, 8, 0, 0)
	left := TileTexture(src, 4, 4, 0, 0)
	right := TileTexture(src, 4, 4, 4, 0)
	bottom := TileTexture(src, 4, 4, 0, 4)

	assertMatchesSubregion(t, left, ref, 0, 0)
	assertMatchesSubregion(t, right, ref, 4, 0)
	assertMatchesSubregion(t, bottom, ref, 0, 4)
}

func TestTileTextureUsesOffsets(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}

	tile := TileTexture(src, 3, 2, 1, 1)
	if tile.Bounds() != image.Rect(0, 0, 3, 2) {
		t.Fatalf("bounds = %v", tile.Bounds())
	}
	if tile.NRGBAAt(0, 0) != src.NRGBAAt(1, 1) {
		t.Fatalf("expected offset top-left to match source(1,1)")
	}
	if tile.NRGBAAt(2, 1) != src.NRGBAAt(3, 2) {
		t.Fatalf("expected offset bottom-right to match source(3,2)")
	}

	neg := TileTexture(src, 1, 1, -1, -1)
	if neg.NRGBAAt(0, 0) != src.NRGBAAt(3, 3) {
		t.Fatalf("negative offsets should wrap to source(3,3)")
	}
}

func TestTileTextureDegenerate(t *testing.T) {
	if TileTexture(nil, 4, 4, 0, 0) != nil {
		t.Fatal("nil source should give nil")
	}
	if TileTexture(image.NewNRGBA(image.Rect(0, 0, 2, 2)), 0, 4, 0, 0) != nil {
		t.Fatal("zero width should give nil")
	}
	empty := TileTexture(image.NewNRGBA(image.Rectangle{}), 2, 2, 0, 0)
	if empty.Bounds() != image.Rect(0, 0, 2, 2) {
		t.Fatalf("empty source should give a blank canvas, got %v", empty.Bounds())
	}
}

// assertMatchesSubregion compares a tile against a region in the reference image.
func assertMatchesSubregion(t *testing.T, tile *image.NRGBA, ref *image.NRGBA, startX, startY int) {
	t.Helper()

	if tile == nil || ref == nil {
		t.Fatalf("nil image provided")
	}

	for y := 0; y < tile.Bounds().Dy(); y++ {
		for x := 0; x < tile.Bounds().Dx(); x++ {
			refColor := ref.NRGBAAt(startX+x, startY+y)
			tileColor := tile.NRGBAAt(x, y)
			if tileColor != refColor {
				t.Fatalf("mismatch at (%d,%d): tile=%+v ref=%+v", x, y, tileColor, refColor)
			}
		}
	}
}
