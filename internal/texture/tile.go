package texture

import "image"

// TileTexture repeats src over a width x height canvas. Offsets shift the
// sampling grid so neighbouring tiles line up without seams.
func TileTexture(src image.Image, width, height int, offsetX, offsetY int) *image.NRGBA {
	if src == nil || width <= 0 || height <= 0 {
		return nil
	}

	bounds := src.Bounds()
	sw := bounds.Dx()
	sh := bounds.Dy()

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	if sw == 0 || sh == 0 {
		return dst
	}

	mod := func(a, b int) int {
		r := a % b
		if r < 0 {
			r += b
		}
		return r
	}

	for y := 0; y < height; y++ {
		sy := bounds.Min.Y + mod(offsetY+y, sh)
		for x := 0; x < width; x++ {
			sx := bounds.Min.X + mod(offsetX+x, sw)
			dst.Set(x, y, src.At(sx, sy))
		}
	}

	return dst
}
