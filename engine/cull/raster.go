package cull

import (
	"image"
	"image/color"
	"math/bits"
)

// coverage is a width*height bit matrix. Both dimensions are powers of two
// so a pixel index is y<<widthShift | x.
type coverage struct {
	width, height int
	widthShift    uint
	words         []uint64
}

func newCoverage(width, height int) coverage {
	return coverage{
		width:      width,
		height:     height,
		widthShift: uint(bits.TrailingZeros(uint(width))),
		words:      make([]uint64, (width*height+63)/64),
	}
}

func (c *coverage) clear() {
	clear(c.words)
}

func (c *coverage) index(x, y int) int {
	return y<<c.widthShift | x
}

func (c *coverage) get(x, y int) bool {
	i := c.index(x, y)
	return c.words[i>>6]&(1<<(i&63)) != 0
}

func (c *coverage) set(x, y int) {
	i := c.index(x, y)
	c.words[i>>6] |= 1 << (i & 63)
}

func (c *coverage) count() int {
	n := 0
	for _, w := range c.words {
		n += bits.OnesCount64(w)
	}
	return n
}

func (c *coverage) image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, c.width, c.height))
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			if c.get(x, y) {
				// raster y grows upwards, images grow downwards
				img.SetGray(x, c.height-1-y, color.Gray{Y: 0xff})
			}
		}
	}
	return img
}

func isPowerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}
