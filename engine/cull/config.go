package cull

import (
	"github.com/pkg/errors"
)

// Config holds the tuning knobs of a traversal. The near band and the
// frustum padding are policy: they bias towards drawing too much near the
// camera and towards keeping the raster while the camera barely rotates.
type Config struct {
	// RenderDistance is the horizontal Chebyshev distance, in regions, past
	// which regions are never drawn.
	RenderDistance int32
	// NearDistance is the Chebyshev distance, in regions, within which
	// regions are drawn without an occlusion test.
	NearDistance int32
	RasterWidth  int
	RasterHeight int
	// FrustumPadding widens the culling frustum, in degrees, and is the
	// rotation tolerated before the view version advances.
	FrustumPadding float32
	// TierRanges is the furthest region distance at which sub-boxes of each
	// range tier are still drawn into the raster.
	TierRanges [4]int32
}

func DefaultConfig() Config {
	return Config{
		RenderDistance: 12,
		NearDistance:   1,
		RasterWidth:    256,
		RasterHeight:   128,
		FrustumPadding: 5,
		TierRanges:     [4]int32{2, 6, 16, 1 << 20},
	}
}

func (c Config) Validate() error {
	if c.RenderDistance <= 0 {
		return errors.Errorf("render distance must be positive, got %d", c.RenderDistance)
	}
	if c.NearDistance < 0 {
		return errors.Errorf("near distance must not be negative, got %d", c.NearDistance)
	}
	if !isPowerOfTwo(c.RasterWidth) || !isPowerOfTwo(c.RasterHeight) {
		return errors.Errorf("raster size %dx%d: dimensions must be powers of two", c.RasterWidth, c.RasterHeight)
	}
	if c.FrustumPadding < 0 || c.FrustumPadding >= 45 {
		return errors.Errorf("frustum padding must be in [0, 45), got %v", c.FrustumPadding)
	}
	for t := 1; t < len(c.TierRanges); t++ {
		if c.TierRanges[t] < c.TierRanges[t-1] {
			return errors.Errorf("tier ranges must not decrease: %v", c.TierRanges)
		}
	}
	return nil
}
