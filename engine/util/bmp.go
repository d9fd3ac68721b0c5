package util

import (
	"image"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
)

// WriteBMP saves img as an uncompressed bitmap.
func WriteBMP(filename string, img image.Image) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "creating bitmap")
	}
	if err := bmp.Encode(file, img); err != nil {
		file.Close()
		return errors.Wrapf(err, "encoding %s", filename)
	}
	if err := file.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", filename)
	}
	LogIOInfo("wrote bitmap", "file", filename, "bounds", img.Bounds().String())
	return nil
}
