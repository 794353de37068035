// Package raster decodes images and reduces them to the bitonal grid a plate is built from.
package raster

import (
	"image"
	"image/color"
	_ "image/gif"  // register GIF decoding
	_ "image/jpeg" // register JPEG decoding
	_ "image/png"  // register PNG decoding
	"io"
	"math"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp" // register BMP decoding
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // register TIFF decoding
	_ "golang.org/x/image/webp" // register WebP decoding

	"github.com/rneatherway/etchplate/grid"
)

// Options control how an image becomes a grid.
type Options struct {
	// Scale resizes the image before thresholding; 1 keeps it as is.
	Scale float64
	// Threshold is the grey level from which a pixel counts as raised when not dithering.
	Threshold uint8
	// Dither spreads the quantization error with Floyd-Steinberg instead of thresholding.
	Dither bool
	// Invert swaps light and dark before thresholding.
	Invert bool
}

// DefaultOptions keeps the image size and dithers it to black and white.
func DefaultOptions() Options {
	return Options{
		Scale:     1,
		Threshold: 128,
		Dither:    true,
	}
}

// Decode reads any registered image format.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", errors.Wrap(err, "decode image")
	}
	return img, format, nil
}

// Scale resamples img by factor with a Catmull-Rom filter. Sizes are truncated the same way
// in both directions.
func Scale(img image.Image, factor float64) (image.Image, error) {
	if factor == 1 {
		return img, nil
	}
	if !(factor > 0) || math.IsInf(factor, 0) {
		return nil, errors.Errorf("invalid scale factor %g", factor)
	}
	b := img.Bounds()
	w := int(float64(b.Dx()) * factor)
	h := int(float64(b.Dy()) * factor)
	if w < 1 || h < 1 {
		return nil, errors.Errorf("scaling %dx%d by %g leaves no pixels", b.Dx(), b.Dy(), factor)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst, nil
}

// Gray flattens img onto a white background and converts it to grey levels.
func Gray(img image.Image, invert bool) *image.Gray {
	b := img.Bounds()
	r := image.Rect(0, 0, b.Dx(), b.Dy())

	flat := image.NewRGBA(r)
	xdraw.Draw(flat, r, image.White, image.Point{}, xdraw.Src)
	xdraw.Draw(flat, r, img, b.Min, xdraw.Over)

	gray := image.NewGray(r)
	xdraw.Draw(gray, r, flat, image.Point{}, xdraw.Src)
	if invert {
		for i, v := range gray.Pix {
			gray.Pix[i] = 0xff - v
		}
	}
	return gray
}

// Bitonal reduces img to a grid: light pixels are raised, dark pixels recessed.
func Bitonal(img image.Image, o Options) *grid.Grid {
	gray := Gray(img, o.Invert)
	if !o.Dither {
		return grid.FromImage(gray, o.Threshold)
	}
	bw := image.NewPaletted(gray.Bounds(), color.Palette{color.Black, color.White})
	xdraw.FloydSteinberg.Draw(bw, bw.Bounds(), gray, image.Point{})
	return grid.FromImage(bw, 0x80)
}

// ToGrid scales img and reduces it to a grid.
func ToGrid(img image.Image, o Options) (*grid.Grid, error) {
	scaled, err := Scale(img, o.Scale)
	if err != nil {
		return nil, err
	}
	return Bitonal(scaled, o), nil
}
