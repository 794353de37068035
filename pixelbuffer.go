package main

import (
	"image"
	"image/color"
	"math"

	"github.com/airbusgeo/godal"
	"github.com/pkg/errors"

	"github.com/rneatherway/etchplate/internal/logger"
)

// PixelBuffer holds one raster band as read by GDAL.
type PixelBuffer struct {
	buf    []float32
	width  uint
	height uint

	minMaxComputed bool
	min            float32
	max            float32
}

func (pb *PixelBuffer) minMax() {
	pb.min = pb.buf[0]
	pb.max = pb.buf[0]
	for _, p := range pb.buf {
		if p < pb.min {
			pb.min = p
		}
		if p > pb.max {
			pb.max = p
		}
	}
	pb.minMaxComputed = true
}

func (pb *PixelBuffer) Min() float32 {
	if !pb.minMaxComputed {
		pb.minMax()
	}
	return pb.min
}

func (pb *PixelBuffer) Max() float32 {
	if !pb.minMaxComputed {
		pb.minMax()
	}
	return pb.max
}

// Rows are stored one after another, so (x, y) is at x + y*width.
func (pb *PixelBuffer) get(x uint, y uint) float32 {
	return pb.buf[x+y*pb.width]
}

// ToImage stretches the band's range over 16-bit grey. A band with a single value comes out
// white.
func (pb *PixelBuffer) ToImage() image.Image {
	img := image.NewGray16(image.Rect(0, 0, int(pb.width), int(pb.height)))
	lo, hi := pb.Min(), pb.Max()

	logger.Sugar.Debugf("Rescaling band with min %f and max %f", lo, hi)
	for i := uint(0); i < pb.width; i++ {
		for j := uint(0); j < pb.height; j++ {
			c := float32(math.MaxUint16)
			if hi > lo {
				c = 65535 * (pb.get(i, j) - lo) / (hi - lo)
			}
			img.SetGray16(int(i), int(j), color.Gray16{Y: uint16(c)})
		}
	}
	return img
}

// FromGDAL reads the first band of any raster GDAL can open into a PixelBuffer.
func FromGDAL(path string) (*PixelBuffer, error) {
	godal.RegisterAll()
	hDataset, err := godal.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "gdal open %s", path)
	}
	defer hDataset.Close()

	structure := hDataset.Structure()
	if structure.SizeX <= 0 || structure.SizeY <= 0 {
		return nil, errors.Errorf("%s has no pixels", path)
	}
	bands := hDataset.Bands()
	if len(bands) == 0 {
		return nil, errors.Errorf("%s has no raster bands", path)
	}

	w, h := uint(structure.SizeX), uint(structure.SizeY)
	buf := make([]float32, w*h)
	logger.Sugar.Infof("Reading band 1 (of %d) of %s, %dx%d", len(bands), path, w, h)
	if err := bands[0].Read(0, 0, buf, int(w), int(h)); err != nil {
		return nil, errors.Wrapf(err, "read band 1 of %s", path)
	}

	// Undefined pixels read as dark.
	for i := range buf {
		if buf[i] == -math.MaxFloat32 {
			buf[i] = 0
		}
	}

	return &PixelBuffer{buf: buf, width: w, height: h}, nil
}
