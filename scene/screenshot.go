package scene

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

// Screenshot renders a deterministic top-down viewport raster of the document
// as PNG bytes. In a real deployment the host's own view capture replaces
// this; the simulator draws each object's footprint so callers still get an
// image that tracks document state.
func (d *Document) Screenshot(width, height int) ([]byte, error) {
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 600
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		shade := uint8(200 + 40*y/height)
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{shade, shade, shade, 255})
		}
	}

	if min, max, ok := d.BoundingBox(); ok {
		spanX := max[0] - min[0]
		spanY := max[1] - min[1]
		if spanX <= 0 {
			spanX = 1
		}
		if spanY <= 0 {
			spanY = 1
		}
		// 10% margin around the model
		toPx := func(p Vec3) (int, int) {
			fx := (p[0] - min[0]) / spanX
			fy := (p[1] - min[1]) / spanY
			x := int(float64(width) * (0.1 + 0.8*fx))
			y := int(float64(height) * (0.9 - 0.8*fy))
			return x, y
		}
		for i, o := range d.Objects() {
			x0, y1 := toPx(o.Shape.Min)
			x1, y0 := toPx(o.Shape.Max)
			c := palette[i%len(palette)]
			for y := y0; y <= y1; y++ {
				for x := x0; x <= x1; x++ {
					if x >= 0 && x < width && y >= 0 && y < height {
						img.Set(x, y, c)
					}
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var palette = []color.RGBA{
	{102, 153, 204, 255},
	{204, 153, 102, 255},
	{120, 180, 120, 255},
	{180, 120, 160, 255},
}
