package preprocess

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

// Transform turns a decoded image into the NCHW float32 tensor the
// network expects: resize to Size×Size, scale to [0,1], normalize.
type Transform struct {
	Size int
	Mean [3]float32
	Std  [3]float32
}

// Load decodes an image file. imaging registers BMP and TIFF on top of the
// standard JPEG, PNG and GIF decoders; WebP comes from x/image.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Len is the number of values Apply produces.
func (t Transform) Len() int {
	return 3 * t.Size * t.Size
}

// Shape is the input tensor shape, batch size one.
func (t Transform) Shape() []int64 {
	return []int64{1, 3, int64(t.Size), int64(t.Size)}
}

// Apply resizes img and writes the normalized channels into a new slice.
func (t Transform) Apply(img image.Image) ([]float32, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	if t.Size <= 0 {
		return nil, fmt.Errorf("invalid target size %d", t.Size)
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("empty image %dx%d", bounds.Dx(), bounds.Dy())
	}

	size := uint(t.Size)
	resized := resize.Resize(size, size, toNRGBA(img), resize.Bilinear)

	rb := resized.Bounds()
	width, height := rb.Dx(), rb.Dy()
	plane := width * height
	out := make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBAModel.Convert(resized.At(rb.Min.X+x, rb.Min.Y+y)).(color.NRGBA)

			i := y*width + x
			out[i] = (float32(c.R)/255.0 - t.Mean[0]) / t.Std[0]
			out[plane+i] = (float32(c.G)/255.0 - t.Mean[1]) / t.Std[1]
			out[2*plane+i] = (float32(c.B)/255.0 - t.Mean[2]) / t.Std[2]
		}
	}

	return out, nil
}

// toNRGBA flattens any alpha onto opaque pixels so the result is plain RGB.
func toNRGBA(img image.Image) *image.NRGBA {
	src := imaging.Clone(img)
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 0xff
	}
	return src
}
