package preprocess

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var imageNet = Transform{
	Size: 224,
	Mean: [3]float32{0.485, 0.456, 0.406},
	Std:  [3]float32{0.229, 0.224, 0.225},
}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestTransform_ShapeAndLen(t *testing.T) {
	require.Equal(t, []int64{1, 3, 224, 224}, imageNet.Shape())
	require.Equal(t, 3*224*224, imageNet.Len())
}

func TestTransform_ApplyNormalizesPlanes(t *testing.T) {
	img := solid(64, 48, color.NRGBA{R: 255, G: 0, B: 128, A: 255})

	out, err := imageNet.Apply(img)
	require.NoError(t, err)
	require.Len(t, out, imageNet.Len())

	plane := 224 * 224
	wantR := (1.0 - 0.485) / 0.229
	wantG := (0.0 - 0.456) / 0.224
	wantB := (128.0/255.0 - 0.406) / 0.225
	for _, i := range []int{0, plane / 2, plane - 1} {
		require.InDelta(t, wantR, out[i], 1e-2)
		require.InDelta(t, wantG, out[plane+i], 1e-2)
		require.InDelta(t, wantB, out[2*plane+i], 1e-2)
	}
}

func TestTransform_ApplyIgnoresAlpha(t *testing.T) {
	opaque, err := imageNet.Apply(solid(10, 10, color.NRGBA{R: 10, G: 200, B: 30, A: 255}))
	require.NoError(t, err)
	translucent, err := imageNet.Apply(solid(10, 10, color.NRGBA{R: 10, G: 200, B: 30, A: 40}))
	require.NoError(t, err)

	require.InDelta(t, opaque[0], translucent[0], 1e-2)
	require.InDelta(t, opaque[224*224], translucent[224*224], 1e-2)
}

func TestTransform_ApplyDoesNotKeepAspectRatio(t *testing.T) {
	small := Transform{Size: 8, Mean: imageNet.Mean, Std: imageNet.Std}

	out, err := small.Apply(solid(100, 3, color.NRGBA{A: 255}))
	require.NoError(t, err)
	require.Len(t, out, 3*8*8)
}

func TestTransform_ApplyRejectsBadInput(t *testing.T) {
	_, err := imageNet.Apply(nil)
	require.Error(t, err)

	_, err = imageNet.Apply(image.NewNRGBA(image.Rect(0, 0, 0, 0)))
	require.ErrorContains(t, err, "empty image")

	_, err = Transform{}.Apply(solid(2, 2, color.NRGBA{A: 255}))
	require.ErrorContains(t, err, "invalid target size")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, solid(5, 7, color.NRGBA{R: 1, A: 255})))
	require.NoError(t, f.Close())

	img, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 5, img.Bounds().Dx())
	require.Equal(t, 7, img.Bounds().Dy())
}

func TestLoad_NotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o600))

	_, err := Load(path)
	require.ErrorContains(t, err, "failed to decode image")
}

var identity = Transform{Size: 8, Mean: [3]float32{0, 0, 0}, Std: [3]float32{1, 1, 1}}

func TestTransform_ApplyKeepsColumnOrder(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			c := color.NRGBA{R: 255, A: 255}
			if x >= 8 {
				c = color.NRGBA{B: 255, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}

	out, err := identity.Apply(img)
	require.NoError(t, err)

	plane := 8 * 8
	red, blue := out[:plane], out[2*plane:]
	for x := 0; x < 3; x++ {
		require.InDelta(t, 1.0, red[x], 1e-2, "left of row 0 is red")
		require.InDelta(t, 0.0, blue[x], 1e-2)
	}
	for x := 5; x < 8; x++ {
		require.InDelta(t, 0.0, red[x], 1e-2, "right of row 0 is blue")
		require.InDelta(t, 1.0, blue[x], 1e-2)
	}
	for y := 1; y < 8; y++ {
		for x := 0; x < 8; x++ {
			require.InDelta(t, red[x], red[y*8+x], 1e-6, "every row matches row 0")
			require.InDelta(t, blue[x], blue[y*8+x], 1e-6)
		}
	}
}

func TestTransform_ApplyKeepsRowOrder(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			c := color.NRGBA{G: 255, A: 255}
			if y >= 8 {
				c = color.NRGBA{A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}

	out, err := identity.Apply(img)
	require.NoError(t, err)

	plane := 8 * 8
	green := out[plane : 2*plane]
	for y := 0; y < 3; y++ {
		require.InDelta(t, 1.0, green[y*8], 1e-2, "top of column 0 is green")
	}
	for y := 5; y < 8; y++ {
		require.InDelta(t, 0.0, green[y*8], 1e-2, "bottom of column 0 is black")
	}
	for y := 0; y < 8; y++ {
		for x := 1; x < 8; x++ {
			require.InDelta(t, green[y*8], green[y*8+x], 1e-6, "every column matches column 0")
		}
	}
}
