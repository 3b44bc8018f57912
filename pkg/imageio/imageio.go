// Package imageio is the thin collaborator seam between the coevolution
// engine and actual image files: decode/encode plus 3x3 window
// extraction. Image codec work is out of scope for the engine itself —
// this package exists so that scope boundary is a real interface, not a
// TODO.
package imageio

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/bmp"

	"github.com/mwiglasz/coco/pkg/cgp"
	"github.com/mwiglasz/coco/pkg/fitness"
)

// Image is a decoded single-channel (grayscale) raster, the Go
// counterpart of img_image.
type Image struct {
	Width, Height int
	Pixels        []cgp.Value // row-major, len == Width*Height
}

// At returns the pixel at (x, y), clamping to the image border — mirrors
// how the original windows a pixel and its neighbors near the image edge
// by reusing the border pixel instead of reading out of bounds.
func (img *Image) At(x, y int) cgp.Value {
	if x < 0 {
		x = 0
	}
	if x >= img.Width {
		x = img.Width - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= img.Height {
		y = img.Height - 1
	}
	return img.Pixels[y*img.Width+x]
}

// Decode loads a grayscale image from path. image.Decode picks the format
// from the file contents, not the extension; PNG (stdlib) and BMP
// (golang.org/x/image/bmp) are the registered decoders, matching the two
// formats the original's image module round-trips.
func Decode(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("imageio: open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("imageio: decode %s: %w", path, err)
	}

	bounds := img.Bounds()
	out := &Image{Width: bounds.Dx(), Height: bounds.Dy()}
	out.Pixels = make([]cgp.Value, out.Width*out.Height)
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			g := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			out.Pixels[y*out.Width+x] = g.Y
		}
	}
	return out, nil
}

// EncodePNG writes img as a grayscale PNG, used for the img_best.png
// completion artifact.
func EncodePNG(path string, img *Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("imageio: create %s: %w", path, err)
	}
	defer f.Close()

	g := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
	copy(g.Pix, img.Pixels)
	return png.Encode(f, g)
}

// EncodeBMP writes img as a BMP file, mirroring the original's
// img_save_bmp fallback path.
func EncodeBMP(path string, img *Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("imageio: create %s: %w", path, err)
	}
	defer f.Close()

	g := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
	copy(g.Pix, img.Pixels)
	return bmp.Encode(f, g)
}

// WindowSize and WindowCenter mirror the original's WINDOW_SIZE/CENTER: a
// 3x3 neighborhood flattened row-major, with the center pixel at index 4.
const (
	WindowSize   = 9
	WindowCenter = 4
)

// ApplyCircuit runs c over every pixel of noisy, producing the filtered
// image a trained circuit denoises it into, mirroring
// fitness_filter_image.
func ApplyCircuit(c *cgp.Circuit, noisy *Image) *Image {
	eval := cgp.NewEvaluator(c.Grid)
	out := &Image{Width: noisy.Width, Height: noisy.Height, Pixels: make([]cgp.Value, noisy.Width*noisy.Height)}

	window := make([]cgp.Value, WindowSize)
	result := make([]cgp.Value, c.Grid.Outputs)
	for y := 0; y < noisy.Height; y++ {
		for x := 0; x < noisy.Width; x++ {
			k := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					window[k] = noisy.At(x+dx, y+dy)
					k++
				}
			}
			eval.Evaluate(c, window, result)
			out.Pixels[y*noisy.Width+x] = result[0]
		}
	}
	return out
}

// BuildSamples extracts one training sample per pixel of noisy: a 3x3
// window of noisy pixels centered on that location, paired with the
// corresponding pixel from original.
func BuildSamples(original, noisy *Image) ([]fitness.Sample, error) {
	if original.Width != noisy.Width || original.Height != noisy.Height {
		return nil, fmt.Errorf("imageio: original image is %dx%d, noisy is %dx%d", original.Width, original.Height, noisy.Width, noisy.Height)
	}

	samples := make([]fitness.Sample, 0, noisy.Width*noisy.Height)
	for y := 0; y < noisy.Height; y++ {
		for x := 0; x < noisy.Width; x++ {
			window := make([]cgp.Value, WindowSize)
			k := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					window[k] = noisy.At(x+dx, y+dy)
					k++
				}
			}
			samples = append(samples, fitness.Sample{Original: original.At(x, y), Window: window})
		}
	}
	return samples, nil
}
