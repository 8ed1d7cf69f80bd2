// Package imgconv produces the publish-ready JPEG asset from a press
// release's source image: white-flattened, resized to the column width and
// lightly sharpened against post-resize softness.
package imgconv

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Default output geometry and encoder quality.
const (
	DefaultWidth   = 336
	DefaultQuality = 95
)

// Unsharp mask tuning. The threshold keeps flat areas (gradients, sky,
// studio backgrounds) from picking up noise.
const (
	sharpenRadius    = 1.5
	sharpenPercent   = 120
	sharpenThreshold = 2
)

// Result reports one normalization. Err is set and OK false on any decode,
// transform or encode failure; Normalize never panics past this boundary.
type Result struct {
	OK     bool   `json:"success"`
	Path   string `json:"output_path,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Err    string `json:"error,omitempty"`
}

// Normalize converts the image at src into a baseline JPEG at dst. The
// output is width pixels wide with height scaled to preserve the aspect
// ratio (rounded, not truncated). Transparent and palette sources are
// flattened onto an opaque white background; opaque pixels pass through
// unchanged. Zero width or quality select the defaults.
func Normalize(src, dst string, width, quality int) Result {
	if width <= 0 {
		width = DefaultWidth
	}
	if quality <= 0 {
		quality = DefaultQuality
	}

	img, err := imaging.Open(src)
	if err != nil {
		return Result{Err: err.Error()}
	}

	bounds := img.Bounds()
	height := int(math.Round(float64(bounds.Dy()) * float64(width) / float64(bounds.Dx())))

	white := imaging.New(bounds.Dx(), bounds.Dy(), color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	flat := imaging.Overlay(white, img, image.Pt(0, 0), 1.0)

	resized := imaging.Resize(flat, width, height, imaging.Lanczos)
	sharpened := unsharpMask(resized, sharpenRadius, sharpenPercent, sharpenThreshold)

	if err := imaging.Save(sharpened, dst, imaging.JPEGQuality(quality)); err != nil {
		return Result{Err: err.Error()}
	}
	return Result{OK: true, Path: dst, Width: width, Height: height}
}

// unsharpMask sharpens by amplifying the difference between the image and
// a gaussian-blurred copy: out = in + diff*percent/100 wherever |diff|
// exceeds the threshold. Channels below the threshold are left alone.
func unsharpMask(img *image.NRGBA, radius float64, percent, threshold int) *image.NRGBA {
	blurred := imaging.Blur(img, radius)
	out := imaging.Clone(img)
	for i := 0; i < len(out.Pix); i++ {
		if i%4 == 3 {
			continue // alpha channel stays opaque
		}
		diff := int(img.Pix[i]) - int(blurred.Pix[i])
		if diff < 0 {
			if -diff <= threshold {
				continue
			}
		} else if diff <= threshold {
			continue
		}
		out.Pix[i] = clamp8(int(img.Pix[i]) + diff*percent/100)
	}
	return out
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
