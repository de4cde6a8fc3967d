package imageops

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/pixbatch/image-converter/job"
)

// uiToBufferAnchor converts an anchor from display space, origin at the top
// left of the rendered image, into raster space. Rasters in this package are
// top-left origin as well, so both components carry over after clamping. The
// conversion exists so the anchor convention is fixed in exactly one place:
// anchor.y = 0 always keeps the top band of the picture, regardless of the
// origin convention of the buffer behind it.
func uiToBufferAnchor(a job.AnchorPoint) (float64, float64) {
	a = a.Clamped()

	return a.X, a.Y
}

// ApplyAspect crops (Fill) or letterboxes (Fit) img to the target aspect
// ratio. Identity when the spec keeps the original ratio or the image already
// matches it. Fill slides the crop window along the dominant axis by the
// anchor fraction of the slack; Fit centers the full source on a canvas of
// the target ratio, the margins painted with bg.
func ApplyAspect(img *image.NRGBA, aspect job.AspectSpec, mode job.ScalingMode, anchor job.AnchorPoint, bg color.Color) (*image.NRGBA, error) {
	if aspect.IsOriginal() {
		return img, nil
	}

	ratio := aspect.Ratio()
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio <= 0 {
		return nil, InvalidAspectError{Ratio: ratio}
	}

	switch mode {
	case job.ScalingModeFit:
		return fitToRatio(img, ratio, bg), nil
	default:
		return fillToRatio(img, ratio, anchor), nil
	}
}

func fillToRatio(img *image.NRGBA, ratio float64, anchor job.AnchorPoint) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	ax, ay := uiToBufferAnchor(anchor)

	newW := int(math.Round(float64(h) * ratio))
	newH := int(math.Round(float64(w) / ratio))

	switch {
	case newW < w:
		// wider than target, narrow the crop window
		slack := w - newW
		x0 := b.Min.X + int(math.Round(ax*float64(slack)))

		return imaging.Crop(img, image.Rect(x0, b.Min.Y, x0+newW, b.Max.Y))
	case newH < h:
		slack := h - newH
		y0 := b.Min.Y + int(math.Round(ay*float64(slack)))

		return imaging.Crop(img, image.Rect(b.Min.X, y0, b.Max.X, y0+newH))
	default:
		// already at target ratio within one pixel of rounding
		return img
	}
}

func fitToRatio(img *image.NRGBA, ratio float64, bg color.Color) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	// smallest canvas of the target ratio that contains the whole source
	canvasW := w
	canvasH := int(math.Round(float64(w) / ratio))
	if canvasH < h {
		canvasH = h
		canvasW = int(math.Round(float64(h) * ratio))
		if canvasW < w {
			canvasW = w
		}
	}

	if canvasW == w && canvasH == h {
		return img
	}

	canvas := imaging.New(canvasW, canvasH, bg)

	return imaging.PasteCenter(canvas, img)
}
