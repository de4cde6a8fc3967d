package imageops

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pixbatch/image-converter/job"
)

// ApplyResolution rescales img so its long edge equals the literal target
// pixel count, the short edge scaled proportionally. Portrait images are
// keyed on height, everything else on width. The target is applied even when
// it exceeds the source resolution, so small inputs are upscaled. Identity
// when the spec keeps the original size.
func ApplyResolution(img *image.NRGBA, spec job.ResolutionSpec) (*image.NRGBA, error) {
	if spec.IsOriginal() {
		return img, nil
	}

	target := int(spec)
	if target < 0 {
		return nil, InvalidResolutionError{Target: target}
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if h > w {
		if h == target {
			return img, nil
		}

		return imaging.Resize(img, 0, target, imaging.Lanczos), nil
	}

	if w == target {
		return img, nil
	}

	return imaging.Resize(img, target, 0, imaging.Lanczos), nil
}
