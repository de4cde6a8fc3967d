// Package imageops implements the geometric pipeline stages: letterbox
// detection and removal, aspect ratio transforms and long-edge scaling. All
// stages operate on 8-bit RGBA rasters and return new images, inputs are
// never mutated.
package imageops

import (
	"image"

	"github.com/disintegration/imaging"
)

// barThreshold is the per-channel ceiling below which a pixel counts as part
// of a letterbox bar, 0.1 on a [0,1] channel scale. Alpha is ignored.
const barThreshold = 26

type Margins struct {
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
	Right  int `json:"right"`
}

func (m Margins) IsZero() bool {
	return m.Top == 0 && m.Bottom == 0 && m.Left == 0 && m.Right == 0
}

func isBarPixel(img *image.NRGBA, x, y int) bool {
	i := img.PixOffset(x, y)

	return img.Pix[i] < barThreshold &&
		img.Pix[i+1] < barThreshold &&
		img.Pix[i+2] < barThreshold
}

func rowIsBar(img *image.NRGBA, y int) bool {
	b := img.Bounds()
	for x := b.Min.X; x < b.Max.X; x++ {
		if !isBarPixel(img, x, y) {
			return false
		}
	}

	return true
}

func colIsBar(img *image.NRGBA, x int) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		if !isBarPixel(img, x, y) {
			return false
		}
	}

	return true
}

// DetectLetterbox scans each edge inward, counting consecutive lines that are
// uniformly near-black. Scanning for an edge stops at the first line that is
// not a bar, so isolated dark lines deeper in the image never count. The
// second return is false when no edge carries a bar.
func DetectLetterbox(img *image.NRGBA) (Margins, bool) {
	b := img.Bounds()

	m := Margins{}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		if !rowIsBar(img, y) {
			break
		}
		m.Top++
	}

	for y := b.Max.Y - 1; y >= b.Min.Y; y-- {
		if !rowIsBar(img, y) {
			break
		}
		m.Bottom++
	}

	for x := b.Min.X; x < b.Max.X; x++ {
		if !colIsBar(img, x) {
			break
		}
		m.Left++
	}

	for x := b.Max.X - 1; x >= b.Min.X; x-- {
		if !colIsBar(img, x) {
			break
		}
		m.Right++
	}

	return m, !m.IsZero()
}

// RemoveLetterbox crops detected bars away. Identity when nothing is
// detected. A fully dark image would crop away both axes entirely, which is
// reported as ErrDetectionDegenerate rather than attempted.
func RemoveLetterbox(img *image.NRGBA) (*image.NRGBA, error) {
	m, ok := DetectLetterbox(img)
	if !ok {
		return img, nil
	}

	b := img.Bounds()

	w := b.Dx() - m.Left - m.Right
	h := b.Dy() - m.Top - m.Bottom
	if w <= 0 || h <= 0 {
		return nil, ErrDetectionDegenerate
	}

	return imaging.Crop(img, image.Rect(
		b.Min.X+m.Left,
		b.Min.Y+m.Top,
		b.Min.X+m.Left+w,
		b.Min.Y+m.Top+h,
	)), nil
}
