package imageops

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/pixbatch/image-converter/internal/testutil"
	"github.com/pixbatch/image-converter/job"
)

var (
	red  = color.NRGBA{R: 0xff, A: 0xff}
	blue = color.NRGBA{B: 0xff, A: 0xff}
)

func ratioOf(img *image.NRGBA) float64 {
	b := img.Bounds()

	return float64(b.Dx()) / float64(b.Dy())
}

func TestApplyAspectFill(t *testing.T) {
	t.Parallel()

	t.Run("original is identity", func(t *testing.T) {
		t.Parallel()

		img := whiteImage(100, 50)

		out, err := ApplyAspect(img, job.AspectSpec{}, job.ScalingModeFill, job.CenterAnchor(), color.NRGBA{})
		testutil.IsNil(t, err, "no error")
		testutil.Assert(t, img, out, "same image returned")
	})

	t.Run("landscape to square crops width", func(t *testing.T) {
		t.Parallel()

		img := whiteImage(100, 50)

		out, err := ApplyAspect(img, job.AspectSpec{Width: 1, Height: 1}, job.ScalingModeFill, job.CenterAnchor(), color.NRGBA{})
		testutil.IsNil(t, err, "no error")
		testutil.Assert(t, 50, out.Bounds().Dx(), "width cropped")
		testutil.Assert(t, 50, out.Bounds().Dy(), "height kept")
	})

	t.Run("output ratio matches target within one pixel", func(t *testing.T) {
		t.Parallel()

		cases := []job.AspectSpec{
			{Width: 16, Height: 9},
			{Width: 2.4, Height: 1},
			{Width: 1, Height: 1},
			{Width: 3, Height: 4},
		}

		for _, aspect := range cases {
			out, err := ApplyAspect(whiteImage(997, 641), aspect, job.ScalingModeFill, job.CenterAnchor(), color.NRGBA{})
			testutil.IsNil(t, err, "no error")

			b := out.Bounds()
			want := aspect.Ratio()
			// one pixel of rounding on the cropped axis
			tolerance := want / float64(b.Dy())
			if got := ratioOf(out); math.Abs(got-want) > tolerance {
				t.Fatalf("aspect %s: ratio %f not within %f of %f", aspect, got, tolerance, want)
			}
		}
	})

	t.Run("center anchor is centered", func(t *testing.T) {
		t.Parallel()

		img := whiteImage(100, 50)
		fillRect(img, 0, 0, 25, 50, red)
		fillRect(img, 75, 0, 100, 50, blue)

		out, err := ApplyAspect(img, job.AspectSpec{Width: 1, Height: 1}, job.ScalingModeFill, job.CenterAnchor(), color.NRGBA{})
		testutil.IsNil(t, err, "no error")

		// the 50px window starts at 25, dropping both painted strips
		testutil.Assert(t, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, out.NRGBAAt(0, 0), "left strip dropped")
		testutil.Assert(t, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, out.NRGBAAt(49, 0), "right strip dropped")
	})

	t.Run("anchor zero keeps the left edge", func(t *testing.T) {
		t.Parallel()

		img := whiteImage(100, 50)
		fillRect(img, 0, 0, 50, 50, red)

		out, err := ApplyAspect(img, job.AspectSpec{Width: 1, Height: 1}, job.ScalingModeFill, job.AnchorPoint{X: 0, Y: 0.5}, color.NRGBA{})
		testutil.IsNil(t, err, "no error")
		testutil.Assert(t, red, out.NRGBAAt(0, 0), "left edge kept")
		testutil.Assert(t, red, out.NRGBAAt(49, 49), "window is all red")
	})

	t.Run("anchor one keeps the right edge", func(t *testing.T) {
		t.Parallel()

		img := whiteImage(100, 50)
		fillRect(img, 50, 0, 100, 50, blue)

		out, err := ApplyAspect(img, job.AspectSpec{Width: 1, Height: 1}, job.ScalingModeFill, job.AnchorPoint{X: 1, Y: 0.5}, color.NRGBA{})
		testutil.IsNil(t, err, "no error")
		testutil.Assert(t, blue, out.NRGBAAt(0, 0), "window starts in the kept half")
		testutil.Assert(t, blue, out.NRGBAAt(49, 49), "right edge kept")
	})

	t.Run("anchor y zero keeps the top band", func(t *testing.T) {
		t.Parallel()

		img := image.NewNRGBA(image.Rect(0, 0, 50, 100))
		fillRect(img, 0, 0, 50, 50, red)
		fillRect(img, 0, 50, 50, 100, blue)

		out, err := ApplyAspect(img, job.AspectSpec{Width: 1, Height: 1}, job.ScalingModeFill, job.AnchorPoint{X: 0.5, Y: 0}, color.NRGBA{})
		testutil.IsNil(t, err, "no error")
		testutil.Assert(t, red, out.NRGBAAt(0, 0), "top kept")
		testutil.Assert(t, red, out.NRGBAAt(49, 49), "bottom dropped")
	})

	t.Run("anchor y one keeps the bottom band", func(t *testing.T) {
		t.Parallel()

		img := image.NewNRGBA(image.Rect(0, 0, 50, 100))
		fillRect(img, 0, 0, 50, 50, red)
		fillRect(img, 0, 50, 50, 100, blue)

		out, err := ApplyAspect(img, job.AspectSpec{Width: 1, Height: 1}, job.ScalingModeFill, job.AnchorPoint{X: 0.5, Y: 1}, color.NRGBA{})
		testutil.IsNil(t, err, "no error")
		testutil.Assert(t, blue, out.NRGBAAt(0, 0), "top dropped")
		testutil.Assert(t, blue, out.NRGBAAt(49, 49), "bottom kept")
	})

	t.Run("matching ratio twice is a no-op", func(t *testing.T) {
		t.Parallel()

		img := whiteImage(120, 80)
		fillRect(img, 10, 10, 60, 40, red)

		first, err := ApplyAspect(img, job.AspectSpec{Width: 3, Height: 2}, job.ScalingModeFill, job.CenterAnchor(), color.NRGBA{})
		testutil.IsNil(t, err, "no error")

		second, err := ApplyAspect(first, job.AspectSpec{Width: 3, Height: 2}, job.ScalingModeFill, job.CenterAnchor(), color.NRGBA{})
		testutil.IsNil(t, err, "no error")

		testutil.Assert(t, first.Bounds(), second.Bounds(), "dimensions unchanged")
		testutil.Assert(t, true, bytes.Equal(first.Pix, second.Pix), "content unchanged")
	})

	t.Run("non-positive ratio is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := ApplyAspect(whiteImage(10, 10), job.AspectSpec{Width: -16, Height: 9}, job.ScalingModeFill, job.CenterAnchor(), color.NRGBA{})
		testutil.Assert(t, InvalidAspectError{Ratio: -16.0 / 9.0}, err, "invalid aspect")
	})
}

func TestApplyAspectFit(t *testing.T) {
	t.Parallel()

	t.Run("landscape to square pads vertically", func(t *testing.T) {
		t.Parallel()

		img := whiteImage(100, 50)

		out, err := ApplyAspect(img, job.AspectSpec{Width: 1, Height: 1}, job.ScalingModeFit, job.CenterAnchor(), color.NRGBA{})
		testutil.IsNil(t, err, "no error")
		testutil.Assert(t, 100, out.Bounds().Dx(), "canvas width")
		testutil.Assert(t, 100, out.Bounds().Dy(), "canvas height")

		// content centered, margins transparent
		testutil.Assert(t, color.NRGBA{}, out.NRGBAAt(0, 0), "top margin transparent")
		testutil.Assert(t, color.NRGBA{}, out.NRGBAAt(0, 99), "bottom margin transparent")
		testutil.Assert(t, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, out.NRGBAAt(50, 50), "content present")
	})

	t.Run("portrait to widescreen pads horizontally", func(t *testing.T) {
		t.Parallel()

		img := whiteImage(90, 160)

		out, err := ApplyAspect(img, job.AspectSpec{Width: 16, Height: 9}, job.ScalingModeFit, job.CenterAnchor(), color.NRGBA{A: 0xff})
		testutil.IsNil(t, err, "no error")

		b := out.Bounds()
		testutil.Assert(t, 160, b.Dy(), "canvas height")
		if math.Abs(ratioOf(out)-16.0/9.0) > 16.0/9.0/float64(b.Dy()) {
			t.Fatalf("canvas ratio %f not at 16:9", ratioOf(out))
		}

		testutil.Assert(t, color.NRGBA{A: 0xff}, out.NRGBAAt(0, 0), "margin is opaque black")
	})

	t.Run("content keeps the source ratio", func(t *testing.T) {
		t.Parallel()

		img := whiteImage(100, 50)

		out, err := ApplyAspect(img, job.AspectSpec{Width: 1, Height: 1}, job.ScalingModeFit, job.CenterAnchor(), color.NRGBA{})
		testutil.IsNil(t, err, "no error")

		// measure the opaque region
		minY, maxY := -1, -1
		for y := 0; y < out.Bounds().Dy(); y++ {
			if out.NRGBAAt(50, y).A != 0 {
				if minY < 0 {
					minY = y
				}
				maxY = y
			}
		}

		testutil.Assert(t, 50, maxY-minY+1, "content height unchanged")
		testutil.Assert(t, 25, minY, "content centered")
	})

	t.Run("anchor is ignored", func(t *testing.T) {
		t.Parallel()

		img := whiteImage(100, 50)

		a, err := ApplyAspect(img, job.AspectSpec{Width: 1, Height: 1}, job.ScalingModeFit, job.AnchorPoint{X: 0, Y: 0}, color.NRGBA{})
		testutil.IsNil(t, err, "no error")

		b, err := ApplyAspect(img, job.AspectSpec{Width: 1, Height: 1}, job.ScalingModeFit, job.AnchorPoint{X: 1, Y: 1}, color.NRGBA{})
		testutil.IsNil(t, err, "no error")

		testutil.Assert(t, true, bytes.Equal(a.Pix, b.Pix), "content always centered")
	})

	t.Run("matching ratio is identity", func(t *testing.T) {
		t.Parallel()

		img := whiteImage(64, 64)

		out, err := ApplyAspect(img, job.AspectSpec{Width: 1, Height: 1}, job.ScalingModeFit, job.CenterAnchor(), color.NRGBA{})
		testutil.IsNil(t, err, "no error")
		testutil.Assert(t, img, out, "same image returned")
	})
}
