// Package encoder turns a finished raster into an encoded container per the
// output format contract. Every format is fed an 8-bit RGBA buffer at
// integral pixel dimensions; quality is a [0,1] scale honored only by the
// quality-controlled formats.
package encoder

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/pixbatch/image-converter/job"
	"golang.org/x/image/tiff"
)

type EncodeError struct {
	Format job.Format
	Reason string
}

func (e EncodeError) Error() string {
	return fmt.Sprintf("%s encode failed: %s", e.Format, e.Reason)
}

func clampQuality(q float64) float64 {
	if q < 0 {
		return 0
	}

	if q > 1 {
		return 1
	}

	return q
}

// flatten composites m onto an opaque black background, dropping alpha.
func flatten(m *image.NRGBA) *image.NRGBA {
	out := image.NewNRGBA(m.Bounds())
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}
	draw.Draw(out, out.Bounds(), m, m.Bounds().Min, draw.Over)

	return out
}

func Encode(img image.Image, format job.Format, quality float64) ([]byte, error) {
	// re-rasterize so every encoder sees exact integral pixel counts
	m := imaging.Clone(img)
	quality = clampQuality(quality)

	buf := bytes.Buffer{}

	switch format {
	case job.FormatJPEG:
		q := int(quality * 100)
		if q < 1 {
			q = 1
		}

		if err := jpeg.Encode(&buf, flatten(m), &jpeg.Options{Quality: q}); err != nil {
			return nil, EncodeError{Format: format, Reason: err.Error()}
		}
	case job.FormatPNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, m); err != nil {
			return nil, EncodeError{Format: format, Reason: err.Error()}
		}
	case job.FormatTIFF:
		opts := tiff.Options{Compression: tiff.Deflate, Predictor: true}
		if err := tiff.Encode(&buf, m, &opts); err != nil {
			return nil, EncodeError{Format: format, Reason: err.Error()}
		}
	case job.FormatWEBP:
		// alpha is dropped, the container is written as plain RGB
		opts := webp.Options{
			Lossless: quality >= 1,
			Quality:  float32(quality * 100),
		}
		if err := webp.Encode(&buf, flatten(m), &opts); err != nil {
			return nil, EncodeError{Format: format, Reason: err.Error()}
		}
	case job.FormatHEIC:
		// the heic contract flattens onto opaque black like webp, but no
		// pure-Go codec exists to hand the buffer to
		return nil, EncodeError{Format: format, Reason: "no heic codec is linked"}
	default:
		return nil, EncodeError{Format: format, Reason: "unknown output format"}
	}

	return buf.Bytes(), nil
}
