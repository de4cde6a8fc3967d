package batch

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/h2non/filetype/matchers"
	"github.com/pixbatch/image-converter/container"
	"github.com/pixbatch/image-converter/internal/encoder"
	"github.com/pixbatch/image-converter/internal/global"
	"github.com/pixbatch/image-converter/internal/imageops"
	"github.com/pixbatch/image-converter/job"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type Worker struct{}

type DecodeError struct {
	Path   string
	Reason string
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %s", e.Path, e.Reason)
}

type WriteError struct {
	Path string
	Err  error
}

func (e WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e WriteError) Unwrap() error {
	return e.Err
}

func (w Worker) Work(ctx global.Context, j job.Job) (out job.OutputFile, err error) {
	zap.S().Debugw("starting new job",
		"job_id", j.ID,
		"source", j.SourcePath,
	)

	finish := ctx.Inst().Prometheus.StartJob()

	defer func() {
		if pnk := recover(); pnk != nil {
			err = multierr.Append(fmt.Errorf("panic at runtime: %v", pnk), err)
		}

		finish(err == nil)
	}()

	done := ctx.Inst().Prometheus.DecodeImage()

	img, size, err := w.decodeFile(j.SourcePath)
	if err != nil {
		return out, multierr.Append(fmt.Errorf("failed at decode"), err)
	}

	done()

	ctx.Inst().Prometheus.TotalBytesRead(size)

	b := img.Bounds()
	ctx.Inst().Prometheus.TotalPixelsProcessed(b.Dx() * b.Dy())

	zap.S().Debugw("decoded source",
		"job_id", j.ID,
		"width", b.Dx(),
		"height", b.Dy(),
	)

	if j.RemoveLetterbox {
		done = ctx.Inst().Prometheus.DetectLetterbox()

		img, err = imageops.RemoveLetterbox(img)
		if err != nil {
			return out, multierr.Append(fmt.Errorf("failed at remove letterbox"), err)
		}

		done()
	}

	done = ctx.Inst().Prometheus.TransformImage()

	bg := color.NRGBA{A: 0xff}
	if j.Format.SupportsAlpha() {
		bg = color.NRGBA{}
	}

	img, err = imageops.ApplyAspect(img, j.Aspect, j.Mode, j.Anchor, bg)
	if err != nil {
		return out, multierr.Append(fmt.Errorf("failed at aspect transform"), err)
	}

	img, err = imageops.ApplyResolution(img, j.Resolution)
	if err != nil {
		return out, multierr.Append(fmt.Errorf("failed at resolution scale"), err)
	}

	done()

	done = ctx.Inst().Prometheus.EncodeImage()

	data, err := encoder.Encode(img, j.Format, j.Quality)
	if err != nil {
		return out, multierr.Append(fmt.Errorf("failed at encode"), err)
	}

	done()

	done = ctx.Inst().Prometheus.WriteOutput()

	if err = w.writeFile(j.OutputPath); err != nil {
		return out, err
	}

	if err = os.WriteFile(j.OutputPath, data, 0644); err != nil {
		return out, WriteError{Path: j.OutputPath, Err: err}
	}

	done()

	ctx.Inst().Prometheus.TotalBytesWritten(len(data))

	h := sha3.New512()

	_, err = h.Write(data)
	if err != nil {
		return out, multierr.Append(fmt.Errorf("failed at hash output"), err)
	}

	fb := img.Bounds()

	zap.S().Debugw("wrote output",
		"job_id", j.ID,
		"output", j.OutputPath,
		"size", len(data),
	)

	return job.OutputFile{
		Name:        filepath.Base(j.OutputPath),
		Path:        j.OutputPath,
		SHA3:        hex.EncodeToString(h.Sum(nil)),
		ContentType: j.Format.MIME(),
		Size:        len(data),
		Width:       fb.Dx(),
		Height:      fb.Dy(),
	}, nil
}

func (Worker) decodeFile(path string) (*image.NRGBA, int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, DecodeError{Path: path, Reason: err.Error()}
	}

	match := container.Match(raw)
	if !container.IsSupported(match) {
		return nil, 0, DecodeError{Path: path, Reason: fmt.Sprintf("unsupported image format: %v", match.Extension)}
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		// the registered webp decoder rejects some lossy payloads the
		// fallback decoder accepts
		if match == matchers.TypeWebp {
			if wimg, werr := webp.Decode(bytes.NewReader(raw)); werr == nil {
				return imaging.Clone(wimg), len(raw), nil
			}
		}

		return nil, 0, DecodeError{Path: path, Reason: err.Error()}
	}

	return imaging.Clone(img), len(raw), nil
}

// writeFile clears an existing file so policy replace is an explicit delete
// then write, not a truncation.
func (Worker) writeFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return WriteError{Path: path, Err: err}
	}

	return nil
}

var errJobCancelled = errors.New("job cancelled")

func classify(err error) job.FailureKind {
	var (
		decodeErr DecodeError
		writeErr  WriteError
		encodeErr encoder.EncodeError
		aspectErr imageops.InvalidAspectError
		resErr    imageops.InvalidResolutionError
	)

	// combined errors do not unwrap, expand them first
	for _, e := range multierr.Errors(err) {
		switch {
		case errors.Is(e, errJobCancelled):
			return job.FailureCancelled
		case errors.As(e, &decodeErr):
			return job.FailureDecode
		case errors.As(e, &writeErr):
			return job.FailureWrite
		case errors.As(e, &encodeErr):
			return job.FailureEncode
		case errors.As(e, &aspectErr),
			errors.As(e, &resErr),
			errors.Is(e, imageops.ErrDetectionDegenerate):
			return job.FailureTransform
		}
	}

	return job.FailureTransform
}
