package job

import (
	"fmt"
	"strconv"
	"strings"
)

type ScalingMode int32

const (
	_ ScalingMode = iota
	ScalingModeFill
	ScalingModeFit
)

func (s ScalingMode) String() string {
	switch s {
	case ScalingModeFill:
		return "FILL"
	case ScalingModeFit:
		return "FIT"
	default:
		return fmt.Sprintf("UNKNOWN MODE %d", s)
	}
}

func ParseScalingMode(s string) (ScalingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fill":
		return ScalingModeFill, nil
	case "fit":
		return ScalingModeFit, nil
	default:
		return 0, fmt.Errorf("unknown scaling mode: %s", s)
	}
}

// AspectSpec is a target aspect ratio expressed as width:height. The zero
// value keeps the source ratio.
type AspectSpec struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (a AspectSpec) IsOriginal() bool {
	return a.Width == 0 && a.Height == 0
}

func (a AspectSpec) Ratio() float64 {
	if a.Height == 0 {
		return 0
	}

	return a.Width / a.Height
}

func (a AspectSpec) String() string {
	if a.IsOriginal() {
		return "ORIGINAL"
	}

	return fmt.Sprintf("%g:%g", a.Width, a.Height)
}

// ParseAspect accepts "original" or a "W:H" pair such as "16:9" or "2.4:1".
func ParseAspect(s string) (AspectSpec, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "original" {
		return AspectSpec{}, nil
	}

	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return AspectSpec{}, fmt.Errorf("bad aspect ratio: %s", s)
	}

	w, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return AspectSpec{}, fmt.Errorf("bad aspect width: %s", parts[0])
	}

	h, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return AspectSpec{}, fmt.Errorf("bad aspect height: %s", parts[1])
	}

	if w <= 0 || h <= 0 {
		return AspectSpec{}, fmt.Errorf("aspect ratio must be positive: %s", s)
	}

	return AspectSpec{Width: w, Height: h}, nil
}

// AnchorPoint is a normalized point in [0,1]x[0,1] UI space, (0,0) being the
// top left of the displayed image. Fill mode uses it to pick which region of
// the source survives the crop.
type AnchorPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func CenterAnchor() AnchorPoint {
	return AnchorPoint{X: 0.5, Y: 0.5}
}

func (a AnchorPoint) Clamped() AnchorPoint {
	return AnchorPoint{
		X: clamp01(a.X),
		Y: clamp01(a.Y),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}

// ResolutionSpec is a target long-edge pixel count. Zero keeps the source
// resolution.
type ResolutionSpec int

func (r ResolutionSpec) IsOriginal() bool {
	return r == 0
}

func (r ResolutionSpec) String() string {
	if r.IsOriginal() {
		return "ORIGINAL"
	}

	return fmt.Sprintf("%dpx", int(r))
}

type Format int32

const (
	_ Format = iota
	FormatJPEG
	FormatPNG
	FormatTIFF
	FormatWEBP
	FormatHEIC
)

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "JPEG"
	case FormatPNG:
		return "PNG"
	case FormatTIFF:
		return "TIFF"
	case FormatWEBP:
		return "WEBP"
	case FormatHEIC:
		return "HEIC"
	default:
		return fmt.Sprintf("UNKNOWN FORMAT %d", f)
	}
}

func (f Format) Extension() string {
	switch f {
	case FormatJPEG:
		return "jpg"
	case FormatPNG:
		return "png"
	case FormatTIFF:
		return "tiff"
	case FormatWEBP:
		return "webp"
	case FormatHEIC:
		return "heic"
	default:
		return ""
	}
}

func (f Format) MIME() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatTIFF:
		return "image/tiff"
	case FormatWEBP:
		return "image/webp"
	case FormatHEIC:
		return "image/heic"
	default:
		return ""
	}
}

// SupportsAlpha reports whether the encoded container carries an alpha
// channel. Fit-mode margins are transparent only for these formats.
func (f Format) SupportsAlpha() bool {
	switch f {
	case FormatPNG, FormatTIFF:
		return true
	default:
		return false
	}
}

// QualityControlled reports whether the encoder honors the quality parameter.
func (f Format) QualityControlled() bool {
	switch f {
	case FormatJPEG, FormatWEBP, FormatHEIC:
		return true
	default:
		return false
	}
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	case "webp":
		return FormatWEBP, nil
	case "heic":
		return FormatHEIC, nil
	default:
		return 0, fmt.Errorf("unknown output format: %s", s)
	}
}

// Job is the conversion of one source file. Jobs are built by the
// orchestrator at batch start and are immutable once queued.
type Job struct {
	ID              string         `json:"id"`
	SourcePath      string         `json:"source_path"`
	OutputPath      string         `json:"output_path"`
	Aspect          AspectSpec     `json:"aspect"`
	Mode            ScalingMode    `json:"mode"`
	Anchor          AnchorPoint    `json:"anchor"`
	Resolution      ResolutionSpec `json:"resolution"`
	Format          Format         `json:"format"`
	Quality         float64        `json:"quality"`
	RemoveLetterbox bool           `json:"remove_letterbox"`
}
