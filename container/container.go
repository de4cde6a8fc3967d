// Package container sniffs source payloads so unsupported inputs are
// rejected before any pixels are decoded.
package container

import (
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	"github.com/h2non/filetype/types"
)

var (
	MimeJPEG = matchers.TypeJpeg.MIME.Value
	MimePNG  = matchers.TypePng.MIME.Value
	MimeGIF  = matchers.TypeGif.MIME.Value
	MimeTIFF = matchers.TypeTiff.MIME.Value
	MimeWEBP = matchers.TypeWebp.MIME.Value
	MimeBMP  = matchers.TypeBmp.MIME.Value
)

func Match(data []byte) types.Type {
	t, _ := filetype.Match(data)

	return t
}

// IsSupported reports whether the matched container is one the decoder can
// turn into a raster.
func IsSupported(t types.Type) bool {
	switch t {
	case matchers.TypeJpeg,
		matchers.TypePng,
		matchers.TypeGif,
		matchers.TypeTiff,
		matchers.TypeWebp,
		matchers.TypeBmp:
		return true
	default:
		return false
	}
}
