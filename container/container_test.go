package container

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/chai2010/webp"
	"github.com/h2non/filetype/matchers"
	"github.com/h2non/filetype/types"
	"github.com/pixbatch/image-converter/internal/testutil"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

type testCase struct {
	Name         string
	Data         []byte
	ExpectedType types.Type
	Supported    bool
}

func encode(t *testing.T, enc func(w *bytes.Buffer, m image.Image) error) []byte {
	t.Helper()

	m := image.NewNRGBA(image.Rect(0, 0, 8, 8))

	buf := bytes.Buffer{}
	testutil.IsNil(t, enc(&buf, m), "payload encodes")

	return buf.Bytes()
}

func TestMatch(t *testing.T) {
	t.Parallel()

	cases := []testCase{
		{
			Name: "png",
			Data: encode(t, func(w *bytes.Buffer, m image.Image) error {
				return png.Encode(w, m)
			}),
			ExpectedType: matchers.TypePng,
			Supported:    true,
		},
		{
			Name: "jpeg",
			Data: encode(t, func(w *bytes.Buffer, m image.Image) error {
				return jpeg.Encode(w, m, nil)
			}),
			ExpectedType: matchers.TypeJpeg,
			Supported:    true,
		},
		{
			Name: "gif",
			Data: encode(t, func(w *bytes.Buffer, m image.Image) error {
				return gif.Encode(w, m, nil)
			}),
			ExpectedType: matchers.TypeGif,
			Supported:    true,
		},
		{
			Name: "tiff",
			Data: encode(t, func(w *bytes.Buffer, m image.Image) error {
				return tiff.Encode(w, m, nil)
			}),
			ExpectedType: matchers.TypeTiff,
			Supported:    true,
		},
		{
			Name: "webp",
			Data: encode(t, func(w *bytes.Buffer, m image.Image) error {
				return webp.Encode(w, m, &webp.Options{Lossless: true})
			}),
			ExpectedType: matchers.TypeWebp,
			Supported:    true,
		},
		{
			Name: "bmp",
			Data: encode(t, func(w *bytes.Buffer, m image.Image) error {
				return bmp.Encode(w, m)
			}),
			ExpectedType: matchers.TypeBmp,
			Supported:    true,
		},
		{
			Name:         "garbage",
			Data:         []byte("not an image at all"),
			ExpectedType: types.Unknown,
			Supported:    false,
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.Name, func(t *testing.T) {
			t.Parallel()

			match := Match(c.Data)

			testutil.Assert(t, c.ExpectedType, match, "container type")
			testutil.Assert(t, c.Supported, IsSupported(match), "supported")
		})
	}
}
