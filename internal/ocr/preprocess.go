package ocr

import (
	"context"
	"image"
	"image/color"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/disintegration/imaging"
)

// Preprocessor prepares an image for OCR: grayscale, resize to a fixed
// width keeping aspect ratio, then binarize at a fixed threshold. The same
// input always yields the same output. The source file is never modified.
type Preprocessor struct {
	TargetWidth int   // 0 keeps the original size
	Threshold   uint8 // luminance at or above becomes white
	Dir         string
}

// Transform applies the steps in memory.
func (p Preprocessor) Transform(src image.Image) *image.NRGBA {
	img := imaging.Grayscale(src)
	if p.TargetWidth > 0 && img.Bounds().Dx() != p.TargetWidth {
		img = imaging.Resize(img, p.TargetWidth, 0, imaging.Lanczos)
	}
	th := p.Threshold
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		// grayscale: R == G == B
		if c.R >= th {
			return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		}
		return color.NRGBA{A: 255}
	})
}

// Apply writes the transformed image of path to a new PNG and returns its
// path and a cleanup func.
func (p Preprocessor) Apply(ctx context.Context, path string) (string, func(), error) {
	noop := func() {}
	if err := ctx.Err(); err != nil {
		return "", noop, err
	}
	src, err := imaging.Open(path)
	if err != nil {
		return "", noop, errors.Wrapf(err, "open image %s", path)
	}
	out := p.Transform(src)

	f, err := os.CreateTemp(p.Dir, "ocr-prep-*.png")
	if err != nil {
		return "", noop, errors.Wrap(err, "create preprocessed file")
	}
	dst := f.Name()
	cleanup := func() { _ = os.Remove(dst) }

	if err := imaging.Encode(f, out, imaging.PNG); err != nil {
		_ = f.Close()
		cleanup()
		return "", noop, errors.Wrap(err, "encode preprocessed image")
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", noop, errors.Wrap(err, "close preprocessed image")
	}
	return dst, cleanup, nil
}
