package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"media-deriver/internal/logging"
	"media-deriver/internal/mediatypes"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // WebP format support
)

// ErrEncode indicates the source could not be decoded or the thumbnail
// could not be encoded.
var ErrEncode = errors.New("image encode failed")

// MaxImagePixels caps the decoded size of a source image. A 50MP image would
// be ~200MB in RGBA.
const MaxImagePixels = 100_000_000

// Result describes an encoded thumbnail.
type Result struct {
	SourceFormat string
	SourceWidth  int
	SourceHeight int
	Orientation  int
	Width        int
	Height       int
}

// EncodeThumbnail reads an image from in and writes an upright WebP thumbnail
// to out. Images taller than height are scaled down preserving aspect ratio;
// shorter images keep their size. A non-positive height uses the default.
func EncodeThumbnail(ctx context.Context, in io.Reader, out io.Writer, height int) (Result, error) {
	if height <= 0 {
		height = mediatypes.DefaultThumbnailHeight
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return Result{}, fmt.Errorf("%w: read source: %v", ErrEncode, err)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Result{}, fmt.Errorf("%w: source is %s, not an image", ErrEncode, mt.String())
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("%w: decode %s header: %v", ErrEncode, mt.String(), err)
	}
	if cfg.Width*cfg.Height > MaxImagePixels {
		return Result{}, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrEncode, cfg.Width, cfg.Height, MaxImagePixels)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("%w: decode %s: %v", ErrEncode, format, err)
	}

	res := Result{
		SourceFormat: format,
		SourceWidth:  img.Bounds().Dx(),
		SourceHeight: img.Bounds().Dy(),
		Orientation:  ReadOrientation(data),
	}

	transform := OrientationTransform(res.Orientation)
	img = transform.Apply(img)

	if img.Bounds().Dy() > height {
		img = imaging.Resize(img, 0, height, imaging.Lanczos)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if err := webp.Encode(out, img, &webp.Options{Quality: float32(mediatypes.ImageOutputQuality)}); err != nil {
		return Result{}, fmt.Errorf("%w: encode webp: %v", ErrEncode, err)
	}

	res.Width = img.Bounds().Dx()
	res.Height = img.Bounds().Dy()

	logging.Debug("Thumbnail encoded: %s %dx%d orientation=%d (%s) -> %dx%d",
		format, res.SourceWidth, res.SourceHeight, res.Orientation, transform, res.Width, res.Height)

	return res, nil
}
