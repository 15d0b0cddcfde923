package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/chai2010/webp"
)

// gridImage returns a w×h image whose pixel at (x,y) encodes its coordinates.
func gridImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 40), B: 200, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}
	return buf.Bytes()
}

// withOrientation inserts an APP1 EXIF segment carrying orientation o.
func withOrientation(jpegData []byte, o byte) []byte {
	tiff := []byte{
		'M', 'M', 0x00, 0x2A, 0x00, 0x00, 0x00, 0x08,
		0x00, 0x01,
		0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, o, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	payload := append([]byte("Exif\x00\x00"), tiff...)
	size := len(payload) + 2

	out := append([]byte{}, jpegData[:2]...)
	out = append(out, 0xFF, 0xE1, byte(size>>8), byte(size))
	out = append(out, payload...)
	return append(out, jpegData[2:]...)
}

func TestOrientationTransform(t *testing.T) {
	tests := []struct {
		orientation int
		want        Transform
	}{
		{0, TransformIdentity},
		{1, TransformIdentity},
		{2, TransformFlipH},
		{3, TransformRotate180},
		{4, TransformFlipV},
		{5, TransformTranspose},
		{6, TransformRotate270},
		{7, TransformTransverse},
		{8, TransformRotate90},
		{9, TransformIdentity},
	}

	for _, tt := range tests {
		if got := OrientationTransform(tt.orientation); got != tt.want {
			t.Errorf("OrientationTransform(%d) = %v, want %v", tt.orientation, got, tt.want)
		}
	}
}

func TestTransformApply(t *testing.T) {
	src := gridImage(3, 2)
	origin := src.NRGBAAt(0, 0)

	tests := []struct {
		transform Transform
		wantW     int
		wantH     int
		// where the source's top-left pixel ends up
		originX, originY int
	}{
		{TransformIdentity, 3, 2, 0, 0},
		{TransformFlipH, 3, 2, 2, 0},
		{TransformRotate180, 3, 2, 2, 1},
		{TransformFlipV, 3, 2, 0, 1},
		{TransformTranspose, 2, 3, 0, 0},
		{TransformRotate270, 2, 3, 1, 0},
		{TransformTransverse, 2, 3, 1, 2},
		{TransformRotate90, 2, 3, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.transform.String(), func(t *testing.T) {
			out := tt.transform.Apply(src)
			b := out.Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Fatalf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
			if tt.transform.SwapsDimensions() != (tt.wantW != 3) {
				t.Errorf("SwapsDimensions() = %v", tt.transform.SwapsDimensions())
			}
			got := color.NRGBAModel.Convert(out.At(b.Min.X+tt.originX, b.Min.Y+tt.originY)).(color.NRGBA)
			if got != origin {
				t.Errorf("pixel at (%d,%d) = %v, want source origin %v", tt.originX, tt.originY, got, origin)
			}
		})
	}
}

func TestReadOrientation(t *testing.T) {
	plain := encodeJPEG(t, gridImage(8, 4))

	if got := ReadOrientation(plain); got != 1 {
		t.Errorf("ReadOrientation(no exif) = %d, want 1", got)
	}
	if got := ReadOrientation(encodePNG(t, gridImage(2, 2))); got != 1 {
		t.Errorf("ReadOrientation(png) = %d, want 1", got)
	}
	for o := byte(1); o <= 8; o++ {
		if got := ReadOrientation(withOrientation(plain, o)); got != int(o) {
			t.Errorf("ReadOrientation(%d) = %d", o, got)
		}
	}
}

func TestEncodeThumbnailHeights(t *testing.T) {
	tests := []struct {
		name         string
		srcW, srcH   int
		height       int
		wantW, wantH int
	}{
		{"scales down tall image", 100, 300, 150, 50, 150},
		{"scales down wide image", 400, 200, 100, 200, 100},
		{"keeps shorter image", 80, 60, 512, 80, 60},
		{"keeps equal height", 90, 120, 120, 90, 120},
		{"default height", 100, 1024, 0, 50, 512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := encodePNG(t, gridImage(tt.srcW, tt.srcH))

			var out bytes.Buffer
			res, err := EncodeThumbnail(context.Background(), bytes.NewReader(src), &out, tt.height)
			if err != nil {
				t.Fatalf("EncodeThumbnail() error = %v", err)
			}
			if res.Width != tt.wantW || res.Height != tt.wantH {
				t.Errorf("Result = %dx%d, want %dx%d", res.Width, res.Height, tt.wantW, tt.wantH)
			}
			if res.SourceFormat != "png" {
				t.Errorf("SourceFormat = %q, want png", res.SourceFormat)
			}

			cfg, err := webp.DecodeConfig(bytes.NewReader(out.Bytes()))
			if err != nil {
				t.Fatalf("output is not webp: %v", err)
			}
			if cfg.Width != tt.wantW || cfg.Height != tt.wantH {
				t.Errorf("webp = %dx%d, want %dx%d", cfg.Width, cfg.Height, tt.wantW, tt.wantH)
			}
			if tt.height > 0 && cfg.Height > tt.height {
				t.Errorf("output height %d exceeds requested %d", cfg.Height, tt.height)
			}
		})
	}
}

func TestEncodeThumbnailAppliesOrientation(t *testing.T) {
	tests := []struct {
		orientation  byte
		wantW, wantH int
	}{
		{1, 40, 20},
		{3, 40, 20},
		{6, 20, 40},
		{8, 20, 40},
	}

	for _, tt := range tests {
		src := withOrientation(encodeJPEG(t, gridImage(40, 20)), tt.orientation)

		var out bytes.Buffer
		res, err := EncodeThumbnail(context.Background(), bytes.NewReader(src), &out, 512)
		if err != nil {
			t.Fatalf("orientation %d: EncodeThumbnail() error = %v", tt.orientation, err)
		}
		if res.Orientation != int(tt.orientation) {
			t.Errorf("orientation %d: Result.Orientation = %d", tt.orientation, res.Orientation)
		}
		if res.Width != tt.wantW || res.Height != tt.wantH {
			t.Errorf("orientation %d: size = %dx%d, want %dx%d", tt.orientation, res.Width, res.Height, tt.wantW, tt.wantH)
		}
	}
}

func TestEncodeThumbnailRotationBeforeResize(t *testing.T) {
	// A 400x100 landscape sensor image tagged as rotated 90 CW is 100x400
	// upright, so a 200px thumbnail is 50x200.
	src := withOrientation(encodeJPEG(t, gridImage(400, 100)), 6)

	var out bytes.Buffer
	res, err := EncodeThumbnail(context.Background(), bytes.NewReader(src), &out, 200)
	if err != nil {
		t.Fatalf("EncodeThumbnail() error = %v", err)
	}
	if res.Width != 50 || res.Height != 200 {
		t.Errorf("size = %dx%d, want 50x200", res.Width, res.Height)
	}
}

func TestEncodeThumbnailErrors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"text", []byte("definitely not an image")},
		{"empty", nil},
		{"truncated png", encodePNG(t, gridImage(10, 10))[:40]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			_, err := EncodeThumbnail(context.Background(), bytes.NewReader(tt.input), &out, 100)
			if !errors.Is(err, ErrEncode) {
				t.Errorf("EncodeThumbnail() error = %v, want ErrEncode", err)
			}
		})
	}
}

func TestEncodeThumbnailCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	_, err := EncodeThumbnail(ctx, bytes.NewReader(encodePNG(t, gridImage(4, 4))), &out, 100)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("EncodeThumbnail() error = %v, want context.Canceled", err)
	}
}

func TestTransformString(t *testing.T) {
	if TransformRotate270.String() != "rotate_270" {
		t.Errorf("String() = %q", TransformRotate270.String())
	}
	if !strings.Contains(Transform(42).String(), "unknown") {
		t.Errorf("String() = %q", Transform(42).String())
	}
}
