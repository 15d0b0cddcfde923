package media

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// Transform is the pixel operation that makes an oriented image upright.
type Transform int

// Transforms for the eight EXIF orientation values.
const (
	TransformIdentity   Transform = iota // 1
	TransformFlipH                       // 2: mirrored horizontally
	TransformRotate180                   // 3
	TransformFlipV                       // 4: mirrored vertically
	TransformTranspose                   // 5: mirrored, rotated 90 CCW
	TransformRotate270                   // 6: rotated 90 CW
	TransformTransverse                  // 7: mirrored, rotated 90 CW
	TransformRotate90                    // 8: rotated 90 CCW
)

var transformNames = [...]string{
	TransformIdentity:   "identity",
	TransformFlipH:      "flip_horizontal",
	TransformRotate180:  "rotate_180",
	TransformFlipV:      "flip_vertical",
	TransformTranspose:  "transpose",
	TransformRotate270:  "rotate_270",
	TransformTransverse: "transverse",
	TransformRotate90:   "rotate_90",
}

func (t Transform) String() string {
	if t >= 0 && int(t) < len(transformNames) {
		return transformNames[t]
	}
	return "unknown"
}

// OrientationTransform maps an EXIF orientation value to its Transform.
// Values outside 1..8 map to TransformIdentity.
func OrientationTransform(orientation int) Transform {
	if orientation < 1 || orientation > 8 {
		return TransformIdentity
	}
	return Transform(orientation - 1)
}

// Apply returns img with t applied. Rotations are counter-clockwise.
func (t Transform) Apply(img image.Image) image.Image {
	switch t {
	case TransformFlipH:
		return imaging.FlipH(img)
	case TransformRotate180:
		return imaging.Rotate180(img)
	case TransformFlipV:
		return imaging.FlipV(img)
	case TransformTranspose:
		return imaging.Transpose(img)
	case TransformRotate270:
		return imaging.Rotate270(img)
	case TransformTransverse:
		return imaging.Transverse(img)
	case TransformRotate90:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// SwapsDimensions reports whether t exchanges width and height.
func (t Transform) SwapsDimensions() bool {
	return t >= TransformTranspose
}

// ReadOrientation returns the EXIF orientation in data, or 1 when the image
// carries no readable orientation tag.
func ReadOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}
