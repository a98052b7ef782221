package service

import (
	"bytes"
	"image"

	"github.com/rwcarlsen/goexif/exif"
)

// normalizeOrientation transposes a decoded image according to the EXIF
// Orientation tag in the original bytes, so portrait JPEGs from phone
// cameras compose upright. Images without a readable tag pass through.
func normalizeOrientation(raw []byte, img image.Image) image.Image {
	meta, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return img
	}
	tag, err := meta.Get(exif.Orientation)
	if err != nil {
		return img
	}
	orientation, err := tag.Int(0)
	if err != nil || orientation < 2 || orientation > 8 {
		return img
	}
	return transposeForOrientation(img, orientation)
}

// transposeForOrientation applies the pixel mapping for EXIF orientations
// 2 through 8. Orientations 5-8 swap the output dimensions.
func transposeForOrientation(src image.Image, orientation int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	var out *image.NRGBA
	if orientation >= 5 {
		out = image.NewNRGBA(image.Rect(0, 0, h, w))
	} else {
		out = image.NewNRGBA(image.Rect(0, 0, w, h))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := src.At(b.Min.X+x, b.Min.Y+y)
			switch orientation {
			case 2: // flip horizontal
				out.Set(w-1-x, y, c)
			case 3: // rotate 180
				out.Set(w-1-x, h-1-y, c)
			case 4: // flip vertical
				out.Set(x, h-1-y, c)
			case 5: // transpose
				out.Set(y, x, c)
			case 6: // rotate 90 clockwise
				out.Set(h-1-y, x, c)
			case 7: // transverse
				out.Set(h-1-y, w-1-x, c)
			case 8: // rotate 270 clockwise
				out.Set(y, w-1-x, c)
			default:
				out.Set(x, y, c)
			}
		}
	}
	return out
}
