package service

import (
	"image"
	"image/color"
	"testing"
)

// 2x2 fixture with one distinct color per corner:
//
//	A B
//	C D
var (
	cornerA = color.NRGBA{R: 255, A: 255}
	cornerB = color.NRGBA{G: 255, A: 255}
	cornerC = color.NRGBA{B: 255, A: 255}
	cornerD = color.NRGBA{R: 255, G: 255, A: 255}
)

func orientationFixture() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, cornerA)
	img.Set(1, 0, cornerB)
	img.Set(0, 1, cornerC)
	img.Set(1, 1, cornerD)
	return img
}

func TestTransposeForOrientation(t *testing.T) {
	tests := []struct {
		name        string
		orientation int
		// expected corners row-major: top-left, top-right, bottom-left, bottom-right
		expected [4]color.NRGBA
	}{
		{"flip horizontal", 2, [4]color.NRGBA{cornerB, cornerA, cornerD, cornerC}},
		{"rotate 180", 3, [4]color.NRGBA{cornerD, cornerC, cornerB, cornerA}},
		{"flip vertical", 4, [4]color.NRGBA{cornerC, cornerD, cornerA, cornerB}},
		{"transpose", 5, [4]color.NRGBA{cornerA, cornerC, cornerB, cornerD}},
		{"rotate 90 clockwise", 6, [4]color.NRGBA{cornerC, cornerA, cornerD, cornerB}},
		{"transverse", 7, [4]color.NRGBA{cornerD, cornerB, cornerC, cornerA}},
		{"rotate 270 clockwise", 8, [4]color.NRGBA{cornerB, cornerD, cornerA, cornerC}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := transposeForOrientation(orientationFixture(), tt.orientation)
			if out.Bounds().Dx() != 2 || out.Bounds().Dy() != 2 {
				t.Fatalf("expected 2x2 output, got %v", out.Bounds())
			}

			got := [4]color.NRGBA{
				sampleNRGBA(out, 0, 0),
				sampleNRGBA(out, 1, 0),
				sampleNRGBA(out, 0, 1),
				sampleNRGBA(out, 1, 1),
			}
			if got != tt.expected {
				t.Errorf("orientation %d: expected %v, got %v", tt.orientation, tt.expected, got)
			}
		})
	}
}

func TestTransposeSwapsDimensions(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for _, orientation := range []int{5, 6, 7, 8} {
		out := transposeForOrientation(src, orientation)
		if out.Bounds().Dx() != 2 || out.Bounds().Dy() != 3 {
			t.Errorf("orientation %d: expected 2x3 output, got %v", orientation, out.Bounds())
		}
	}
}

func TestNormalizeOrientationWithoutExif(t *testing.T) {
	img := orientationFixture()
	out := normalizeOrientation([]byte("plain png bytes, no exif"), img)
	if out != image.Image(img) {
		t.Error("expected image without EXIF metadata to pass through unchanged")
	}
}
