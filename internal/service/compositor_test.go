package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/image/font/basicfont"

	"github.com/saifjishan/chatmeme/internal/cache"
	"github.com/saifjishan/chatmeme/internal/domain"
)

// testImagePNG renders a solid-color PNG for download fixtures.
func testImagePNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

var fixtureRed = color.NRGBA{R: 255, A: 255}

func imageServer(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(body)
	}))
}

func TestComposeSingle(t *testing.T) {
	server := imageServer(t, testImagePNG(t, 400, 300, fixtureRed))
	defer server.Close()

	svc := NewCompositorService(&CompositorConfig{})
	plan := domain.DefaultPlan(1, []string{"hello world"})

	out, err := svc.Compose(context.Background(), []string{server.URL + "/a.png"}, plan)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	decoded, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() != plan.Width || bounds.Dy() != plan.Height {
		t.Errorf("expected %dx%d canvas, got %dx%d", plan.Width, plan.Height, bounds.Dx(), bounds.Dy())
	}
}

// sampleNRGBA reads one pixel as NRGBA.
func sampleNRGBA(img image.Image, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func colorClose(a, b color.NRGBA) bool {
	diff := func(p, q uint8) int {
		d := int(p) - int(q)
		if d < 0 {
			d = -d
		}
		return d
	}
	return diff(a.R, b.R) <= 3 && diff(a.G, b.G) <= 3 && diff(a.B, b.B) <= 3
}

func TestComposeCollageCellGeometry(t *testing.T) {
	colors := []color.NRGBA{
		{R: 255, A: 255},
		{G: 255, A: 255},
		{B: 255, A: 255},
	}
	var urls []string
	for _, c := range colors {
		server := imageServer(t, testImagePNG(t, 200, 200, c))
		defer server.Close()
		urls = append(urls, server.URL+"/img.png")
	}

	svc := NewCompositorService(&CompositorConfig{})
	plan := domain.DefaultPlan(len(urls), nil) // 700x700 grid, spacing 10

	out, err := svc.Compose(context.Background(), urls, plan)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}

	// Three images in one grid row: cellW=(700-4*10)/3=220, cellH=680.
	// Square sources scale to 220x220 centered vertically at y=240.
	centers := []image.Point{{X: 120, Y: 350}, {X: 350, Y: 350}, {X: 580, Y: 350}}
	for i, p := range centers {
		got := sampleNRGBA(decoded, p.X, p.Y)
		if !colorClose(got, colors[i]) {
			t.Errorf("cell %d center (%d,%d): expected %v, got %v", i, p.X, p.Y, colors[i], got)
		}
	}

	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	background := []image.Point{
		{X: 4, Y: 350},   // left margin
		{X: 234, Y: 350}, // padding gap between cells 0 and 1
		{X: 464, Y: 350}, // padding gap between cells 1 and 2
		{X: 350, Y: 100}, // above the vertically centered images
	}
	for _, p := range background {
		got := sampleNRGBA(decoded, p.X, p.Y)
		if !colorClose(got, white) {
			t.Errorf("background at (%d,%d): expected white, got %v", p.X, p.Y, got)
		}
	}
}

func TestComposeSkipsBrokenImages(t *testing.T) {
	good := imageServer(t, testImagePNG(t, 100, 100, fixtureRed))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer bad.Close()
	garbage := imageServer(t, []byte("not an image at all"))
	defer garbage.Close()

	svc := NewCompositorService(&CompositorConfig{})
	urls := []string{bad.URL + "/x.png", garbage.URL + "/y.png", good.URL + "/z.png"}

	out, err := svc.Compose(context.Background(), urls, domain.DefaultPlan(3, nil))
	if err != nil {
		t.Fatalf("expected composition from the surviving image, got %v", err)
	}
	if len(out) == 0 {
		t.Error("expected non-empty PNG output")
	}
}

func TestComposeNoUsableImages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	svc := NewCompositorService(&CompositorConfig{})
	_, err := svc.Compose(context.Background(), []string{server.URL + "/x.png"}, nil)
	if !errors.Is(err, ErrNoUsableImages) {
		t.Errorf("expected ErrNoUsableImages, got %v", err)
	}
}

func TestComposeUsesImageCache(t *testing.T) {
	hits := 0
	body := testImagePNG(t, 100, 100, fixtureRed)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write(body)
	}))
	defer server.Close()

	store := cache.NewMemoryStore(10, time.Minute)
	svc := NewCompositorService(&CompositorConfig{Cache: store})
	url := server.URL + "/a.png"

	for i := 0; i < 2; i++ {
		if _, err := svc.Compose(context.Background(), []string{url}, nil); err != nil {
			t.Fatalf("Compose %d failed: %v", i, err)
		}
	}

	if hits != 1 {
		t.Errorf("expected one download, got %d", hits)
	}
}

type countingRemover struct {
	calls int
}

func (r *countingRemover) Remove(_ context.Context, img []byte) ([]byte, error) {
	r.calls++
	return img, nil
}

// Removal is a per-composition step, not a download step: bytes that
// were cached by a service without a remover must still be matted when a
// later service with one reuses them.
func TestRemovalRunsOnCachedImages(t *testing.T) {
	hits := 0
	body := testImagePNG(t, 100, 100, fixtureRed)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write(body)
	}))
	defer server.Close()

	store := cache.NewMemoryStore(10, time.Minute)
	url := server.URL + "/a.png"
	ctx := context.Background()

	// First service populates the cache without any removal.
	plain := NewCompositorService(&CompositorConfig{Cache: store})
	if _, err := plain.Compose(ctx, []string{url}, nil); err != nil {
		t.Fatalf("priming Compose failed: %v", err)
	}

	remover := &countingRemover{}
	matting := NewCompositorService(&CompositorConfig{Cache: store, Remover: remover})
	if _, err := matting.Compose(ctx, []string{url}, nil); err != nil {
		t.Fatalf("Compose with remover failed: %v", err)
	}

	if remover.calls == 0 {
		t.Error("expected removal to run on the cache-hit path")
	}
	if hits != 1 {
		t.Errorf("expected the cached bytes to be reused, got %d downloads", hits)
	}
}

func TestComposeHonorsConfiguredBounds(t *testing.T) {
	server := imageServer(t, testImagePNG(t, 100, 100, fixtureRed))
	defer server.Close()

	svc := NewCompositorService(&CompositorConfig{MinSize: 400, MaxSize: 500})

	// DefaultPlan asks for 700x700; the configured ceiling wins.
	out, err := svc.Compose(context.Background(), []string{server.URL + "/a.png"}, nil)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if decoded.Bounds().Dx() != 500 || decoded.Bounds().Dy() != 500 {
		t.Errorf("expected 500x500 canvas under configured bounds, got %dx%d",
			decoded.Bounds().Dx(), decoded.Bounds().Dy())
	}

	// A plan below the configured floor is pulled up.
	small := &domain.CompositionPlan{Kind: domain.CompositionSingle, Width: 310, Height: 310, Layout: domain.LayoutGrid}
	out, err = svc.Compose(context.Background(), []string{server.URL + "/a.png"}, small)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	decoded, _ = png.Decode(bytes.NewReader(out))
	if decoded.Bounds().Dx() != 400 || decoded.Bounds().Dy() != 400 {
		t.Errorf("expected 400x400 canvas under configured floor, got %dx%d",
			decoded.Bounds().Dx(), decoded.Bounds().Dy())
	}
}

type failingRemover struct{}

func (failingRemover) Remove(context.Context, []byte) ([]byte, error) {
	return nil, errors.New("matting service down")
}

func TestComposeSurvivesRemoverFailure(t *testing.T) {
	server := imageServer(t, testImagePNG(t, 100, 100, fixtureRed))
	defer server.Close()

	svc := NewCompositorService(&CompositorConfig{Remover: failingRemover{}})
	_, err := svc.Compose(context.Background(), []string{server.URL + "/a.png"}, nil)
	if err != nil {
		t.Fatalf("expected original image to be used when removal fails, got %v", err)
	}
}

func TestWrapText(t *testing.T) {
	face := basicfont.Face7x13 // fixed 7px advance per glyph

	tests := []struct {
		name     string
		text     string
		maxWidth int
		expected []string
	}{
		{
			name:     "fits on one line",
			text:     "short",
			maxWidth: 100,
			expected: []string{"short"},
		},
		{
			name:     "wraps greedily",
			text:     "aaa bbb ccc",
			maxWidth: 70, // 10 glyphs
			expected: []string{"aaa bbb", "ccc"},
		},
		{
			name:     "overlong word gets its own line",
			text:     "a incomprehensibilities b",
			maxWidth: 70,
			expected: []string{"a", "incomprehensibilities", "b"},
		},
		{
			name:     "empty text",
			text:     "   ",
			maxWidth: 70,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapText(tt.text, face, tt.maxWidth)
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %d lines %v, got %d lines %v",
					len(tt.expected), tt.expected, len(got), got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("line %d: expected %q, got %q", i, tt.expected[i], got[i])
				}
			}
		})
	}
}

func TestEffectiveTextWidth(t *testing.T) {
	tests := []struct {
		name        string
		maxWidth    int
		canvasWidth int
		capWidth    int
		expected    int
	}{
		{"unbounded uses 80 percent", 0, 500, domain.MaxTextWidth, 400},
		{"explicit bound wins when smaller", 200, 500, domain.MaxTextWidth, 200},
		{"80 percent wins when smaller", 600, 500, domain.MaxTextWidth, 400},
		{"never exceeds cap", 0, 700, domain.MaxTextWidth, domain.MaxTextWidth},
		{"configured cap lowers the limit", 0, 700, 250, 250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := effectiveTextWidth(tt.maxWidth, tt.canvasWidth, tt.capWidth); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}
