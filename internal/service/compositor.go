package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/webp"

	"github.com/saifjishan/chatmeme/internal/cache"
	"github.com/saifjishan/chatmeme/internal/domain"
	"github.com/saifjishan/chatmeme/internal/logger"
)

// ErrNoUsableImages is returned when every candidate URL failed to
// download or decode. The canvas is never drawn partially blank.
var ErrNoUsableImages = errors.New("no usable images for composition")

// CompositorService downloads source images, lays them out per the
// composition plan and draws captions on top. Downloads go through the
// content-addressed image cache so repeated prompts reuse bytes; the
// cache always holds the normalized original, never a matted version.
type CompositorService struct {
	client  *resty.Client
	cache   cache.Store
	remover BackgroundRemover
	padding int

	minSize      int
	maxSize      int
	textMaxWidth int
}

// CompositorConfig holds configuration for the compositor service.
type CompositorConfig struct {
	// Cache stores downloaded images keyed by URL hash; nil disables
	// caching and every request re-downloads.
	Cache cache.Store

	// Remover strips backgrounds before placement; nil means no removal.
	Remover BackgroundRemover

	// Padding is the default spacing around collage cells. Zero means 10.
	Padding int

	// MinSize and MaxSize bound the canvas edge in pixels. Zero values
	// take the package defaults; out-of-range values are pulled back in.
	MinSize int
	MaxSize int

	// TextMaxWidth caps caption wrap width. Zero means the default cap.
	TextMaxWidth int
}

// NewCompositorService creates a new compositor service.
func NewCompositorService(cfg *CompositorConfig) *CompositorService {
	client := resty.New()
	client.SetTimeout(10 * time.Second)

	padding := cfg.Padding
	if padding <= 0 {
		padding = 10
	}

	remover := cfg.Remover
	if remover == nil {
		remover = NoopBackgroundRemover{}
	}

	minSize := cfg.MinSize
	if minSize <= 0 {
		minSize = domain.MinCanvasSize
	}
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = domain.MaxCanvasSize
	}
	textMaxWidth := cfg.TextMaxWidth
	if textMaxWidth <= 0 || textMaxWidth > domain.MaxTextWidth {
		textMaxWidth = domain.MaxTextWidth
	}

	return &CompositorService{
		client:       client,
		cache:        cfg.Cache,
		remover:      remover,
		padding:      padding,
		minSize:      minSize,
		maxSize:      maxSize,
		textMaxWidth: textMaxWidth,
	}
}

// Compose builds one meme PNG from the candidate URLs and the plan. URLs
// that fail to download or decode are skipped; ErrNoUsableImages is
// returned only when none survive.
func (s *CompositorService) Compose(ctx context.Context, urls []string, plan *domain.CompositionPlan) ([]byte, error) {
	if plan == nil {
		plan = domain.DefaultPlan(len(urls), nil)
	}
	plan.ClampWithin(s.minSize, s.maxSize, s.textMaxWidth)

	images := s.fetchAll(ctx, urls)
	if len(images) == 0 {
		return nil, ErrNoUsableImages
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, plan.Width, plan.Height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	if plan.Kind == domain.CompositionSingle || len(images) == 1 {
		s.placeSingle(canvas, images[0])
	} else {
		s.placeCollage(canvas, images, plan)
	}

	for _, t := range plan.Texts {
		drawCaption(canvas, t, s.textMaxWidth)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode meme: %w", err)
	}

	logger.CtxInfo(ctx, "Composed %s meme %dx%d from %d/%d images",
		plan.Kind, plan.Width, plan.Height, len(images), len(urls))
	return buf.Bytes(), nil
}

// fetchAll resolves every URL to a decoded image, dropping failures.
// Background removal happens here, per composition, on the normalized
// bytes coming out of fetchOne. Removal runs whether the bytes came from
// the network or the cache; a failed matting call keeps the original.
func (s *CompositorService) fetchAll(ctx context.Context, urls []string) []image.Image {
	images := make([]image.Image, 0, len(urls))
	for _, url := range urls {
		data, err := s.fetchOne(ctx, url)
		if err != nil {
			logger.CtxDebug(ctx, "Skipping image %s: %v", url, err)
			continue
		}

		if matted, err := s.remover.Remove(ctx, data); err == nil {
			data = matted
		} else {
			logger.CtxDebug(ctx, "Background removal failed, keeping original: %v", err)
		}

		img, err := decodeImage(data)
		if err != nil {
			logger.CtxDebug(ctx, "Skipping image %s: %v", url, err)
			continue
		}
		images = append(images, img)
	}
	return images
}

// fetchOne returns the normalized PNG bytes for url, going through the
// cache first. Downloads are decoded (png/jpeg/gif/webp), transposed per
// their EXIF orientation, converted to NRGBA and re-encoded as PNG before
// storing, so the read path never depends on the source format.
func (s *CompositorService) fetchOne(ctx context.Context, url string) ([]byte, error) {
	key := cache.Key(url)

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			return data, nil
		}
	}

	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("image download error: HTTP %d", resp.StatusCode())
	}

	raw := resp.Body()
	img, err := decodeImage(raw)
	if err != nil {
		return nil, err
	}
	img = normalizeOrientation(raw, img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, toNRGBA(img)); err != nil {
		return nil, fmt.Errorf("failed to normalize image: %w", err)
	}
	data := buf.Bytes()

	if s.cache != nil {
		if err := s.cache.Put(ctx, key, data); err != nil {
			logger.CtxDebug(ctx, "Failed to cache image: %v", err)
		}
	}

	return data, nil
}

// decodeImage tries PNG, JPEG, GIF and WebP in turn.
func decodeImage(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("unsupported image format")
}

// toNRGBA converts any decoded image to NRGBA for uniform compositing.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// placeSingle scales the image to fill the canvas, preserving aspect
// ratio and centering the result.
func (s *CompositorService) placeSingle(canvas *image.NRGBA, img image.Image) {
	fitInto(canvas, canvas.Bounds(), img)
}

// placeCollage lays the images out in the plan's layout. Cell extents
// follow extent = (total - (cells+1)*padding) / cells on each axis.
func (s *CompositorService) placeCollage(canvas *image.NRGBA, images []image.Image, plan *domain.CompositionPlan) {
	pad := plan.Spacing
	if pad <= 0 {
		pad = s.padding
	}

	var cols, rows int
	switch plan.Layout {
	case domain.LayoutVertical:
		cols, rows = 1, len(images)
	case domain.LayoutHorizontal:
		cols, rows = len(images), 1
	default:
		cols = len(images)
		if cols > 3 {
			cols = 3
		}
		rows = (len(images) + cols - 1) / cols
	}

	cellW := (plan.Width - (cols+1)*pad) / cols
	cellH := (plan.Height - (rows+1)*pad) / rows
	if cellW < 1 || cellH < 1 {
		// Padding ate the canvas; fall back to a flat grid.
		pad = 0
		cellW = plan.Width / cols
		cellH = plan.Height / rows
	}

	for i, img := range images {
		col := i % cols
		row := i / cols
		x0 := pad + col*(cellW+pad)
		y0 := pad + row*(cellH+pad)
		cell := image.Rect(x0, y0, x0+cellW, y0+cellH)
		fitInto(canvas, cell, img)
	}
}

// fitInto scales src to fit rect with aspect ratio preserved, centered,
// using Catmull-Rom interpolation.
func fitInto(dst *image.NRGBA, rect image.Rectangle, src image.Image) {
	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 || rect.Dx() <= 0 || rect.Dy() <= 0 {
		return
	}

	scaleX := float64(rect.Dx()) / float64(sb.Dx())
	scaleY := float64(rect.Dy()) / float64(sb.Dy())
	scale := scaleX
	if scaleY < scale {
		scale = scaleY
	}

	w := int(float64(sb.Dx()) * scale)
	h := int(float64(sb.Dy()) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	x0 := rect.Min.X + (rect.Dx()-w)/2
	y0 := rect.Min.Y + (rect.Dy()-h)/2
	target := image.Rect(x0, y0, x0+w, y0+h)

	xdraw.CatmullRom.Scale(dst, target, src, sb, xdraw.Over, nil)
}

// drawCaption renders one caption in classic meme style: drop shadow,
// black outline, white fill. Lines wrap greedily at the effective max
// width and center on the placement X.
func drawCaption(canvas *image.NRGBA, t domain.TextPlacement, textMaxWidth int) {
	text := strings.TrimSpace(t.Text)
	if text == "" {
		return
	}

	face := basicfont.Face7x13
	maxWidth := effectiveTextWidth(t.MaxWidth, canvas.Bounds().Dx(), textMaxWidth)
	lines := wrapText(text, face, maxWidth)

	lineHeight := face.Metrics().Height.Ceil() + 2
	y := t.Y
	if y <= 0 {
		y = canvas.Bounds().Dy() - lineHeight*len(lines)
	}

	for i, line := range lines {
		width := font.MeasureString(face, line).Ceil()
		x := t.X - width/2
		if x < 0 {
			x = 0
		}
		baseline := y + i*lineHeight
		drawOutlinedString(canvas, face, line, x, baseline)
	}
}

// effectiveTextWidth resolves the wrap width: an explicit bound capped
// at the configured maximum, otherwise 80% of the canvas width.
func effectiveTextWidth(maxWidth, canvasWidth, capWidth int) int {
	limit := canvasWidth * 80 / 100
	if maxWidth > 0 && maxWidth < limit {
		limit = maxWidth
	}
	if limit > capWidth {
		limit = capWidth
	}
	return limit
}

// wrapText splits text into lines no wider than maxWidth. A single word
// wider than the bound gets its own line rather than being broken.
func wrapText(text string, face font.Face, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if font.MeasureString(face, candidate).Ceil() <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}

// drawOutlinedString stamps the string three times: a shadow offset down
// and right, a black outline within radius 2, then the white fill.
func drawOutlinedString(canvas *image.NRGBA, face font.Face, s string, x, y int) {
	drawString(canvas, face, s, x+2, y+2, color.Black)
	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			drawString(canvas, face, s, x+dx, y+dy, color.Black)
		}
	}
	drawString(canvas, face, s, x, y, color.White)
}

func drawString(canvas *image.NRGBA, face font.Face, s string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
