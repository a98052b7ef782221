package domain

// CompositionKind selects between a single-image meme and a multi-image
// collage.
type CompositionKind string

const (
	CompositionSingle  CompositionKind = "single"
	CompositionCollage CompositionKind = "collage"
)

// LayoutKind describes how collage cells are arranged on the canvas.
type LayoutKind string

const (
	LayoutGrid       LayoutKind = "grid"
	LayoutVertical   LayoutKind = "vertical"
	LayoutHorizontal LayoutKind = "horizontal"
)

// Canvas and text bounds. Whatever the analyzer returns, resolution and
// text width are clamped to these before composition.
const (
	MinCanvasSize = 300
	MaxCanvasSize = 700
	MaxTextWidth  = 400
)

// TextPlacement is one caption draw directive. MaxWidth <= 0 means "no
// explicit bound"; the compositor then wraps at 80% of the canvas width.
type TextPlacement struct {
	Text     string `json:"text"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	MaxWidth int    `json:"max_width"`
}

// CompositionPlan describes the target canvas, layout and caption
// placements for one meme.
type CompositionPlan struct {
	Kind    CompositionKind `json:"kind"`
	Width   int             `json:"width"`
	Height  int             `json:"height"`
	Layout  LayoutKind      `json:"layout"`
	Spacing int             `json:"spacing"`
	Texts   []TextPlacement `json:"texts"`
}

// Clamp enforces the documented bounds in place and returns the plan.
// Unknown kinds and layouts reset to their defaults.
func (p *CompositionPlan) Clamp() *CompositionPlan {
	return p.ClampWithin(MinCanvasSize, MaxCanvasSize, MaxTextWidth)
}

// ClampWithin enforces operator-configured bounds instead of the package
// defaults. The text bound never exceeds MaxTextWidth regardless of the
// argument; canvas bounds stay inside [MinCanvasSize, MaxCanvasSize].
func (p *CompositionPlan) ClampWithin(minSize, maxSize, maxTextWidth int) *CompositionPlan {
	minSize = clampInt(minSize, MinCanvasSize, MaxCanvasSize)
	maxSize = clampInt(maxSize, minSize, MaxCanvasSize)
	if maxTextWidth <= 0 || maxTextWidth > MaxTextWidth {
		maxTextWidth = MaxTextWidth
	}

	p.Width = clampInt(p.Width, minSize, maxSize)
	p.Height = clampInt(p.Height, minSize, maxSize)
	for i := range p.Texts {
		if p.Texts[i].MaxWidth > maxTextWidth {
			p.Texts[i].MaxWidth = maxTextWidth
		}
	}
	if p.Kind != CompositionSingle && p.Kind != CompositionCollage {
		p.Kind = CompositionSingle
	}
	switch p.Layout {
	case LayoutGrid, LayoutVertical, LayoutHorizontal:
	default:
		p.Layout = LayoutGrid
	}
	if p.Spacing < 0 {
		p.Spacing = 0
	}
	return p
}

// DefaultPlan infers a plan from fixed layout rules when the analyzer did
// not return one: one image is a single composition, more become a grid
// collage; the first caption anchors near the bottom edge.
func DefaultPlan(imageCount int, captions []string) *CompositionPlan {
	plan := &CompositionPlan{
		Kind:    CompositionSingle,
		Width:   MaxCanvasSize,
		Height:  MaxCanvasSize,
		Layout:  LayoutGrid,
		Spacing: 10,
	}
	if imageCount > 1 {
		plan.Kind = CompositionCollage
	}
	for i, caption := range captions {
		if caption == "" {
			continue
		}
		// Stack captions upward from the bottom edge.
		y := plan.Height - 40*(len(captions)-i)
		plan.Texts = append(plan.Texts, TextPlacement{
			Text: caption,
			X:    plan.Width / 2,
			Y:    y,
		})
	}
	return plan.Clamp()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
