package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"github.com/sentrylab/vigil/internal/domain/model"
)

// Default rendering parameters.
const (
	defaultBorderPx    = 3
	defaultDrawQuality = 95
)

// BoxRenderer draws detection bounding boxes onto the evidence frame and
// re-encodes it for downstream compression.
type BoxRenderer struct {
	border  int
	quality int
	color   color.RGBA
}

// RenderOption applies a configuration option to the BoxRenderer.
type RenderOption func(*BoxRenderer)

// WithBorder sets the box border thickness in pixels.
func WithBorder(px int) RenderOption {
	return func(r *BoxRenderer) {
		if px > 0 {
			r.border = px
		}
	}
}

// WithBoxColor sets the box color.
func WithBoxColor(c color.RGBA) RenderOption {
	return func(r *BoxRenderer) {
		r.color = c
	}
}

// NewBoxRenderer creates a renderer with red 3px borders.
func NewBoxRenderer(opts ...RenderOption) *BoxRenderer {
	r := &BoxRenderer{
		border:  defaultBorderPx,
		quality: defaultDrawQuality,
		color:   color.RGBA{R: 0xE6, G: 0x2B, B: 0x2B, A: 0xFF},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render decodes the frame, draws one rectangle per detection, and
// returns a fresh JPEG at a quality high enough for the compressor to
// work with.
func (r *BoxRenderer) Render(f model.Frame, dets []model.Detection) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return nil, fmt.Errorf("decode evidence frame: %w", err)
	}

	canvas := image.NewRGBA(src.Bounds())
	draw.Draw(canvas, canvas.Bounds(), src, src.Bounds().Min, draw.Src)

	for _, d := range dets {
		r.drawBox(canvas, d.Box)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: r.quality}); err != nil {
		return nil, fmt.Errorf("encode annotated frame: %w", err)
	}
	return buf.Bytes(), nil
}

// drawBox paints a hollow rectangle clipped to the canvas bounds.
func (r *BoxRenderer) drawBox(canvas *image.RGBA, b model.Box) {
	rect := image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height).Intersect(canvas.Bounds())
	if rect.Empty() {
		return
	}
	for t := 0; t < r.border; t++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			setClipped(canvas, x, rect.Min.Y+t, r.color)
			setClipped(canvas, x, rect.Max.Y-1-t, r.color)
		}
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			setClipped(canvas, rect.Min.X+t, y, r.color)
			setClipped(canvas, rect.Max.X-1-t, y, r.color)
		}
	}
}

func setClipped(canvas *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(canvas.Bounds()) {
		canvas.SetRGBA(x, y, c)
	}
}
