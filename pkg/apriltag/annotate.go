package apriltag

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Style controls the diagnostic overlay drawn on published frames.
type Style struct {
	BoxColor      string  `json:"box_color"`      // Hex, e.g. "#ff0000"
	MarkerColor   string  `json:"marker_color"`   // Center marker
	TextColor     string  `json:"text_color"`     // Tag id label
	LineThickness int     `json:"line_thickness"` // Box edge thickness in pixels
	MarkerRadius  int     `json:"marker_radius"`  // Center marker radius in pixels
	FontSize      float64 `json:"font_size"`      // Label size in pixels
}

// DefaultStyle returns a red box with a green center marker and green id label.
func DefaultStyle() Style {
	return Style{
		BoxColor:      "#ff0000",
		MarkerColor:   "#00ff00",
		TextColor:     "#00ff00",
		LineThickness: 5,
		MarkerRadius:  4,
		FontSize:      32,
	}
}

// annotator draws observations onto frames. Font faces are not safe for
// concurrent use, so each worker owns one annotator.
type annotator struct {
	box, marker, text color.RGBA
	thickness         int
	radius            int
	face              font.Face
}

func newAnnotator(s Style) (*annotator, error) {
	box, err := parseColor(s.BoxColor)
	if err != nil {
		return nil, fmt.Errorf("box color: %w", err)
	}
	marker, err := parseColor(s.MarkerColor)
	if err != nil {
		return nil, fmt.Errorf("marker color: %w", err)
	}
	text, err := parseColor(s.TextColor)
	if err != nil {
		return nil, fmt.Errorf("text color: %w", err)
	}

	a := &annotator{
		box:       box,
		marker:    marker,
		text:      text,
		thickness: max(s.LineThickness, 1),
		radius:    max(s.MarkerRadius, 1),
	}

	if s.FontSize > 0 {
		f, err := opentype.Parse(gobold.TTF)
		if err != nil {
			return nil, fmt.Errorf("parse font: %w", err)
		}
		a.face, err = opentype.NewFace(f, &opentype.FaceOptions{
			Size:    s.FontSize,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, fmt.Errorf("font face: %w", err)
		}
	}

	return a, nil
}

func parseColor(hex string) (color.RGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidConfig, hex)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// Draw outlines the tag, marks its center and labels it with its id.
func (a *annotator) Draw(img *image.RGBA, o Observation) {
	for i := range o.Corners {
		p := o.Corners[i]
		q := o.Corners[(i+1)%len(o.Corners)]
		a.line(img, round(p), round(q))
	}

	a.circle(img, round(o.Center), a.radius)

	if a.face != nil {
		d := font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(a.text),
			Face: a.face,
			Dot:  fixed.P(int(o.Corners[2].X), int(o.Corners[2].Y)),
		}
		d.DrawString(strconv.Itoa(o.ID))
	}
}

func round(p Point) image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

// line draws a thick segment by stamping a disc at every Bresenham step.
func (a *annotator) line(img *image.RGBA, p, q image.Point) {
	r := a.thickness / 2
	dx := abs(q.X - p.X)
	dy := -abs(q.Y - p.Y)
	sx, sy := 1, 1
	if p.X > q.X {
		sx = -1
	}
	if p.Y > q.Y {
		sy = -1
	}

	err := dx + dy
	x, y := p.X, p.Y
	for {
		a.disc(img, x, y, r, a.box)
		if x == q.X && y == q.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func (a *annotator) disc(img *image.RGBA, cx, cy, r int, c color.RGBA) {
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			if x*x+y*y <= r*r {
				img.SetRGBA(cx+x, cy+y, c)
			}
		}
	}
}

// circle draws a one-pixel outline with the midpoint algorithm.
func (a *annotator) circle(img *image.RGBA, c image.Point, r int) {
	x, y := r, 0
	d := 1 - r
	for x >= y {
		for _, o := range [8]image.Point{
			{x, y}, {y, x}, {-y, x}, {-x, y},
			{-x, -y}, {-y, -x}, {y, -x}, {x, -y},
		} {
			img.SetRGBA(c.X+o.X, c.Y+o.Y, a.marker)
		}
		y++
		if d < 0 {
			d += 2*y + 1
		} else {
			x--
			d += 2*(y-x) + 1
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
