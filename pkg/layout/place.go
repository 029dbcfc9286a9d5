// Package layout finds free positions for new canvas nodes.
package layout

import (
	"math"

	"canvas-rag-be/pkg/canvas"
)

// Point is a canvas coordinate.
type Point struct {
	X float64
	Y float64
}

// Size is a node's width and height.
type Size struct {
	Width  float64
	Height float64
}

// DefaultSize is used for new nodes when the caller has no preference.
var DefaultSize = Size{Width: 400, Height: 200}

// Options bounds the placement search. Zero values take the defaults.
type Options struct {
	HorizontalSpacing float64 `yaml:"horizontal_spacing"`
	VerticalSpacing   float64 `yaml:"vertical_spacing"`
	MaxRows           int     `yaml:"max_rows"`
	MaxCols           int     `yaml:"max_cols"`
	Grid              float64 `yaml:"grid"`
}

func DefaultOptions() Options {
	return Options{
		HorizontalSpacing: 40,
		VerticalSpacing:   60,
		MaxRows:           8,
		MaxCols:           6,
		Grid:              20,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.HorizontalSpacing <= 0 {
		o.HorizontalSpacing = d.HorizontalSpacing
	}
	if o.VerticalSpacing <= 0 {
		o.VerticalSpacing = d.VerticalSpacing
	}
	if o.MaxRows <= 0 {
		o.MaxRows = d.MaxRows
	}
	if o.MaxCols <= 0 {
		o.MaxCols = d.MaxCols
	}
	if o.Grid <= 0 {
		o.Grid = d.Grid
	}
	return o
}

// Place returns the top-left corner for a node of the given size below
// parent. Rows are searched top to bottom; within a row, slots fan out
// from the parent's column as 0, +1, -1, +2, -2 ... up to MaxCols. Every
// candidate is snapped to the grid before it is tested against all nodes
// except the parent, so the returned position is free whenever any slot
// is. When none is, the snapped position directly below the parent is
// returned anyway.
func Place(nodes []canvas.Node, parent canvas.Node, size Size, opts Options) Point {
	opts = opts.withDefaults()
	if size.Width <= 0 {
		size.Width = DefaultSize.Width
	}
	if size.Height <= 0 {
		size.Height = DefaultSize.Height
	}

	baseY := parent.Y + parent.Height + opts.VerticalSpacing
	stepX := size.Width + opts.HorizontalSpacing
	stepY := size.Height + opts.VerticalSpacing

	for row := 0; row < opts.MaxRows; row++ {
		y := snap(baseY+float64(row)*stepY, opts.Grid)
		for _, slot := range slotOffsets(opts.MaxCols) {
			x := snap(parent.X+float64(slot)*stepX, opts.Grid)
			candidate := canvas.Rect{X: x, Y: y, Width: size.Width, Height: size.Height}
			if !collides(candidate, nodes, parent.ID) {
				return Point{X: x, Y: y}
			}
		}
	}

	return Point{X: snap(parent.X, opts.Grid), Y: snap(baseY, opts.Grid)}
}

// slotOffsets returns 0, +1, -1, ..., +max, -max.
func slotOffsets(max int) []int {
	out := make([]int, 0, 2*max+1)
	out = append(out, 0)
	for k := 1; k <= max; k++ {
		out = append(out, k, -k)
	}
	return out
}

func collides(r canvas.Rect, nodes []canvas.Node, skipID string) bool {
	for _, n := range nodes {
		if n.ID == skipID {
			continue
		}
		if r.Overlaps(n.Rect()) {
			return true
		}
	}
	return false
}

func snap(v, grid float64) float64 {
	return math.Round(v/grid) * grid
}
