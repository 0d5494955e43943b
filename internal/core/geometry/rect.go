// Package geometry provides the integer and floating-point rectangle
// types used for window and panel layout.
package geometry

// Rect is an axis-aligned rectangle with integer coordinates, used for
// cell-based terminal layout. Width and height extend right and down from
// the origin; the right and bottom edges are exclusive.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// NewRect creates a rectangle at (x, y) with the given extent.
func NewRect(x, y, width, height int) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// IsEmpty returns true when the rectangle covers no cells.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether the point lies inside the rectangle. The left
// and top edges are inclusive, the right and bottom edges exclusive.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// SplitHorizontal cuts the rectangle into a top part of the requested
// height and the remainder below it. The height is clamped to the
// rectangle, so the remainder may be empty.
func (r Rect) SplitHorizontal(height int) (top, bottom Rect) {
	if height < 0 {
		height = 0
	}
	if height > r.Height {
		height = r.Height
	}
	top = NewRect(r.X, r.Y, r.Width, height)
	bottom = NewRect(r.X, r.Y+height, r.Width, r.Height-height)
	return top, bottom
}

// SplitVertical cuts the rectangle into a left part of the requested width
// and the remainder to its right. The width is clamped to the rectangle.
func (r Rect) SplitVertical(width int) (left, right Rect) {
	if width < 0 {
		width = 0
	}
	if width > r.Width {
		width = r.Width
	}
	left = NewRect(r.X, r.Y, width, r.Height)
	right = NewRect(r.X+width, r.Y, r.Width-width, r.Height)
	return left, right
}

// Float converts the rectangle to floating-point coordinates.
func (r Rect) Float() FloatRect {
	return NewFloatRect(float64(r.X), float64(r.Y), float64(r.Width), float64(r.Height))
}

// FloatRect is an axis-aligned rectangle with floating-point coordinates,
// used where fractional layout math is needed before snapping to cells.
type FloatRect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// NewFloatRect creates a floating-point rectangle at (x, y) with the given
// extent.
func NewFloatRect(x, y, width, height float64) FloatRect {
	return FloatRect{X: x, Y: y, Width: width, Height: height}
}

// IsEmpty returns true when the rectangle covers no area.
func (r FloatRect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Scale multiplies every component by the factor.
func (r FloatRect) Scale(factor float64) FloatRect {
	return NewFloatRect(r.X*factor, r.Y*factor, r.Width*factor, r.Height*factor)
}
