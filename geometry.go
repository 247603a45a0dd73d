package server

// Rect is an axis-aligned box with a top-left origin.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// inset shrinks the rect by the given fraction of its size on every side.
// Collision tests run on inset boxes so hits feel fair rather than pixel-exact.
func (r Rect) inset(fraction float64) Rect {
	dx := r.Width * fraction
	dy := r.Height * fraction
	return Rect{
		X:      r.X + dx,
		Y:      r.Y + dy,
		Width:  r.Width - 2*dx,
		Height: r.Height - 2*dy,
	}
}

// contains reports whether other lies fully inside r. Edges count as inside,
// so a box sitting exactly on the boundary is not out of bounds.
func (r Rect) contains(other Rect) bool {
	return other.X >= r.X &&
		other.Y >= r.Y &&
		other.X+other.Width <= r.X+r.Width &&
		other.Y+other.Height <= r.Y+r.Height
}

// rectsOverlap is the standard AABB test. Touching edges do not overlap.
func rectsOverlap(a, b Rect) bool {
	return a.X < b.X+b.Width &&
		a.X+a.Width > b.X &&
		a.Y < b.Y+b.Height &&
		a.Y+a.Height > b.Y
}

// shrunkArena returns the in-bounds rectangle for the given area percentage,
// scaled symmetrically about the arena center.
func shrunkArena(arenaWidth, arenaHeight, areaPercentage float64) Rect {
	scale := areaPercentage / 100
	width := arenaWidth * scale
	height := arenaHeight * scale
	return Rect{
		X:      (arenaWidth - width) / 2,
		Y:      (arenaHeight - height) / 2,
		Width:  width,
		Height: height,
	}
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
