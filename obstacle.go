package server

// obstacleVariants is the number of cosmetic sprite variants clients render.
const obstacleVariants = 3

// Obstacle is a moving hazard. It carries no behavior of its own; advancing
// and respawning live in the simulation functions, which need to see the full
// obstacle and player lists at once.
type Obstacle struct {
	ID      int
	X       float64
	Y       float64
	Width   float64
	Height  float64
	Speed   float64 // horizontal px per second, sampled at (re)spawn
	Variant int
	Active  bool
}

// Bounds returns the obstacle's visual bounding box.
func (o *Obstacle) Bounds() Rect {
	return Rect{X: o.X, Y: o.Y, Width: o.Width, Height: o.Height}
}

// Hitbox returns the collision box, inset by the configured fraction.
func (o *Obstacle) Hitbox(insetFraction float64) Rect {
	return o.Bounds().inset(insetFraction)
}
