package sim

// World bounds for the arena. The simulation and the client predictor share
// these so both sides clamp movement identically.
const (
	WorldWidth  = 800.0
	WorldHeight = 600.0

	// MaxInputDelta caps the time delta of a single input so a delayed or
	// bursty message cannot move a player further than one tenth of a second
	// worth of travel.
	MaxInputDelta = 0.1
)

// Vec2 is a 2D vector in world units.
type Vec2 struct {
	X float64
	Y float64
}

// Clamp limits v to the [lo, hi] interval.
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Integrate advances a position by one input step and returns the new position
// and the velocity that produced it. Direction components are expected in
// [-1, 1] each; they are deliberately not normalized, so full diagonal input
// moves faster than a single axis. The result is clamped to the world bounds.
func Integrate(pos, dir Vec2, speed, dt float64) (Vec2, Vec2) {
	dt = Clamp(dt, 0, MaxInputDelta)

	vel := Vec2{X: dir.X * speed, Y: dir.Y * speed}
	next := Vec2{
		X: Clamp(pos.X+vel.X*dt, 0, WorldWidth),
		Y: Clamp(pos.Y+vel.Y*dt, 0, WorldHeight),
	}
	return next, vel
}
