package humanoid

import "math"

// Vector2D is a point or direction in viewport coordinates.
type Vector2D struct {
	X float64
	Y float64
}

func (v Vector2D) Add(o Vector2D) Vector2D { return Vector2D{v.X + o.X, v.Y + o.Y} }
func (v Vector2D) Sub(o Vector2D) Vector2D { return Vector2D{v.X - o.X, v.Y - o.Y} }
func (v Vector2D) Mul(s float64) Vector2D  { return Vector2D{v.X * s, v.Y * s} }

// Mag returns the vector's magnitude.
func (v Vector2D) Mag() float64 {
	return math.Hypot(v.X, v.Y)
}

// Dist returns the Euclidean distance to another point.
func (v Vector2D) Dist(o Vector2D) float64 {
	return v.Sub(o).Mag()
}

// Normalize returns the unit vector, or the zero vector when degenerate.
func (v Vector2D) Normalize() Vector2D {
	m := v.Mag()
	if m == 0 {
		return Vector2D{}
	}
	return Vector2D{v.X / m, v.Y / m}
}

// repulsor is a point the cursor path is pushed away from, used to steer
// trajectories around regions such as overlays or sticky headers.
type repulsor struct {
	pos      Vector2D
	strength float64
	radius   float64
}

// PotentialField aggregates external forces acting on a trajectory.
type PotentialField struct {
	repulsors []repulsor
}

// NewPotentialField creates an empty field exerting no force.
func NewPotentialField() *PotentialField {
	return &PotentialField{}
}

// AddRepulsor adds a repulsive source with the given strength and falloff radius.
func (f *PotentialField) AddRepulsor(pos Vector2D, strength, radius float64) {
	f.repulsors = append(f.repulsors, repulsor{pos: pos, strength: strength, radius: radius})
}

// CalculateNetForce returns the sum of all repulsive forces at a position.
// Force decays linearly to zero at the repulsor's radius.
func (f *PotentialField) CalculateNetForce(pos Vector2D) Vector2D {
	var net Vector2D
	for _, r := range f.repulsors {
		away := pos.Sub(r.pos)
		d := away.Mag()
		if d >= r.radius || r.radius <= 0 {
			continue
		}
		if d < 1.0 {
			d = 1.0
		}
		falloff := 1.0 - d/r.radius
		net = net.Add(away.Normalize().Mul(r.strength * falloff))
	}
	return net
}

// InteractionOptions tunes a single interaction.
type InteractionOptions struct {
	// EnsureVisible controls pre-interaction scrolling. Nil means true.
	EnsureVisible *bool
	// Field adds external forces to the movement trajectory.
	Field *PotentialField
}
