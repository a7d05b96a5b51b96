package montecarlo

import (
	"math"

	"golang.org/x/exp/rand"
)

const (
	// isotropicG is the |g| below which scattering is sampled as isotropic
	isotropicG = 1e-6

	// cosVertical is the |uz| above which a direction is treated as parallel
	// to the z-axis during rotation
	cosVertical = 0.99999
)

// Direction is a unit vector of direction cosines
type Direction struct {
	X, Y, Z float64
}

// Len returns the Euclidean length of the direction
func (d Direction) Len() float64 {
	return math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
}

// Normalize returns a unit-length copy. A zero vector is returned unchanged.
func (d Direction) Normalize() Direction {
	l := d.Len()
	if l == 0 {
		return d
	}
	return Direction{d.X / l, d.Y / l, d.Z / l}
}

// SampleCosTheta converts a uniform draw u in [0,1) into the cosine of a
// Henyey-Greenstein deflection angle for anisotropy g
func SampleCosTheta(g, u float64) float64 {
	if math.Abs(g) < isotropicG {
		return 2*u - 1
	}

	temp := (1 - g*g) / (1 - g + 2*g*u)
	cosTheta := (1 + g*g - temp*temp) / (2 * g)

	// rounding can push the result a hair outside [-1, 1] for |g| close to 1
	switch {
	case cosTheta > 1:
		return 1
	case cosTheta < -1:
		return -1
	}
	return cosTheta
}

// Rotate turns d by the polar angle theta (given by its cosine) and the
// azimuth phi, returning a unit vector
func Rotate(d Direction, cosTheta, phi float64) Direction {
	sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))
	sinPhi, cosPhi := math.Sincos(phi)

	var out Direction
	if math.Abs(d.Z) > cosVertical {
		out = Direction{
			X: sinTheta * cosPhi,
			Y: sinTheta * sinPhi,
			Z: math.Copysign(cosTheta, d.Z),
		}
	} else {
		temp := math.Sqrt(1 - d.Z*d.Z)
		out = Direction{
			X: sinTheta*(d.X*d.Z*cosPhi-d.Y*sinPhi)/temp + d.X*cosTheta,
			Y: sinTheta*(d.Y*d.Z*cosPhi+d.X*sinPhi)/temp + d.Y*cosTheta,
			Z: -sinTheta*cosPhi*temp + d.Z*cosTheta,
		}
	}

	return out.Normalize()
}

// Scatter samples a new propagation direction after a scattering event in a
// medium of anisotropy g. It consumes two uniform draws: one for the
// deflection and one for the azimuth.
func Scatter(d Direction, g float64, rng *rand.Rand) Direction {
	cosTheta := SampleCosTheta(g, rng.Float64())
	phi := 2 * math.Pi * rng.Float64()
	return Rotate(d, cosTheta, phi)
}
