package montecarlo

import (
	"math"
)

// State is the position of a photon packet in the trace state machine
type State int

const (
	SurfaceEntry State = iota
	Propagating
	AbsorbedTerminal
	EscapedTop
	EscapedBottom
	RouletteKilled
	CapExceeded
)

var stateNames = [...]string{
	SurfaceEntry:     "surface_entry",
	Propagating:      "propagating",
	AbsorbedTerminal: "absorbed",
	EscapedTop:       "escaped_top",
	EscapedBottom:    "escaped_bottom",
	RouletteKilled:   "roulette_killed",
	CapExceeded:      "cap_exceeded",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether the state ends a trace
func (s State) Terminal() bool {
	return s >= AbsorbedTerminal
}

// Photon is one packet of photon energy following a single stochastic
// trajectory. It is a plain value owned by exactly one tracer.
type Photon struct {
	// Position in mm; z is depth below the surface
	X, Y, Z float64

	// Dir is the unit propagation direction
	Dir Direction

	// Weight is the fraction of the launched energy still carried
	Weight float64

	// Layer is the index of the layer the packet is travelling in
	Layer int

	Alive    bool
	Scatters int
	State    State
}

// newPhoton returns a packet at the origin heading straight down
func newPhoton() Photon {
	return Photon{
		Dir:    Direction{0, 0, 1},
		Weight: 1,
		Alive:  true,
		State:  SurfaceEntry,
	}
}

// move advances the packet by s mm along its direction
func (p *Photon) move(s float64) {
	p.X += s * p.Dir.X
	p.Y += s * p.Dir.Y
	p.Z += s * p.Dir.Z
}

// Radius returns the lateral distance from the beam axis
func (p *Photon) Radius() float64 {
	return math.Hypot(p.X, p.Y)
}

// terminate marks the packet dead in the given state
func (p *Photon) terminate(s State) {
	p.Alive = false
	p.Weight = 0
	p.State = s
}

// refract bends the direction when the packet is transmitted from index n1
// into n2 through a plane of constant z
func (p *Photon) refract(n1, n2 float64) {
	if n1 == n2 {
		return
	}
	ratio := n1 / n2
	sin2 := ratio * ratio * (1 - p.Dir.Z*p.Dir.Z)
	cosT := math.Sqrt(math.Max(0, 1-sin2))
	p.Dir = Direction{
		X: p.Dir.X * ratio,
		Y: p.Dir.Y * ratio,
		Z: math.Copysign(cosT, p.Dir.Z),
	}.Normalize()
}
