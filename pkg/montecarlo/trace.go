package montecarlo

import (
	"math"

	"golang.org/x/exp/rand"
)

const (
	// WeightThreshold is the packet weight below which Russian roulette is played
	WeightThreshold = 1e-4

	// RouletteChance is the survival probability of a roulette round
	RouletteChance = 0.1

	// DefaultMaxSteps is the per-packet iteration safety cap
	DefaultMaxSteps = 100000
)

// PacketResult is the terminal ledger of one photon packet. Reflected,
// Transmitted and Absorbed always add up to the launch weight of 1.
type PacketResult struct {
	// Reflected includes the specular part credited at the surface
	Reflected float64

	// Specular is the part of Reflected lost at the launch surface
	Specular float64

	Transmitted float64
	Absorbed    float64

	// Fate is the terminal state of the packet
	Fate State

	Steps    int
	Scatters int
}

// Total returns the sum of the three terminal credits
func (r PacketResult) Total() float64 {
	return r.Reflected + r.Transmitted + r.Absorbed
}

// deposit is one absorption event waiting to be scored
type deposit struct {
	z, r, w float64
}

// tracer propagates packets through a stack. It owns its random stream and
// its deposit buffer and must only be used by one goroutine.
type tracer struct {
	stack    *LayerStack
	nAmbient float64
	maxSteps int
	rng      *rand.Rand

	// deposits of the packet being traced, reused between packets
	deposits []deposit
}

func newTracer(stack *LayerStack, nAmbient float64, maxSteps int, rng *rand.Rand) *tracer {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &tracer{
		stack:    stack,
		nAmbient: nAmbient,
		maxSteps: maxSteps,
		rng:      rng,
		deposits: make([]deposit, 0, 256),
	}
}

// trace follows one packet from launch to termination. The absorption events
// of the packet are left in t.deposits.
func (t *tracer) trace() PacketResult {
	t.deposits = t.deposits[:0]

	var res PacketResult
	p := newPhoton()

	// Specular reflection at the ambient to tissue interface
	rsp := SpecularReflectance(t.nAmbient, t.stack.Layer(0).N)
	res.Specular = rsp
	res.Reflected = rsp
	p.Weight = 1 - rsp
	p.Layer = 0
	p.State = Propagating

	for res.Steps = 0; res.Steps < t.maxSteps; res.Steps++ {
		l := t.stack.Layer(p.Layer)
		muT := l.MuT()

		step := math.Inf(1)
		if muT > 0 {
			step = t.rng.ExpFloat64() / muT
		}

		boundary := math.Inf(1)
		switch {
		case p.Dir.Z > 0:
			boundary = (l.Bottom - p.Z) / p.Dir.Z
		case p.Dir.Z < 0:
			boundary = (l.Top - p.Z) / p.Dir.Z
		}

		if step < boundary {
			t.interact(&p, l, step, muT, &res)
		} else if math.IsInf(boundary, 1) {
			// No interaction and no boundary ahead: the packet leaves
			// through the bottom or the sides of the geometry.
			res.Transmitted += p.Weight
			p.terminate(EscapedBottom)
		} else {
			t.cross(&p, l, boundary, &res)
		}

		if !p.Alive {
			break
		}
		if p.Weight < WeightThreshold {
			t.roulette(&p, &res)
			if !p.Alive {
				break
			}
		}
	}

	if p.Alive {
		// The safety cap was hit: book the remaining weight as absorbed so
		// the ledger stays balanced, and flag the packet.
		res.Absorbed += p.Weight
		p.terminate(CapExceeded)
	}

	res.Fate = p.State
	res.Scatters = p.Scatters
	return res
}

// interact moves the packet to an interaction site inside layer l, deposits
// the absorbed fraction of its weight and scatters it
func (t *tracer) interact(p *Photon, l *Layer, step, muT float64, res *PacketResult) {
	p.move(step)

	dw := p.Weight * l.MuA / muT
	p.Weight -= dw
	res.Absorbed += dw
	if dw > 0 {
		t.deposits = append(t.deposits, deposit{z: p.Z, r: p.Radius(), w: dw})
	}

	if p.Weight <= 0 {
		p.terminate(AbsorbedTerminal)
		return
	}

	p.Dir = Scatter(p.Dir, l.G, t.rng)
	p.Scatters++
}

// cross moves the packet onto the boundary of layer l and resolves Fresnel
// reflection or transmission there
func (t *tracer) cross(p *Photon, l *Layer, dist float64, res *PacketResult) {
	down := p.Dir.Z > 0
	p.move(dist)
	if down {
		p.Z = l.Bottom
	} else {
		p.Z = l.Top
	}

	next := t.stack.Neighbor(p.Layer, down)
	n2 := t.nAmbient
	if next >= 0 {
		n2 = t.stack.Layer(next).N
	}

	r := FresnelReflectance(l.N, n2, math.Abs(p.Dir.Z))
	if t.rng.Float64() < r {
		p.Dir.Z = -p.Dir.Z
		return
	}

	switch {
	case next >= 0:
		p.refract(l.N, n2)
		p.Layer = next
	case down:
		res.Transmitted += p.Weight
		p.terminate(EscapedBottom)
	default:
		res.Reflected += p.Weight
		p.terminate(EscapedTop)
	}
}

// roulette plays one round of Russian roulette on a low-weight packet. A
// survivor's boost is taken from its absorbed ledger, so the ledger stays
// balanced and the expectation of every credit is unchanged.
func (t *tracer) roulette(p *Photon, res *PacketResult) {
	if t.rng.Float64() < RouletteChance {
		boosted := p.Weight / RouletteChance
		res.Absorbed -= boosted - p.Weight
		p.Weight = boosted
		return
	}
	res.Absorbed += p.Weight
	p.terminate(RouletteKilled)
}
