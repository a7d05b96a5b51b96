package montecarlo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Binning is the spatial scoring grid. Deposits deeper than MaxDepth or
// further from the axis than MaxRadius are not scored.
type Binning struct {
	DepthBins  int     `yaml:"depthBins" json:"depth_bins"`
	RadiusBins int     `yaml:"radiusBins" json:"radius_bins"`
	MaxDepth   float64 `yaml:"maxDepth" json:"max_depth_mm"`
	MaxRadius  float64 `yaml:"maxRadius" json:"max_radius_mm"`
}

// DefaultBinning returns a 200 x 100 grid covering 10 mm in depth and radius
func DefaultBinning() Binning {
	return Binning{
		DepthBins:  200,
		RadiusBins: 100,
		MaxDepth:   10,
		MaxRadius:  10,
	}
}

// Validate checks the grid dimensions
func (b Binning) Validate() error {
	if b.DepthBins <= 0 || b.RadiusBins <= 0 {
		return fmt.Errorf("%w: %d depth bins, %d radius bins", ErrInvalidBinning, b.DepthBins, b.RadiusBins)
	}
	if !(b.MaxDepth > 0) || !(b.MaxRadius > 0) || math.IsInf(b.MaxDepth, 0) || math.IsInf(b.MaxRadius, 0) {
		return fmt.Errorf("%w: max depth %g, max radius %g", ErrInvalidBinning, b.MaxDepth, b.MaxRadius)
	}
	return nil
}

// Dz returns the depth bin thickness
func (b Binning) Dz() float64 { return b.MaxDepth / float64(b.DepthBins) }

// Dr returns the radial bin width
func (b Binning) Dr() float64 { return b.MaxRadius / float64(b.RadiusBins) }

// DepthCenters returns the centers of the depth bins
func (b Binning) DepthCenters() []float64 {
	dz := b.Dz()
	out := make([]float64, b.DepthBins)
	for i := range out {
		out[i] = (float64(i) + 0.5) * dz
	}
	return out
}

// RadiusCenters returns the centers of the radial bins
func (b Binning) RadiusCenters() []float64 {
	dr := b.Dr()
	out := make([]float64, b.RadiusBins)
	for i := range out {
		out[i] = (float64(i) + 0.5) * dr
	}
	return out
}

// RingArea returns the area of the i-th radial ring
func (b Binning) RingArea(i int) float64 {
	dr := b.Dr()
	inner, outer := float64(i)*dr, float64(i+1)*dr
	return math.Pi * (outer*outer - inner*inner)
}

// Tally accumulates packet results. Each worker owns one; they are merged
// once all workers are done.
type Tally struct {
	grid Binning
	dz   float64
	dr   float64

	Photons int

	Reflected   float64
	Specular    float64
	Transmitted float64
	Absorbed    float64

	// per-packet second moments for the standard errors
	ReflectedSq   float64
	TransmittedSq float64

	Scatters int64
	CapHits  int

	// Fates counts packets per terminal state
	Fates map[State]int

	// Depth holds raw weight per depth bin
	Depth []float64

	// radial is the row-major backing store of the radius x depth grid
	radial []float64
}

// NewTally allocates an empty tally for the grid
func NewTally(grid Binning) *Tally {
	return &Tally{
		grid:   grid,
		dz:     grid.Dz(),
		dr:     grid.Dr(),
		Fates:  make(map[State]int),
		Depth:  make([]float64, grid.DepthBins),
		radial: make([]float64, grid.RadiusBins*grid.DepthBins),
	}
}

// RadialDepth returns a radius x depth view of the raw radial grid. Writes
// through the view modify the tally.
func (t *Tally) RadialDepth() *mat.Dense {
	return mat.NewDense(t.grid.RadiusBins, t.grid.DepthBins, t.radial)
}

// Add scores one finished packet and its absorption events
func (t *Tally) Add(res PacketResult, deps []deposit) {
	t.Photons++
	t.Reflected += res.Reflected
	t.Specular += res.Specular
	t.Transmitted += res.Transmitted
	t.Absorbed += res.Absorbed
	t.ReflectedSq += res.Reflected * res.Reflected
	t.TransmittedSq += res.Transmitted * res.Transmitted
	t.Scatters += int64(res.Scatters)
	t.Fates[res.Fate]++
	if res.Fate == CapExceeded {
		t.CapHits++
	}

	nz, nr := t.grid.DepthBins, t.grid.RadiusBins
	for _, d := range deps {
		iz := int(d.z / t.dz)
		if iz < 0 || iz >= nz {
			continue
		}
		t.Depth[iz] += d.w

		ir := int(d.r / t.dr)
		if ir < nr {
			t.radial[ir*nz+iz] += d.w
		}
	}
}

// Merge adds the contents of o into t. Both tallies must share a grid.
func (t *Tally) Merge(o *Tally) {
	t.Photons += o.Photons
	t.Reflected += o.Reflected
	t.Specular += o.Specular
	t.Transmitted += o.Transmitted
	t.Absorbed += o.Absorbed
	t.ReflectedSq += o.ReflectedSq
	t.TransmittedSq += o.TransmittedSq
	t.Scatters += o.Scatters
	t.CapHits += o.CapHits
	for s, n := range o.Fates {
		t.Fates[s] += n
	}

	floats.Add(t.Depth, o.Depth)
	rz := t.RadialDepth()
	rz.Add(rz, o.RadialDepth())
}

// FluenceZ returns the depth profile normalized per launched photon and per
// mm of depth
func (t *Tally) FluenceZ() []float64 {
	out := make([]float64, len(t.Depth))
	if t.Photons == 0 {
		return out
	}
	copy(out, t.Depth)
	floats.Scale(1/(float64(t.Photons)*t.dz), out)
	return out
}

// FluenceRZ returns the radius x depth grid normalized per launched photon
// and per unit volume of each ring
func (t *Tally) FluenceRZ() *mat.Dense {
	out := mat.DenseCopyOf(t.RadialDepth())
	if t.Photons == 0 {
		out.Zero()
		return out
	}
	n := float64(t.Photons)
	for ir := 0; ir < t.grid.RadiusBins; ir++ {
		row := out.RawRowView(ir)
		floats.Scale(1/(n*t.grid.RingArea(ir)*t.dz), row)
	}
	return out
}
