package montecarlo

import (
	"fmt"
	"math"
	"sort"

	"photonpath/internal/models"
)

// Layer is a validated slab of the stack with its z-boundaries resolved
type Layer struct {
	models.LayerSpec

	// Top and Bottom are the slab boundaries in mm. Bottom is +Inf for a
	// semi-infinite layer.
	Top    float64
	Bottom float64
}

// LayerStack is the ordered, contiguous set of layers a run traces through.
// It is built once before tracing and never modified afterwards.
type LayerStack struct {
	layers  []Layer
	bottoms []float64
}

// NewLayerStack validates the specifications and computes the boundaries of
// every layer by cumulative summation of thickness starting at z=0
func NewLayerStack(specs []models.LayerSpec) (*LayerStack, error) {
	if len(specs) == 0 {
		return nil, ErrNoLayers
	}

	s := &LayerStack{
		layers:  make([]Layer, len(specs)),
		bottoms: make([]float64, len(specs)),
	}

	z := 0.0
	for i, spec := range specs {
		if err := validateSpec(i, spec, i == len(specs)-1); err != nil {
			return nil, err
		}

		bottom := z + spec.Thickness
		if spec.SemiInfinite() {
			bottom = math.Inf(1)
		}
		if !(bottom > z) {
			return nil, fmt.Errorf("%w: layer %d (%s) boundaries do not advance (top=%g, bottom=%g)",
				ErrMalformedGeometry, i, spec.Name, z, bottom)
		}

		s.layers[i] = Layer{LayerSpec: spec, Top: z, Bottom: bottom}
		s.bottoms[i] = bottom
		z = bottom
	}

	return s, nil
}

func validateSpec(i int, spec models.LayerSpec, last bool) error {
	switch {
	case math.IsNaN(spec.Thickness) || spec.Thickness <= 0:
		return fmt.Errorf("%w: layer %d (%s) has thickness %g",
			ErrMalformedGeometry, i, spec.Name, spec.Thickness)
	case spec.SemiInfinite() && !last:
		return fmt.Errorf("%w: layer %d (%s) is semi-infinite but not the deepest layer",
			ErrMalformedGeometry, i, spec.Name)
	case !(spec.N > 0) || math.IsInf(spec.N, 0):
		return fmt.Errorf("%w: layer %d (%s) has refractive index %g",
			ErrInvalidOptics, i, spec.Name, spec.N)
	case !(spec.MuA >= 0) || math.IsInf(spec.MuA, 0):
		return fmt.Errorf("%w: layer %d (%s) has mu_a %g",
			ErrInvalidOptics, i, spec.Name, spec.MuA)
	case !(spec.MuS >= 0) || math.IsInf(spec.MuS, 0):
		return fmt.Errorf("%w: layer %d (%s) has mu_s %g",
			ErrInvalidOptics, i, spec.Name, spec.MuS)
	case !(spec.G >= -1 && spec.G <= 1):
		return fmt.Errorf("%w: layer %d (%s) has anisotropy %g outside [-1, 1]",
			ErrInvalidOptics, i, spec.Name, spec.G)
	}
	return nil
}

// Len returns the number of layers
func (s *LayerStack) Len() int {
	return len(s.layers)
}

// Layer returns the i-th layer
func (s *LayerStack) Layer(i int) *Layer {
	return &s.layers[i]
}

// Layers returns a copy of the resolved layers
func (s *LayerStack) Layers() []Layer {
	out := make([]Layer, len(s.layers))
	copy(out, s.layers)
	return out
}

// Specs returns the layer specifications the stack was built from
func (s *LayerStack) Specs() []models.LayerSpec {
	out := make([]models.LayerSpec, len(s.layers))
	for i, l := range s.layers {
		out[i] = l.LayerSpec
	}
	return out
}

// Depth returns the bottom of the stack, +Inf when the last layer is
// semi-infinite
func (s *LayerStack) Depth() float64 {
	return s.bottoms[len(s.bottoms)-1]
}

// LayerAt returns the index of the layer owning depth z, or -1 when z lies
// outside the stack. A layer owns z in [top, bottom).
func (s *LayerStack) LayerAt(z float64) int {
	if z < 0 || math.IsNaN(z) {
		return -1
	}
	i := sort.Search(len(s.bottoms), func(i int) bool { return s.bottoms[i] > z })
	if i == len(s.bottoms) {
		return -1
	}
	return i
}

// Neighbor returns the index of the layer across the boundary crossed when
// leaving layer i downwards (down=true) or upwards, or -1 when that boundary
// is the surface or the bottom of the stack
func (s *LayerStack) Neighbor(i int, down bool) int {
	if down {
		if i+1 < len(s.layers) {
			return i + 1
		}
		return -1
	}
	return i - 1
}
