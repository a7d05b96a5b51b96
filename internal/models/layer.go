package models

import (
	"math"
)

// LayerSpec describes one planar slab of homogeneous tissue as supplied by
// the caller before a simulation run
type LayerSpec struct {
	// Name is a free-form label (e.g. "dermis")
	Name string `yaml:"name" json:"name"`

	// Thickness of the slab in mm. +Inf marks a semi-infinite bottom layer
	// and is only allowed for the last layer of a stack.
	Thickness float64 `yaml:"thickness" json:"thickness"`

	// N is the refractive index of the slab
	N float64 `yaml:"n" json:"n"`

	// MuA is the absorption coefficient in mm^-1
	MuA float64 `yaml:"muA" json:"mu_a"`

	// MuS is the scattering coefficient in mm^-1
	MuS float64 `yaml:"muS" json:"mu_s"`

	// G is the scattering anisotropy (mean cosine of the deflection angle)
	G float64 `yaml:"g" json:"g"`
}

// MuT returns the total attenuation coefficient
func (l LayerSpec) MuT() float64 {
	return l.MuA + l.MuS
}

// Albedo returns the single-scattering albedo, 0 for a transparent slab
func (l LayerSpec) Albedo() float64 {
	if mt := l.MuT(); mt > 0 {
		return l.MuS / mt
	}
	return 0
}

// ReducedScattering returns mu_s' = mu_s * (1 - g)
func (l LayerSpec) ReducedScattering() float64 {
	return l.MuS * (1 - l.G)
}

// SemiInfinite reports whether the slab extends to infinite depth
func (l LayerSpec) SemiInfinite() bool {
	return math.IsInf(l.Thickness, 1)
}

// OpticalProperties is the tuple a tissue database returns for one tissue at
// one wavelength
type OpticalProperties struct {
	// TissueID is the database key the properties were looked up with
	TissueID string `json:"tissue_id"`

	// TissueName is the human readable tissue name
	TissueName string `json:"tissue_name"`

	// Wavelength in nm
	Wavelength float64 `json:"wavelength"`

	// N is the refractive index
	N float64 `json:"n"`

	// MuA is the absorption coefficient in mm^-1
	MuA float64 `json:"mu_a"`

	// MuSPrime is the reduced scattering coefficient in mm^-1
	MuSPrime float64 `json:"mu_s_prime"`

	// MuS is the scattering coefficient derived from MuSPrime and G
	MuS float64 `json:"mu_s"`

	// G is the anisotropy factor
	G float64 `json:"g"`

	// PenetrationDepth is the diffusion-theory 1/e depth in mm
	PenetrationDepth float64 `json:"penetration_depth_mm"`

	// Extrapolated is set when the wavelength lies outside the tabulated range
	Extrapolated bool `json:"extrapolated"`
}

// Layer builds a layer specification of the given thickness from the
// properties
func (p OpticalProperties) Layer(name string, thickness float64) LayerSpec {
	if name == "" {
		name = p.TissueName
	}
	return LayerSpec{
		Name:      name,
		Thickness: thickness,
		N:         p.N,
		MuA:       p.MuA,
		MuS:       p.MuS,
		G:         p.G,
	}
}
