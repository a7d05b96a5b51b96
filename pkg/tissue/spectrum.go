package tissue

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"photonpath/internal/models"
)

// Objective selects what OptimalWavelength optimizes
type Objective string

const (
	MaxPenetration Objective = "max_penetration"
	MinAbsorption  Objective = "min_absorption"
	MinScattering  Objective = "min_scattering"
)

// spectrumStep is the wavelength step of an optimization sweep in nm
const spectrumStep = 5

// Spectrum evaluates a tissue at each of the given wavelengths. Wavelengths
// outside the table are clamped without a warning per sample.
func (db *Database) Spectrum(id string, wavelengths []float64) ([]models.OpticalProperties, error) {
	e, err := db.lookup(id)
	if err != nil {
		return nil, err
	}

	out := make([]models.OpticalProperties, len(wavelengths))
	for i, wl := range wavelengths {
		if math.IsNaN(wl) || wl <= 0 {
			return nil, fmt.Errorf("invalid wavelength %g nm", wl)
		}
		out[i] = e.at(wl)
	}
	return out, nil
}

// Compare returns the properties of several tissues at one wavelength
func (db *Database) Compare(ids []string, wavelength float64) (map[string]models.OpticalProperties, error) {
	out := make(map[string]models.OpticalProperties, len(ids))
	for _, id := range ids {
		props, err := db.Properties(id, wavelength)
		if err != nil {
			return nil, err
		}
		out[id] = props
	}
	return out, nil
}

// OptimalWavelength sweeps [from, to] nm in 5 nm steps and returns the
// wavelength that best meets the objective, with the optimized value
func (db *Database) OptimalWavelength(id string, objective Objective, from, to float64) (float64, float64, error) {
	if !(from > 0) || to < from {
		return 0, 0, fmt.Errorf("invalid wavelength range %g-%g nm", from, to)
	}

	var wavelengths []float64
	for wl := from; wl <= to; wl += spectrumStep {
		wavelengths = append(wavelengths, wl)
	}

	spectrum, err := db.Spectrum(id, wavelengths)
	if err != nil {
		return 0, 0, err
	}

	values := make([]float64, len(spectrum))
	for i, p := range spectrum {
		switch objective {
		case MaxPenetration:
			values[i] = p.PenetrationDepth
		case MinAbsorption:
			values[i] = p.MuA
		case MinScattering:
			values[i] = p.MuSPrime
		default:
			return 0, 0, fmt.Errorf("unknown objective %q", objective)
		}
	}

	var idx int
	if objective == MaxPenetration {
		idx = floats.MaxIdx(values)
	} else {
		idx = floats.MinIdx(values)
	}
	return wavelengths[idx], values[idx], nil
}
