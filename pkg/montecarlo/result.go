package montecarlo

import (
	"math"
	"time"

	"photonpath/internal/models"
)

// Result is the immutable outcome of a simulation run. All energies are
// normalized by the number of launched photons.
type Result struct {
	// RunID uniquely identifies the run
	RunID string

	// Seed is the master seed the worker streams were derived from
	Seed    uint64
	Workers int

	Photons    int
	Wavelength float64
	Geometry   string
	Layers     []models.LayerSpec

	// Reflectance is the total reflectance, specular part included
	Reflectance float64

	// SpecularReflectance is the part reflected at the surface on launch
	SpecularReflectance float64

	// DiffuseReflectance is the part escaping through the surface after
	// entering the tissue
	DiffuseReflectance float64

	Transmittance      float64
	AbsorptionFraction float64

	// Standard errors of the mean of the per-packet estimates
	ReflectanceStdErr   float64
	TransmittanceStdErr float64

	// DepthBins and RadiusBins are the bin centers in mm
	DepthBins  []float64
	RadiusBins []float64

	// FluenceZ is deposited energy per mm of depth per photon
	FluenceZ []float64

	// FluenceRZ is deposited energy per mm^3 per photon indexed [radius][depth]
	FluenceRZ [][]float64

	PenetrationDepth1e   float64
	PenetrationDepth1e2  float64
	EffectiveAttenuation float64
	AttenuationFitR2     float64

	// LowConfidence is set when the attenuation fit had too few points
	LowConfidence bool

	// MeanScatters is the average number of scattering events per packet
	MeanScatters float64

	// CapHits counts packets that reached the per-packet step cap
	CapHits int

	// Degenerate is set when most packets hit the step cap
	Degenerate bool

	// Fates counts packets per terminal state
	Fates map[string]int

	Warnings []string

	Elapsed          time.Duration
	PhotonsPerSecond float64
}

// EnergyBalance returns reflectance + transmittance + absorbed fraction,
// which should be close to 1
func (r *Result) EnergyBalance() float64 {
	return r.Reflectance + r.Transmittance + r.AbsorptionFraction
}

// Summary is the serializable view of a result
type Summary struct {
	RunID       string             `json:"run_id"`
	Input       SummaryInput       `json:"input"`
	Output      SummaryOutput      `json:"output"`
	Fluence     SummaryFluence     `json:"fluence"`
	Performance SummaryPerformance `json:"performance"`
	Warnings    []string           `json:"warnings,omitempty"`
}

type SummaryInput struct {
	Photons    int            `json:"n_photons"`
	Wavelength float64        `json:"wavelength"`
	Layers     []SummaryLayer `json:"layers"`
	Geometry   string         `json:"geometry"`
	Seed       uint64         `json:"seed"`
	Workers    int            `json:"workers"`
}

// SummaryLayer mirrors models.LayerSpec with the thickness as "inf" for a
// semi-infinite layer, which JSON cannot represent as a number
type SummaryLayer struct {
	Name      string      `json:"name"`
	Thickness interface{} `json:"thickness"`
	MuA       float64     `json:"mu_a"`
	MuS       float64     `json:"mu_s"`
	G         float64     `json:"g"`
	N         float64     `json:"n"`
}

type SummaryOutput struct {
	Reflectance          float64        `json:"reflectance"`
	SpecularReflectance  float64        `json:"specular_reflectance"`
	DiffuseReflectance   float64        `json:"diffuse_reflectance"`
	Transmittance        float64        `json:"transmittance"`
	AbsorptionFraction   float64        `json:"absorption_fraction"`
	ReflectanceStdErr    float64        `json:"reflectance_stderr"`
	TransmittanceStdErr  float64        `json:"transmittance_stderr"`
	PenetrationDepth1e   float64        `json:"penetration_depth_1e_mm"`
	PenetrationDepth1e2  float64        `json:"penetration_depth_1e2_mm"`
	EffectiveAttenuation float64        `json:"effective_attenuation_mm-1"`
	AttenuationFitR2     float64        `json:"effective_attenuation_r2"`
	LowConfidence        bool           `json:"low_confidence"`
	MeanScatters         float64        `json:"mean_scatters"`
	CapHits              int            `json:"cap_hits"`
	Degenerate           bool           `json:"degenerate"`
	Fates                map[string]int `json:"fates"`
}

type SummaryFluence struct {
	Z         []float64   `json:"z_mm"`
	FluenceZ  []float64   `json:"fluence_z"`
	R         []float64   `json:"r_mm"`
	FluenceRZ [][]float64 `json:"fluence_rz"`
}

type SummaryPerformance struct {
	SimulationTime   float64 `json:"simulation_time_s"`
	PhotonsPerSecond float64 `json:"photons_per_second"`
}

// Summary returns the result laid out as input / output / fluence /
// performance sections
func (r *Result) Summary() Summary {
	layers := make([]SummaryLayer, len(r.Layers))
	for i, l := range r.Layers {
		var thickness interface{} = l.Thickness
		if math.IsInf(l.Thickness, 1) {
			thickness = "inf"
		}
		layers[i] = SummaryLayer{
			Name:      l.Name,
			Thickness: thickness,
			MuA:       l.MuA,
			MuS:       l.MuS,
			G:         l.G,
			N:         l.N,
		}
	}

	return Summary{
		RunID: r.RunID,
		Input: SummaryInput{
			Photons:    r.Photons,
			Wavelength: r.Wavelength,
			Layers:     layers,
			Geometry:   r.Geometry,
			Seed:       r.Seed,
			Workers:    r.Workers,
		},
		Output: SummaryOutput{
			Reflectance:          r.Reflectance,
			SpecularReflectance:  r.SpecularReflectance,
			DiffuseReflectance:   r.DiffuseReflectance,
			Transmittance:        r.Transmittance,
			AbsorptionFraction:   r.AbsorptionFraction,
			ReflectanceStdErr:    r.ReflectanceStdErr,
			TransmittanceStdErr:  r.TransmittanceStdErr,
			PenetrationDepth1e:   r.PenetrationDepth1e,
			PenetrationDepth1e2:  r.PenetrationDepth1e2,
			EffectiveAttenuation: r.EffectiveAttenuation,
			AttenuationFitR2:     r.AttenuationFitR2,
			LowConfidence:        r.LowConfidence,
			MeanScatters:         r.MeanScatters,
			CapHits:              r.CapHits,
			Degenerate:           r.Degenerate,
			Fates:                r.Fates,
		},
		Fluence: SummaryFluence{
			Z:         r.DepthBins,
			FluenceZ:  r.FluenceZ,
			R:         r.RadiusBins,
			FluenceRZ: r.FluenceRZ,
		},
		Performance: SummaryPerformance{
			SimulationTime:   r.Elapsed.Seconds(),
			PhotonsPerSecond: r.PhotonsPerSecond,
		},
		Warnings: r.Warnings,
	}
}
