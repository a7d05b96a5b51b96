// Package montecarlo traces photon packets through a stack of planar
// absorbing and scattering layers and scores where their energy ends up:
// reflected, transmitted, or absorbed in a depth / radius grid.
package montecarlo

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"

	"photonpath/internal/logging"
	"photonpath/internal/models"
)

// PencilBeam is the only supported source geometry: a normally incident
// infinitely narrow beam at the origin
const PencilBeam = "pencil_beam"

// degenerateFraction is the fraction of capped packets above which a run is
// flagged degenerate
const degenerateFraction = 0.5

// cancelCheckInterval is the number of packets a worker traces between two
// context checks
const cancelCheckInterval = 64

var logger = logging.New("montecarlo")

// ProgressFunc receives the number of traced photons and the total. It may
// be called from several goroutines at once.
type ProgressFunc func(done, total int)

// Params holds the inputs of a simulation run
type Params struct {
	// Layers is the ordered layer stack, shallowest first
	Layers []models.LayerSpec

	// Photons is the number of packets to launch
	Photons int

	// AmbientIndex is the refractive index above the tissue; 0 means air (1.0)
	AmbientIndex float64

	// Binning is the spatial scoring grid
	Binning Binning

	// Workers is the number of goroutines tracing packets; 0 means one per CPU
	Workers int

	// Seed is the master seed; 0 picks one from the clock. The value used is
	// reported in the result.
	Seed uint64

	// MaxSteps is the per-packet step cap; 0 means DefaultMaxSteps
	MaxSteps int

	// Wavelength in nm, carried into the result as metadata
	Wavelength float64

	// Geometry is the source geometry; empty means PencilBeam
	Geometry string

	// Progress is called about every 1% of the run when set
	Progress ProgressFunc
}

// DefaultParams returns parameters for a 100000 photon pencil-beam run in air
// with the default scoring grid. Layers must still be provided.
func DefaultParams() *Params {
	return &Params{
		Photons:      100000,
		AmbientIndex: 1.0,
		Binning:      DefaultBinning(),
		Workers:      runtime.NumCPU(),
		MaxSteps:     DefaultMaxSteps,
		Wavelength:   630,
		Geometry:     PencilBeam,
	}
}

// Simulator runs photon transport over a validated layer stack
type Simulator struct {
	params   Params
	stack    *LayerStack
	nAmbient float64
	geometry string
	maxSteps int
}

// NewSimulator validates the parameters and builds the layer stack. All
// configuration errors are reported here, before any tracing.
func NewSimulator(params *Params) (*Simulator, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: nil parameters", ErrInvalidConfiguration)
	}
	if params.Photons <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPhotonCount, params.Photons)
	}

	stack, err := NewLayerStack(params.Layers)
	if err != nil {
		return nil, err
	}

	if err := params.Binning.Validate(); err != nil {
		return nil, err
	}

	nAmbient := params.AmbientIndex
	if nAmbient == 0 {
		nAmbient = 1.0
	}
	if !(nAmbient > 0) || math.IsInf(nAmbient, 0) {
		return nil, fmt.Errorf("%w: ambient refractive index %g", ErrInvalidOptics, params.AmbientIndex)
	}

	geometry := params.Geometry
	if geometry == "" {
		geometry = PencilBeam
	}
	if geometry != PencilBeam {
		return nil, fmt.Errorf("%w: unsupported source geometry %q", ErrInvalidConfiguration, params.Geometry)
	}

	if params.MaxSteps < 0 {
		return nil, fmt.Errorf("%w: negative step cap %d", ErrInvalidConfiguration, params.MaxSteps)
	}
	maxSteps := params.MaxSteps
	if maxSteps == 0 {
		maxSteps = DefaultMaxSteps
	}

	return &Simulator{
		params:   *params,
		stack:    stack,
		nAmbient: nAmbient,
		geometry: geometry,
		maxSteps: maxSteps,
	}, nil
}

// Stack returns the validated layer stack
func (s *Simulator) Stack() *LayerStack {
	return s.stack
}

// Run traces all photons and returns the aggregated result. Packets are
// split across workers, each with a private random stream and tally; the
// tallies are merged in worker order once every worker is done, so a fixed
// seed and worker count reproduce the same result. Cancelling ctx stops the
// workers between packets and returns ctx.Err().
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	photons := s.params.Photons

	workers := s.params.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > photons {
		workers = photons
	}

	seed := s.params.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	logger.Infof("tracing %d photons through %d layer(s) on %d worker(s), seed %d",
		photons, s.stack.Len(), workers, seed)

	startTime := time.Now()

	// Distribute photons evenly, spreading the remainder
	base, rem := photons/workers, photons%workers

	var (
		wg      sync.WaitGroup
		done    int64
		tallies = make([]*Tally, workers)
	)

	nextReport := int64(1)
	if photons >= 100 {
		nextReport = int64(photons / 100)
	}

	for w := 0; w < workers; w++ {
		n := base
		if w < rem {
			n++
		}

		wg.Add(1)
		go func(wid, n int) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(WorkerSeed(seed, wid)))
			tr := newTracer(s.stack, s.nAmbient, s.maxSteps, rng)
			tally := NewTally(s.params.Binning)

			for i := 0; i < n; i++ {
				if i%cancelCheckInterval == 0 && ctx.Err() != nil {
					return
				}

				res := tr.trace()
				tally.Add(res, tr.deposits)

				if s.params.Progress != nil {
					if fired := atomic.AddInt64(&done, 1); fired%nextReport == 0 {
						s.params.Progress(int(fired), photons)
					}
				}
			}

			tallies[wid] = tally
		}(w, n)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		logger.Warningf("run cancelled: %v", err)
		return nil, err
	}

	total := NewTally(s.params.Binning)
	for _, t := range tallies {
		total.Merge(t)
	}

	elapsed := time.Since(startTime)
	result := s.buildResult(total, seed, workers, elapsed)

	logger.Infof("done in %s (%.0f photons/s): R=%.4f T=%.4f A=%.4f",
		elapsed, result.PhotonsPerSecond, result.Reflectance, result.Transmittance, result.AbsorptionFraction)
	for _, w := range result.Warnings {
		logger.Warning(w)
	}

	return result, nil
}

// buildResult normalizes the merged tally and derives the depth metrics
func (s *Simulator) buildResult(total *Tally, seed uint64, workers int, elapsed time.Duration) *Result {
	grid := s.params.Binning
	n := float64(total.Photons)

	depths := grid.DepthCenters()
	fluenceZ := total.FluenceZ()
	d1e, d1e2 := PenetrationDepths(depths, fluenceZ, grid.MaxDepth)
	fit := EffectiveAttenuation(depths, fluenceZ)

	rz := total.FluenceRZ()
	fluenceRZ := make([][]float64, grid.RadiusBins)
	for ir := range fluenceRZ {
		fluenceRZ[ir] = append([]float64(nil), rz.RawRowView(ir)...)
	}

	fates := make(map[string]int, len(total.Fates))
	for st, c := range total.Fates {
		fates[st.String()] = c
	}

	res := &Result{
		RunID:                uuid.NewString(),
		Seed:                 seed,
		Workers:              workers,
		Photons:              total.Photons,
		Wavelength:           s.params.Wavelength,
		Geometry:             s.geometry,
		Layers:               s.stack.Specs(),
		Reflectance:          total.Reflected / n,
		SpecularReflectance:  total.Specular / n,
		DiffuseReflectance:   (total.Reflected - total.Specular) / n,
		Transmittance:        total.Transmitted / n,
		AbsorptionFraction:   total.Absorbed / n,
		ReflectanceStdErr:    standardError(total.Reflected, total.ReflectedSq, total.Photons),
		TransmittanceStdErr:  standardError(total.Transmitted, total.TransmittedSq, total.Photons),
		DepthBins:            depths,
		RadiusBins:           grid.RadiusCenters(),
		FluenceZ:             fluenceZ,
		FluenceRZ:            fluenceRZ,
		PenetrationDepth1e:   d1e,
		PenetrationDepth1e2:  d1e2,
		EffectiveAttenuation: fit.MuEff,
		AttenuationFitR2:     fit.R2,
		LowConfidence:        fit.LowConfidence,
		MeanScatters:         float64(total.Scatters) / n,
		CapHits:              total.CapHits,
		Fates:                fates,
		Elapsed:              elapsed,
	}

	if secs := elapsed.Seconds(); secs > 0 {
		res.PhotonsPerSecond = n / secs
	}

	if fit.LowConfidence {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"effective attenuation fit used %d bin(s), reported as 0 with low confidence", fit.Points))
	}
	if total.CapHits > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"%d of %d packets hit the %d step cap; their remaining weight was booked as absorbed",
			total.CapHits, total.Photons, s.maxSteps))
	}
	if float64(total.CapHits) > degenerateFraction*n {
		res.Degenerate = true
		res.Warnings = append(res.Warnings,
			"most packets hit the step cap: check the optical properties for near-zero attenuation")
	}

	return res
}

// WorkerSeed derives the seed of a worker's random stream from the master
// seed with SplitMix64, so streams are independent yet reproducible
func WorkerSeed(master uint64, worker int) uint64 {
	z := master + uint64(worker+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
