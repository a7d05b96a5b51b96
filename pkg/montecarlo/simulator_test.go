package montecarlo

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"photonpath/internal/models"
)

func grayMatter() []models.LayerSpec {
	return []models.LayerSpec{
		{Name: "gray_matter", Thickness: math.Inf(1), N: 1.37, MuA: 0.025, MuS: 18.3, G: 0.9},
	}
}

func newTestParams(layers []models.LayerSpec, photons int) *Params {
	params := DefaultParams()
	params.Layers = layers
	params.Photons = photons
	params.Seed = 42
	params.Workers = 4
	return params
}

func runSimulation(t *testing.T, params *Params) *Result {
	t.Helper()
	sim, err := NewSimulator(params)
	if err != nil {
		t.Fatalf("Failed to create simulator: %v", err)
	}
	result, err := sim.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return result
}

func TestNewSimulatorErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Params)
		target error
	}{
		{"zero photons", func(p *Params) { p.Photons = 0 }, ErrInvalidPhotonCount},
		{"negative photons", func(p *Params) { p.Photons = -5 }, ErrInvalidPhotonCount},
		{"no layers", func(p *Params) { p.Layers = nil }, ErrNoLayers},
		{"bad binning", func(p *Params) { p.Binning.DepthBins = 0 }, ErrInvalidBinning},
		{"bad ambient index", func(p *Params) { p.AmbientIndex = -1 }, ErrInvalidOptics},
		{"bad geometry", func(p *Params) { p.Geometry = "gaussian" }, ErrInvalidConfiguration},
		{"negative step cap", func(p *Params) { p.MaxSteps = -1 }, ErrInvalidConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := newTestParams(grayMatter(), 100)
			tt.modify(params)
			_, err := NewSimulator(params)
			if !errors.Is(err, tt.target) {
				t.Errorf("Expected %v, got %v", tt.target, err)
			}
		})
	}

	if _, err := NewSimulator(nil); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("Expected ErrInvalidConfiguration for nil params, got %v", err)
	}
	// the photon count error is not a configuration error
	if _, err := NewSimulator(newTestParams(grayMatter(), 0)); errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("Photon count error should not wrap ErrInvalidConfiguration")
	}
}

// TestGrayMatterScenario runs a brain-like semi-infinite medium and checks
// the results against order of magnitude bounds
func TestGrayMatterScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping long simulation in short mode")
	}

	result := runSimulation(t, newTestParams(grayMatter(), 20000))

	if math.Abs(result.EnergyBalance()-1) > 1e-9 {
		t.Errorf("Energy not conserved: %g", result.EnergyBalance())
	}
	if result.Transmittance != 0 {
		t.Errorf("Expected no transmission through a semi-infinite medium, got %g", result.Transmittance)
	}

	specular := math.Pow(0.37/2.37, 2)
	if math.Abs(result.SpecularReflectance-specular) > 1e-12 {
		t.Errorf("Expected specular reflectance %g, got %g", specular, result.SpecularReflectance)
	}
	if result.DiffuseReflectance < 0.3 || result.DiffuseReflectance > 0.75 {
		t.Errorf("Diffuse reflectance %g outside plausible range", result.DiffuseReflectance)
	}
	if result.PenetrationDepth1e < 1 || result.PenetrationDepth1e > 6 {
		t.Errorf("1/e penetration depth %g mm outside plausible range", result.PenetrationDepth1e)
	}
	if result.PenetrationDepth1e2 < result.PenetrationDepth1e {
		t.Errorf("1/e^2 depth %g shallower than 1/e depth %g", result.PenetrationDepth1e2, result.PenetrationDepth1e)
	}
	if result.EffectiveAttenuation <= 0 {
		t.Errorf("Expected a positive effective attenuation, got %g", result.EffectiveAttenuation)
	}
	if result.MeanScatters < 10 {
		t.Errorf("Expected many scattering events per packet, got %g", result.MeanScatters)
	}
	if result.CapHits != 0 || result.Degenerate {
		t.Errorf("Unexpected cap hits: %d", result.CapHits)
	}
}

// TestTransparentMedium checks the only two exact outcomes of a medium
// without interactions
func TestTransparentMedium(t *testing.T) {
	layers := []models.LayerSpec{{Name: "clear", Thickness: math.Inf(1), N: 1.37}}
	result := runSimulation(t, newTestParams(layers, 1000))

	r := math.Pow(0.37/2.37, 2)
	if math.Abs(result.Reflectance-r) > 1e-12 {
		t.Errorf("Expected reflectance %g, got %g", r, result.Reflectance)
	}
	if math.Abs(result.Transmittance-(1-r)) > 1e-12 {
		t.Errorf("Expected transmittance %g, got %g", 1-r, result.Transmittance)
	}
	if result.AbsorptionFraction != 0 {
		t.Errorf("Expected no absorption, got %g", result.AbsorptionFraction)
	}
	if !result.LowConfidence || result.EffectiveAttenuation != 0 {
		t.Errorf("Expected a low confidence fit without deposits, got %g", result.EffectiveAttenuation)
	}
	if result.PenetrationDepth1e != 0 || result.PenetrationDepth1e2 != 0 {
		t.Errorf("Expected zero penetration depths without deposits")
	}
	if len(result.Warnings) == 0 {
		t.Error("Expected a low confidence warning")
	}
	if result.Fates[EscapedBottom.String()] != 1000 {
		t.Errorf("Expected every packet to escape through the bottom, got %v", result.Fates)
	}

	noMismatch := []models.LayerSpec{{Name: "void", Thickness: math.Inf(1), N: 1}}
	result = runSimulation(t, newTestParams(noMismatch, 100))
	if result.Transmittance != 1 {
		t.Errorf("Expected full transmission, got %g", result.Transmittance)
	}
}

func TestPureAbsorber(t *testing.T) {
	layers := []models.LayerSpec{{Name: "ink", Thickness: math.Inf(1), N: 1, MuA: 10}}
	result := runSimulation(t, newTestParams(layers, 20000))

	if math.Abs(result.AbsorptionFraction-1) > 1e-12 {
		t.Errorf("Expected full absorption, got %g", result.AbsorptionFraction)
	}
	if result.PenetrationDepth1e < 0.1 || result.PenetrationDepth1e > 0.2 {
		t.Errorf("Expected 1/e depth near 0.1 mm, got %g", result.PenetrationDepth1e)
	}
	if result.MeanScatters != 0 {
		t.Errorf("Expected no scattering, got %g", result.MeanScatters)
	}
}

// TestRunIsReproducible verifies that a fixed seed and worker count give
// identical results
func TestRunIsReproducible(t *testing.T) {
	layers := []models.LayerSpec{{Name: "tissue", Thickness: 2, N: 1.4, MuA: 0.5, MuS: 10, G: 0.8}}

	a := runSimulation(t, newTestParams(layers, 3000))
	b := runSimulation(t, newTestParams(layers, 3000))

	if a.Reflectance != b.Reflectance || a.Transmittance != b.Transmittance || a.AbsorptionFraction != b.AbsorptionFraction {
		t.Errorf("Results differ: R %g/%g T %g/%g", a.Reflectance, b.Reflectance, a.Transmittance, b.Transmittance)
	}
	for i := range a.FluenceZ {
		if a.FluenceZ[i] != b.FluenceZ[i] {
			t.Fatalf("Fluence differs in bin %d", i)
		}
	}
	if a.RunID == b.RunID {
		t.Error("Expected distinct run identifiers")
	}

	params := newTestParams(layers, 3000)
	params.Seed = 43
	c := runSimulation(t, params)
	if c.Reflectance == a.Reflectance {
		t.Error("Expected a different seed to change the result")
	}
}

// TestStandardErrorScaling verifies the reflectance standard error shrinks as
// 1/sqrt(N)
func TestStandardErrorScaling(t *testing.T) {
	layers := []models.LayerSpec{{Name: "tissue", Thickness: math.Inf(1), N: 1.4, MuA: 1, MuS: 5, G: 0.5}}

	small := runSimulation(t, newTestParams(layers, 2000))
	large := runSimulation(t, newTestParams(layers, 8000))

	if small.ReflectanceStdErr <= 0 {
		t.Fatalf("Expected a positive standard error, got %g", small.ReflectanceStdErr)
	}
	ratio := small.ReflectanceStdErr / large.ReflectanceStdErr
	if ratio < 1.6 || ratio > 2.5 {
		t.Errorf("Expected standard error ratio near 2, got %g", ratio)
	}
}

func TestDegenerateRun(t *testing.T) {
	layers := []models.LayerSpec{{Name: "fog", Thickness: math.Inf(1), N: 1, MuS: 100, G: 0.9}}
	params := newTestParams(layers, 200)
	params.MaxSteps = 5

	result := runSimulation(t, params)
	if !result.Degenerate {
		t.Errorf("Expected a degenerate run, got %d cap hits", result.CapHits)
	}
	if math.Abs(result.EnergyBalance()-1) > 1e-9 {
		t.Errorf("Energy not conserved: %g", result.EnergyBalance())
	}

	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "step cap") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a step cap warning, got %v", result.Warnings)
	}
}

func TestRunCancelled(t *testing.T) {
	sim, err := NewSimulator(newTestParams(grayMatter(), 100000))
	if err != nil {
		t.Fatalf("Failed to create simulator: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := sim.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRunProgressAndWorkers(t *testing.T) {
	layers := []models.LayerSpec{{Name: "tissue", Thickness: 1, N: 1.4, MuA: 1, MuS: 5, G: 0.5}}

	var (
		mu    sync.Mutex
		calls int
		last  int
	)
	params := newTestParams(layers, 1000)
	params.Progress = func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if done > last {
			last = done
		}
		if total != 1000 {
			t.Errorf("Expected total 1000, got %d", total)
		}
	}

	result := runSimulation(t, params)
	if calls == 0 || last != 1000 {
		t.Errorf("Expected progress up to 1000, got %d calls ending at %d", calls, last)
	}
	if result.Photons != 1000 {
		t.Errorf("Expected 1000 photons, got %d", result.Photons)
	}

	// never more workers than photons
	params = newTestParams(layers, 3)
	params.Workers = 16
	if result := runSimulation(t, params); result.Workers != 3 || result.Photons != 3 {
		t.Errorf("Expected 3 workers for 3 photons, got %d workers", result.Workers)
	}
}

func TestWorkerSeed(t *testing.T) {
	seen := make(map[uint64]bool)
	for w := 0; w < 64; w++ {
		s := WorkerSeed(42, w)
		if seen[s] {
			t.Fatalf("Duplicate seed for worker %d", w)
		}
		seen[s] = true
	}
	if WorkerSeed(42, 3) != WorkerSeed(42, 3) {
		t.Error("WorkerSeed is not deterministic")
	}
}

func TestResultSummary(t *testing.T) {
	layers := []models.LayerSpec{
		{Name: "top", Thickness: 0.5, N: 1.4, MuA: 0.2, MuS: 10, G: 0.8},
		{Name: "bottom", Thickness: math.Inf(1), N: 1.4, MuA: 0.1, MuS: 10, G: 0.8},
	}
	params := newTestParams(layers, 500)
	params.Binning = Binning{DepthBins: 20, RadiusBins: 10, MaxDepth: 2, MaxRadius: 2}
	result := runSimulation(t, params)

	data, err := json.Marshal(result.Summary())
	if err != nil {
		t.Fatalf("Failed to marshal summary: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to decode summary: %v", err)
	}
	for _, key := range []string{"run_id", "input", "output", "fluence", "performance"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("Missing %q section", key)
		}
	}

	summary := result.Summary()
	if summary.Input.Layers[1].Thickness != "inf" {
		t.Errorf("Expected semi-infinite thickness as \"inf\", got %v", summary.Input.Layers[1].Thickness)
	}
	if summary.Input.Layers[0].Thickness != 0.5 {
		t.Errorf("Expected thickness 0.5, got %v", summary.Input.Layers[0].Thickness)
	}
	if len(summary.Fluence.FluenceRZ) != 10 || len(summary.Fluence.FluenceRZ[0]) != 20 {
		t.Errorf("Unexpected radial fluence shape")
	}
}
