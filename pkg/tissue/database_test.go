package tissue

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func loadDefault(t *testing.T) *Database {
	t.Helper()
	db, err := Default()
	if err != nil {
		t.Fatalf("Failed to load the embedded table: %v", err)
	}
	return db
}

func TestDefaultDatabase(t *testing.T) {
	db := loadDefault(t)

	if n := len(db.List()); n != 8 {
		t.Errorf("Expected 8 tissues, got %d", n)
	}

	want := []string{"bone", "connective", "muscle", "neural", "skin"}
	if got := db.Categories(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected categories %v, got %v", want, got)
	}

	if got := db.ByCategory("skin"); !reflect.DeepEqual(got, []string{"skin_epidermis", "skin_dermis"}) {
		t.Errorf("Unexpected skin tissues %v", got)
	}
}

// TestPropertiesAtTabulatedWavelength checks values are reproduced exactly at
// the table knots and derived quantities follow
func TestPropertiesAtTabulatedWavelength(t *testing.T) {
	db := loadDefault(t)

	p, err := db.Properties("brain_gray_matter", 630)
	if err != nil {
		t.Fatalf("Properties failed: %v", err)
	}

	checks := []struct {
		name      string
		got, want float64
	}{
		{"mu_a", p.MuA, 0.025},
		{"mu_s'", p.MuSPrime, 1.83},
		{"g", p.G, 0.9},
		{"mu_s", p.MuS, 18.3},
		{"n", p.N, 1.37},
		{"penetration", p.PenetrationDepth, 1 / math.Sqrt(3*0.025*(0.025+1.83))},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Errorf("%s: expected %g, got %g", c.name, c.want, c.got)
		}
	}

	if p.Extrapolated {
		t.Error("Tabulated wavelength flagged as extrapolated")
	}
	if p.TissueName != "Brain gray matter" || p.TissueID != "brain_gray_matter" {
		t.Errorf("Unexpected tissue labels %q / %q", p.TissueID, p.TissueName)
	}
}

func TestPropertiesInterpolation(t *testing.T) {
	db := loadDefault(t)

	p, err := db.Properties("brain_gray_matter", 645)
	if err != nil {
		t.Fatalf("Properties failed: %v", err)
	}
	if p.MuA < 0.020 || p.MuA > 0.025 {
		t.Errorf("Interpolated mu_a %g not between its neighbours", p.MuA)
	}
	if p.MuSPrime < 1.70 || p.MuSPrime > 1.83 {
		t.Errorf("Interpolated mu_s' %g not between its neighbours", p.MuSPrime)
	}
	if math.Abs(p.G-0.9) > 1e-12 {
		t.Errorf("Expected g 0.9, got %g", p.G)
	}

	// two samples only: linear in wavelength
	p, err = db.Properties("tumor_glioma", 715)
	if err != nil {
		t.Fatalf("Properties failed: %v", err)
	}
	if math.Abs(p.MuA-0.04) > 1e-12 || math.Abs(p.MuSPrime-1.05) > 1e-12 || math.Abs(p.G-0.885) > 1e-12 {
		t.Errorf("Unexpected linear interpolation: %+v", p)
	}
}

func TestPropertiesExtrapolation(t *testing.T) {
	db := loadDefault(t)

	low, err := db.Properties("brain_white_matter", 300)
	if err != nil {
		t.Fatalf("Properties failed: %v", err)
	}
	if !low.Extrapolated {
		t.Error("Expected the wavelength to be flagged as extrapolated")
	}
	if low.Wavelength != 300 {
		t.Errorf("Expected the requested wavelength to be reported, got %g", low.Wavelength)
	}
	if math.Abs(low.MuA-0.3) > 1e-12 || math.Abs(low.MuSPrime-9.5) > 1e-12 {
		t.Errorf("Expected the 450 nm values, got mu_a=%g mu_s'=%g", low.MuA, low.MuSPrime)
	}

	high, err := db.Properties("brain_white_matter", 1200)
	if err != nil {
		t.Fatalf("Properties failed: %v", err)
	}
	if !high.Extrapolated || math.Abs(high.MuA-0.025) > 1e-12 {
		t.Errorf("Expected the 940 nm values, got %+v", high)
	}
}

func TestPropertiesErrors(t *testing.T) {
	db := loadDefault(t)

	if _, err := db.Properties("liver", 630); !errors.Is(err, ErrUnknownTissue) {
		t.Errorf("Expected ErrUnknownTissue, got %v", err)
	}
	if _, err := db.Layer("liver", 630, 1); !errors.Is(err, ErrUnknownTissue) {
		t.Errorf("Expected ErrUnknownTissue from Layer, got %v", err)
	}
	if _, err := db.Tissue("liver"); !errors.Is(err, ErrUnknownTissue) {
		t.Errorf("Expected ErrUnknownTissue from Tissue, got %v", err)
	}
	for _, wl := range []float64{0, -630, math.NaN()} {
		if _, err := db.Properties("brain_gray_matter", wl); err == nil {
			t.Errorf("Expected an error for wavelength %g", wl)
		}
	}
}

func TestSearch(t *testing.T) {
	db := loadDefault(t)

	if got := db.Search("CORTICAL"); !reflect.DeepEqual(got, []string{"brain_gray_matter", "bone_cortical"}) {
		t.Errorf("Unexpected search result %v", got)
	}
	if got := db.Search("brain"); len(got) != 3 {
		t.Errorf("Expected 3 brain tissues, got %v", got)
	}
	if got := db.Search("kidney"); len(got) != 0 {
		t.Errorf("Expected no match, got %v", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"bad yaml":   "tissues: [",
		"empty":      "tissues: []",
		"missing id": "tissues:\n  - {name: x, n: 1.4, spectrum: [{wavelength: 600, muA: 0.1, muSPrime: 1, g: 0.9}]}",
		"duplicate id": `tissues:
  - {id: a, n: 1.4, spectrum: [{wavelength: 600, muA: 0.1, muSPrime: 1, g: 0.9}]}
  - {id: a, n: 1.4, spectrum: [{wavelength: 600, muA: 0.1, muSPrime: 1, g: 0.9}]}`,
		"no spectrum": "tissues:\n  - {id: a, n: 1.4}",
		"no index":    "tissues:\n  - {id: a, spectrum: [{wavelength: 600, muA: 0.1, muSPrime: 1, g: 0.9}]}",
		"g of one":    "tissues:\n  - {id: a, n: 1.4, spectrum: [{wavelength: 600, muA: 0.1, muSPrime: 1, g: 1}]}",
		"negative mu_a": "tissues:\n  - {id: a, n: 1.4, spectrum: [{wavelength: 600, muA: -0.1, muSPrime: 1, g: 0.9}]}",
		"duplicate wavelength": `tissues:
  - id: a
    n: 1.4
    spectrum:
      - {wavelength: 600, muA: 0.1, muSPrime: 1, g: 0.9}
      - {wavelength: 600, muA: 0.2, muSPrime: 1, g: 0.9}`,
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(data)); !errors.Is(err, ErrInvalidTable) {
				t.Errorf("Expected ErrInvalidTable, got %v", err)
			}
		})
	}
}

// TestLoad verifies a table on disk is read, sorted and usable
func TestLoad(t *testing.T) {
	data := `tissues:
  - id: phantom
    name: Intralipid phantom
    category: phantom
    n: 1.33
    spectrum:
      - {wavelength: 800, muA: 0.01, muSPrime: 0.8, g: 0.7}
      - {wavelength: 500, muA: 0.02, muSPrime: 1.4, g: 0.7}
      - {wavelength: 650, muA: 0.015, muSPrime: 1.1, g: 0.7}
  - id: single
    n: 1.4
    spectrum:
      - {wavelength: 600, muA: 0.1, muSPrime: 1, g: 0.5}
`
	path := filepath.Join(t.TempDir(), "tissues.yaml")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write table: %v", err)
	}

	db, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	info, err := db.Tissue("phantom")
	if err != nil {
		t.Fatalf("Tissue failed: %v", err)
	}
	if got := info.Wavelengths(); !reflect.DeepEqual(got, []float64{500, 650, 800}) {
		t.Errorf("Expected sorted wavelengths, got %v", got)
	}

	p, err := db.Properties("phantom", 650)
	if err != nil {
		t.Fatalf("Properties failed: %v", err)
	}
	if math.Abs(p.MuA-0.015) > 1e-12 {
		t.Errorf("Expected mu_a 0.015, got %g", p.MuA)
	}

	// a single sample holds at every wavelength
	p, err = db.Properties("single", 900)
	if err != nil {
		t.Fatalf("Properties failed: %v", err)
	}
	if p.MuA != 0.1 || p.MuS != 2 || !p.Extrapolated || p.TissueName != "single" {
		t.Errorf("Unexpected single sample properties %+v", p)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestPenetrationDepth(t *testing.T) {
	if d := PenetrationDepth(0, 1); !math.IsInf(d, 1) {
		t.Errorf("Expected infinite depth without absorption, got %g", d)
	}
	if d := PenetrationDepth(0.1, 0); !math.IsInf(d, 1) {
		t.Errorf("Expected infinite depth without scattering, got %g", d)
	}
	if d := PenetrationDepth(1, 2); math.Abs(d-1/3.0) > 1e-12 {
		t.Errorf("Expected 1/3, got %g", d)
	}
}
