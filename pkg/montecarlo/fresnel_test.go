package montecarlo

import (
	"math"
	"testing"
)

func TestFresnelMatchedIndex(t *testing.T) {
	for _, c := range []float64{0, 0.3, 0.7, 1} {
		if r := FresnelReflectance(1.37, 1.37, c); r != 0 {
			t.Errorf("Expected 0 for matched indices at cos=%g, got %g", c, r)
		}
	}
}

// TestFresnelNormalIncidence verifies the closed form ((n1-n2)/(n1+n2))^2
func TestFresnelNormalIncidence(t *testing.T) {
	pairs := [][2]float64{{1, 1.37}, {1.37, 1}, {1.33, 1.5}, {1, 1.5}}
	for _, p := range pairs {
		want := math.Pow((p[0]-p[1])/(p[0]+p[1]), 2)

		if got := FresnelReflectance(p[0], p[1], 1); math.Abs(got-want) > 1e-15 {
			t.Errorf("R(%g->%g, normal) = %g, want %g", p[0], p[1], got, want)
		}

		// just off normal the general formula must agree with the closed form
		if got := FresnelReflectance(p[0], p[1], 0.9999999); math.Abs(got-want) > 1e-6 {
			t.Errorf("R(%g->%g, near normal) = %g, want ~%g", p[0], p[1], got, want)
		}

		if got := SpecularReflectance(p[0], p[1]); math.Abs(got-want) > 1e-15 {
			t.Errorf("SpecularReflectance(%g, %g) = %g, want %g", p[0], p[1], got, want)
		}
	}
}

// TestFresnelTotalInternalReflection checks behaviour on both sides of the
// critical angle
func TestFresnelTotalInternalReflection(t *testing.T) {
	n1, n2 := 1.4, 1.0
	cc := CriticalCosine(n1, n2)
	if want := math.Sqrt(1 - 1/(1.4*1.4)); math.Abs(cc-want) > 1e-12 {
		t.Fatalf("CriticalCosine = %g, want %g", cc, want)
	}

	if r := FresnelReflectance(n1, n2, 0.1); r != 1 {
		t.Errorf("Expected total internal reflection beyond the critical angle, got %g", r)
	}
	if r := FresnelReflectance(n1, n2, cc-1e-6); r != 1 {
		t.Errorf("Expected total internal reflection just past the critical angle, got %g", r)
	}

	r := FresnelReflectance(n1, n2, cc+1e-6)
	if r >= 1 || r < 0.95 {
		t.Errorf("Expected reflectance just below 1 near the critical angle, got %g", r)
	}

	if cc := CriticalCosine(1.0, 1.4); cc != 0 {
		t.Errorf("Expected no critical angle going into a denser medium, got %g", cc)
	}
}

// TestFresnelRange sweeps incidence angles and index pairs
func TestFresnelRange(t *testing.T) {
	indices := []float64{1.0, 1.33, 1.37, 1.4, 1.55}
	for _, n1 := range indices {
		for _, n2 := range indices {
			prev := math.Inf(1)
			for i := 0; i <= 100; i++ {
				c := float64(i) / 100
				r := FresnelReflectance(n1, n2, c)
				if math.IsNaN(r) || r < 0 || r > 1 {
					t.Fatalf("R(%g->%g, cos=%g) = %g out of [0, 1]", n1, n2, c, r)
				}
				// reflectance never increases towards normal incidence
				if r > prev+1e-12 {
					t.Fatalf("R(%g->%g) increased from %g to %g at cos=%g", n1, n2, prev, r, c)
				}
				prev = r
			}
		}
	}
}

func TestFresnelReciprocityAtNormal(t *testing.T) {
	a := FresnelReflectance(1.0, 1.45, 1)
	b := FresnelReflectance(1.45, 1.0, 1)
	if a != b {
		t.Errorf("Expected symmetric normal reflectance, got %g and %g", a, b)
	}
}
