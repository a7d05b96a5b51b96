package montecarlo

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// minFitPoints is the number of positive bins needed to fit mu_eff
const minFitPoints = 3

// AttenuationFit is the log-linear fit of the depth-fluence decay
type AttenuationFit struct {
	// MuEff is the negative slope of log(fluence) against depth, in mm^-1
	MuEff float64

	// Intercept is log(fluence) extrapolated to z=0
	Intercept float64

	// R2 is the coefficient of determination of the fit
	R2 float64

	// Points is the number of bins used
	Points int

	// LowConfidence is set when there were too few usable bins, in which
	// case MuEff is 0
	LowConfidence bool
}

// PenetrationDepths returns the first depths at which the fluence profile
// drops below surface/e and surface/e^2. A threshold that is never crossed
// within the profile yields maxDepth; an empty surface bin yields 0.
func PenetrationDepths(depths, fluence []float64, maxDepth float64) (d1e, d1e2 float64) {
	if len(fluence) == 0 || fluence[0] <= 0 {
		return 0, 0
	}

	t1 := fluence[0] / math.E
	t2 := fluence[0] / (math.E * math.E)
	d1e, d1e2 = maxDepth, maxDepth

	found1 := false
	for i, f := range fluence {
		if !found1 && f < t1 {
			d1e = depths[i]
			found1 = true
		}
		if f < t2 {
			d1e2 = depths[i]
			break
		}
	}
	return d1e, d1e2
}

// EffectiveAttenuation fits log(fluence) against depth over all bins with
// positive fluence
func EffectiveAttenuation(depths, fluence []float64) AttenuationFit {
	xs := make([]float64, 0, len(fluence))
	ys := make([]float64, 0, len(fluence))
	for i, f := range fluence {
		if f > 0 {
			xs = append(xs, depths[i])
			ys = append(ys, math.Log(f))
		}
	}

	if len(xs) < minFitPoints {
		return AttenuationFit{Points: len(xs), LowConfidence: true}
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	r2 := stat.RSquared(xs, ys, nil, alpha, beta)
	if math.IsNaN(r2) {
		// all points on a horizontal line
		r2 = 0
	}

	return AttenuationFit{
		MuEff:     -beta,
		Intercept: alpha,
		R2:        r2,
		Points:    len(xs),
	}
}

// standardError returns the standard error of the mean of n samples given
// their sum and sum of squares
func standardError(sum, sumSq float64, n int) float64 {
	if n < 2 {
		return 0
	}
	fn := float64(n)
	mean := sum / fn
	variance := (sumSq/fn - mean*mean) * fn / (fn - 1)
	if variance <= 0 {
		return 0
	}
	return stat.StdErr(math.Sqrt(variance), fn)
}
