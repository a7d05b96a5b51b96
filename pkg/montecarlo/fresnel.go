package montecarlo

import (
	"math"
)

// normalIncidence is the cosine above which the normal-incidence closed form
// is used
const normalIncidence = 1 - 1e-12

// FresnelReflectance returns the unpolarized Fresnel reflectance for light
// going from index n1 into index n2 with cosTheta1 the cosine of the angle of
// incidence relative to the surface normal. Total internal reflection returns 1.
func FresnelReflectance(n1, n2, cosTheta1 float64) float64 {
	if n1 == n2 {
		return 0
	}

	cosTheta1 = math.Abs(cosTheta1)
	if cosTheta1 > 1 {
		cosTheta1 = 1
	}

	if cosTheta1 >= normalIncidence {
		r := (n1 - n2) / (n1 + n2)
		return r * r
	}

	sinTheta1 := math.Sqrt(math.Max(0, 1-cosTheta1*cosTheta1))
	sinTheta2 := n1 / n2 * sinTheta1
	if sinTheta2 > 1 {
		return 1
	}
	cosTheta2 := math.Sqrt(math.Max(0, 1-sinTheta2*sinTheta2))

	rs := (n1*cosTheta1 - n2*cosTheta2) / (n1*cosTheta1 + n2*cosTheta2)
	rp := (n1*cosTheta2 - n2*cosTheta1) / (n1*cosTheta2 + n2*cosTheta1)

	return 0.5 * (rs*rs + rp*rp)
}

// SpecularReflectance returns the normal-incidence reflectance at the launch
// surface
func SpecularReflectance(nAmbient, nTissue float64) float64 {
	return FresnelReflectance(nAmbient, nTissue, 1)
}

// CriticalCosine returns the cosine of the critical angle for light going
// from n1 into n2, or 0 when no total internal reflection is possible
func CriticalCosine(n1, n2 float64) float64 {
	if n1 <= n2 {
		return 0
	}
	s := n2 / n1
	return math.Sqrt(1 - s*s)
}
