package montecarlo

import (
	"errors"
	"fmt"
)

// The two configuration error classes surfaced to callers. Every validation
// failure wraps one of them, so errors.Is works on either level.
var (
	ErrInvalidConfiguration = errors.New("montecarlo: invalid configuration")
	ErrInvalidPhotonCount   = errors.New("montecarlo: photon count must be positive")
)

// Specific causes of ErrInvalidConfiguration.
var (
	ErrNoLayers          = fmt.Errorf("%w: no layers defined", ErrInvalidConfiguration)
	ErrMalformedGeometry = fmt.Errorf("%w: malformed layer geometry", ErrInvalidConfiguration)
	ErrInvalidOptics     = fmt.Errorf("%w: invalid optical properties", ErrInvalidConfiguration)
	ErrInvalidBinning    = fmt.Errorf("%w: invalid scoring grid", ErrInvalidConfiguration)
)
