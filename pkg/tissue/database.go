// Package tissue provides tabulated optical properties of biological tissues
// and assembles layer stacks from them.
package tissue

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"gonum.org/v1/gonum/interp"
	"gopkg.in/yaml.v3"

	"photonpath/internal/logging"
	"photonpath/internal/models"
)

//go:embed data/tissues.yaml
var defaultTable []byte

var logger = logging.New("tissue")

var (
	// ErrUnknownTissue is returned for a tissue id missing from the database
	ErrUnknownTissue = errors.New("unknown tissue")

	// ErrInvalidTable is returned when a tissue table cannot be used
	ErrInvalidTable = errors.New("invalid tissue table")
)

// Sample is one tabulated measurement of a tissue
type Sample struct {
	Wavelength float64 `yaml:"wavelength"`
	MuA        float64 `yaml:"muA"`
	MuSPrime   float64 `yaml:"muSPrime"`
	G          float64 `yaml:"g"`
}

// Tissue is one database entry
type Tissue struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Category    string   `yaml:"category"`
	Description string   `yaml:"description"`
	N           float64  `yaml:"n"`
	Spectrum    []Sample `yaml:"spectrum"`
}

// Wavelengths returns the tabulated wavelengths in ascending order
func (t Tissue) Wavelengths() []float64 {
	out := make([]float64, len(t.Spectrum))
	for i, s := range t.Spectrum {
		out[i] = s.Wavelength
	}
	return out
}

type table struct {
	Tissues []Tissue `yaml:"tissues"`
}

// entry is a tissue with its fitted wavelength interpolants
type entry struct {
	Tissue
	minWL, maxWL float64
	muA          interp.Predictor
	muSPrime     interp.Predictor
	g            interp.Predictor
}

// Database holds tissue optical properties and interpolates them across
// wavelength. It is read-only once built and safe for concurrent use.
type Database struct {
	entries map[string]*entry
	order   []string
}

// Default returns the database built from the embedded table
func Default() (*Database, error) {
	return Parse(defaultTable)
}

// Load reads a YAML tissue table from disk
func Load(path string) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading tissue table: %w", err)
	}
	db, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return db, nil
}

// Parse builds a database from a YAML tissue table
func Parse(data []byte) (*Database, error) {
	var tbl table
	if err := yaml.Unmarshal(data, &tbl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	if len(tbl.Tissues) == 0 {
		return nil, fmt.Errorf("%w: no tissues", ErrInvalidTable)
	}

	db := &Database{entries: make(map[string]*entry, len(tbl.Tissues))}
	for _, t := range tbl.Tissues {
		if t.ID == "" {
			return nil, fmt.Errorf("%w: tissue without id", ErrInvalidTable)
		}
		if _, dup := db.entries[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate tissue %q", ErrInvalidTable, t.ID)
		}
		e, err := newEntry(t)
		if err != nil {
			return nil, err
		}
		db.entries[t.ID] = e
		db.order = append(db.order, t.ID)
	}

	return db, nil
}

func newEntry(t Tissue) (*entry, error) {
	if len(t.Spectrum) == 0 {
		return nil, fmt.Errorf("%w: tissue %q has no spectrum", ErrInvalidTable, t.ID)
	}
	if !(t.N > 0) {
		return nil, fmt.Errorf("%w: tissue %q has refractive index %g", ErrInvalidTable, t.ID, t.N)
	}
	if t.Name == "" {
		t.Name = t.ID
	}

	spectrum := append([]Sample(nil), t.Spectrum...)
	sort.Slice(spectrum, func(i, j int) bool { return spectrum[i].Wavelength < spectrum[j].Wavelength })
	for i, s := range spectrum {
		if i > 0 && s.Wavelength == spectrum[i-1].Wavelength {
			return nil, fmt.Errorf("%w: tissue %q lists %g nm twice", ErrInvalidTable, t.ID, s.Wavelength)
		}
		if s.MuA < 0 || s.MuSPrime < 0 || s.G <= -1 || s.G >= 1 {
			return nil, fmt.Errorf("%w: tissue %q has invalid properties at %g nm", ErrInvalidTable, t.ID, s.Wavelength)
		}
	}
	t.Spectrum = spectrum

	wl := t.Wavelengths()
	muA := make([]float64, len(spectrum))
	muSPrime := make([]float64, len(spectrum))
	g := make([]float64, len(spectrum))
	for i, s := range spectrum {
		muA[i], muSPrime[i], g[i] = s.MuA, s.MuSPrime, s.G
	}

	e := &entry{Tissue: t, minWL: wl[0], maxWL: wl[len(wl)-1]}

	var err error
	if e.muA, err = fitCoefficient(wl, muA, len(wl) >= 3); err != nil {
		return nil, fmt.Errorf("%w: tissue %q: %v", ErrInvalidTable, t.ID, err)
	}
	if e.muSPrime, err = fitCoefficient(wl, muSPrime, len(wl) >= 3); err != nil {
		return nil, fmt.Errorf("%w: tissue %q: %v", ErrInvalidTable, t.ID, err)
	}
	if e.g, err = fitCoefficient(wl, g, false); err != nil {
		return nil, fmt.Errorf("%w: tissue %q: %v", ErrInvalidTable, t.ID, err)
	}

	return e, nil
}

// constant predicts a single tabulated value at every wavelength
type constant float64

func (c constant) Predict(float64) float64 { return float64(c) }

// fitCoefficient fits one coefficient across wavelength. Monotone cubic
// interpolation keeps the curve within the range of neighbouring samples.
func fitCoefficient(xs, ys []float64, cubic bool) (interp.Predictor, error) {
	if len(xs) == 1 {
		return constant(ys[0]), nil
	}
	if cubic {
		var fb interp.FritschButland
		if err := fb.Fit(xs, ys); err != nil {
			return nil, err
		}
		return &fb, nil
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, err
	}
	return &pl, nil
}

func (db *Database) lookup(id string) (*entry, error) {
	e, ok := db.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTissue, id)
	}
	return e, nil
}

// Tissue returns the database entry for id
func (db *Database) Tissue(id string) (Tissue, error) {
	e, err := db.lookup(id)
	if err != nil {
		return Tissue{}, err
	}
	return e.Tissue, nil
}

// Properties returns the optical properties of a tissue at a wavelength in
// nm. Wavelengths outside the tabulated range are clamped to the nearest end
// of the table and flagged as extrapolated.
func (db *Database) Properties(id string, wavelength float64) (models.OpticalProperties, error) {
	e, err := db.lookup(id)
	if err != nil {
		return models.OpticalProperties{}, err
	}
	if math.IsNaN(wavelength) || wavelength <= 0 {
		return models.OpticalProperties{}, fmt.Errorf("invalid wavelength %g nm", wavelength)
	}

	props := e.at(wavelength)
	if props.Extrapolated {
		logger.Warningf("%g nm is outside the measured range of %s (%g-%g nm), using the nearest value",
			wavelength, id, e.minWL, e.maxWL)
	}
	return props, nil
}

// at evaluates the interpolants at a positive wavelength
func (e *entry) at(wavelength float64) models.OpticalProperties {
	wl := math.Max(e.minWL, math.Min(e.maxWL, wavelength))

	muA := math.Max(0, e.muA.Predict(wl))
	muSPrime := math.Max(0, e.muSPrime.Predict(wl))
	g := e.g.Predict(wl)

	return models.OpticalProperties{
		TissueID:         e.ID,
		TissueName:       e.Name,
		Wavelength:       wavelength,
		N:                e.N,
		MuA:              muA,
		MuSPrime:         muSPrime,
		MuS:              muSPrime / (1 - g),
		G:                g,
		PenetrationDepth: PenetrationDepth(muA, muSPrime),
		Extrapolated:     wl != wavelength,
	}
}

// PenetrationDepth returns the diffusion theory 1/e depth
// 1 / sqrt(3 mu_a (mu_a + mu_s')). It is infinite without absorption or
// scattering.
func PenetrationDepth(muA, muSPrime float64) float64 {
	if muA <= 0 || muSPrime <= 0 {
		return math.Inf(1)
	}
	return 1 / math.Sqrt(3*muA*(muA+muSPrime))
}

// Layer builds a layer of the given thickness from a tissue at a wavelength
func (db *Database) Layer(id string, wavelength, thickness float64) (models.LayerSpec, error) {
	props, err := db.Properties(id, wavelength)
	if err != nil {
		return models.LayerSpec{}, err
	}
	return props.Layer(id, thickness), nil
}

// List returns all tissue ids in table order
func (db *Database) List() []string {
	return append([]string(nil), db.order...)
}

// Categories returns the distinct tissue categories, sorted
func (db *Database) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, id := range db.order {
		c := db.entries[id].Category
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// ByCategory returns the ids of the tissues in a category
func (db *Database) ByCategory(category string) []string {
	var out []string
	for _, id := range db.order {
		if db.entries[id].Category == category {
			out = append(out, id)
		}
	}
	return out
}

// Search returns the ids of tissues whose id, name or description contains
// the query, ignoring case
func (db *Database) Search(query string) []string {
	q := strings.ToLower(query)
	var out []string
	for _, id := range db.order {
		e := db.entries[id]
		if strings.Contains(strings.ToLower(id), q) ||
			strings.Contains(strings.ToLower(e.Name), q) ||
			strings.Contains(strings.ToLower(e.Description), q) {
			out = append(out, id)
		}
	}
	return out
}
