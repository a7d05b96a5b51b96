package tissue

import (
	"fmt"
	"math"

	"photonpath/internal/models"
)

// Preset layer thicknesses in mm
const (
	EpidermisThickness = 0.1
	DermisThickness    = 2.0
	ScalpThickness     = 3.0
	CSFThickness       = 1.5

	DefaultSkullThickness      = 7.0
	DefaultGrayMatterThickness = 3.0
	DefaultMelaninFraction     = 0.02
)

// csf is a fixed clear layer of cerebrospinal fluid
var csf = models.LayerSpec{
	Name:      "csf",
	Thickness: CSFThickness,
	N:         1.33,
	MuA:       0.001,
	MuS:       0.1,
	G:         0.99,
}

// MelaninAbsorption returns the absorption added to the epidermis by a
// melanin volume fraction, in mm^-1
func MelaninAbsorption(wavelength, fraction float64) float64 {
	return 519 * math.Pow(wavelength/500, -3) * fraction
}

// SingleLayer returns a semi-infinite slab of one tissue
func SingleLayer(db *Database, id string, wavelength float64) ([]models.LayerSpec, error) {
	l, err := db.Layer(id, wavelength, math.Inf(1))
	if err != nil {
		return nil, err
	}
	return []models.LayerSpec{l}, nil
}

// SkinModel returns epidermis, dermis and semi-infinite subcutaneous fat.
// The melanin fraction adds to the epidermal absorption.
func SkinModel(db *Database, wavelength, melaninFraction float64) ([]models.LayerSpec, error) {
	if melaninFraction < 0 || melaninFraction > 1 {
		return nil, fmt.Errorf("melanin fraction %g outside [0, 1]", melaninFraction)
	}

	epi, err := db.Layer("skin_epidermis", wavelength, EpidermisThickness)
	if err != nil {
		return nil, err
	}
	epi.Name = "epidermis"
	epi.MuA += MelaninAbsorption(wavelength, melaninFraction)

	derm, err := db.Layer("skin_dermis", wavelength, DermisThickness)
	if err != nil {
		return nil, err
	}
	derm.Name = "dermis"

	fat, err := db.Layer("adipose_tissue", wavelength, math.Inf(1))
	if err != nil {
		return nil, err
	}
	fat.Name = "subcutaneous_fat"

	return []models.LayerSpec{epi, derm, fat}, nil
}

// BrainModel returns scalp, skull, CSF, gray matter and semi-infinite white
// matter. Without the skull only gray and white matter remain.
func BrainModel(db *Database, wavelength, skullThickness, grayThickness float64, includeSkull bool) ([]models.LayerSpec, error) {
	if !(grayThickness > 0) || math.IsInf(grayThickness, 0) {
		return nil, fmt.Errorf("invalid gray matter thickness %g mm", grayThickness)
	}

	var layers []models.LayerSpec

	if includeSkull {
		if !(skullThickness > 0) || math.IsInf(skullThickness, 0) {
			return nil, fmt.Errorf("invalid skull thickness %g mm", skullThickness)
		}

		scalp, err := db.Layer("skin_dermis", wavelength, ScalpThickness)
		if err != nil {
			return nil, err
		}
		scalp.Name = "scalp"

		skull, err := db.Layer("bone_cortical", wavelength, skullThickness)
		if err != nil {
			return nil, err
		}
		skull.Name = "skull"

		layers = append(layers, scalp, skull, csf)
	}

	gray, err := db.Layer("brain_gray_matter", wavelength, grayThickness)
	if err != nil {
		return nil, err
	}
	gray.Name = "gray_matter"

	white, err := db.Layer("brain_white_matter", wavelength, math.Inf(1))
	if err != nil {
		return nil, err
	}
	white.Name = "white_matter"

	return append(layers, gray, white), nil
}
