package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
)

// DefaultDecades is the dynamic range of the log-scaled fluence map
const DefaultDecades = 4

// Viewer renders the fluence of a simulation run. The grid is indexed
// [radius][depth] with bin centers in mm.
type Viewer struct {
	// fluence holds the radius x depth fluence grid
	fluence [][]float64

	// bin centers of the grid
	radii  []float64
	depths []float64

	// decades of fluence mapped onto the gray scale below the maximum
	decades float64
}

// NewViewer creates a viewer over a radius x depth fluence grid
func NewViewer(fluenceRZ [][]float64, radii, depths []float64) (*Viewer, error) {
	if len(fluenceRZ) != len(radii) {
		return nil, fmt.Errorf("grid has %d rows for %d radius bins", len(fluenceRZ), len(radii))
	}
	for i, row := range fluenceRZ {
		if len(row) != len(depths) {
			return nil, fmt.Errorf("grid row %d has %d columns for %d depth bins", i, len(row), len(depths))
		}
	}
	return &Viewer{
		fluence: fluenceRZ,
		radii:   radii,
		depths:  depths,
		decades: DefaultDecades,
	}, nil
}

// SetDecades changes the dynamic range of the fluence map
func (v *Viewer) SetDecades(decades float64) {
	if decades > 0 {
		v.decades = decades
	}
}

// ExtractProfile extracts a 1D profile from the grid: along depth ("z") at a
// radius bin, or along radius ("r") at a depth bin
func (v *Viewer) ExtractProfile(axis string, position int) ([]float64, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	switch axis {
	case "z", "Z":
		if position >= len(v.radii) {
			return nil, fmt.Errorf("position %d exceeds %d radius bins", position, len(v.radii))
		}
		return append([]float64(nil), v.fluence[position]...), nil

	case "r", "R":
		if position >= len(v.depths) {
			return nil, fmt.Errorf("position %d exceeds %d depth bins", position, len(v.depths))
		}
		out := make([]float64, len(v.radii))
		for ir, row := range v.fluence {
			out[ir] = row[position]
		}
		return out, nil

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be z or r)", axis)
	}
}

// FluenceMap renders the grid as a log-scaled gray image with depth running
// down and the radius mirrored about the beam axis in the middle
func (v *Viewer) FluenceMap() *image.Gray16 {
	nr, nz := len(v.radii), len(v.depths)
	img := image.NewGray16(image.Rect(0, 0, 2*nr, nz))

	peak := 0.0
	for _, row := range v.fluence {
		if len(row) > 0 {
			peak = math.Max(peak, floats.Max(row))
		}
	}
	if peak <= 0 {
		return img
	}
	logPeak := math.Log10(peak)

	for ir, row := range v.fluence {
		for iz, f := range row {
			if f <= 0 {
				continue
			}
			level := (math.Log10(f) - logPeak + v.decades) / v.decades
			value := uint16(math.Max(0, math.Min(65535, level*65535)))
			img.SetGray16(nr+ir, iz, color.Gray16{Y: value})
			img.SetGray16(nr-1-ir, iz, color.Gray16{Y: value})
		}
	}

	return img
}

// SaveImage saves an image as a JPEG file
func (v *Viewer) SaveImage(img image.Image, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveFluenceMap renders and saves the fluence map
func (v *Viewer) SaveFluenceMap(filename string) error {
	return v.SaveImage(v.FluenceMap(), filename)
}
