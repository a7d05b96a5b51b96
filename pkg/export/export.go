// Package export writes simulation results to disk.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"photonpath/pkg/montecarlo"
)

// Default output file names
const (
	SummaryFile = "result.json"
	DepthFile   = "fluence_z.csv"
	RadialFile  = "fluence_rz.csv"
)

// WriteJSON writes the result summary as indented JSON
func WriteJSON(result *montecarlo.Result, path string) error {
	return writeFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Summary())
	})
}

// WriteDepthCSV writes one row per depth bin with its center and fluence
func WriteDepthCSV(result *montecarlo.Result, path string) error {
	return writeFile(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"z_mm", "fluence_z"}); err != nil {
			return err
		}
		for i, z := range result.DepthBins {
			if err := cw.Write([]string{formatFloat(z), formatFloat(result.FluenceZ[i])}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// WriteRadialCSV writes the radius-depth fluence grid. The header row holds
// the depth bin centers, each following row starts with a radius bin center.
func WriteRadialCSV(result *montecarlo.Result, path string) error {
	return writeFile(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)

		header := make([]string, 0, len(result.DepthBins)+1)
		header = append(header, "r_mm\\z_mm")
		for _, z := range result.DepthBins {
			header = append(header, formatFloat(z))
		}
		if err := cw.Write(header); err != nil {
			return err
		}

		row := make([]string, len(header))
		for ir, r := range result.RadiusBins {
			row[0] = formatFloat(r)
			for iz, v := range result.FluenceRZ[ir] {
				row[iz+1] = formatFloat(v)
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// WriteAll writes the summary and both fluence tables into dir
func WriteAll(result *montecarlo.Result, dir string) ([]string, error) {
	paths := []string{
		filepath.Join(dir, SummaryFile),
		filepath.Join(dir, DepthFile),
		filepath.Join(dir, RadialFile),
	}
	writers := []func(*montecarlo.Result, string) error{WriteJSON, WriteDepthCSV, WriteRadialCSV}

	for i, write := range writers {
		if err := write(result, paths[i]); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// writeFile creates path and its parent directory and hands the file to fn
func writeFile(path string, fn func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}

	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return f.Close()
}
