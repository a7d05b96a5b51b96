package visualization

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/floats"
)

// Plot size in pixels
const (
	plotWidth  = 800
	plotHeight = 480
)

// RenderDepthProfile draws fluence against depth as a PNG line chart. A
// positive penetration depth is marked with a vertical line.
func RenderDepthProfile(w io.Writer, depths, fluence []float64, penetration float64) error {
	if len(depths) < 2 || len(depths) != len(fluence) {
		return fmt.Errorf("need at least two matching depth and fluence values, got %d and %d", len(depths), len(fluence))
	}

	peak := floats.Max(fluence)
	if !(peak > 0) {
		return fmt.Errorf("nothing to plot: the fluence profile is empty")
	}
	yRange := &chart.ContinuousRange{Min: 0, Max: 1.05 * peak}

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "Fluence",
			XValues: depths,
			YValues: fluence,
			Style:   chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 2.0},
		},
	}
	if penetration > 0 && penetration <= depths[len(depths)-1] {
		series = append(series, chart.ContinuousSeries{
			Name:    "1/e depth",
			XValues: []float64{penetration, penetration},
			YValues: []float64{0, peak},
			Style: chart.Style{
				StrokeColor:     drawing.Color{R: 255, G: 165, B: 0, A: 255},
				StrokeWidth:     1.5,
				StrokeDashArray: []float64{5, 5},
			},
		})
	}

	graph := chart.Chart{
		Width:  plotWidth,
		Height: plotHeight,
		XAxis: chart.XAxis{
			Name:  "Depth (mm)",
			Style: chart.Style{FontSize: 10.0},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.1f", v.(float64))
			},
		},
		YAxis: chart.YAxis{
			Name:  "Fluence (1/mm)",
			Style: chart.Style{FontSize: 10.0},
			Range: yRange,
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.3g", v.(float64))
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}

// SaveDepthProfile renders the depth profile into a PNG file
func SaveDepthProfile(filename string, depths, fluence []float64, penetration float64) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	if err := RenderDepthProfile(file, depths, fluence, penetration); err != nil {
		file.Close()
		return fmt.Errorf("error rendering %s: %w", filename, err)
	}
	return file.Close()
}
