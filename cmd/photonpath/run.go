package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"photonpath/internal/logging"
	"photonpath/pkg/config"
	"photonpath/pkg/export"
	"photonpath/pkg/montecarlo"
	"photonpath/pkg/visualization"
)

var logger = logging.New("photonpath")

func setupLogging(ctx *cli.Context) error {
	logging.SetLevel(logging.Notice)

	if ctx.GlobalBool("v") {
		logging.SetLevel(logging.Info)
	}

	if ctx.GlobalBool("vv") {
		logging.SetLevel(logging.Debug)
	}

	if name := ctx.GlobalString("log-level"); name != "" {
		level, err := logging.ParseLevel(name)
		if err != nil {
			return err
		}
		logging.SetLevel(level)
	}
	return nil
}

// Run a simulation.
func runSimulation(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	configPath := ""
	if ctx.NArg() > 1 {
		return errors.New("expected at most one configuration file")
	}
	if ctx.NArg() == 1 {
		configPath = ctx.Args().First()
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("configuration file: %w", err)
		}
	}

	cfg := config.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(configPath); err != nil {
			return err
		}
	}
	applyFlags(ctx, cfg)

	if cfg.Output.Verbose && logging.CurrentLevel() > logging.Info {
		logging.SetLevel(logging.Info)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	db, err := cfg.TissueDatabase()
	if err != nil {
		return err
	}

	params, err := cfg.Params(db)
	if err != nil {
		return err
	}
	if !ctx.Bool("quiet") {
		params.Progress = progressReporter()
	}

	sim, err := montecarlo.NewSimulator(params)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := sim.Run(runCtx)
	if !ctx.Bool("quiet") {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return err
	}

	displayResult(result)

	return writeOutputs(cfg, result)
}

// applyFlags overrides configuration values with the flags set on the
// command line
func applyFlags(ctx *cli.Context, cfg *config.Config) {
	if ctx.IsSet("photons") {
		cfg.Simulation.Photons = ctx.Int("photons")
	}
	if ctx.IsSet("seed") {
		cfg.Simulation.Seed = ctx.Uint64("seed")
	}
	if ctx.IsSet("workers") {
		cfg.Simulation.Workers = ctx.Int("workers")
	}
	if ctx.IsSet("wavelength") {
		cfg.Simulation.Wavelength = ctx.Float64("wavelength")
	}
	if ctx.IsSet("model") {
		cfg.Tissue.Model = ctx.String("model")
	}
	if ctx.IsSet("tissue") {
		cfg.Tissue.TissueID = ctx.String("tissue")
	}
	if ctx.IsSet("out") {
		cfg.Output.Directory = ctx.String("out")
	}
	if ctx.Bool("plots") {
		cfg.Output.WritePlots = true
	}
}

// progressReporter prints the completed percentage on stderr. The simulator
// may call it from several workers at once.
func progressReporter() montecarlo.ProgressFunc {
	var (
		mu   sync.Mutex
		last = -1
	)
	return func(done, total int) {
		pct := done * 100 / total

		mu.Lock()
		defer mu.Unlock()
		if pct <= last {
			return
		}
		last = pct
		fmt.Fprintf(os.Stderr, "\rtracing photons: %3d%%", pct)
	}
}

func displayResult(result *montecarlo.Result) {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Layer", "Thickness (mm)", "n", "mu_a (1/mm)", "mu_s (1/mm)", "g"})
	for _, l := range result.Layers {
		thickness := "inf"
		if !l.SemiInfinite() {
			thickness = fmt.Sprintf("%.3f", l.Thickness)
		}
		table.Append([]string{
			l.Name,
			thickness,
			fmt.Sprintf("%.3f", l.N),
			fmt.Sprintf("%.4f", l.MuA),
			fmt.Sprintf("%.2f", l.MuS),
			fmt.Sprintf("%.3f", l.G),
		})
	}
	table.Render()
	logger.Noticef("layer stack at %g nm\n%s", result.Wavelength, buf.String())

	buf.Reset()
	table = tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Quantity", "Value"})
	rows := [][]string{
		{"Reflectance", fmt.Sprintf("%.5f ± %.5f", result.Reflectance, result.ReflectanceStdErr)},
		{"  specular", fmt.Sprintf("%.5f", result.SpecularReflectance)},
		{"  diffuse", fmt.Sprintf("%.5f", result.DiffuseReflectance)},
		{"Transmittance", fmt.Sprintf("%.5f ± %.5f", result.Transmittance, result.TransmittanceStdErr)},
		{"Absorbed", fmt.Sprintf("%.5f", result.AbsorptionFraction)},
		{"Energy balance", fmt.Sprintf("%.9f", result.EnergyBalance())},
		{"1/e depth", fmt.Sprintf("%.3f mm", result.PenetrationDepth1e)},
		{"1/e² depth", fmt.Sprintf("%.3f mm", result.PenetrationDepth1e2)},
		{"mu_eff", fmt.Sprintf("%.4f 1/mm (R² %.3f)", result.EffectiveAttenuation, result.AttenuationFitR2)},
		{"Mean scatterings", fmt.Sprintf("%.1f", result.MeanScatters)},
		{"Step cap hits", fmt.Sprintf("%d", result.CapHits)},
	}
	table.AppendBulk(rows)
	table.SetFooter([]string{"TOTAL", fmt.Sprintf("%d photons in %s (%.0f/s)", result.Photons, result.Elapsed, result.PhotonsPerSecond)})
	table.Render()
	logger.Noticef("run %s (seed %d, %d workers)\n%s", result.RunID, result.Seed, result.Workers, buf.String())
}

func writeOutputs(cfg *config.Config, result *montecarlo.Result) error {
	dir := cfg.Output.Directory

	if cfg.Output.WriteJSON {
		path := filepath.Join(dir, export.SummaryFile)
		if err := export.WriteJSON(result, path); err != nil {
			return err
		}
		logger.Noticef("wrote %s", path)
	}

	if cfg.Output.WriteCSV {
		for _, out := range []struct {
			name  string
			write func(*montecarlo.Result, string) error
		}{
			{export.DepthFile, export.WriteDepthCSV},
			{export.RadialFile, export.WriteRadialCSV},
		} {
			path := filepath.Join(dir, out.name)
			if err := out.write(result, path); err != nil {
				return err
			}
			logger.Noticef("wrote %s", path)
		}
	}

	if cfg.Output.WritePlots {
		viewer, err := visualization.NewViewer(result.FluenceRZ, result.RadiusBins, result.DepthBins)
		if err != nil {
			return err
		}
		mapPath := filepath.Join(dir, "fluence_rz.jpg")
		if err := viewer.SaveFluenceMap(mapPath); err != nil {
			return err
		}
		logger.Noticef("wrote %s", mapPath)

		plotPath := filepath.Join(dir, "fluence_z.png")
		if err := visualization.SaveDepthProfile(plotPath, result.DepthBins, result.FluenceZ, result.PenetrationDepth1e); err != nil {
			logger.Warningf("skipping depth profile plot: %v", err)
		} else {
			logger.Noticef("wrote %s", plotPath)
		}
	}

	return nil
}

// Write a default configuration file.
func initConfig(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing configuration file argument")
	}
	path := ctx.Args().First()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	if err := config.CreateDefaultConfigFile(path); err != nil {
		return err
	}
	logger.Noticef("wrote default configuration to %s", path)
	return nil
}
