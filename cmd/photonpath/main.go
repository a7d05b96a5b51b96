package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "photonpath"
	app.Usage = "simulate light transport in layered tissue with Monte Carlo photon packets"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "log level: debug, info, notice, warning or error (overrides -v and -vv)",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "run",
			Usage: "run a simulation",
			Description: `
Trace photon packets through the layer stack described by a YAML
configuration file and report reflectance, transmittance, absorption and the
depth distribution of the absorbed energy.

Without a configuration file the defaults are used: 100000 photons in
semi-infinite brain gray matter at 630 nm. Flags override the file.`,
			ArgsUsage: "[config.yaml]",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "photons, n",
					Usage: "number of photon packets",
				},
				cli.Uint64Flag{
					Name:  "seed",
					Usage: "master random seed (0 picks one from the clock)",
				},
				cli.IntFlag{
					Name:  "workers, w",
					Usage: "number of tracing goroutines",
				},
				cli.Float64Flag{
					Name:  "wavelength, l",
					Usage: "wavelength in nm",
				},
				cli.StringFlag{
					Name:  "model, m",
					Usage: "tissue model: custom, single, skin or brain",
				},
				cli.StringFlag{
					Name:  "tissue, t",
					Usage: "tissue id of the single layer model",
				},
				cli.StringFlag{
					Name:  "out, o",
					Usage: "output directory",
				},
				cli.BoolFlag{
					Name:  "plots",
					Usage: "render the fluence map and the depth profile",
				},
				cli.BoolFlag{
					Name:  "quiet, q",
					Usage: "do not report progress",
				},
			},
			Action: runSimulation,
		},
		{
			Name:      "init-config",
			Usage:     "write a default configuration file",
			ArgsUsage: "config.yaml",
			Action:    initConfig,
		},
		{
			Name:  "tissues",
			Usage: "list the tissues of the optical properties database",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "db",
					Usage: "tissue table file (defaults to the built-in table)",
				},
				cli.StringFlag{
					Name:  "category, c",
					Usage: "only list tissues of this category",
				},
				cli.StringFlag{
					Name:  "search, s",
					Usage: "only list tissues matching this text",
				},
			},
			Action: listTissues,
		},
		{
			Name:      "properties",
			Usage:     "print the optical properties of a tissue at a wavelength",
			ArgsUsage: "tissue_id wavelength_nm",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "db",
					Usage: "tissue table file (defaults to the built-in table)",
				},
			},
			Action: showProperties,
		},
		{
			Name:      "optimal",
			Usage:     "find the best wavelength of a tissue for an objective",
			ArgsUsage: "tissue_id",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "db",
					Usage: "tissue table file (defaults to the built-in table)",
				},
				cli.StringFlag{
					Name:  "objective",
					Value: "max_penetration",
					Usage: "max_penetration, min_absorption or min_scattering",
				},
				cli.Float64Flag{
					Name:  "from",
					Value: 450,
					Usage: "lower end of the sweep in nm",
				},
				cli.Float64Flag{
					Name:  "to",
					Value: 940,
					Usage: "upper end of the sweep in nm",
				},
			},
			Action: findOptimal,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
