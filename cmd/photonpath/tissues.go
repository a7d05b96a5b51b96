package main

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"photonpath/pkg/tissue"
)

func openDatabase(ctx *cli.Context) (*tissue.Database, error) {
	if path := ctx.String("db"); path != "" {
		return tissue.Load(path)
	}
	return tissue.Default()
}

// List the tissues of the database.
func listTissues(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}

	ids := db.List()
	if category := ctx.String("category"); category != "" {
		ids = db.ByCategory(category)
	}
	if query := ctx.String("search"); query != "" {
		matches := make(map[string]bool)
		for _, id := range db.Search(query) {
			matches[id] = true
		}
		var filtered []string
		for _, id := range ids {
			if matches[id] {
				filtered = append(filtered, id)
			}
		}
		ids = filtered
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Id", "Name", "Category", "n", "Wavelengths (nm)"})
	for _, id := range ids {
		t, err := db.Tissue(id)
		if err != nil {
			return err
		}
		wl := t.Wavelengths()
		table.Append([]string{
			t.ID,
			t.Name,
			t.Category,
			fmt.Sprintf("%.2f", t.N),
			fmt.Sprintf("%g-%g (%d)", wl[0], wl[len(wl)-1], len(wl)),
		})
	}
	table.SetFooter([]string{"", "", "", "TOTAL", fmt.Sprintf("%d", len(ids))})
	table.Render()
	logger.Noticef("tissue database\n%s", buf.String())

	return nil
}

// Print the optical properties of a tissue at a wavelength.
func showProperties(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() != 2 {
		return errors.New("expected a tissue id and a wavelength")
	}
	id := ctx.Args().Get(0)
	wavelength, err := strconv.ParseFloat(ctx.Args().Get(1), 64)
	if err != nil {
		return fmt.Errorf("invalid wavelength %q: %w", ctx.Args().Get(1), err)
	}

	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	props, err := db.Properties(id, wavelength)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Property", "Value"})
	table.AppendBulk([][]string{
		{"Refractive index", fmt.Sprintf("%.3f", props.N)},
		{"mu_a", fmt.Sprintf("%.4f 1/mm", props.MuA)},
		{"mu_s'", fmt.Sprintf("%.4f 1/mm", props.MuSPrime)},
		{"mu_s", fmt.Sprintf("%.3f 1/mm", props.MuS)},
		{"g", fmt.Sprintf("%.3f", props.G)},
		{"Penetration depth", fmt.Sprintf("%.3f mm", props.PenetrationDepth)},
		{"Extrapolated", strconv.FormatBool(props.Extrapolated)},
	})
	table.Render()
	logger.Noticef("%s at %g nm\n%s", props.TissueName, props.Wavelength, buf.String())

	return nil
}

// Find the wavelength best meeting an objective.
func findOptimal(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("expected a tissue id")
	}
	id := ctx.Args().First()

	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}

	objective := tissue.Objective(ctx.String("objective"))
	wavelength, value, err := db.OptimalWavelength(id, objective, ctx.Float64("from"), ctx.Float64("to"))
	if err != nil {
		return err
	}

	unit := "1/mm"
	if objective == tissue.MaxPenetration {
		unit = "mm"
	}
	logger.Noticef("%s: best %s between %g and %g nm is at %g nm (%.4f %s)",
		id, objective, ctx.Float64("from"), ctx.Float64("to"), wavelength, value, unit)

	return nil
}
