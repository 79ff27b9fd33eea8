// Package report builds territory summaries and exports them as XLSX
// workbooks for the category managers who live in spreadsheets.
package report

import (
	"context"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/shelfwatch/shelfwatch/internal/model"
	"github.com/shelfwatch/shelfwatch/internal/store"
)

// TerritoryReport is the assembled read model behind one export.
type TerritoryReport struct {
	GeneratedAt  time.Time
	Since        time.Time
	ByBrand      []model.BrandAggregate
	ByState      []model.StateAggregate
	NewLocations []model.PersistedLocation
	RecentRuns   []model.ScanRun
}

// Build assembles a report covering territory changes since the given
// cutoff.
func Build(ctx context.Context, st store.Store, since time.Time) (*TerritoryReport, error) {
	byBrand, err := st.ActiveCountByBrand(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "report: active by brand")
	}
	byState, err := st.ActiveCountByState(ctx, "")
	if err != nil {
		return nil, eris.Wrap(err, "report: active by state")
	}
	newLocs, err := st.ListLocations(ctx, store.LocationFilter{ActiveOnly: true, FirstSeenAfter: &since})
	if err != nil {
		return nil, eris.Wrap(err, "report: new locations")
	}
	runs, err := st.ListScanRuns(ctx, store.RunFilter{Limit: 200})
	if err != nil {
		return nil, eris.Wrap(err, "report: recent runs")
	}

	return &TerritoryReport{
		GeneratedAt:  time.Now().UTC(),
		Since:        since,
		ByBrand:      byBrand,
		ByState:      byState,
		NewLocations: newLocs,
		RecentRuns:   runs,
	}, nil
}

// WriteXLSX writes the report as a four-sheet workbook.
func WriteXLSX(r *TerritoryReport, path string) error {
	file := xlsx.NewFile()

	if err := writeBrandSheet(file, r.ByBrand); err != nil {
		return err
	}
	if err := writeStateSheet(file, r.ByState); err != nil {
		return err
	}
	if err := writeNewLocationsSheet(file, r.NewLocations); err != nil {
		return err
	}
	if err := writeRunsSheet(file, r.RecentRuns); err != nil {
		return err
	}

	return eris.Wrapf(file.Save(path), "report: save %s", path)
}

func headerRow(sheet *xlsx.Sheet, titles ...string) {
	row := sheet.AddRow()
	for _, t := range titles {
		row.AddCell().Value = t
	}
}

func writeBrandSheet(file *xlsx.File, aggs []model.BrandAggregate) error {
	sheet, err := file.AddSheet("Active by Brand")
	if err != nil {
		return eris.Wrap(err, "report: add brand sheet")
	}
	headerRow(sheet, "Brand", "Active Locations")
	for _, a := range aggs {
		row := sheet.AddRow()
		row.AddCell().Value = a.BrandID
		row.AddCell().SetInt(a.ActiveCount)
	}
	return nil
}

func writeStateSheet(file *xlsx.File, aggs []model.StateAggregate) error {
	sheet, err := file.AddSheet("Active by State")
	if err != nil {
		return eris.Wrap(err, "report: add state sheet")
	}
	headerRow(sheet, "State", "Active Locations")
	for _, a := range aggs {
		row := sheet.AddRow()
		row.AddCell().Value = a.State
		row.AddCell().SetInt(a.ActiveCount)
	}
	return nil
}

func writeNewLocationsSheet(file *xlsx.File, locs []model.PersistedLocation) error {
	sheet, err := file.AddSheet("New Locations")
	if err != nil {
		return eris.Wrap(err, "report: add new locations sheet")
	}
	headerRow(sheet, "Brand", "Name", "Address", "City", "State", "Zip", "First Seen", "Strategy")
	for _, l := range locs {
		row := sheet.AddRow()
		row.AddCell().Value = l.BrandID
		row.AddCell().Value = l.Name
		row.AddCell().Value = l.Address
		row.AddCell().Value = l.City
		row.AddCell().Value = l.State
		row.AddCell().Value = l.Zip
		row.AddCell().Value = l.FirstSeenAt.Format("2006-01-02")
		row.AddCell().Value = l.Strategy
	}
	return nil
}

func writeRunsSheet(file *xlsx.File, runs []model.ScanRun) error {
	sheet, err := file.AddSheet("Scan Runs")
	if err != nil {
		return eris.Wrap(err, "report: add runs sheet")
	}
	headerRow(sheet, "Brand", "Status", "Strategy", "Locations", "Added", "Removed", "Started")
	for _, r := range runs {
		row := sheet.AddRow()
		row.AddCell().Value = r.BrandID
		row.AddCell().Value = string(r.Status)
		row.AddCell().Value = r.Strategy
		row.AddCell().Value = strconv.Itoa(r.Locations)
		row.AddCell().Value = strconv.Itoa(r.Added)
		row.AddCell().Value = strconv.Itoa(r.Removed)
		row.AddCell().Value = r.StartedAt.Format("2006-01-02 15:04")
	}
	return nil
}
