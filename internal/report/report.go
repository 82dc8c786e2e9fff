// Package report renders a tree as an XLSX workbook with summary, people,
// relationships, and import warning sheets.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/FocuswithJustin/Linegra/core/lineage"
	"github.com/FocuswithJustin/Linegra/internal/archive"
)

// Sheet names.
const (
	SheetSummary       = "Summary"
	SheetPeople        = "People"
	SheetRelationships = "Relationships"
	SheetWarnings      = "Warnings"
)

// ContentType is the media type of a written workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	peopleHeader = []any{
		"ID", "First Name", "Last Name", "Gender", "Birth Date", "Birth Place",
		"Death Date", "Death Place", "Burial Date", "Burial Place", "Occupations",
		"Events", "Sources", "Notes",
	}
	relationshipHeader = []any{
		"Type", "Person", "Related Person", "Date", "Place", "Status", "Confidence",
	}
	warningHeader = []any{"Imported At", "File", "Warning"}
)

// Input is everything one workbook shows.
type Input struct {
	Tree    archive.Tree
	Dataset lineage.Dataset
	Imports []archive.ImportRecord
}

// Build lays out the workbook. The caller closes the returned file.
func Build(in Input) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetPeople, SheetRelationships, SheetWarnings} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create style: %w", err)
	}

	w := &writer{f: f, header: header}
	w.summary(in)
	w.people(in.Dataset)
	w.relationships(in.Dataset)
	w.warnings(in.Imports)
	if w.err != nil {
		f.Close()
		return nil, w.err
	}
	return f, nil
}

// Write builds the workbook and writes it to out.
func Write(out io.Writer, in Input) error {
	f, err := Build(in)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// writer keeps the first error of a run of cell writes.
type writer struct {
	f      *excelize.File
	header int
	err    error
}

func (w *writer) row(sheet string, n int, values []any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	row := values
	if err := w.f.SetSheetRow(sheet, cell, &row); err != nil {
		w.err = fmt.Errorf("write %s row %d: %w", sheet, n, err)
	}
}

func (w *writer) headerRow(sheet string, values []any) {
	w.row(sheet, 1, values)
	if w.err != nil {
		return
	}
	last, err := excelize.CoordinatesToCellName(len(values), 1)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetCellStyle(sheet, "A1", last, w.header); err != nil {
		w.err = fmt.Errorf("style %s header: %w", sheet, err)
		return
	}
	if err := w.f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		w.err = fmt.Errorf("freeze %s header: %w", sheet, err)
	}
}

func (w *writer) summary(in Input) {
	warnings := 0
	for _, imp := range in.Imports {
		warnings += len(imp.Warnings)
	}
	rows := [][]any{
		{"Tree", in.Tree.Name},
		{"Description", in.Tree.Description},
		{"Created", in.Tree.CreatedAt},
		{"Updated", in.Tree.UpdatedAt},
		{"People", len(in.Dataset.People)},
		{"Relationships", len(in.Dataset.Relationships)},
		{"Imports", len(in.Imports)},
		{"Warnings", warnings},
	}
	for i, r := range rows {
		w.row(SheetSummary, i+1, r)
	}
	if w.err == nil {
		w.err = w.f.SetColWidth(SheetSummary, "A", "A", 16)
	}
}

func (w *writer) people(ds lineage.Dataset) {
	w.headerRow(SheetPeople, peopleHeader)
	for i, p := range ds.People {
		w.row(SheetPeople, i+2, []any{
			p.ID, p.FirstName, p.LastName, string(p.Gender), p.BirthDate, p.BirthPlace,
			p.DeathDate, p.DeathPlace, p.BurialDate, p.BurialPlace,
			strings.Join(p.Occupations, "; "), len(p.Events), len(p.Sources), len(p.Notes),
		})
	}
}

func (w *writer) relationships(ds lineage.Dataset) {
	names := make(map[string]string, len(ds.People))
	for i := range ds.People {
		names[ds.People[i].ID] = ds.People[i].FullName()
	}
	label := func(id string) string {
		if n := names[id]; n != "" {
			return n
		}
		return id
	}

	w.headerRow(SheetRelationships, relationshipHeader)
	for i, r := range ds.Relationships {
		w.row(SheetRelationships, i+2, []any{
			string(r.Type), label(r.PersonID), label(r.RelatedID), r.Date, r.Place,
			string(r.Status), string(r.Confidence),
		})
	}
}

func (w *writer) warnings(imports []archive.ImportRecord) {
	w.headerRow(SheetWarnings, warningHeader)
	n := 2
	for _, imp := range imports {
		for _, msg := range imp.Warnings {
			w.row(SheetWarnings, n, []any{imp.CreatedAt, imp.FileName, msg})
			n++
		}
	}
}
