package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FocuswithJustin/Linegra/core/gedcom"
	"github.com/FocuswithJustin/Linegra/internal/archive"
)

const document = `0 @I1@ INDI
1 NAME John /Smith/
1 SEX M
1 OCCU Farmer
1 OCCU Miller
1 FAMS @F1@
0 @I2@ INDI
1 NAME Mary /Jones/
1 SEX F
1 FAMS @F1@
0 @F1@ FAM
1 HUSB @I1@
1 WIFE @I2@
1 MARR
2 DATE 1920
`

func TestWrite(t *testing.T) {
	result := gedcom.Parse(document)
	in := Input{
		Tree:    archive.Tree{Name: "Smith Family", Description: "test"},
		Dataset: result.Dataset(),
		Imports: []archive.ImportRecord{
			{FileName: "a.ged", CreatedAt: "2024-01-01", Warnings: []string{"first", "second"}},
			{FileName: "b.ged", CreatedAt: "2024-02-01", Warnings: []string{"third"}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, in))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetPeople, SheetRelationships, SheetWarnings}, f.GetSheetList())

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tree", "Smith Family"}, summary[0])
	assert.Equal(t, []string{"People", "2"}, summary[4])
	assert.Equal(t, []string{"Warnings", "3"}, summary[7])

	people, err := f.GetRows(SheetPeople)
	require.NoError(t, err)
	require.Len(t, people, 3)
	assert.Equal(t, "First Name", people[0][1])
	assert.Equal(t, "John", people[1][1])
	assert.Equal(t, "Farmer; Miller", people[1][10])

	rels, err := f.GetRows(SheetRelationships)
	require.NoError(t, err)
	require.Len(t, rels, 2)
	assert.Equal(t, []string{"marriage", "John Smith", "Mary Jones", "1920"}, rels[1][:4])

	warnings, err := f.GetRows(SheetWarnings)
	require.NoError(t, err)
	require.Len(t, warnings, 4)
	assert.Equal(t, []string{"2024-02-01", "b.ged", "third"}, warnings[3])
}

func TestBuildEmptyTree(t *testing.T) {
	f, err := Build(Input{Tree: archive.Tree{Name: "Empty"}})
	require.NoError(t, err)
	defer f.Close()

	people, err := f.GetRows(SheetPeople)
	require.NoError(t, err)
	assert.Len(t, people, 1)
}
