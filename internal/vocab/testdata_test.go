package vocab

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

type sheet struct {
	name string
	rows [][]any
}

// writeWorkbook creates an xlsx file with the given sheets in order.
func writeWorkbook(t *testing.T, path string, sheets ...sheet) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				t.Fatal(err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			t.Fatal(err)
		}
		for r, row := range s.rows {
			cell, _ := excelize.CoordinatesToCellName(1, r+1)
			if err := f.SetSheetRow(s.name, cell, &row); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

var (
	alltag = sheet{name: "Alltag", rows: [][]any{
		{"German", "English", "Example (DE)", "Small-talk prompt (DE)"},
		{"die Verabredung", "appointment", "Ich habe eine Verabredung.", "Hast du heute Pläne?"},
		{"sich beeilen", "to hurry", "Beeil dich!", ""},
		{},
		{"der Feierabend", "end of the workday", "Schönen Feierabend!", "Was machst du nach der Arbeit?"},
	}}
	arbeit = sheet{name: "Arbeit", rows: [][]any{
		{"German", "English", "Example (DE)"},
		{"die Besprechung", "meeting", "Die Besprechung dauert lange."},
		{"kündigen", "to resign", "Er hat gekündigt."},
	}}
	slangSheet = sheet{name: DefaultSlangSheet, rows: [][]any{
		{"Expression (DE)", "English", "Example (DE)"},
		{"Alter!", "Dude!", "Alter, was geht?"},
		{"Das ist mir Wurst", "I don't care", "Das ist mir echt Wurst."},
	}}
)

func testWorkbook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocab.xlsx")
	writeWorkbook(t, path, alltag, arbeit, slangSheet)
	return path
}
