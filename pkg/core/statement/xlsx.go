package statement

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// sheetKeywords maps sheet-name keywords to the statement they hold.
var sheetKeywords = map[Kind][]string{
	Income:   {"income", "profit", "p&l", "operations", "earnings"},
	Balance:  {"balance", "financial position", "bs"},
	CashFlow: {"cash"},
}

// ClassifyName guesses the statement kind from a file or sheet name.
func ClassifyName(name string) (Kind, bool) {
	lower := strings.ToLower(name)
	// cash first: "cash flow" exports sometimes also mention "operations"
	for _, k := range []Kind{CashFlow, Balance, Income} {
		for _, kw := range sheetKeywords[k] {
			if kw == "bs" {
				if lower == "bs" || strings.HasPrefix(lower, "bs ") || strings.HasPrefix(lower, "bs_") {
					return k, true
				}
				continue
			}
			if strings.Contains(lower, kw) {
				return k, true
			}
		}
	}
	return "", false
}

// LoadXLSX reads one statement from a workbook. The sheet whose name
// matches the statement kind is used, otherwise the first sheet.
func LoadXLSX(path string, kind Kind, source Source) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", filepath.Base(path))
	}
	sheet := sheets[0]
	for _, name := range sheets {
		if k, ok := ClassifyName(name); ok && k == kind {
			sheet = name
			break
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return NewTable(filepath.Base(path)+"#"+sheet, kind, source, rows)
}

// LoadWorkbook reads every sheet of a workbook that names a statement kind.
// Used for exports that put all three statements in one file.
func LoadWorkbook(path string, source Source) (map[Kind]*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	out := make(map[Kind]*Table)
	for _, name := range f.GetSheetList() {
		kind, ok := ClassifyName(name)
		if !ok || out[kind] != nil {
			continue
		}
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		t, err := NewTable(filepath.Base(path)+"#"+name, kind, source, rows)
		if err != nil {
			return nil, err
		}
		out[kind] = t
	}
	return out, nil
}
