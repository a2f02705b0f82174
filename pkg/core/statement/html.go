package statement

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LoadHTML reads a statement exported as an HTML table. Many ".xls"
// downloads from data terminals are HTML documents in disguise. The table
// with the most rows is taken as the statement.
func LoadHTML(r io.Reader, name string, kind Kind, source Source) (*Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	var best [][]string
	doc.Find("table").Each(func(i int, table *goquery.Selection) {
		var grid [][]string
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var row []string
			tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
				row = append(row, strings.TrimSpace(cell.Text()))
			})
			if len(row) > 0 {
				grid = append(grid, row)
			}
		})
		if len(grid) > len(best) {
			best = grid
		}
	})

	if len(best) == 0 {
		return nil, fmt.Errorf("no table found in %s", name)
	}
	return NewTable(name, kind, source, best)
}
