// Package tablehtml inspects table HTML artifacts: structural validation of
// model-corrected markup and row/column statistics for table metadata.
package tablehtml

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Stats summarizes the shape of one table.
type Stats struct {
	RowCount    int
	ColumnCount int
	Headers     []string
}

// Validate checks that the fragment parses and contains at least one <table>
// element with a row. Model output that lost the table entirely fails here
// before it can clobber the artifact on disk.
func Validate(html string) error {
	doc, err := parse(html)
	if err != nil {
		return err
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return fmt.Errorf("no <table> element in fragment")
	}
	if table.Find("tr").Length() == 0 {
		return fmt.Errorf("table has no rows")
	}
	return nil
}

// Inspect derives shape statistics from the first table in the fragment.
// Header cells come from thead when present, falling back to the first row.
func Inspect(html string) (Stats, error) {
	doc, err := parse(html)
	if err != nil {
		return Stats{}, err
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return Stats{}, fmt.Errorf("no <table> element in fragment")
	}

	var stats Stats

	table.Find("thead tr th").Each(func(_ int, th *goquery.Selection) {
		stats.Headers = append(stats.Headers, normalizeText(th.Text()))
	})
	if len(stats.Headers) == 0 {
		table.Find("tr").First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			stats.Headers = append(stats.Headers, normalizeText(cell.Text()))
		})
	}

	stats.RowCount = table.Find("tr").Length()
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cols := 0
		tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			cols++
			if span, ok := cell.Attr("colspan"); ok {
				var n int
				if _, err := fmt.Sscanf(span, "%d", &n); err == nil && n > 1 {
					cols += n - 1
				}
			}
		})
		if cols > stats.ColumnCount {
			stats.ColumnCount = cols
		}
	})

	return stats, nil
}

func parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse table html: %w", err)
	}
	return doc, nil
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
