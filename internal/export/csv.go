// File: internal/export/csv.go

// Package export writes analysis results to files: the BOM CSV and the
// generated firmware source. Both formats are compatibility contracts with
// downstream consumers of the exported files.
package export

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xkilldash9x/circuitscope-cli/api/schemas"
)

// bomCSVHeader is fixed; do not reorder or rename columns.
var bomCSVHeader = []string{
	"Part Number", "Description", "Manufacturer", "Qty", "Designators",
	"Unit Price (USD)", "Total Price (USD)", "CAD Link",
}

const cadSearchURL = "https://www.snapeda.com/search/?q="

// WriteBOMCSV renders a BOM result as CSV. Description and designators are
// double-quote escaped, unit prices carry 4 decimal places, totals 2. The
// CAD link column falls back to a constructed search URL when the backend
// found no explicit link. encoding/csv is deliberately not used: it quotes
// conditionally, and the exported format quotes exactly two columns, always.
func WriteBOMCSV(w io.Writer, res *schemas.BOMResult) error {
	var b strings.Builder
	b.WriteString(strings.Join(bomCSVHeader, ","))

	for _, item := range res.Items {
		row := []string{
			item.PartNumber,
			quote(item.Description),
			item.Manufacturer,
			strconv.Itoa(item.Quantity),
			quote(item.Designators),
			strconv.FormatFloat(item.EstimatedUnitPrice, 'f', 4, 64),
			strconv.FormatFloat(item.TotalPrice, 'f', 2, 64),
			cadLink(item),
		}
		b.WriteByte('\n')
		b.WriteString(strings.Join(row, ","))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// BOMCSVFilename is the default export name, e.g. bom_export_2026-08-30.csv.
func BOMCSVFilename(now time.Time) string {
	return fmt.Sprintf("bom_export_%s.csv", now.Format("2006-01-02"))
}

func cadLink(item schemas.BOMItem) string {
	if item.CADLinks.Model3D != "" {
		return item.CADLinks.Model3D
	}
	if item.CADLinks.Footprint != "" {
		return item.CADLinks.Footprint
	}
	return cadSearchURL + url.QueryEscape(item.PartNumber)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
