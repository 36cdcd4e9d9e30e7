package services

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const quotesSheet = "Preventivi"

var quoteColumns = []struct {
	Name  string
	Label string
	Width float64
}{
	{"A", "Numero", 14},
	{"B", "Data", 12},
	{"C", "Cliente", 36},
	{"D", "P.IVA", 16},
	{"E", "Righe", 8},
	{"F", "Imponibile", 16},
	{"G", "IVA", 14},
	{"H", "Totale", 16},
}

// GenerateQuotesExcel writes the quote list to an xlsx workbook, one row per
// quote, followed by a grand-total row.
func GenerateQuotesExcel(title string, quotes []Quote) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, quotesSheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}
	if title == "" {
		title = "Elenco preventivi"
	}

	lastCol := quoteColumns[len(quoteColumns)-1].Name
	for _, col := range quoteColumns {
		if err := f.SetColWidth(quotesSheet, col.Name, col.Name, col.Width); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", col.Name, err)
		}
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 16},
	})
	if err != nil {
		return nil, fmt.Errorf("create title style: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:  true,
			Color: "#FFFFFF",
			Size:  11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#333333"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	textStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 10},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create text style: %w", err)
	}

	euro := `"€" #,##0.00`
	amountStyle, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Size: 10},
		Border:       thinBorders(),
		CustomNumFmt: &euro,
	})
	if err != nil {
		return nil, fmt.Errorf("create amount style: %w", err)
	}

	totalStyle, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true, Size: 11},
		Border:       thinBorders(),
		CustomNumFmt: &euro,
	})
	if err != nil {
		return nil, fmt.Errorf("create total style: %w", err)
	}

	// Row 1: title, row 3: column headers, data from row 4.
	if err := f.MergeCell(quotesSheet, "A1", lastCol+"1"); err != nil {
		return nil, fmt.Errorf("merge title: %w", err)
	}
	f.SetCellValue(quotesSheet, "A1", sanitizeExcelCell(title))
	f.SetCellStyle(quotesSheet, "A1", lastCol+"1", titleStyle)

	for _, col := range quoteColumns {
		f.SetCellValue(quotesSheet, col.Name+"3", col.Label)
	}
	f.SetCellStyle(quotesSheet, "A3", lastCol+"3", headerStyle)

	row := 4
	var subtotal, vat, total float64
	for _, q := range quotes {
		r := fmt.Sprintf("%d", row)
		f.SetCellValue(quotesSheet, "A"+r, sanitizeExcelCell(q.Number))
		f.SetCellValue(quotesSheet, "B"+r, FormatDate(q.Date))
		f.SetCellValue(quotesSheet, "C"+r, sanitizeExcelCell(q.Customer.Name))
		f.SetCellValue(quotesSheet, "D"+r, sanitizeExcelCell(q.Customer.VATNumber))
		f.SetCellValue(quotesSheet, "E"+r, len(q.Items))
		f.SetCellValue(quotesSheet, "F"+r, q.Subtotal)
		f.SetCellValue(quotesSheet, "G"+r, q.VATTotal)
		f.SetCellValue(quotesSheet, "H"+r, q.Total)
		f.SetCellStyle(quotesSheet, "A"+r, "E"+r, textStyle)
		f.SetCellStyle(quotesSheet, "F"+r, "H"+r, amountStyle)

		subtotal += q.Subtotal
		vat += q.VATTotal
		total += q.Total
		row++
	}

	r := fmt.Sprintf("%d", row+1)
	f.SetCellValue(quotesSheet, "E"+r, "Totale")
	f.SetCellValue(quotesSheet, "F"+r, Round2(subtotal))
	f.SetCellValue(quotesSheet, "G"+r, Round2(vat))
	f.SetCellValue(quotesSheet, "H"+r, Round2(total))
	f.SetCellStyle(quotesSheet, "E"+r, "H"+r, totalStyle)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}

	return buf.Bytes(), nil
}

// sanitizeExcelCell prevents formula injection by prefixing dangerous leading
// characters with a single quote. Excel interprets cells starting with =, +, -,
// @, \t or \r as formulas, which can be abused for code execution or data theft.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

// thinBorders returns a slice of excelize.Border for thin borders on all four sides.
func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{
			Type:  side,
			Color: "#000000",
			Style: 1, // thin
		}
	}
	return borders
}
