package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedImport is returned for uploads that are neither .csv nor .xlsx.
var ErrUnsupportedImport = errors.New("unsupported file format: must be .csv or .xlsx")

// ErrInvalidImport wraps every ImportArticles failure caused by the file
// itself rather than by the store.
var ErrInvalidImport = errors.New("invalid import file")

// ImportRowError represents a single field-level error on one row.
type ImportRowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ArticleImport is returned after parsing and validating an uploaded catalog file.
type ArticleImport struct {
	TotalRows int              `json:"total_rows"`
	ValidRows int              `json:"valid_rows"`
	ErrorRows int              `json:"error_rows"`
	Saved     int              `json:"saved"`
	Errors    []ImportRowError `json:"errors"`
	Articles  []Article        `json:"-"`
	FileName  string           `json:"-"`
}

// articleColumns lists the template headers; aliases are matched
// case-insensitively.
var articleColumns = []struct {
	Key      string
	Label    string
	Required bool
	Aliases  []string
}{
	{"code", "Codice", true, []string{"code", "codice articolo", "cod."}},
	{"description", "Descrizione", true, []string{"description", "descr."}},
	{"unit", "Unità", false, []string{"unit", "unita", "um", "u.m."}},
	{"unit_price", "Prezzo", true, []string{"unit price", "unit_price", "prezzo unitario", "price"}},
	{"vat_rate", "IVA %", false, []string{"iva", "vat", "vat_rate", "aliquota"}},
}

// parseCSV reads a CSV file and returns headers + data rows. Both comma and
// semicolon separated files are accepted.
func parseCSV(file io.Reader) ([]string, [][]string, error) {
	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	if firstLine, _, _ := bytes.Cut(raw, []byte("\n")); bytes.Count(firstLine, []byte(";")) > bytes.Count(firstLine, []byte(",")) {
		reader.Comma = ';'
	}

	allRows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(allRows) < 2 {
		return nil, nil, fmt.Errorf("file must contain a header row and at least one data row")
	}

	headers := allRows[0]
	dataRows := allRows[1:]
	return headers, dataRows, nil
}

// parseExcel reads an xlsx file and returns headers + data rows from the first sheet.
func parseExcel(file io.Reader) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("file must contain a header row and at least one data row")
	}

	headers := rows[0]
	dataRows := rows[1:]
	return headers, dataRows, nil
}

// mapArticleHeaders maps uploaded column headers to article keys.
// Returns ordered list of keys (one per column) and any unrecognized columns.
func mapArticleHeaders(headers []string) ([]string, []string) {
	lookup := make(map[string]string)
	for _, c := range articleColumns {
		lookup[strings.ToLower(c.Label)] = c.Key
		lookup[c.Key] = c.Key
		for _, a := range c.Aliases {
			lookup[a] = c.Key
		}
	}

	mapped := make([]string, len(headers))
	var unrecognized []string

	for i, h := range headers {
		norm := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		// Strip trailing " *" that the template adds for required fields
		norm = strings.TrimSpace(strings.TrimSuffix(norm, " *"))

		if key, ok := lookup[norm]; ok {
			mapped[i] = key
		} else {
			unrecognized = append(unrecognized, h)
		}
	}
	return mapped, unrecognized
}

// ParseArticleFile parses and validates an uploaded catalog file. A blank
// VAT column falls back to defaultVAT.
func ParseArticleFile(file io.Reader, fileName string, defaultVAT float64) (*ArticleImport, error) {
	var headers []string
	var dataRows [][]string
	var err error

	lowerName := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lowerName, ".csv"):
		headers, dataRows, err = parseCSV(file)
	case strings.HasSuffix(lowerName, ".xlsx"):
		headers, dataRows, err = parseExcel(file)
	default:
		return nil, ErrUnsupportedImport
	}
	if err != nil {
		return nil, err
	}

	columnKeys, _ := mapArticleHeaders(headers)
	present := make(map[string]bool, len(columnKeys))
	for _, k := range columnKeys {
		present[k] = true
	}
	for _, c := range articleColumns {
		if c.Required && !present[c.Key] {
			return nil, fmt.Errorf("missing required column %q", c.Label)
		}
	}

	result := &ArticleImport{
		FileName: fileName,
		Articles: make([]Article, 0, len(dataRows)),
	}
	errorRows := make(map[int]bool)

	for rowIdx, row := range dataRows {
		rowNum := rowIdx + 2 // 1-indexed, +1 for header row
		rowData := make(map[string]string)
		for colIdx, key := range columnKeys {
			if key == "" || colIdx >= len(row) {
				continue
			}
			rowData[key] = strings.TrimSpace(row[colIdx])
		}
		if isBlankRow(rowData) {
			continue
		}
		result.TotalRows++

		rowErrors := validateArticleRow(rowNum, rowData)
		price, err := parseImportNumber(rowData["unit_price"])
		if err != nil && rowData["unit_price"] != "" {
			rowErrors = append(rowErrors, ImportRowError{Row: rowNum, Field: "Prezzo", Message: "Prezzo non è un numero valido"})
		} else if price < 0 {
			rowErrors = append(rowErrors, ImportRowError{Row: rowNum, Field: "Prezzo", Message: "Prezzo non può essere negativo"})
		}

		vat := defaultVAT
		if v := rowData["vat_rate"]; v != "" {
			vat, err = parseImportNumber(strings.TrimSuffix(v, "%"))
			if err != nil || vat < 0 || vat > 100 {
				rowErrors = append(rowErrors, ImportRowError{Row: rowNum, Field: "IVA %", Message: "IVA deve essere un numero tra 0 e 100"})
			}
		}

		if len(rowErrors) > 0 {
			result.Errors = append(result.Errors, rowErrors...)
			errorRows[rowNum] = true
			continue
		}
		result.Articles = append(result.Articles, Article{
			Code:        rowData["code"],
			Description: rowData["description"],
			Unit:        rowData["unit"],
			UnitPrice:   Round2(price),
			VATRate:     vat,
		})
	}

	result.ErrorRows = len(errorRows)
	result.ValidRows = result.TotalRows - result.ErrorRows
	return result, nil
}

// ImportArticles parses the file and, when every row is valid, upserts the
// articles by code. Files with row errors are not written at all.
func ImportArticles(ctx context.Context, store CatalogStore, sess Session, file io.Reader, fileName string, defaultVAT float64) (*ArticleImport, error) {
	result, err := ParseArticleFile(file, fileName, defaultVAT)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImport, err)
	}
	if result.ErrorRows > 0 || len(result.Articles) == 0 {
		return result, nil
	}
	saved, err := store.SaveArticles(ctx, sess, result.Articles)
	if err != nil {
		return nil, fmt.Errorf("save articles: %w", err)
	}
	result.Saved = saved
	return result, nil
}

func validateArticleRow(rowNum int, data map[string]string) []ImportRowError {
	var errs []ImportRowError
	for _, c := range articleColumns {
		if c.Required && data[c.Key] == "" {
			errs = append(errs, ImportRowError{
				Row:     rowNum,
				Field:   c.Label,
				Message: fmt.Sprintf("%s è obbligatorio", c.Label),
			})
		}
	}
	if len(data["code"]) > 64 {
		errs = append(errs, ImportRowError{Row: rowNum, Field: "Codice", Message: "Codice troppo lungo (max 64 caratteri)"})
	}
	return errs
}

func isBlankRow(data map[string]string) bool {
	for _, v := range data {
		if v != "" {
			return false
		}
	}
	return true
}

// parseImportNumber reads "1234.5", "1.234,50" and "€ 12,00".
func parseImportNumber(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "€"))
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return v, nil
}

// GenerateArticleTemplate creates an empty catalog workbook with the
// expected headers; required columns are marked with " *".
func GenerateArticleTemplate() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Articoli"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, c := range articleColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		label := c.Label
		if c.Required {
			label += " *"
		}
		f.SetCellValue(sheet, cell, label)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}
	f.SetColWidth(sheet, "A", "A", 16)
	f.SetColWidth(sheet, "B", "B", 48)
	f.SetColWidth(sheet, "C", "E", 12)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write template: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateErrorReport creates a downloadable .xlsx file from import errors.
func GenerateErrorReport(errors []ImportRowError) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Errori"
	defaultSheet := f.GetSheetName(0)
	f.SetSheetName(defaultSheet, sheet)

	// Header style
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DC2626"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    thinBorders(),
	})

	// Headers
	f.SetCellValue(sheet, "A1", "Riga")
	f.SetCellValue(sheet, "B1", "Campo")
	f.SetCellValue(sheet, "C1", "Errore")
	f.SetCellStyle(sheet, "A1", "C1", headerStyle)
	f.SetColWidth(sheet, "A", "A", 8)
	f.SetColWidth(sheet, "B", "B", 22)
	f.SetColWidth(sheet, "C", "C", 55)

	for i, e := range errors {
		row := fmt.Sprintf("%d", i+2)
		f.SetCellValue(sheet, "A"+row, e.Row)
		f.SetCellValue(sheet, "B"+row, e.Field)
		f.SetCellValue(sheet, "C"+row, sanitizeExcelCell(e.Message))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write error report: %w", err)
	}
	return buf.Bytes(), nil
}
