package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestParseCSV_Valid(t *testing.T) {
	input := "Codice,Descrizione,Prezzo\nA1,Stampante,100\nA2,Toner,20\n"
	headers, rows, err := parseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parseCSV() error = %v", err)
	}
	if len(headers) != 3 {
		t.Errorf("expected 3 headers, got %d", len(headers))
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 data rows, got %d", len(rows))
	}
}

func TestParseCSV_Semicolon(t *testing.T) {
	input := "Codice;Descrizione;Prezzo\nA1;Stampante;1.234,50\n"
	headers, rows, err := parseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parseCSV() error = %v", err)
	}
	if len(headers) != 3 || rows[0][2] != "1.234,50" {
		t.Errorf("semicolon file parsed as %v / %v", headers, rows)
	}
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	input := "Codice,Descrizione,Prezzo\n"
	_, _, err := parseCSV(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected error for header-only file")
	}
	if !strings.Contains(err.Error(), "at least one data row") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseCSV_Empty(t *testing.T) {
	_, _, err := parseCSV(strings.NewReader(""))
	if err == nil {
		t.Error("expected error for empty file")
	}
}

func TestMapArticleHeaders(t *testing.T) {
	headers := []string{"\ufeffCodice *", "descrizione", "U.M.", "Prezzo unitario", "IVA", "Note"}
	mapped, unrecognized := mapArticleHeaders(headers)

	want := []string{"code", "description", "unit", "unit_price", "vat_rate", ""}
	for i := range want {
		if mapped[i] != want[i] {
			t.Errorf("column %d mapped to %q, want %q", i, mapped[i], want[i])
		}
	}
	if len(unrecognized) != 1 || unrecognized[0] != "Note" {
		t.Errorf("unrecognized = %v, want [Note]", unrecognized)
	}
}

func TestParseImportNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"100", 100, false},
		{"12.5", 12.5, false},
		{"1.234,50", 1234.5, false},
		{"€ 12,00", 12, false},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseImportNumber(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseImportNumber(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseImportNumber(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseArticleFile_RowErrors(t *testing.T) {
	input := "Codice,Descrizione,Unità,Prezzo,IVA %\n" +
		"A1,Stampante,pz,\"1.200,00\",\n" +
		",Toner,pz,20,22\n" +
		"A3,Carta,risma,xyz,150\n" +
		",,,,\n" +
		"A4,Assistenza,h,45,4%\n"

	res, err := ParseArticleFile(strings.NewReader(input), "catalogo.csv", 22)
	if err != nil {
		t.Fatalf("ParseArticleFile() error = %v", err)
	}
	if res.TotalRows != 4 {
		t.Errorf("TotalRows = %d, want 4 (blank row skipped)", res.TotalRows)
	}
	if res.ErrorRows != 2 || res.ValidRows != 2 {
		t.Errorf("ErrorRows/ValidRows = %d/%d, want 2/2", res.ErrorRows, res.ValidRows)
	}
	if len(res.Errors) != 3 {
		t.Errorf("expected 3 errors (code, price, vat), got %+v", res.Errors)
	}
	if res.Errors[0].Row != 3 || res.Errors[0].Field != "Codice" {
		t.Errorf("first error = %+v, want row 3 Codice", res.Errors[0])
	}

	if len(res.Articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(res.Articles))
	}
	if a := res.Articles[0]; a.Code != "A1" || a.UnitPrice != 1200 || a.VATRate != 22 || a.Unit != "pz" {
		t.Errorf("first article = %+v", a)
	}
	if a := res.Articles[1]; a.Code != "A4" || a.VATRate != 4 {
		t.Errorf("second article = %+v", a)
	}
}

func TestParseArticleFile_MissingColumn(t *testing.T) {
	input := "Codice,Descrizione\nA1,Stampante\n"
	_, err := ParseArticleFile(strings.NewReader(input), "a.csv", 22)
	if err == nil || !strings.Contains(err.Error(), "Prezzo") {
		t.Errorf("expected missing Prezzo column error, got %v", err)
	}
}

func TestParseArticleFile_Unsupported(t *testing.T) {
	_, err := ParseArticleFile(strings.NewReader("x"), "a.pdf", 22)
	if !errors.Is(err, ErrUnsupportedImport) {
		t.Errorf("expected ErrUnsupportedImport, got %v", err)
	}
}

func TestParseArticleFile_Excel(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetSheetRow(sheet, "A1", &[]any{"Codice", "Descrizione", "Prezzo"})
	f.SetSheetRow(sheet, "A2", &[]any{"X9", "Monitor 27\"", 249.9})
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	f.Close()

	res, err := ParseArticleFile(&buf, "Catalogo.XLSX", 10)
	if err != nil {
		t.Fatalf("ParseArticleFile() error = %v", err)
	}
	if len(res.Articles) != 1 {
		t.Fatalf("expected 1 article, got %+v", res)
	}
	if a := res.Articles[0]; a.Code != "X9" || a.UnitPrice != 249.9 || a.VATRate != 10 {
		t.Errorf("article = %+v", a)
	}
}

func TestImportArticles(t *testing.T) {
	store := newMemStore()
	sess := Session{OperatorID: "op1"}

	bad := "Codice,Descrizione,Prezzo\n,Stampante,100\n"
	res, err := ImportArticles(context.Background(), store, sess, strings.NewReader(bad), "a.csv", 22)
	if err != nil {
		t.Fatalf("ImportArticles() error = %v", err)
	}
	if res.Saved != 0 || len(store.articles) != 0 {
		t.Errorf("file with errors must not be saved: saved=%d stored=%d", res.Saved, len(store.articles))
	}

	good := "Codice,Descrizione,Prezzo\nA1,Stampante,100\nA2,Toner,20\n"
	res, err = ImportArticles(context.Background(), store, sess, strings.NewReader(good), "a.csv", 22)
	if err != nil {
		t.Fatalf("ImportArticles() error = %v", err)
	}
	if res.Saved != 2 || len(store.articles) != 2 {
		t.Errorf("saved=%d stored=%d, want 2/2", res.Saved, len(store.articles))
	}
}

func TestImportArticles_StoreFailure(t *testing.T) {
	store := newMemStore()
	store.failOn["SaveArticles"] = errors.New("disk full")

	good := "Codice,Descrizione,Prezzo\nA1,Stampante,100\n"
	_, err := ImportArticles(context.Background(), store, Session{OperatorID: "op1"}, strings.NewReader(good), "a.csv", 22)
	if err == nil {
		t.Fatal("expected store error")
	}
	if errors.Is(err, ErrInvalidImport) {
		t.Errorf("store failure reported as invalid file: %v", err)
	}
}

func TestImportArticles_InvalidFile(t *testing.T) {
	_, err := ImportArticles(context.Background(), newMemStore(), Session{OperatorID: "op1"}, strings.NewReader("x"), "a.pdf", 22)
	if !errors.Is(err, ErrInvalidImport) || !errors.Is(err, ErrUnsupportedImport) {
		t.Errorf("err = %v, want ErrInvalidImport wrapping ErrUnsupportedImport", err)
	}
}

func TestGenerateArticleTemplate(t *testing.T) {
	data, err := GenerateArticleTemplate()
	if err != nil {
		t.Fatalf("GenerateArticleTemplate() error = %v", err)
	}

	res, err := ParseArticleFile(bytes.NewReader(appendTemplateRow(t, data)), "t.xlsx", 22)
	if err != nil {
		t.Fatalf("template headers not accepted by the parser: %v", err)
	}
	if len(res.Articles) != 1 {
		t.Errorf("expected 1 article from template, got %+v", res)
	}
}

// appendTemplateRow adds one data row so the template can be fed back
// through the parser.
func appendTemplateRow(t *testing.T, data []byte) []byte {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open template: %v", err)
	}
	defer f.Close()
	f.SetSheetRow("Articoli", "A2", &[]any{"A1", "Stampante", "pz", "100", "22"})
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write template: %v", err)
	}
	return buf.Bytes()
}

func TestGenerateErrorReport(t *testing.T) {
	data, err := GenerateErrorReport([]ImportRowError{
		{Row: 3, Field: "Codice", Message: "Codice è obbligatorio"},
	})
	if err != nil {
		t.Fatalf("GenerateErrorReport() error = %v", err)
	}
	f, err := excelize.OpenReader(bytesReader(data))
	if err != nil {
		t.Fatalf("result is not valid Excel: %v", err)
	}
	defer f.Close()

	got, _ := f.GetCellValue("Errori", "B2")
	if got != "Codice" {
		t.Errorf("B2 = %q, want Codice", got)
	}
}
