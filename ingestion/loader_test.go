package ingestion_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/arcdesk/docbot/ingestion"
)

func writeWorkbook(t *testing.T, path string, rows [][]string) {
	t.Helper()

	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	if err := wb.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	if err := wb.Close(); err != nil {
		t.Fatalf("close workbook: %v", err)
	}
}

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		path string
		want ingestion.Format
	}{
		{"report.pdf", ingestion.FormatPDF},
		{"REPORT.PDF", ingestion.FormatPDF},
		{"minutes.docx", ingestion.FormatDocx},
		{"budget.xlsx", ingestion.FormatXLSX},
		{"notes.txt", ingestion.FormatUnknown},
		{"archive.doc", ingestion.FormatUnknown},
		{"noextension", ingestion.FormatUnknown},
	}

	for _, tc := range cases {
		if got := ingestion.DetectFormat(tc.path); got != tc.want {
			t.Fatalf("DetectFormat(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestLoadFolderReadsWorkbook(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "budget.xlsx"), [][]string{
		{"Item", "Cost"},
		{"Concrete foundation", "42000"},
	})

	loader := ingestion.NewLoader(nil)
	docs, err := loader.LoadFolder(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].Source != "budget.xlsx" {
		t.Fatalf("unexpected source: %q", docs[0].Source)
	}
	if docs[0].Format != ingestion.FormatXLSX {
		t.Fatalf("unexpected format: %q", docs[0].Format)
	}
	for _, want := range []string{"Concrete foundation", "42000"} {
		if !strings.Contains(docs[0].Content, want) {
			t.Fatalf("content missing %q:\n%s", want, docs[0].Content)
		}
	}
}

func TestLoadFolderSkipsUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "budget.xlsx"), [][]string{{"Item", "Cost"}})
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("plain notes"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	loader := ingestion.NewLoader(nil)
	docs, err := loader.LoadFolder(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 || docs[0].Source != "budget.xlsx" {
		t.Fatalf("expected only the workbook, got %v", ingestion.Filenames(docs))
	}
}

func TestLoadFolderNoValidFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("plain notes"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	loader := ingestion.NewLoader(nil)
	if _, err := loader.LoadFolder(dir); !errors.Is(err, ingestion.ErrNoValidFiles) {
		t.Fatalf("expected ErrNoValidFiles, got %v", err)
	}
}

func TestLoadFolderSkipsCorruptDocuments(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "budget.xlsx"), [][]string{{"Item"}})
	if err := os.WriteFile(filepath.Join(dir, "broken.xlsx"), []byte("not a workbook"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	loader := ingestion.NewLoader(nil)
	docs, err := loader.LoadFolder(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 || docs[0].Source != "budget.xlsx" {
		t.Fatalf("expected the corrupt workbook skipped, got %v", ingestion.Filenames(docs))
	}
}

func TestLoadFolderInvalidPath(t *testing.T) {
	loader := ingestion.NewLoader(nil)
	if _, err := loader.LoadFolder(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, ingestion.ErrInvalidFolderPath) {
		t.Fatalf("expected ErrInvalidFolderPath, got %v", err)
	}
}

func TestContextUsagePercent(t *testing.T) {
	if got := ingestion.ContextUsagePercent(32000, 128000); got != 25 {
		t.Fatalf("expected 25, got %v", got)
	}
	if got := ingestion.ContextUsagePercent(300000, 128000); got != 100 {
		t.Fatalf("expected cap at 100, got %v", got)
	}
	if got := ingestion.ContextUsagePercent(1000, 0); got != 0 {
		t.Fatalf("expected 0 for missing budget, got %v", got)
	}
}
