package ingestion

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	docx "github.com/fumiama/go-docx"
	pdf "github.com/ledongthuc/pdf"
	excelize "github.com/xuri/excelize/v2"
)

// SourceDocument is one supported file loaded into plain text. Source is
// the bare filename and is carried through chunking as the citation tag.
type SourceDocument struct {
	Source  string
	Format  Format
	Content string
}

// Parser extracts plain text from one document format.
type Parser interface {
	Parse(path string) (string, error)
}

func parserFor(format Format) Parser {
	switch format {
	case FormatPDF:
		return pdfParser{}
	case FormatDocx:
		return docxParser{}
	case FormatXLSX:
		return xlsxParser{}
	default:
		return nil
	}
}

type pdfParser struct{}

func (pdfParser) Parse(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	return normalizePlainText(buf.String()), nil
}

type docxParser struct{}

func (docxParser) Parse(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat docx: %w", err)
	}

	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}

	var sb strings.Builder
	for _, item := range doc.Document.Body.Items {
		switch item.(type) {
		case *docx.Paragraph, *docx.Table:
			fmt.Fprintln(&sb, item)
		}
	}

	return normalizePlainText(sb.String()), nil
}

type xlsxParser struct{}

func (xlsxParser) Parse(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}

		sb.WriteString("Sheet: " + sheet + "\n")
		for _, row := range rows {
			cells := make([]string, 0, len(row))
			for _, cell := range row {
				if trimmed := strings.TrimSpace(cell); trimmed != "" {
					cells = append(cells, trimmed)
				}
			}
			if len(cells) == 0 {
				continue
			}
			sb.WriteString(strings.Join(cells, " | "))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return normalizePlainText(sb.String()), nil
}

func normalizePlainText(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
