// Package ingestion turns a folder of heterogeneous documents into plain
// text units tagged with their source filename.
package ingestion

import (
	"path/filepath"
	"strings"
)

// Format enumerates supported document payload formats.
type Format string

const (
	// FormatUnknown represents an unsupported or undetected format.
	FormatUnknown Format = ""
	// FormatPDF represents PDF documents.
	FormatPDF Format = "pdf"
	// FormatDocx represents Word documents.
	FormatDocx Format = "docx"
	// FormatXLSX represents Excel workbooks.
	FormatXLSX Format = "xlsx"
)

// DetectFormat infers a document format from the provided path's extension.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDocx
	case ".xlsx":
		return FormatXLSX
	default:
		return FormatUnknown
	}
}
