package ingestion_test

import (
	"strings"
	"testing"

	"github.com/arcdesk/docbot/ingestion"
)

func TestSplitDocumentsShortDocumentStaysWhole(t *testing.T) {
	docs := []ingestion.SourceDocument{
		{Source: "notes.pdf", Format: ingestion.FormatPDF, Content: "short document"},
	}

	chunks := ingestion.SplitDocuments(docs, 100, 10)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "short document" {
		t.Fatalf("unexpected chunk text: %q", chunks[0].Text)
	}
	if chunks[0].Source != "notes.pdf" {
		t.Fatalf("unexpected source: %q", chunks[0].Source)
	}
	if chunks[0].Index != 0 {
		t.Fatalf("unexpected index: %d", chunks[0].Index)
	}
}

func TestSplitDocumentsWindowsOverlap(t *testing.T) {
	content := "abcdefghijklmnopqrstuvwxy"
	docs := []ingestion.SourceDocument{
		{Source: "alphabet.docx", Format: ingestion.FormatDocx, Content: content},
	}

	chunks := ingestion.SplitDocuments(docs, 10, 2)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Fatalf("chunk %d carries index %d", i, chunk.Index)
		}
		if len([]rune(chunk.Text)) > 10 {
			t.Fatalf("chunk %d exceeds size: %q", i, chunk.Text)
		}
	}

	// Neighbouring windows share the overlap region.
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Text
		tail := prev[len(prev)-2:]
		if !strings.HasPrefix(chunks[i].Text, tail) {
			t.Fatalf("chunk %d does not start with previous tail %q: %q", i, tail, chunks[i].Text)
		}
	}

	// Every rune of the source survives in order.
	joined := chunks[0].Text
	for i := 1; i < len(chunks); i++ {
		joined += chunks[i].Text[2:]
	}
	if joined != content {
		t.Fatalf("reassembled content mismatch: %q", joined)
	}
}

func TestSplitDocumentsTagsEachSource(t *testing.T) {
	docs := []ingestion.SourceDocument{
		{Source: "a.pdf", Content: strings.Repeat("a", 30)},
		{Source: "b.xlsx", Content: strings.Repeat("b", 30)},
	}

	chunks := ingestion.SplitDocuments(docs, 10, 2)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for _, chunk := range chunks {
		if chunk.Source != "a.pdf" && chunk.Source != "b.xlsx" {
			t.Fatalf("unexpected source tag: %q", chunk.Source)
		}
	}
}

func TestSplitDocumentsDefaultsBadSize(t *testing.T) {
	docs := []ingestion.SourceDocument{{Source: "a.pdf", Content: "hello"}}
	chunks := ingestion.SplitDocuments(docs, 0, -1)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
}

func TestSplitDocumentsSkipsEmptyContent(t *testing.T) {
	docs := []ingestion.SourceDocument{{Source: "empty.pdf", Content: ""}}
	if chunks := ingestion.SplitDocuments(docs, 10, 2); len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
}
