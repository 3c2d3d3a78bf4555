package ingestion

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

var (
	// ErrInvalidFolderPath reports a folder reference that does not
	// resolve to an existing directory.
	ErrInvalidFolderPath = errors.New("folder path does not exist")

	// ErrNoValidFiles reports a folder containing no supported documents.
	// Callers must branch on this before indexing; it is not an empty
	// corpus.
	ErrNoValidFiles = errors.New("no supported documents in folder")
)

type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// LoadFolder enumerates the folder (non-recursively, matching how users
// point the assistant at one tracked-documents directory) and loads every
// supported file into plain text. Files that fail to parse are skipped,
// not fatal to the load.
func (l *Loader) LoadFolder(path string) ([]SourceDocument, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFolderPath, path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", path, err)
	}

	documents := make([]SourceDocument, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		format := DetectFormat(entry.Name())
		parser := parserFor(format)
		if parser == nil {
			continue
		}

		content, err := parser.Parse(filepath.Join(path, entry.Name()))
		if err != nil {
			l.logger.Warn("skipping unreadable document",
				zap.String("file", entry.Name()),
				zap.Error(err))
			continue
		}
		if content == "" {
			l.logger.Warn("skipping empty document", zap.String("file", entry.Name()))
			continue
		}

		documents = append(documents, SourceDocument{
			Source:  entry.Name(),
			Format:  format,
			Content: content,
		})
	}

	if len(documents) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoValidFiles, path)
	}

	return documents, nil
}

// Filenames returns the source tags of the loaded documents in order.
func Filenames(documents []SourceDocument) []string {
	names := make([]string, len(documents))
	for i, doc := range documents {
		names[i] = doc.Source
	}
	return names
}
