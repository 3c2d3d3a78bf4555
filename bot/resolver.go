package bot

import (
	"context"
	"fmt"
	"os"

	"github.com/arcdesk/docbot/ingestion"
)

// FolderResolver turns a folder reference supplied by the user into a
// local directory the corpus loader can read. Remote backends (shared
// drives and the like) implement this by fetching files first; the core
// stays agnostic.
type FolderResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// LocalFolders resolves references that are already local paths.
type LocalFolders struct{}

func (LocalFolders) Resolve(_ context.Context, ref string) (string, error) {
	info, err := os.Stat(ref)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ingestion.ErrInvalidFolderPath, ref)
	}
	return ref, nil
}

var _ FolderResolver = LocalFolders{}
