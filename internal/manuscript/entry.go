// Package manuscript models the top-level entry document the typesetting
// engine is invoked against, and the build-scope selection applied to it.
package manuscript

import (
	"os"
	"path/filepath"

	apperrors "git.home.luguber.info/inful/bookforge/internal/errors"
)

// EntryDocument is the single top-level manuscript file consumed by the
// typesetting engine. Name is the file name relative to the manuscript root;
// Content is the full document text.
type EntryDocument struct {
	Name    string
	Content string
}

// LoadEntry reads the entry document from the manuscript root.
func LoadEntry(root, name string) (EntryDocument, error) {
	data, err := os.ReadFile(filepath.Join(root, name))
	if err != nil {
		return EntryDocument{}, apperrors.WorkspaceError("read entry document", err)
	}
	return EntryDocument{Name: name, Content: string(data)}, nil
}
