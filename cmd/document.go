package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/aimcr/aimcr/internal/models"
	"github.com/aimcr/aimcr/internal/store"
)

// loadedDocument is a review read from a draft or from a JSON file.
type loadedDocument struct {
	Doc *models.ReviewDocument
	// Draft is the resolved draft handle, empty when read from a file.
	Draft string
	Path  string
}

// isFileArg reports whether arg names a file rather than a draft handle.
func isFileArg(arg string) bool {
	if strings.ContainsRune(arg, filepath.Separator) || strings.Contains(arg, "/") {
		return true
	}
	info, err := os.Stat(arg)
	return err == nil && !info.IsDir()
}

// loadDocument accepts a draft handle (or unique prefix) or a path to a
// review JSON file.
func loadDocument(arg string) (*loadedDocument, error) {
	if isFileArg(arg) {
		doc, err := store.ReadDocument(arg)
		if err != nil {
			return nil, err
		}
		return &loadedDocument{Doc: doc, Path: arg}, nil
	}

	svc, err := getService()
	if err != nil {
		return nil, err
	}
	name, doc, err := svc.LoadDraft(arg)
	if err != nil {
		return nil, err
	}
	return &loadedDocument{
		Doc:   doc,
		Draft: name,
		Path:  filepath.Join(svc.Documents().Root(), store.DraftsDir, name),
	}, nil
}
