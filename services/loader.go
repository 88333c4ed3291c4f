package services

import (
	"crypto/sha256"
	"encoding/hex"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Etheryii/Ai-Assistant-New/models"
)

// LoadDirectory reads every supported document under dir. A missing or
// unreadable directory is an IngestionError; individual files that fail to
// read are skipped with a warning so one bad file cannot poison the whole
// knowledge base. An existing but empty directory yields no documents and
// no error.
func LoadDirectory(dir string) ([]models.Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, NewIngestionError("knowledge base directory unavailable", err)
	}
	if !info.IsDir() {
		return nil, NewIngestionError("knowledge base path is not a directory", nil)
	}

	var docs []models.Document
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Printf("LOADER WARN: skipping %s: %v", path, err)
			return nil
		}
		if info.IsDir() || !isSupportedFile(path) {
			return nil
		}

		text, err := ExtractTextFromFile(path)
		if err != nil {
			log.Printf("LOADER WARN: could not read %s: %v", path, err)
			return nil
		}
		text = strings.ToValidUTF8(text, "")
		docs = append(docs, models.Document{
			ID:      documentID(path),
			Name:    filepath.Base(path),
			Path:    path,
			Content: text,
		})
		return nil
	})
	if err != nil {
		return nil, NewIngestionError("failed to walk knowledge base directory", err)
	}

	log.Printf("LOADER: loaded %d documents from %s", len(docs), dir)
	return docs, nil
}

// documentID derives a stable identifier from the absolute file path, so the
// same file always chunks to the same IDs across re-indexing runs.
func documentID(path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	hash := sha256.Sum256([]byte(absPath))
	return hex.EncodeToString(hash[:8])
}
