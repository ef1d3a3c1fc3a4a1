// Package store reads and writes the registry document as a single JSON file.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	apperr "github.com/kdeps/mediacmd/pkg/errors"
	"github.com/kdeps/mediacmd/pkg/logging"
	"github.com/kdeps/mediacmd/pkg/messages"
)

// Store persists whole registry documents.
type Store interface {
	Load() (*Document, error)
	Save(doc *Document) error
}

// FileStore keeps the document in one file on fs.
type FileStore struct {
	fs     afero.Fs
	path   string
	logger *logging.Logger
}

// NewFileStore creates a store backed by path.
func NewFileStore(fs afero.Fs, path string, logger *logging.Logger) *FileStore {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &FileStore{fs: fs, path: path, logger: logger}
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the document. A missing file is an empty document.
func (s *FileStore) Load() (*Document, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDocument(), nil
		}
		return nil, apperr.NewStorageError("read registry", s.path, err)
	}

	doc := NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, apperr.NewStorageError("parse registry", s.path, err)
	}
	return doc, nil
}

// Save writes doc to a temporary file and renames it over the old one.
func (s *FileStore) Save(doc *Document) error {
	if doc == nil {
		doc = NewDocument()
	}
	if doc.Images == nil || doc.Commands == nil {
		clone := *doc
		if clone.Images == nil {
			clone.Images = NewDocument().Images
		}
		if clone.Commands == nil {
			clone.Commands = []string{}
		}
		doc = &clone
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperr.NewStorageError("encode registry", s.path, err)
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return apperr.NewStorageError("create registry directory", s.path, err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		_ = s.fs.Remove(tmp)
		return apperr.NewStorageError("write registry", tmp, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return apperr.NewStorageError("replace registry", s.path, err)
	}

	s.logger.Debug(messages.MsgRegistryDocumentSave, "path", s.path, "commands", len(doc.Commands))
	return nil
}
