package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	kerrors "github.com/PolarWolf314/inkvault/internal/errors"
	"github.com/PolarWolf314/inkvault/internal/storage"
)

// Store reads and writes asset files in one directory. It moves bytes only;
// sealing and opening them is the caller's job.
type Store struct {
	Dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Path returns the file path for id after validating it.
func (s *Store) Path(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.Dir, id), nil
}

// Read returns the stored bytes for id.
func (s *Store) Read(id string) ([]byte, error) {
	path, err := s.Path(id)
	if err != nil {
		return nil, err
	}
	data, err := storage.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrAssetNotFound, id)
	}
	return data, err
}

// Write durably replaces the stored bytes for id.
func (s *Store) Write(id string, data []byte) error {
	path, err := s.Path(id)
	if err != nil {
		return err
	}
	return storage.WriteFile(path, data, 0600)
}

// Exists reports whether an asset file for id is present.
func (s *Store) Exists(id string) bool {
	path, err := s.Path(id)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// List builds metadata for every valid asset file in the directory, sorted by
// id. Size is the on-disk size; the original filename is not recoverable from
// the directory, so the id stands in for it.
func (s *Store) List() ([]Meta, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, kerrors.Op(kerrors.OpRead, s.Dir, err)
	}

	var metas []Meta
	for _, e := range entries {
		if !e.Type().IsRegular() || storage.IsTempFile(e.Name()) {
			continue
		}
		if ValidateID(e.Name()) != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		metas = append(metas, Meta{
			ID:        e.Name(),
			Filename:  e.Name(),
			MIMEType:  DetectMIME(e.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime().UTC(),
		})
	}

	sort.Slice(metas, func(i, j int) bool { return metas[i].ID < metas[j].ID })
	return metas, nil
}

// Index turns a list of metadata into the id-keyed map a session tracks.
func Index(metas []Meta) map[string]Meta {
	index := make(map[string]Meta, len(metas))
	for _, m := range metas {
		index[m.ID] = m
	}
	return index
}
