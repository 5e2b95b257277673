package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sweeney/inkdash/internal/errcode"
)

// FileStore keeps the retained block in a single file. Saves go through a
// temporary file and a rename so a power cut never leaves a torn block.
type FileStore struct {
	path   string
	period int
}

// NewFileStore creates a store at path. period is the refresh period used to
// validate the refresh counter on load.
func NewFileStore(path string, period int) *FileStore {
	return &FileStore{path: path, period: period}
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context) (Retained, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Retained{}, &errcode.E{C: errcode.StorageUnavailable, Op: "store", Msg: "no retained block", Err: err}
	}
	if err != nil {
		return Retained{}, errcode.New(errcode.StorageUnavailable, "store", err)
	}
	return Decode(data, s.period)
}

// Save implements Store.
func (s *FileStore) Save(_ context.Context, r Retained) error {
	data, err := Encode(r)
	if err != nil {
		return errcode.New(errcode.StorageUnavailable, "store", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errcode.New(errcode.StorageUnavailable, "store", fmt.Errorf("create %s: %w", dir, err))
	}

	tmp, err := os.CreateTemp(dir, ".retained-*")
	if err != nil {
		return errcode.New(errcode.StorageUnavailable, "store", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errcode.New(errcode.StorageUnavailable, "store", fmt.Errorf("write: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errcode.New(errcode.StorageUnavailable, "store", fmt.Errorf("sync: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return errcode.New(errcode.StorageUnavailable, "store", fmt.Errorf("close: %w", err))
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errcode.New(errcode.StorageUnavailable, "store", fmt.Errorf("rename: %w", err))
	}
	return nil
}
