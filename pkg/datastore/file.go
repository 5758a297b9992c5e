package datastore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
)

type FileStore struct {
	Directory string
}

func NewFileStore(directory string) (*FileStore, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{Directory: directory}, nil
}

func (f *FileStore) path(name string) string {
	return filepath.Join(f.Directory, filepath.Base(name))
}

func (f *FileStore) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(f.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Put writes to a temporary file in the same directory and renames it over the target
func (f *FileStore) Put(ctx context.Context, name string, data []byte) error {
	tempFile, err := os.CreateTemp(f.Directory, "."+filepath.Base(name)+".*.tmp")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		os.Remove(tempName)
		return err
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		os.Remove(tempName)
		return err
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempName)
		return err
	}

	if err := os.Rename(tempName, f.path(name)); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}

func (f *FileStore) Delete(ctx context.Context, name string) error {
	err := os.Remove(f.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (f *FileStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := os.Stat(f.path(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
