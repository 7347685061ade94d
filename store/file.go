package store

import (
	"context"
	"os"
	"path/filepath"
)

// FileKV stores each key as a JSON file inside a directory.
type FileKV struct {
	dir string
}

// DefaultDir returns the default storage directory.
func DefaultDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "threadsaver"), nil
}

// NewFileKV creates a file-backed KV rooted at dir.
func NewFileKV(dir string) *FileKV {
	return &FileKV{dir: dir}
}

// Path returns the file path backing a key.
func (f *FileKV) Path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

// Get reads a key. A missing file is not an error; ok is false.
func (f *FileKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.Path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set writes a key, creating the directory if needed.
func (f *FileKV) Set(_ context.Context, key string, value []byte) error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(f.Path(key), value, 0644)
}

// Available probes whether the backing directory can be used.
func (f *FileKV) Available() bool {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return false
	}
	info, err := os.Stat(f.dir)
	return err == nil && info.IsDir()
}
