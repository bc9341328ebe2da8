package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store is minimal durable key→bytes storage. Load returns (nil, nil) for a
// missing key; callers treat that as "start fresh", never as an error.
type Store interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
}

// FileStore keeps each key as a JSON file in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Load(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (s *FileStore) Save(key string, data []byte) error {
	return os.WriteFile(s.path(key), data, 0644)
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
