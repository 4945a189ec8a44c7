package mission

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xela07ax/mindtussle/internal/domain"
)

// Storage — место, где живет блоб клиентского состояния.
type Storage interface {
	Load() (domain.PersistedData, bool, error)
	Save(data domain.PersistedData) error
}

// FileStorage хранит блоб в <dir>/mindtussle_data_v2.json.
type FileStorage struct {
	path string
}

func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{path: filepath.Join(dir, domain.StorageKey+".json")}
}

func (s *FileStorage) Path() string { return s.path }

func (s *FileStorage) Load() (domain.PersistedData, bool, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.PersistedData{}, false, nil
	}
	if err != nil {
		return domain.PersistedData{}, false, fmt.Errorf("mission: read %s: %w", s.path, err)
	}

	var data domain.PersistedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return domain.PersistedData{}, false, fmt.Errorf("mission: decode %s: %w", s.path, err)
	}
	return data, true, nil
}

// Save перезаписывает блоб целиком через временный файл.
func (s *FileStorage) Save(data domain.PersistedData) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("mission: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mission: create dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("mission: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("mission: replace: %w", err)
	}
	return nil
}
