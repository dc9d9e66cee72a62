// internal/store/subaccount.go
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// DefaultStateFile – имя файла с сохранённым индексом субаккаунта.
const DefaultStateFile = "drift-storage.json"

type persistedState struct {
	State struct {
		ActiveSubaccountIndex uint16 `json:"activeSubaccountIndex"`
	} `json:"state"`
	Version int `json:"version"`
}

// SubaccountIndexStore хранит активный индекс субаккаунта между запусками.
type SubaccountIndexStore struct {
	mu     sync.RWMutex
	path   string
	index  uint16
	logger *zap.Logger
}

// NewSubaccountIndexStore загружает индекс из файла.
// Отсутствующий или повреждённый файл даёт индекс 0.
func NewSubaccountIndexStore(path string, logger *zap.Logger) *SubaccountIndexStore {
	if path == "" {
		path = DefaultStateFile
	}
	s := &SubaccountIndexStore{path: path, logger: logger.Named("subaccount_store")}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s
	case err != nil:
		s.logger.Warn("Failed to read subaccount state", zap.String("path", path), zap.Error(err))
		return s
	}

	var ps persistedState
	if err := json.Unmarshal(data, &ps); err != nil {
		s.logger.Warn("Corrupt subaccount state, using default", zap.String("path", path), zap.Error(err))
		return s
	}
	s.index = ps.State.ActiveSubaccountIndex
	s.logger.Debug("Loaded subaccount state", zap.Uint16("index", s.index))
	return s
}

// Active возвращает сохранённый индекс.
func (s *SubaccountIndexStore) Active() uint16 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// SetActive обновляет индекс и атомарно перезаписывает файл.
// Индекс в памяти меняется и тогда, когда записать файл не удалось.
func (s *SubaccountIndexStore) SetActive(idx uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index = idx

	var ps persistedState
	ps.State.ActiveSubaccountIndex = idx
	data, err := json.MarshalIndent(ps, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal subaccount state: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write subaccount state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace subaccount state: %w", err)
	}
	return nil
}

// Path – путь к файлу состояния.
func (s *SubaccountIndexStore) Path() string { return s.path }
