package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSubaccountIndexStoreDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	s := NewSubaccountIndexStore(path, zap.NewNop())
	assert.Equal(t, uint16(0), s.Active())
}

func TestSubaccountIndexStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", DefaultStateFile)
	s := NewSubaccountIndexStore(path, zap.NewNop())
	require.NoError(t, s.SetActive(4))
	assert.Equal(t, uint16(4), s.Active())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":{"activeSubaccountIndex":4},"version":0}`, string(data))

	reloaded := NewSubaccountIndexStore(path, zap.NewNop())
	assert.Equal(t, uint16(4), reloaded.Active())
}

func TestSubaccountIndexStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultStateFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := NewSubaccountIndexStore(path, zap.NewNop())
	assert.Equal(t, uint16(0), s.Active())
}

func TestSubaccountIndexStoreWriteFailureKeepsIndexInMemory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	s := NewSubaccountIndexStore(filepath.Join(blocker, DefaultStateFile), zap.NewNop())
	err := s.SetActive(4)
	assert.ErrorContains(t, err, "create state dir")
	assert.Equal(t, uint16(4), s.Active())
}
