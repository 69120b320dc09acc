package mock

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/adammck/sstprops/pkg/api"
)

// Store is an in-memory BlobStore for tests.
type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

var _ api.BlobStore = (*Store)(nil)

func New() *Store {
	return &Store{
		blobs: make(map[string][]byte),
	}
}

func (m *Store) Put(ctx context.Context, key string, data io.ReadSeeker) error {
	content, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("ReadAll: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[key]; ok {
		return fmt.Errorf("blob already exists: %s", key)
	}

	m.blobs[key] = content
	return nil
}

func (m *Store) Open(ctx context.Context, key string) (api.Blob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[key]
	if !ok {
		return nil, &api.NotFound{Key: key}
	}

	return bytes.NewReader(data), nil
}

func (m *Store) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[key]; !ok {
		return &api.NotFound{Key: key}
	}

	delete(m.blobs, key)
	return nil
}

func (m *Store) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.blobs))
	for k := range m.blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys, nil
}
