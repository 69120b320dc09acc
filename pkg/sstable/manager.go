package sstable

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adammck/sstprops/pkg/types"
	"golang.org/x/sync/errgroup"
)

var ErrNoRecords = errors.New("NoRecords")

// listConcurrency bounds the number of files opened at once by List.
const listConcurrency = 8

// Manager reads and writes sstables in a single directory. Files are named by
// Meta.Filename.
type Manager struct {
	dir string
	f   Factory
}

func NewManager(dir string, f Factory) *Manager {
	return &Manager{
		dir: dir,
		f:   f,
	}
}

func (m *Manager) Path(name string) string {
	return filepath.Join(m.dir, name)
}

// Open returns a reader over the entries of the named sstable. The caller MUST
// close the Reader to avoid leaking the file.
func (m *Manager) Open(name string) (*Reader, error) {
	f, err := os.Open(m.Path(name))
	if err != nil {
		return nil, fmt.Errorf("os.Open: %w", err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("File.Stat: %w", err)
	}

	r, err := NewReader(f, st.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("NewReader(%s): %w", name, err)
	}

	r.c = f
	return r, nil
}

// ReadMeta reads the properties block of the named sstable.
func (m *Manager) ReadMeta(name string) (*Meta, error) {
	return ReadFile(m.Path(name))
}

// List returns the metadata of every sstable in the directory, ordered by
// filename (and therefore by creation time).
func (m *Manager) List(ctx context.Context) ([]*Meta, error) {
	des, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("os.ReadDir: %w", err)
	}

	var names []string
	for _, de := range des {
		if de.Type().IsRegular() && strings.HasSuffix(de.Name(), ".sstable") {
			names = append(names, de.Name())
		}
	}
	sort.Strings(names)

	metas := make([]*Meta, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)

	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			meta, err := m.ReadMeta(name)
			if err != nil {
				return fmt.Errorf("ReadMeta(%s): %w", name, err)
			}

			metas[i] = meta
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return metas, nil
}

// Delete removes the named sstable.
func (m *Manager) Delete(name string) error {
	return os.Remove(m.Path(name))
}

// Flush creates a new sstable by draining the given channel of entries. The
// file only appears under its final name once it's completely written.
func (m *Manager) Flush(ctx context.Context, ch <-chan *types.Entry) (*Meta, error) {
	w := m.f.NewWriter()
	n := 0

	for {
		var e *types.Entry
		var ok bool

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case e, ok = <-ch:
		}

		if !ok {
			break
		}

		if err := w.Add(e.Key, e.Value); err != nil {
			return nil, fmt.Errorf("sstable.Writer.Add: %w", err)
		}
		n++
	}

	// the producer may have failed after closing the channel.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if n == 0 {
		return nil, ErrNoRecords
	}

	f, err := os.CreateTemp(m.dir, ".sstable-*")
	if err != nil {
		return nil, fmt.Errorf("CreateTemp: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	meta, err := w.Write(f)
	if err != nil {
		return nil, fmt.Errorf("sstable.Writer.Write: %w", err)
	}

	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("File.Sync: %w", err)
	}

	if err := os.Rename(f.Name(), m.Path(meta.Filename())); err != nil {
		return nil, fmt.Errorf("os.Rename: %w", err)
	}

	return meta, nil
}

// ReadFile reads the properties block of the sstable at path.
func ReadFile(path string) (*Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("File.Stat: %w", err)
	}

	return ReadMeta(f, st.Size())
}
