package sstable

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/adammck/sstprops/pkg/api"
	"github.com/adammck/sstprops/pkg/types"
	"go.mongodb.org/mongo-driver/bson"
)

var ErrCorrupt = errors.New("corrupt sstable")

// readBufferSize is large because every ReadAt on a remote blob is a request.
const readBufferSize = 64 << 10

type Reader struct {
	r io.Reader
	c io.Closer
}

// NewReader returns a reader over the entries of the sstable in r, which is
// size bytes long. The properties block is not returned; see ReadMeta.
func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
	off, err := propertiesOffset(r, size)
	if err != nil {
		return nil, err
	}

	start := int64(len(magicBytes))
	return &Reader{
		r: bufio.NewReaderSize(io.NewSectionReader(r, start, off-start), readBufferSize),
	}, nil
}

// Next returns the next entry, or nil at the end of the table.
func (r *Reader) Next() (*types.Entry, error) {
	return types.Read(r.r)
}

func (r *Reader) Close() error {
	if r.c == nil {
		return nil
	}
	return r.c.Close()
}

// ReadMeta reads the properties block of the sstable in r, which is size bytes
// long, without touching the entries.
func ReadMeta(r io.ReaderAt, size int64) (*Meta, error) {
	off, err := propertiesOffset(r, size)
	if err != nil {
		return nil, err
	}

	b, err := types.ReadDocument(io.NewSectionReader(r, off, size-footerLen-off))
	if err != nil {
		return nil, fmt.Errorf("%w: read properties: %v", ErrCorrupt, err)
	}

	m := &Meta{}
	if err := bson.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("%w: bson.Unmarshal: %v", ErrCorrupt, err)
	}

	if m.Properties == nil {
		m.Properties = api.UserCollectedProperties{}
	}

	return m, nil
}

// ReadProperties returns only the collected properties of the sstable in r.
func ReadProperties(r io.ReaderAt, size int64) (api.UserCollectedProperties, error) {
	m, err := ReadMeta(r, size)
	if err != nil {
		return nil, err
	}

	return m.Properties, nil
}

func propertiesOffset(r io.ReaderAt, size int64) (int64, error) {
	start := int64(len(magicBytes))
	if size < start+footerLen {
		return 0, fmt.Errorf("%w: too short: %d bytes", ErrCorrupt, size)
	}

	magic := make([]byte, len(magicBytes))
	if _, err := r.ReadAt(magic, 0); err != nil {
		return 0, fmt.Errorf("read magic bytes: %w", err)
	}
	if string(magic) != magicBytes {
		return 0, fmt.Errorf("%w: wrong magic bytes: got=%x, want=%x", ErrCorrupt, magic, magicBytes)
	}

	var footer [footerLen]byte
	if _, err := r.ReadAt(footer[:], size-footerLen); err != nil {
		return 0, fmt.Errorf("read footer: %w", err)
	}

	off := int64(binary.LittleEndian.Uint64(footer[:]))
	if off < start || off > size-footerLen {
		return 0, fmt.Errorf("%w: properties offset out of range: %d", ErrCorrupt, off)
	}

	return off, nil
}
