package types

import (
	"encoding/binary"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
)

// Entry is a single key/value pair as stored in an sstable. Key is an internal
// key; see MakeInternalKey.
type Entry struct {
	Key   []byte `bson:"k"`
	Value []byte `bson:"v,omitempty"`
}

func (e *Entry) Write(out io.Writer) (int, error) {
	b, err := bson.Marshal(e)
	if err != nil {
		return 0, err
	}

	return out.Write(b)
}

// Read reads one Entry from r. It returns nil, nil at EOF.
func Read(r io.Reader) (*Entry, error) {
	b, err := ReadDocument(r)
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}

	e := &Entry{}
	if err := bson.Unmarshal(b, e); err != nil {
		return nil, err
	}

	return e, nil
}

// ReadDocument reads one raw BSON document from r. It returns io.EOF (unwrapped)
// if r is exhausted before the first byte.
func ReadDocument(r io.Reader) ([]byte, error) {
	// see: https://bsonspec.org/spec.html

	var sizeBytes [4]byte
	_, err := io.ReadFull(r, sizeBytes[:])
	if err != nil {
		// might be io.EOF; that's okay.
		return nil, err
	}

	size := int(binary.LittleEndian.Uint32(sizeBytes[:]))
	if size < 5 {
		return nil, fmt.Errorf("invalid BSON document length: want>=5, got=%d", size)
	}

	docBytes := make([]byte, size)
	copy(docBytes[0:4], sizeBytes[:])
	_, err = io.ReadFull(r, docBytes[4:])
	if err != nil {
		return nil, fmt.Errorf("ReadFull(doc): %w", err)
	}

	return docBytes, nil
}
