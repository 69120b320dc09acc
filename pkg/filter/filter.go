// Package filter builds a filter over the user keys of an sstable, and stores
// it as a table property so readers can skip tables without opening them.
package filter

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"slices"
	"strconv"

	"github.com/FastFilter/xorfilter"
	"github.com/adammck/sstprops/pkg/api"
)

const (
	// PropertyName is the table property holding the serialized filter.
	PropertyName = "key_filter"

	// KeysPropertyName is the readable property holding the number of
	// distinct user keys in the filter.
	KeysPropertyName = "key_filter_keys"

	headerSize = 8 + 4*4 // uint64 + 4*uint32
)

var (
	ErrEmptyKeySet = errors.New("empty key set")
	ErrCorrupt     = errors.New("corrupt filter")
)

type Filter struct {
	xf *xorfilter.BinaryFuse8
}

// Create builds a filter from key hashes. Duplicates are fine.
func Create(hashes []uint64) (*Filter, error) {
	if len(hashes) == 0 {
		return nil, ErrEmptyKeySet
	}

	hashes = slices.Clone(hashes)
	slices.Sort(hashes)
	hashes = slices.Compact(hashes)

	xf, err := xorfilter.PopulateBinaryFuse8(hashes)
	if err != nil {
		return nil, fmt.Errorf("PopulateBinaryFuse8: %w", err)
	}

	return &Filter{xf: xf}, nil
}

// Contains returns false if userKey is definitely not in the filter.
func (f *Filter) Contains(userKey []byte) bool {
	return f.xf.Contains(HashKey(userKey))
}

func (f *Filter) Marshal() []byte {
	buf := make([]byte, headerSize+len(f.xf.Fingerprints))

	// header
	binary.LittleEndian.PutUint64(buf[0:], f.xf.Seed)
	binary.LittleEndian.PutUint32(buf[8:], f.xf.SegmentLength)
	binary.LittleEndian.PutUint32(buf[12:], f.xf.SegmentLengthMask)
	binary.LittleEndian.PutUint32(buf[16:], f.xf.SegmentCount)
	binary.LittleEndian.PutUint32(buf[20:], f.xf.SegmentCountLength)

	// body
	copy(buf[headerSize:], f.xf.Fingerprints)

	return buf
}

func Unmarshal(data []byte) (*Filter, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: too short for header: %d bytes", ErrCorrupt, len(data))
	}

	xf := &xorfilter.BinaryFuse8{}

	// header
	xf.Seed = binary.LittleEndian.Uint64(data[0:])
	xf.SegmentLength = binary.LittleEndian.Uint32(data[8:])
	xf.SegmentLengthMask = binary.LittleEndian.Uint32(data[12:])
	xf.SegmentCount = binary.LittleEndian.Uint32(data[16:])
	xf.SegmentCountLength = binary.LittleEndian.Uint32(data[20:])

	if err := checkHeader(xf, len(data)-headerSize); err != nil {
		return nil, err
	}

	// body
	xf.Fingerprints = make([]uint8, len(data)-headerSize)
	copy(xf.Fingerprints, data[headerSize:])

	return &Filter{xf: xf}, nil
}

// checkHeader verifies that lookups in a filter with this header and n
// fingerprints stay in bounds. Binary fuse filters have three segments per
// lookup, so the array is two segments longer than SegmentCountLength.
func checkHeader(xf *xorfilter.BinaryFuse8, n int) error {
	sl := uint64(xf.SegmentLength)
	if sl == 0 || sl&(sl-1) != 0 {
		return fmt.Errorf("%w: segment length not a power of two: %d", ErrCorrupt, sl)
	}
	if uint64(xf.SegmentLengthMask) != sl-1 {
		return fmt.Errorf("%w: segment length mask %d for length %d", ErrCorrupt, xf.SegmentLengthMask, sl)
	}
	if xf.SegmentCount == 0 {
		return fmt.Errorf("%w: zero segments", ErrCorrupt)
	}
	if uint64(xf.SegmentCountLength) != uint64(xf.SegmentCount)*sl {
		return fmt.Errorf("%w: segment count length %d for %d segments", ErrCorrupt, xf.SegmentCountLength, xf.SegmentCount)
	}
	if want := (uint64(xf.SegmentCount) + 2) * sl; uint64(n) != want {
		return fmt.Errorf("%w: %d fingerprints, want %d", ErrCorrupt, n, want)
	}
	return nil
}

func HashKey(userKey []byte) uint64 {
	h := fnv.New64a()
	h.Write(userKey)
	return h.Sum64()
}

// MayContain reports whether the table with the given properties may contain
// userKey. Tables without a filter may contain anything.
func MayContain(p api.UserCollectedProperties, userKey []byte) (bool, error) {
	raw, ok := p[PropertyName]
	if !ok {
		return true, nil
	}

	f, err := Unmarshal(raw)
	if err != nil {
		return false, fmt.Errorf("filter.Unmarshal: %w", err)
	}

	return f.Contains(userKey), nil
}

// Collector hashes every distinct user key in a table. Entries arrive in
// internal key order, so every version of a key is adjacent.
type Collector struct {
	hashes []uint64
	last   []byte
	seen   bool
}

var _ api.TablePropertiesCollector = (*Collector)(nil)

func (c *Collector) Name() string {
	return "KeyFilter"
}

func (c *Collector) AddUserKey(userKey, value []byte, typ api.EntryType, seq api.SequenceNumber, fileSize uint64) error {
	if c.seen && bytes.Equal(userKey, c.last) {
		return nil
	}

	c.seen = true
	c.last = append(c.last[:0], userKey...)
	c.hashes = append(c.hashes, HashKey(userKey))
	return nil
}

// Finish stores the filter. Empty tables get no filter at all.
func (c *Collector) Finish(p api.UserCollectedProperties) error {
	if len(c.hashes) == 0 {
		return nil
	}

	f, err := Create(c.hashes)
	if err != nil {
		return err
	}

	p[PropertyName] = f.Marshal()
	return nil
}

func (c *Collector) ReadableProperties() api.UserCollectedProperties {
	return api.UserCollectedProperties{
		KeysPropertyName: []byte(strconv.Itoa(len(c.hashes))),
	}
}

type CollectorFactory struct{}

var _ api.TablePropertiesCollectorFactory = CollectorFactory{}

func (CollectorFactory) Name() string {
	return "KeyFilter"
}

func (CollectorFactory) CreateTablePropertiesCollector(api.CollectorContext) (api.TablePropertiesCollector, error) {
	return &Collector{}, nil
}
