// Package extractor contains TTL extractors for values written with a
// timestamp suffix.
package extractor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/adammck/sstprops/pkg/api"
	"github.com/jonboulle/clockwork"
)

// TimestampLen is the length of the write time appended to every value.
const TimestampLen = 8

var ErrValueTooShort = errors.New("value too short for timestamp")

// AppendTimestamp appends the write time t to value, in whole seconds.
func AppendTimestamp(value []byte, t time.Time) []byte {
	return binary.BigEndian.AppendUint64(value, uint64(t.Unix()))
}

// StripTimestamp returns value without its write time.
func StripTimestamp(value []byte) ([]byte, error) {
	if len(value) < TimestampLen {
		return nil, ErrValueTooShort
	}
	return value[:len(value)-TimestampLen], nil
}

// Timestamped treats every value as expiring a fixed TTL after the write time
// in its suffix.
type Timestamped struct {
	ttl   time.Duration
	clock clockwork.Clock
}

var _ api.TtlExtractor = (*Timestamped)(nil)

// NewTimestamped returns an extractor for values which live for ttl. If ttl is
// not positive, nothing expires.
func NewTimestamped(ttl time.Duration, clock clockwork.Clock) *Timestamped {
	return &Timestamped{
		ttl:   ttl,
		clock: clock,
	}
}

func (e *Timestamped) Extract(typ api.EntryType, userKey, value []byte) (time.Duration, bool, error) {
	if e.ttl <= 0 {
		return 0, false, nil
	}

	if len(value) < TimestampLen {
		return 0, false, fmt.Errorf("%w: key=%q len=%d", ErrValueTooShort, userKey, len(value))
	}

	ts := int64(binary.BigEndian.Uint64(value[len(value)-TimestampLen:]))
	remaining := time.Unix(ts, 0).Add(e.ttl).Sub(e.clock.Now())
	if remaining < 0 {
		remaining = 0
	}

	return remaining, true, nil
}

// noTTL is used for column families which the factory doesn't cover.
type noTTL struct{}

func (noTTL) Extract(api.EntryType, []byte, []byte) (time.Duration, bool, error) {
	return 0, false, nil
}

// TimestampedFactory creates Timestamped extractors. It's safe for concurrent
// use.
type TimestampedFactory struct {
	ttl   time.Duration
	clock clockwork.Clock

	// nil means every column family.
	cfs map[uint32]struct{}
}

var _ api.TtlExtractorFactory = (*TimestampedFactory)(nil)

// NewTimestampedFactory returns a factory for extractors with the given ttl.
// If any column family IDs are given, tables in other column families get an
// extractor which never finds a TTL.
func NewTimestampedFactory(ttl time.Duration, clock clockwork.Clock, cfs ...uint32) *TimestampedFactory {
	f := &TimestampedFactory{
		ttl:   ttl,
		clock: clock,
	}

	if len(cfs) > 0 {
		f.cfs = make(map[uint32]struct{}, len(cfs))
		for _, id := range cfs {
			f.cfs[id] = struct{}{}
		}
	}

	return f
}

func (f *TimestampedFactory) Name() string {
	return "Timestamped"
}

func (f *TimestampedFactory) CreateTtlExtractor(ctx api.TtlExtractorContext) (api.TtlExtractor, error) {
	if f.cfs != nil {
		if _, ok := f.cfs[ctx.ColumnFamilyID]; !ok {
			return noTTL{}, nil
		}
	}

	return NewTimestamped(f.ttl, f.clock), nil
}
