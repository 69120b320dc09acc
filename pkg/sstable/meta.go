package sstable

import (
	"fmt"
	"time"

	"github.com/adammck/sstprops/pkg/api"
	"github.com/adammck/sstprops/pkg/props"
)

// Meta describes a finished sstable. It's also the properties block, so
// everything here is persisted alongside the entries.
type Meta struct {
	ID      string    `bson:"id"`
	MinKey  []byte    `bson:"min_key"`
	MaxKey  []byte    `bson:"max_key"`
	Count   int       `bson:"count"`
	Created time.Time `bson:"created"`

	// Size is the number of bytes before the properties block, i.e. the magic
	// bytes plus every entry.
	Size int `bson:"size"`

	// Properties are the raw values contributed by the collectors.
	Properties api.UserCollectedProperties `bson:"props"`

	// Readable is the human-readable form of some of the properties.
	Readable map[string]string `bson:"readable,omitempty"`
}

func (m *Meta) Filename() string {
	if m.ID == "" {
		return fmt.Sprintf("%d.sstable", m.Created.UnixMilli())
	}

	return fmt.Sprintf("%d-%s.sstable", m.Created.UnixMilli(), m.ID)
}

// TimePoints returns the compaction time points recorded by the TTL
// collector, or props.Unknown for either one which wasn't.
func (m *Meta) TimePoints() (earliest, latest uint64) {
	return props.GetCompactionTimePoint(m.Properties)
}
