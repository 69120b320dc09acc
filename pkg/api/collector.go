package api

// CollectorContext describes the table which a collector is created for.
type CollectorContext struct {
	ColumnFamilyID   uint32
	ColumnFamilyName string
}

// IntTblPropCollector observes every entry added to a table, keyed by internal
// key, and contributes properties to it when the build finishes. A collector
// is used by a single goroutine for a single table, then closed.
type IntTblPropCollector interface {
	Name() string

	// InternalAdd is called once per entry, in internal key order. fileSize is
	// the number of bytes written to the table so far.
	InternalAdd(key, value []byte, fileSize uint64) error

	// Finish is called once, after every entry has been added, to write the
	// collected properties.
	Finish(props UserCollectedProperties) error

	// ReadableProperties returns human-readable versions of the collected
	// properties, for debugging.
	ReadableProperties() UserCollectedProperties

	// Close releases anything the collector owns. It's called exactly once,
	// whether or not the build succeeded.
	Close() error
}

// IntTblPropCollectorFactory creates one collector per table build. It must be
// safe to call concurrently.
type IntTblPropCollectorFactory interface {
	Name() string
	CreateIntTblPropCollector(ctx CollectorContext) (IntTblPropCollector, error)

	// NeedSerialize reports whether the factory's configuration must be
	// persisted alongside the table.
	NeedSerialize() bool
}

// TablePropertiesCollector is the simpler, user-facing collector. It sees user
// keys with their type and sequence number already split out.
type TablePropertiesCollector interface {
	Name() string
	AddUserKey(userKey, value []byte, typ EntryType, seq SequenceNumber, fileSize uint64) error
	Finish(props UserCollectedProperties) error
	ReadableProperties() UserCollectedProperties
}

// TablePropertiesCollectorFactory creates user-facing collectors. It must be
// safe to call concurrently.
type TablePropertiesCollectorFactory interface {
	Name() string
	CreateTablePropertiesCollector(ctx CollectorContext) (TablePropertiesCollector, error)
}
