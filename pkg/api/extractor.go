package api

import "time"

// TtlExtractor decides whether a single entry will expire, and if so, how long
// it has left. Instances are owned by a single collector and never shared
// between goroutines. If an implementation also implements io.Closer, the
// owning collector closes it when the table build ends.
type TtlExtractor interface {
	// Extract returns the remaining time-to-live of the entry, and whether it
	// has one at all. The value of index entries is their decoded meta, not
	// the raw index. A non-nil error aborts the whole table build.
	Extract(typ EntryType, userKey, value []byte) (ttl time.Duration, hasTTL bool, err error)
}

// TtlExtractorContext describes the table which an extractor is created for.
type TtlExtractorContext struct {
	ColumnFamilyID uint32
}

// TtlExtractorFactory creates one TtlExtractor per table build. It must be safe
// to call concurrently.
type TtlExtractorFactory interface {
	Name() string
	CreateTtlExtractor(ctx TtlExtractorContext) (TtlExtractor, error)
}
