// This package contains only interfaces to be used by other packages. The
// implementations of these should be in pkg/whatever. To avoid circular deps,
// this package should import nothing from pkg.
package api

// EntryType is the semantic kind of an entry added to a table, derived from
// the value type stored in its internal key. The order matters: every type
// below EntryOther which is not data-bearing is a tombstone of some kind.
type EntryType int

const (
	EntryPut EntryType = iota
	EntryDelete
	EntrySingleDelete
	EntryMerge
	EntryRangeDeletion
	EntryValueIndex
	EntryMergeIndex
	EntryOther
)

func (t EntryType) String() string {
	switch t {
	case EntryPut:
		return "put"
	case EntryDelete:
		return "delete"
	case EntrySingleDelete:
		return "single_delete"
	case EntryMerge:
		return "merge"
	case EntryRangeDeletion:
		return "range_deletion"
	case EntryValueIndex:
		return "value_index"
	case EntryMergeIndex:
		return "merge_index"
	default:
		return "other"
	}
}

// HasValue returns true if entries of this type carry a value (possibly via an
// index into a separate blob file), and so may carry a TTL.
func (t EntryType) HasValue() bool {
	switch t {
	case EntryPut, EntryMerge, EntryValueIndex, EntryMergeIndex:
		return true
	default:
		return false
	}
}

// IsIndex returns true if the value of entries of this type is an index into a
// separate blob file rather than the value itself.
func (t EntryType) IsIndex() bool {
	return t == EntryValueIndex || t == EntryMergeIndex
}

// IsTombstone returns true for delete-like entries.
func (t EntryType) IsTombstone() bool {
	return !t.HasValue() && t >= 0 && t < EntryOther
}

// SequenceNumber orders writes to the same user key. Newer writes have larger
// sequence numbers.
type SequenceNumber uint64

// UserCollectedProperties is the map of named properties which collectors
// contribute to a table. Values are opaque bytes, and are persisted with the
// table file.
type UserCollectedProperties map[string][]byte
