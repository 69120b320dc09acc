// Package props names the table properties which collectors contribute, and
// reads them back.
package props

import (
	"encoding/binary"
	"math"

	"github.com/adammck/sstprops/pkg/api"
)

const (
	// EarliestTimeBeginCompact is the unix time (in seconds) before which
	// compacting the table is not expected to reclaim enough expired data to
	// be worth it.
	EarliestTimeBeginCompact = "earliest_time_begin_compact"

	// LatestTimeEndCompact is the unix time (in seconds) by which some full
	// scan window of the table will consist only of expired entries or
	// tombstones.
	LatestTimeEndCompact = "latest_time_end_compact"

	DeletedKeys   = "deleted_keys"
	MergeOperands = "merge_operands"
)

// Unknown is stored in, or returned for, time points which couldn't be
// determined. It sorts after every real time.
const Unknown uint64 = math.MaxUint64

// PutUint64 stores v under name as a varint.
func PutUint64(p api.UserCollectedProperties, name string, v uint64) {
	p[name] = binary.AppendUvarint(nil, v)
}

// GetUint64 decodes the varint stored under name. If the property is absent
// or malformed, it returns zero and false.
func GetUint64(p api.UserCollectedProperties, name string) (uint64, bool) {
	raw, ok := p[name]
	if !ok {
		return 0, false
	}

	v, n := binary.Uvarint(raw)
	if n <= 0 {
		return 0, false
	}

	return v, true
}

// GetDeletedKeys returns the number of tombstones in the table, or zero if it
// wasn't recorded.
func GetDeletedKeys(p api.UserCollectedProperties) uint64 {
	v, _ := GetUint64(p, DeletedKeys)
	return v
}

// GetMergeOperands returns the number of merge operands in the table, and
// whether it was recorded.
func GetMergeOperands(p api.UserCollectedProperties) (uint64, bool) {
	return GetUint64(p, MergeOperands)
}

// GetCompactionTimePoint returns the earliest and latest compaction times of a
// table. Either is Unknown if it's missing or malformed.
func GetCompactionTimePoint(p api.UserCollectedProperties) (earliest, latest uint64) {
	earliest, ok := GetUint64(p, EarliestTimeBeginCompact)
	if !ok {
		earliest = Unknown
	}

	latest, ok = GetUint64(p, LatestTimeEndCompact)
	if !ok {
		latest = Unknown
	}

	return earliest, latest
}
