package types

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/adammck/sstprops/pkg/api"
)

// ValueType is the type tag stored in the low byte of an internal key trailer.
type ValueType uint8

const (
	TypeDeletion                     ValueType = 0x0
	TypeValue                        ValueType = 0x1
	TypeMerge                        ValueType = 0x2
	TypeLogData                      ValueType = 0x3
	TypeColumnFamilyDeletion         ValueType = 0x4
	TypeColumnFamilyValue            ValueType = 0x5
	TypeColumnFamilyMerge            ValueType = 0x6
	TypeSingleDeletion               ValueType = 0x7
	TypeColumnFamilySingleDeletion   ValueType = 0x8
	TypeBeginPrepareXID              ValueType = 0x9
	TypeEndPrepareXID                ValueType = 0xA
	TypeCommitXID                    ValueType = 0xB
	TypeRollbackXID                  ValueType = 0xC
	TypeNoop                         ValueType = 0xD
	TypeColumnFamilyRangeDeletion    ValueType = 0xE
	TypeRangeDeletion                ValueType = 0xF
	TypeColumnFamilyValueIndex       ValueType = 0x10
	TypeValueIndex                   ValueType = 0x11
	TypeBeginPersistedPrepareXID     ValueType = 0x12
	TypeBeginUnprepareXID            ValueType = 0x13
	TypeColumnFamilyMergeIndex       ValueType = 0x14
	TypeMergeIndex                   ValueType = 0x15
	maxValueType                               = TypeMergeIndex
)

const (
	// MaxSequenceNumber is the largest sequence number which fits in a trailer
	// alongside the type byte.
	MaxSequenceNumber api.SequenceNumber = (1 << 56) - 1

	trailerLen = 8
)

// GetEntryType classifies a value type. Only the types which can appear in an
// sstable get their own EntryType; everything else is EntryOther.
func GetEntryType(t ValueType) api.EntryType {
	switch t {
	case TypeValue:
		return api.EntryPut
	case TypeDeletion:
		return api.EntryDelete
	case TypeSingleDeletion:
		return api.EntrySingleDelete
	case TypeMerge:
		return api.EntryMerge
	case TypeRangeDeletion:
		return api.EntryRangeDeletion
	case TypeValueIndex:
		return api.EntryValueIndex
	case TypeMergeIndex:
		return api.EntryMergeIndex
	default:
		return api.EntryOther
	}
}

type ParsedInternalKey struct {
	UserKey  []byte
	Sequence api.SequenceNumber
	Type     ValueType
}

func (k ParsedInternalKey) String() string {
	return fmt.Sprintf("%q @ %d : %d", k.UserKey, k.Sequence, k.Type)
}

// MakeInternalKey appends the trailer for seq and t to a copy of userKey.
func MakeInternalKey(userKey []byte, seq api.SequenceNumber, t ValueType) []byte {
	if seq > MaxSequenceNumber {
		panic(fmt.Sprintf("sequence number out of range: %d", seq))
	}

	k := make([]byte, len(userKey)+trailerLen)
	copy(k, userKey)
	binary.LittleEndian.PutUint64(k[len(userKey):], packTrailer(seq, t))
	return k
}

// ParseInternalKey splits an internal key into its parts. The returned UserKey
// aliases key.
func ParseInternalKey(key []byte) (ParsedInternalKey, error) {
	if len(key) < trailerLen {
		return ParsedInternalKey{}, &api.InvalidArgument{Msg: fmt.Sprintf("internal key too short: %d bytes", len(key))}
	}

	n := len(key) - trailerLen
	trailer := binary.LittleEndian.Uint64(key[n:])
	t := ValueType(trailer & 0xff)
	if t > maxValueType {
		return ParsedInternalKey{}, &api.InvalidArgument{Msg: fmt.Sprintf("unknown value type: %#x", uint8(t))}
	}

	return ParsedInternalKey{
		UserKey:  key[:n],
		Sequence: api.SequenceNumber(trailer >> 8),
		Type:     t,
	}, nil
}

// ExtractUserKey returns the user key part of an internal key, without
// validating it. The key must be at least eight bytes long.
func ExtractUserKey(key []byte) []byte {
	return key[:len(key)-trailerLen]
}

// ExtractValueType returns the type byte of an internal key, without
// validating it. The key must be at least eight bytes long.
func ExtractValueType(key []byte) ValueType {
	return ValueType(key[len(key)-trailerLen])
}

// CompareInternalKeys orders by user key ascending, then by sequence number
// and type descending, so the newest version of each key comes first.
func CompareInternalKeys(a, b []byte) int {
	if c := bytes.Compare(ExtractUserKey(a), ExtractUserKey(b)); c != 0 {
		return c
	}

	at := binary.LittleEndian.Uint64(a[len(a)-trailerLen:])
	bt := binary.LittleEndian.Uint64(b[len(b)-trailerLen:])
	switch {
	case at > bt:
		return -1
	case at < bt:
		return 1
	default:
		return 0
	}
}

func packTrailer(seq api.SequenceNumber, t ValueType) uint64 {
	return uint64(seq)<<8 | uint64(t)
}
