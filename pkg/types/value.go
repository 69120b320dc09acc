package types

import (
	"encoding/binary"
)

// EncodeValueIndex builds the value of a ValueIndex or MergeIndex entry: the
// number of the blob file holding the real value, followed by its meta.
func EncodeValueIndex(fileNumber uint64, meta []byte) []byte {
	b := binary.AppendUvarint(nil, fileNumber)
	return append(b, meta...)
}

// DecodeValueMeta returns the meta part of an index value. If the file number
// prefix is malformed, the meta is empty.
func DecodeValueMeta(value []byte) []byte {
	_, n := binary.Uvarint(value)
	if n <= 0 {
		return nil
	}
	return value[n:]
}
