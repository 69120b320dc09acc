package filter

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/adammck/sstprops/pkg/api"
	"github.com/adammck/sstprops/pkg/sstable"
	"github.com/adammck/sstprops/pkg/types"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterBasics(t *testing.T) {
	numKeys := 10000
	hashes := make([]uint64, numKeys)
	for i := range hashes {
		hashes[i] = HashKey([]byte(fmt.Sprintf("key-%d", i)))
	}

	f, err := Create(hashes)
	require.NoError(t, err)

	// no false negatives, even after a round trip.
	f2, err := Unmarshal(f.Marshal())
	require.NoError(t, err)
	for i := 0; i < numKeys; i += 100 {
		k := []byte(fmt.Sprintf("key-%d", i))
		require.True(t, f.Contains(k), "key should be in filter: %s", k)
		require.True(t, f2.Contains(k), "key should be in filter: %s", k)
	}

	// few false positives.
	fp := 0
	for i := 0; i < numKeys; i++ {
		if f2.Contains([]byte(fmt.Sprintf("other-%d", i))) {
			fp++
		}
	}
	assert.Less(t, fp, numKeys/50)
}

func TestCreateEmpty(t *testing.T) {
	_, err := Create(nil)
	require.ErrorIs(t, err, ErrEmptyKeySet)
}

func TestCreateDuplicates(t *testing.T) {
	h := HashKey([]byte("a"))
	f, err := Create([]uint64{h, h, h})
	require.NoError(t, err)
	assert.True(t, f.Contains([]byte("a")))
}

func TestUnmarshalTooShort(t *testing.T) {
	_, err := Unmarshal([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestUnmarshalCorruptHeader(t *testing.T) {
	f, err := Create([]uint64{HashKey([]byte("a")), HashKey([]byte("b")), HashKey([]byte("c"))})
	require.NoError(t, err)
	good := f.Marshal()

	tests := []struct {
		name   string
		mangle func(b []byte) []byte
	}{
		{"segment length not a power of two", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[8:], 3)
			return b
		}},
		{"wrong mask", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[12:], 0)
			return b
		}},
		{"zero segments", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[16:], 0)
			return b
		}},
		{"huge segment count length", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[20:], 1<<31)
			return b
		}},
		{"truncated fingerprints", func(b []byte) []byte {
			return b[:len(b)-1]
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.mangle(bytes.Clone(good)))
			require.ErrorIs(t, err, ErrCorrupt)

			// and through the property, which is what inspect uses.
			p := api.UserCollectedProperties{PropertyName: tt.mangle(bytes.Clone(good))}
			assert.NotPanics(t, func() {
				_, err = MayContain(p, []byte("a"))
			})
			require.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestMayContainWithoutFilter(t *testing.T) {
	ok, err := MayContain(api.UserCollectedProperties{}, []byte("anything"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCollectorSkipsVersions(t *testing.T) {
	c := &Collector{}
	for _, k := range []string{"a", "a", "a", "b", "c", "c"} {
		require.NoError(t, c.AddUserKey([]byte(k), nil, api.EntryPut, 1, 0))
	}

	assert.Len(t, c.hashes, 3)
	assert.Equal(t, []byte("3"), c.ReadableProperties()[KeysPropertyName])
}

func TestCollectorEmpty(t *testing.T) {
	p := api.UserCollectedProperties{}
	require.NoError(t, (&Collector{}).Finish(p))
	assert.NotContains(t, p, PropertyName)
}

func TestCollectorInTable(t *testing.T) {
	c := clockwork.NewFakeClock()
	w := sstable.NewWriter(c, sstable.WithUserCollectorFactory(CollectorFactory{}))

	for i, k := range []string{"apple", "banana", "cherry"} {
		seq := api.SequenceNumber(i + 1)
		require.NoError(t, w.Add(types.MakeInternalKey([]byte(k), seq, types.TypeValue), []byte("v")))
		require.NoError(t, w.Add(types.MakeInternalKey([]byte(k), seq+10, types.TypeDeletion), nil))
	}

	var buf bytes.Buffer
	meta, err := w.Write(&buf)
	require.NoError(t, err)
	assert.Equal(t, "3", meta.Readable[KeysPropertyName])

	p, err := sstable.ReadProperties(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	for _, k := range []string{"apple", "banana", "cherry"} {
		ok, err := MayContain(p, []byte(k))
		require.NoError(t, err)
		assert.True(t, ok, k)
	}
}
