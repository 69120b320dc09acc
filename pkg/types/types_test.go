package types

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEntryRoundTrip(t *testing.T) {
	testCases := []struct {
		name  string
		entry Entry
	}{
		{
			name: "put",
			entry: Entry{
				Key:   MakeInternalKey([]byte("test-key"), 10, TypeValue),
				Value: []byte("test-value"),
			},
		},
		{
			name: "delete",
			entry: Entry{
				Key: MakeInternalKey([]byte("test-key"), 11, TypeDeletion),
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := tc.entry.Write(&buf)
			require.NoError(t, err)
			require.Equal(t, buf.Len(), n)

			got, err := Read(&buf)
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Equal(t, tc.entry.Key, got.Key)
			require.Equal(t, tc.entry.Value, got.Value)

			// EOF
			got, err = Read(&buf)
			require.NoError(t, err)
			require.Nil(t, got)
		})
	}
}

func TestReadTruncated(t *testing.T) {
	e := &Entry{Key: MakeInternalKey([]byte("k"), 1, TypeValue), Value: []byte("v")}
	var buf bytes.Buffer
	_, err := e.Write(&buf)
	require.NoError(t, err)

	_, err = Read(bytes.NewReader(buf.Bytes()[:buf.Len()-2]))
	require.Error(t, err)
}

func TestReadBadLength(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte{1, 0, 0, 0}))
	require.ErrorContains(t, err, "invalid BSON document length")
}
