package sstable

import (
	"bytes"
	"testing"
	"time"

	"github.com/adammck/sstprops/pkg/api"
	"github.com/adammck/sstprops/pkg/collector"
	"github.com/adammck/sstprops/pkg/extractor"
	"github.com/adammck/sstprops/pkg/types"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func ikey(uk string, seq api.SequenceNumber, t types.ValueType) []byte {
	return types.MakeInternalKey([]byte(uk), seq, t)
}

// tableToSlice reads every entry from r. If any error occurs, the given test
// fails.
func tableToSlice(t testing.TB, r *Reader) []*types.Entry {
	var out []*types.Entry

	for {
		e, err := r.Next()
		require.NoError(t, err)

		// end of table
		if e == nil {
			break
		}

		out = append(out, e)
	}

	return out
}

// ttlFactory returns a collector factory for values which live for an hour
// after the timestamp in their suffix.
func ttlFactory(t testing.TB, c clockwork.Clock, opts collector.TtlOptions) *collector.TtlCollectorFactory {
	f, err := collector.NewTtlCollectorFactory(extractor.NewTimestampedFactory(time.Hour, c), c, opts)
	require.NoError(t, err)
	return f
}

// writeTable writes the given entries to a buffer and returns it.
func writeTable(t testing.TB, w *Writer, entries ...*types.Entry) (*bytes.Reader, *Meta) {
	for _, e := range entries {
		require.NoError(t, w.Add(e.Key, e.Value))
	}

	var buf bytes.Buffer
	m, err := w.Write(&buf)
	require.NoError(t, err)

	return bytes.NewReader(buf.Bytes()), m
}
