package collector

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adammck/sstprops/pkg/api"
	"github.com/adammck/sstprops/pkg/types"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

const nowUnix = 1_700_000_000

var errCorrupt = errors.New("corrupt value")

// valueExtractor reads the TTL (in seconds) from the value itself. "none" means
// no TTL, and "corrupt" fails.
type valueExtractor struct {
	seen   []string
	closed int
}

func (e *valueExtractor) Extract(typ api.EntryType, userKey, value []byte) (time.Duration, bool, error) {
	e.seen = append(e.seen, string(value))

	switch string(value) {
	case "none":
		return 0, false, nil
	case "corrupt":
		return 0, false, errCorrupt
	}

	n, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return 0, false, err
	}
	return time.Duration(n) * time.Second, true, nil
}

func (e *valueExtractor) Close() error {
	e.closed++
	return nil
}

type valueExtractorFactory struct {
	created atomic.Int64
	err     error

	mu   sync.Mutex
	last *valueExtractor
}

func (f *valueExtractorFactory) Name() string {
	return "Value"
}

func (f *valueExtractorFactory) CreateTtlExtractor(ctx api.TtlExtractorContext) (api.TtlExtractor, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created.Add(1)
	e := &valueExtractor{}
	f.mu.Lock()
	f.last = e
	f.mu.Unlock()
	return e, nil
}

// fakeHistogram returns a fixed percentile, and records what it was asked.
type fakeHistogram struct {
	samples []uint64
	pct     float64
	asked   []float64
}

func (h *fakeHistogram) Add(v uint64) {
	h.samples = append(h.samples, v)
}

func (h *fakeHistogram) Empty() bool {
	return len(h.samples) == 0
}

func (h *fakeHistogram) Percentile(p float64) float64 {
	h.asked = append(h.asked, p)
	return h.pct
}

func newClock() *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(time.Unix(nowUnix, 0))
}

func newCollector(opts TtlOptions, o ...Option) (*TtlCollector, *valueExtractor) {
	ext := &valueExtractor{}
	return NewTtlCollector("TtlCollector.Value", ext, newClock(), opts, o...), ext
}

func withFakeHistogram(h *fakeHistogram) Option {
	return WithHistogram(func() api.Histogram { return h })
}

// add adds an entry with the given type and value, and a unique key.
func add(t testing.TB, c api.IntTblPropCollector, vt types.ValueType, value string) {
	t.Helper()
	require.NoError(t, addErr(c, vt, value))
}

var seq api.SequenceNumber

func addErr(c api.IntTblPropCollector, vt types.ValueType, value string) error {
	seq++
	k := types.MakeInternalKey([]byte("key-"+strconv.FormatUint(uint64(seq), 10)), seq, vt)
	return c.InternalAdd(k, []byte(value), 0)
}

func putTTLs(t testing.TB, c api.IntTblPropCollector, ttls ...string) {
	t.Helper()
	for _, v := range ttls {
		add(t, c, types.TypeValue, v)
	}
}

func finish(t testing.TB, c api.IntTblPropCollector) api.UserCollectedProperties {
	t.Helper()
	p := api.UserCollectedProperties{}
	require.NoError(t, c.Finish(p))
	return p
}
