package compactor

import (
	"testing"
	"time"

	"github.com/adammck/sstprops/pkg/api"
	"github.com/adammck/sstprops/pkg/props"
	"github.com/adammck/sstprops/pkg/sstable"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nowUnix = 1_700_000_000

func metaWith(id string, earliest, latest uint64) *sstable.Meta {
	p := api.UserCollectedProperties{}
	if earliest != 0 {
		props.PutUint64(p, props.EarliestTimeBeginCompact, earliest)
	}
	if latest != 0 {
		props.PutUint64(p, props.LatestTimeEndCompact, latest)
	}
	return &sstable.Meta{
		ID:         id,
		Created:    time.Unix(nowUnix-3600, 0),
		Properties: p,
	}
}

func newPicker(t *testing.T) *Picker {
	p, err := NewPicker(clockwork.NewFakeClockAt(time.Unix(nowUnix, 0)), 16)
	require.NoError(t, err)
	return p
}

func TestNewPickerInvalidCacheSize(t *testing.T) {
	_, err := NewPicker(clockwork.NewFakeClock(), 0)
	require.Error(t, err)
}

func TestPickEmpty(t *testing.T) {
	p := newPicker(t)
	require.Empty(t, p.Pick(nil))
}

func TestPick(t *testing.T) {
	p := newPicker(t)

	metas := []*sstable.Meta{
		metaWith("a", nowUnix-10, props.Unknown),
		metaWith("b", props.Unknown, nowUnix-100),
		metaWith("c", nowUnix+10, nowUnix+5),
		metaWith("d", 0, 0),
		metaWith("e", nowUnix, nowUnix),
		metaWith("f", props.Unknown, props.Unknown),
	}

	picks := p.Pick(metas)
	require.Len(t, picks, 3)

	tests := []struct {
		id     string
		due    uint64
		reason string
	}{
		{"b", nowUnix - 100, props.LatestTimeEndCompact},
		{"a", nowUnix - 10, props.EarliestTimeBeginCompact},
		{"e", nowUnix, props.LatestTimeEndCompact},
	}

	for i, tt := range tests {
		assert.Equal(t, tt.id, picks[i].Meta.ID)
		assert.Equal(t, tt.due, picks[i].Due)
		assert.Equal(t, tt.reason, picks[i].Reason)
	}
}

func TestPickTiesByFilename(t *testing.T) {
	p := newPicker(t)

	picks := p.Pick([]*sstable.Meta{
		metaWith("z", nowUnix-1, props.Unknown),
		metaWith("m", nowUnix-1, props.Unknown),
	})

	require.Len(t, picks, 2)
	assert.Equal(t, "m", picks[0].Meta.ID)
	assert.Equal(t, "z", picks[1].Meta.ID)
}

func TestPickCachesTimePoints(t *testing.T) {
	p := newPicker(t)
	m := metaWith("a", nowUnix+100, props.Unknown)
	require.Empty(t, p.Pick([]*sstable.Meta{m}))

	// the properties of a file never change, so they're not read again.
	props.PutUint64(m.Properties, props.EarliestTimeBeginCompact, nowUnix-100)
	require.Empty(t, p.Pick([]*sstable.Meta{m}))

	p.Forget(m.Filename())
	require.Len(t, p.Pick([]*sstable.Meta{m}), 1)
}

func TestPickAdvancingClock(t *testing.T) {
	c := clockwork.NewFakeClockAt(time.Unix(nowUnix, 0))
	p, err := NewPicker(c, 16)
	require.NoError(t, err)

	m := metaWith("a", nowUnix+60, props.Unknown)
	require.Empty(t, p.Pick([]*sstable.Meta{m}))

	c.Advance(time.Minute)
	require.Len(t, p.Pick([]*sstable.Meta{m}), 1)
}
