package compactor

import (
	"fmt"
	"sort"

	"github.com/adammck/sstprops/pkg/props"
	"github.com/adammck/sstprops/pkg/sstable"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
)

type timePoints struct {
	earliest uint64
	latest   uint64
}

// Pick is an sstable which is due for compaction.
type Pick struct {
	Meta *sstable.Meta

	// Due is the unix time (in seconds) at which the file became due.
	Due uint64

	// Reason is the name of the property which made the file due.
	Reason string
}

// Picker chooses sstables to compact by the time points which the TTL
// collector recorded when they were written.
type Picker struct {
	clock clockwork.Clock
	cache *lru.Cache[string, timePoints]
}

// NewPicker returns a picker which remembers the time points of up to
// cacheSize files.
func NewPicker(clock clockwork.Clock, cacheSize int) (*Picker, error) {
	c, err := lru.New[string, timePoints](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("lru.New: %w", err)
	}

	return &Picker{
		clock: clock,
		cache: c,
	}, nil
}

// Pick returns the files which are due now, the longest overdue first. A file
// is due once either of its time points has passed. Files with neither time
// point are never due.
func (p *Picker) Pick(metas []*sstable.Meta) []*Pick {
	now := p.now()
	picks := []*Pick{}

	for _, m := range metas {
		tp := p.timePoints(m)

		due, reason := tp.latest, props.LatestTimeEndCompact
		if tp.earliest < tp.latest {
			due, reason = tp.earliest, props.EarliestTimeBeginCompact
		}

		if due == props.Unknown || due > now {
			continue
		}

		picks = append(picks, &Pick{
			Meta:   m,
			Due:    due,
			Reason: reason,
		})
	}

	sort.SliceStable(picks, func(i, j int) bool {
		if picks[i].Due != picks[j].Due {
			return picks[i].Due < picks[j].Due
		}
		return picks[i].Meta.Filename() < picks[j].Meta.Filename()
	})

	return picks
}

// Forget drops the cached time points of the named file, e.g. once it has
// been compacted away.
func (p *Picker) Forget(name string) {
	p.cache.Remove(name)
}

func (p *Picker) timePoints(m *sstable.Meta) timePoints {
	name := m.Filename()
	if tp, ok := p.cache.Get(name); ok {
		return tp
	}

	e, l := m.TimePoints()
	tp := timePoints{earliest: e, latest: l}
	p.cache.Add(name, tp)
	return tp
}

func (p *Picker) now() uint64 {
	s := p.clock.Now().Unix()
	if s < 0 {
		return 0
	}
	return uint64(s)
}
