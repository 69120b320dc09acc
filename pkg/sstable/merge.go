package sstable

import (
	"container/heap"
	"fmt"

	"github.com/adammck/sstprops/pkg/types"
)

// MergeReader yields the entries of several sstables in internal key order.
type MergeReader struct {
	h entryHeap
}

func NewMergeReader(readers []*Reader) (*MergeReader, error) {
	h := make(entryHeap, 0, len(readers))
	heap.Init(&h)

	// init all readers with their first entry.
	for i, r := range readers {
		e, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("init reader %d: %w", i, err)
		}
		if e != nil {
			heap.Push(&h, &readerState{
				reader: r,
				entry:  e,
			})
		}
	}

	return &MergeReader{h: h}, nil
}

// Next returns the next entry across all readers, or nil when they are all
// exhausted.
func (m *MergeReader) Next() (*types.Entry, error) {
	if m.h.Len() == 0 {
		return nil, nil
	}

	st := heap.Pop(&m.h).(*readerState)
	e := st.entry

	// read the next entry from *this* reader, and add it to the heap to be
	// considered on the next call to this method.
	ne, err := st.reader.Next()
	if err != nil {
		return nil, fmt.Errorf("Reader.Next: %w", err)
	}
	if ne != nil {
		st.entry = ne
		heap.Push(&m.h, st)
	}

	return e, nil
}

type readerState struct {
	reader *Reader
	entry  *types.Entry
}

type entryHeap []*readerState

func (h entryHeap) Len() int {
	return len(h)
}

func (h entryHeap) Less(i, j int) bool {
	return types.CompareInternalKeys(h[i].entry.Key, h[j].entry.Key) < 0
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(*readerState))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}
