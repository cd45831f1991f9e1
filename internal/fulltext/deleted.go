package fulltext

import (
	"os"
	"sync"

	"github.com/bits-and-blooms/bitset"
	mmap "github.com/blevesearch/mmap-go"
)

// CreateDeleted serializes a packed bit array of numBits bits, all clear, to
// path. Builders that need some bits pre-set (e.g. None counts) should set
// them via a DeletedOverlay opened against the written file before the
// index is handed to callers.
func CreateDeleted(path string, numBits int) error {
	out := make([]byte, (numBits+7)/8)
	return os.WriteFile(path, out, 0o644)
}

// DeletedOverlay wraps a mmap'd bitslice with an in-memory pending-updates
// buffer: set(i, true) stages into pending and is immediately visible to
// get(i); the mmap region itself is only touched on Flush. Deletion is
// monotonic (spec §3) so pending only ever records bits going from clear to
// set, never the reverse.
//
// Concurrency: a single RWMutex guards both pending and the mmap region.
// Reads take RLock, so concurrent Get calls do not block each other; Set and
// Flush take the exclusive Lock. This trades the "lock-free common path"
// aspiration for a straightforward, torn-read-free implementation — see
// the grounding ledger for why.
type DeletedOverlay struct {
	file    *os.File
	mapping mmap.MMap
	data    []byte
	numBits int

	mu      sync.RWMutex
	pending *bitset.BitSet
}

// OpenDeleted maps deleted_points.dat. When populate is true every page is
// faulted in before returning.
func OpenDeleted(path string, populate bool) (*DeletedOverlay, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, wrapIO("open deleted_points.dat", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, wrapIO("stat deleted_points.dat", err)
	}

	o := &DeletedOverlay{file: f, pending: bitset.New(0)}

	if info.Size() == 0 {
		return o, nil
	}

	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, wrapIO("mmap deleted_points.dat", err)
	}

	o.mapping = m
	o.data = m
	o.numBits = len(m) * 8

	if populate {
		populateBytes(m)
	}

	return o, nil
}

// Len reports the bit length of the overlay.
func (o *DeletedOverlay) Len() int {
	return o.numBits
}

// Get returns the current logical state of bit i and true, or (false,
// false) when i is out of range (never existed).
func (o *DeletedOverlay) Get(i int) (bool, bool) {
	if i < 0 || i >= o.numBits {
		return false, false
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.pending.Test(uint(i)) {
		return true, true
	}
	byteIdx := i / 8
	bitIdx := uint(i % 8)
	return o.data[byteIdx]&(1<<bitIdx) != 0, true
}

// Set stages bit i as deleted. i out of range is a programmer bug: every
// caller (Create's None-backfill, RemoveDocument) already bounds-checked
// via Get/Len before calling Set.
func (o *DeletedOverlay) Set(i int) {
	if i < 0 || i >= o.numBits {
		outOfBounds("deleted bit", i, o.numBits)
	}
	o.mu.Lock()
	o.pending.Set(uint(i))
	o.mu.Unlock()
}

// CountOnes returns the number of set bits in the mmap region as of open
// time. Per spec §4.3 this does not reflect pending (unflushed) updates;
// live counts are tracked externally by the façade.
func (o *DeletedOverlay) CountOnes() int {
	count := 0
	for _, b := range o.data {
		count += popcount8(b)
	}
	return count
}

func popcount8(b byte) int {
	count := 0
	for b != 0 {
		count += int(b & 1)
		b >>= 1
	}
	return count
}

// IsDeleted reports whether id is deleted or out of range, satisfying
// quantized.DeletedBitmap by structural typing (this package does not
// import quantized, and never needs to).
func (o *DeletedOverlay) IsDeleted(id uint32) bool {
	deleted, ok := o.Get(int(id))
	return !ok || deleted
}

// Flush drains pending updates into the mmap region and fsyncs. It holds
// the overlay's exclusive lock for the whole drain, so concurrent flushes
// and Set calls wait for it to finish.
func (o *DeletedOverlay) Flush() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pending.Count() == 0 {
		return nil
	}

	for i, e := o.pending.NextSet(0); e; i, e = o.pending.NextSet(i + 1) {
		byteIdx := int(i) / 8
		bitIdx := i % 8
		o.data[byteIdx] |= 1 << bitIdx
	}
	o.pending = bitset.New(uint(o.numBits))

	if o.mapping != nil {
		if err := o.mapping.Flush(); err != nil {
			return wrapIO("flush deleted_points.dat", err)
		}
	}
	return nil
}

// Close unmaps deleted_points.dat, if it was mapped at all.
func (o *DeletedOverlay) Close() error {
	if o.mapping == nil {
		return o.file.Close()
	}
	if err := o.mapping.Unmap(); err != nil {
		return wrapIO("unmap deleted_points.dat", err)
	}
	return o.file.Close()
}

// Populate touches every mapped page, blocking until all are resident.
func (o *DeletedOverlay) Populate() {
	if o.data != nil {
		populateBytes(o.data)
	}
}
