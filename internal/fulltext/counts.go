package fulltext

import (
	"encoding/binary"
	"os"

	mmap "github.com/blevesearch/mmap-go"
)

// countWidth is the on-disk width of one point's token count: a
// machine-word-sized unsigned counter, per spec §6. 8 bytes keeps the
// format endian-portable to future wider segments without a version bump.
const countWidth = 8

// CreateCounts serializes counts (indexed by PointOffsetType, zero meaning
// "indexed but empty") to path.
func CreateCounts(path string, counts []uint64) error {
	out := make([]byte, len(counts)*countWidth)
	for i, c := range counts {
		binary.LittleEndian.PutUint64(out[i*countWidth:], c)
	}
	return os.WriteFile(path, out, 0o644)
}

// CountsStore is the mmap'd point->token-count slice. It is mapped
// read-write so ZeroCount can clear a removed point's count in place.
type CountsStore struct {
	file    *os.File
	mapping mmap.MMap
	data    []byte
}

// OpenCounts maps point_to_tokens_count.dat. When populate is true every
// page is faulted in before returning.
func OpenCounts(path string, populate bool) (*CountsStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, wrapIO("open point_to_tokens_count.dat", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, wrapIO("stat point_to_tokens_count.dat", err)
	}

	if info.Size() == 0 {
		f.Close()
		return &CountsStore{}, nil
	}

	// RDWR: remove_document zeroes a point's count in place (see ZeroCount).
	// The deleted-points overlay is what makes the point logically absent;
	// this mutation only keeps values_count/values_is_empty honest without
	// a second indirection through the overlay on every read.
	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, wrapIO("mmap point_to_tokens_count.dat", err)
	}

	s := &CountsStore{file: f, mapping: m, data: m}
	if populate {
		populateBytes(m)
	}
	return s, nil
}

// Len returns the number of points this store has a count for.
func (s *CountsStore) Len() int {
	return len(s.data) / countWidth
}

// Get returns the token count for id, or (0, false) if id is out of range.
func (s *CountsStore) Get(id PointOffsetType) (uint64, bool) {
	off := int(id) * countWidth
	if off+countWidth > len(s.data) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(s.data[off : off+countWidth]), true
}

// ZeroCount sets the count at id to zero and reports whether id was in
// bounds. Out-of-range ids are a no-op returning false — this is the hook
// remove_document uses to decide whether to decrement active_points_count.
func (s *CountsStore) ZeroCount(id PointOffsetType) bool {
	off := int(id) * countWidth
	if off+countWidth > len(s.data) {
		return false
	}
	binary.LittleEndian.PutUint64(s.data[off:off+countWidth], 0)
	return true
}

// Close unmaps point_to_tokens_count.dat, if it was mapped at all (an empty
// segment has nothing to unmap).
func (s *CountsStore) Close() error {
	if s.mapping == nil {
		return nil
	}
	if err := s.mapping.Unmap(); err != nil {
		return wrapIO("unmap point_to_tokens_count.dat", err)
	}
	return s.file.Close()
}

// Populate touches every mapped page, blocking until all are resident.
func (s *CountsStore) Populate() {
	if s.data != nil {
		populateBytes(s.data)
	}
}
