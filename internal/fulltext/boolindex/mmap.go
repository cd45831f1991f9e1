package boolindex

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

const (
	trueFileName  = "bool_true.dat"
	falseFileName = "bool_false.dat"
)

// MmapBoolIndex is the on-disk-backed representation: one RoaringBitmap per
// boolean value, serialized to its own file via the atomic write-then-rename
// pattern (writeBitmapAtomic) and reloaded with Load. Despite the name
// (matching the Rust original's Simple/Mmap split, see DESIGN.md), Load
// reads each file into an ordinary in-memory *roaring.Bitmap with
// os.ReadFile + Bitmap.ReadFrom rather than mapping it — there is no
// zero-copy view over the file here, just disk-backed persistence.
type MmapBoolIndex struct {
	dir string

	mu    sync.RWMutex
	true_ *roaring.Bitmap
	false_ *roaring.Bitmap
}

// NewMmapBoolIndex returns an empty mmap-backed bool index rooted at dir.
// Call Load to pick up any persisted state, or Flush to create it.
func NewMmapBoolIndex(dir string) *MmapBoolIndex {
	return &MmapBoolIndex{dir: dir, true_: roaring.New(), false_: roaring.New()}
}

func (m *MmapBoolIndex) setFor(value bool) *roaring.Bitmap {
	if value {
		return m.true_
	}
	return m.false_
}

// AddPoint implements Index.
func (m *MmapBoolIndex) AddPoint(id PointID, values []bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.true_.Remove(id)
	m.false_.Remove(id)
	for _, v := range values {
		m.setFor(v).Add(id)
	}
}

// RemovePoint implements Index.
func (m *MmapBoolIndex) RemovePoint(id PointID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.true_.Remove(id)
	m.false_.Remove(id)
}

// Filter implements Index.
func (m *MmapBoolIndex) Filter(value bool) []PointID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.setFor(value).ToArray()
}

// EstimateCardinality implements Index.
func (m *MmapBoolIndex) EstimateCardinality(value bool) CardinalityEstimation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := int(m.setFor(value).GetCardinality())
	return CardinalityEstimation{Exact: true, Min: n, Max: n, Count: n}
}

// PayloadBlocks implements Index.
func (m *MmapBoolIndex) PayloadBlocks(threshold int) []PayloadBlockCondition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var blocks []PayloadBlockCondition
	for _, v := range [2]bool{false, true} {
		if n := int(m.setFor(v).GetCardinality()); n > threshold {
			blocks = append(blocks, PayloadBlockCondition{Value: v, Cardinality: n})
		}
	}
	return blocks
}

// Files implements Index.
func (m *MmapBoolIndex) Files() []string {
	return []string{
		filepath.Join(m.dir, trueFileName),
		filepath.Join(m.dir, falseFileName),
	}
}

func writeBitmapAtomic(path string, bm *roaring.Bitmap) error {
	var buf bytes.Buffer
	if _, err := bm.WriteTo(&buf); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Flush persists both bitmaps to disk via the atomic write-then-rename
// pattern, so a crash mid-write never leaves a partially-written file at
// the canonical path.
func (m *MmapBoolIndex) Flush() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return err
	}
	if err := writeBitmapAtomic(filepath.Join(m.dir, trueFileName), m.true_); err != nil {
		return err
	}
	return writeBitmapAtomic(filepath.Join(m.dir, falseFileName), m.false_)
}

func readBitmap(path string) (*roaring.Bitmap, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return roaring.New(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	bm := roaring.New()
	if _, err := bm.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, false, err
	}
	return bm, true, nil
}

// Load implements Index: reloads both bitmaps from disk, reporting
// whether persisted state was found at all.
func (m *MmapBoolIndex) Load() (bool, error) {
	trueBM, trueFound, err := readBitmap(filepath.Join(m.dir, trueFileName))
	if err != nil {
		return false, err
	}
	falseBM, falseFound, err := readBitmap(filepath.Join(m.dir, falseFileName))
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	m.true_ = trueBM
	m.false_ = falseBM
	m.mu.Unlock()

	return trueFound || falseFound, nil
}

// Cleanup implements Index.
func (m *MmapBoolIndex) Cleanup() error {
	for _, f := range m.Files() {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// CountIndexedPoints implements Index.
func (m *MmapBoolIndex) CountIndexedPoints() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	union := roaring.Or(m.true_, m.false_)
	return int(union.GetCardinality())
}

// IterValuesMap implements Index.
func (m *MmapBoolIndex) IterValuesMap() map[bool][]PointID {
	return map[bool][]PointID{true: m.Filter(true), false: m.Filter(false)}
}

// ValuesCount implements Index.
func (m *MmapBoolIndex) ValuesCount(id PointID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	if m.true_.Contains(id) {
		count++
	}
	if m.false_.Contains(id) {
		count++
	}
	return count
}

// ValuesIsEmpty implements Index.
func (m *MmapBoolIndex) ValuesIsEmpty(id PointID) bool {
	return m.ValuesCount(id) == 0
}

// CheckValuesAny implements Index.
func (m *MmapBoolIndex) CheckValuesAny(id PointID, isTrue bool) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.setFor(isTrue).Contains(id)
}

var _ Index = (*MmapBoolIndex)(nil)
