package boolindex

import "sort"

// SimpleBoolIndex is the in-memory, map-backed representation. It has no
// on-disk footprint: Files returns nil, Flush and Cleanup are no-ops, and
// Load always reports nothing found — a segment that wants this variant
// to survive a restart must rebuild it from the payload storage, same as
// the teacher's in-memory indexes do.
type SimpleBoolIndex struct {
	trueSet  map[PointID]struct{}
	falseSet map[PointID]struct{}
}

// NewSimpleBoolIndex returns an empty map-backed bool index.
func NewSimpleBoolIndex() *SimpleBoolIndex {
	return &SimpleBoolIndex{
		trueSet:  make(map[PointID]struct{}),
		falseSet: make(map[PointID]struct{}),
	}
}

func (s *SimpleBoolIndex) setFor(value bool) map[PointID]struct{} {
	if value {
		return s.trueSet
	}
	return s.falseSet
}

// AddPoint implements Index.
func (s *SimpleBoolIndex) AddPoint(id PointID, values []bool) {
	s.RemovePoint(id)
	for _, v := range values {
		s.setFor(v)[id] = struct{}{}
	}
}

// RemovePoint implements Index.
func (s *SimpleBoolIndex) RemovePoint(id PointID) {
	delete(s.trueSet, id)
	delete(s.falseSet, id)
}

// Filter implements Index.
func (s *SimpleBoolIndex) Filter(value bool) []PointID {
	set := s.setFor(value)
	out := make([]PointID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// EstimateCardinality implements Index.
func (s *SimpleBoolIndex) EstimateCardinality(value bool) CardinalityEstimation {
	n := len(s.setFor(value))
	return CardinalityEstimation{Exact: true, Min: n, Max: n, Count: n}
}

// PayloadBlocks implements Index.
func (s *SimpleBoolIndex) PayloadBlocks(threshold int) []PayloadBlockCondition {
	var blocks []PayloadBlockCondition
	for _, v := range [2]bool{false, true} {
		if n := len(s.setFor(v)); n > threshold {
			blocks = append(blocks, PayloadBlockCondition{Value: v, Cardinality: n})
		}
	}
	return blocks
}

// Files implements Index: a purely in-memory variant owns no files.
func (s *SimpleBoolIndex) Files() []string { return nil }

// Flush implements Index: nothing to persist.
func (s *SimpleBoolIndex) Flush() error { return nil }

// Load implements Index: nothing to reload.
func (s *SimpleBoolIndex) Load() (bool, error) { return false, nil }

// Cleanup implements Index: nothing on disk to remove.
func (s *SimpleBoolIndex) Cleanup() error { return nil }

// CountIndexedPoints implements Index.
func (s *SimpleBoolIndex) CountIndexedPoints() int {
	seen := make(map[PointID]struct{}, len(s.trueSet)+len(s.falseSet))
	for id := range s.trueSet {
		seen[id] = struct{}{}
	}
	for id := range s.falseSet {
		seen[id] = struct{}{}
	}
	return len(seen)
}

// IterValuesMap implements Index.
func (s *SimpleBoolIndex) IterValuesMap() map[bool][]PointID {
	return map[bool][]PointID{true: s.Filter(true), false: s.Filter(false)}
}

// ValuesCount implements Index.
func (s *SimpleBoolIndex) ValuesCount(id PointID) int {
	count := 0
	if _, ok := s.trueSet[id]; ok {
		count++
	}
	if _, ok := s.falseSet[id]; ok {
		count++
	}
	return count
}

// ValuesIsEmpty implements Index.
func (s *SimpleBoolIndex) ValuesIsEmpty(id PointID) bool {
	return s.ValuesCount(id) == 0
}

// CheckValuesAny implements Index.
func (s *SimpleBoolIndex) CheckValuesAny(id PointID, isTrue bool) bool {
	_, ok := s.setFor(isTrue)[id]
	return ok
}

var _ Index = (*SimpleBoolIndex)(nil)
