package boolindex

// Variant tags which representation a BoolIndex holds.
type Variant int

const (
	VariantSimple Variant = iota
	VariantMmap
)

// BoolIndex dispatches to one of the two Index representations by
// variant. Kept a thin wrapper around the interface rather than a tagged
// union with inline match arms (unlike the full-text index's hot filter
// path, this dispatch is not performance-critical enough to justify
// avoiding the vtable).
type BoolIndex struct {
	variant Variant
	inner   Index
}

// NewSimple wraps a SimpleBoolIndex as a BoolIndex.
func NewSimple(idx *SimpleBoolIndex) *BoolIndex {
	return &BoolIndex{variant: VariantSimple, inner: idx}
}

// NewMmap wraps a MmapBoolIndex as a BoolIndex.
func NewMmap(idx *MmapBoolIndex) *BoolIndex {
	return &BoolIndex{variant: VariantMmap, inner: idx}
}

// Variant reports which representation backs this index.
func (b *BoolIndex) Variant() Variant {
	return b.variant
}

func (b *BoolIndex) AddPoint(id PointID, values []bool)      { b.inner.AddPoint(id, values) }
func (b *BoolIndex) RemovePoint(id PointID)                  { b.inner.RemovePoint(id) }
func (b *BoolIndex) Filter(value bool) []PointID             { return b.inner.Filter(value) }
func (b *BoolIndex) Files() []string                         { return b.inner.Files() }
func (b *BoolIndex) Flush() error                            { return b.inner.Flush() }
func (b *BoolIndex) Load() (bool, error)                     { return b.inner.Load() }
func (b *BoolIndex) Cleanup() error                           { return b.inner.Cleanup() }
func (b *BoolIndex) CountIndexedPoints() int                  { return b.inner.CountIndexedPoints() }
func (b *BoolIndex) IterValuesMap() map[bool][]PointID        { return b.inner.IterValuesMap() }
func (b *BoolIndex) ValuesCount(id PointID) int               { return b.inner.ValuesCount(id) }
func (b *BoolIndex) ValuesIsEmpty(id PointID) bool            { return b.inner.ValuesIsEmpty(id) }
func (b *BoolIndex) CheckValuesAny(id PointID, isTrue bool) bool {
	return b.inner.CheckValuesAny(id, isTrue)
}
func (b *BoolIndex) EstimateCardinality(value bool) CardinalityEstimation {
	return b.inner.EstimateCardinality(value)
}
func (b *BoolIndex) PayloadBlocks(threshold int) []PayloadBlockCondition {
	return b.inner.PayloadBlocks(threshold)
}
