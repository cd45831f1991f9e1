package fulltext

// Intersection is a pull-based, lazily-evaluated AND over a set of posting
// cursors. It performs a round-robin leapfrog merge: advance the reader
// holding the smallest known mismatch past every other reader's current
// id, until all agree, then apply the liveness predicate and emit. Callers
// cancel simply by not calling Next again — no work happens beyond what
// has already been pulled.
type Intersection struct {
	readers  []*ChunkReader
	isActive func(uint32) bool
	hw       *HardwareCounter

	cur      uint32
	agreed   int
	next     int
	done     bool
	started  bool
}

// NewIntersection builds an intersection over readers. An empty reader set
// never yields anything (empty query already short-circuits in the
// façade, but this is defensive).
func NewIntersection(readers []*ChunkReader, isActive func(uint32) bool, hw *HardwareCounter) *Intersection {
	return &Intersection{readers: readers, isActive: isActive, hw: hw}
}

func (it *Intersection) primeFirst() bool {
	if len(it.readers) == 0 {
		return false
	}
	id, ok := it.readers[0].Current(it.hw)
	if !ok {
		return false
	}
	it.cur = id
	it.agreed = 1
	it.next = 1 % len(it.readers)
	return true
}

// Next returns the next matching, active id in ascending order, or
// (0, false) once the intersection is exhausted.
func (it *Intersection) Next() (uint32, bool) {
	if it.done {
		return 0, false
	}
	if !it.started {
		it.started = true
		if !it.primeFirst() {
			it.done = true
			return 0, false
		}
	}

	for {
		if it.agreed == len(it.readers) {
			candidate := it.cur
			// Move every reader past the candidate to find the next one.
			id, ok := it.readers[0].AdvancePast(candidate+1, it.hw)
			if !ok {
				it.done = true
			} else {
				it.cur = id
				it.agreed = 1
				it.next = 1 % len(it.readers)
			}
			if it.isActive(candidate) {
				return candidate, true
			}
			if it.done {
				return 0, false
			}
			continue
		}

		id, ok := it.readers[it.next].AdvancePast(it.cur, it.hw)
		if !ok {
			it.done = true
			return 0, false
		}
		if id == it.cur {
			it.agreed++
			it.next = (it.next + 1) % len(it.readers)
			continue
		}
		it.cur = id
		it.agreed = 1
		it.next = (it.next + 1) % len(it.readers)
	}
}

// Collect drains the intersection into a slice. Convenience for callers
// that want the whole result set (e.g. tests); the façade's Filter can
// also expose Next directly for true pull-based consumption.
func (it *Intersection) Collect() []uint32 {
	var out []uint32
	for {
		id, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, id)
	}
}
