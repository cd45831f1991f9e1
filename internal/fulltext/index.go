package fulltext

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/aman-cerp/segmentindex/internal/embed"
)

const (
	postingsFileName = "postings.dat"
	vocabFileName    = "vocab.dat"
	countsFileName   = "point_to_tokens_count.dat"
	deletedFileName  = "deleted_points.dat"
	lockFileName     = ".index.lock"
)

// state is the façade's lifecycle state machine (spec §4.4):
// Opening -> Ready -> Flushing -> Ready -> Closed.
type state int

const (
	stateOpening state = iota
	stateReady
	stateFlushing
	stateClosed
)

// Index is the mmap inverted index façade: it assembles the postings
// store, vocabulary, counts, and deletion overlay, and implements query,
// deletion, and stats on top of them. postings.dat and vocab.dat are
// write-once after Create; only deleted_points.dat (through the deletion
// overlay) and point_to_tokens_count.dat (zeroed per removed point) change.
type Index struct {
	dir    string
	cfg    Config
	lock   *embed.FileLock
	stateM sync.RWMutex
	st     state

	postings *PostingsStore
	vocab    *MmapVocab
	counts   *CountsStore
	deleted  *DeletedOverlay

	activePoints atomic.Int64
}

// Create serializes frozen to a fresh directory: postings.dat, vocab.dat,
// point_to_tokens_count.dat, and deleted_points.dat. Asserts
// |vocab| == |postings|.
func Create(dir string, frozen *Frozen) error {
	if len(frozen.Words) != len(frozen.Postings) {
		panic("fulltext: vocab size does not match postings directory size")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return wrapIO("create index directory", err)
	}

	lock := embed.NewFileLockAt(filepath.Join(dir, lockFileName))
	if err := lock.Lock(); err != nil {
		return wrapIO("lock index directory for create", err)
	}
	defer lock.Unlock()

	if err := CreateVocab(filepath.Join(dir, vocabFileName), frozen.Words); err != nil {
		return err
	}
	if err := CreatePostings(filepath.Join(dir, postingsFileName), frozen.Postings); err != nil {
		return err
	}
	if err := CreateCounts(filepath.Join(dir, countsFileName), frozen.Counts); err != nil {
		return err
	}
	if err := CreateDeleted(filepath.Join(dir, deletedFileName), len(frozen.Counts)); err != nil {
		return err
	}

	if frozen.Present != nil {
		overlay, err := OpenDeleted(filepath.Join(dir, deletedFileName), false)
		if err != nil {
			return err
		}
		for i, present := range frozen.Present {
			if !present {
				overlay.Set(i)
			}
		}
		if err := overlay.Flush(); err != nil {
			overlay.Close()
			return err
		}
		if err := overlay.Close(); err != nil {
			return err
		}
	}

	return nil
}

// Open maps all four files under dir. If cfg.Populate is true, every page
// is touched at open time and the instance is considered RAM-resident;
// otherwise it is "on-disk" and subject to payload-IO accounting.
func Open(dir string, cfg Config) (*Index, error) {
	idx := &Index{dir: dir, cfg: cfg, st: stateOpening}
	idx.lock = embed.NewFileLockAt(filepath.Join(dir, lockFileName))

	var err error
	idx.postings, err = OpenPostings(filepath.Join(dir, postingsFileName), cfg.Populate)
	if err != nil {
		return nil, err
	}
	idx.vocab, err = OpenVocab(filepath.Join(dir, vocabFileName), cfg.Populate)
	if err != nil {
		idx.postings.Close()
		return nil, err
	}
	idx.counts, err = OpenCounts(filepath.Join(dir, countsFileName), cfg.Populate)
	if err != nil {
		idx.postings.Close()
		idx.vocab.Close()
		return nil, err
	}
	idx.deleted, err = OpenDeleted(filepath.Join(dir, deletedFileName), cfg.Populate)
	if err != nil {
		idx.postings.Close()
		idx.vocab.Close()
		idx.counts.Close()
		return nil, err
	}

	active := 0
	for i := 0; i < idx.counts.Len(); i++ {
		if idx.isActive(uint32(i)) {
			active++
		}
	}
	idx.activePoints.Store(int64(active))

	idx.st = stateReady
	return idx, nil
}

func (idx *Index) isActive(id uint32) bool {
	if int(id) >= idx.counts.Len() {
		return false
	}
	alive, ok := idx.deleted.Get(int(id))
	return ok && !alive
}

// GetTokenId resolves token to its TokenId via the vocabulary. A hit is
// charged to hw only while the index is on disk (see IsOnDisk).
func (idx *Index) GetTokenId(token string, hw *HardwareCounter) (TokenId, bool) {
	if !idx.IsOnDisk() {
		hw = DisposableHardwareCounter()
	}
	return idx.vocab.Lookup(token, hw)
}

func (idx *Index) readers(query ParsedQuery, hw *HardwareCounter) ([]*ChunkReader, bool) {
	if len(query.Tokens) == 0 {
		return nil, false
	}
	for _, tok := range query.Tokens {
		if int(tok) >= idx.postings.Len() {
			return nil, false
		}
	}
	readers := make([]*ChunkReader, 0, len(query.Tokens))
	for _, tok := range query.Tokens {
		r, ok := idx.postings.Get(tok, hw)
		if !ok {
			return nil, false
		}
		readers = append(readers, r)
	}
	return readers, true
}

// Filter resolves query and returns the matching, active point ids via a
// pull-based intersection iterator. A zero-token query or any query token
// absent from the vocabulary yields an iterator that produces nothing
// without reading any posting bytes.
func (idx *Index) Filter(query ParsedQuery, hw *HardwareCounter) *Intersection {
	readers, ok := idx.readers(query, hw)
	if !ok {
		return NewIntersection(nil, idx.isActive, hw)
	}
	return NewIntersection(readers, idx.isActive, hw)
}

// CheckMatch returns false for an empty query or an empty document;
// otherwise every query token's posting must contain id.
func (idx *Index) CheckMatch(query ParsedQuery, id PointOffsetType, hw *HardwareCounter) bool {
	if len(query.Tokens) == 0 {
		return false
	}
	if idx.ValuesIsEmpty(id) {
		return false
	}
	for _, tok := range query.Tokens {
		r, ok := idx.postings.Get(tok, hw)
		if !ok {
			return false
		}
		if !r.Contains(uint32(id), hw) {
			return false
		}
	}
	return true
}

// RemoveDocument marks id as logically deleted. Idempotent: the second
// call on the same id returns false. Zeros the count at id when id is
// within bounds of the counts store, decrementing active_points_count only
// then — an out-of-range deletion (beyond the counts store) does not
// affect the live count (spec §9 open question, preserved as contract).
func (idx *Index) RemoveDocument(id PointOffsetType) bool {
	idx.stateM.Lock()
	defer idx.stateM.Unlock()

	alreadyDeleted, existed := idx.deleted.Get(int(id))
	if !existed {
		return false
	}
	if alreadyDeleted {
		return false
	}

	idx.deleted.Set(int(id))
	if idx.counts.ZeroCount(id) {
		idx.activePoints.Add(-1)
	}
	return true
}

// ValuesIsEmpty reports whether id has no tokens: a deleted or
// out-of-range point counts as empty.
func (idx *Index) ValuesIsEmpty(id PointOffsetType) bool {
	return idx.ValuesCount(id) == 0
}

// ValuesCount returns id's token count, or 0 if id is deleted or out of
// range.
func (idx *Index) ValuesCount(id PointOffsetType) int {
	if !idx.isActive(uint32(id)) {
		return 0
	}
	count, ok := idx.counts.Get(id)
	if !ok {
		return 0
	}
	return int(count)
}

// GetPostingLen returns tok's posting length without decoding any chunk,
// used by HNSW-side tie-breaking.
func (idx *Index) GetPostingLen(tok TokenId) (int, bool) {
	return idx.postings.PostingLen(tok)
}

// PointsCount returns the number of points the counts store covers
// (including deleted ones).
func (idx *Index) PointsCount() int {
	return idx.counts.Len()
}

// ActivePointsCount returns the cached live count: the number of points
// that are both in-bounds of the counts store and not deleted. It is
// maintained incrementally by RemoveDocument, never recomputed from the
// bitmap on each call (spec §3).
func (idx *Index) ActivePointsCount() int {
	return int(idx.activePoints.Load())
}

// VocabSize returns the number of distinct tokens in the vocabulary.
func (idx *Index) VocabSize() int {
	return idx.vocab.Len()
}

// Stats summarizes the index for diagnostics.
func (idx *Index) Stats() Stats {
	return Stats{
		VocabSize:         idx.VocabSize(),
		PointsCount:       idx.PointsCount(),
		ActivePointsCount: idx.ActivePointsCount(),
		IsOnDisk:          idx.IsOnDisk(),
	}
}

// IsOnDisk reports whether the index was opened without eager population
// (and is therefore still subject to payload-IO accounting).
func (idx *Index) IsOnDisk() bool {
	return !idx.cfg.Populate
}

// Files lists the on-disk files backing this index, for backup/listing.
func (idx *Index) Files() []string {
	return []string{
		filepath.Join(idx.dir, postingsFileName),
		filepath.Join(idx.dir, vocabFileName),
		filepath.Join(idx.dir, countsFileName),
		filepath.Join(idx.dir, deletedFileName),
	}
}

// Populate faults in every page of every mmap'd file, marking the index
// RAM-resident.
func (idx *Index) Populate() {
	idx.postings.Populate()
	idx.vocab.Populate()
	idx.counts.Populate()
	idx.deleted.Populate()
	idx.cfg.Populate = true
}

// ClearCache opens and closes each of the index's files, logging any
// failure with slog.Warn and carrying on. It issues no madvise or fadvise
// call, so the OS is not asked to drop any cached pages.
func (idx *Index) ClearCache() {
	for _, f := range idx.Files() {
		file, err := os.Open(f)
		if err != nil {
			slog.Warn("failed to open index file for cache clearing", slog.String("path", f), slog.String("error", err.Error()))
			continue
		}
		if err := file.Close(); err != nil {
			slog.Warn("failed to close index file after cache clearing", slog.String("path", f), slog.String("error", err.Error()))
		}
	}
}

// Flush drains the deletion overlay's pending updates to disk while holding
// the directory's exclusive file lock, which keeps other processes from
// flushing at the same time. RemoveDocument does not consult the Flushing
// state; a deletion issued during the drain waits on the overlay's own
// lock until the drain completes.
func (idx *Index) Flush() error {
	idx.stateM.Lock()
	idx.st = stateFlushing
	idx.stateM.Unlock()

	defer func() {
		idx.stateM.Lock()
		idx.st = stateReady
		idx.stateM.Unlock()
	}()

	if err := idx.lock.Lock(); err != nil {
		return wrapIO("lock index directory for flush", err)
	}
	defer idx.lock.Unlock()

	return idx.deleted.Flush()
}

// IndexDocument always fails: the mmap layer is write-once.
func (idx *Index) IndexDocument(PointOffsetType, Document, *HardwareCounter) error {
	return errMutationOnImmutable
}

// GetVocabMut always fails: there is no mutable vocabulary once the index
// is backed by the on-disk dictionary.
func (idx *Index) GetVocabMut() error {
	return errMutationOnImmutable
}

// Close unmaps every file in an order that cannot invalidate an
// outstanding iterator (nothing retains a pointer into the stores once
// Close begins; the façade owns all four).
func (idx *Index) Close() error {
	idx.stateM.Lock()
	defer idx.stateM.Unlock()
	if idx.st == stateClosed {
		return nil
	}
	idx.st = stateClosed

	var firstErr error
	for _, closer := range []func() error{idx.postings.Close, idx.vocab.Close, idx.counts.Close, idx.deleted.Close} {
		if err := closer(); err != nil {
			slog.Warn("failed to unmap index store during close", slog.String("dir", idx.dir), slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
