package fulltext

import (
	"encoding/binary"
	"os"
	"sort"

	mmap "github.com/blevesearch/mmap-go"
)

var postingsMagic = [4]byte{'P', 'S', 'T', '1'}

const postingsVersion = 1
const postingsHeaderSize = 4 + 4 + 4 // magic + version + token count

// writeChunkDirEntry appends a chunkDirEntry in its fixed 24-byte layout.
func writeChunkDirEntry(buf []byte, e chunkDirEntry) []byte {
	var tmp [chunkDirEntrySize]byte
	binary.LittleEndian.PutUint64(tmp[0:8], e.Offset)
	binary.LittleEndian.PutUint32(tmp[8:12], e.Length)
	binary.LittleEndian.PutUint32(tmp[12:16], e.MinID)
	binary.LittleEndian.PutUint32(tmp[16:20], e.MaxID)
	binary.LittleEndian.PutUint32(tmp[20:24], e.Count)
	return append(buf, tmp[:]...)
}

func readChunkDirEntry(b []byte) chunkDirEntry {
	return chunkDirEntry{
		Offset: binary.LittleEndian.Uint64(b[0:8]),
		Length: binary.LittleEndian.Uint32(b[8:12]),
		MinID:  binary.LittleEndian.Uint32(b[12:16]),
		MaxID:  binary.LittleEndian.Uint32(b[16:20]),
		Count:  binary.LittleEndian.Uint32(b[20:24]),
	}
}

// buildPostingBlob packs one token's sorted, deduplicated posting list into
// its on-disk blob: a chunk count, a chunk directory (offsets relative to
// the blob start), then the concatenated bit-packed chunk payloads.
func buildPostingBlob(ids []uint32) []byte {
	numChunks := (len(ids) + ChunkSize - 1) / ChunkSize
	if len(ids) == 0 {
		numChunks = 0
	}

	dirSize := numChunks * chunkDirEntrySize
	payloadStart := 4 + dirSize

	dir := make([]byte, 0, dirSize)
	payload := make([]byte, 0, len(ids)*4)

	offset := uint32(payloadStart)
	for i := 0; i < numChunks; i++ {
		lo := i * ChunkSize
		hi := lo + ChunkSize
		if hi > len(ids) {
			hi = len(ids)
		}
		chunk := ids[lo:hi]

		packed, bitWidth := encodeChunk(chunk)
		entry := chunkDirEntry{
			Offset: uint64(offset),
			Length: uint32(len(packed)),
			MinID:  chunk[0],
			MaxID:  chunk[len(chunk)-1],
			Count:  uint32(len(chunk)),
		}
		_ = bitWidth // bit width is recoverable from (MaxID-MinID); not stored separately
		dir = writeChunkDirEntry(dir, entry)
		payload = append(payload, packed...)
		offset += uint32(len(packed))
	}

	blob := make([]byte, 0, 4+dirSize+len(payload))
	var chunkCountBytes [4]byte
	binary.LittleEndian.PutUint32(chunkCountBytes[:], uint32(numChunks))
	blob = append(blob, chunkCountBytes[:]...)
	blob = append(blob, dir...)
	blob = append(blob, payload...)
	return blob
}

// CreatePostings serializes postings (dense, indexed by TokenId) to path in
// the postings.dat format described in spec §6.
func CreatePostings(path string, postings [][]uint32) error {
	tokenCount := uint32(len(postings))

	tokenDir := make([]byte, 0, int(tokenCount)*chunkDirEntrySize)
	blobs := make([]byte, 0, 64*len(postings))

	fileOffset := uint64(postingsHeaderSize) + uint64(tokenCount)*chunkDirEntrySize

	for _, ids := range postings {
		blob := buildPostingBlob(ids)

		var minID, maxID uint32
		if len(ids) > 0 {
			minID, maxID = ids[0], ids[len(ids)-1]
		}

		tokenDir = writeChunkDirEntry(tokenDir, chunkDirEntry{
			Offset: fileOffset,
			Length: uint32(len(blob)),
			MinID:  minID,
			MaxID:  maxID,
			Count:  uint32(len(ids)),
		})

		blobs = append(blobs, blob...)
		fileOffset += uint64(len(blob))
	}

	out := make([]byte, 0, fileOffset)
	out = append(out, postingsMagic[:]...)
	var versionAndCount [8]byte
	binary.LittleEndian.PutUint32(versionAndCount[0:4], postingsVersion)
	binary.LittleEndian.PutUint32(versionAndCount[4:8], tokenCount)
	out = append(out, versionAndCount[:]...)
	out = append(out, tokenDir...)
	out = append(out, blobs...)

	return os.WriteFile(path, out, 0o644)
}

// PostingsStore is the read-only, mmap'd token->posting store.
type PostingsStore struct {
	file       *os.File
	mapping    mmap.MMap
	data       []byte
	tokenCount uint32
	tokenDir   []byte // slice of data covering the token directory
}

// OpenPostings maps postings.dat. When populate is true every page is
// faulted in before returning.
func OpenPostings(path string, populate bool) (*PostingsStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapIO("open postings.dat", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, wrapIO("stat postings.dat", err)
	}
	if info.Size() < postingsHeaderSize {
		f.Close()
		return nil, errFormatVersion("postings.dat truncated header")
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, wrapIO("mmap postings.dat", err)
	}

	if m[0] != postingsMagic[0] || m[1] != postingsMagic[1] || m[2] != postingsMagic[2] || m[3] != postingsMagic[3] {
		_ = m.Unmap()
		f.Close()
		return nil, errFormatVersion("postings.dat bad magic")
	}
	version := binary.LittleEndian.Uint32(m[4:8])
	if version != postingsVersion {
		_ = m.Unmap()
		f.Close()
		return nil, errFormatVersion("postings.dat unsupported version")
	}
	tokenCount := binary.LittleEndian.Uint32(m[8:12])

	dirEnd := postingsHeaderSize + int(tokenCount)*chunkDirEntrySize
	if len(m) < dirEnd {
		_ = m.Unmap()
		f.Close()
		return nil, errFormatVersion("postings.dat truncated directory")
	}

	s := &PostingsStore{
		file:       f,
		mapping:    m,
		data:       m,
		tokenCount: tokenCount,
		tokenDir:   m[postingsHeaderSize:dirEnd],
	}

	if populate {
		populateBytes(m)
	}

	return s, nil
}

// Len returns the number of tokens this store has a directory entry for.
func (s *PostingsStore) Len() int {
	return int(s.tokenCount)
}

func (s *PostingsStore) tokenEntry(id TokenId) (chunkDirEntry, bool) {
	if uint32(id) >= s.tokenCount {
		return chunkDirEntry{}, false
	}
	off := int(id) * chunkDirEntrySize
	return readChunkDirEntry(s.tokenDir[off : off+chunkDirEntrySize]), true
}

// Get returns a cursor over tokenId's posting list, or false if tokenId is
// out of range. An in-range token with zero postings yields a valid,
// immediately-exhausted reader — an empty posting is not "absent".
func (s *PostingsStore) Get(id TokenId, hw *HardwareCounter) (*ChunkReader, bool) {
	entry, ok := s.tokenEntry(id)
	if !ok {
		return nil, false
	}

	blob := s.data[entry.Offset : entry.Offset+uint64(entry.Length)]

	numChunks := int(binary.LittleEndian.Uint32(blob[0:4]))
	dirStart := 4
	dirEnd := dirStart + numChunks*chunkDirEntrySize

	// Constructing the cursor itself reads the chunk count and directory;
	// chunk payload bytes are charged separately, only as decoded.
	hw.IncrDelta(dirEnd)

	return &ChunkReader{
		blob:       blob,
		chunkDir:   blob[dirStart:dirEnd],
		numChunks:  numChunks,
		total:      int(entry.Count),
		decodedIdx: -1,
	}, true
}

// PostingLen returns the posting length for tokenId without decoding any
// chunk, or false if tokenId is out of range.
func (s *PostingsStore) PostingLen(id TokenId) (int, bool) {
	entry, ok := s.tokenEntry(id)
	if !ok {
		return 0, false
	}
	return int(entry.Count), true
}

// Populate touches every mapped page, blocking until all are resident.
func (s *PostingsStore) Populate() {
	populateBytes(s.data)
}

// Close unmaps postings.dat.
func (s *PostingsStore) Close() error {
	if err := s.mapping.Unmap(); err != nil {
		return wrapIO("unmap postings.dat", err)
	}
	return s.file.Close()
}

// ChunkReader is a zero-allocation cursor over one token's posting list.
// Chunk payloads are decoded into a cursor-owned scratch array; no per-call
// heap allocation occurs on the hot intersection path.
type ChunkReader struct {
	blob      []byte
	chunkDir  []byte
	numChunks int
	total     int

	curChunk   int
	curPos     int
	scratch    [ChunkSize]uint32
	decodedIdx int // which chunk index scratch currently holds, -1 if none
	decodedLen int
}

func (r *ChunkReader) chunkEntry(i int) chunkDirEntry {
	off := i * chunkDirEntrySize
	return readChunkDirEntry(r.chunkDir[off : off+chunkDirEntrySize])
}

// Len returns the total number of ids in the posting.
func (r *ChunkReader) Len() int {
	return r.total
}

func (r *ChunkReader) ensureDecoded(chunkIdx int, hw *HardwareCounter) {
	if r.decodedIdx == chunkIdx {
		return
	}
	entry := r.chunkEntry(chunkIdx)
	packed := r.blob[entry.Offset : entry.Offset+uint64(entry.Length)]
	hw.IncrDelta(len(packed))

	bitWidth := bitWidthFor(entry.MaxID - entry.MinID)
	decoded := decodeChunkInto(r.scratch[:0], packed, int(entry.Count), bitWidth, entry.MinID)
	copy(r.scratch[:len(decoded)], decoded)
	r.decodedIdx = chunkIdx
	r.decodedLen = len(decoded)
}

// Contains reports whether id is present in the posting, via directory
// binary search and a single full chunk decode; does not disturb the
// sequential cursor.
func (r *ChunkReader) Contains(id uint32, hw *HardwareCounter) bool {
	if r.numChunks == 0 {
		return false
	}
	lo, hi := 0, r.numChunks-1
	for lo <= hi {
		mid := (lo + hi) / 2
		entry := r.chunkEntry(mid)
		switch {
		case id < entry.MinID:
			hi = mid - 1
		case id > entry.MaxID:
			lo = mid + 1
		default:
			// Decoding for a point lookup clobbers the scratch buffer, so
			// invalidate the cursor's cached chunk rather than leave it
			// mislabeled; the next Current/AdvancePast just redecodes.
			r.ensureDecoded(mid, hw)
			pos := sort.Search(r.decodedLen, func(i int) bool { return r.scratch[i] >= id })
			found := pos < r.decodedLen && r.scratch[pos] == id
			r.decodedIdx = -1
			r.decodedLen = 0
			return found
		}
	}
	return false
}

// Current returns the id at the cursor and true, or (0, false) if the
// cursor has been exhausted.
func (r *ChunkReader) Current(hw *HardwareCounter) (uint32, bool) {
	if r.curChunk >= r.numChunks {
		return 0, false
	}
	r.ensureDecoded(r.curChunk, hw)
	if r.curPos >= r.decodedLen {
		return 0, false
	}
	return r.scratch[r.curPos], true
}

// AdvancePast moves the cursor monotonically to the first id >= target,
// skipping whole chunks via the directory before decoding the landing
// chunk. It never moves backward.
func (r *ChunkReader) AdvancePast(target uint32, hw *HardwareCounter) (uint32, bool) {
	for r.curChunk < r.numChunks {
		entry := r.chunkEntry(r.curChunk)
		if entry.MaxID < target {
			r.curChunk++
			r.curPos = 0
			continue
		}

		r.ensureDecoded(r.curChunk, hw)
		if r.curPos < r.decodedLen && r.scratch[r.curPos] >= target {
			return r.scratch[r.curPos], true
		}
		pos := sort.Search(r.decodedLen-r.curPos, func(i int) bool {
			return r.scratch[r.curPos+i] >= target
		})
		r.curPos += pos
		if r.curPos < r.decodedLen {
			return r.scratch[r.curPos], true
		}
		r.curChunk++
		r.curPos = 0
	}
	return 0, false
}

// populatePageStride is large enough to touch exactly one byte per typical
// 4KiB page without reading the whole region.
const populatePageStride = 4096

func populateBytes(data []byte) {
	var sink byte
	for i := 0; i < len(data); i += populatePageStride {
		sink += data[i]
	}
	if len(data) > 0 {
		sink += data[len(data)-1]
	}
	_ = sink
}
