package fulltext

import (
	"bytes"
	"encoding/binary"
	"os"

	mmap "github.com/blevesearch/mmap-go"
)

var vocabMagic = [4]byte{'V', 'O', 'C', '1'}

const vocabVersion = 1
const vocabSeed uint64 = 0x9E3779B97F4A7C15
const vocabBucketSize = 1 + 3 + 4 + 4 + 4 // occupied + pad + keyOffset + keyLen + tokenId

// vocabHeaderSize covers magic, version, seed, capacity, entry count.
const vocabHeaderSize = 4 + 4 + 8 + 4 + 4

// hashKey is FNV-1a over key, seeded so the table's probe sequence is
// reproducible across processes without relying on a process-random seed.
func hashKey(seed uint64, key []byte) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64) ^ seed
	for _, b := range key {
		h ^= uint64(b)
		h *= prime64
	}
	return h
}

func nextPow2(n int) uint32 {
	if n < 1 {
		return 1
	}
	p := uint32(1)
	for int(p) < n {
		p <<= 1
	}
	return p
}

type vocabBucket struct {
	Occupied bool
	KeyOffset uint32
	KeyLen    uint32
	TokenId   uint32
}

func writeVocabBucket(buf []byte, b vocabBucket) {
	if b.Occupied {
		buf[0] = 1
	}
	binary.LittleEndian.PutUint32(buf[4:8], b.KeyOffset)
	binary.LittleEndian.PutUint32(buf[8:12], b.KeyLen)
	binary.LittleEndian.PutUint32(buf[12:16], b.TokenId)
}

func readVocabBucket(b []byte) vocabBucket {
	return vocabBucket{
		Occupied: b[0] != 0,
		KeyOffset: binary.LittleEndian.Uint32(b[4:8]),
		KeyLen:    binary.LittleEndian.Uint32(b[8:12]),
		TokenId:   binary.LittleEndian.Uint32(b[12:16]),
	}
}

// CreateVocab serializes words (indexed by TokenId, i.e. words[i] is the
// vocabulary string for TokenId(i)) into an open-addressed hash table at
// path, per the vocab.dat layout in spec §6.
func CreateVocab(path string, words []string) error {
	capacity := nextPow2(len(words)*2 + 1)

	buckets := make([]byte, int(capacity)*vocabBucketSize)
	blob := make([]byte, 0, len(words)*8)

	mask := capacity - 1
	for i, w := range words {
		key := []byte(w)
		h := hashKey(vocabSeed, key)
		idx := uint32(h) & mask

		for {
			off := int(idx) * vocabBucketSize
			if buckets[off] == 0 {
				break
			}
			idx = (idx + 1) & mask
		}

		off := int(idx) * vocabBucketSize
		writeVocabBucket(buckets[off:off+vocabBucketSize], vocabBucket{
			Occupied: true,
			KeyOffset: uint32(len(blob)),
			KeyLen:    uint32(len(key)),
			TokenId:   uint32(i),
		})
		blob = append(blob, key...)
	}

	out := make([]byte, 0, vocabHeaderSize+len(buckets)+len(blob))
	out = append(out, vocabMagic[:]...)
	var hdr [4 + 8 + 4 + 4]byte
	binary.LittleEndian.PutUint32(hdr[0:4], vocabVersion)
	binary.LittleEndian.PutUint64(hdr[4:12], vocabSeed)
	binary.LittleEndian.PutUint32(hdr[12:16], capacity)
	binary.LittleEndian.PutUint32(hdr[16:20], uint32(len(words)))
	out = append(out, hdr[:]...)
	out = append(out, buckets...)
	out = append(out, blob...)

	return os.WriteFile(path, out, 0o644)
}

// MmapVocab is the read-only, mmap'd string->TokenId dictionary.
type MmapVocab struct {
	file    *os.File
	mapping mmap.MMap
	data    []byte

	seed       uint64
	capacity   uint32
	entryCount uint32
	buckets    []byte
	blob       []byte
}

// OpenVocab maps vocab.dat. When populate is true every page is faulted in
// before returning.
func OpenVocab(path string, populate bool) (*MmapVocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapIO("open vocab.dat", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, wrapIO("stat vocab.dat", err)
	}
	if info.Size() < vocabHeaderSize {
		f.Close()
		return nil, errFormatVersion("vocab.dat truncated header")
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, wrapIO("mmap vocab.dat", err)
	}

	if m[0] != vocabMagic[0] || m[1] != vocabMagic[1] || m[2] != vocabMagic[2] || m[3] != vocabMagic[3] {
		_ = m.Unmap()
		f.Close()
		return nil, errFormatVersion("vocab.dat bad magic")
	}
	version := binary.LittleEndian.Uint32(m[4:8])
	if version != vocabVersion {
		_ = m.Unmap()
		f.Close()
		return nil, errFormatVersion("vocab.dat unsupported version")
	}
	seed := binary.LittleEndian.Uint64(m[8:16])
	capacity := binary.LittleEndian.Uint32(m[16:20])
	entryCount := binary.LittleEndian.Uint32(m[20:24])

	bucketsStart := vocabHeaderSize
	bucketsEnd := bucketsStart + int(capacity)*vocabBucketSize
	if len(m) < bucketsEnd {
		_ = m.Unmap()
		f.Close()
		return nil, errFormatVersion("vocab.dat truncated bucket array")
	}

	v := &MmapVocab{
		file:       f,
		mapping:    m,
		data:       m,
		seed:       seed,
		capacity:   capacity,
		entryCount: entryCount,
		buckets:    m[bucketsStart:bucketsEnd],
		blob:       m[bucketsEnd:],
	}

	if populate {
		populateBytes(m)
	}

	return v, nil
}

// Len returns the number of entries in the vocabulary.
func (v *MmapVocab) Len() int {
	return int(v.entryCount)
}

// Lookup resolves key to its TokenId. A present result charges hw
// entry_overhead + sizeof(TokenId); an absent result charges nothing.
func (v *MmapVocab) Lookup(key string, hw *HardwareCounter) (TokenId, bool) {
	if v.capacity == 0 {
		return 0, false
	}
	mask := v.capacity - 1
	keyBytes := []byte(key)
	h := hashKey(v.seed, keyBytes)
	idx := uint32(h) & mask

	for probes := uint32(0); probes < v.capacity; probes++ {
		off := int(idx) * vocabBucketSize
		b := readVocabBucket(v.buckets[off : off+vocabBucketSize])
		if !b.Occupied {
			return 0, false
		}
		if b.KeyLen == uint32(len(keyBytes)) &&
			bytes.Equal(v.blob[b.KeyOffset:b.KeyOffset+b.KeyLen], keyBytes) {
			hw.IncrDelta(readEntryOverhead + 4)
			return TokenId(b.TokenId), true
		}
		idx = (idx + 1) & mask
	}
	return 0, false
}

// Each calls fn for every (key, TokenId) pair, in arbitrary but
// on-disk-image-stable order.
func (v *MmapVocab) Each(fn func(key string, id TokenId)) {
	for i := uint32(0); i < v.capacity; i++ {
		off := int(i) * vocabBucketSize
		b := readVocabBucket(v.buckets[off : off+vocabBucketSize])
		if !b.Occupied {
			continue
		}
		fn(string(v.blob[b.KeyOffset:b.KeyOffset+b.KeyLen]), TokenId(b.TokenId))
	}
}

// Populate touches every mapped page, blocking until all are resident.
func (v *MmapVocab) Populate() {
	populateBytes(v.data)
}

// Close unmaps vocab.dat.
func (v *MmapVocab) Close() error {
	if err := v.mapping.Unmap(); err != nil {
		return wrapIO("unmap vocab.dat", err)
	}
	return v.file.Close()
}
