package squashfs

import "encoding/binary"

// lookupTable is a fixed-width record array: an array of 64-bit absolute
// pointers to the metadata blocks holding the records, itself stored at a
// known absolute offset. Used for the id, fragment, and export tables.
// Records are fetched one at a time through the metadata cache rather
// than materialized up front; callers that want eager loading (the id
// table) just call record() for every index once at open time.
type lookupTable struct {
	cache      *metadataCache
	client     *muxClient
	recordSize int
	count      int
	pointers   []int64
}

// newLookupTable reads the pointer array for a table of count fixed-width
// records of recordSize bytes each, starting at tableOffset. The pointer
// array itself is read directly off the backing stream, not through the
// metadata cache, since it is plain uncompressed data rather than a
// metadata block.
func newLookupTable(cache *metadataCache, client *muxClient, tableOffset int64, count, recordSize int) (*lookupTable, error) {
	t := &lookupTable{cache: cache, client: client, recordSize: recordSize, count: count}
	if count == 0 {
		return t, nil
	}

	recordsPerBlock := maxMetadataBlockSize / recordSize
	numBlocks := (count + recordsPerBlock - 1) / recordsPerBlock

	buf := make([]byte, numBlocks*8)
	if _, err := client.ReadAt(buf, tableOffset); err != nil {
		return nil, wrapIO("reading lookup table pointer array", err)
	}
	t.pointers = make([]int64, numBlocks)
	for i := range t.pointers {
		t.pointers[i] = int64(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return t, nil
}

// record returns the raw bytes of the record at index, decompressing its
// containing block on first access.
func (t *lookupTable) record(index int) ([]byte, error) {
	if index < 0 || index >= t.count {
		return nil, newErr(KindNotFound, "lookup table index out of range", nil)
	}
	recordsPerBlock := maxMetadataBlockSize / t.recordSize
	blockIdx := index / recordsPerBlock
	within := index % recordsPerBlock

	b, err := t.cache.blockAt(t.pointers[blockIdx])
	if err != nil {
		return nil, err
	}
	start := within * t.recordSize
	end := start + t.recordSize
	if end > len(b.decoded) {
		return nil, newErr(KindInvalidData, "lookup table record runs past decoded block", nil)
	}
	return b.decoded[start:end], nil
}
