package squashfs

import (
	"encoding/binary"
	"io"
)

const maxMetadataBlockSize = 8192

// metadataBlock is one decoded metadata block, keyed by its cache entry's
// absolute on-disk start. onDiskSize is the compressed length from the
// block header, kept alongside the decoded bytes because chaining to the
// next block needs it, not the decoded length.
type metadataBlock struct {
	onDiskSize int
	decoded    []byte
}

// metadataCache reads, decompresses, and retains metadata blocks. It owns
// one mux client dedicated to header/payload reads; decoded bytes are
// never re-read or re-decoded once cached.
type metadataCache struct {
	comp   Compressor
	client *muxClient
	blocks *blockStore[*metadataBlock]
}

func newMetadataCache(comp Compressor, client *muxClient, maxBlocks int) *metadataCache {
	return &metadataCache{comp: comp, client: client, blocks: newBlockStore[*metadataBlock](maxBlocks)}
}

// blockAt returns the decoded block starting at absolute offset addr,
// reading and decompressing it on first access.
func (c *metadataCache) blockAt(addr int64) (*metadataBlock, error) {
	if b, ok := c.blocks.get(addr); ok {
		return b, nil
	}

	var header [2]byte
	if _, err := c.client.ReadAt(header[:], addr); err != nil {
		return nil, wrapIO("reading metadata block header", err)
	}
	h := binary.LittleEndian.Uint16(header[:])
	size := int(h & 0x7fff)
	compressed := h&0x8000 == 0
	if size > maxMetadataBlockSize {
		return nil, newErr(KindInvalidData, "metadata block header length exceeds 8192", nil)
	}

	raw := make([]byte, size)
	if size > 0 {
		if _, err := c.client.ReadAt(raw, addr+2); err != nil {
			return nil, wrapIO("reading metadata block payload", err)
		}
	}

	decoded, err := decompressBlock(c.comp, compressed, raw, maxMetadataBlockSize)
	if err != nil {
		return nil, err
	}

	b := &metadataBlock{onDiskSize: size, decoded: decoded}
	c.blocks.put(addr, b)
	return b, nil
}

// metadataReader is a section-scoped seekable view over a chain of
// metadata blocks, advancing across block boundaries on exhaustion.
type metadataReader struct {
	cache        *metadataCache
	sectionStart int64
	sectionEnd   int64 // -1 means unbounded
	addr         int64
	block        *metadataBlock
	pos          int
}

// reader builds a metadataReader starting at entry reference ref within
// the section beginning at sectionStart. sectionEnd of -1 means the
// section has no known upper bound (chaining continues until the cache
// fill itself fails).
func (c *metadataCache) reader(sectionStart, sectionEnd int64, ref EntryReference) (*metadataReader, error) {
	addr := sectionStart + int64(ref.Location())
	b, err := c.blockAt(addr)
	if err != nil {
		return nil, err
	}
	if int(ref.Offset()) > len(b.decoded) {
		return nil, newErr(KindInvalidData, "entry reference offset exceeds block length", nil)
	}
	return &metadataReader{
		cache:        c,
		sectionStart: sectionStart,
		sectionEnd:   sectionEnd,
		addr:         addr,
		block:        b,
		pos:          int(ref.Offset()),
	}, nil
}

// seekRef repositions r, reusing the current block if ref names the same
// block address and only swapping blocks otherwise.
func (r *metadataReader) seekRef(ref EntryReference) error {
	addr := r.sectionStart + int64(ref.Location())
	if addr != r.addr {
		b, err := r.cache.blockAt(addr)
		if err != nil {
			return err
		}
		r.addr = addr
		r.block = b
	}
	if int(ref.Offset()) > len(r.block.decoded) {
		return newErr(KindInvalidData, "entry reference offset exceeds block length", nil)
	}
	r.pos = int(ref.Offset())
	return nil
}

// ref reports the entry reference for the reader's current position.
func (r *metadataReader) ref() EntryReference {
	return NewEntryReference(uint64(r.addr-r.sectionStart), uint16(r.pos))
}

func (r *metadataReader) Read(p []byte) (int, error) {
	n := copy(p, r.block.decoded[r.pos:])
	r.pos += n
	if n > 0 {
		return n, nil
	}

	next := r.addr + 2 + int64(r.block.onDiskSize)
	if r.sectionEnd >= 0 && next >= r.sectionEnd {
		return 0, io.EOF
	}
	b, err := r.cache.blockAt(next)
	if err != nil {
		return 0, err
	}
	r.addr = next
	r.block = b
	r.pos = 0
	if len(b.decoded) == 0 {
		return 0, io.EOF
	}
	n = copy(p, b.decoded)
	r.pos = n
	return n, nil
}
