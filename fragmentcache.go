package squashfs

import "bytes"

// fragmentCache reads, decompresses, and retains fragment blocks, keyed by
// their absolute on-disk start. Many files may reference the same
// fragment block; the cache guarantees it is decompressed at most once
// regardless of how many files share it.
type fragmentCache struct {
	comp      Compressor
	client    *muxClient
	blockSize uint32
	blocks    *blockStore[[]byte]
}

func newFragmentCache(comp Compressor, client *muxClient, blockSize uint32, maxBlocks int) *fragmentCache {
	return &fragmentCache{comp: comp, client: client, blockSize: blockSize, blocks: newBlockStore[[]byte](maxBlocks)}
}

// blockAt returns the fully decoded bytes of the block starting at addr
// (a full data block or a fragment block; both share the same on-disk
// shape), decoding it on first access and retaining it thereafter.
func (c *fragmentCache) blockAt(addr int64, onDiskSize uint32, compressed bool) ([]byte, error) {
	if b, ok := c.blocks.get(addr); ok {
		return b, nil
	}

	raw := make([]byte, onDiskSize)
	if onDiskSize > 0 {
		if _, err := c.client.ReadAt(raw, addr); err != nil {
			return nil, wrapIO("reading fragment block", err)
		}
	}

	decoded, err := decompressBlock(c.comp, compressed, raw, int(c.blockSize))
	if err != nil {
		return nil, err
	}
	c.blocks.put(addr, decoded)
	return decoded, nil
}

// reader returns a bounded view of length bytes starting at offset inside
// the fragment block at addr — the tail-end of one small file sharing that
// block with others. The returned *bytes.Reader already satisfies
// io.ReadSeeker and io.ReaderAt with the "seek translates relative
// positions" semantics a sub-view needs, so no bespoke wrapper type is
// needed.
func (c *fragmentCache) reader(addr int64, onDiskSize uint32, compressed bool, offset, length uint32) (*bytes.Reader, error) {
	block, err := c.blockAt(addr, onDiskSize, compressed)
	if err != nil {
		return nil, err
	}
	end := int(offset) + int(length)
	if end > len(block) {
		return nil, newErr(KindInvalidData, "fragment sub-view exceeds decoded block length", nil)
	}
	return bytes.NewReader(block[offset:end]), nil
}
