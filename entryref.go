package squashfs

import "fmt"

// EntryReference is the packed (metadata-block-start, intra-block-offset)
// address the SquashFS format uses to name an arbitrary byte within a
// metadata section: a 48-bit byte offset to the start of a metadata block,
// relative to the section's origin, and a 16-bit offset into that block's
// uncompressed contents. The same packing names inodes, directory
// entries, and lookup-table records alike — whatever lives at the start
// of the section in question.
type EntryReference uint64

// NewEntryReference packs a block-start location and an intra-block offset
// into an EntryReference. offset must fit in 16 bits; callers that read it
// off the wire already guarantee this (the field is a uint16 on disk).
func NewEntryReference(location uint64, offset uint16) EntryReference {
	return EntryReference((location << 16) | uint64(offset))
}

// Location returns the 48-bit metadata-block-start this reference points
// into.
func (e EntryReference) Location() uint64 {
	return uint64(e) >> 16
}

// Offset returns the 16-bit offset into the block's uncompressed bytes.
func (e EntryReference) Offset() uint16 {
	return uint16(e)
}

func (e EntryReference) String() string {
	return fmt.Sprintf("entryref(%#x/%#x)", e.Location(), e.Offset())
}
