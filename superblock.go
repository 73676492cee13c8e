package squashfs

import (
	"bytes"
	"encoding/binary"
	"io"
	"reflect"
)

// magicNumber is the fixed SquashFS 4.0 magic value. The format is
// little-endian throughout; unlike some older readers this module does not
// attempt to auto-detect a big-endian variant.
const magicNumber uint32 = 0x73717368

// noTable is the on-disk sentinel meaning "this table is absent".
const noTable uint64 = 0xFFFFFFFFFFFFFFFF

// Superblock is the decoded 96-byte SquashFS image header. It is immutable
// once parsed and gives the archive façade the absolute offsets of every
// section of the image.
type Superblock struct {
	Magic             uint32
	InodeCount        uint32
	ModTime           int32
	BlockSize         uint32
	FragCount         uint32
	Compressor        Compressor
	BlockLog          uint16
	Flags             Flags
	IDCount           uint16
	VersionMajor      uint16
	VersionMinor      uint16
	RootInode         EntryReference
	BytesUsed         uint64
	IDTableStart      uint64
	XattrTableStart   uint64
	InodeTableStart   uint64
	DirTableStart     uint64
	FragTableStart    uint64
	ExportTableStart  uint64
}

// superblockSize is computed once from the struct layout rather than
// hardcoded, so a field addition can't silently desync the read length
// from the struct.
func superblockSize() int {
	sz := 0
	v := reflect.TypeOf(Superblock{})
	for i := 0; i < v.NumField(); i++ {
		sz += int(v.Field(i).Type.Size())
	}
	return sz
}

// readSuperblock decodes the fixed 96-byte header at the start of buf. It
// walks the struct fields by reflection instead of one binary.Read call
// per field, since every field here is a flat fixed-width integer in a
// fixed order.
func readSuperblock(buf []byte) (*Superblock, error) {
	if len(buf) < 4 {
		return nil, newErr(KindUnexpectedEOF, "superblock truncated", nil)
	}
	if binary.LittleEndian.Uint32(buf[:4]) != magicNumber {
		return nil, newErr(KindInvalidData, "bad magic, not a squashfs image", nil)
	}

	sb := &Superblock{}
	v := reflect.ValueOf(sb).Elem()
	r := bytes.NewReader(buf)

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if err := binary.Read(r, binary.LittleEndian, field.Addr().Interface()); err != nil {
			return nil, wrapIO("reading superblock field "+v.Type().Field(i).Name, err)
		}
	}

	if sb.BlockSize != 1<<sb.BlockLog {
		return nil, newErr(KindInvalidData, "block_size does not match 1<<block_log", nil)
	}

	logger.Printf("superblock: inodes=%d block_size=%d compressor=%s", sb.InodeCount, sb.BlockSize, sb.Compressor)
	return sb, nil
}

// hasXattrTable reports whether the image carries an xattr table. This
// library does not surface xattrs; the offset is only used by crossCheck's
// section-ordering check.
func (sb *Superblock) hasXattrTable() bool {
	return sb.XattrTableStart != noTable
}

func (sb *Superblock) hasFragTable() bool {
	return sb.FragTableStart != noTable
}

func (sb *Superblock) hasExportTable() bool {
	return sb.ExportTableStart != noTable
}

// crossCheck re-derives facts the superblock only asserts and verifies them
// against the backing stream and against each other: bytes_used must not
// claim more than the stream actually holds, and the section layout
// (inode table, directory table, fragment table, export table, id table,
// xattr table, in that fixed order) must be strictly ascending. A crafted
// or corrupted superblock can get the magic and block_size checks right
// while still lying about either, so this is opt-in via
// WithSuperblockCrossCheck rather than always on — it costs a Seek to the
// end of the stream and a handful of comparisons.
func (sb *Superblock) crossCheck(client *muxClient) error {
	size, err := client.Seek(0, io.SeekEnd)
	if err != nil {
		return wrapIO("cross-checking superblock against stream length", err)
	}
	if uint64(size) < sb.BytesUsed {
		return newErr(KindInvalidData, "superblock bytes_used exceeds backing stream length", nil)
	}

	offsets := []uint64{sb.InodeTableStart, sb.DirTableStart}
	if sb.hasFragTable() {
		offsets = append(offsets, sb.FragTableStart)
	}
	if sb.hasExportTable() {
		offsets = append(offsets, sb.ExportTableStart)
	}
	offsets = append(offsets, sb.IDTableStart)
	if sb.hasXattrTable() {
		offsets = append(offsets, sb.XattrTableStart)
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] <= offsets[i-1] {
			return newErr(KindInvalidData, "superblock table offsets are not in the expected ascending order", nil)
		}
	}
	return nil
}
