package squashfs

import (
	"encoding/binary"
	"io"
	"io/fs"
)

// DirEntry is one directory-table entry, yielded in on-disk order by
// Archive.ReadDir.
type DirEntry struct {
	name        string
	ref         EntryReference
	inodeNumber uint32
	typ         inodeType

	a *Archive
}

func (e *DirEntry) Name() string             { return e.name }
func (e *DirEntry) InodeNumber() uint32       { return e.inodeNumber }
func (e *DirEntry) Reference() EntryReference { return e.ref }
func (e *DirEntry) IsDir() bool               { return e.typ.isDir() }
func (e *DirEntry) Type() fs.FileMode         { return e.typ.fsMode() }

func (e *DirEntry) Info() (fs.FileInfo, error) {
	ino, err := e.a.InodeFromReference(e.ref)
	if err != nil {
		return nil, err
	}
	return &fileInfo{name: e.name, ino: ino}, nil
}

// dirTableIterator decodes the chain of directory-table chunks that make
// up one directory's entry list. A chunk's header names the base inode
// number and the block-index for the entries that follow; each entry's
// inode number is the header's base plus a signed per-entry delta, added
// with wraparound.
type dirTableIterator struct {
	r         io.LimitedReader
	remaining uint32 // entries left in the current chunk header, 0 before first read
	chunkBase uint32
	chunkBlk  uint32
}

// readDirEntries builds an iterator over ino's directory table, positioned
// at E(startBlock, dirOffset) within the directory section.
func (a *Archive) readDirEntries(ino *Inode) (*dirTableIterator, error) {
	if !ino.IsDir() {
		return nil, ErrNotDirectory
	}
	ref := NewEntryReference(uint64(ino.startBlock), ino.dirOffset)
	mr, err := a.metaCache.reader(int64(a.sb.DirTableStart), -1, ref)
	if err != nil {
		return nil, err
	}

	// file_size counts 3 bytes of overhead not present in the entry
	// stream itself.
	limit := int64(ino.dirSize) - 3
	if limit < 0 {
		limit = 0
	}
	return &dirTableIterator{r: io.LimitedReader{R: mr, N: limit}}, nil
}

func (it *dirTableIterator) readHeader() error {
	var h struct {
		Count     uint32
		StartBlck uint32
		InodeNum  uint32
	}
	if err := binary.Read(&it.r, binary.LittleEndian, &h); err != nil {
		return wrapIO("reading directory table header", err)
	}
	it.remaining = h.Count + 1
	it.chunkBlk = h.StartBlck
	it.chunkBase = h.InodeNum
	return nil
}

// next decodes the following entry, or returns io.EOF once the directory
// table's byte budget (file_size - 3) is exhausted.
func (it *dirTableIterator) next() (name string, typ inodeType, ref EntryReference, inodeNum uint32, err error) {
	if it.r.N <= 0 {
		return "", 0, 0, 0, io.EOF
	}
	if it.remaining == 0 {
		if err = it.readHeader(); err != nil {
			return
		}
	}

	var e struct {
		Offset    uint16
		InodeDiff int16
		Type      uint16
		NameSize  uint16
	}
	if err = binary.Read(&it.r, binary.LittleEndian, &e); err != nil {
		err = wrapIO("reading directory entry", err)
		return
	}
	buf := make([]byte, int(e.NameSize)+1)
	if _, rerr := io.ReadFull(&it.r, buf); rerr != nil {
		err = wrapIO("reading directory entry name", rerr)
		return
	}

	it.remaining--
	name = string(buf)
	typ = inodeType(e.Type)
	ref = NewEntryReference(uint64(it.chunkBlk), e.Offset)
	inodeNum = it.chunkBase + uint32(e.InodeDiff)
	return
}
