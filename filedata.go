package squashfs

import (
	"bytes"
	"encoding/binary"
	"io"
)

// blockDescriptor names one physical chunk of a file's logical content —
// either a full data block or the tail fragment — and lazily holds the
// decoded reader for that chunk once it has been touched.
type blockDescriptor struct {
	diskOffset int64
	diskLen    uint32
	compressed bool
	dataLen    uint32
	isFragment bool
	fragOffset uint32

	reader *bytes.Reader // nil until first touched ("uninitialized" state)
}

func (d *blockDescriptor) open(a *Archive) (*bytes.Reader, error) {
	if d.reader != nil {
		return d.reader, nil
	}

	if d.diskLen == 0 && !d.isFragment {
		d.reader = bytes.NewReader(make([]byte, d.dataLen))
		return d.reader, nil
	}

	var (
		r   *bytes.Reader
		err error
	)
	if d.isFragment {
		r, err = a.fragCache.reader(d.diskOffset, d.diskLen, d.compressed, d.fragOffset, d.dataLen)
	} else {
		r, err = a.dataCache.reader(d.diskOffset, d.diskLen, d.compressed, 0, d.dataLen)
	}
	if err != nil {
		return nil, err
	}
	d.reader = r
	return r, nil
}

// FileDataReader presents a regular file inode's logical content as one
// seekable stream, stitching together its data blocks and optional tail
// fragment.
type FileDataReader struct {
	a           *Archive
	blockSize   int64
	fileSize    int64
	descriptors []blockDescriptor
	pos         int64
}

// newFileDataReader builds the descriptor list for ino.
func (a *Archive) newFileDataReader(ino *Inode) (*FileDataReader, error) {
	if !ino.IsRegular() {
		return nil, ErrNotRegular
	}

	blockSize := int64(a.sb.BlockSize)
	fr := &FileDataReader{a: a, blockSize: blockSize, fileSize: int64(ino.fileSize)}

	offset := int64(ino.blocksStart)
	remaining := ino.fileSize
	for _, word := range ino.blockSizes {
		diskLen := word & 0x00FFFFFF
		compressed := word&0x01000000 == 0
		dataLen := uint32(blockSize)
		if remaining < uint64(blockSize) {
			dataLen = uint32(remaining)
		}
		fr.descriptors = append(fr.descriptors, blockDescriptor{
			diskOffset: offset,
			diskLen:    diskLen,
			compressed: compressed,
			dataLen:    dataLen,
		})
		offset += int64(diskLen)
		remaining -= uint64(dataLen)
	}

	if ino.fragIndex != noFragment {
		rec, err := a.fragmentTable.record(int(ino.fragIndex))
		if err != nil {
			return nil, err
		}
		entry, err := decodeFragmentEntry(rec)
		if err != nil {
			return nil, err
		}
		dataLen := uint32(ino.fileSize % uint64(blockSize))
		fr.descriptors = append(fr.descriptors, blockDescriptor{
			diskOffset: int64(entry.start),
			diskLen:    entry.diskLen,
			compressed: entry.compressed,
			dataLen:    dataLen,
			isFragment: true,
			fragOffset: ino.fragOffset,
		})
	}

	return fr, nil
}

func (f *FileDataReader) Read(p []byte) (int, error) {
	if f.pos >= f.fileSize {
		return 0, io.EOF
	}
	index := int(f.pos / f.blockSize)
	if index >= len(f.descriptors) {
		return 0, io.EOF
	}
	desc := &f.descriptors[index]
	inBlock := f.pos % f.blockSize

	remaining := int64(desc.dataLen) - inBlock
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	r, err := desc.open(f.a)
	if err != nil {
		return 0, err
	}
	if _, err := r.Seek(inBlock, io.SeekStart); err != nil {
		return 0, wrapIO("seeking within file data block", err)
	}
	n, err := r.Read(p)
	f.pos += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// Seek only updates the logical position; the descriptor swap happens on
// the next Read.
func (f *FileDataReader) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = f.pos + offset
	case io.SeekEnd:
		newPos = f.fileSize + offset
	default:
		return 0, newErr(KindInvalidInput, "invalid seek whence", nil)
	}
	if newPos < 0 {
		return 0, newErr(KindInvalidInput, "negative seek position", nil)
	}
	f.pos = newPos
	return newPos, nil
}

func (f *FileDataReader) Close() error { return nil }

// fragmentEntry is one record of the fragment lookup table: the absolute
// start of a fragment block plus its size word.
type fragmentEntry struct {
	start      uint64
	diskLen    uint32
	compressed bool
}

func decodeFragmentEntry(rec []byte) (fragmentEntry, error) {
	if len(rec) < 16 {
		return fragmentEntry{}, newErr(KindInvalidData, "short fragment table record", nil)
	}
	start := binary.LittleEndian.Uint64(rec[0:8])
	word := binary.LittleEndian.Uint32(rec[8:12])
	return fragmentEntry{
		start:      start,
		diskLen:    word & 0x00FFFFFF,
		compressed: word&0x01000000 == 0,
	}, nil
}
