package squashfs

import (
	"bytes"
	"encoding/binary"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// This file builds small, hand-assembled SquashFS-shaped images for tests
// in both this package and squashfs_test. NewTestFixture writes every block
// "stored" (metadata header high bit set, data-block size word bit 24 set)
// so it exercises the format's framing without depending on any particular
// compressor. NewCompressedTestFixture instead runs the file's data block
// through a real compressor, for tests that need to drive decompression
// end to end through Archive.OpenFile rather than just the framing.

// TestFixture describes a synthetic image built by NewTestFixture, along
// with the values a test needs to assert against.
type TestFixture struct {
	Image       []byte
	FileName    string
	FileContent []byte
	SymlinkName string
	SymlinkDest string
	BlockSize   uint32
}

func writeStoredMetadataBlock(buf *bytes.Buffer, payload []byte) {
	header := uint16(0x8000 | len(payload))
	binary.Write(buf, binary.LittleEndian, header)
	buf.Write(payload)
}

// NewTestFixture builds a minimal valid image: a root directory holding
// one regular file ("hello.txt", contents "hello world") and one symlink
// ("link" -> "hello.txt"). The file's data block is stored uncompressed.
func NewTestFixture() *TestFixture {
	return buildTestFixture(CompressorGzip, false)
}

// NewCompressedTestFixture builds the same image as NewTestFixture, except
// the file's data block is actually run through comp rather than stored
// raw, and the superblock's declared compressor matches. comp must be one
// of CompressorGzip, CompressorXZ, or CompressorZstd.
func NewCompressedTestFixture(comp Compressor) *TestFixture {
	return buildTestFixture(comp, true)
}

func buildTestFixture(comp Compressor, compressData bool) *TestFixture {
	const blockSize = 4096

	buf := &bytes.Buffer{}
	buf.Write(make([]byte, 96)) // superblock placeholder, patched at the end

	content := []byte("hello world")
	onDisk := content
	uncompressedBit := uint32(0x01000000)
	if compressData {
		onDisk = compressTestBlock(comp, content)
		uncompressedBit = 0
	}
	dataBlockOffset := buf.Len()
	buf.Write(onDisk)

	inodeTableStart := buf.Len()

	// root directory inode (number 1), at offset 0 of the inode block.
	rootInode := &bytes.Buffer{}
	binary.Write(rootInode, binary.LittleEndian, uint16(typeDir))
	binary.Write(rootInode, binary.LittleEndian, uint16(0o755))
	binary.Write(rootInode, binary.LittleEndian, uint16(0))
	binary.Write(rootInode, binary.LittleEndian, uint16(0))
	binary.Write(rootInode, binary.LittleEndian, int32(0))
	binary.Write(rootInode, binary.LittleEndian, uint32(1))
	binary.Write(rootInode, binary.LittleEndian, uint32(0)) // dir startBlock
	binary.Write(rootInode, binary.LittleEndian, uint32(2)) // nlink
	binary.Write(rootInode, binary.LittleEndian, uint16(0)) // dirSize, patched below
	binary.Write(rootInode, binary.LittleEndian, uint16(0)) // dirOffset
	binary.Write(rootInode, binary.LittleEndian, uint32(1)) // parentIno

	fileInodeOffset := rootInode.Len()

	fileInode := &bytes.Buffer{}
	binary.Write(fileInode, binary.LittleEndian, uint16(typeFile))
	binary.Write(fileInode, binary.LittleEndian, uint16(0o644))
	binary.Write(fileInode, binary.LittleEndian, uint16(0))
	binary.Write(fileInode, binary.LittleEndian, uint16(0))
	binary.Write(fileInode, binary.LittleEndian, int32(0))
	binary.Write(fileInode, binary.LittleEndian, uint32(2))
	binary.Write(fileInode, binary.LittleEndian, uint32(dataBlockOffset))
	binary.Write(fileInode, binary.LittleEndian, uint32(noFragment))
	binary.Write(fileInode, binary.LittleEndian, uint32(0))
	binary.Write(fileInode, binary.LittleEndian, uint32(len(content)))
	binary.Write(fileInode, binary.LittleEndian, uint32(len(onDisk))|uncompressedBit)

	symlinkInodeOffset := fileInodeOffset + fileInode.Len()
	symlinkTarget := []byte("hello.txt")
	symlinkInode := &bytes.Buffer{}
	binary.Write(symlinkInode, binary.LittleEndian, uint16(typeSymlink))
	binary.Write(symlinkInode, binary.LittleEndian, uint16(0o777))
	binary.Write(symlinkInode, binary.LittleEndian, uint16(0))
	binary.Write(symlinkInode, binary.LittleEndian, uint16(0))
	binary.Write(symlinkInode, binary.LittleEndian, int32(0))
	binary.Write(symlinkInode, binary.LittleEndian, uint32(3))
	binary.Write(symlinkInode, binary.LittleEndian, uint32(1))
	binary.Write(symlinkInode, binary.LittleEndian, uint32(len(symlinkTarget)))
	symlinkInode.Write(symlinkTarget)

	// directory table: header + two entries (file, symlink).
	dirEntries := &bytes.Buffer{}
	writeDirEntry := func(offset int, inodeDiff int16, typ inodeType, name string) {
		binary.Write(dirEntries, binary.LittleEndian, uint16(offset))
		binary.Write(dirEntries, binary.LittleEndian, inodeDiff)
		binary.Write(dirEntries, binary.LittleEndian, uint16(typ))
		binary.Write(dirEntries, binary.LittleEndian, uint16(len(name)-1))
		dirEntries.WriteString(name)
	}
	writeDirEntry(fileInodeOffset, 0, typeFile, "hello.txt")
	writeDirEntry(symlinkInodeOffset, 1, typeSymlink, "link")

	dirHeader := &bytes.Buffer{}
	binary.Write(dirHeader, binary.LittleEndian, uint32(1)) // count-1 = 1 (2 entries)
	binary.Write(dirHeader, binary.LittleEndian, uint32(0)) // startBlock (inode block location)
	binary.Write(dirHeader, binary.LittleEndian, uint32(2)) // base inode number (file's)

	dirPayload := append(dirHeader.Bytes(), dirEntries.Bytes()...)
	dirSize := uint16(len(dirPayload) + 3)
	patchUint16(rootInode.Bytes(), 24, dirSize)

	inodePayload := append(append(rootInode.Bytes(), fileInode.Bytes()...), symlinkInode.Bytes()...)
	writeStoredMetadataBlock(buf, inodePayload)

	dirTableStart := buf.Len()
	writeStoredMetadataBlock(buf, dirPayload)

	idTableStart := buf.Len()
	idBlockAddr := int64(idTableStart + 8)
	binary.Write(buf, binary.LittleEndian, uint64(idBlockAddr))
	idPayload := make([]byte, 4)
	binary.LittleEndian.PutUint32(idPayload, 0)
	writeStoredMetadataBlock(buf, idPayload)

	total := buf.Len()
	out := buf.Bytes()

	sb := out[:96]
	binary.LittleEndian.PutUint32(sb[0:4], magicNumber)
	binary.LittleEndian.PutUint32(sb[4:8], 3) // inode count
	binary.LittleEndian.PutUint32(sb[8:12], 0)
	binary.LittleEndian.PutUint32(sb[12:16], blockSize)
	binary.LittleEndian.PutUint32(sb[16:20], 0) // frag count
	binary.LittleEndian.PutUint16(sb[20:22], uint16(comp))
	binary.LittleEndian.PutUint16(sb[22:24], 12) // block log (2^12 = 4096)
	binary.LittleEndian.PutUint16(sb[24:26], 0)  // flags
	binary.LittleEndian.PutUint16(sb[26:28], 1)  // id count
	binary.LittleEndian.PutUint16(sb[28:30], 4)  // version major
	binary.LittleEndian.PutUint16(sb[30:32], 0)  // version minor
	binary.LittleEndian.PutUint64(sb[32:40], uint64(NewEntryReference(0, 0)))
	binary.LittleEndian.PutUint64(sb[40:48], uint64(total))
	binary.LittleEndian.PutUint64(sb[48:56], uint64(idTableStart))
	binary.LittleEndian.PutUint64(sb[56:64], noTable)
	binary.LittleEndian.PutUint64(sb[64:72], uint64(inodeTableStart))
	binary.LittleEndian.PutUint64(sb[72:80], uint64(dirTableStart))
	binary.LittleEndian.PutUint64(sb[80:88], noTable)
	binary.LittleEndian.PutUint64(sb[88:96], noTable)

	return &TestFixture{
		Image:       out,
		FileName:    "hello.txt",
		FileContent: content,
		SymlinkName: "link",
		SymlinkDest: "hello.txt",
		BlockSize:   blockSize,
	}
}

func patchUint16(b []byte, offset int, v uint16) {
	binary.LittleEndian.PutUint16(b[offset:offset+2], v)
}

// compressTestBlock runs data through one of the library's supported
// compressors, for fixtures that need a genuinely compressed block rather
// than one merely marked stored.
func compressTestBlock(comp Compressor, data []byte) []byte {
	switch comp {
	case CompressorXZ:
		var out bytes.Buffer
		w, err := xz.NewWriter(&out)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write(data); err != nil {
			panic(err)
		}
		if err := w.Close(); err != nil {
			panic(err)
		}
		return out.Bytes()

	case CompressorZstd:
		w, err := zstd.NewWriter(nil)
		if err != nil {
			panic(err)
		}
		defer w.Close()
		return w.EncodeAll(data, nil)

	default:
		var out bytes.Buffer
		w := zlib.NewWriter(&out)
		if _, err := w.Write(data); err != nil {
			panic(err)
		}
		if err := w.Close(); err != nil {
			panic(err)
		}
		return out.Bytes()
	}
}
