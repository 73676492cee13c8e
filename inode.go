package squashfs

import (
	"encoding/binary"
	"io"
	"io/fs"
)

const noFragment = 0xFFFFFFFF

// Inode is one decoded inode record. Fields outside kind-specific variants
// are always present; variant fields are populated according to the
// underlying on-disk type.
type Inode struct {
	typ     inodeType
	Perm    uint16
	UidIdx  uint16
	GidIdx  uint16
	ModTime int32
	Number  uint32

	// directory
	startBlock uint32
	dirOffset  uint16
	nlink      uint32
	dirSize    uint32
	parentIno  uint32
	idxCount   uint16
	xattrIdx   uint32

	// file
	blocksStart uint64
	fragIndex   uint32
	fragOffset  uint32
	fileSize    uint64
	blockSizes  []uint32

	// symlink
	target []byte

	// device
	deviceNumber uint32
}

func (i *Inode) IsDir() bool     { return i.typ.isDir() }
func (i *Inode) IsRegular() bool { return i.typ.isFile() }
func (i *Inode) IsSymlink() bool { return i.typ.isSymlink() }

// Mode returns the POSIX mode: permission bits or'd with the type bits for
// this inode's kind.
func (i *Inode) Mode() uint32 {
	return uint32(i.Perm) | i.typ.posixTypeBits()
}

// FSMode returns the fs.FileMode equivalent, for io/fs interop.
func (i *Inode) FSMode() fs.FileMode {
	return posixModeToFS(i.Mode())
}

// Size returns the logical size: file content length for regular files,
// the raw directory-table byte count for directories (including the
// format's 3-byte overhead term; see readDirEntries), zero otherwise.
func (i *Inode) Size() uint64 {
	switch {
	case i.typ.isFile():
		return i.fileSize
	case i.typ.isDir():
		return uint64(i.dirSize)
	default:
		return 0
	}
}

// Readlink returns a symlink inode's target path. Returns ErrNotRegular's
// sibling — unsupported — for non-symlinks.
func (i *Inode) Readlink() (string, error) {
	if !i.IsSymlink() {
		return "", newErr(KindUnsupported, "not a symlink", nil)
	}
	return string(i.target), nil
}

// decodeInode reads one inode record from r, which must already be
// positioned at the inode's first byte.
func decodeInode(r io.Reader, blockSize uint32) (*Inode, error) {
	ino := &Inode{}

	var common struct {
		Type    uint16
		Perm    uint16
		UidIdx  uint16
		GidIdx  uint16
		ModTime int32
		Number  uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &common); err != nil {
		return nil, wrapIO("reading inode common fields", err)
	}
	ino.typ = inodeType(common.Type)
	ino.Perm = common.Perm
	ino.UidIdx = common.UidIdx
	ino.GidIdx = common.GidIdx
	ino.ModTime = common.ModTime
	ino.Number = common.Number

	switch ino.typ {
	case typeDir:
		var v struct {
			StartBlock uint32
			NLink      uint32
			Size       uint16
			Offset     uint16
			ParentIno  uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, wrapIO("reading basic directory inode", err)
		}
		ino.startBlock = v.StartBlock
		ino.nlink = v.NLink
		ino.dirSize = uint32(v.Size)
		ino.dirOffset = v.Offset
		ino.parentIno = v.ParentIno

	case typeExtDir:
		var v struct {
			NLink      uint32
			Size       uint32
			StartBlock uint32
			ParentIno  uint32
			IdxCount   uint16
			Offset     uint16
			XattrIdx   uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, wrapIO("reading extended directory inode", err)
		}
		ino.nlink = v.NLink
		ino.dirSize = v.Size
		ino.startBlock = v.StartBlock
		ino.parentIno = v.ParentIno
		ino.idxCount = v.IdxCount
		ino.dirOffset = v.Offset
		ino.xattrIdx = v.XattrIdx

	case typeFile:
		var v struct {
			BlocksStart uint32
			FragIndex   uint32
			FragOffset  uint32
			FileSize    uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, wrapIO("reading basic file inode", err)
		}
		ino.blocksStart = uint64(v.BlocksStart)
		ino.fragIndex = v.FragIndex
		ino.fragOffset = v.FragOffset
		ino.fileSize = uint64(v.FileSize)
		if err := readBlockSizes(r, ino, blockSize); err != nil {
			return nil, err
		}

	case typeExtFile:
		var v struct {
			BlocksStart uint64
			FileSize    uint64
			Sparse      uint64
			NLink       uint32
			FragIndex   uint32
			FragOffset  uint32
			XattrIdx    uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, wrapIO("reading extended file inode", err)
		}
		ino.blocksStart = v.BlocksStart
		ino.fileSize = v.FileSize
		ino.nlink = v.NLink
		ino.fragIndex = v.FragIndex
		ino.fragOffset = v.FragOffset
		ino.xattrIdx = v.XattrIdx
		if err := readBlockSizes(r, ino, blockSize); err != nil {
			return nil, err
		}

	case typeSymlink, typeExtSymlink:
		var v struct {
			NLink     uint32
			TargetLen uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, wrapIO("reading symlink inode", err)
		}
		if v.TargetLen > 4096 {
			return nil, newErr(KindInvalidData, "symlink target too long", nil)
		}
		ino.nlink = v.NLink
		buf := make([]byte, v.TargetLen)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, wrapIO("reading symlink target", err)
		}
		ino.target = buf
		if ino.typ == typeExtSymlink {
			var xattrIdx uint32
			if err := binary.Read(r, binary.LittleEndian, &xattrIdx); err != nil {
				return nil, wrapIO("reading extended symlink xattr index", err)
			}
			ino.xattrIdx = xattrIdx
		}

	case typeBlockDev, typeCharDev:
		var v struct {
			NLink  uint32
			Device uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, wrapIO("reading device inode", err)
		}
		ino.nlink = v.NLink
		ino.deviceNumber = v.Device

	case typeExtBlockDev, typeExtCharDev:
		var v struct {
			NLink    uint32
			Device   uint32
			XattrIdx uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, wrapIO("reading extended device inode", err)
		}
		ino.nlink = v.NLink
		ino.deviceNumber = v.Device
		ino.xattrIdx = v.XattrIdx

	case typeFifo, typeSocket:
		var nlink uint32
		if err := binary.Read(r, binary.LittleEndian, &nlink); err != nil {
			return nil, wrapIO("reading ipc inode", err)
		}
		ino.nlink = nlink

	case typeExtFifo, typeExtSocket:
		var v struct {
			NLink    uint32
			XattrIdx uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, wrapIO("reading extended ipc inode", err)
		}
		ino.nlink = v.NLink
		ino.xattrIdx = v.XattrIdx

	default:
		// unknown type: shared fields only, usable for listing.
	}

	return ino, nil
}

// readBlockSizes reads a file inode's vector of per-block 32-bit size
// words. The count is ceil(file_size/block_size) when the file has no
// tail fragment, else file_size/block_size (integer division): a file
// with a fragment stores full-block entries only, with the remainder
// living in the fragment block instead.
func readBlockSizes(r io.Reader, ino *Inode, blockSize uint32) error {
	n := int(ino.fileSize / uint64(blockSize))
	if ino.fragIndex == noFragment && ino.fileSize%uint64(blockSize) != 0 {
		n++
	}
	ino.blockSizes = make([]uint32, n)
	if n == 0 {
		return nil
	}
	if err := binary.Read(r, binary.LittleEndian, ino.blockSizes); err != nil {
		return wrapIO("reading file block size words", err)
	}
	return nil
}
