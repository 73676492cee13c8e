package squashfs

import "io/fs"

// inodeType is the on-disk inode type tag. SquashFS encodes 14 variants —
// a "basic" and an "extended" form of each of 7 POSIX object kinds — so
// that extended metadata (xattrs, 64-bit sizes, ...) only costs space on
// the inodes that need it.
type inodeType uint16

const (
	typeDir inodeType = iota + 1
	typeFile
	typeSymlink
	typeBlockDev
	typeCharDev
	typeFifo
	typeSocket
	typeExtDir
	typeExtFile
	typeExtSymlink
	typeExtBlockDev
	typeExtCharDev
	typeExtFifo
	typeExtSocket
)

// basic collapses an extended variant down to its basic counterpart, so
// callers that only care about "what kind of object is this" don't need to
// enumerate 14 cases.
func (t inodeType) basic() inodeType {
	if t >= typeExtDir {
		return t - 7
	}
	return t
}

func (t inodeType) isDir() bool     { return t.basic() == typeDir }
func (t inodeType) isFile() bool    { return t.basic() == typeFile }
func (t inodeType) isSymlink() bool { return t.basic() == typeSymlink }

// posixTypeBits returns the POSIX mode type bits ("permissions |
// type_bits") for this inode type. Values match struct stat's S_IFMT
// encoding.
func (t inodeType) posixTypeBits() uint32 {
	switch t.basic() {
	case typeFifo:
		return sIFIFO
	case typeCharDev:
		return sIFCHR
	case typeDir:
		return sIFDIR
	case typeBlockDev:
		return sIFBLK
	case typeFile:
		return sIFREG
	case typeSymlink:
		return sIFLNK
	case typeSocket:
		return sIFSOCK
	default:
		return 0
	}
}

// fsMode returns the fs.FileMode bits (type only, no permissions) for this
// inode type, for io/fs interop (fs.FileInfo.Mode, fs.DirEntry.Type).
func (t inodeType) fsMode() fs.FileMode {
	switch t.basic() {
	case typeDir:
		return fs.ModeDir
	case typeFile:
		return 0
	case typeSymlink:
		return fs.ModeSymlink
	case typeBlockDev:
		return fs.ModeDevice
	case typeCharDev:
		return fs.ModeDevice | fs.ModeCharDevice
	case typeFifo:
		return fs.ModeNamedPipe
	case typeSocket:
		return fs.ModeSocket
	default:
		return fs.ModeIrregular
	}
}
