package squashfs

import "io/fs"

// POSIX mode type bits, as used by struct stat's st_mode and by this
// package's "mode = permissions | type_bits" construction.
const (
	sIFIFO  = 0o010000
	sIFCHR  = 0o020000
	sIFDIR  = 0o040000
	sIFBLK  = 0o060000
	sIFREG  = 0o100000
	sIFLNK  = 0o120000
	sIFSOCK = 0o140000

	sISUID = 0o4000
	sISGID = 0o2000
	sISVTX = 0o1000
)

// posixModeToFS converts a raw POSIX mode (permission bits plus S_IFMT
// type bits) into an fs.FileMode, for io/fs interop.
func posixModeToFS(mode uint32) fs.FileMode {
	res := fs.FileMode(mode & 0o777)

	switch mode & 0o170000 {
	case sIFCHR:
		res |= fs.ModeCharDevice | fs.ModeDevice
	case sIFBLK:
		res |= fs.ModeDevice
	case sIFDIR:
		res |= fs.ModeDir
	case sIFIFO:
		res |= fs.ModeNamedPipe
	case sIFLNK:
		res |= fs.ModeSymlink
	case sIFSOCK:
		res |= fs.ModeSocket
	}

	if mode&sISGID != 0 {
		res |= fs.ModeSetgid
	}
	if mode&sISUID != 0 {
		res |= fs.ModeSetuid
	}
	if mode&sISVTX != 0 {
		res |= fs.ModeSticky
	}

	return res
}
