package squashfs

import "strings"

// Flags is the superblock's bitfield of image-wide properties.
type Flags uint16

const (
	FlagUncompressedInodes Flags = 1 << iota
	FlagUncompressedData
	FlagCheck
	FlagUncompressedFragments
	FlagNoFragments
	FlagAlwaysFragments
	FlagDuplicates
	FlagExportable
	FlagUncompressedXattrs
	FlagNoXattrs
	FlagCompressorOptions
	FlagUncompressedIDs
)

var flagNames = []struct {
	bit  Flags
	name string
}{
	{FlagUncompressedInodes, "UNCOMPRESSED_INODES"},
	{FlagUncompressedData, "UNCOMPRESSED_DATA"},
	{FlagCheck, "CHECK"},
	{FlagUncompressedFragments, "UNCOMPRESSED_FRAGMENTS"},
	{FlagNoFragments, "NO_FRAGMENTS"},
	{FlagAlwaysFragments, "ALWAYS_FRAGMENTS"},
	{FlagDuplicates, "DUPLICATES"},
	{FlagExportable, "EXPORTABLE"},
	{FlagUncompressedXattrs, "UNCOMPRESSED_XATTRS"},
	{FlagNoXattrs, "NO_XATTRS"},
	{FlagCompressorOptions, "COMPRESSOR_OPTIONS"},
	{FlagUncompressedIDs, "UNCOMPRESSED_IDS"},
}

func (f Flags) String() string {
	var opt []string
	for _, fn := range flagNames {
		if f&fn.bit != 0 {
			opt = append(opt, fn.name)
		}
	}
	return strings.Join(opt, "|")
}

// Has reports whether every bit in what is set in f.
func (f Flags) Has(what Flags) bool {
	return f&what == what
}
