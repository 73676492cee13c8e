package squashfs

import "fmt"

// Compressor identifies the compression algorithm used for every
// compressed block in an image (metadata, data, and fragment blocks alike
// — the superblock names exactly one compressor for the whole image).
// Identifiers are fixed by the on-disk format.
type Compressor uint16

const (
	CompressorGzip Compressor = 1
	CompressorLZO  Compressor = 2
	CompressorLZMA Compressor = 3
	CompressorXZ   Compressor = 4
	CompressorLZ4  Compressor = 5
	CompressorZstd Compressor = 6
)

func (c Compressor) String() string {
	switch c {
	case CompressorGzip:
		return "gzip"
	case CompressorLZO:
		return "lzo"
	case CompressorLZMA:
		return "lzma"
	case CompressorXZ:
		return "xz"
	case CompressorLZ4:
		return "lz4"
	case CompressorZstd:
		return "zstd"
	}
	return fmt.Sprintf("compressor(%d)", uint16(c))
}

// supported reports whether this library can actually decode blocks
// compressed with c. lzo, lzma, and lz4 are recognized identifiers (so a
// superblock naming them still parses) but only {none, gzip, xz, zstd}
// are actually decodable here.
func (c Compressor) supported() bool {
	switch c {
	case CompressorGzip, CompressorXZ, CompressorZstd:
		return true
	}
	return false
}
