package squashfs

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// blockReader decodes one compressed (or stored) block. It is a closed sum
// type over the four algorithms this library understands, not an
// io.Reader-valued interface field: the "none" case must hand back the raw
// byte source unchanged so a caller that only wants io.ReaderAt access to
// an uncompressed data block never pays for an intermediate decompression
// layer it doesn't need. A registry of interface-valued decompressors would
// erase that concrete reader on the "none" path, which is why this stays a
// tagged union instead.
type blockReader struct {
	kind Compressor
	none io.Reader
	zlib io.ReadCloser
	xz   io.Reader
	zstd *zstd.Decoder
}

// newBlockReader builds a decoder over raw, the exact bytes of one on-disk
// block. compressed is false when the block's size-word high bit (data and
// fragment blocks) or header high bit (metadata blocks) marked it stored
// rather than compressed; in that case the image's named compressor is
// irrelevant and the bytes pass through untouched.
func newBlockReader(comp Compressor, compressed bool, raw []byte) (*blockReader, error) {
	if !compressed {
		return &blockReader{kind: 0, none: bytes.NewReader(raw)}, nil
	}

	switch comp {
	case CompressorGzip:
		// SquashFS's "gzip" compressor is raw DEFLATE wrapped in a
		// zlib (RFC1950) header, never a gzip (RFC1952) one, so this
		// reaches for zlib.NewReader rather than compress/gzip.
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, newErr(KindInvalidData, "decoding zlib block", err)
		}
		return &blockReader{kind: CompressorGzip, zlib: zr}, nil

	case CompressorXZ:
		xr, err := xz.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, newErr(KindInvalidData, "decoding xz block", err)
		}
		return &blockReader{kind: CompressorXZ, xz: xr}, nil

	case CompressorZstd:
		zr, err := zstd.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, newErr(KindInvalidData, "decoding zstd block", err)
		}
		return &blockReader{kind: CompressorZstd, zstd: zr}, nil

	case CompressorLZO, CompressorLZMA, CompressorLZ4:
		return nil, newErr(KindUnsupported, "compressor "+comp.String()+" is not supported", nil)

	default:
		return nil, newErr(KindUnsupported, "unknown compressor", nil)
	}
}

func (b *blockReader) Read(p []byte) (int, error) {
	switch b.kind {
	case 0:
		return b.none.Read(p)
	case CompressorGzip:
		return b.zlib.Read(p)
	case CompressorXZ:
		return b.xz.Read(p)
	case CompressorZstd:
		return b.zstd.Read(p)
	}
	return 0, newErr(KindInvalidData, "unreachable block reader kind", nil)
}

// Close releases resources held by the decoder. The none and xz cases hold
// nothing closeable; zlib and zstd wrap pooled buffers that must be
// returned.
func (b *blockReader) Close() error {
	switch b.kind {
	case CompressorGzip:
		return b.zlib.Close()
	case CompressorZstd:
		b.zstd.Close()
		return nil
	}
	return nil
}

// decompressBlock fully decodes one block and returns its plaintext. Every
// call site in this library (metadata blocks capped at 8KiB, data and
// fragment blocks capped at the image block size) knows the maximum
// possible output size up front, so buffering the whole block rather than
// streaming it keeps the mux client's turn short and avoids holding a
// decoder open across unrelated reads.
func decompressBlock(comp Compressor, compressed bool, raw []byte, maxSize int) ([]byte, error) {
	br, err := newBlockReader(comp, compressed, raw)
	if err != nil {
		return nil, err
	}
	defer br.Close()

	buf := make([]byte, maxSize)
	n := 0
	for n < maxSize {
		m, err := br.Read(buf[n:])
		n += m
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, newErr(KindInvalidData, "decompressing block", err)
		}
		if m == 0 {
			break
		}
	}
	return buf[:n], nil
}
