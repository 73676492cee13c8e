package squashfs

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

func TestBlockReaderNone(t *testing.T) {
	want := []byte("not actually compressed")
	got, err := decompressBlock(0, false, want, len(want))
	if err != nil {
		t.Fatalf("decompressBlock: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBlockReaderGzip(t *testing.T) {
	want := bytes.Repeat([]byte("squashfs metadata block"), 50)

	var raw bytes.Buffer
	zw := zlib.NewWriter(&raw)
	if _, err := zw.Write(want); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}

	got, err := decompressBlock(CompressorGzip, true, raw.Bytes(), len(want))
	if err != nil {
		t.Fatalf("decompressBlock: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("decoded %d bytes, want %d bytes, mismatch", len(got), len(want))
	}
}

func TestBlockReaderXZ(t *testing.T) {
	want := bytes.Repeat([]byte("fragment tail data"), 40)

	var raw bytes.Buffer
	xw, err := xz.NewWriter(&raw)
	if err != nil {
		t.Fatalf("xz.NewWriter: %v", err)
	}
	if _, err := xw.Write(want); err != nil {
		t.Fatalf("xz write: %v", err)
	}
	if err := xw.Close(); err != nil {
		t.Fatalf("xz close: %v", err)
	}

	got, err := decompressBlock(CompressorXZ, true, raw.Bytes(), len(want))
	if err != nil {
		t.Fatalf("decompressBlock: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("decoded %d bytes, want %d bytes, mismatch", len(got), len(want))
	}
}

func TestBlockReaderZstd(t *testing.T) {
	want := bytes.Repeat([]byte("zstd framed block"), 60)

	zw, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd.NewWriter: %v", err)
	}
	raw := zw.EncodeAll(want, nil)
	zw.Close()

	got, err := decompressBlock(CompressorZstd, true, raw, len(want))
	if err != nil {
		t.Fatalf("decompressBlock: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("decoded %d bytes, want %d bytes, mismatch", len(got), len(want))
	}
}

func TestBlockReaderUnsupportedCompressor(t *testing.T) {
	_, err := decompressBlock(CompressorLZMA, true, []byte{1, 2, 3}, 16)
	if err == nil {
		t.Fatal("expected error for unsupported compressor")
	}
	var serr *Error
	if !errors.As(err, &serr) || serr.Kind != KindUnsupported {
		t.Errorf("expected KindUnsupported, got %v", err)
	}
}

var _ io.Reader = (*blockReader)(nil)
