package squashfs

import (
	"bytes"
	"testing"
)

type readCountingReader struct {
	*bytes.Reader
	reads int
}

func (r *readCountingReader) Read(p []byte) (int, error) {
	r.reads++
	return r.Reader.Read(p)
}

func buildStoredDataBlock(payload []byte) []byte {
	var buf bytes.Buffer
	buf.Write(payload)
	return buf.Bytes()
}

func TestFragmentCacheDecodesBlockOnce(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 32)
	backing := &readCountingReader{Reader: bytes.NewReader(buildStoredDataBlock(payload))}
	m := newMux(backing)

	cache := newFragmentCache(0, m.client(), 4096, 0)

	// Two sub-views into the same fragment block, as if two small files
	// shared it.
	r1, err := cache.reader(0, uint32(len(payload)), false, 0, 16)
	if err != nil {
		t.Fatalf("reader 1: %v", err)
	}
	r2, err := cache.reader(0, uint32(len(payload)), false, 16, 16)
	if err != nil {
		t.Fatalf("reader 2: %v", err)
	}

	got1 := make([]byte, 16)
	if _, err := r1.Read(got1); err != nil {
		t.Fatalf("read r1: %v", err)
	}
	got2 := make([]byte, 16)
	if _, err := r2.Read(got2); err != nil {
		t.Fatalf("read r2: %v", err)
	}

	if backing.reads != 1 {
		t.Errorf("expected exactly 1 underlying read for a shared fragment block, got %d", backing.reads)
	}
}

func TestFragmentCacheSubViewBounds(t *testing.T) {
	payload := bytes.Repeat([]byte("y"), 16)
	backing := bytes.NewReader(buildStoredDataBlock(payload))
	m := newMux(backing)
	cache := newFragmentCache(0, m.client(), 4096, 0)

	if _, err := cache.reader(0, uint32(len(payload)), false, 8, 16); err == nil {
		t.Fatal("expected error for sub-view exceeding decoded block length")
	}
}

func TestFragmentCacheDistinctAddressesNotConflated(t *testing.T) {
	a := bytes.Repeat([]byte("A"), 8)
	b := bytes.Repeat([]byte("B"), 8)
	var buf bytes.Buffer
	buf.Write(a)
	buf.Write(b)

	m := newMux(bytes.NewReader(buf.Bytes()))
	cache := newFragmentCache(0, m.client(), 4096, 0)

	r1, err := cache.reader(0, 8, false, 0, 8)
	if err != nil {
		t.Fatalf("reader at 0: %v", err)
	}
	r2, err := cache.reader(8, 8, false, 0, 8)
	if err != nil {
		t.Fatalf("reader at 8: %v", err)
	}

	got1 := make([]byte, 8)
	r1.Read(got1)
	got2 := make([]byte, 8)
	r2.Read(got2)

	if !bytes.Equal(got1, a) {
		t.Errorf("block at 0 = %q, want %q", got1, a)
	}
	if !bytes.Equal(got2, b) {
		t.Errorf("block at 8 = %q, want %q", got2, b)
	}
}
