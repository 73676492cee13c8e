package squashfs

import "io"

// mux lets many independently positioned logical readers share one
// physical seekable backing stream. Each client remembers its own logical
// position; the mux remembers which client last touched the underlying
// stream and only re-seeks when a different client takes a turn. The
// archive is the sole owner of the mux, and nothing here is safe for
// concurrent use from multiple goroutines — one archive, one logical
// thread of control.
type mux struct {
	inner    io.ReadSeeker
	activeID int64
	nextID   int64
}

// muxClient is one logical reader sharing a mux's backing stream.
type muxClient struct {
	m   *mux
	id  int64
	pos int64
}

// newMux wraps a backing stream for sharing across multiple clients.
func newMux(r io.ReadSeeker) *mux {
	return &mux{inner: r, activeID: 0, nextID: 1}
}

// client allocates a new logical reader with a monotonically increasing
// identity, positioned at the start of the stream.
func (m *mux) client() *muxClient {
	id := m.nextID
	m.nextID++
	return &muxClient{m: m, id: id}
}

// activate re-seeks the underlying stream to this client's stored position
// if some other client was last active, then records this client as
// active. If the seek fails, activeID is left unchanged so the next
// operation retries rather than assuming a swap that didn't happen.
func (c *muxClient) activate() error {
	if c.m.activeID == c.id {
		return nil
	}
	n, err := c.m.inner.Seek(c.pos, io.SeekStart)
	if err != nil {
		return wrapIO("mux: activating client", err)
	}
	if n != c.pos {
		return newErr(KindIO, "mux: seek landed at unexpected position", nil)
	}
	c.m.activeID = c.id
	return nil
}

func (c *muxClient) Read(p []byte) (int, error) {
	if err := c.activate(); err != nil {
		return 0, err
	}
	n, err := c.m.inner.Read(p)
	c.pos += int64(n)
	if err != nil && err != io.EOF {
		return n, wrapIO("mux: read", err)
	}
	return n, err
}

func (c *muxClient) Seek(offset int64, whence int) (int64, error) {
	if err := c.activate(); err != nil {
		return 0, err
	}
	n, err := c.m.inner.Seek(offset, whence)
	if err != nil {
		return 0, wrapIO("mux: seek", err)
	}
	c.pos = n
	return n, nil
}

// ReadAt lets a muxClient satisfy io.ReaderAt without disturbing its
// logical position tracked for sequential Read/Seek use — it always
// restores the position it observed before the absolute seek needed to
// service the request. Used where callers (tests, lookup tables) want
// positioned reads without juggling Seek/Read pairs by hand.
func (c *muxClient) ReadAt(p []byte, off int64) (int, error) {
	saved := c.pos
	if _, err := c.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := c.Read(p)
	if _, serr := c.Seek(saved, io.SeekStart); serr != nil && err == nil {
		err = serr
	}
	return n, err
}
