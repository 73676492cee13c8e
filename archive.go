package squashfs

import (
	"encoding/binary"
	"io"
	"io/fs"
	"log"
	"os"
	"path"
	"strings"
	"time"
)

// Archive is an opened SquashFS image. It owns the backing stream
// exclusively; every reader it hands out (directory iterators,
// FileDataReader values) holds a logical view through the shared-reader
// mux and never outlives the Archive.
type Archive struct {
	sb  *Superblock
	log *log.Logger

	mux *mux

	metaCache *metadataCache
	dataCache *fragmentCache
	fragCache *fragmentCache

	idTable       []uint32
	fragmentTable *lookupTable // nil if the image has no fragments
	exportTable   *lookupTable // nil if the image is not exportable
}

// Open opens the named file and parses it as a SquashFS image.
func Open(path string, opts ...Option) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapIO("opening image file", err)
	}
	a, err := New(f, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	return a, nil
}

// New parses a SquashFS image from an arbitrary seekable byte source. The
// Archive takes ownership of r for the rest of its lifetime.
func New(r io.ReadSeeker, opts ...Option) (*Archive, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	m := newMux(r)
	bootstrap := m.client()

	hdr := make([]byte, superblockSize())
	if _, err := bootstrap.ReadAt(hdr, 0); err != nil {
		return nil, wrapIO("reading superblock", err)
	}
	sb, err := readSuperblock(hdr)
	if err != nil {
		return nil, err
	}
	if !sb.Compressor.supported() {
		return nil, newErr(KindUnsupported, "compressor "+sb.Compressor.String()+" is not supported", nil)
	}
	if cfg.crossCheck {
		if err := sb.crossCheck(bootstrap); err != nil {
			return nil, err
		}
	}

	a := &Archive{
		sb:        sb,
		log:       cfg.logger,
		mux:       m,
		metaCache: newMetadataCache(sb.Compressor, m.client(), cfg.maxCacheSize),
		dataCache: newFragmentCache(sb.Compressor, m.client(), sb.BlockSize, cfg.maxCacheSize),
		fragCache: newFragmentCache(sb.Compressor, m.client(), sb.BlockSize, cfg.maxCacheSize),
	}

	if err := a.loadIDTable(bootstrap); err != nil {
		return nil, err
	}
	if sb.hasFragTable() {
		a.fragmentTable, err = newLookupTable(a.metaCache, bootstrap, int64(sb.FragTableStart), int(sb.FragCount), 16)
		if err != nil {
			return nil, err
		}
	}
	if sb.hasExportTable() {
		a.exportTable, err = newLookupTable(a.metaCache, bootstrap, int64(sb.ExportTableStart), int(sb.InodeCount), 8)
		if err != nil {
			return nil, err
		}
	}

	a.log.Printf("opened image: %d inodes, block size %d, compressor %s", sb.InodeCount, sb.BlockSize, sb.Compressor)
	return a, nil
}

// Superblock returns the image's parsed header.
func (a *Archive) Superblock() *Superblock { return a.sb }

func (a *Archive) loadIDTable(client *muxClient) error {
	t, err := newLookupTable(a.metaCache, client, int64(a.sb.IDTableStart), int(a.sb.IDCount), 4)
	if err != nil {
		return err
	}
	a.idTable = make([]uint32, a.sb.IDCount)
	for i := range a.idTable {
		rec, err := t.record(i)
		if err != nil {
			return err
		}
		a.idTable[i] = binary.LittleEndian.Uint32(rec)
	}
	return nil
}

// ResolveID resolves a 16-bit uid/gid table index into the numeric id it
// names.
func (a *Archive) ResolveID(index uint16) (uint32, error) {
	if int(index) >= len(a.idTable) {
		return 0, newErr(KindNotFound, "id table index out of range", nil)
	}
	return a.idTable[index], nil
}

// RootInode returns the image's root directory inode.
func (a *Archive) RootInode() (*Inode, error) {
	return a.InodeFromReference(a.sb.RootInode)
}

// InodeFromReference decodes the inode at an arbitrary entry reference
// within the inode section.
func (a *Archive) InodeFromReference(ref EntryReference) (*Inode, error) {
	mr, err := a.metaCache.reader(int64(a.sb.InodeTableStart), -1, ref)
	if err != nil {
		return nil, err
	}
	return decodeInode(mr, a.sb.BlockSize)
}

// InodeFromNumber resolves a stable 32-bit inode number to its inode,
// through the export table. Returns "unsupported" if the image carries no
// export table.
func (a *Archive) InodeFromNumber(number uint32) (*Inode, error) {
	if a.exportTable == nil {
		return nil, newErr(KindUnsupported, "image has no export table", nil)
	}
	if number == 0 {
		return nil, ErrNotFound
	}
	rec, err := a.exportTable.record(int(number - 1))
	if err != nil {
		return nil, err
	}
	return a.InodeFromReference(EntryReference(binary.LittleEndian.Uint64(rec)))
}

// ReadDirEntries returns, in on-disk order, every entry across every
// directory-table chunk of a directory inode.
func (a *Archive) ReadDirEntries(ino *Inode) ([]*DirEntry, error) {
	it, err := a.readDirEntries(ino)
	if err != nil {
		return nil, err
	}
	var out []*DirEntry
	for {
		name, typ, ref, num, err := it.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, &DirEntry{name: name, typ: typ, ref: ref, inodeNumber: num, a: a})
	}
	return out, nil
}

// OpenFile returns a seekable reader over a regular file inode's content.
func (a *Archive) OpenFile(ino *Inode) (*FileDataReader, error) {
	return a.newFileDataReader(ino)
}

// InodeFromPath resolves a POSIX-style path starting at the root, walking
// one component at a time. Absolute paths walk from root, the only start
// point this façade knows — a caller that needs relative-path resolution
// against a working directory should use the sqpath package instead. "."
// is ignored; ".." pops to the parent most recently descended into during
// this resolution. Returns not-found if any component is missing, and
// invalid-input for a component shape that has no meaning in SquashFS
// (a Windows-style drive prefix, for instance).
func (a *Archive) InodeFromPath(p string) (*Inode, error) {
	root, err := a.RootInode()
	if err != nil {
		return nil, err
	}
	stack := []*Inode{root}

	for _, comp := range strings.Split(p, "/") {
		switch comp {
		case "", ".":
			continue
		case "..":
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		default:
			if strings.ContainsAny(comp, ":\\") {
				return nil, newErr(KindInvalidInput, "path component has no meaning in a SquashFS image", nil)
			}
			cur := stack[len(stack)-1]
			if !cur.IsDir() {
				return nil, ErrNotDirectory
			}
			entries, err := a.ReadDirEntries(cur)
			if err != nil {
				return nil, err
			}
			var next *Inode
			for _, e := range entries {
				if e.name == comp {
					next, err = a.InodeFromReference(e.ref)
					if err != nil {
						return nil, err
					}
					break
				}
			}
			if next == nil {
				return nil, ErrNotFound
			}
			stack = append(stack, next)
		}
	}
	return stack[len(stack)-1], nil
}

// maxSymlinkHops bounds the final-component symlink chasing FindInode does,
// the same convention sqpath.Canonicalize uses for whole-path resolution.
const maxSymlinkHops = 40

// FindInode resolves p via InodeFromPath and, when followFinalSymlink is
// true, additionally dereferences the result if it names a symlink,
// following a chain up to maxSymlinkHops deep before giving up with
// ErrTooManySymlinks. Intermediate path components are never dereferenced
// here — that full-path symlink splicing lives in the sqpath package, which
// this function can't call into without an import cycle (sqpath imports
// this package).
func (a *Archive) FindInode(p string, followFinalSymlink bool) (*Inode, error) {
	ino, err := a.InodeFromPath(p)
	if err != nil {
		return nil, err
	}
	if !followFinalSymlink {
		return ino, nil
	}

	dir := path.Dir(p)
	hops := 0
	for ino.IsSymlink() {
		hops++
		if hops > maxSymlinkHops {
			return nil, ErrTooManySymlinks
		}
		target, err := ino.Readlink()
		if err != nil {
			return nil, err
		}
		next := target
		if !path.IsAbs(next) {
			next = path.Join(dir, next)
		}
		ino, err = a.InodeFromPath(next)
		if err != nil {
			return nil, err
		}
		dir = path.Dir(next)
	}
	return ino, nil
}

// fileInfo adapts an Inode to fs.FileInfo for io/fs interop.
type fileInfo struct {
	name string
	ino  *Inode
}

func (fi *fileInfo) Name() string       { return fi.name }
func (fi *fileInfo) Size() int64        { return int64(fi.ino.Size()) }
func (fi *fileInfo) Mode() fs.FileMode  { return fi.ino.FSMode() }
func (fi *fileInfo) ModTime() time.Time { return time.Unix(int64(fi.ino.ModTime), 0) }
func (fi *fileInfo) IsDir() bool        { return fi.ino.IsDir() }
func (fi *fileInfo) Sys() any           { return fi.ino }

// file adapts an Inode plus its content reader to fs.File. When ino is a
// directory it additionally satisfies fs.ReadDirFile, lazily building its
// directory-table iterator on first ReadDir call.
type file struct {
	a    *Archive
	name string
	ino  *Inode
	r    *FileDataReader
	dir  *dirTableIterator
}

func (f *file) Stat() (fs.FileInfo, error) { return &fileInfo{name: f.name, ino: f.ino}, nil }
func (f *file) Close() error {
	if f.r != nil {
		return f.r.Close()
	}
	f.dir = nil
	return nil
}
func (f *file) Read(p []byte) (int, error) {
	if f.r == nil {
		return 0, ErrNotRegular
	}
	return f.r.Read(p)
}

func (f *file) ReadDir(n int) ([]fs.DirEntry, error) {
	if !f.ino.IsDir() {
		return nil, ErrNotDirectory
	}
	if f.dir == nil {
		it, err := f.a.readDirEntries(f.ino)
		if err != nil {
			return nil, err
		}
		f.dir = it
	}

	var out []fs.DirEntry
	for n <= 0 || len(out) < n {
		name, typ, ref, num, err := f.dir.next()
		if err == io.EOF {
			if n <= 0 {
				return out, nil
			}
			if len(out) == 0 {
				return nil, io.EOF
			}
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, &DirEntry{name: name, typ: typ, ref: ref, inodeNumber: num, a: f.a})
	}
	return out, nil
}

// Open implements fs.FS. name follows io/fs conventions ("." for root,
// slash-separated, no leading slash).
func (a *Archive) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	ino, err := a.InodeFromPath(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	f := &file{a: a, name: path.Base(name), ino: ino}
	if ino.IsRegular() {
		r, err := a.OpenFile(ino)
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		f.r = r
	}
	return f, nil
}

// Stat implements fs.StatFS. It follows a final-component symlink, the way
// os.Stat does.
func (a *Archive) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	ino, err := a.FindInode(name, true)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}
	return &fileInfo{name: path.Base(name), ino: ino}, nil
}

// Lstat is Stat's non-following counterpart: it reports on a symlink itself
// rather than whatever it points to, the way os.Lstat does.
func (a *Archive) Lstat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "lstat", Path: name, Err: fs.ErrInvalid}
	}
	ino, err := a.InodeFromPath(name)
	if err != nil {
		return nil, &fs.PathError{Op: "lstat", Path: name, Err: err}
	}
	return &fileInfo{name: path.Base(name), ino: ino}, nil
}

// ReadDir implements fs.ReadDirFS.
func (a *Archive) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	ino, err := a.InodeFromPath(name)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
	}
	entries, err := a.ReadDirEntries(ino)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
	}
	out := make([]fs.DirEntry, len(entries))
	for i, e := range entries {
		out[i] = e
	}
	return out, nil
}

// subFS is a view of an Archive rooted below one directory, for fs.SubFS.
type subFS struct {
	a    *Archive
	base string
}

func (s *subFS) full(name string) string {
	if name == "." {
		return s.base
	}
	return path.Join(s.base, name)
}

func (s *subFS) Open(name string) (fs.File, error)              { return s.a.Open(s.full(name)) }
func (s *subFS) Stat(name string) (fs.FileInfo, error)           { return s.a.Stat(s.full(name)) }
func (s *subFS) ReadDir(name string) ([]fs.DirEntry, error)      { return s.a.ReadDir(s.full(name)) }

// Sub implements fs.SubFS.
func (a *Archive) Sub(dir string) (fs.FS, error) {
	if !fs.ValidPath(dir) {
		return nil, &fs.PathError{Op: "sub", Path: dir, Err: fs.ErrInvalid}
	}
	if _, err := a.InodeFromPath(dir); err != nil {
		return nil, &fs.PathError{Op: "sub", Path: dir, Err: err}
	}
	return &subFS{a: a, base: dir}, nil
}
