// Package sqpath implements POSIX-style pathname resolution against a
// SquashFS archive, including symbolic link traversal. It consumes only
// the archive's public surface (RootInode, InodeFromReference,
// ReadDirEntries, Readlink) and holds no state of its own beyond one call
// to Canonicalize.
package sqpath

import (
	"path"
	"strings"

	"github.com/go-squashfs/squashfs"
)

// maxSymlinkHops bounds symlink chasing so a cyclical or deeply nested
// chain of symlinks fails cleanly instead of looping forever.
const maxSymlinkHops = 40

// Canonicalize resolves p (absolute, or relative to cwd) against a,
// following symlinks, and returns the fully resolved absolute path. A
// trailing slash on the (possibly cwd-joined) input forbids the final
// component from being a symlink at all — "a pathname that ... ends with
// one or more trailing '/' characters shall not be resolved successfully
// unless the last pathname component before the trailing '/' characters
// names an existing directory" (Open Group Base Specifications §4.11),
// applied here as: a trailing slash may never dereference a symlink.
func Canonicalize(a *squashfs.Archive, p, cwd string) (string, error) {
	if p == "" {
		return "", squashfs.ErrInvalidInput
	}

	full := p
	if !path.IsAbs(full) {
		full = path.Join(cwd, full)
	}
	trailingSlash := len(full) > 1 && strings.HasSuffix(p, "/")

	components := splitComponents(full)
	var resolved []*squashfs.DirEntry
	hops := 0

	for i := 0; i < len(components); i++ {
		c := components[i]
		switch c {
		case "", ".":
			continue
		case "..":
			// "in the root directory, dot-dot may refer to the root
			// directory itself" — popping an empty stack is a no-op.
			if len(resolved) > 0 {
				resolved = resolved[:len(resolved)-1]
			}
			continue
		}

		parent, err := parentOf(a, resolved)
		if err != nil {
			return "", err
		}
		entries, err := a.ReadDirEntries(parent)
		if err != nil {
			return "", err
		}
		de := findByName(entries, c)
		if de == nil {
			return "", squashfs.ErrNotFound
		}

		ino, err := a.InodeFromReference(de.Reference())
		if err != nil {
			return "", err
		}

		if !ino.IsSymlink() {
			resolved = append(resolved, de)
			continue
		}

		if i == len(components)-1 && trailingSlash {
			return "", squashfs.ErrNotDirectory
		}

		hops++
		if hops > maxSymlinkHops {
			return "", squashfs.ErrTooManySymlinks
		}

		target, err := ino.Readlink()
		if err != nil {
			return "", err
		}
		if target == "" {
			return "", squashfs.ErrInvalidData
		}

		rest := append([]string{}, components[i+1:]...)
		if path.IsAbs(target) {
			resolved = resolved[:0]
		}
		components = append(splitComponents(target), rest...)
		i = -1 // restart the loop over the spliced component list
	}

	return buildPath(resolved, trailingSlash), nil
}

func splitComponents(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func parentOf(a *squashfs.Archive, resolved []*squashfs.DirEntry) (*squashfs.Inode, error) {
	if len(resolved) == 0 {
		return a.RootInode()
	}
	return a.InodeFromReference(resolved[len(resolved)-1].Reference())
}

func findByName(entries []*squashfs.DirEntry, name string) *squashfs.DirEntry {
	for _, e := range entries {
		if e.Name() == name {
			return e
		}
	}
	return nil
}

func buildPath(resolved []*squashfs.DirEntry, trailingSlash bool) string {
	if len(resolved) == 0 {
		return "/"
	}
	names := make([]string, len(resolved))
	for i, de := range resolved {
		names[i] = de.Name()
	}
	out := "/" + strings.Join(names, "/")
	if trailingSlash {
		out += "/"
	}
	return out
}
