package squashfs

import (
	"io"
	"log"
)

// logger is the package-level trace logger. It is silent by default;
// SetLogger redirects it. WithLogger does not change it: it gives one
// archive its own logger instead.
var logger = log.New(io.Discard, "squashfs: ", log.LstdFlags)

// SetLogger redirects the package's trace logging. Pass nil to silence it
// again. Trace logging is a one-line summary when a superblock is parsed
// and, for archives opened without WithLogger, when an archive is opened —
// never anything load-bearing for correctness.
func SetLogger(l *log.Logger) {
	if l == nil {
		logger = log.New(io.Discard, "squashfs: ", log.LstdFlags)
		return
	}
	logger = l
}
