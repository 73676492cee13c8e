package squashfs

import "log"

// Option configures an Archive at open time.
type Option func(*archiveConfig) error

type archiveConfig struct {
	logger       *log.Logger
	maxCacheSize int // 0 = unbounded, per block cache
	crossCheck   bool
}

func defaultConfig() *archiveConfig {
	return &archiveConfig{logger: logger}
}

// WithLogger overrides the package-level default (discard) logger for one
// archive.
func WithLogger(l *log.Logger) Option {
	return func(c *archiveConfig) error {
		if l != nil {
			c.logger = l
		}
		return nil
	}
}

// WithCacheSize bounds the metadata and fragment/data block caches to at
// most n decoded blocks each, evicting least-recently-used entries
// beyond that. Omit (or pass 0) to keep the default of unbounded,
// never-evicted caches — appropriate for short-lived tools but not for
// long-running processes that open many large images.
func WithCacheSize(n int) Option {
	return func(c *archiveConfig) error {
		if n < 0 {
			return newErr(KindInvalidInput, "cache size must not be negative", nil)
		}
		c.maxCacheSize = n
		return nil
	}
}

// WithSuperblockCrossCheck enables extra validation of the superblock at
// open time, beyond the minimal magic/block_size check New always performs:
// bytes_used is checked against the actual length of the backing stream,
// and the section table offsets are checked for the strictly ascending
// order the format requires. Off by default since it costs an extra Seek
// and is redundant against a backing store already trusted to hold a
// well-formed image.
func WithSuperblockCrossCheck(enabled bool) Option {
	return func(c *archiveConfig) error {
		c.crossCheck = enabled
		return nil
	}
}
