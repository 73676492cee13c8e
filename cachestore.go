package squashfs

import lru "github.com/hashicorp/golang-lru/v2"

// blockStore is the backing map for the metadata and fragment block
// caches. By default it never evicts; WithCacheSize turns it into a
// bounded LRU for long-lived processes that open many large images.
type blockStore[V any] struct {
	plain map[int64]V
	lru   *lru.Cache[int64, V]
}

func newBlockStore[V any](maxBlocks int) *blockStore[V] {
	if maxBlocks <= 0 {
		return &blockStore[V]{plain: make(map[int64]V)}
	}
	c, err := lru.New[int64, V](maxBlocks)
	if err != nil {
		// only returns an error for size <= 0, already excluded above.
		return &blockStore[V]{plain: make(map[int64]V)}
	}
	return &blockStore[V]{lru: c}
}

func (s *blockStore[V]) get(key int64) (V, bool) {
	if s.lru != nil {
		return s.lru.Get(key)
	}
	v, ok := s.plain[key]
	return v, ok
}

func (s *blockStore[V]) put(key int64, v V) {
	if s.lru != nil {
		s.lru.Add(key, v)
		return
	}
	s.plain[key] = v
}
