package cache

import (
	"golang.org/x/sync/singleflight"
)

// Loader fronts an LRUCache with a singleflight group so concurrent misses
// for the same key run the load function once.
type Loader[T any] struct {
	cache *LRUCache[T]
	group singleflight.Group
}

// NewLoader wraps cache.
func NewLoader[T any](cache *LRUCache[T]) *Loader[T] {
	return &Loader[T]{cache: cache}
}

// Get returns the cached value for key or computes it with load.
// Errors are not cached. hit reports whether the value came from the cache.
func (l *Loader[T]) Get(key string, load func() (T, error)) (value T, hit bool, err error) {
	if v, ok := l.cache.Get(key); ok {
		return v, true, nil
	}

	v, err, _ := l.group.Do(key, func() (any, error) {
		if v, ok := l.cache.Get(key); ok {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return nil, err
		}
		l.cache.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v.(T), false, nil
}

// Cache returns the underlying LRU cache.
func (l *Loader[T]) Cache() *LRUCache[T] {
	return l.cache
}
