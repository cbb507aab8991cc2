package ocr

import "sync"

// LazyClient builds a remote client on first use and keeps it for the life of
// the process. A failed build is not cached, so the next Get tries again; a
// successful build is never repeated.
type LazyClient[T any] struct {
	mu     sync.Mutex
	build  func() (T, error)
	client T
	ready  bool
}

// NewLazyClient wraps build. build runs at most once successfully.
func NewLazyClient[T any](build func() (T, error)) *LazyClient[T] {
	return &LazyClient[T]{build: build}
}

// Get returns the cached client, building it if needed.
func (l *LazyClient[T]) Get() (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ready {
		return l.client, nil
	}
	c, err := l.build()
	if err != nil {
		var zero T
		return zero, err
	}
	l.client = c
	l.ready = true
	return c, nil
}
