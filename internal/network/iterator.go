package network

import "iter"

// Iterator is a forward-only, non-restartable sequence read lazily from a
// connection. Once it reports the end, whether by the stream's end marker or
// by a failure, it stays ended.
type Iterator[T any] struct {
	next func() (T, bool, error)
	done bool
	err  error
}

func newIterator[T any](next func() (T, bool, error)) *Iterator[T] {
	return &Iterator[T]{next: next}
}

// failedIterator is an iterator that has already ended with err.
func failedIterator[T any](err error) *Iterator[T] {
	return &Iterator[T]{done: true, err: err}
}

// Next returns the next value. The second result is false at the end of the
// sequence; Err tells a clean end from a failure.
func (it *Iterator[T]) Next() (T, bool) {
	var zero T
	if it.done {
		return zero, false
	}
	v, ok, err := it.next()
	if err != nil || !ok {
		it.done = true
		it.err = err
		it.next = nil
		return zero, false
	}
	return v, true
}

// Err returns the failure that ended the sequence, if any.
func (it *Iterator[T]) Err() error {
	return it.err
}

// All adapts the iterator to a range-over-func sequence. Breaking out of the
// loop leaves the remaining values unread.
func (it *Iterator[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok := it.Next()
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Drain discards the remaining values so the connection can be reused.
func (it *Iterator[T]) Drain() error {
	for {
		if _, ok := it.Next(); !ok {
			return it.err
		}
	}
}
