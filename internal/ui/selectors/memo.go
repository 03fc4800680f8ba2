package selectors

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize remembers only the most recent inputs.
const DefaultCacheSize = 1

type options struct {
	size int
}

// Option configures a memoized selector.
type Option func(*options)

// WithCacheSize keeps results for the n most recent input combinations.
func WithCacheSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.size = n
		}
	}
}

func newCache[K comparable, R any](opts []Option) *lru.Cache[K, R] {
	o := options{size: DefaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	cache, err := lru.New[K, R](o.size)
	if err != nil {
		// Only reachable with a non-positive size, which WithCacheSize rejects.
		panic(err)
	}
	return cache
}

// CreateSelector memoizes combine over the value of in. combine runs again
// only when in returns a value not equal to a cached one, so inputs should
// be pointers or small comparable values from an immutable state.
func CreateSelector[S any, A comparable, R any](in func(S) A, combine func(A) R, opts ...Option) func(S) R {
	cache := newCache[A, R](opts)
	return func(s S) R {
		a := in(s)
		if r, ok := cache.Get(a); ok {
			return r
		}
		r := combine(a)
		cache.Add(a, r)
		return r
	}
}

type pair[A, B comparable] struct {
	a A
	b B
}

// CreateSelector2 is CreateSelector over two inputs.
func CreateSelector2[S any, A, B comparable, R any](inA func(S) A, inB func(S) B, combine func(A, B) R, opts ...Option) func(S) R {
	cache := newCache[pair[A, B], R](opts)
	return func(s S) R {
		key := pair[A, B]{a: inA(s), b: inB(s)}
		if r, ok := cache.Get(key); ok {
			return r
		}
		r := combine(key.a, key.b)
		cache.Add(key, r)
		return r
	}
}
