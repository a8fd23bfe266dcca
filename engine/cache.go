package engine

import (
	"context"
	"crypto/sha256"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of remembered successful checks.
const DefaultCacheSize = 256

// Cached remembers sources that passed CompileOnly so re-checking an
// unchanged definition set skips the toolchain. Failures are never cached.
// CompileAndRun always reaches the wrapped engine.
type Cached struct {
	inner Engine
	ok    *lru.Cache[[sha256.Size]byte, struct{}]
}

// NewCached wraps inner with an LRU of the given size.
func NewCached(inner Engine, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[[sha256.Size]byte, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("create check cache: %w", err)
	}
	return &Cached{inner: inner, ok: cache}, nil
}

// CompileAndRun implements Engine.
func (c *Cached) CompileAndRun(ctx context.Context, p Program) (Value, error) {
	return c.inner.CompileAndRun(ctx, p)
}

// CompileOnly implements Engine.
func (c *Cached) CompileOnly(ctx context.Context, source string) error {
	key := sha256.Sum256([]byte(source))
	if c.ok.Contains(key) {
		return nil
	}
	if err := c.inner.CompileOnly(ctx, source); err != nil {
		return err
	}
	c.ok.Add(key, struct{}{})
	return nil
}

// Len returns the number of cached checks.
func (c *Cached) Len() int {
	return c.ok.Len()
}

var _ Engine = (*Cached)(nil)
