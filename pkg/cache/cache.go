// Package cache keeps the results of parsing documents, keyed by document
// id and a hash of the content, so that documents imported by several
// interpretations are parsed once.
package cache

import (
	"crypto/sha256"
	"sync"

	"github.com/fastn-stack/fastn-sub010/pkg/ast"
	"github.com/fastn-stack/fastn-sub010/pkg/logutil"
	"github.com/fastn-stack/fastn-sub010/pkg/parse"
)

var logger = logutil.GetLogger("[cache] ")

// DefaultSize is the number of entries of a cache created with a
// non-positive size.
const DefaultSize = 256

// Key identifies one version of a document. Documents supplied with a line
// offset parse to different positions, so the offset is part of the key.
type Key struct {
	Doc        string
	Hash       [sha256.Size]byte
	LineOffset int
}

// KeyOf returns the key of a document with the given content.
func KeyOf(doc, content string, lineOffset int) Key {
	return Key{doc, sha256.Sum256([]byte(content)), lineOffset}
}

// Stats counts the lookups of a cache.
type Stats struct {
	Hits, Misses, Entries int
}

// Cache is a size-bounded map safe for concurrent use. It keeps one
// version of each document: a lookup or an insertion with a different hash
// discards the version held. When full, the oldest entry is evicted.
type Cache[V any] struct {
	mu      sync.Mutex
	size    int
	entries map[slot]entry[V]
	order   []slot
	hits    int
	misses  int
}

type slot struct {
	doc        string
	lineOffset int
}

type entry[V any] struct {
	hash [sha256.Size]byte
	v    V
}

func (k Key) slot() slot { return slot{k.Doc, k.LineOffset} }

// New creates a cache holding at most size entries.
func New[V any](size int) *Cache[V] {
	if size <= 0 {
		size = DefaultSize
	}
	return &Cache[V]{size: size, entries: make(map[slot]entry[V])}
}

// Get looks up an entry. A held version of the document with another hash
// is stale and is discarded.
func (c *Cache[V]) Get(k Key) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k.slot()]
	if ok && e.hash != k.Hash {
		c.remove(k.slot())
		ok = false
	}
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	return e.v, true
}

// Put adds an entry, replacing any other version of the document and
// evicting the oldest entry if the cache is full.
func (c *Cache[V]) Put(k Key, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := k.slot()
	if _, ok := c.entries[s]; !ok {
		if len(c.order) >= c.size {
			delete(c.entries, c.order[0])
			c.order = c.order[1:]
		}
		c.order = append(c.order, s)
	}
	c.entries[s] = entry[V]{k.Hash, v}
}

// Invalidate removes every version of a document.
func (c *Cache[V]) Invalidate(doc string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range append([]slot(nil), c.order...) {
		if s.doc == doc {
			c.remove(s)
		}
	}
}

func (c *Cache[V]) remove(s slot) {
	delete(c.entries, s)
	for i, o := range c.order {
		if o == s {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Stats returns the lookup counts so far.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{c.hits, c.misses, len(c.entries)}
}

// Parser returns a function that parses documents into items like
// [ast.Parse], reusing the items of documents parsed before. Errors are
// not cached.
func Parser(c *Cache[[]ast.Item]) func(parse.Source, parse.Config) ([]ast.Item, error) {
	return func(src parse.Source, cfg parse.Config) ([]ast.Item, error) {
		k := KeyOf(src.Name, src.Code, cfg.LineOffset)
		if items, ok := c.Get(k); ok {
			logger.Printf("hit %s", src.Name)
			return items, nil
		}
		logger.Printf("miss %s", src.Name)
		items, err := ast.Parse(src, cfg)
		if err != nil {
			return nil, err
		}
		c.Put(k, items)
		return items, nil
	}
}
