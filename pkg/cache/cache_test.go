package cache

import (
	"sync"
	"testing"

	"github.com/fastn-stack/fastn-sub010/pkg/ast"
	"github.com/fastn-stack/fastn-sub010/pkg/eval"
	"github.com/fastn-stack/fastn-sub010/pkg/parse"
)

func TestCache(t *testing.T) {
	c := New[int](2)
	a, b, d := KeyOf("a", "x", 0), KeyOf("b", "x", 0), KeyOf("d", "x", 0)
	if a == KeyOf("a", "x", 1) || a == KeyOf("a", "y", 0) {
		t.Errorf("keys of different versions are equal")
	}
	c.Put(a, 1)
	c.Put(b, 2)
	c.Put(a, 3)
	if v, ok := c.Get(a); v != 3 || !ok {
		t.Errorf("Get(a) -> (%v, %v), want (3, true)", v, ok)
	}
	c.Put(d, 4)
	if _, ok := c.Get(a); ok {
		t.Errorf("oldest entry not evicted")
	}
	if v, ok := c.Get(b); v != 2 || !ok {
		t.Errorf("Get(b) -> (%v, %v), want (2, true)", v, ok)
	}
	c.Invalidate("b")
	if _, ok := c.Get(b); ok {
		t.Errorf("invalidated entry still present")
	}
	if s := c.Stats(); s != (Stats{Hits: 2, Misses: 2, Entries: 1}) {
		t.Errorf("Stats() -> %+v", s)
	}
}

func TestCache_NewVersionReplacesOld(t *testing.T) {
	c := New[int](3)
	lib := KeyOf("lib", "x", 0)
	c.Put(lib, 0)
	for i := 1; i <= 5; i++ {
		root := KeyOf("root", string(rune('a'+i)), 0)
		if _, ok := c.Get(root); ok {
			t.Errorf("version %d of root found before it was added", i)
		}
		c.Put(root, i)
	}
	if v, ok := c.Get(lib); v != 0 || !ok {
		t.Errorf("Get(lib) -> (%v, %v), want (0, true)", v, ok)
	}
	if s := c.Stats(); s.Entries != 2 {
		t.Errorf("Stats() -> %+v, want 2 entries", s)
	}

	// A lookup with a changed hash discards the held version.
	if _, ok := c.Get(KeyOf("lib", "y", 0)); ok {
		t.Errorf("Get found lib with another content")
	}
	if _, ok := c.Get(lib); ok {
		t.Errorf("stale version of lib kept after a mismatch")
	}
	if s := c.Stats(); s.Entries != 1 {
		t.Errorf("Stats() -> %+v, want 1 entry", s)
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := New[int](0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k := KeyOf(string(rune('a'+i)), "x", 0)
			c.Put(k, i)
			c.Get(k)
		}(i)
	}
	wg.Wait()
	if s := c.Stats(); s.Entries != 8 || s.Hits != 8 {
		t.Errorf("Stats() -> %+v", s)
	}
}

func TestParser(t *testing.T) {
	c := New[[]ast.Item](0)
	p := Parser(c)
	src := parse.Source{Name: "d", Code: "-- string x: hello\n"}
	first, err := p(src, parse.Config{})
	if err != nil {
		t.Fatal(err)
	}
	second, _ := p(src, parse.Config{})
	if len(first) != 1 || &first[0] != &second[0] {
		t.Errorf("second parse did not reuse the items")
	}
	if _, err := p(parse.Source{Name: "bad", Code: "-- x\n"}, parse.Config{}); err == nil {
		t.Errorf("no error for bad source")
	}
	if s := c.Stats(); s.Hits != 1 || s.Entries != 1 {
		t.Errorf("Stats() -> %+v", s)
	}
}

func TestParser_SharedBetweenInterpretations(t *testing.T) {
	c := New[[]ast.Item](0)
	cfg := eval.Config{Parse: Parser(c)}
	lib := eval.ImportedDocument{Source: "-- string greeting: hi\n"}
	for i := 0; i < 3; i++ {
		step, err := eval.Interpret("index", "-- import: lib\n\n-- string x: $lib.greeting\n", cfg)
		for err == nil {
			if imp, ok := step.(*eval.NeedsImport); ok {
				step, err = imp.Resume(lib)
				continue
			}
			break
		}
		done, ok := step.(*eval.Done)
		if err != nil || !ok {
			t.Fatalf("got (%v, %v)", step, err)
		}
		if v, _ := done.Document.Value("x"); v != "hi" {
			t.Errorf("x = %v, want hi", v)
		}
	}
	if s := c.Stats(); s.Hits != 4 || s.Misses != 2 {
		t.Errorf("Stats() -> %+v, want 4 hits and 2 misses", s)
	}
}
