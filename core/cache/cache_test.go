package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/FocuswithJustin/Linegra/core/gedcom"
)

func TestLRUCache_BasicOperations(t *testing.T) {
	cache := NewLRUCache[string, int](Config{MaxSize: 3})

	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Put("c", 3)

	if v, ok := cache.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if v, ok := cache.Get("b"); !ok || v != 2 {
		t.Errorf("Get(b) = %d, %v; want 2, true", v, ok)
	}
	if _, ok := cache.Get("d"); ok {
		t.Error("Get(d) should return false")
	}
	if n := cache.Len(); n != 3 {
		t.Errorf("Len() = %d; want 3", n)
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	cache := NewLRUCache[string, int](Config{MaxSize: 2})

	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Put("c", 3) // evicts "a"

	if _, ok := cache.Get("a"); ok {
		t.Error("Get(a) should return false after eviction")
	}

	cache.Get("b")    // "b" is now most recent
	cache.Put("d", 4) // evicts "c"

	if _, ok := cache.Get("c"); ok {
		t.Error("Get(c) should return false after eviction")
	}
	if v, ok := cache.Get("b"); !ok || v != 2 {
		t.Errorf("Get(b) = %d, %v; want 2, true", v, ok)
	}
	if got := cache.Stats().Evictions; got != 2 {
		t.Errorf("Evictions = %d; want 2", got)
	}
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	cache := NewLRUCache[string, int](Config{MaxSize: 2})
	cache.Put("a", 1)
	cache.Put("a", 10)

	if v, _ := cache.Get("a"); v != 10 {
		t.Errorf("Get(a) = %d; want 10", v)
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d; want 1", cache.Len())
	}
}

func TestLRUCache_RemoveAndClear(t *testing.T) {
	var evicted []string
	cache := NewLRUCache[string, int](Config{
		MaxSize: 5,
		OnEvict: func(key, value interface{}) { evicted = append(evicted, key.(string)) },
	})
	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Put("c", 3)

	cache.Remove("b")
	if _, ok := cache.Get("b"); ok {
		t.Error("Get(b) should return false after Remove")
	}
	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Len() after Clear = %d; want 0", cache.Len())
	}
	if len(evicted) != 3 {
		t.Errorf("OnEvict called %d times; want 3", len(evicted))
	}
}

func TestLRUCache_TTL(t *testing.T) {
	cache := NewLRUCache[string, int](Config{MaxSize: 10, TTL: 20 * time.Millisecond})
	cache.Put("a", 1)

	if _, ok := cache.Get("a"); !ok {
		t.Fatal("Get(a) should hit before expiry")
	}
	time.Sleep(60 * time.Millisecond)
	if _, ok := cache.Get("a"); ok {
		t.Error("Get(a) should miss after expiry")
	}
}

func TestLRUCache_Stats(t *testing.T) {
	cache := NewLRUCache[string, int](Config{MaxSize: 4})
	cache.Put("a", 1)
	cache.Get("a")
	cache.Get("a")
	cache.Get("missing")

	s := cache.Stats()
	if s.Hits != 2 || s.Misses != 1 {
		t.Errorf("Stats hits/misses = %d/%d; want 2/1", s.Hits, s.Misses)
	}
	if s.Size != 1 || s.MaxSize != 4 {
		t.Errorf("Stats size/max = %d/%d; want 1/4", s.Size, s.MaxSize)
	}
}

func TestLRUCache_DefaultSize(t *testing.T) {
	cache := NewLRUCache[int, int](Config{})
	if got := cache.Stats().MaxSize; got != DefaultConfig().MaxSize {
		t.Errorf("MaxSize = %d; want %d", got, DefaultConfig().MaxSize)
	}
}

func TestLRUCache_Concurrent(t *testing.T) {
	cache := NewLRUCache[int, int](Config{MaxSize: 50})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				cache.Put(g*1000+i, i)
				cache.Get(g*1000 + i)
			}
		}(g)
	}
	wg.Wait()
	if cache.Len() > 50 {
		t.Errorf("Len() = %d; want <= 50", cache.Len())
	}
}

func TestResultCache(t *testing.T) {
	rc := NewDefaultResultCache()
	if got := rc.Stats().MaxSize; got != 32 {
		t.Errorf("MaxSize = %d; want 32", got)
	}

	result := gedcom.Parse("0 @I1@ INDI\n1 NAME John /Smith/\n")
	rc.Put("b3", result)

	got, ok := rc.Get("b3")
	if !ok || got != result {
		t.Fatal("Get(b3) should return the stored result")
	}
	if rc.Len() != 1 {
		t.Errorf("Len() = %d; want 1", rc.Len())
	}
	rc.Remove("b3")
	if _, ok := rc.Get("b3"); ok {
		t.Error("Get(b3) should miss after Remove")
	}

	for i := 0; i < 40; i++ {
		rc.Put(fmt.Sprintf("k%d", i), result)
	}
	if rc.Len() != 32 {
		t.Errorf("Len() = %d; want 32", rc.Len())
	}
	rc.Clear()
	if rc.Len() != 0 {
		t.Errorf("Len() after Clear = %d; want 0", rc.Len())
	}
}
