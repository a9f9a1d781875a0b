package cache

import (
	"fmt"
	"sync"
	"testing"
)

func TestGetSet(t *testing.T) {
	c := New()

	if _, ok := c.Get("k"); ok {
		t.Error("empty map should miss")
	}
	if got := c.Set("k", 1); got != 1 {
		t.Errorf("Set returned %v", got)
	}
	if v, ok := c.Get("k"); !ok || v != 1 {
		t.Errorf("Get = %v, %v", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestSetFirstWriterWins(t *testing.T) {
	c := New()
	c.Set("k", "first")
	if got := c.Set("k", "second"); got != "first" {
		t.Errorf("Set returned %v, want the original entry", got)
	}
	if v, _ := c.Get("k"); v != "first" {
		t.Errorf("Get = %v, want the original entry", v)
	}
}

func TestGetOrCompute(t *testing.T) {
	c := New()
	calls := 0
	compute := func() (any, error) {
		calls++
		return "v", nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute("k", compute)
		if err != nil {
			t.Fatal(err)
		}
		if v != "v" {
			t.Errorf("GetOrCompute = %v", v)
		}
	}
	if calls != 1 {
		t.Errorf("compute ran %d times, want 1", calls)
	}
}

func TestGetOrComputeErrorNotCached(t *testing.T) {
	c := New()
	fail := true
	compute := func() (any, error) {
		if fail {
			return nil, fmt.Errorf("transient")
		}
		return "v", nil
	}

	if _, err := c.GetOrCompute("k", compute); err == nil {
		t.Fatal("first call should fail")
	}
	if c.Len() != 0 {
		t.Error("a failed computation must leave no entry")
	}

	fail = false
	v, err := c.GetOrCompute("k", compute)
	if err != nil || v != "v" {
		t.Errorf("retry = %v, %v", v, err)
	}
}

func TestConcurrentComputeOneArtifact(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	results := make([]any, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrCompute("k", func() (any, error) {
				return new(int), nil
			})
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = v
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Fatal("all callers must observe the same artifact")
		}
	}
}
