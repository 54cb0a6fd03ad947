package embedding

import (
	"testing"
)

func TestCache_GetSet(t *testing.T) {
	c, err := NewCache(2)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := c.Get("m", "a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("m", "a", []float32{1, 2, 3})
	v, ok := c.Get("m", "a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("m", "b", []float32{4, 5})
	c.Set("m", "c", []float32{6}) // evicts a
	if _, ok := c.Get("m", "a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("m", "b"); !ok {
		t.Error("expected b to remain")
	}
	if c.Len() != 2 {
		t.Errorf("Len=%d", c.Len())
	}
}

func TestCache_KeyedByModel(t *testing.T) {
	c, _ := NewCache(4)
	c.Set("small", "soup", []float32{1})
	if _, ok := c.Get("large", "soup"); ok {
		t.Error("different models should not share entries")
	}
}

func TestCache_ReturnsCopies(t *testing.T) {
	c, _ := NewCache(1)
	in := []float32{1, 2}
	c.Set("m", "x", in)
	in[0] = 9
	out, _ := c.Get("m", "x")
	if out[0] != 1 {
		t.Error("cache should copy on Set")
	}
	out[1] = 9
	again, _ := c.Get("m", "x")
	if again[1] != 2 {
		t.Error("cache should copy on Get")
	}
}

func TestNewCache_InvalidSize(t *testing.T) {
	if _, err := NewCache(0); err == nil {
		t.Error("expected error for zero size")
	}
}
