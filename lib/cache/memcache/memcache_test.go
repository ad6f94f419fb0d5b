package memcache

import (
	"bytes"
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New(nil)
	defer c.Close()

	if err := c.Set("k", []byte("v1"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, ok, err := c.Get("k")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(value, []byte("v1")) {
		t.Errorf("expected value v1, got %s", value)
	}

	if _, ok, _ := c.Get("missing"); ok {
		t.Errorf("expected miss for unknown key")
	}
}

func TestOverwrite(t *testing.T) {
	c := New(nil)
	defer c.Close()

	c.Set("k", []byte("old"), time.Minute)
	c.Set("k", []byte("new"), time.Minute)

	value, ok, _ := c.Get("k")
	if !ok || !bytes.Equal(value, []byte("new")) {
		t.Errorf("expected overwritten value, got ok=%v value=%s", ok, value)
	}
}

func TestTTLExpiry(t *testing.T) {
	c := New(nil)
	defer c.Close()

	c.Set("k", []byte("v"), 20*time.Millisecond)

	if _, ok, _ := c.Get("k"); !ok {
		t.Fatalf("expected hit before expiry")
	}

	time.Sleep(30 * time.Millisecond)
	if _, ok, _ := c.Get("k"); ok {
		t.Errorf("expected miss after TTL elapsed")
	}
}

func TestDelete(t *testing.T) {
	c := New(nil)
	defer c.Close()

	c.Set("k", []byte("v"), time.Minute)
	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := c.Get("k"); ok {
		t.Errorf("expected miss after delete")
	}

	// deleting a missing key is fine
	if err := c.Delete("missing"); err != nil {
		t.Errorf("deleting a missing key must not fail: %v", err)
	}
}

func TestValueIsolation(t *testing.T) {
	c := New(nil)
	defer c.Close()

	original := []byte("immutable")
	c.Set("k", original, 0)
	original[0] = 'X'

	value, _, _ := c.Get("k")
	if !bytes.Equal(value, []byte("immutable")) {
		t.Errorf("cached value was mutated through the caller's slice: %s", value)
	}

	value[0] = 'Y'
	again, _, _ := c.Get("k")
	if !bytes.Equal(again, []byte("immutable")) {
		t.Errorf("cached value was mutated through a returned slice: %s", again)
	}
}

func TestJanitorReclaims(t *testing.T) {
	c := New(&Options{JanitorInterval: 10 * time.Millisecond}).(*memCacheImpl)
	defer c.Close()

	for i := 0; i < 10; i++ {
		c.Set(string(rune('a'+i)), []byte("v"), 15*time.Millisecond)
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.data.Size() > 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if n := c.data.Size(); n != 0 {
		t.Errorf("expected janitor to reclaim expired entries, %d remain", n)
	}
}
