package utils

import (
	"errors"
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := GetCache()
	c.Set("test:key", "value", time.Minute)

	if got := c.Get("test:key"); got != "value" {
		t.Errorf("Expected value, got %v", got)
	}

	c.Delete("test:key")
	if got := c.Get("test:key"); got != nil {
		t.Errorf("Expected nil after delete, got %v", got)
	}
}

func TestCacheExpiry(t *testing.T) {
	c := GetCache()
	c.Set("test:expiry", "value", 20*time.Millisecond)

	if got := c.Get("test:expiry"); got != "value" {
		t.Fatalf("Expected value before expiry, got %v", got)
	}

	time.Sleep(30 * time.Millisecond)
	if got := c.Get("test:expiry"); got != nil {
		t.Errorf("Expected nil after expiry, got %v", got)
	}
}

func TestCacheGetOrLoad(t *testing.T) {
	c := GetCache()
	c.Delete("test:load")

	loads := 0
	load := func() (interface{}, error) {
		loads++
		return "loaded", nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad("test:load", time.Minute, load)
		if err != nil {
			t.Fatalf("GetOrLoad failed: %v", err)
		}
		if v != "loaded" {
			t.Errorf("Expected loaded, got %v", v)
		}
	}
	if loads != 1 {
		t.Errorf("Expected exactly 1 load, got %d", loads)
	}
	c.Delete("test:load")
}

func TestCacheGetOrLoadError(t *testing.T) {
	c := GetCache()
	c.Delete("test:loaderr")

	wantErr := errors.New("upstream down")
	_, err := c.GetOrLoad("test:loaderr", time.Minute, func() (interface{}, error) {
		return nil, wantErr
	})
	if err != wantErr {
		t.Fatalf("Expected load error, got %v", err)
	}

	// 失败结果不缓存
	if got := c.Get("test:loaderr"); got != nil {
		t.Errorf("Expected error result not cached, got %v", got)
	}
}
