package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
	}

	if err := c.Set(ctx, "k1", &payload{Name: "Skyline"}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got payload
	if err := c.Get(ctx, "k1", &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "Skyline" {
		t.Errorf("Name = %q, want Skyline", got.Name)
	}

	exists, err := c.Exists(ctx, "k1")
	if err != nil || !exists {
		t.Errorf("Exists() = %v, %v, want true", exists, err)
	}

	if err := c.Del(ctx, "k1"); err != nil {
		t.Fatalf("Del() error = %v", err)
	}
	if err := c.Get(ctx, "k1", &got); err == nil {
		t.Error("Get() after Del error = nil, want miss")
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if err := c.Set(ctx, "k1", "v", -time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got string
	if err := c.Get(ctx, "k1", &got); err == nil {
		t.Error("Get() expired key error = nil, want miss")
	}
	if exists, _ := c.Exists(ctx, "k1"); exists {
		t.Error("Exists() expired key = true, want false")
	}
}

func TestNullCache(t *testing.T) {
	c := NewNullCache()
	ctx := context.Background()

	if err := c.Set(ctx, "k1", "v", time.Minute); err != nil {
		t.Errorf("Set() error = %v, want nil", err)
	}
	var got string
	if err := c.Get(ctx, "k1", &got); err == nil {
		t.Error("Get() error = nil, want miss (cache disabled)")
	}
	if exists, _ := c.Exists(ctx, "k1"); exists {
		t.Error("Exists() = true, want false")
	}
}
