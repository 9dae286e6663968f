package cache

import (
	"path/filepath"
	"testing"
)

func openTestCache(t *testing.T, fuzzyThreshold float64) *Cache {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	c, err := Open(dbPath, fuzzyThreshold, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestHashTextDeterministic(t *testing.T) {
	tests := []string{"", "Hello", "日本語テスト"}
	for _, s := range tests {
		h1 := hashText(s)
		h2 := hashText(s)
		if len(h1) != 64 {
			t.Errorf("hashText(%q) len = %d, want 64", s, len(h1))
		}
		if h1 != h2 {
			t.Errorf("hashText(%q) not deterministic", s)
		}
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected float64
		delta    float64
	}{
		{"identical", "hello world", "hello world", 1.0, 0.01},
		{"case insensitive", "Hello World", "hello world", 1.0, 0.01},
		{"one char diff", "hello", "hallo", 0.8, 0.1},
		{"empty strings", "", "", 1.0, 0.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := similarity(tt.a, tt.b)
			if got < tt.expected-tt.delta || got > tt.expected+tt.delta {
				t.Errorf("similarity(%q, %q) = %f, want ~%f", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestStoreAndLookupExactMatch(t *testing.T) {
	c := openTestCache(t, 0)

	c.Store("こんにちは", "Yuki", "你好", "雪")

	target, targetSpeaker, ok := c.Lookup("こんにちは", "Yuki")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if target != "你好" || targetSpeaker != "雪" {
		t.Errorf("got target=%q targetSpeaker=%q", target, targetSpeaker)
	}

	if _, _, ok := c.Lookup("こんにちは", "different-speaker"); ok {
		t.Error("expected miss for different speaker key")
	}
}

func TestStoreOverwritesExistingEntry(t *testing.T) {
	c := openTestCache(t, 0)

	c.Store("AB", "", "first", "")
	c.Store("AB", "", "second", "")

	target, _, ok := c.Lookup("AB", "")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if target != "second" {
		t.Errorf("got %q, want %q", target, "second")
	}
}

func TestLookupMissWithoutFuzzyDisabled(t *testing.T) {
	c := openTestCache(t, 0)
	c.Store("おはよう", "", "早安", "")

	if _, _, ok := c.Lookup("おはよー", ""); ok {
		t.Error("expected miss: fuzzy matching disabled (threshold 0)")
	}
}

func TestLookupFuzzyMatchAboveThreshold(t *testing.T) {
	c := openTestCache(t, 0.8)
	c.Store("Hello, how are you today?", "", "你今天好吗？", "")

	target, _, ok := c.Lookup("Hello, how are you today", "")
	if !ok {
		t.Fatal("expected fuzzy match above threshold")
	}
	if target != "你今天好吗？" {
		t.Errorf("got %q", target)
	}

	if _, _, ok := c.Lookup("Goodbye, see you later", ""); ok {
		t.Error("expected miss for dissimilar text")
	}
}
