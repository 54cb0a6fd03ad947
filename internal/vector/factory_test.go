package vector

import (
	"context"
	"path/filepath"
	"testing"
)

func TestNew_Memory(t *testing.T) {
	store, err := New(context.Background(), Config{Provider: "memory", Dimensions: 3})
	if err != nil {
		t.Fatalf("New(memory): %v", err)
	}
	defer store.Close()
	if store.Dimensions() != 3 {
		t.Errorf("Dimensions=%d, want 3", store.Dimensions())
	}
}

func TestNew_EmptyDefaultsToMemory(t *testing.T) {
	store, err := New(context.Background(), Config{Dimensions: 3})
	if err != nil {
		t.Fatalf("New(''): %v", err)
	}
	defer store.Close()
	if _, ok := store.(*MemoryStore); !ok {
		t.Errorf("expected *MemoryStore, got %T", store)
	}
}

func TestNew_SQLite(t *testing.T) {
	store, err := New(context.Background(), Config{Provider: "sqlite", Dimensions: 3, Path: filepath.Join(t.TempDir(), "v.db")})
	if err != nil {
		t.Fatalf("New(sqlite): %v", err)
	}
	defer store.Close()
	if _, ok := store.(*SQLiteStore); !ok {
		t.Errorf("expected *SQLiteStore, got %T", store)
	}
}

func TestNew_Unknown(t *testing.T) {
	if _, err := New(context.Background(), Config{Provider: "faiss", Dimensions: 3}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNew_PineconeNeedsHost(t *testing.T) {
	if _, err := New(context.Background(), Config{Provider: "pinecone", Dimensions: 3, APIKey: "k"}); err == nil {
		t.Error("expected error without index host")
	}
}
