package project

import (
	"os"
	"testing"
)

func TestLoad_SamePathSameHash(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "ctxengine-project-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tempDir) })

	p1, err := Load(tempDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	p2, err := Load(tempDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p1.Hash != p2.Hash {
		t.Errorf("expected same hash for same path, got %s != %s", p1.Hash, p2.Hash)
	}
	if len(p1.Hash) != 64 {
		t.Errorf("expected 64 hex chars (blake2b-256), got %d: %s", len(p1.Hash), p1.Hash)
	}
}

func TestLoad_DifferentPathsDifferentHashes(t *testing.T) {
	tempDir1, err := os.MkdirTemp("", "ctxengine-project-test-a-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tempDir1) })

	tempDir2, err := os.MkdirTemp("", "ctxengine-project-test-b-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tempDir2) })

	p1, err := Load(tempDir1)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	p2, err := Load(tempDir2)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p1.Hash == p2.Hash {
		t.Errorf("expected different hashes for different paths, both got %s", p1.Hash)
	}
}
