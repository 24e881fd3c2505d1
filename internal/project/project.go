// Package project identifies a tracked project by the canonical form of
// its root path.
package project

import (
	"encoding/hex"
	"path/filepath"

	"golang.org/x/crypto/blake2b"
)

// Project identifies a directory being indexed.
type Project struct {
	Root          string // as given by the caller
	CanonicalRoot string // absolute, symlink-resolved
	Hash          string // BLAKE2b-256 hex of CanonicalRoot, the data-dir key
}

// Load resolves root to its canonical form and computes its project hash.
func Load(root string) (*Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// A project root that doesn't exist yet (init on a fresh
		// directory the caller is about to create) still needs a
		// stable identity; fall back to the absolute path.
		canonical = abs
	}

	sum := blake2b.Sum256([]byte(canonical))
	return &Project{
		Root:          root,
		CanonicalRoot: canonical,
		Hash:          hex.EncodeToString(sum[:]),
	}, nil
}
