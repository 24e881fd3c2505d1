//go:build !cgo

package parser

// Without cgo, github.com/smacker/go-tree-sitter's C grammars can't be
// built, so every language falls back to the line-count-only stub: no
// registration happens here and Dispatch's default takes over.
