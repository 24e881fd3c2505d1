// Package parser dispatches per-language symbol and import extraction.
// Fully supported languages are backed by tree-sitter grammars (build
// tag cgo); every other classified language gets a line-count-only
// stub, and the whole package falls back to that stub when built
// without cgo.
package parser

import "context"

// Language identifies one of the tree-sitter-backed grammars.
type Language string

const (
	Go         Language = "go"
	TypeScript Language = "typescript"
	JavaScript Language = "javascript"
	Python     Language = "python"
	Rust       Language = "rust"
)

// Symbol is one extracted declaration.
type Symbol struct {
	Name      string
	Kind      string // function, method, class, struct, enum, interface, type, trait, module, impl, decorator, constant, variable
	Signature string // single-line normalized declaration header
	StartLine int    // 1-indexed
	EndLine   int    // 1-indexed, inclusive
	Container string // enclosing class/struct/impl name, "" for top-level
}

// RawImport is an unresolved import reference exactly as it appears in
// source, with no path resolution performed at this stage.
type RawImport struct {
	Raw  string
	Kind string // "import", "require", "use" — defaults to "import" when a parser can't distinguish
}

// Result is the output of parsing one file.
type Result struct {
	Symbols   []Symbol
	Imports   []RawImport
	LineCount int
}

// Parser extracts symbols and imports from one file's source bytes.
type Parser interface {
	Parse(ctx context.Context, path string, src []byte) (Result, error)
}

// dispatch maps a language tag (as produced by internal/scanner) to a
// Parser. Populated by init() in treesitter.go (cgo builds only);
// stub.go registers nothing, so without cgo the map stays empty.
var dispatch = map[string]Parser{}

// Dispatch returns the Parser registered for language, or the
// line-count-only stub if none is registered (tracked-only languages,
// or every language when built without cgo).
func Dispatch(language string) Parser {
	if p, ok := dispatch[language]; ok {
		return p
	}
	return lineCountOnly{}
}

// lineCountOnly is the fallback Parser for languages with no symbol
// extractor: it yields the line count spec.md §4.3 guarantees even for
// a wholly unparseable or unsupported file, with zero symbols and zero
// imports.
type lineCountOnly struct{}

func (lineCountOnly) Parse(_ context.Context, _ string, src []byte) (Result, error) {
	return Result{LineCount: countLines(src)}, nil
}

func countLines(src []byte) int {
	if len(src) == 0 {
		return 0
	}
	count := 1
	for _, b := range src {
		if b == '\n' {
			count++
		}
	}
	if src[len(src)-1] == '\n' {
		count--
	}
	return count
}
