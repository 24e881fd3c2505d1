//go:build cgo

package parser

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

func init() {
	dispatch[string(Go)] = treeSitterParser{lang: Go}
	dispatch[string(TypeScript)] = treeSitterParser{lang: TypeScript}
	dispatch[string(JavaScript)] = treeSitterParser{lang: JavaScript}
	dispatch[string(Python)] = treeSitterParser{lang: Python}
	dispatch[string(Rust)] = treeSitterParser{lang: Rust}
}

// treeSitterParser drives a grammar from github.com/smacker/go-tree-sitter,
// one parse per call: find declaration nodes by type, extract a name
// and a normalized single-line signature, then walk import-like nodes
// for raw dependency references.
type treeSitterParser struct {
	lang Language
}

func (p treeSitterParser) Parse(ctx context.Context, path string, src []byte) (Result, error) {
	tsLang, err := grammarFor(p.lang)
	if err != nil {
		return Result{LineCount: countLines(src)}, err
	}

	ts := sitter.NewParser()
	ts.SetLanguage(tsLang)
	tree, err := ts.ParseCtx(ctx, nil, src)
	if err != nil {
		// A wholly unparseable file still yields a valid line count,
		// per spec.md §4.3's extraction-failure tolerance.
		return Result{LineCount: countLines(src)}, nil
	}
	root := tree.RootNode()

	var symbols []Symbol
	for _, fn := range findNodes(root, functionNodeTypes(p.lang)) {
		if sym, ok := extractFunction(fn, src, p.lang, ""); ok {
			symbols = append(symbols, sym)
		}
	}
	for _, cls := range findNodes(root, classNodeTypes(p.lang)) {
		sym, ok := extractClass(cls, src, p.lang)
		if !ok {
			continue
		}
		symbols = append(symbols, sym)
		for _, m := range findNodes(cls, methodNodeTypes(p.lang)) {
			if methodSym, ok := extractFunction(m, src, p.lang, sym.Name); ok {
				symbols = append(symbols, methodSym)
			}
		}
	}

	imports := extractImports(root, src, p.lang)

	return Result{Symbols: symbols, Imports: imports, LineCount: countLines(src)}, nil
}

func grammarFor(lang Language) (*sitter.Language, error) {
	switch lang {
	case Go:
		return golang.GetLanguage(), nil
	case TypeScript:
		return typescript.GetLanguage(), nil
	case JavaScript:
		return javascript.GetLanguage(), nil
	case Python:
		return python.GetLanguage(), nil
	case Rust:
		return rust.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language for tree-sitter: %s", lang)
	}
}

func functionNodeTypes(lang Language) []string {
	switch lang {
	case Go:
		return []string{"function_declaration", "method_declaration"}
	case TypeScript, JavaScript:
		return []string{"function_declaration", "function_expression", "arrow_function", "generator_function_declaration"}
	case Python:
		return []string{"function_definition"}
	case Rust:
		return []string{"function_item"}
	}
	return nil
}

func classNodeTypes(lang Language) []string {
	switch lang {
	case Go:
		return []string{"type_declaration"}
	case TypeScript, JavaScript:
		return []string{"class_declaration", "interface_declaration"}
	case Python:
		return []string{"class_definition"}
	case Rust:
		return []string{"struct_item", "enum_item", "trait_item", "impl_item"}
	}
	return nil
}

func methodNodeTypes(lang Language) []string {
	switch lang {
	case TypeScript, JavaScript:
		return []string{"method_definition"}
	case Python:
		return []string{"function_definition"}
	case Rust:
		return []string{"function_item"}
	}
	return nil
}

func extractFunction(node *sitter.Node, src []byte, lang Language, container string) (Symbol, bool) {
	name := nodeName(node, src, lang)
	if name == "" {
		return Symbol{}, false
	}
	kind := "function"
	if container != "" || node.Type() == "method_declaration" || node.Type() == "method_definition" {
		kind = "method"
	}
	return Symbol{
		Name:      name,
		Kind:      kind,
		Signature: functionSignature(node, src, lang),
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		Container: container,
	}, true
}

func extractClass(node *sitter.Node, src []byte, lang Language) (Symbol, bool) {
	name := typeName(node, src, lang)
	if name == "" {
		return Symbol{}, false
	}
	return Symbol{
		Name:      name,
		Kind:      typeKind(node, lang),
		Signature: classSignature(node, src, lang),
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
	}, true
}

// functionSignature builds the normalized one-line signature for a
// function/method node. Languages whose declaration body is delimited
// by a brace (Go, TypeScript, JavaScript, Rust) can take the header as
// everything up to that brace; Python's header has no such delimiter
// (it ends in ':' and the body is indentation-based, and a dict
// literal default value could contain its own '{'), so its signature
// is instead built from the name/parameters/return_type child nodes
// directly, mirroring original_source's extract_python_function.
func functionSignature(node *sitter.Node, src []byte, lang Language) string {
	if lang == Python {
		return pythonFunctionSignature(node, src)
	}
	return headerUpTo(src[node.StartByte():node.EndByte()], "{")
}

// classSignature is functionSignature's counterpart for
// class/struct/interface-like nodes.
func classSignature(node *sitter.Node, src []byte, lang Language) string {
	if lang == Python {
		return pythonClassSignature(node, src)
	}
	return headerUpTo(src[node.StartByte():node.EndByte()], "{")
}

func pythonFunctionSignature(node *sitter.Node, src []byte) string {
	name := ""
	if n := node.ChildByFieldName("name"); n != nil {
		name = string(src[n.StartByte():n.EndByte()])
	}
	params := "()"
	if n := node.ChildByFieldName("parameters"); n != nil {
		params = string(src[n.StartByte():n.EndByte()])
	}
	ret := ""
	if n := node.ChildByFieldName("return_type"); n != nil {
		ret = " -> " + string(src[n.StartByte():n.EndByte()])
	}
	return normalizeSignature(fmt.Sprintf("def %s%s%s", name, params, ret))
}

func pythonClassSignature(node *sitter.Node, src []byte) string {
	name := ""
	if n := node.ChildByFieldName("name"); n != nil {
		name = string(src[n.StartByte():n.EndByte()])
	}
	if n := node.ChildByFieldName("superclasses"); n != nil {
		return normalizeSignature(fmt.Sprintf("class %s%s", name, string(src[n.StartByte():n.EndByte()])))
	}
	return normalizeSignature(fmt.Sprintf("class %s", name))
}

func nodeName(node *sitter.Node, src []byte, lang Language) string {
	if n := node.ChildByFieldName("name"); n != nil {
		return string(src[n.StartByte():n.EndByte()])
	}
	if lang == Go {
		for i := 0; i < int(node.ChildCount()); i++ {
			if c := node.Child(i); c != nil && c.Type() == "identifier" {
				return string(src[c.StartByte():c.EndByte()])
			}
		}
	}
	switch node.Type() {
	case "arrow_function", "function_expression":
		return "<anonymous>"
	}
	return ""
}

func typeName(node *sitter.Node, src []byte, lang Language) string {
	if lang == Go {
		for i := 0; i < int(node.ChildCount()); i++ {
			if c := node.Child(i); c != nil && c.Type() == "type_spec" {
				if n := c.ChildByFieldName("name"); n != nil {
					return string(src[n.StartByte():n.EndByte()])
				}
			}
		}
		return ""
	}
	if n := node.ChildByFieldName("name"); n != nil {
		return string(src[n.StartByte():n.EndByte()])
	}
	if lang == Rust && node.Type() == "impl_item" {
		for i := 0; i < int(node.ChildCount()); i++ {
			if c := node.Child(i); c != nil && c.Type() == "type_identifier" {
				return string(src[c.StartByte():c.EndByte()])
			}
		}
	}
	return ""
}

func typeKind(node *sitter.Node, lang Language) string {
	switch lang {
	case Go:
		return "type"
	case TypeScript, JavaScript:
		if node.Type() == "interface_declaration" {
			return "interface"
		}
		return "class"
	case Python:
		return "class"
	case Rust:
		switch node.Type() {
		case "struct_item":
			return "struct"
		case "enum_item":
			return "enum"
		case "trait_item":
			return "trait"
		case "impl_item":
			return "impl"
		}
	}
	return "type"
}

// importNodeTypes returns the statement-level node types that carry a
// raw import/use reference for lang.
func importNodeTypes(lang Language) []string {
	switch lang {
	case Go:
		return []string{"import_spec"}
	case TypeScript, JavaScript:
		return []string{"import_statement"}
	case Python:
		return []string{"import_statement", "import_from_statement"}
	case Rust:
		return []string{"use_declaration"}
	}
	return nil
}

func extractImports(root *sitter.Node, src []byte, lang Language) []RawImport {
	var imports []RawImport
	for _, node := range findNodes(root, importNodeTypes(lang)) {
		switch lang {
		case Go:
			if path, ok := quotedLiteral(node, src); ok {
				imports = append(imports, RawImport{Raw: path, Kind: "import"})
			}
		case TypeScript, JavaScript:
			if n := node.ChildByFieldName("source"); n != nil {
				imports = append(imports, RawImport{Raw: unquote(string(src[n.StartByte():n.EndByte()])), Kind: "import"})
			}
		case Python:
			if n := node.ChildByFieldName("module_name"); n != nil {
				imports = append(imports, RawImport{Raw: string(src[n.StartByte():n.EndByte()]), Kind: "import"})
			} else {
				for i := 0; i < int(node.ChildCount()); i++ {
					if c := node.Child(i); c != nil && (c.Type() == "dotted_name" || c.Type() == "identifier") {
						imports = append(imports, RawImport{Raw: string(src[c.StartByte():c.EndByte()]), Kind: "import"})
					}
				}
			}
		case Rust:
			imports = append(imports, RawImport{Raw: strings.TrimSuffix(normalizeSignature(string(src[node.StartByte():node.EndByte()])), ";"), Kind: "use"})
		}
	}
	return imports
}

func quotedLiteral(node *sitter.Node, src []byte) (string, bool) {
	for i := 0; i < int(node.ChildCount()); i++ {
		if c := node.Child(i); c != nil && c.Type() == "interpreted_string_literal" {
			return unquote(string(src[c.StartByte():c.EndByte()])), true
		}
	}
	return "", false
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// findNodes walks node and its descendants, collecting every node
// whose type is in types. No recursion-depth limit: AST depth is
// bounded by source file size, not by anything adversarial.
func findNodes(node *sitter.Node, types []string) []*sitter.Node {
	if node == nil || len(types) == 0 {
		return nil
	}
	var out []*sitter.Node
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		for _, t := range types {
			if n.Type() == t {
				out = append(out, n)
				break
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return out
}
