package scanner

import "strings"

// languageByExt maps a lowercased file extension (without the leading
// dot) to its language tag. Supplements spec.md's implicit set with the
// original implementation's full extension table, including
// tracked-only languages that never reach the parser dispatch.
var languageByExt = map[string]string{
	"ts":  "typescript",
	"tsx": "typescript",
	"js":  "javascript",
	"jsx": "javascript",
	"mjs": "javascript",
	"cjs": "javascript",
	"py":  "python",
	"pyw": "python",
	"rs":  "rust",
	"go":  "go",
	"java": "java",
	"c":   "c",
	"h":   "c",
	"cpp": "cpp",
	"cc":  "cpp",
	"cxx": "cpp",
	"hpp": "cpp",
	"hxx": "cpp",
	"rb":  "ruby",
	"php": "php",
	"swift": "swift",
	"kt":  "kotlin",
	"kts": "kotlin",
	"cs":  "csharp",
	"json": "json",
	"yaml": "yaml",
	"yml": "yaml",
	"toml": "toml",
	"md":  "markdown",
	"html": "html",
	"htm": "html",
	"css": "css",
	"scss": "css",
	"sass": "css",
	"less": "css",
	"sql": "sql",
	"sh":  "shell",
	"bash": "shell",
	"zsh": "shell",
}

// parseableLanguages are the languages with a tree-sitter grammar
// wired into internal/parser. Every other classified language is
// tracked-only: line count but no symbols or imports.
var parseableLanguages = map[string]bool{
	"go":         true,
	"typescript": true,
	"javascript": true,
	"python":     true,
	"rust":       true,
}

// DetectLanguage classifies fileName by extension, or by exact name for
// extensionless conventions like Dockerfile. Returns "" if unrecognized.
func DetectLanguage(fileName string) string {
	if strings.EqualFold(fileName, "dockerfile") {
		return "dockerfile"
	}
	ext := strings.TrimPrefix(strings.ToLower(fileNameExt(fileName)), ".")
	if ext == "" {
		return ""
	}
	return languageByExt[ext]
}

// IsParseable reports whether language has a tree-sitter extractor
// rather than the line-count-only stub.
func IsParseable(language string) bool {
	return parseableLanguages[language]
}

func fileNameExt(fileName string) string {
	idx := strings.LastIndexByte(fileName, '.')
	if idx <= 0 {
		return ""
	}
	return fileName[idx:]
}
