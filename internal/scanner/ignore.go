package scanner

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// alwaysExclude is the highest-precedence ignore list: directories the
// scanner never descends into regardless of .gitignore, following
// spec.md §4.2 and the original implementation's own filter_entry list.
var alwaysExclude = map[string]bool{
	".git":         true,
	"node_modules": true,
	"dist":         true,
	"target":       true,
	".ctxengine":   true,
	"__pycache__":  true,
	".next":        true,
	"build":        true,
	".venv":        true,
	"venv":         true,
	".tox":         true,
	"vendor":       true,
	"coverage":     true,
	".cache":       true,
}

// ignoreRule is one compiled line from a .gitignore file.
type ignoreRule struct {
	pattern  string
	negate   bool
	dirOnly  bool
	anchored bool // pattern contains a '/' before the final segment
}

// ignoreSet holds the rules collected while walking a tree, keyed by
// the directory that contributed them. Later (deeper) directories'
// rules take precedence over shallower ones, matching git's semantics
// closely enough for this engine's purposes: exact precedence across
// conflicting negations in unrelated .gitignore files is not attempted.
type ignoreSet struct {
	root  string
	rules map[string][]ignoreRule // dir (relative to root) -> rules declared there
}

func newIgnoreSet(root string) *ignoreSet {
	return &ignoreSet{root: root, rules: make(map[string][]ignoreRule)}
}

// loadGitignore parses a .gitignore file in dir (if present) and
// records its rules against dir's root-relative path.
func (s *ignoreSet) loadGitignore(dir string) {
	data, err := os.Open(filepath.Join(dir, ".gitignore"))
	if err != nil {
		return
	}
	defer data.Close()

	rel, err := filepath.Rel(s.root, dir)
	if err != nil {
		rel = "."
	}
	rel = filepath.ToSlash(rel)

	var rules []ignoreRule
	scan := bufio.NewScanner(data)
	for scan.Scan() {
		line := strings.TrimRight(scan.Text(), " ")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rule := ignoreRule{pattern: line}
		if strings.HasPrefix(rule.pattern, "!") {
			rule.negate = true
			rule.pattern = rule.pattern[1:]
		}
		if strings.HasSuffix(rule.pattern, "/") {
			rule.dirOnly = true
			rule.pattern = strings.TrimSuffix(rule.pattern, "/")
		}
		if strings.Contains(strings.TrimSuffix(rule.pattern, "/"), "/") {
			rule.anchored = true
		}
		rule.pattern = strings.TrimPrefix(rule.pattern, "/")
		rules = append(rules, rule)
	}
	if len(rules) > 0 {
		s.rules[rel] = rules
	}
}

// matches reports whether relPath (forward-slash, root-relative) is
// ignored by any .gitignore rule loaded so far. isDir indicates whether
// the path names a directory, for dir-only (trailing slash) patterns.
func (s *ignoreSet) matches(relPath string, isDir bool) bool {
	base := filepath.Base(relPath)
	ignored := false

	for dir, rules := range s.rules {
		if dir != "." && !strings.HasPrefix(relPath, dir+"/") {
			continue
		}
		scoped := relPath
		if dir != "." {
			scoped = strings.TrimPrefix(relPath, dir+"/")
		}
		for _, r := range rules {
			if r.dirOnly && !isDir {
				continue
			}
			var matched bool
			if r.anchored {
				matched, _ = filepath.Match(r.pattern, scoped)
			} else {
				matched, _ = filepath.Match(r.pattern, base)
			}
			if matched {
				ignored = !r.negate
			}
		}
	}
	return ignored
}

// IsAlwaysExcluded reports whether a directory base name is on the
// engine's hard-coded exclude list.
func IsAlwaysExcluded(baseName string) bool {
	return alwaysExclude[baseName]
}

// isHidden reports whether base names a dotfile/dotdir, excluding "."
// and "..".
func isHidden(base string) bool {
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
