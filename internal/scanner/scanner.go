// Package scanner walks a project tree, honoring ignore rules, and
// yields candidate source files classified by language with a
// content hash for change detection.
package scanner

import (
	"encoding/hex"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"

	"ctxengine/internal/errors"
	"ctxengine/internal/logging"
)

// ScannedFile is one accepted candidate file.
type ScannedFile struct {
	RelPath   string // forward-slash, project-root-relative
	Language  string
	SizeBytes int64
	Hash      string // hex BLAKE2b-256 of file bytes
	Content   []byte
	LineCount int
}

// Options controls scan behavior.
type Options struct {
	ExtraIgnore      []string // additional gitignore-style patterns, applied project-wide
	MaxFileSizeBytes int64    // files larger than this are skipped
}

// Scan walks root and returns every accepted file, content read and
// hashed. Per-file read errors are skipped (recorded via logger) rather
// than aborting the walk, per spec.md §7's Io recovery policy.
func Scan(root string, opts Options, logger *logging.Logger) ([]ScannedFile, error) {
	ignores := newIgnoreSet(root)
	ignores.loadGitignore(root)
	if len(opts.ExtraIgnore) > 0 {
		extra := make([]ignoreRule, 0, len(opts.ExtraIgnore))
		for _, p := range opts.ExtraIgnore {
			extra = append(extra, ignoreRule{pattern: p})
		}
		ignores.rules["."] = append(ignores.rules["."], extra...)
	}

	var files []ScannedFile

	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			logger.Warn("scan: unreadable path", map[string]interface{}{"path": path, "error": err.Error()})
			return nil
		}
		if path == root {
			return nil
		}

		base := d.Name()
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if IsAlwaysExcluded(base) || isHidden(base) {
				return filepath.SkipDir
			}
			ignores.loadGitignore(path)
			if ignores.matches(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if isHidden(base) {
			return nil
		}
		if ignores.matches(rel, false) {
			return nil
		}

		language := DetectLanguage(base)
		if language == "" {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logger.Warn("scan: stat failed", map[string]interface{}{"path": rel, "error": err.Error()})
			return nil
		}
		if opts.MaxFileSizeBytes > 0 && info.Size() > opts.MaxFileSizeBytes {
			logger.Debug("scan: file exceeds size limit, skipped", map[string]interface{}{"path": rel, "size": info.Size()})
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("scan: read failed, skipped", map[string]interface{}{"path": rel, "error": err.Error()})
			return nil
		}

		files = append(files, ScannedFile{
			RelPath:   rel,
			Language:  language,
			SizeBytes: info.Size(),
			Hash:      hashContent(content),
			Content:   content,
			LineCount: countLines(content),
		})
		return nil
	})
	if walkErr != nil {
		return nil, errors.Wrap(errors.Io, "walk project tree", walkErr).WithPath(root)
	}

	return files, nil
}

func hashContent(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	count := 1
	for _, b := range content {
		if b == '\n' {
			count++
		}
	}
	if content[len(content)-1] == '\n' {
		count--
	}
	return count
}
