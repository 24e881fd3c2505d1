// Package index orchestrates one indexing pass: scan, parse, persist,
// resolve imports, then annotate with git history, per spec.md §4.8.
package index

import (
	"context"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"ctxengine/internal/errors"
	"ctxengine/internal/gitlog"
	"ctxengine/internal/logging"
	"ctxengine/internal/parser"
	"ctxengine/internal/scanner"
	"ctxengine/internal/storage"
)

// State is one stage of the indexing pass state machine in spec.md
// §4.8.
type State string

const (
	StateIdle         State = "idle"
	StateScanning     State = "scanning"
	StateParsing      State = "parsing"
	StatePersisting   State = "persisting"
	StateResolving    State = "resolving"
	StateGitAnalyzing State = "git_analyzing"
	StateDone         State = "done"
)

// Summary is the machine-readable result of one pass, per spec.md
// §4.8.
type Summary struct {
	FilesTotal      int           `json:"files_total"`
	FilesChanged    int           `json:"files_changed"`
	Symbols         int           `json:"symbols"`
	EdgesResolved   int           `json:"edges_resolved"`
	EdgesUnresolved int           `json:"edges_unresolved"`
	Commits         int           `json:"commits"`
	Decisions       int           `json:"decisions"`
	Elapsed         time.Duration `json:"-"`
	ElapsedMs       int64         `json:"elapsed_ms"`
}

// Options configures one pass.
type Options struct {
	ExtraIgnore      []string
	MaxFileSizeBytes int64
	GitEnabled       bool
}

// Pass is a single run of the indexing state machine over one
// project. It owns the store's write connection for the duration of
// the run.
type Pass struct {
	root   string
	db     *storage.DB
	logger *logging.Logger
	state  State
}

// NewPass prepares a pass over root, persisting through db.
func NewPass(root string, db *storage.DB, logger *logging.Logger) *Pass {
	return &Pass{root: root, db: db, logger: logger, state: StateIdle}
}

// State returns the pass's current stage.
func (p *Pass) State() State {
	return p.state
}

func (p *Pass) transition(s State) {
	p.state = s
	p.logger.Debug("index pass transition", map[string]interface{}{"state": string(s)})
}

// Run drives the full pass: Scanning, Parsing, Persisting, Resolving,
// GitAnalyzing, Done. A parse failure for one file is logged and
// skipped; it never aborts the pass. A persistence failure rolls back
// only that file's transaction (storage.WithTx's scope), per spec.md
// §4.1's failure semantics.
func (p *Pass) Run(ctx context.Context, opts Options) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}

	p.transition(StateScanning)
	scanned, err := scanner.Scan(p.root, scanner.Options{
		ExtraIgnore:      opts.ExtraIgnore,
		MaxFileSizeBytes: opts.MaxFileSizeBytes,
	}, p.logger)
	if err != nil {
		return nil, err
	}
	summary.FilesTotal = len(scanned)

	p.transition(StateParsing)
	parsed, err := p.parseChanged(ctx, scanned)
	if err != nil {
		return nil, err
	}
	summary.FilesChanged = len(parsed)

	p.transition(StatePersisting)
	seenPaths := make(map[string]bool, len(scanned))
	for _, f := range scanned {
		seenPaths[f.RelPath] = true
	}
	if err := p.persist(parsed, summary); err != nil {
		return nil, err
	}
	removed, err := p.reconcile(seenPaths)
	if err != nil {
		return nil, err
	}
	summary.FilesChanged += removed

	p.transition(StateResolving)
	resolved, err := p.db.ResolveImports()
	if err != nil {
		return nil, err
	}
	summary.EdgesResolved = resolved
	stats, err := p.db.AggregateStats()
	if err != nil {
		return nil, err
	}
	summary.EdgesUnresolved = stats.UnresolvedEdges
	summary.Symbols = stats.Symbols

	if opts.GitEnabled {
		p.transition(StateGitAnalyzing)
		if err := p.runGitAnalysis(summary); err != nil {
			return nil, err
		}
	}

	p.transition(StateDone)
	summary.Elapsed = time.Since(start)
	summary.ElapsedMs = summary.Elapsed.Milliseconds()
	return summary, nil
}

// parsedFile bundles a scanned file with its parse result, ready for
// persistence.
type parsedFile struct {
	scanner.ScannedFile
	result parser.Result
}

// parseChanged fans parsing out over runtime.NumCPU() workers via
// errgroup, skipping files whose content hash matches the stored row
// (spec.md §4.2's incrementality rule). Parsing is pure and
// independent per file, so no shared state crosses goroutines; each
// worker writes to its own slot in a preallocated slice.
func (p *Pass) parseChanged(ctx context.Context, scanned []scanner.ScannedFile) ([]parsedFile, error) {
	type job struct {
		index int
		file  scanner.ScannedFile
	}
	var jobs []job
	for i, f := range scanned {
		existing, err := p.db.FileByPath(f.RelPath)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.Hash == f.Hash {
			continue
		}
		jobs = append(jobs, job{index: i, file: f})
	}

	results := make([]parsedFile, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for slot, j := range jobs {
		slot, j := slot, j
		g.Go(func() error {
			parserImpl := parser.Dispatch(j.file.Language)
			result, err := parserImpl.Parse(gctx, j.file.RelPath, j.file.Content)
			if err != nil {
				p.logger.Warn("parse failed, falling back to line count", map[string]interface{}{
					"path":  j.file.RelPath,
					"error": err.Error(),
				})
				result = parser.Result{LineCount: j.file.LineCount}
			}
			results[slot] = parsedFile{ScannedFile: j.file, result: result}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(errors.Internal, "parse fan-out", err)
	}

	return results, nil
}

// persist writes each parsed file's row, symbols, and raw imports in
// lexicographic path order, so row ids and FTS segment layout stay
// reproducible across passes (spec.md §5).
func (p *Pass) persist(parsed []parsedFile, summary *Summary) error {
	sortByPath(parsed)

	for _, pf := range parsed {
		fileID, err := p.db.UpsertFile(&storage.File{
			Path:         pf.RelPath,
			Language:     pf.Language,
			SizeBytes:    pf.SizeBytes,
			Hash:         pf.Hash,
			LineCount:    pf.result.LineCount,
			LastAnalyzed: time.Now().UTC(),
		})
		if err != nil {
			return err
		}

		symbols := make([]storage.Symbol, 0, len(pf.result.Symbols))
		for _, s := range pf.result.Symbols {
			symbols = append(symbols, storage.Symbol{
				FileID:    fileID,
				Name:      s.Name,
				Kind:      s.Kind,
				StartLine: s.StartLine,
				EndLine:   s.EndLine,
				Signature: s.Signature,
			})
		}
		if err := p.db.ReplaceSymbolsForFile(fileID, pf.RelPath, symbols); err != nil {
			return err
		}

		imports := make([]storage.Dependency, 0, len(pf.result.Imports))
		for _, imp := range pf.result.Imports {
			imports = append(imports, storage.Dependency{
				FromFileID: fileID,
				ToPath:     imp.Raw,
				Kind:       imp.Kind,
			})
		}
		if err := p.db.ReplaceImportsForFile(fileID, imports); err != nil {
			return err
		}
	}

	return nil
}

// reconcile removes stored files absent from the current scan, per
// spec.md §4.2's reconciliation rule. Returns the number removed, which
// counts toward the pass's files_changed total alongside parsed
// additions/modifications (spec.md §8 scenario 3: a rename reports
// files_changed=2, one removal and one addition).
func (p *Pass) reconcile(seenPaths map[string]bool) (int, error) {
	all, err := p.db.AllFiles()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, f := range all {
		if !seenPaths[f.Path] {
			if err := p.db.DeleteFile(f.ID); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

// runGitAnalysis annotates files with commit counts/churn scores and
// records conventional-commit decisions, downgrading silently to a
// no-op when the project isn't a git repository (spec.md §4.5).
func (p *Pass) runGitAnalysis(summary *Summary) error {
	stats, decisions, commitCount, err := gitlog.Analyze(p.root, time.Now().UTC(), p.logger)
	if err != nil {
		return err
	}

	gitStats := make(map[string]storage.GitStat, len(stats))
	for path, s := range stats {
		gitStats[path] = storage.GitStat{CommitCount: s.CommitCount, ChurnScore: s.ChurnScore}
	}
	if len(gitStats) > 0 {
		if err := p.db.BulkUpdateGitStats(gitStats); err != nil {
			return err
		}
	}
	summary.Commits = commitCount

	for _, d := range decisions {
		ref := d.Reference
		var body *string
		if d.Body != "" {
			body = &d.Body
		}
		if _, err := p.db.InsertDecision(&storage.Decision{
			Timestamp: d.Timestamp,
			Source:    "commit",
			Reference: &ref,
			Kind:      d.Kind,
			Subject:   d.Subject,
			Body:      body,
		}); err != nil {
			return err
		}
		summary.Decisions++
	}

	return nil
}

func sortByPath(files []parsedFile) {
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
}
