// Package gitlog derives per-file commit counts and churn scores, and
// extracts conventional-commit decisions, from a single `git log`
// subprocess invocation.
package gitlog

import (
	"context"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ctxengine/internal/errors"
	"ctxengine/internal/logging"
)

// recentWindowDays is the lookback spec.md §4.5 uses to compute the
// recent-commit fraction feeding the churn score.
const recentWindowDays = 90

// subprocessTimeout bounds the single git log invocation per spec.md §5.
const subprocessTimeout = 15 * time.Second

// FileStat is the per-file git-derived aggregate for one analysis pass.
type FileStat struct {
	CommitCount int
	ChurnScore  float64
}

// Decision is a conventional-commit-derived decision candidate, before
// storage dedup.
type Decision struct {
	Reference string
	Timestamp time.Time
	Kind      string // feat, fix, refactor, breaking, note
	Subject   string
	Body      string
}

var conventionalSubject = regexp.MustCompile(`(?i)^(feat|fix|refactor|perf|breaking change)(\([^)]+\))?(!)?:`)

// IsRepository reports whether root is (inside) a git working tree.
func IsRepository(root string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), subprocessTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--git-dir")
	cmd.Dir = root
	return cmd.Run() == nil
}

// commitEntry is one parsed commit record from the aggregated log.
type commitEntry struct {
	hash      string
	timestamp time.Time
	subject   string
	body      string
	files     []string
}

// Analyze runs one `git log --numstat` subprocess over root and returns
// per-file stats plus extracted decisions. If root is not a git
// repository, it downgrades to a no-op per spec.md §4.5, returning
// empty results and no error.
func Analyze(root string, now time.Time, logger *logging.Logger) (map[string]FileStat, []Decision, int, error) {
	if !IsRepository(root) {
		logger.Debug("gitlog: not a repository, skipping", map[string]interface{}{"root": root})
		return map[string]FileStat{}, nil, 0, nil
	}

	commits, err := readLog(root)
	if err != nil {
		return nil, nil, 0, err
	}

	stats := computeFileStats(commits, now)
	decisions := extractDecisions(commits)
	return stats, decisions, len(commits), nil
}

// recordSep/fieldSep delimit the git log --format fields so a
// multi-line body can't be mistaken for a new commit record.
const recordSep = "\x1e"
const fieldSep = "\x1f"

func readLog(root string) ([]commitEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), subprocessTimeout)
	defer cancel()

	format := fieldSep + "%H" + fieldSep + "%aI" + fieldSep + "%s" + fieldSep + "%b" + recordSep
	cmd := exec.CommandContext(ctx, "git", "log", "--format="+format, "--numstat", "HEAD")
	cmd.Dir = root

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Wrap(errors.Io, "git log timed out", err).WithPath(root)
		}
		return nil, errors.Wrap(errors.Io, "git log failed", err).WithPath(root)
	}

	var commits []commitEntry
	for _, record := range strings.Split(string(out), recordSep) {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}
		fields := strings.SplitN(record, fieldSep, 5)
		if len(fields) < 5 {
			continue
		}
		// fields[0] is empty text before the leading fieldSep
		hash := fields[1]
		ts, _ := time.Parse(time.RFC3339, fields[2])
		subject := fields[3]
		rest := fields[4]

		lines := strings.Split(rest, "\n")
		var bodyLines []string
		var files []string
		inBody := true
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if inBody {
				// numstat lines look like "12\t3\tpath"; a blank line
				// separates the commit body from the numstat block.
				if isNumstatLine(trimmed) {
					inBody = false
				} else {
					if trimmed != "" {
						bodyLines = append(bodyLines, trimmed)
					}
					continue
				}
			}
			if path, ok := parseNumstatLine(trimmed); ok {
				files = append(files, path)
			}
		}

		commits = append(commits, commitEntry{
			hash:      hash,
			timestamp: ts,
			subject:   subject,
			body:      strings.Join(bodyLines, "\n"),
			files:     files,
		})
	}

	return commits, nil
}

func isNumstatLine(line string) bool {
	_, ok := parseNumstatLine(line)
	return ok
}

func parseNumstatLine(line string) (string, bool) {
	parts := strings.Split(line, "\t")
	if len(parts) < 3 {
		return "", false
	}
	if _, err := strconv.Atoi(parts[0]); err != nil && parts[0] != "-" {
		return "", false
	}
	if _, err := strconv.Atoi(parts[1]); err != nil && parts[1] != "-" {
		return "", false
	}
	return strings.Join(parts[2:], "\t"), true
}

// computeFileStats implements spec.md §4.5's churn formula:
// log2(1+commit_count) * (1+recent_fraction), recent_fraction being
// the share of a file's commits within the last 90 days.
func computeFileStats(commits []commitEntry, now time.Time) map[string]FileStat {
	type counts struct {
		total  int
		recent int
	}
	byFile := make(map[string]*counts)
	cutoff := now.AddDate(0, 0, -recentWindowDays)

	for _, c := range commits {
		for _, f := range c.files {
			cnt, ok := byFile[f]
			if !ok {
				cnt = &counts{}
				byFile[f] = cnt
			}
			cnt.total++
			if !c.timestamp.Before(cutoff) {
				cnt.recent++
			}
		}
	}

	stats := make(map[string]FileStat, len(byFile))
	for f, cnt := range byFile {
		recentFraction := 0.0
		if cnt.total > 0 {
			recentFraction = float64(cnt.recent) / float64(cnt.total)
		}
		stats[f] = FileStat{
			CommitCount: cnt.total,
			ChurnScore:  math.Log2(1+float64(cnt.total)) * (1 + recentFraction),
		}
	}
	return stats
}

// extractDecisions scans commit subjects for the conventional-commit
// pattern spec.md §4.5 defines, elevating to "breaking" when the
// subject carries a bang or the body mentions BREAKING CHANGE.
func extractDecisions(commits []commitEntry) []Decision {
	var decisions []Decision
	for _, c := range commits {
		m := conventionalSubject.FindStringSubmatch(c.subject)
		if m == nil {
			continue
		}
		kind := strings.ToLower(m[1])
		if kind == "breaking change" {
			kind = "breaking"
		}
		bang := m[3] == "!"
		if bang || strings.Contains(strings.ToUpper(c.body), "BREAKING CHANGE:") {
			kind = "breaking"
		}

		body := firstParagraph(c.body)
		decisions = append(decisions, Decision{
			Reference: c.hash,
			Timestamp: c.timestamp,
			Kind:      kind,
			Subject:   c.subject,
			Body:      body,
		})
	}
	return decisions
}

func firstParagraph(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}
	if idx := strings.Index(body, "\n\n"); idx >= 0 {
		return strings.TrimSpace(body[:idx])
	}
	return body
}
