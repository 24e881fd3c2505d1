// Package graph computes blast-radius and dependent-set queries over
// the dependency edges persisted in the store. It keeps no adjacency
// view of its own: each BFS step asks an injected DependentsFunc
// (backed by storage.DependentsOf) for one file's direct dependents.
package graph

import "sort"

// RiskLevel categorizes how dangerous a change to a file is, per
// spec.md §4.4.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// DependentsFunc looks up the direct dependents of a file id, returning
// (id, path) pairs. It is injected so graph stays independent of
// storage's concrete type.
type DependentsFunc func(fileID int64) ([]FileRef, error)

// FileRef is the minimal file identity the graph needs.
type FileRef struct {
	ID   int64
	Path string
}

// BlastNode is one file reached while computing a transitive dependent
// set, annotated with its BFS depth from the root.
type BlastNode struct {
	FileRef
	Depth int
}

// BlastRadius is the full result of a blast-radius query for one file.
type BlastRadius struct {
	Direct      []BlastNode // depth 1
	Transitive  []BlastNode // depth >= 1, includes Direct
	MaxDepth    int
	Risk        RiskLevel
}

// TransitiveDependents runs a BFS over reverse dependency edges from
// root, visiting each file at most once. No recursion: a visited set
// keyed by file id makes this safe over import cycles, per spec.md §9.
func TransitiveDependents(root int64, dependentsOf DependentsFunc) ([]BlastNode, int, error) {
	visited := map[int64]bool{root: true}
	queue := []BlastNode{{FileRef: FileRef{ID: root}, Depth: 0}}
	var result []BlastNode
	maxDepth := 0

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		dependents, err := dependentsOf(current.FileRef.ID)
		if err != nil {
			return nil, 0, err
		}
		for _, dep := range dependents {
			if visited[dep.ID] {
				continue
			}
			visited[dep.ID] = true
			node := BlastNode{FileRef: dep, Depth: current.Depth + 1}
			result = append(result, node)
			queue = append(queue, node)
			if node.Depth > maxDepth {
				maxDepth = node.Depth
			}
		}
	}

	sort.SliceStable(result, func(i, j int) bool { return result[i].Depth < result[j].Depth })
	return result, maxDepth, nil
}

// ClassifyRisk implements spec.md §4.4's risk thresholds: low if no
// direct dependents, medium for 1-3, high for 4-10, critical above 10
// or when churn exceeds 5.0 combined with more than 3 dependents.
func ClassifyRisk(directDependentCount int, churnScore float64) RiskLevel {
	switch {
	case directDependentCount > 10:
		return RiskCritical
	case churnScore > 5.0 && directDependentCount > 3:
		return RiskCritical
	case directDependentCount >= 4:
		return RiskHigh
	case directDependentCount >= 1:
		return RiskMedium
	default:
		return RiskLow
	}
}

// BlastRadiusOf computes the full blast-radius result for fileID, given
// its direct dependents (already resolved) and churn score.
func BlastRadiusOf(fileID int64, directDependents []FileRef, churnScore float64, dependentsOf DependentsFunc) (*BlastRadius, error) {
	direct := make([]BlastNode, 0, len(directDependents))
	for _, d := range directDependents {
		direct = append(direct, BlastNode{FileRef: d, Depth: 1})
	}

	transitive, maxDepth, err := TransitiveDependents(fileID, dependentsOf)
	if err != nil {
		return nil, err
	}

	return &BlastRadius{
		Direct:     direct,
		Transitive: transitive,
		MaxDepth:   maxDepth,
		Risk:       ClassifyRisk(len(directDependents), churnScore),
	}, nil
}
