package graph

import "testing"

func TestTransitiveDependents_NoCycleInfiniteLoop(t *testing.T) {
	// A -> B -> C -> A (cycle). Starting from A, every node should be
	// visited exactly once.
	adjacency := map[int64][]FileRef{
		1: {{ID: 2, Path: "b.go"}},
		2: {{ID: 3, Path: "c.go"}},
		3: {{ID: 1, Path: "a.go"}},
	}
	lookups := 0
	dependentsOf := func(id int64) ([]FileRef, error) {
		lookups++
		if lookups > 100 {
			t.Fatal("infinite loop detected")
		}
		return adjacency[id], nil
	}

	result, maxDepth, err := TransitiveDependents(1, dependentsOf)
	if err != nil {
		t.Fatalf("TransitiveDependents: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 reachable nodes (B, C), got %d: %+v", len(result), result)
	}
	if maxDepth != 2 {
		t.Errorf("expected max depth 2, got %d", maxDepth)
	}
}

func TestTransitiveDependents_OrderedByDepth(t *testing.T) {
	adjacency := map[int64][]FileRef{
		1: {{ID: 2, Path: "b.go"}, {ID: 3, Path: "c.go"}},
		2: {{ID: 4, Path: "d.go"}},
	}
	dependentsOf := func(id int64) ([]FileRef, error) { return adjacency[id], nil }

	result, _, err := TransitiveDependents(1, dependentsOf)
	if err != nil {
		t.Fatalf("TransitiveDependents: %v", err)
	}
	for i := 1; i < len(result); i++ {
		if result[i].Depth < result[i-1].Depth {
			t.Fatalf("result not ordered by depth: %+v", result)
		}
	}
}

func TestClassifyRisk(t *testing.T) {
	cases := []struct {
		dependents int
		churn      float64
		want       RiskLevel
	}{
		{0, 0, RiskLow},
		{1, 0, RiskMedium},
		{3, 0, RiskMedium},
		{4, 0, RiskHigh},
		{10, 0, RiskHigh},
		{11, 0, RiskCritical},
		{4, 6.0, RiskCritical},
		{3, 6.0, RiskMedium}, // churn high but dependents not > 3
	}
	for _, c := range cases {
		if got := ClassifyRisk(c.dependents, c.churn); got != c.want {
			t.Errorf("ClassifyRisk(%d, %.1f) = %s, want %s", c.dependents, c.churn, got, c.want)
		}
	}
}
