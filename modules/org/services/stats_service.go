package services

import (
	"context"

	"github.com/google/uuid"
)

// StatsService annotates a materialized tree with headcounts derived from
// current assignments. It never writes; all aggregation happens in memory.
type StatsService struct {
	assignments AssignmentRepository
}

func NewStatsService(assignments AssignmentRepository) *StatsService {
	return &StatsService{assignments: assignments}
}

// AnnotateTree loads current assignments and fills in the per-node counts.
func (s *StatsService) AnnotateTree(ctx context.Context, tree *Tree) error {
	rows, err := s.assignments.ListCurrent(ctx, CurrentFilter{})
	if err != nil {
		return mapRepoError(err)
	}
	Annotate(tree, rows)
	return nil
}

// Annotate fills PersonCount, ChildrenCount and TotalPersonCount on every
// node of the tree, orphan subtrees included. PersonCount counts current
// assignment versions in the unit itself; TotalPersonCount rolls the subtree
// up. Assignments pointing at unknown units are ignored.
func Annotate(tree *Tree, current []CurrentAssignmentRow) {
	counts := make(map[uuid.UUID]int)
	for _, a := range current {
		counts[a.UnitID]++
	}
	for id, node := range tree.index {
		node.PersonCount = counts[id]
		node.ChildrenCount = len(node.Children)
	}
	for _, root := range tree.Roots {
		rollup(root)
	}
	for _, orphan := range tree.Orphans {
		rollup(orphan)
	}
}

func rollup(n *TreeNode) int {
	total := n.PersonCount
	for _, c := range n.Children {
		total += rollup(c)
	}
	n.TotalPersonCount = total
	return total
}
