package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orgledger/orgledger/modules/org/domain/events"
	"github.com/orgledger/orgledger/pkg/composables"
	"github.com/orgledger/orgledger/pkg/eventbus"
	"github.com/orgledger/orgledger/pkg/serrors"
)

// UnitRow is a flat hierarchy row as read from storage.
type UnitRow struct {
	ID         uuid.UUID
	Name       string
	ShortName  *string
	UnitTypeID uuid.UUID
	ParentID   *uuid.UUID
	StartDate  *time.Time
	EndDate    *time.Time
}

// TreeNode is a materialized position in the hierarchy. Count fields are
// zero until StatsService.Annotate runs over the tree.
type TreeNode struct {
	UnitRow
	Level    int
	Path     []uuid.UUID
	FullPath string
	Children []*TreeNode

	PersonCount      int
	ChildrenCount    int
	TotalPersonCount int
}

// Tree is the materialized hierarchy. Orphans are subtrees whose parent id
// references a unit that does not exist; they are reported, never healed.
type Tree struct {
	Roots   []*TreeNode
	Orphans []*TreeNode
	index   map[uuid.UUID]*TreeNode
}

func (t *Tree) Node(id uuid.UUID) *TreeNode {
	return t.index[id]
}

func (t *Tree) Size() int {
	return len(t.index)
}

// Children returns the direct children of a unit, or nil when unknown.
func (t *Tree) Children(id uuid.UUID) []*TreeNode {
	n := t.index[id]
	if n == nil {
		return nil
	}
	return n.Children
}

// Ancestors returns the chain from the subtree root down to the unit's
// direct parent.
func (t *Tree) Ancestors(id uuid.UUID) []*TreeNode {
	n := t.index[id]
	if n == nil {
		return nil
	}
	out := make([]*TreeNode, 0, len(n.Path)-1)
	for _, ancestorID := range n.Path[:len(n.Path)-1] {
		out = append(out, t.index[ancestorID])
	}
	return out
}

// Descendants returns every node below a unit in depth-first order.
func (t *Tree) Descendants(id uuid.UUID) []*TreeNode {
	n := t.index[id]
	if n == nil {
		return nil
	}
	var out []*TreeNode
	var walk func(*TreeNode)
	walk = func(cur *TreeNode) {
		for _, c := range cur.Children {
			out = append(out, c)
			walk(c)
		}
	}
	walk(n)
	return out
}

// IsDescendant reports whether candidate sits somewhere below unitID.
func (t *Tree) IsDescendant(unitID, candidate uuid.UUID) bool {
	n := t.index[candidate]
	if n == nil {
		return false
	}
	for _, ancestorID := range n.Path[:len(n.Path)-1] {
		if ancestorID == unitID {
			return true
		}
	}
	return false
}

type UnitRepository interface {
	ListUnits(ctx context.Context) ([]UnitRow, error)
	UpdateParent(ctx context.Context, unitID uuid.UUID, parentID *uuid.UUID) error
}

type HierarchyService struct {
	repo UnitRepository
	bus  eventbus.EventBus

	mu     sync.Mutex
	cached *Tree
}

func NewHierarchyService(repo UnitRepository, bus eventbus.EventBus) *HierarchyService {
	return &HierarchyService{repo: repo, bus: bus}
}

// BuildTree materializes the full hierarchy from flat parent pointers.
// A cycle anywhere in the stored rows fails the whole build. The returned
// tree is private to the caller and safe to annotate.
func (s *HierarchyService) BuildTree(ctx context.Context) (*Tree, error) {
	rows, err := s.repo.ListUnits(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return buildTree(rows)
}

// snapshot returns the cached tree, building it once after an invalidation.
// Traversal queries share it read-only; mutations call InvalidateTree.
func (s *HierarchyService) snapshot(ctx context.Context) (*Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return s.cached, nil
	}
	tree, err := s.BuildTree(ctx)
	if err != nil {
		return nil, err
	}
	s.cached = tree
	return tree, nil
}

// InvalidateTree drops the cached snapshot; the next traversal query
// rebuilds it from storage.
func (s *HierarchyService) InvalidateTree() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// GetChildren returns a unit's direct children from the snapshot index.
func (s *HierarchyService) GetChildren(ctx context.Context, unitID uuid.UUID) ([]*TreeNode, error) {
	tree, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if tree.Node(unitID) == nil {
		return nil, serrors.NewNotFound("ORG_UNIT_NOT_FOUND", "unit not found")
	}
	return tree.Children(unitID), nil
}

// GetAncestors returns the chain from the subtree root down to the unit's
// direct parent.
func (s *HierarchyService) GetAncestors(ctx context.Context, unitID uuid.UUID) ([]*TreeNode, error) {
	tree, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if tree.Node(unitID) == nil {
		return nil, serrors.NewNotFound("ORG_UNIT_NOT_FOUND", "unit not found")
	}
	return tree.Ancestors(unitID), nil
}

// GetDescendants returns every unit below the given one, depth first.
func (s *HierarchyService) GetDescendants(ctx context.Context, unitID uuid.UUID) ([]*TreeNode, error) {
	tree, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if tree.Node(unitID) == nil {
		return nil, serrors.NewNotFound("ORG_UNIT_NOT_FOUND", "unit not found")
	}
	return tree.Descendants(unitID), nil
}

// ValidateReparent checks a prospective move without applying it.
func (s *HierarchyService) ValidateReparent(ctx context.Context, unitID, newParentID uuid.UUID) error {
	tree, err := s.snapshot(ctx)
	if err != nil {
		return err
	}
	return validateReparent(tree, unitID, newParentID)
}

// MoveUnit re-parents a unit after validating the move against a tree built
// inside the same transaction. A nil newParentID makes the unit a root.
func (s *HierarchyService) MoveUnit(ctx context.Context, unitID uuid.UUID, newParentID *uuid.UUID) error {
	var oldParent *uuid.UUID
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		rows, err := s.repo.ListUnits(txCtx)
		if err != nil {
			return mapRepoError(err)
		}
		tree, err := buildTree(rows)
		if err != nil {
			return err
		}
		node := tree.Node(unitID)
		if node == nil {
			return serrors.NewNotFound("ORG_UNIT_NOT_FOUND", "unit not found")
		}
		oldParent = node.ParentID
		if newParentID != nil {
			if err := validateReparent(tree, unitID, *newParentID); err != nil {
				return err
			}
		}
		if err := s.repo.UpdateParent(txCtx, unitID, newParentID); err != nil {
			return mapRepoError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.InvalidateTree()
	if s.bus != nil {
		s.bus.Publish(events.UnitEventV1{
			ChangeType:  events.UnitMoved,
			UnitID:      unitID,
			OldParentID: oldParent,
			NewParentID: newParentID,
			OccurredAt:  time.Now().UTC(),
		})
	}
	return nil
}

func validateReparent(tree *Tree, unitID, newParentID uuid.UUID) error {
	if tree.Node(unitID) == nil {
		return serrors.NewNotFound("ORG_UNIT_NOT_FOUND", "unit not found")
	}
	if tree.Node(newParentID) == nil {
		return serrors.NewNotFound("ORG_UNIT_NOT_FOUND", "new parent not found")
	}
	if unitID == newParentID {
		return serrors.NewInvalidReparent("ORG_SELF_PARENT", "unit cannot be its own parent")
	}
	if tree.IsDescendant(unitID, newParentID) {
		return serrors.NewInvalidReparent("ORG_REPARENT_CYCLE", "new parent is a descendant of the unit")
	}
	return nil
}

func buildTree(rows []UnitRow) (*Tree, error) {
	byID := make(map[uuid.UUID]UnitRow, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}

	childrenByParent := make(map[uuid.UUID][]UnitRow)
	var roots, orphans []UnitRow
	for _, r := range rows {
		switch {
		case r.ParentID == nil:
			roots = append(roots, r)
		case *r.ParentID == r.ID:
			return nil, serrors.NewCycleDetected("ORG_CYCLE_DETECTED", fmt.Sprintf("unit %s is its own parent", r.ID))
		default:
			if _, ok := byID[*r.ParentID]; !ok {
				orphans = append(orphans, r)
				continue
			}
			childrenByParent[*r.ParentID] = append(childrenByParent[*r.ParentID], r)
		}
	}
	sortRows(roots)
	sortRows(orphans)
	for _, siblings := range childrenByParent {
		sortRows(siblings)
	}

	tree := &Tree{index: make(map[uuid.UUID]*TreeNode, len(rows))}
	visited := make(map[uuid.UUID]bool, len(rows))

	var attach func(row UnitRow, level int, path []uuid.UUID, names []string) (*TreeNode, error)
	attach = func(row UnitRow, level int, path []uuid.UUID, names []string) (*TreeNode, error) {
		if visited[row.ID] {
			return nil, serrors.NewCycleDetected("ORG_CYCLE_DETECTED", fmt.Sprintf("unit %s reached twice", row.ID))
		}
		visited[row.ID] = true

		nodePath := append(append([]uuid.UUID{}, path...), row.ID)
		nodeNames := append(append([]string{}, names...), row.Name)
		node := &TreeNode{
			UnitRow:  row,
			Level:    level,
			Path:     nodePath,
			FullPath: strings.Join(nodeNames, " / "),
		}
		tree.index[row.ID] = node
		for _, child := range childrenByParent[row.ID] {
			childNode, err := attach(child, level+1, nodePath, nodeNames)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, childNode)
		}
		return node, nil
	}

	for _, r := range roots {
		node, err := attach(r, 0, nil, nil)
		if err != nil {
			return nil, err
		}
		tree.Roots = append(tree.Roots, node)
	}
	for _, r := range orphans {
		node, err := attach(r, 0, nil, nil)
		if err != nil {
			return nil, err
		}
		tree.Orphans = append(tree.Orphans, node)
	}

	if len(visited) != len(rows) {
		var stranded []string
		for _, r := range rows {
			if !visited[r.ID] {
				stranded = append(stranded, r.ID.String())
			}
		}
		sort.Strings(stranded)
		return nil, serrors.NewCycleDetected(
			"ORG_CYCLE_DETECTED",
			fmt.Sprintf("units unreachable from any root: %s", strings.Join(stranded, ", ")),
		)
	}
	return tree, nil
}

// sortRows orders siblings by name, then id for a stable tie-break.
func sortRows(rows []UnitRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].ID.String() < rows[j].ID.String()
	})
}
