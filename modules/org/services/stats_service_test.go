package services_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgledger/orgledger/modules/org/services"
)

func currentIn(unitID uuid.UUID, n int) []services.CurrentAssignmentRow {
	out := make([]services.CurrentAssignmentRow, n)
	for i := range out {
		out[i] = services.CurrentAssignmentRow{
			AssignmentRow: services.AssignmentRow{
				LineageID: uuid.New(),
				PersonID:  uuid.New(),
				UnitID:    unitID,
				IsCurrent: true,
			},
		}
	}
	return out
}

func TestAnnotate(t *testing.T) {
	parent := unitRow("Parent", nil)
	child := unitRow("Child", &parent.ID)
	grandchild := unitRow("Grandchild", &child.ID)
	repo := &fakeUnitRepo{rows: []services.UnitRow{parent, child, grandchild}}

	tree, err := newHierarchyService(repo).BuildTree(testCtx())
	require.NoError(t, err)

	var current []services.CurrentAssignmentRow
	current = append(current, currentIn(parent.ID, 2)...)
	current = append(current, currentIn(child.ID, 3)...)

	services.Annotate(tree, current)

	parentNode := tree.Node(parent.ID)
	assert.Equal(t, 2, parentNode.PersonCount)
	assert.Equal(t, 1, parentNode.ChildrenCount)
	assert.Equal(t, 5, parentNode.TotalPersonCount)

	childNode := tree.Node(child.ID)
	assert.Equal(t, 3, childNode.PersonCount)
	assert.Equal(t, 1, childNode.ChildrenCount)
	assert.Equal(t, 3, childNode.TotalPersonCount)

	grandchildNode := tree.Node(grandchild.ID)
	assert.Equal(t, 0, grandchildNode.PersonCount)
	assert.Equal(t, 0, grandchildNode.ChildrenCount)
	assert.Equal(t, 0, grandchildNode.TotalPersonCount)
}

func TestAnnotate_EmptyTreeAndUnknownUnits(t *testing.T) {
	lone := unitRow("Lone", nil)
	repo := &fakeUnitRepo{rows: []services.UnitRow{lone}}
	tree, err := newHierarchyService(repo).BuildTree(testCtx())
	require.NoError(t, err)

	// assignments pointing at unknown units are ignored
	services.Annotate(tree, currentIn(uuid.New(), 4))
	node := tree.Node(lone.ID)
	assert.Equal(t, 0, node.PersonCount)
	assert.Equal(t, 0, node.TotalPersonCount)
}

func TestAnnotate_OrphanSubtrees(t *testing.T) {
	missing := uuid.New()
	stray := unitRow("Stray", &missing)
	strayChild := unitRow("Stray Child", &stray.ID)
	repo := &fakeUnitRepo{rows: []services.UnitRow{stray, strayChild}}
	tree, err := newHierarchyService(repo).BuildTree(testCtx())
	require.NoError(t, err)

	services.Annotate(tree, currentIn(strayChild.ID, 2))

	require.Len(t, tree.Orphans, 1)
	assert.Equal(t, 2, tree.Orphans[0].TotalPersonCount)
	assert.Equal(t, 0, tree.Orphans[0].PersonCount)
}

func TestStatsService_AnnotateTree(t *testing.T) {
	parent := unitRow("Parent", nil)
	child := unitRow("Child", &parent.ID)
	units := &fakeUnitRepo{rows: []services.UnitRow{parent, child}}
	assignments := newFakeAssignmentRepo()
	personID := uuid.New()
	assignments.persons[personID] = "Ada Lovelace"
	assignments.units[child.ID] = "Child"
	titleID := uuid.New()
	assignments.titles[titleID] = "Engineer"

	svc := newAssignmentService(assignments, services.AssignmentServiceOptions{})
	_, err := svc.Create(testCtx(), services.CreateAssignmentInput{
		PersonID: personID, UnitID: child.ID, JobTitleID: titleID,
		Percentage: 1, ValidFrom: date(2025, 1, 1),
	})
	require.NoError(t, err)

	tree, err := newHierarchyService(units).BuildTree(testCtx())
	require.NoError(t, err)
	require.NoError(t, services.NewStatsService(assignments).AnnotateTree(testCtx(), tree))

	assert.Equal(t, 1, tree.Node(child.ID).PersonCount)
	assert.Equal(t, 1, tree.Node(parent.ID).TotalPersonCount)
}
