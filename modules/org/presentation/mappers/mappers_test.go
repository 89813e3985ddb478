package mappers_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgledger/orgledger/modules/org/presentation/mappers"
	"github.com/orgledger/orgledger/modules/org/services"
)

func TestTreeToViewModel(t *testing.T) {
	rootID, childID, orphanID := uuid.New(), uuid.New(), uuid.New()
	child := &services.TreeNode{
		UnitRow:  services.UnitRow{ID: childID, Name: "Engineering", ParentID: &rootID},
		Level:    1,
		FullPath: "Company / Engineering",
	}
	root := &services.TreeNode{
		UnitRow:          services.UnitRow{ID: rootID, Name: "Company"},
		FullPath:         "Company",
		Children:         []*services.TreeNode{child},
		ChildrenCount:    1,
		PersonCount:      2,
		TotalPersonCount: 5,
	}
	missing := uuid.New()
	orphan := &services.TreeNode{
		UnitRow:  services.UnitRow{ID: orphanID, Name: "Stray", ParentID: &missing},
		FullPath: "Stray",
	}
	tree := &services.Tree{Roots: []*services.TreeNode{root}, Orphans: []*services.TreeNode{orphan}}

	vm := mappers.TreeToViewModel(tree)

	require.Len(t, vm.Roots, 1)
	assert.Equal(t, "Company", vm.Roots[0].Name)
	assert.Equal(t, 5, vm.Roots[0].TotalPersonCount)
	require.Len(t, vm.Roots[0].Children, 1)
	assert.Equal(t, "Company / Engineering", vm.Roots[0].Children[0].FullPath)
	assert.Equal(t, 1, vm.Roots[0].Children[0].Level)
	require.Len(t, vm.Orphans, 1)
	assert.Equal(t, "Stray", vm.Orphans[0].Name)
}

func TestAssignmentToViewModel(t *testing.T) {
	validTo := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	row := services.AssignmentRow{
		ID:         uuid.New(),
		LineageID:  uuid.New(),
		PersonID:   uuid.New(),
		UnitID:     uuid.New(),
		JobTitleID: uuid.New(),
		Percentage: 0.5,
		ValidFrom:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidTo:    &validTo,
		Version:    2,
		CreatedAt:  time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	vm := mappers.AssignmentToViewModel(row, "TERMINATED")

	assert.Equal(t, "2025-01-01", vm.ValidFrom)
	require.NotNil(t, vm.ValidTo)
	assert.Equal(t, "2025-06-30", *vm.ValidTo)
	assert.Equal(t, "TERMINATED", vm.Status)
	assert.Equal(t, "2025-01-01T12:00:00Z", vm.CreatedAt)
}
