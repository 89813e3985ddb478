package mappers

import (
	"time"

	"github.com/google/uuid"

	"github.com/orgledger/orgledger/modules/org/domain/jobtitle"
	"github.com/orgledger/orgledger/modules/org/domain/person"
	"github.com/orgledger/orgledger/modules/org/domain/unit"
	"github.com/orgledger/orgledger/modules/org/presentation/viewmodels"
	"github.com/orgledger/orgledger/modules/org/services"
)

const dateLayout = "2006-01-02"

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func uuidPtr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func UnitToViewModel(u unit.Unit) viewmodels.Unit {
	aliases := make([]viewmodels.Alias, 0, len(u.Aliases()))
	for _, a := range u.Aliases() {
		aliases = append(aliases, viewmodels.Alias{Value: a.Value, Language: a.Language})
	}
	return viewmodels.Unit{
		ID:         u.ID().String(),
		Name:       u.Name(),
		ShortName:  u.ShortName(),
		UnitTypeID: u.UnitTypeID().String(),
		ParentID:   uuidPtr(u.ParentID()),
		StartDate:  formatDate(u.StartDate()),
		EndDate:    formatDate(u.EndDate()),
		Aliases:    aliases,
		CreatedAt:  formatTimestamp(u.CreatedAt()),
		UpdatedAt:  formatTimestamp(u.UpdatedAt()),
	}
}

func PersonToViewModel(p person.Person) viewmodels.Person {
	return viewmodels.Person{
		ID:          p.ID().String(),
		DisplayName: p.DisplayName(),
		FirstName:   p.FirstName(),
		LastName:    p.LastName(),
		Pernr:       p.Pernr(),
		Email:       p.Email(),
		AvatarURL:   p.AvatarURL(),
		CreatedAt:   formatTimestamp(p.CreatedAt()),
		UpdatedAt:   formatTimestamp(p.UpdatedAt()),
	}
}

func JobTitleToViewModel(j jobtitle.JobTitle) viewmodels.JobTitle {
	aliases := make([]viewmodels.Alias, 0, len(j.Aliases()))
	for _, a := range j.Aliases() {
		aliases = append(aliases, viewmodels.Alias{Value: a.Value, Language: a.Language})
	}
	units := make([]string, 0, len(j.AssignableUnits()))
	for _, id := range j.AssignableUnits() {
		units = append(units, id.String())
	}
	return viewmodels.JobTitle{
		ID:              j.ID().String(),
		Name:            j.Name(),
		Code:            j.Code(),
		StartDate:       formatDate(j.StartDate()),
		EndDate:         formatDate(j.EndDate()),
		Aliases:         aliases,
		AssignableUnits: units,
		CreatedAt:       formatTimestamp(j.CreatedAt()),
		UpdatedAt:       formatTimestamp(j.UpdatedAt()),
	}
}

// TreeToViewModel converts a materialized tree, preserving child ordering.
func TreeToViewModel(t *services.Tree) viewmodels.Tree {
	out := viewmodels.Tree{Roots: []viewmodels.TreeNode{}}
	for _, root := range t.Roots {
		out.Roots = append(out.Roots, treeNodeToViewModel(root))
	}
	for _, orphan := range t.Orphans {
		out.Orphans = append(out.Orphans, treeNodeToViewModel(orphan))
	}
	return out
}

func treeNodeToViewModel(n *services.TreeNode) viewmodels.TreeNode {
	vm := viewmodels.TreeNode{
		ID:               n.ID.String(),
		Name:             n.Name,
		ShortName:        n.ShortName,
		ParentID:         uuidPtr(n.ParentID),
		Level:            n.Level,
		FullPath:         n.FullPath,
		PersonCount:      n.PersonCount,
		ChildrenCount:    n.ChildrenCount,
		TotalPersonCount: n.TotalPersonCount,
	}
	for _, c := range n.Children {
		vm.Children = append(vm.Children, treeNodeToViewModel(c))
	}
	return vm
}

func AssignmentToViewModel(r services.AssignmentRow, status string) viewmodels.AssignmentVersion {
	return viewmodels.AssignmentVersion{
		ID:          r.ID.String(),
		LineageID:   r.LineageID.String(),
		PersonID:    r.PersonID.String(),
		UnitID:      r.UnitID.String(),
		JobTitleID:  r.JobTitleID.String(),
		Percentage:  r.Percentage,
		IsUnitBoss:  r.IsUnitBoss,
		IsAdInterim: r.IsAdInterim,
		Notes:       r.Notes,
		Flags:       r.Flags,
		ValidFrom:   r.ValidFrom.Format(dateLayout),
		ValidTo:     formatDate(r.ValidTo),
		Version:     r.Version,
		IsCurrent:   r.IsCurrent,
		Status:      status,
		CreatedAt:   formatTimestamp(r.CreatedAt),
	}
}

func VersionToViewModel(v services.AssignmentVersionView) viewmodels.AssignmentVersion {
	return AssignmentToViewModel(v.AssignmentRow, string(v.Status))
}

func CurrentToViewModel(r services.CurrentAssignmentRow) viewmodels.CurrentAssignment {
	return viewmodels.CurrentAssignment{
		AssignmentVersion: AssignmentToViewModel(r.AssignmentRow, ""),
		PersonName:        r.PersonName,
		UnitName:          r.UnitName,
		JobTitleName:      r.JobTitleName,
	}
}
