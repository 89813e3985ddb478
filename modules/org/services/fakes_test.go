package services_test

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/orgledger/orgledger/modules/org/domain/jobtitle"
	"github.com/orgledger/orgledger/modules/org/domain/person"
	"github.com/orgledger/orgledger/modules/org/domain/unit"
	"github.com/orgledger/orgledger/modules/org/services"
	"github.com/orgledger/orgledger/pkg/composables"
)

// stubTx satisfies the transaction surface so service calls join a fake
// transaction instead of opening one against a real pool.
type stubTx struct{}

func (stubTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (stubTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (stubTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func testCtx() context.Context {
	return composables.WithTx(context.Background(), stubTx{})
}

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fakeAssignmentRepo struct {
	rows       []services.AssignmentRow
	persons    map[uuid.UUID]string
	units      map[uuid.UUID]string
	titles     map[uuid.UUID]string
	assignable map[uuid.UUID][]uuid.UUID
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{
		persons:    map[uuid.UUID]string{},
		units:      map[uuid.UUID]string{},
		titles:     map[uuid.UUID]string{},
		assignable: map[uuid.UUID][]uuid.UUID{},
	}
}

func (f *fakeAssignmentRepo) InsertVersion(_ context.Context, in services.AssignmentInsert) (services.AssignmentRow, error) {
	row := services.AssignmentRow{
		ID:          uuid.New(),
		LineageID:   in.LineageID,
		PersonID:    in.PersonID,
		UnitID:      in.UnitID,
		JobTitleID:  in.JobTitleID,
		Percentage:  in.Percentage,
		IsUnitBoss:  in.IsUnitBoss,
		IsAdInterim: in.IsAdInterim,
		Notes:       in.Notes,
		Flags:       in.Flags,
		ValidFrom:   in.ValidFrom,
		ValidTo:     in.ValidTo,
		Version:     in.Version,
		IsCurrent:   in.IsCurrent,
		CreatedAt:   time.Now().UTC(),
	}
	f.rows = append(f.rows, row)
	return row, nil
}

func (f *fakeAssignmentRepo) LockCurrent(_ context.Context, lineageID uuid.UUID) (services.AssignmentRow, error) {
	for _, r := range f.rows {
		if r.LineageID == lineageID && r.IsCurrent {
			return r, nil
		}
	}
	return services.AssignmentRow{}, pgx.ErrNoRows
}

func (f *fakeAssignmentRepo) CloseVersion(_ context.Context, id uuid.UUID, validTo time.Time) error {
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows[i].IsCurrent = false
			t := validTo
			f.rows[i].ValidTo = &t
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeAssignmentRepo) ListVersions(_ context.Context, lineageID uuid.UUID) ([]services.AssignmentRow, error) {
	var out []services.AssignmentRow
	for _, r := range f.rows {
		if r.LineageID == lineageID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (f *fakeAssignmentRepo) ListCurrent(_ context.Context, flt services.CurrentFilter) ([]services.CurrentAssignmentRow, error) {
	var out []services.CurrentAssignmentRow
	for _, r := range f.rows {
		if !r.IsCurrent {
			continue
		}
		if flt.PersonID != nil && r.PersonID != *flt.PersonID {
			continue
		}
		if flt.UnitID != nil && r.UnitID != *flt.UnitID {
			continue
		}
		if flt.JobTitleID != nil && r.JobTitleID != *flt.JobTitleID {
			continue
		}
		out = append(out, services.CurrentAssignmentRow{
			AssignmentRow: r,
			PersonName:    f.persons[r.PersonID],
			UnitName:      f.units[r.UnitID],
			JobTitleName:  f.titles[r.JobTitleID],
		})
	}
	return out, nil
}

func (f *fakeAssignmentRepo) ListTimelineByPerson(_ context.Context, personID uuid.UUID) ([]services.AssignmentRow, error) {
	var out []services.AssignmentRow
	for _, r := range f.rows {
		if r.PersonID == personID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ValidFrom.Equal(out[j].ValidFrom) {
			return out[i].ValidFrom.Before(out[j].ValidFrom)
		}
		return out[i].Version < out[j].Version
	})
	return out, nil
}

func (f *fakeAssignmentRepo) SumCurrentAllocation(_ context.Context, personID, excludeLineage uuid.UUID) (float64, error) {
	var sum float64
	for _, r := range f.rows {
		if r.IsCurrent && r.PersonID == personID && r.LineageID != excludeLineage {
			sum += r.Percentage
		}
	}
	return sum, nil
}

func (f *fakeAssignmentRepo) PersonExists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := f.persons[id]
	return ok, nil
}

func (f *fakeAssignmentRepo) UnitExists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := f.units[id]
	return ok, nil
}

func (f *fakeAssignmentRepo) JobTitleExists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := f.titles[id]
	return ok, nil
}

func (f *fakeAssignmentRepo) JobTitleAssignableToUnit(_ context.Context, jobTitleID, unitID uuid.UUID) (bool, error) {
	allowed := f.assignable[jobTitleID]
	if len(allowed) == 0 {
		return true, nil
	}
	for _, id := range allowed {
		if id == unitID {
			return true, nil
		}
	}
	return false, nil
}

type fakeUnitRepo struct {
	rows  []services.UnitRow
	lists int
}

func (f *fakeUnitRepo) ListUnits(context.Context) ([]services.UnitRow, error) {
	f.lists++
	out := make([]services.UnitRow, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeUnitRepo) UpdateParent(_ context.Context, unitID uuid.UUID, parentID *uuid.UUID) error {
	for i := range f.rows {
		if f.rows[i].ID == unitID {
			f.rows[i].ParentID = parentID
			return nil
		}
	}
	return pgx.ErrNoRows
}

type fakeDirectoryRepo struct {
	units        map[uuid.UUID]unit.Unit
	persons      map[uuid.UUID]person.Person
	titles       map[uuid.UUID]jobtitle.JobTitle
	assignable   map[uuid.UUID][]uuid.UUID
	assignments  *fakeAssignmentRepo
	unitChildren map[uuid.UUID]int
}

func newFakeDirectoryRepo(assignments *fakeAssignmentRepo) *fakeDirectoryRepo {
	return &fakeDirectoryRepo{
		units:        map[uuid.UUID]unit.Unit{},
		persons:      map[uuid.UUID]person.Person{},
		titles:       map[uuid.UUID]jobtitle.JobTitle{},
		assignable:   map[uuid.UUID][]uuid.UUID{},
		assignments:  assignments,
		unitChildren: map[uuid.UUID]int{},
	}
}

func (f *fakeDirectoryRepo) CreateUnit(_ context.Context, u unit.Unit) (unit.Unit, error) {
	f.units[u.ID()] = u
	return u, nil
}

func (f *fakeDirectoryRepo) UpdateUnit(_ context.Context, u unit.Unit) (unit.Unit, error) {
	f.units[u.ID()] = u
	return u, nil
}

func (f *fakeDirectoryRepo) DeleteUnit(_ context.Context, id uuid.UUID) error {
	delete(f.units, id)
	return nil
}

func (f *fakeDirectoryRepo) GetUnit(_ context.Context, id uuid.UUID) (unit.Unit, error) {
	u, ok := f.units[id]
	if !ok {
		return unit.Unit{}, unit.ErrNotFound
	}
	return u, nil
}

func (f *fakeDirectoryRepo) CountUnitChildren(_ context.Context, id uuid.UUID) (int, error) {
	return f.unitChildren[id], nil
}

func (f *fakeDirectoryRepo) CountCurrentByUnit(_ context.Context, id uuid.UUID) (int, error) {
	n := 0
	for _, r := range f.assignments.rows {
		if r.IsCurrent && r.UnitID == id {
			n++
		}
	}
	return n, nil
}

func (f *fakeDirectoryRepo) CreatePerson(_ context.Context, p person.Person) (person.Person, error) {
	f.persons[p.ID()] = p
	return p, nil
}

func (f *fakeDirectoryRepo) UpdatePerson(_ context.Context, p person.Person) (person.Person, error) {
	f.persons[p.ID()] = p
	return p, nil
}

func (f *fakeDirectoryRepo) DeletePerson(_ context.Context, id uuid.UUID) error {
	delete(f.persons, id)
	return nil
}

func (f *fakeDirectoryRepo) GetPerson(_ context.Context, id uuid.UUID) (person.Person, error) {
	p, ok := f.persons[id]
	if !ok {
		return person.Person{}, person.ErrNotFound
	}
	return p, nil
}

func (f *fakeDirectoryRepo) ListPersons(context.Context) ([]person.Person, error) {
	out := make([]person.Person, 0, len(f.persons))
	for _, p := range f.persons {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeDirectoryRepo) CountCurrentByPerson(_ context.Context, id uuid.UUID) (int, error) {
	n := 0
	for _, r := range f.assignments.rows {
		if r.IsCurrent && r.PersonID == id {
			n++
		}
	}
	return n, nil
}

func (f *fakeDirectoryRepo) CreateJobTitle(_ context.Context, j jobtitle.JobTitle) (jobtitle.JobTitle, error) {
	f.titles[j.ID()] = j
	return j, nil
}

func (f *fakeDirectoryRepo) UpdateJobTitle(_ context.Context, j jobtitle.JobTitle) (jobtitle.JobTitle, error) {
	f.titles[j.ID()] = j
	return j, nil
}

func (f *fakeDirectoryRepo) DeleteJobTitle(_ context.Context, id uuid.UUID) error {
	delete(f.titles, id)
	return nil
}

func (f *fakeDirectoryRepo) GetJobTitle(_ context.Context, id uuid.UUID) (jobtitle.JobTitle, error) {
	j, ok := f.titles[id]
	if !ok {
		return jobtitle.JobTitle{}, jobtitle.ErrNotFound
	}
	return j, nil
}

func (f *fakeDirectoryRepo) ListJobTitles(context.Context) ([]jobtitle.JobTitle, error) {
	out := make([]jobtitle.JobTitle, 0, len(f.titles))
	for _, j := range f.titles {
		out = append(out, j)
	}
	return out, nil
}

func (f *fakeDirectoryRepo) SetAssignableUnits(_ context.Context, jobTitleID uuid.UUID, unitIDs []uuid.UUID) error {
	f.assignable[jobTitleID] = unitIDs
	return nil
}

func (f *fakeDirectoryRepo) CountCurrentByJobTitle(_ context.Context, id uuid.UUID) (int, error) {
	n := 0
	for _, r := range f.assignments.rows {
		if r.IsCurrent && r.JobTitleID == id {
			n++
		}
	}
	return n, nil
}
