package services_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgledger/orgledger/modules/org/domain/assignment"
	"github.com/orgledger/orgledger/modules/org/domain/events"
	"github.com/orgledger/orgledger/modules/org/services"
	"github.com/orgledger/orgledger/pkg/eventbus"
	"github.com/orgledger/orgledger/pkg/serrors"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedRefs(repo *fakeAssignmentRepo) (personID, unitID, titleID uuid.UUID) {
	personID, unitID, titleID = uuid.New(), uuid.New(), uuid.New()
	repo.persons[personID] = "Ada Lovelace"
	repo.units[unitID] = "Engineering"
	repo.titles[titleID] = "Engineer"
	return personID, unitID, titleID
}

func newAssignmentService(repo *fakeAssignmentRepo, opts services.AssignmentServiceOptions) *services.AssignmentService {
	return services.NewAssignmentService(repo, eventbus.NewEventPublisher(newTestLogger()), opts)
}

func TestAssignmentService_Create(t *testing.T) {
	repo := newFakeAssignmentRepo()
	svc := newAssignmentService(repo, services.AssignmentServiceOptions{})
	personID, unitID, titleID := seedRefs(repo)

	t.Run("opens lineage at version 1", func(t *testing.T) {
		row, err := svc.Create(testCtx(), services.CreateAssignmentInput{
			PersonID:   personID,
			UnitID:     unitID,
			JobTitleID: titleID,
			Percentage: 1,
			ValidFrom:  date(2025, 1, 1),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, row.Version)
		assert.True(t, row.IsCurrent)
		assert.Nil(t, row.ValidTo)
		assert.NotEqual(t, uuid.Nil, row.LineageID)
	})

	t.Run("rejects percentage outside (0,1]", func(t *testing.T) {
		for _, p := range []float64{0, -0.5, 1.01} {
			_, err := svc.Create(testCtx(), services.CreateAssignmentInput{
				PersonID:   personID,
				UnitID:     unitID,
				JobTitleID: titleID,
				Percentage: p,
				ValidFrom:  date(2025, 1, 1),
			})
			require.Error(t, err)
			assert.True(t, serrors.IsKind(err, serrors.KindValidation), "percentage %v", p)
		}
	})

	t.Run("rejects unknown references", func(t *testing.T) {
		_, err := svc.Create(testCtx(), services.CreateAssignmentInput{
			PersonID:   uuid.New(),
			UnitID:     unitID,
			JobTitleID: titleID,
			Percentage: 0.5,
			ValidFrom:  date(2025, 1, 1),
		})
		require.Error(t, err)
		assert.True(t, serrors.IsKind(err, serrors.KindValidation))
	})

	t.Run("rejects title not assignable to unit", func(t *testing.T) {
		otherUnit := uuid.New()
		repo.units[otherUnit] = "Sales"
		repo.assignable[titleID] = []uuid.UUID{otherUnit}
		defer delete(repo.assignable, titleID)

		_, err := svc.Create(testCtx(), services.CreateAssignmentInput{
			PersonID:   personID,
			UnitID:     unitID,
			JobTitleID: titleID,
			Percentage: 0.5,
			ValidFrom:  date(2025, 1, 1),
		})
		require.Error(t, err)
		assert.True(t, serrors.IsKind(err, serrors.KindValidation))
	})
}

func TestAssignmentService_PublishesLifecycleEvents(t *testing.T) {
	repo := newFakeAssignmentRepo()
	bus := eventbus.NewEventPublisher(newTestLogger())
	svc := services.NewAssignmentService(repo, bus, services.AssignmentServiceOptions{})
	personID, unitID, titleID := seedRefs(repo)

	var got []events.AssignmentEventV1
	bus.Subscribe(func(ev events.AssignmentEventV1) { got = append(got, ev) })

	created, err := svc.Create(testCtx(), services.CreateAssignmentInput{
		PersonID:   personID,
		UnitID:     unitID,
		JobTitleID: titleID,
		Percentage: 1,
		ValidFrom:  date(2025, 1, 1),
	})
	require.NoError(t, err)

	half := 0.5
	_, err = svc.Modify(testCtx(), created.LineageID, services.ModifyAssignmentInput{
		EffectiveDate: date(2025, 3, 1),
		Percentage:    &half,
	})
	require.NoError(t, err)

	_, err = svc.Terminate(testCtx(), created.LineageID, date(2025, 6, 30))
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, events.AssignmentCreated, got[0].ChangeType)
	assert.Equal(t, events.AssignmentModified, got[1].ChangeType)
	assert.Equal(t, events.AssignmentTerminated, got[2].ChangeType)
	assert.Equal(t, 1, got[0].Version)
	assert.Equal(t, 2, got[1].Version)
	for _, ev := range got {
		assert.Equal(t, created.LineageID, ev.LineageID)
		assert.Equal(t, personID, ev.PersonID)
	}
}

func TestAssignmentService_Lifecycle(t *testing.T) {
	repo := newFakeAssignmentRepo()
	svc := newAssignmentService(repo, services.AssignmentServiceOptions{})
	personID, unitID, titleID := seedRefs(repo)

	created, err := svc.Create(testCtx(), services.CreateAssignmentInput{
		PersonID:   personID,
		UnitID:     unitID,
		JobTitleID: titleID,
		Percentage: 1,
		ValidFrom:  date(2025, 1, 1),
	})
	require.NoError(t, err)
	lineage := created.LineageID

	pct := 0.5
	modified, err := svc.Modify(testCtx(), lineage, services.ModifyAssignmentInput{
		EffectiveDate: date(2025, 3, 1),
		Percentage:    &pct,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, modified.Version)
	assert.True(t, modified.IsCurrent)
	assert.Equal(t, 0.5, modified.Percentage)
	assert.Equal(t, date(2025, 3, 1), modified.ValidFrom)

	// unchanged attributes carry forward
	assert.Equal(t, created.UnitID, modified.UnitID)
	assert.Equal(t, created.JobTitleID, modified.JobTitleID)

	terminated, err := svc.Terminate(testCtx(), lineage, date(2025, 6, 30))
	require.NoError(t, err)
	assert.Equal(t, 2, terminated.Version)
	assert.False(t, terminated.IsCurrent)
	require.NotNil(t, terminated.ValidTo)
	assert.Equal(t, date(2025, 6, 30), *terminated.ValidTo)

	history, err := svc.GetHistory(testCtx(), lineage)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].Version)
	assert.Equal(t, assignment.StatusTerminated, history[0].Status)
	assert.Equal(t, 1, history[1].Version)
	assert.Equal(t, assignment.StatusHistorical, history[1].Status)
	require.NotNil(t, history[1].ValidTo)
	assert.Equal(t, date(2025, 3, 1), *history[1].ValidTo)

	// the chain invariants hold end to end
	links := make([]assignment.ChainLink, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		h := history[i]
		links = append(links, assignment.ChainLink{
			LineageID: h.LineageID,
			Version:   h.Version,
			IsCurrent: h.IsCurrent,
			ValidFrom: h.ValidFrom,
			ValidTo:   h.ValidTo,
		})
	}
	require.NoError(t, assignment.VerifyChain(links))

	// a terminated lineage has no current version to modify
	_, err = svc.Modify(testCtx(), lineage, services.ModifyAssignmentInput{EffectiveDate: date(2025, 7, 1)})
	require.Error(t, err)
	assert.True(t, serrors.IsKind(err, serrors.KindNotFound))

	_, err = svc.Terminate(testCtx(), lineage, date(2025, 8, 1))
	require.Error(t, err)
	assert.True(t, serrors.IsKind(err, serrors.KindNotFound))
}

func TestAssignmentService_Modify(t *testing.T) {
	t.Run("unknown lineage", func(t *testing.T) {
		repo := newFakeAssignmentRepo()
		svc := newAssignmentService(repo, services.AssignmentServiceOptions{})
		_, err := svc.Modify(testCtx(), uuid.New(), services.ModifyAssignmentInput{EffectiveDate: date(2025, 1, 1)})
		require.Error(t, err)
		assert.True(t, serrors.IsKind(err, serrors.KindNotFound))
	})

	t.Run("effective date before current valid_from", func(t *testing.T) {
		repo := newFakeAssignmentRepo()
		svc := newAssignmentService(repo, services.AssignmentServiceOptions{})
		personID, unitID, titleID := seedRefs(repo)
		created, err := svc.Create(testCtx(), services.CreateAssignmentInput{
			PersonID: personID, UnitID: unitID, JobTitleID: titleID,
			Percentage: 1, ValidFrom: date(2025, 3, 1),
		})
		require.NoError(t, err)

		_, err = svc.Modify(testCtx(), created.LineageID, services.ModifyAssignmentInput{EffectiveDate: date(2025, 2, 1)})
		require.Error(t, err)
		assert.True(t, serrors.IsKind(err, serrors.KindValidation))
	})

	t.Run("expected version mismatch conflicts", func(t *testing.T) {
		repo := newFakeAssignmentRepo()
		svc := newAssignmentService(repo, services.AssignmentServiceOptions{})
		personID, unitID, titleID := seedRefs(repo)
		created, err := svc.Create(testCtx(), services.CreateAssignmentInput{
			PersonID: personID, UnitID: unitID, JobTitleID: titleID,
			Percentage: 1, ValidFrom: date(2025, 1, 1),
		})
		require.NoError(t, err)

		stale := 5
		_, err = svc.Modify(testCtx(), created.LineageID, services.ModifyAssignmentInput{
			EffectiveDate:   date(2025, 2, 1),
			ExpectedVersion: &stale,
		})
		require.Error(t, err)
		assert.True(t, serrors.IsKind(err, serrors.KindConflict))

		match := 1
		next, err := svc.Modify(testCtx(), created.LineageID, services.ModifyAssignmentInput{
			EffectiveDate:   date(2025, 2, 1),
			ExpectedVersion: &match,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, next.Version)
	})

	t.Run("clearing notes", func(t *testing.T) {
		repo := newFakeAssignmentRepo()
		svc := newAssignmentService(repo, services.AssignmentServiceOptions{})
		personID, unitID, titleID := seedRefs(repo)
		notes := "interim cover"
		created, err := svc.Create(testCtx(), services.CreateAssignmentInput{
			PersonID: personID, UnitID: unitID, JobTitleID: titleID,
			Percentage: 1, ValidFrom: date(2025, 1, 1), Notes: &notes,
		})
		require.NoError(t, err)

		var cleared *string
		next, err := svc.Modify(testCtx(), created.LineageID, services.ModifyAssignmentInput{
			EffectiveDate: date(2025, 2, 1),
			Notes:         &cleared,
		})
		require.NoError(t, err)
		assert.Nil(t, next.Notes)
	})
}

func TestAssignmentService_Terminate_BeforeValidFrom(t *testing.T) {
	repo := newFakeAssignmentRepo()
	svc := newAssignmentService(repo, services.AssignmentServiceOptions{})
	personID, unitID, titleID := seedRefs(repo)
	created, err := svc.Create(testCtx(), services.CreateAssignmentInput{
		PersonID: personID, UnitID: unitID, JobTitleID: titleID,
		Percentage: 1, ValidFrom: date(2025, 3, 1),
	})
	require.NoError(t, err)

	_, err = svc.Terminate(testCtx(), created.LineageID, date(2025, 1, 1))
	require.Error(t, err)
	assert.True(t, serrors.IsKind(err, serrors.KindValidation))
}

func TestAssignmentService_GetCurrent(t *testing.T) {
	repo := newFakeAssignmentRepo()
	svc := newAssignmentService(repo, services.AssignmentServiceOptions{})
	personID, unitID, titleID := seedRefs(repo)
	otherUnit := uuid.New()
	repo.units[otherUnit] = "Sales"

	_, err := svc.Create(testCtx(), services.CreateAssignmentInput{
		PersonID: personID, UnitID: unitID, JobTitleID: titleID,
		Percentage: 0.6, ValidFrom: date(2025, 1, 1),
	})
	require.NoError(t, err)
	_, err = svc.Create(testCtx(), services.CreateAssignmentInput{
		PersonID: personID, UnitID: otherUnit, JobTitleID: titleID,
		Percentage: 0.4, ValidFrom: date(2025, 1, 1),
	})
	require.NoError(t, err)

	all, err := svc.GetCurrent(testCtx(), services.CurrentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byUnit, err := svc.GetCurrent(testCtx(), services.CurrentFilter{UnitID: &otherUnit})
	require.NoError(t, err)
	require.Len(t, byUnit, 1)
	assert.Equal(t, "Sales", byUnit[0].UnitName)
	assert.Equal(t, "Ada Lovelace", byUnit[0].PersonName)
}

func TestAssignmentService_GetHistory_UnknownLineage(t *testing.T) {
	repo := newFakeAssignmentRepo()
	svc := newAssignmentService(repo, services.AssignmentServiceOptions{})
	_, err := svc.GetHistory(testCtx(), uuid.New())
	require.Error(t, err)
	assert.True(t, serrors.IsKind(err, serrors.KindNotFound))
}

func TestAssignmentService_GetTimeline(t *testing.T) {
	repo := newFakeAssignmentRepo()
	svc := newAssignmentService(repo, services.AssignmentServiceOptions{})
	personID, unitID, titleID := seedRefs(repo)

	created, err := svc.Create(testCtx(), services.CreateAssignmentInput{
		PersonID: personID, UnitID: unitID, JobTitleID: titleID,
		Percentage: 1, ValidFrom: date(2025, 1, 1),
	})
	require.NoError(t, err)
	pct := 0.8
	_, err = svc.Modify(testCtx(), created.LineageID, services.ModifyAssignmentInput{
		EffectiveDate: date(2025, 4, 1),
		Percentage:    &pct,
	})
	require.NoError(t, err)

	timeline, err := svc.GetTimeline(testCtx(), personID)
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	assert.Equal(t, 1, timeline[0].Version)
	assert.Equal(t, 2, timeline[1].Version)

	_, err = svc.GetTimeline(testCtx(), uuid.New())
	require.Error(t, err)
	assert.True(t, serrors.IsKind(err, serrors.KindNotFound))
}

func TestAssignmentService_AllocationCap(t *testing.T) {
	repo := newFakeAssignmentRepo()
	svc := newAssignmentService(repo, services.AssignmentServiceOptions{MaxTotalAllocation: 1})
	personID, unitID, titleID := seedRefs(repo)
	otherUnit := uuid.New()
	repo.units[otherUnit] = "Sales"

	first, err := svc.Create(testCtx(), services.CreateAssignmentInput{
		PersonID: personID, UnitID: unitID, JobTitleID: titleID,
		Percentage: 0.7, ValidFrom: date(2025, 1, 1),
	})
	require.NoError(t, err)

	_, err = svc.Create(testCtx(), services.CreateAssignmentInput{
		PersonID: personID, UnitID: otherUnit, JobTitleID: titleID,
		Percentage: 0.5, ValidFrom: date(2025, 1, 1),
	})
	require.Error(t, err)
	assert.True(t, serrors.IsKind(err, serrors.KindValidation))

	second, err := svc.Create(testCtx(), services.CreateAssignmentInput{
		PersonID: personID, UnitID: otherUnit, JobTitleID: titleID,
		Percentage: 0.3, ValidFrom: date(2025, 1, 1),
	})
	require.NoError(t, err)

	// raising a lineage's own percentage counts the other lineages only
	pct := 0.6
	_, err = svc.Modify(testCtx(), second.LineageID, services.ModifyAssignmentInput{
		EffectiveDate: date(2025, 2, 1),
		Percentage:    &pct,
	})
	require.Error(t, err)
	assert.True(t, serrors.IsKind(err, serrors.KindValidation))

	okPct := 0.3
	_, err = svc.Modify(testCtx(), first.LineageID, services.ModifyAssignmentInput{
		EffectiveDate: date(2025, 2, 1),
		Percentage:    &okPct,
	})
	require.NoError(t, err)
}
