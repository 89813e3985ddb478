package handlers_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgledger/orgledger/modules/org/domain/events"
	"github.com/orgledger/orgledger/modules/org/handlers"
	"github.com/orgledger/orgledger/modules/org/services"
	"github.com/orgledger/orgledger/pkg/eventbus"
)

type staticUnitRepo struct {
	rows  []services.UnitRow
	lists int
}

func (r *staticUnitRepo) ListUnits(context.Context) ([]services.UnitRow, error) {
	r.lists++
	out := make([]services.UnitRow, len(r.rows))
	copy(out, r.rows)
	return out, nil
}

func (r *staticUnitRepo) UpdateParent(context.Context, uuid.UUID, *uuid.UUID) error {
	return nil
}

func TestOrgEventsHandler_AssignmentAudit(t *testing.T) {
	log, hook := test.NewNullLogger()
	bus := eventbus.NewEventPublisher(log)
	handlers.RegisterOrgEventHandlers(bus, log, nil)
	require.Equal(t, 2, bus.SubscribersCount())

	ev := events.AssignmentEventV1{
		ChangeType: events.AssignmentCreated,
		LineageID:  uuid.New(),
		PersonID:   uuid.New(),
		UnitID:     uuid.New(),
		Version:    1,
		Effective:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		OccurredAt: time.Now().UTC(),
	}
	bus.Publish(ev)

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "assignment changed", entry.Message)
	assert.Equal(t, events.AssignmentCreated, entry.Data["change"])
	assert.Equal(t, ev.LineageID, entry.Data["lineage"])
	assert.Equal(t, 1, entry.Data["version"])
}

func TestOrgEventsHandler_UnitChangeDropsSnapshot(t *testing.T) {
	log, hook := test.NewNullLogger()
	bus := eventbus.NewEventPublisher(log)

	root := services.UnitRow{ID: uuid.New(), Name: "Company", UnitTypeID: uuid.New()}
	child := services.UnitRow{ID: uuid.New(), Name: "Engineering", UnitTypeID: uuid.New(), ParentID: &root.ID}
	repo := &staticUnitRepo{rows: []services.UnitRow{root, child}}
	hierarchy := services.NewHierarchyService(repo, bus)
	handlers.RegisterOrgEventHandlers(bus, log, hierarchy)

	ctx := context.Background()
	_, err := hierarchy.GetChildren(ctx, root.ID)
	require.NoError(t, err)
	_, err = hierarchy.GetAncestors(ctx, child.ID)
	require.NoError(t, err)
	require.Equal(t, 1, repo.lists)

	bus.Publish(events.UnitEventV1{
		ChangeType: events.UnitCreated,
		UnitID:     uuid.New(),
		OccurredAt: time.Now().UTC(),
	})

	_, err = hierarchy.GetChildren(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.lists, "a published unit change rebuilds the snapshot")

	require.NotEmpty(t, hook.Entries)
	assert.Equal(t, "unit changed", hook.LastEntry().Message)
	assert.Equal(t, events.UnitCreated, hook.LastEntry().Data["change"])
}
