package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/orgledger/orgledger/modules/org/domain/unit"
	"github.com/orgledger/orgledger/modules/org/handlers"
	"github.com/orgledger/orgledger/modules/org/infrastructure/persistence"
	"github.com/orgledger/orgledger/modules/org/services"
	"github.com/orgledger/orgledger/pkg/composables"
	"github.com/orgledger/orgledger/pkg/configuration"
	"github.com/orgledger/orgledger/pkg/eventbus"
)

// seed builds a small demo organization: a three-level hierarchy, two
// persons and one assignment lineage with a modification.
func seed(ctx context.Context, cmd *cobra.Command) error {
	conf := configuration.Use()
	repo := persistence.NewOrgRepository()
	bus := eventbus.NewEventPublisher(conf.Logger())
	directory := services.NewDirectoryService(repo, repo, bus)
	assignments := services.NewAssignmentService(repo, bus, services.AssignmentServiceOptions{})
	handlers.RegisterOrgEventHandlers(bus, conf.Logger(), nil)

	unitTypeID, err := seedUnitType(ctx, "department")
	if err != nil {
		return err
	}

	company, err := directory.CreateUnit(ctx, services.UnitInput{Name: "Acme", UnitTypeID: unitTypeID})
	if err != nil {
		return err
	}
	companyID := company.ID()
	engineering, err := directory.CreateUnit(ctx, services.UnitInput{
		Name:       "Engineering",
		UnitTypeID: unitTypeID,
		ParentID:   &companyID,
		Aliases:    []unit.Alias{{Value: "Eng", Language: "en"}},
	})
	if err != nil {
		return err
	}
	engineeringID := engineering.ID()
	if _, err := directory.CreateUnit(ctx, services.UnitInput{
		Name:       "Backend",
		UnitTypeID: unitTypeID,
		ParentID:   &engineeringID,
	}); err != nil {
		return err
	}

	ada, err := directory.CreatePerson(ctx, services.PersonInput{DisplayName: "Ada Lovelace"})
	if err != nil {
		return err
	}
	if _, err := directory.CreatePerson(ctx, services.PersonInput{DisplayName: "Grace Hopper"}); err != nil {
		return err
	}

	engineer, err := directory.CreateJobTitle(ctx, services.JobTitleInput{Name: "Engineer"})
	if err != nil {
		return err
	}

	created, err := assignments.Create(ctx, services.CreateAssignmentInput{
		PersonID:   ada.ID(),
		UnitID:     engineering.ID(),
		JobTitleID: engineer.ID(),
		Percentage: 1,
		ValidFrom:  time.Now().UTC().AddDate(0, -6, 0),
	})
	if err != nil {
		return err
	}
	pct := 0.8
	if _, err := assignments.Modify(ctx, created.LineageID, services.ModifyAssignmentInput{
		EffectiveDate: time.Now().UTC().AddDate(0, -2, 0),
		Percentage:    &pct,
	}); err != nil {
		return err
	}

	cmd.Printf("seeded demo organization, lineage %s\n", created.LineageID)
	return nil
}

func seedUnitType(ctx context.Context, name string) (uuid.UUID, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	var id uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO unit_types (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, name,
	).Scan(&id)
	return id, err
}
