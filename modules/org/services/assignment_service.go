package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/orgledger/orgledger/modules/org/domain/assignment"
	"github.com/orgledger/orgledger/modules/org/domain/events"
	"github.com/orgledger/orgledger/pkg/composables"
	"github.com/orgledger/orgledger/pkg/eventbus"
	"github.com/orgledger/orgledger/pkg/serrors"
)

// AssignmentRow is one stored version of a lineage.
type AssignmentRow struct {
	ID          uuid.UUID
	LineageID   uuid.UUID
	PersonID    uuid.UUID
	UnitID      uuid.UUID
	JobTitleID  uuid.UUID
	Percentage  float64
	IsUnitBoss  bool
	IsAdInterim bool
	Notes       *string
	Flags       *string
	ValidFrom   time.Time
	ValidTo     *time.Time
	Version     int
	IsCurrent   bool
	CreatedAt   time.Time
}

// AssignmentVersionView is a version together with its derived status.
type AssignmentVersionView struct {
	AssignmentRow
	Status assignment.Status
}

// CurrentAssignmentRow joins a current version with entity display names.
type CurrentAssignmentRow struct {
	AssignmentRow
	PersonName   string
	UnitName     string
	JobTitleName string
}

// CurrentFilter narrows the current-assignments listing. Nil fields match all.
type CurrentFilter struct {
	PersonID   *uuid.UUID
	UnitID     *uuid.UUID
	JobTitleID *uuid.UUID
}

type AssignmentInsert struct {
	LineageID   uuid.UUID
	PersonID    uuid.UUID
	UnitID      uuid.UUID
	JobTitleID  uuid.UUID
	Percentage  float64
	IsUnitBoss  bool
	IsAdInterim bool
	Notes       *string
	Flags       *string
	ValidFrom   time.Time
	ValidTo     *time.Time
	Version     int
	IsCurrent   bool
}

type AssignmentRepository interface {
	InsertVersion(ctx context.Context, in AssignmentInsert) (AssignmentRow, error)
	// LockCurrent locks the current version of a lineage for update.
	// Returns pgx.ErrNoRows when the lineage is unknown or terminated.
	LockCurrent(ctx context.Context, lineageID uuid.UUID) (AssignmentRow, error)
	CloseVersion(ctx context.Context, id uuid.UUID, validTo time.Time) error
	ListVersions(ctx context.Context, lineageID uuid.UUID) ([]AssignmentRow, error)
	ListCurrent(ctx context.Context, f CurrentFilter) ([]CurrentAssignmentRow, error)
	ListTimelineByPerson(ctx context.Context, personID uuid.UUID) ([]AssignmentRow, error)
	// SumCurrentAllocation totals current percentages for a person, skipping
	// the excluded lineage (uuid.Nil excludes nothing).
	SumCurrentAllocation(ctx context.Context, personID, excludeLineage uuid.UUID) (float64, error)
	PersonExists(ctx context.Context, id uuid.UUID) (bool, error)
	UnitExists(ctx context.Context, id uuid.UUID) (bool, error)
	JobTitleExists(ctx context.Context, id uuid.UUID) (bool, error)
	JobTitleAssignableToUnit(ctx context.Context, jobTitleID, unitID uuid.UUID) (bool, error)
}

type AssignmentServiceOptions struct {
	// MaxTotalAllocation caps the summed current percentage per person.
	// Zero disables the cap.
	MaxTotalAllocation float64
}

type AssignmentService struct {
	repo AssignmentRepository
	bus  eventbus.EventBus
	opts AssignmentServiceOptions
}

func NewAssignmentService(repo AssignmentRepository, bus eventbus.EventBus, opts AssignmentServiceOptions) *AssignmentService {
	return &AssignmentService{repo: repo, bus: bus, opts: opts}
}

type CreateAssignmentInput struct {
	PersonID    uuid.UUID
	UnitID      uuid.UUID
	JobTitleID  uuid.UUID
	Percentage  float64
	IsUnitBoss  bool
	IsAdInterim bool
	Notes       *string
	Flags       *string
	ValidFrom   time.Time
}

// Create opens a new lineage with version 1 as its current version.
func (s *AssignmentService) Create(ctx context.Context, in CreateAssignmentInput) (*AssignmentRow, error) {
	fields := map[string]string{}
	if in.PersonID == uuid.Nil {
		fields["person_id"] = "required"
	}
	if in.UnitID == uuid.Nil {
		fields["unit_id"] = "required"
	}
	if in.JobTitleID == uuid.Nil {
		fields["job_title_id"] = "required"
	}
	if in.ValidFrom.IsZero() {
		fields["valid_from"] = "required"
	}
	validatePercentage(in.Percentage, fields)
	if len(fields) > 0 {
		return nil, serrors.NewValidation("ORG_INVALID_BODY", "invalid assignment", fields)
	}

	row, err := composables.InTxResult(ctx, func(txCtx context.Context) (AssignmentRow, error) {
		if err := s.checkReferences(txCtx, in.PersonID, in.UnitID, in.JobTitleID); err != nil {
			return AssignmentRow{}, err
		}
		lineageID := uuid.New()
		if err := s.checkAllocation(txCtx, in.PersonID, lineageID, in.Percentage); err != nil {
			return AssignmentRow{}, err
		}
		created, err := s.repo.InsertVersion(txCtx, AssignmentInsert{
			LineageID:   lineageID,
			PersonID:    in.PersonID,
			UnitID:      in.UnitID,
			JobTitleID:  in.JobTitleID,
			Percentage:  in.Percentage,
			IsUnitBoss:  in.IsUnitBoss,
			IsAdInterim: in.IsAdInterim,
			Notes:       in.Notes,
			Flags:       in.Flags,
			ValidFrom:   in.ValidFrom,
			Version:     1,
			IsCurrent:   true,
		})
		if err != nil {
			return AssignmentRow{}, mapRepoError(err)
		}
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(events.AssignmentCreated, &row)
	return &row, nil
}

type ModifyAssignmentInput struct {
	EffectiveDate time.Time
	Percentage    *float64
	IsUnitBoss    *bool
	IsAdInterim   *bool
	Notes         **string
	Flags         **string
	// ExpectedVersion enables optimistic concurrency: when set, the current
	// version number must match or the call fails with a conflict.
	ExpectedVersion *int
}

// Modify closes the current version at the effective date and opens the next
// version with the changed attributes carried forward.
func (s *AssignmentService) Modify(ctx context.Context, lineageID uuid.UUID, in ModifyAssignmentInput) (*AssignmentRow, error) {
	if in.EffectiveDate.IsZero() {
		return nil, serrors.NewValidation("ORG_INVALID_BODY", "invalid modification", map[string]string{"effective_date": "required"})
	}
	if in.Percentage != nil {
		fields := map[string]string{}
		validatePercentage(*in.Percentage, fields)
		if len(fields) > 0 {
			return nil, serrors.NewValidation("ORG_INVALID_BODY", "invalid modification", fields)
		}
	}

	row, err := composables.InTxResult(ctx, func(txCtx context.Context) (AssignmentRow, error) {
		current, err := s.lockCurrent(txCtx, lineageID)
		if err != nil {
			return AssignmentRow{}, err
		}
		if in.ExpectedVersion != nil && *in.ExpectedVersion != current.Version {
			return AssignmentRow{}, serrors.NewConflict("ORG_VERSION_CONFLICT", "assignment was modified concurrently")
		}
		if in.EffectiveDate.Before(current.ValidFrom) {
			return AssignmentRow{}, serrors.NewValidation(
				"ORG_EFFECTIVE_BEFORE_CURRENT",
				"effective date predates the current version",
				map[string]string{"effective_date": "must not be before the current version's valid_from"},
			)
		}

		next := AssignmentInsert{
			LineageID:   current.LineageID,
			PersonID:    current.PersonID,
			UnitID:      current.UnitID,
			JobTitleID:  current.JobTitleID,
			Percentage:  current.Percentage,
			IsUnitBoss:  current.IsUnitBoss,
			IsAdInterim: current.IsAdInterim,
			Notes:       current.Notes,
			Flags:       current.Flags,
			ValidFrom:   in.EffectiveDate,
			Version:     current.Version + 1,
			IsCurrent:   true,
		}
		if in.Percentage != nil {
			next.Percentage = *in.Percentage
		}
		if in.IsUnitBoss != nil {
			next.IsUnitBoss = *in.IsUnitBoss
		}
		if in.IsAdInterim != nil {
			next.IsAdInterim = *in.IsAdInterim
		}
		if in.Notes != nil {
			next.Notes = *in.Notes
		}
		if in.Flags != nil {
			next.Flags = *in.Flags
		}

		if next.Percentage != current.Percentage {
			if err := s.checkAllocation(txCtx, current.PersonID, current.LineageID, next.Percentage); err != nil {
				return AssignmentRow{}, err
			}
		}
		if err := s.repo.CloseVersion(txCtx, current.ID, in.EffectiveDate); err != nil {
			return AssignmentRow{}, mapRepoError(err)
		}
		created, err := s.repo.InsertVersion(txCtx, next)
		if err != nil {
			return AssignmentRow{}, mapRepoError(err)
		}
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(events.AssignmentModified, &row)
	return &row, nil
}

// Terminate closes the current version without opening a successor. The
// closed version keeps its version number and becomes the lineage's
// terminated tail.
func (s *AssignmentService) Terminate(ctx context.Context, lineageID uuid.UUID, effectiveDate time.Time) (*AssignmentRow, error) {
	if effectiveDate.IsZero() {
		return nil, serrors.NewValidation("ORG_INVALID_BODY", "invalid termination", map[string]string{"effective_date": "required"})
	}

	row, err := composables.InTxResult(ctx, func(txCtx context.Context) (AssignmentRow, error) {
		current, err := s.lockCurrent(txCtx, lineageID)
		if err != nil {
			return AssignmentRow{}, err
		}
		if effectiveDate.Before(current.ValidFrom) {
			return AssignmentRow{}, serrors.NewValidation(
				"ORG_EFFECTIVE_BEFORE_CURRENT",
				"effective date predates the current version",
				map[string]string{"effective_date": "must not be before the current version's valid_from"},
			)
		}
		if err := s.repo.CloseVersion(txCtx, current.ID, effectiveDate); err != nil {
			return AssignmentRow{}, mapRepoError(err)
		}
		current.IsCurrent = false
		current.ValidTo = &effectiveDate
		return current, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(events.AssignmentTerminated, &row)
	return &row, nil
}

// GetCurrent lists current versions, optionally filtered by person, unit or
// job title.
func (s *AssignmentService) GetCurrent(ctx context.Context, f CurrentFilter) ([]CurrentAssignmentRow, error) {
	rows, err := s.repo.ListCurrent(ctx, f)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return rows, nil
}

// GetHistory returns every version of a lineage, newest first, each with its
// derived status.
func (s *AssignmentService) GetHistory(ctx context.Context, lineageID uuid.UUID) ([]AssignmentVersionView, error) {
	rows, err := s.repo.ListVersions(ctx, lineageID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if len(rows) == 0 {
		return nil, serrors.NewNotFound("ORG_LINEAGE_NOT_FOUND", "assignment lineage not found")
	}
	latest := rows[0].Version
	for _, r := range rows {
		if r.Version > latest {
			latest = r.Version
		}
	}
	views := make([]AssignmentVersionView, 0, len(rows))
	for _, r := range rows {
		views = append(views, AssignmentVersionView{
			AssignmentRow: r,
			Status:        assignment.DeriveStatus(r.IsCurrent, r.Version == latest, r.ValidTo),
		})
	}
	return views, nil
}

// GetTimeline returns all versions across all of a person's lineages, ordered
// by valid_from then version.
func (s *AssignmentService) GetTimeline(ctx context.Context, personID uuid.UUID) ([]AssignmentRow, error) {
	exists, err := s.repo.PersonExists(ctx, personID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !exists {
		return nil, serrors.NewNotFound("ORG_PERSON_NOT_FOUND", "person not found")
	}
	rows, err := s.repo.ListTimelineByPerson(ctx, personID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return rows, nil
}

func (s *AssignmentService) lockCurrent(ctx context.Context, lineageID uuid.UUID) (AssignmentRow, error) {
	if lineageID == uuid.Nil {
		return AssignmentRow{}, serrors.NewValidation("ORG_INVALID_BODY", "invalid lineage id", map[string]string{"lineage_id": "required"})
	}
	current, err := s.repo.LockCurrent(ctx, lineageID)
	if err != nil {
		mapped := mapRepoError(err)
		if serrors.IsKind(mapped, serrors.KindNotFound) {
			return AssignmentRow{}, serrors.NewNotFound("ORG_NO_CURRENT_VERSION", "lineage has no current version")
		}
		return AssignmentRow{}, mapped
	}
	return current, nil
}

func (s *AssignmentService) checkReferences(ctx context.Context, personID, unitID, jobTitleID uuid.UUID) error {
	ok, err := s.repo.PersonExists(ctx, personID)
	if err != nil {
		return mapRepoError(err)
	}
	if !ok {
		return serrors.NewValidation("ORG_REF_NOT_FOUND", "referenced person does not exist", map[string]string{"person_id": personID.String()})
	}
	ok, err = s.repo.UnitExists(ctx, unitID)
	if err != nil {
		return mapRepoError(err)
	}
	if !ok {
		return serrors.NewValidation("ORG_REF_NOT_FOUND", "referenced unit does not exist", map[string]string{"unit_id": unitID.String()})
	}
	ok, err = s.repo.JobTitleExists(ctx, jobTitleID)
	if err != nil {
		return mapRepoError(err)
	}
	if !ok {
		return serrors.NewValidation("ORG_REF_NOT_FOUND", "referenced job title does not exist", map[string]string{"job_title_id": jobTitleID.String()})
	}
	ok, err = s.repo.JobTitleAssignableToUnit(ctx, jobTitleID, unitID)
	if err != nil {
		return mapRepoError(err)
	}
	if !ok {
		return serrors.NewValidation("ORG_TITLE_NOT_ASSIGNABLE", "job title is not assignable to this unit", map[string]string{
			"job_title_id": jobTitleID.String(),
			"unit_id":      unitID.String(),
		})
	}
	return nil
}

func (s *AssignmentService) checkAllocation(ctx context.Context, personID, excludeLineage uuid.UUID, percentage float64) error {
	if s.opts.MaxTotalAllocation <= 0 {
		return nil
	}
	sum, err := s.repo.SumCurrentAllocation(ctx, personID, excludeLineage)
	if err != nil {
		return mapRepoError(err)
	}
	if sum+percentage > s.opts.MaxTotalAllocation {
		return serrors.NewValidation("ORG_ALLOCATION_EXCEEDED", "total allocation exceeds the configured cap", map[string]string{
			"percentage": "sum of current allocations would exceed the cap",
		})
	}
	return nil
}

func (s *AssignmentService) publish(changeType string, row *AssignmentRow) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.AssignmentEventV1{
		ChangeType: changeType,
		LineageID:  row.LineageID,
		PersonID:   row.PersonID,
		UnitID:     row.UnitID,
		Version:    row.Version,
		Effective:  row.ValidFrom,
		OccurredAt: time.Now().UTC(),
	})
}

func validatePercentage(p float64, fields map[string]string) {
	if p <= 0 || p > 1 {
		fields["percentage"] = "must be greater than 0 and at most 1"
	}
}
