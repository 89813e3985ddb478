package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orgledger/orgledger/modules/org/domain/events"
	"github.com/orgledger/orgledger/modules/org/domain/jobtitle"
	"github.com/orgledger/orgledger/modules/org/domain/person"
	"github.com/orgledger/orgledger/modules/org/domain/unit"
	"github.com/orgledger/orgledger/pkg/composables"
	"github.com/orgledger/orgledger/pkg/eventbus"
	"github.com/orgledger/orgledger/pkg/serrors"
)

type DirectoryRepository interface {
	CreateUnit(ctx context.Context, u unit.Unit) (unit.Unit, error)
	UpdateUnit(ctx context.Context, u unit.Unit) (unit.Unit, error)
	DeleteUnit(ctx context.Context, id uuid.UUID) error
	GetUnit(ctx context.Context, id uuid.UUID) (unit.Unit, error)
	CountUnitChildren(ctx context.Context, id uuid.UUID) (int, error)
	CountCurrentByUnit(ctx context.Context, id uuid.UUID) (int, error)

	CreatePerson(ctx context.Context, p person.Person) (person.Person, error)
	UpdatePerson(ctx context.Context, p person.Person) (person.Person, error)
	DeletePerson(ctx context.Context, id uuid.UUID) error
	GetPerson(ctx context.Context, id uuid.UUID) (person.Person, error)
	ListPersons(ctx context.Context) ([]person.Person, error)
	CountCurrentByPerson(ctx context.Context, id uuid.UUID) (int, error)

	CreateJobTitle(ctx context.Context, j jobtitle.JobTitle) (jobtitle.JobTitle, error)
	UpdateJobTitle(ctx context.Context, j jobtitle.JobTitle) (jobtitle.JobTitle, error)
	DeleteJobTitle(ctx context.Context, id uuid.UUID) error
	GetJobTitle(ctx context.Context, id uuid.UUID) (jobtitle.JobTitle, error)
	ListJobTitles(ctx context.Context) ([]jobtitle.JobTitle, error)
	SetAssignableUnits(ctx context.Context, jobTitleID uuid.UUID, unitIDs []uuid.UUID) error
	CountCurrentByJobTitle(ctx context.Context, id uuid.UUID) (int, error)
}

// DirectoryService owns the entity catalog around the versioning engine:
// units, persons and job titles, plus the job-title/unit relation.
type DirectoryService struct {
	repo  DirectoryRepository
	units UnitRepository
	bus   eventbus.EventBus
}

func NewDirectoryService(repo DirectoryRepository, units UnitRepository, bus eventbus.EventBus) *DirectoryService {
	return &DirectoryService{repo: repo, units: units, bus: bus}
}

type UnitInput struct {
	Name       string
	ShortName  *string
	UnitTypeID uuid.UUID
	ParentID   *uuid.UUID
	StartDate  *time.Time
	EndDate    *time.Time
	Aliases    []unit.Alias
}

func (in UnitInput) validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "required"
	}
	if in.UnitTypeID == uuid.Nil {
		fields["unit_type_id"] = "required"
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		fields["end_date"] = "must not be before start_date"
	}
	if len(fields) > 0 {
		return serrors.NewValidation("ORG_INVALID_BODY", "invalid unit", fields)
	}
	return nil
}

func (s *DirectoryService) CreateUnit(ctx context.Context, in UnitInput) (unit.Unit, error) {
	if err := in.validate(); err != nil {
		return unit.Unit{}, err
	}
	created, err := composables.InTxResult(ctx, func(txCtx context.Context) (unit.Unit, error) {
		if err := s.checkParent(txCtx, in.ParentID); err != nil {
			return unit.Unit{}, err
		}
		u := unit.Hydrate(uuid.New(), in.Name, in.ShortName, in.UnitTypeID, in.ParentID, in.StartDate, in.EndDate, in.Aliases, time.Time{}, time.Time{})
		out, err := s.repo.CreateUnit(txCtx, u)
		if err != nil {
			return unit.Unit{}, mapRepoError(err)
		}
		return out, nil
	})
	if err != nil {
		return unit.Unit{}, err
	}
	if s.bus != nil {
		s.bus.Publish(events.UnitEventV1{
			ChangeType:  events.UnitCreated,
			UnitID:      created.ID(),
			NewParentID: created.ParentID(),
			OccurredAt:  time.Now().UTC(),
		})
	}
	return created, nil
}

// UpdateUnit replaces a unit's attributes. The parent pointer is not touched
// here; moving a unit goes through HierarchyService.MoveUnit so the cycle
// checks always run.
func (s *DirectoryService) UpdateUnit(ctx context.Context, id uuid.UUID, in UnitInput) (unit.Unit, error) {
	if err := in.validate(); err != nil {
		return unit.Unit{}, err
	}
	return composables.InTxResult(ctx, func(txCtx context.Context) (unit.Unit, error) {
		existing, err := s.getUnit(txCtx, id)
		if err != nil {
			return unit.Unit{}, err
		}
		updated := unit.Hydrate(
			existing.ID(), in.Name, in.ShortName, in.UnitTypeID, existing.ParentID(),
			in.StartDate, in.EndDate, in.Aliases, existing.CreatedAt(), existing.UpdatedAt(),
		)
		out, err := s.repo.UpdateUnit(txCtx, updated)
		if err != nil {
			return unit.Unit{}, mapRepoError(err)
		}
		return out, nil
	})
}

// DeleteUnit refuses while the unit still has children or current
// assignments.
func (s *DirectoryService) DeleteUnit(ctx context.Context, id uuid.UUID) error {
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		if _, err := s.getUnit(txCtx, id); err != nil {
			return err
		}
		children, err := s.repo.CountUnitChildren(txCtx, id)
		if err != nil {
			return mapRepoError(err)
		}
		if children > 0 {
			return serrors.NewReferentialIntegrity("ORG_UNIT_HAS_CHILDREN", "unit still has child units")
		}
		assigned, err := s.repo.CountCurrentByUnit(txCtx, id)
		if err != nil {
			return mapRepoError(err)
		}
		if assigned > 0 {
			return serrors.NewReferentialIntegrity("ORG_UNIT_IN_USE", "unit still has current assignments")
		}
		return mapRepoError(s.repo.DeleteUnit(txCtx, id))
	})
	if err != nil {
		return err
	}
	if s.bus != nil {
		s.bus.Publish(events.UnitEventV1{ChangeType: events.UnitDeleted, UnitID: id, OccurredAt: time.Now().UTC()})
	}
	return nil
}

func (s *DirectoryService) GetUnit(ctx context.Context, id uuid.UUID) (unit.Unit, error) {
	return s.getUnit(ctx, id)
}

func (s *DirectoryService) ListUnits(ctx context.Context) ([]UnitRow, error) {
	rows, err := s.units.ListUnits(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return rows, nil
}

type PersonInput struct {
	DisplayName string
	FirstName   *string
	LastName    *string
	Pernr       *string
	Email       *string
	AvatarURL   *string
}

func (in PersonInput) validate() error {
	if strings.TrimSpace(in.DisplayName) == "" {
		return serrors.NewValidation("ORG_INVALID_BODY", "invalid person", map[string]string{"display_name": "required"})
	}
	return nil
}

func (s *DirectoryService) CreatePerson(ctx context.Context, in PersonInput) (person.Person, error) {
	if err := in.validate(); err != nil {
		return person.Person{}, err
	}
	p := person.Hydrate(uuid.New(), in.DisplayName, in.FirstName, in.LastName, in.Pernr, in.Email, in.AvatarURL, time.Time{}, time.Time{})
	out, err := s.repo.CreatePerson(ctx, p)
	if err != nil {
		return person.Person{}, mapRepoError(err)
	}
	return out, nil
}

func (s *DirectoryService) UpdatePerson(ctx context.Context, id uuid.UUID, in PersonInput) (person.Person, error) {
	if err := in.validate(); err != nil {
		return person.Person{}, err
	}
	return composables.InTxResult(ctx, func(txCtx context.Context) (person.Person, error) {
		existing, err := s.getPerson(txCtx, id)
		if err != nil {
			return person.Person{}, err
		}
		updated := person.Hydrate(existing.ID(), in.DisplayName, in.FirstName, in.LastName, in.Pernr, in.Email, in.AvatarURL, existing.CreatedAt(), existing.UpdatedAt())
		out, err := s.repo.UpdatePerson(txCtx, updated)
		if err != nil {
			return person.Person{}, mapRepoError(err)
		}
		return out, nil
	})
}

// DeletePerson refuses while the person still has current assignments.
// Terminated history keeps the person record alive through a plain FK, which
// surfaces as ReferentialIntegrityError from the constraint backstop.
func (s *DirectoryService) DeletePerson(ctx context.Context, id uuid.UUID) error {
	return composables.InTx(ctx, func(txCtx context.Context) error {
		if _, err := s.getPerson(txCtx, id); err != nil {
			return err
		}
		n, err := s.repo.CountCurrentByPerson(txCtx, id)
		if err != nil {
			return mapRepoError(err)
		}
		if n > 0 {
			return serrors.NewReferentialIntegrity("ORG_PERSON_IN_USE", "person still has current assignments")
		}
		return mapRepoError(s.repo.DeletePerson(txCtx, id))
	})
}

func (s *DirectoryService) GetPerson(ctx context.Context, id uuid.UUID) (person.Person, error) {
	return s.getPerson(ctx, id)
}

func (s *DirectoryService) ListPersons(ctx context.Context) ([]person.Person, error) {
	out, err := s.repo.ListPersons(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return out, nil
}

type JobTitleInput struct {
	Name      string
	Code      *string
	Aliases   []jobtitle.Alias
	StartDate *time.Time
	EndDate   *time.Time
}

func (in JobTitleInput) validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "required"
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		fields["end_date"] = "must not precede start_date"
	}
	if len(fields) > 0 {
		return serrors.NewValidation("ORG_INVALID_BODY", "invalid job title", fields)
	}
	return nil
}

func (s *DirectoryService) CreateJobTitle(ctx context.Context, in JobTitleInput) (jobtitle.JobTitle, error) {
	if err := in.validate(); err != nil {
		return jobtitle.JobTitle{}, err
	}
	j := jobtitle.Hydrate(uuid.New(), in.Name, in.Code, in.Aliases, nil, in.StartDate, in.EndDate, time.Time{}, time.Time{})
	out, err := s.repo.CreateJobTitle(ctx, j)
	if err != nil {
		return jobtitle.JobTitle{}, mapRepoError(err)
	}
	return out, nil
}

func (s *DirectoryService) UpdateJobTitle(ctx context.Context, id uuid.UUID, in JobTitleInput) (jobtitle.JobTitle, error) {
	if err := in.validate(); err != nil {
		return jobtitle.JobTitle{}, err
	}
	return composables.InTxResult(ctx, func(txCtx context.Context) (jobtitle.JobTitle, error) {
		existing, err := s.getJobTitle(txCtx, id)
		if err != nil {
			return jobtitle.JobTitle{}, err
		}
		updated := jobtitle.Hydrate(existing.ID(), in.Name, in.Code, in.Aliases, existing.AssignableUnits(), in.StartDate, in.EndDate, existing.CreatedAt(), existing.UpdatedAt())
		out, err := s.repo.UpdateJobTitle(txCtx, updated)
		if err != nil {
			return jobtitle.JobTitle{}, mapRepoError(err)
		}
		return out, nil
	})
}

func (s *DirectoryService) DeleteJobTitle(ctx context.Context, id uuid.UUID) error {
	return composables.InTx(ctx, func(txCtx context.Context) error {
		if _, err := s.getJobTitle(txCtx, id); err != nil {
			return err
		}
		n, err := s.repo.CountCurrentByJobTitle(txCtx, id)
		if err != nil {
			return mapRepoError(err)
		}
		if n > 0 {
			return serrors.NewReferentialIntegrity("ORG_TITLE_IN_USE", "job title still has current assignments")
		}
		return mapRepoError(s.repo.DeleteJobTitle(txCtx, id))
	})
}

func (s *DirectoryService) GetJobTitle(ctx context.Context, id uuid.UUID) (jobtitle.JobTitle, error) {
	return s.getJobTitle(ctx, id)
}

func (s *DirectoryService) ListJobTitles(ctx context.Context) ([]jobtitle.JobTitle, error) {
	out, err := s.repo.ListJobTitles(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return out, nil
}

// SetAssignableUnits replaces the set of units a job title may be used in.
// An empty set removes the restriction entirely.
func (s *DirectoryService) SetAssignableUnits(ctx context.Context, jobTitleID uuid.UUID, unitIDs []uuid.UUID) error {
	return composables.InTx(ctx, func(txCtx context.Context) error {
		if _, err := s.getJobTitle(txCtx, jobTitleID); err != nil {
			return err
		}
		seen := make(map[uuid.UUID]bool, len(unitIDs))
		for _, id := range unitIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			if _, err := s.getUnit(txCtx, id); err != nil {
				return err
			}
		}
		return mapRepoError(s.repo.SetAssignableUnits(txCtx, jobTitleID, unitIDs))
	})
}

func (s *DirectoryService) checkParent(ctx context.Context, parentID *uuid.UUID) error {
	if parentID == nil || *parentID == uuid.Nil {
		return nil
	}
	_, err := s.getUnit(ctx, *parentID)
	if serrors.IsKind(err, serrors.KindNotFound) {
		return serrors.NewValidation("ORG_REF_NOT_FOUND", "parent unit does not exist", map[string]string{"parent_unit_id": parentID.String()})
	}
	return err
}

func (s *DirectoryService) getUnit(ctx context.Context, id uuid.UUID) (unit.Unit, error) {
	u, err := s.repo.GetUnit(ctx, id)
	if err != nil {
		if errors.Is(err, unit.ErrNotFound) {
			return unit.Unit{}, serrors.NewNotFound("ORG_UNIT_NOT_FOUND", "unit not found")
		}
		return unit.Unit{}, mapRepoError(err)
	}
	return u, nil
}

func (s *DirectoryService) getPerson(ctx context.Context, id uuid.UUID) (person.Person, error) {
	p, err := s.repo.GetPerson(ctx, id)
	if err != nil {
		if errors.Is(err, person.ErrNotFound) {
			return person.Person{}, serrors.NewNotFound("ORG_PERSON_NOT_FOUND", "person not found")
		}
		return person.Person{}, mapRepoError(err)
	}
	return p, nil
}

func (s *DirectoryService) getJobTitle(ctx context.Context, id uuid.UUID) (jobtitle.JobTitle, error) {
	j, err := s.repo.GetJobTitle(ctx, id)
	if err != nil {
		if errors.Is(err, jobtitle.ErrNotFound) {
			return jobtitle.JobTitle{}, serrors.NewNotFound("ORG_TITLE_NOT_FOUND", "job title not found")
		}
		return jobtitle.JobTitle{}, mapRepoError(err)
	}
	return j, nil
}
