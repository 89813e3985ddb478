package unit

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("unit not found")

// Alias is an alternative display name in a given language.
type Alias struct {
	Value    string
	Language string
}

type Unit struct {
	id         uuid.UUID
	name       string
	shortName  *string
	unitTypeID uuid.UUID
	parentID   *uuid.UUID
	startDate  *time.Time
	endDate    *time.Time
	aliases    []Alias
	createdAt  time.Time
	updatedAt  time.Time
}

func New(name string, unitTypeID uuid.UUID, parentID *uuid.UUID) Unit {
	return Unit{
		name:       strings.TrimSpace(name),
		unitTypeID: unitTypeID,
		parentID:   normalizeParent(parentID),
	}
}

func Hydrate(
	id uuid.UUID,
	name string,
	shortName *string,
	unitTypeID uuid.UUID,
	parentID *uuid.UUID,
	startDate, endDate *time.Time,
	aliases []Alias,
	createdAt, updatedAt time.Time,
) Unit {
	return Unit{
		id:         id,
		name:       strings.TrimSpace(name),
		shortName:  shortName,
		unitTypeID: unitTypeID,
		parentID:   normalizeParent(parentID),
		startDate:  startDate,
		endDate:    endDate,
		aliases:    aliases,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

func (u Unit) ID() uuid.UUID         { return u.id }
func (u Unit) Name() string          { return u.name }
func (u Unit) ShortName() *string    { return u.shortName }
func (u Unit) UnitTypeID() uuid.UUID { return u.unitTypeID }
func (u Unit) ParentID() *uuid.UUID  { return u.parentID }
func (u Unit) StartDate() *time.Time { return u.startDate }
func (u Unit) EndDate() *time.Time   { return u.endDate }
func (u Unit) Aliases() []Alias      { return u.aliases }
func (u Unit) CreatedAt() time.Time  { return u.createdAt }
func (u Unit) UpdatedAt() time.Time  { return u.updatedAt }
func (u Unit) IsRoot() bool          { return u.parentID == nil }

// normalizeParent collapses the nil-UUID sentinel to the NULL root marker so
// only one root representation ever reaches storage.
func normalizeParent(parentID *uuid.UUID) *uuid.UUID {
	if parentID == nil || *parentID == uuid.Nil {
		return nil
	}
	return parentID
}
