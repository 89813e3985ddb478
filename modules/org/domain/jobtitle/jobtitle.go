package jobtitle

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("job title not found")

// Alias is an alternative display name in a given language.
type Alias struct {
	Value    string
	Language string
}

// JobTitle is a catalog entry. When assignableUnits is empty the title may be
// used in any unit; otherwise assignments are restricted to the listed units.
type JobTitle struct {
	id              uuid.UUID
	name            string
	code            *string
	aliases         []Alias
	assignableUnits []uuid.UUID
	startDate       *time.Time
	endDate         *time.Time
	createdAt       time.Time
	updatedAt       time.Time
}

func New(name string) JobTitle {
	return JobTitle{name: strings.TrimSpace(name)}
}

func Hydrate(
	id uuid.UUID,
	name string,
	code *string,
	aliases []Alias,
	assignableUnits []uuid.UUID,
	startDate, endDate *time.Time,
	createdAt, updatedAt time.Time,
) JobTitle {
	return JobTitle{
		id:              id,
		name:            strings.TrimSpace(name),
		code:            code,
		aliases:         aliases,
		assignableUnits: assignableUnits,
		startDate:       startDate,
		endDate:         endDate,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

func (j JobTitle) ID() uuid.UUID                { return j.id }
func (j JobTitle) Name() string                 { return j.name }
func (j JobTitle) Code() *string                { return j.code }
func (j JobTitle) Aliases() []Alias             { return j.aliases }
func (j JobTitle) AssignableUnits() []uuid.UUID { return j.assignableUnits }
func (j JobTitle) StartDate() *time.Time        { return j.startDate }
func (j JobTitle) EndDate() *time.Time          { return j.endDate }
func (j JobTitle) CreatedAt() time.Time         { return j.createdAt }
func (j JobTitle) UpdatedAt() time.Time         { return j.updatedAt }

// AssignableTo reports whether the title may be used in the given unit.
func (j JobTitle) AssignableTo(unitID uuid.UUID) bool {
	if len(j.assignableUnits) == 0 {
		return true
	}
	for _, id := range j.assignableUnits {
		if id == unitID {
			return true
		}
	}
	return false
}
