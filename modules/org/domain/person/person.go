package person

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("person not found")

type Person struct {
	id          uuid.UUID
	displayName string
	firstName   *string
	lastName    *string
	pernr       *string
	email       *string
	avatarURL   *string
	createdAt   time.Time
	updatedAt   time.Time
}

func New(displayName string) Person {
	return Person{displayName: strings.TrimSpace(displayName)}
}

func Hydrate(
	id uuid.UUID,
	displayName string,
	firstName, lastName *string,
	pernr *string,
	email *string,
	avatarURL *string,
	createdAt, updatedAt time.Time,
) Person {
	return Person{
		id:          id,
		displayName: strings.TrimSpace(displayName),
		firstName:   firstName,
		lastName:    lastName,
		pernr:       pernr,
		email:       email,
		avatarURL:   avatarURL,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (p Person) ID() uuid.UUID        { return p.id }
func (p Person) DisplayName() string  { return p.displayName }
func (p Person) FirstName() *string   { return p.firstName }
func (p Person) LastName() *string    { return p.lastName }
func (p Person) Pernr() *string       { return p.pernr }
func (p Person) Email() *string       { return p.email }
func (p Person) AvatarURL() *string   { return p.avatarURL }
func (p Person) CreatedAt() time.Time { return p.createdAt }
func (p Person) UpdatedAt() time.Time { return p.updatedAt }
