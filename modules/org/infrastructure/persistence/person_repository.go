package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/orgledger/orgledger/modules/org/domain/person"
	"github.com/orgledger/orgledger/pkg/composables"
)

const insertPersonQuery = `
	INSERT INTO persons (id, display_name, first_name, last_name, pernr, email, avatar_url)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING created_at, updated_at`

const updatePersonQuery = `
	UPDATE persons
	SET display_name = $2, first_name = $3, last_name = $4, pernr = $5, email = $6, avatar_url = $7, updated_at = now()
	WHERE id = $1
	RETURNING created_at, updated_at`

const getPersonQuery = `
	SELECT id, display_name, first_name, last_name, pernr, email, avatar_url, created_at, updated_at
	FROM persons
	WHERE id = $1`

const listPersonsQuery = `
	SELECT id, display_name, first_name, last_name, pernr, email, avatar_url, created_at, updated_at
	FROM persons
	ORDER BY display_name, id`

func (r *OrgRepository) CreatePerson(ctx context.Context, p person.Person) (person.Person, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return person.Person{}, err
	}
	var createdAt, updatedAt time.Time
	err = tx.QueryRow(
		ctx, insertPersonQuery,
		p.ID(), p.DisplayName(), p.FirstName(), p.LastName(), p.Pernr(), p.Email(), p.AvatarURL(),
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		return person.Person{}, err
	}
	return person.Hydrate(p.ID(), p.DisplayName(), p.FirstName(), p.LastName(), p.Pernr(), p.Email(), p.AvatarURL(), createdAt, updatedAt), nil
}

func (r *OrgRepository) UpdatePerson(ctx context.Context, p person.Person) (person.Person, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return person.Person{}, err
	}
	var createdAt, updatedAt time.Time
	err = tx.QueryRow(
		ctx, updatePersonQuery,
		p.ID(), p.DisplayName(), p.FirstName(), p.LastName(), p.Pernr(), p.Email(), p.AvatarURL(),
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return person.Person{}, person.ErrNotFound
		}
		return person.Person{}, err
	}
	return person.Hydrate(p.ID(), p.DisplayName(), p.FirstName(), p.LastName(), p.Pernr(), p.Email(), p.AvatarURL(), createdAt, updatedAt), nil
}

func (r *OrgRepository) DeletePerson(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, "DELETE FROM persons WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return person.ErrNotFound
	}
	return nil
}

func (r *OrgRepository) GetPerson(ctx context.Context, id uuid.UUID) (person.Person, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return person.Person{}, err
	}
	p, err := scanPerson(tx.QueryRow(ctx, getPersonQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return person.Person{}, person.ErrNotFound
		}
		return person.Person{}, err
	}
	return p, nil
}

func (r *OrgRepository) ListPersons(ctx context.Context) ([]person.Person, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, listPersonsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []person.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *OrgRepository) CountCurrentByPerson(ctx context.Context, id uuid.UUID) (int, error) {
	return r.count(ctx, "SELECT COUNT(*) FROM assignments WHERE person_id = $1 AND is_current", id)
}

func scanPerson(row pgx.Row) (person.Person, error) {
	var (
		id          uuid.UUID
		displayName string
		firstName   pgtype.Text
		lastName    pgtype.Text
		pernr       pgtype.Text
		email       pgtype.Text
		avatarURL   pgtype.Text
		createdAt   time.Time
		updatedAt   time.Time
	)
	if err := row.Scan(&id, &displayName, &firstName, &lastName, &pernr, &email, &avatarURL, &createdAt, &updatedAt); err != nil {
		return person.Person{}, err
	}
	return person.Hydrate(id, displayName, textPtr(firstName), textPtr(lastName), textPtr(pernr), textPtr(email), textPtr(avatarURL), createdAt, updatedAt), nil
}
