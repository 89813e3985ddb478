package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/orgledger/orgledger/modules/org/domain/unit"
	"github.com/orgledger/orgledger/modules/org/services"
	"github.com/orgledger/orgledger/pkg/composables"
)

const listUnitsQuery = `
	SELECT id, name, short_name, unit_type_id, parent_unit_id, start_date, end_date
	FROM units
	ORDER BY name, id`

const getUnitQuery = `
	SELECT id, name, short_name, unit_type_id, parent_unit_id, start_date, end_date, created_at, updated_at
	FROM units
	WHERE id = $1`

const insertUnitQuery = `
	INSERT INTO units (id, name, short_name, unit_type_id, parent_unit_id, start_date, end_date)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING created_at, updated_at`

const updateUnitQuery = `
	UPDATE units
	SET name = $2, short_name = $3, unit_type_id = $4, start_date = $5, end_date = $6, updated_at = now()
	WHERE id = $1
	RETURNING created_at, updated_at`

const updateUnitParentQuery = `
	UPDATE units
	SET parent_unit_id = $2, updated_at = now()
	WHERE id = $1`

func (r *OrgRepository) ListUnits(ctx context.Context) ([]services.UnitRow, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, listUnitsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []services.UnitRow
	for rows.Next() {
		var (
			row       services.UnitRow
			shortName pgtype.Text
			parentID  *uuid.UUID
			start     pgtype.Date
			end       pgtype.Date
		)
		if err := rows.Scan(&row.ID, &row.Name, &shortName, &row.UnitTypeID, &parentID, &start, &end); err != nil {
			return nil, err
		}
		row.ShortName = textPtr(shortName)
		row.ParentID = parentID
		row.StartDate = datePtr(start)
		row.EndDate = datePtr(end)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *OrgRepository) UpdateParent(ctx context.Context, unitID uuid.UUID, parentID *uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, updateUnitParentQuery, unitID, parentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *OrgRepository) CreateUnit(ctx context.Context, u unit.Unit) (unit.Unit, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return unit.Unit{}, err
	}
	var createdAt, updatedAt time.Time
	err = tx.QueryRow(ctx, insertUnitQuery,
		u.ID(), u.Name(), u.ShortName(), u.UnitTypeID(), u.ParentID(), u.StartDate(), u.EndDate(),
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		return unit.Unit{}, err
	}
	if err := r.replaceUnitAliases(ctx, u.ID(), u.Aliases()); err != nil {
		return unit.Unit{}, err
	}
	return unit.Hydrate(u.ID(), u.Name(), u.ShortName(), u.UnitTypeID(), u.ParentID(), u.StartDate(), u.EndDate(), u.Aliases(), createdAt, updatedAt), nil
}

func (r *OrgRepository) UpdateUnit(ctx context.Context, u unit.Unit) (unit.Unit, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return unit.Unit{}, err
	}
	var createdAt, updatedAt time.Time
	err = tx.QueryRow(ctx, updateUnitQuery,
		u.ID(), u.Name(), u.ShortName(), u.UnitTypeID(), u.StartDate(), u.EndDate(),
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return unit.Unit{}, unit.ErrNotFound
		}
		return unit.Unit{}, err
	}
	if err := r.replaceUnitAliases(ctx, u.ID(), u.Aliases()); err != nil {
		return unit.Unit{}, err
	}
	return unit.Hydrate(u.ID(), u.Name(), u.ShortName(), u.UnitTypeID(), u.ParentID(), u.StartDate(), u.EndDate(), u.Aliases(), createdAt, updatedAt), nil
}

func (r *OrgRepository) DeleteUnit(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, "DELETE FROM units WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return unit.ErrNotFound
	}
	return nil
}

func (r *OrgRepository) GetUnit(ctx context.Context, id uuid.UUID) (unit.Unit, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return unit.Unit{}, err
	}
	var (
		name       string
		shortName  pgtype.Text
		unitTypeID uuid.UUID
		parentID   *uuid.UUID
		start      pgtype.Date
		end        pgtype.Date
		createdAt  time.Time
		updatedAt  time.Time
	)
	err = tx.QueryRow(ctx, getUnitQuery, id).Scan(
		&id, &name, &shortName, &unitTypeID, &parentID, &start, &end, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return unit.Unit{}, unit.ErrNotFound
		}
		return unit.Unit{}, err
	}
	aliases, err := r.listUnitAliases(ctx, id)
	if err != nil {
		return unit.Unit{}, err
	}
	return unit.Hydrate(id, name, textPtr(shortName), unitTypeID, parentID, datePtr(start), datePtr(end), aliases, createdAt, updatedAt), nil
}

func (r *OrgRepository) CountUnitChildren(ctx context.Context, id uuid.UUID) (int, error) {
	return r.count(ctx, "SELECT COUNT(*) FROM units WHERE parent_unit_id = $1", id)
}

func (r *OrgRepository) CountCurrentByUnit(ctx context.Context, id uuid.UUID) (int, error) {
	return r.count(ctx, "SELECT COUNT(*) FROM assignments WHERE unit_id = $1 AND is_current", id)
}

func (r *OrgRepository) count(ctx context.Context, query string, id uuid.UUID) (int, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	err = tx.QueryRow(ctx, query, id).Scan(&n)
	return n, err
}

func (r *OrgRepository) replaceUnitAliases(ctx context.Context, unitID uuid.UUID, aliases []unit.Alias) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM unit_aliases WHERE unit_id = $1", unitID); err != nil {
		return err
	}
	for i, a := range aliases {
		if _, err := tx.Exec(ctx,
			"INSERT INTO unit_aliases (unit_id, value, language, position) VALUES ($1, $2, $3, $4)",
			unitID, a.Value, a.Language, i,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *OrgRepository) listUnitAliases(ctx context.Context, unitID uuid.UUID) ([]unit.Alias, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, "SELECT value, language FROM unit_aliases WHERE unit_id = $1 ORDER BY position", unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []unit.Alias
	for rows.Next() {
		var a unit.Alias
		if err := rows.Scan(&a.Value, &a.Language); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
