package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/orgledger/orgledger/modules/org/services"
	"github.com/orgledger/orgledger/pkg/composables"
)

const assignmentColumns = `
	id, lineage_id, person_id, unit_id, job_title_id, percentage,
	is_unit_boss, is_ad_interim, notes, flags,
	valid_from, valid_to, version, is_current, created_at`

const insertAssignmentQuery = `
	INSERT INTO assignments (
		lineage_id, person_id, unit_id, job_title_id, percentage,
		is_unit_boss, is_ad_interim, notes, flags,
		valid_from, valid_to, version, is_current
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	RETURNING` + assignmentColumns

const lockCurrentQuery = `
	SELECT` + assignmentColumns + `
	FROM assignments
	WHERE lineage_id = $1 AND is_current
	FOR UPDATE`

const closeVersionQuery = `
	UPDATE assignments
	SET is_current = false, valid_to = $2
	WHERE id = $1`

const listVersionsQuery = `
	SELECT` + assignmentColumns + `
	FROM assignments
	WHERE lineage_id = $1
	ORDER BY version DESC`

const listTimelineQuery = `
	SELECT` + assignmentColumns + `
	FROM assignments
	WHERE person_id = $1
	ORDER BY valid_from, version`

const sumCurrentAllocationQuery = `
	SELECT COALESCE(SUM(percentage), 0)
	FROM assignments
	WHERE person_id = $1 AND is_current AND lineage_id <> $2`

func (r *OrgRepository) InsertVersion(ctx context.Context, in services.AssignmentInsert) (services.AssignmentRow, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return services.AssignmentRow{}, err
	}
	row := tx.QueryRow(ctx, insertAssignmentQuery,
		in.LineageID, in.PersonID, in.UnitID, in.JobTitleID, in.Percentage,
		in.IsUnitBoss, in.IsAdInterim, in.Notes, in.Flags,
		in.ValidFrom, in.ValidTo, in.Version, in.IsCurrent,
	)
	return scanAssignment(row)
}

func (r *OrgRepository) LockCurrent(ctx context.Context, lineageID uuid.UUID) (services.AssignmentRow, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return services.AssignmentRow{}, err
	}
	return scanAssignment(tx.QueryRow(ctx, lockCurrentQuery, lineageID))
}

func (r *OrgRepository) CloseVersion(ctx context.Context, id uuid.UUID, validTo time.Time) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, closeVersionQuery, id, validTo)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *OrgRepository) ListVersions(ctx context.Context, lineageID uuid.UUID) ([]services.AssignmentRow, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, listVersionsQuery, lineageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAssignments(rows)
}

func (r *OrgRepository) ListCurrent(ctx context.Context, f services.CurrentFilter) ([]services.CurrentAssignmentRow, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT a.id, a.lineage_id, a.person_id, a.unit_id, a.job_title_id, a.percentage,
		a.is_unit_boss, a.is_ad_interim, a.notes, a.flags,
		a.valid_from, a.valid_to, a.version, a.is_current, a.created_at,
		p.display_name, u.name, j.name
	FROM assignments a
	JOIN persons p ON p.id = a.person_id
	JOIN units u ON u.id = a.unit_id
	JOIN job_titles j ON j.id = a.job_title_id
	WHERE a.is_current`
	var (
		args  []any
		conds []string
	)
	if f.PersonID != nil {
		args = append(args, *f.PersonID)
		conds = append(conds, fmt.Sprintf("a.person_id = $%d", len(args)))
	}
	if f.UnitID != nil {
		args = append(args, *f.UnitID)
		conds = append(conds, fmt.Sprintf("a.unit_id = $%d", len(args)))
	}
	if f.JobTitleID != nil {
		args = append(args, *f.JobTitleID)
		conds = append(conds, fmt.Sprintf("a.job_title_id = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " AND " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY u.name, p.display_name, a.lineage_id"

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []services.CurrentAssignmentRow
	for rows.Next() {
		var (
			row     services.CurrentAssignmentRow
			notes   pgtype.Text
			flags   pgtype.Text
			validTo pgtype.Date
		)
		if err := rows.Scan(
			&row.ID, &row.LineageID, &row.PersonID, &row.UnitID, &row.JobTitleID, &row.Percentage,
			&row.IsUnitBoss, &row.IsAdInterim, &notes, &flags,
			&row.ValidFrom, &validTo, &row.Version, &row.IsCurrent, &row.CreatedAt,
			&row.PersonName, &row.UnitName, &row.JobTitleName,
		); err != nil {
			return nil, err
		}
		row.Notes = textPtr(notes)
		row.Flags = textPtr(flags)
		row.ValidTo = datePtr(validTo)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *OrgRepository) ListTimelineByPerson(ctx context.Context, personID uuid.UUID) ([]services.AssignmentRow, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, listTimelineQuery, personID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAssignments(rows)
}

func (r *OrgRepository) SumCurrentAllocation(ctx context.Context, personID, excludeLineage uuid.UUID) (float64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var sum float64
	if err := tx.QueryRow(ctx, sumCurrentAllocationQuery, personID, excludeLineage).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *OrgRepository) PersonExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS (SELECT 1 FROM persons WHERE id = $1)", id)
}

func (r *OrgRepository) UnitExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS (SELECT 1 FROM units WHERE id = $1)", id)
}

func (r *OrgRepository) JobTitleExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS (SELECT 1 FROM job_titles WHERE id = $1)", id)
}

func (r *OrgRepository) JobTitleAssignableToUnit(ctx context.Context, jobTitleID, unitID uuid.UUID) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	var ok bool
	err = tx.QueryRow(ctx, `
		SELECT NOT EXISTS (SELECT 1 FROM job_title_units WHERE job_title_id = $1)
			OR EXISTS (SELECT 1 FROM job_title_units WHERE job_title_id = $1 AND unit_id = $2)`,
		jobTitleID, unitID,
	).Scan(&ok)
	return ok, err
}

func (r *OrgRepository) exists(ctx context.Context, query string, id uuid.UUID) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	var ok bool
	err = tx.QueryRow(ctx, query, id).Scan(&ok)
	return ok, err
}

func scanAssignment(row pgx.Row) (services.AssignmentRow, error) {
	var (
		out     services.AssignmentRow
		notes   pgtype.Text
		flags   pgtype.Text
		validTo pgtype.Date
	)
	if err := row.Scan(
		&out.ID, &out.LineageID, &out.PersonID, &out.UnitID, &out.JobTitleID, &out.Percentage,
		&out.IsUnitBoss, &out.IsAdInterim, &notes, &flags,
		&out.ValidFrom, &validTo, &out.Version, &out.IsCurrent, &out.CreatedAt,
	); err != nil {
		return services.AssignmentRow{}, err
	}
	out.Notes = textPtr(notes)
	out.Flags = textPtr(flags)
	out.ValidTo = datePtr(validTo)
	return out, nil
}

func collectAssignments(rows pgx.Rows) ([]services.AssignmentRow, error) {
	var out []services.AssignmentRow
	for rows.Next() {
		row, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
