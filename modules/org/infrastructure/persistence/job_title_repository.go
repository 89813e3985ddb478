package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/orgledger/orgledger/modules/org/domain/jobtitle"
	"github.com/orgledger/orgledger/pkg/composables"
)

const insertJobTitleQuery = `
	INSERT INTO job_titles (id, name, code, start_date, end_date)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING created_at, updated_at`

const updateJobTitleQuery = `
	UPDATE job_titles
	SET name = $2, code = $3, start_date = $4, end_date = $5, updated_at = now()
	WHERE id = $1
	RETURNING created_at, updated_at`

const getJobTitleQuery = `
	SELECT id, name, code, start_date, end_date, created_at, updated_at
	FROM job_titles
	WHERE id = $1`

const listJobTitlesQuery = `
	SELECT id, name, code, start_date, end_date, created_at, updated_at
	FROM job_titles
	ORDER BY name, id`

func (r *OrgRepository) CreateJobTitle(ctx context.Context, j jobtitle.JobTitle) (jobtitle.JobTitle, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return jobtitle.JobTitle{}, err
	}
	var createdAt, updatedAt time.Time
	if err := tx.QueryRow(ctx, insertJobTitleQuery, j.ID(), j.Name(), j.Code(), j.StartDate(), j.EndDate()).Scan(&createdAt, &updatedAt); err != nil {
		return jobtitle.JobTitle{}, err
	}
	if err := r.replaceJobTitleAliases(ctx, j.ID(), j.Aliases()); err != nil {
		return jobtitle.JobTitle{}, err
	}
	return jobtitle.Hydrate(j.ID(), j.Name(), j.Code(), j.Aliases(), nil, j.StartDate(), j.EndDate(), createdAt, updatedAt), nil
}

func (r *OrgRepository) UpdateJobTitle(ctx context.Context, j jobtitle.JobTitle) (jobtitle.JobTitle, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return jobtitle.JobTitle{}, err
	}
	var createdAt, updatedAt time.Time
	err = tx.QueryRow(ctx, updateJobTitleQuery, j.ID(), j.Name(), j.Code(), j.StartDate(), j.EndDate()).Scan(&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return jobtitle.JobTitle{}, jobtitle.ErrNotFound
		}
		return jobtitle.JobTitle{}, err
	}
	if err := r.replaceJobTitleAliases(ctx, j.ID(), j.Aliases()); err != nil {
		return jobtitle.JobTitle{}, err
	}
	return jobtitle.Hydrate(j.ID(), j.Name(), j.Code(), j.Aliases(), j.AssignableUnits(), j.StartDate(), j.EndDate(), createdAt, updatedAt), nil
}

func (r *OrgRepository) DeleteJobTitle(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, "DELETE FROM job_titles WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return jobtitle.ErrNotFound
	}
	return nil
}

func (r *OrgRepository) GetJobTitle(ctx context.Context, id uuid.UUID) (jobtitle.JobTitle, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return jobtitle.JobTitle{}, err
	}
	var (
		name      string
		code      pgtype.Text
		startDate pgtype.Date
		endDate   pgtype.Date
		createdAt time.Time
		updatedAt time.Time
	)
	err = tx.QueryRow(ctx, getJobTitleQuery, id).Scan(&id, &name, &code, &startDate, &endDate, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return jobtitle.JobTitle{}, jobtitle.ErrNotFound
		}
		return jobtitle.JobTitle{}, err
	}
	aliases, err := r.listJobTitleAliases(ctx, id)
	if err != nil {
		return jobtitle.JobTitle{}, err
	}
	assignable, err := r.listAssignableUnits(ctx, id)
	if err != nil {
		return jobtitle.JobTitle{}, err
	}
	return jobtitle.Hydrate(id, name, textPtr(code), aliases, assignable, datePtr(startDate), datePtr(endDate), createdAt, updatedAt), nil
}

func (r *OrgRepository) ListJobTitles(ctx context.Context) ([]jobtitle.JobTitle, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, listJobTitlesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []jobtitle.JobTitle
	for rows.Next() {
		var (
			id        uuid.UUID
			name      string
			code      pgtype.Text
			startDate pgtype.Date
			endDate   pgtype.Date
			createdAt time.Time
			updatedAt time.Time
		)
		if err := rows.Scan(&id, &name, &code, &startDate, &endDate, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		out = append(out, jobtitle.Hydrate(id, name, textPtr(code), nil, nil, datePtr(startDate), datePtr(endDate), createdAt, updatedAt))
	}
	return out, rows.Err()
}

func (r *OrgRepository) SetAssignableUnits(ctx context.Context, jobTitleID uuid.UUID, unitIDs []uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM job_title_units WHERE job_title_id = $1", jobTitleID); err != nil {
		return err
	}
	seen := make(map[uuid.UUID]bool, len(unitIDs))
	for _, unitID := range unitIDs {
		if seen[unitID] {
			continue
		}
		seen[unitID] = true
		if _, err := tx.Exec(ctx,
			"INSERT INTO job_title_units (job_title_id, unit_id) VALUES ($1, $2)",
			jobTitleID, unitID,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *OrgRepository) CountCurrentByJobTitle(ctx context.Context, id uuid.UUID) (int, error) {
	return r.count(ctx, "SELECT COUNT(*) FROM assignments WHERE job_title_id = $1 AND is_current", id)
}

func (r *OrgRepository) replaceJobTitleAliases(ctx context.Context, jobTitleID uuid.UUID, aliases []jobtitle.Alias) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM job_title_aliases WHERE job_title_id = $1", jobTitleID); err != nil {
		return err
	}
	for i, a := range aliases {
		if _, err := tx.Exec(ctx,
			"INSERT INTO job_title_aliases (job_title_id, value, language, position) VALUES ($1, $2, $3, $4)",
			jobTitleID, a.Value, a.Language, i,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *OrgRepository) listJobTitleAliases(ctx context.Context, jobTitleID uuid.UUID) ([]jobtitle.Alias, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, "SELECT value, language FROM job_title_aliases WHERE job_title_id = $1 ORDER BY position", jobTitleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []jobtitle.Alias
	for rows.Next() {
		var a jobtitle.Alias
		if err := rows.Scan(&a.Value, &a.Language); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *OrgRepository) listAssignableUnits(ctx context.Context, jobTitleID uuid.UUID) ([]uuid.UUID, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, "SELECT unit_id FROM job_title_units WHERE job_title_id = $1 ORDER BY unit_id", jobTitleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
