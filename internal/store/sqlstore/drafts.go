package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"cityinit.org/internal/project"
)

const draftColumns = `id, initiator_id, title, description, type, location, coordinates, step, resources, photos,
	project_id, last_modified`

func scanDraft(row scanner) (project.Draft, error) {
	var (
		d                         project.Draft
		coords, resources, photos []byte
	)
	err := row.Scan(&d.ID, &d.InitiatorID, &d.Title, &d.Description, &d.Type, &d.Location, &coords,
		&d.Step, &resources, &photos, &d.ProjectID, &d.LastModified)
	if err != nil {
		return project.Draft{}, err
	}
	d.LastModified = d.LastModified.UTC()
	if len(coords) > 0 && string(coords) != "null" {
		var c project.Coordinates
		if err := json.Unmarshal(coords, &c); err != nil {
			return project.Draft{}, fmt.Errorf("decode draft %s: %w", d.ID, err)
		}
		d.Coordinates = &c
	}
	if err := decodeJSON(resources, &d.Resources); err != nil {
		return project.Draft{}, fmt.Errorf("decode draft %s: %w", d.ID, err)
	}
	if err := decodeJSON(photos, &d.Photos); err != nil {
		return project.Draft{}, fmt.Errorf("decode draft %s: %w", d.ID, err)
	}
	return d, nil
}

func encodeDraft(d *project.Draft) (coords, resources, photos []byte, err error) {
	if coords, err = json.Marshal(d.Coordinates); err != nil {
		return
	}
	if resources, err = json.Marshal(nonNil(d.Resources)); err != nil {
		return
	}
	photos, err = json.Marshal(nonNil(d.Photos))
	return
}

func (s *Store) CreateDraft(ctx context.Context, d project.Draft) error {
	coords, resources, photos, err := encodeDraft(&d)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.q(`
		insert into drafts (`+draftColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`),
		d.ID, d.InitiatorID, d.Title, d.Description, d.Type, d.Location, coords, d.Step, resources, photos,
		d.ProjectID, d.LastModified.UTC())
	if s.unique(err) {
		return fmt.Errorf("%w: draft %s already exists", project.ErrConflict, d.ID)
	}
	return err
}

func (s *Store) GetDraft(ctx context.Context, ownerID, id string) (project.Draft, error) {
	d, err := scanDraft(s.db.QueryRowContext(ctx,
		s.q(`select `+draftColumns+` from drafts where id = $1 and initiator_id = $2`), id, ownerID))
	return d, notFound(err, project.ErrNotFound)
}

func (s *Store) ListDrafts(ctx context.Context, ownerID string) ([]project.Draft, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		select `+draftColumns+` from drafts
		where initiator_id = $1 and project_id = ''
		order by last_modified desc, id desc`), ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []project.Draft{}
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) UpdateDraft(ctx context.Context, ownerID, id string, fn func(*project.Draft) error) (project.Draft, error) {
	var out project.Draft
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		d, err := scanDraft(tx.QueryRowContext(ctx,
			s.q(`select `+draftColumns+` from drafts where id = $1 and initiator_id = $2`+s.d.LockSuffix), id, ownerID))
		if err != nil {
			return notFound(err, project.ErrNotFound)
		}
		if err := fn(&d); err != nil {
			return err
		}
		coords, resources, photos, err := encodeDraft(&d)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.q(`
			update drafts set title = $2, description = $3, type = $4, location = $5, coordinates = $6,
				step = $7, resources = $8, photos = $9, project_id = $10, last_modified = $11
			where id = $1`),
			id, d.Title, d.Description, d.Type, d.Location, coords, d.Step, resources, photos, d.ProjectID,
			d.LastModified.UTC())
		if err != nil {
			return err
		}
		out = d
		return nil
	})
	return out, err
}

func (s *Store) DeleteDraft(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`delete from drafts where id = $1 and initiator_id = $2`), id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return project.ErrNotFound
	}
	return nil
}
