package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cityinit.org/internal/project"
)

const projectColumns = `id, title, description, type, location, lat, lng, image, status, initiator_id, npo_id,
	budget, resources, participants, pending_join_requests, partner_requests, draft_id, ai_score,
	rejection_reason, search_radius, appealed_at, appeal_reason, appeal_denied, version, created_at, updated_at`

func scanProject(row scanner) (project.Project, error) {
	var (
		p                                      project.Project
		status                                 string
		resources, participants, pending, reqs []byte
		appealedAt                             sql.NullTime
	)
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Type, &p.Location, &p.Coordinates.Lat, &p.Coordinates.Lng,
		&p.Image, &status, &p.InitiatorID, &p.NPOID, &p.Budget, &resources, &participants, &pending, &reqs,
		&p.DraftID, &p.AIScore, &p.RejectionReason, &p.SearchRadius, &appealedAt, &p.AppealReason,
		&p.AppealDenied, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return project.Project{}, err
	}
	p.Status = project.Status(status)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	if appealedAt.Valid {
		t := appealedAt.Time.UTC()
		p.AppealedAt = &t
	}
	for _, f := range []struct {
		data []byte
		dst  any
	}{
		{resources, &p.Resources},
		{participants, &p.Participants},
		{pending, &p.PendingJoinRequests},
		{reqs, &p.PartnerRequests},
	} {
		if err := decodeJSON(f.data, f.dst); err != nil {
			return project.Project{}, fmt.Errorf("decode project %s: %w", p.ID, err)
		}
	}
	return p, nil
}

type projectJSON struct {
	resources, participants, pending, requests []byte
}

func encodeProject(p *project.Project) (projectJSON, error) {
	var (
		out projectJSON
		err error
	)
	if out.resources, err = json.Marshal(nonNil(p.Resources)); err != nil {
		return out, err
	}
	if out.participants, err = json.Marshal(nonNil(p.Participants)); err != nil {
		return out, err
	}
	if out.pending, err = json.Marshal(nonNil(p.PendingJoinRequests)); err != nil {
		return out, err
	}
	if out.requests, err = json.Marshal(nonNil(p.PartnerRequests)); err != nil {
		return out, err
	}
	return out, nil
}

func appealedAtValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func (s *Store) CreateProject(ctx context.Context, p project.Project) error {
	enc, err := encodeProject(&p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.q(`
		insert into projects (`+projectColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26)`),
		p.ID, p.Title, p.Description, p.Type, p.Location, p.Coordinates.Lat, p.Coordinates.Lng, p.Image,
		string(p.Status), p.InitiatorID, p.NPOID, p.Budget, enc.resources, enc.participants, enc.pending,
		enc.requests, p.DraftID, p.AIScore, p.RejectionReason, p.SearchRadius, appealedAtValue(p.AppealedAt),
		p.AppealReason, p.AppealDenied, p.Version, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if s.unique(err) {
		return fmt.Errorf("%w: project %s already exists", project.ErrConflict, p.ID)
	}
	return err
}

func (s *Store) GetProject(ctx context.Context, id string) (project.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, s.q(`select `+projectColumns+` from projects where id = $1`), id))
	return p, notFound(err, project.ErrNotFound)
}

// ListProjects filters by owner, partner and status in SQL and by radius in Go.
func (s *Store) ListProjects(ctx context.Context, f project.Filter) ([]project.Project, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.InitiatorID != "" {
		add("initiator_id = $%d", f.InitiatorID)
	}
	if f.NPOID != "" {
		add("npo_id = $%d", f.NPOID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	query := `select ` + projectColumns + ` from projects`
	if len(where) > 0 {
		query += ` where ` + strings.Join(where, " and ")
	}
	query += ` order by created_at desc, id desc`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []project.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		if f.Match(&p) {
			out = append(out, p)
		}
	}
	return out, rows.Err()
}

// UpdateProject locks the row, applies fn and writes back guarded by version.
func (s *Store) UpdateProject(ctx context.Context, id string, fn func(*project.Project) error) (project.Project, error) {
	var out project.Project
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		p, err := scanProject(tx.QueryRowContext(ctx, s.q(`select `+projectColumns+` from projects where id = $1`+s.d.LockSuffix), id))
		if err != nil {
			return notFound(err, project.ErrNotFound)
		}
		prev := p.Version
		if err := fn(&p); err != nil {
			return err
		}
		enc, err := encodeProject(&p)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, s.q(`
			update projects set title = $3, description = $4, type = $5, location = $6, lat = $7, lng = $8,
				image = $9, status = $10, npo_id = $11, budget = $12, resources = $13, participants = $14,
				pending_join_requests = $15, partner_requests = $16, ai_score = $17, rejection_reason = $18,
				search_radius = $19, appealed_at = $20, appeal_reason = $21, appeal_denied = $22, version = $23,
				updated_at = $24
			where id = $1 and version = $2`),
			id, prev, p.Title, p.Description, p.Type, p.Location, p.Coordinates.Lat, p.Coordinates.Lng,
			p.Image, string(p.Status), p.NPOID, p.Budget, enc.resources, enc.participants, enc.pending,
			enc.requests, p.AIScore, p.RejectionReason, p.SearchRadius, appealedAtValue(p.AppealedAt),
			p.AppealReason, p.AppealDenied, p.Version, p.UpdatedAt.UTC())
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: project %s was modified concurrently", project.ErrConflict, id)
		}
		out = p
		return nil
	})
	return out, err
}
