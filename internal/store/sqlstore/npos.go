package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"

	"cityinit.org/internal/partner"
	"cityinit.org/internal/project"
)

const npoColumns = `id, name, expertise, rating, avatar, status, registration_date, description`

func scanNPO(row scanner) (partner.NPO, error) {
	var (
		n         partner.NPO
		expertise []byte
		status    string
	)
	if err := row.Scan(&n.ID, &n.Name, &expertise, &n.Rating, &n.Avatar, &status, &n.RegistrationDate, &n.Description); err != nil {
		return partner.NPO{}, err
	}
	n.Status = partner.Status(status)
	n.RegistrationDate = n.RegistrationDate.UTC()
	if err := decodeJSON(expertise, &n.Expertise); err != nil {
		return partner.NPO{}, err
	}
	return n, nil
}

func (s *Store) CreateNPO(ctx context.Context, n partner.NPO) error {
	expertise, err := json.Marshal(nonNil(n.Expertise))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.q(`
		insert into npos (`+npoColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8)`),
		n.ID, n.Name, expertise, n.Rating, n.Avatar, string(n.Status), n.RegistrationDate.UTC(), n.Description)
	if s.unique(err) {
		return project.ErrConflict
	}
	return err
}

func (s *Store) GetNPO(ctx context.Context, id string) (partner.NPO, error) {
	n, err := scanNPO(s.db.QueryRowContext(ctx, s.q(`select `+npoColumns+` from npos where id = $1`), id))
	return n, notFound(err, partner.ErrNotFound)
}

func (s *Store) ListNPOs(ctx context.Context) ([]partner.NPO, error) {
	rows, err := s.db.QueryContext(ctx, `select `+npoColumns+` from npos order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []partner.NPO{}
	for rows.Next() {
		n, err := scanNPO(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) UpdateNPO(ctx context.Context, id string, fn func(*partner.NPO) error) (partner.NPO, error) {
	var out partner.NPO
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		n, err := scanNPO(tx.QueryRowContext(ctx, s.q(`select `+npoColumns+` from npos where id = $1`+s.d.LockSuffix), id))
		if err != nil {
			return notFound(err, partner.ErrNotFound)
		}
		if err := fn(&n); err != nil {
			return err
		}
		expertise, err := json.Marshal(nonNil(n.Expertise))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.q(`
			update npos set name = $2, expertise = $3, rating = $4, avatar = $5, status = $6, description = $7
			where id = $1`),
			id, n.Name, expertise, n.Rating, n.Avatar, string(n.Status), n.Description)
		if err != nil {
			return err
		}
		out = n
		return nil
	})
	return out, err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func decodeJSON(data []byte, dst any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}
