package repository

import (
	"context"
	"strings"
	"time"

	"github.com/okian/clerb/internal/domain/model"
)

const memberColumns = "id, name, created_at"

func scanMember(row scanner) (model.Member, error) {
	var m model.Member
	if err := row.Scan(&m.ID, &m.Name, &m.CreatedAt); err != nil {
		return model.Member{}, err
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return m, nil
}

// CreateMember inserts a member. Names are trimmed and must be unique.
func (s *SQLStore) CreateMember(ctx context.Context, name string) (model.Member, error) {
	defer s.observe("create_member", time.Now())

	m := model.Member{ID: newID(), Name: strings.TrimSpace(name), CreatedAt: s.now()}
	err := s.write(ctx, func(tx *Tx) ([]model.Change, error) {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO members (id, name, created_at) VALUES (?, ?, ?)",
			m.ID, m.Name, m.CreatedAt)
		if err != nil {
			return nil, err
		}
		return []model.Change{s.change(model.TableMembers, model.OpInsert, m.ID, "")}, nil
	})
	if err != nil {
		return model.Member{}, err
	}
	return m, nil
}

func (s *SQLStore) GetMember(ctx context.Context, id string) (model.Member, error) {
	defer s.observe("get_member", time.Now())

	row := s.db.QueryRowContext(ctx, "SELECT "+memberColumns+" FROM members WHERE id = ?", id)
	m, err := scanMember(row)
	if err != nil {
		return model.Member{}, notFound(err, "member", id)
	}
	return m, nil
}

func (s *SQLStore) ListMembers(ctx context.Context) ([]model.Member, error) {
	defer s.observe("list_members", time.Now())

	rows, err := s.db.QueryContext(ctx, "SELECT "+memberColumns+" FROM members ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
