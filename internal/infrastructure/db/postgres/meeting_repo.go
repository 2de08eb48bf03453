package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/baechuer/taskflow/internal/domain"
)

type MeetingRepo struct {
	db *sql.DB
}

func NewMeetingRepo(db *sql.DB) *MeetingRepo {
	return &MeetingRepo{db: db}
}

const selectMeetingSQL = `
SELECT id, title, link, description, scheduled_at, created_at
FROM meetings
`

func scanMeeting(s rowScanner) (*domain.Meeting, error) {
	var m domain.Meeting
	if err := s.Scan(&m.ID, &m.Title, &m.Link, &m.Description, &m.ScheduledAt, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MeetingRepo) List(ctx context.Context) ([]*domain.Meeting, error) {
	rows, err := r.db.QueryContext(ctx, selectMeetingSQL+`ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	out := []*domain.Meeting{}
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return out, nil
}

func (r *MeetingRepo) GetByID(ctx context.Context, id string) (*domain.Meeting, error) {
	m, err := scanMeeting(r.db.QueryRowContext(ctx, selectMeetingSQL+`WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMeetingNotFound()
	}
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return m, nil
}

func (r *MeetingRepo) Create(ctx context.Context, m *domain.Meeting) error {
	const q = `
INSERT INTO meetings (id, title, link, description, scheduled_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`
	if _, err := r.db.ExecContext(ctx, q, m.ID, m.Title, m.Link, m.Description, m.ScheduledAt, m.CreatedAt); err != nil {
		return mapMeetingWriteErr(err)
	}
	return nil
}

func (r *MeetingRepo) Update(ctx context.Context, m *domain.Meeting) error {
	const q = `
UPDATE meetings SET title = $2, link = $3, description = $4, scheduled_at = $5
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q, m.ID, m.Title, m.Link, m.Description, m.ScheduledAt)
	if err != nil {
		return mapMeetingWriteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrMeetingNotFound()
	}
	return nil
}

func (r *MeetingRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrMeetingNotFound()
	}
	return nil
}
