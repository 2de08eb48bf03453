package memory

import (
	"context"
	"sort"

	"github.com/baechuer/taskflow/internal/domain"
)

type MeetingRepo struct {
	db *DB
}

func NewMeetingRepo(db *DB) *MeetingRepo { return &MeetingRepo{db: db} }

func copyMeeting(m domain.Meeting) *domain.Meeting {
	out := m
	if m.ScheduledAt != nil {
		at := *m.ScheduledAt
		out.ScheduledAt = &at
	}
	return &out
}

func (r *MeetingRepo) List(ctx context.Context) ([]*domain.Meeting, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*domain.Meeting, 0, len(r.db.meetings))
	for _, m := range r.db.meetings {
		out = append(out, copyMeeting(m))
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (r *MeetingRepo) GetByID(ctx context.Context, id string) (*domain.Meeting, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	m, ok := r.db.meetings[id]
	if !ok {
		return nil, domain.ErrMeetingNotFound()
	}
	return copyMeeting(m), nil
}

func (r *MeetingRepo) Create(ctx context.Context, m *domain.Meeting) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.meetings[m.ID] = *copyMeeting(*m)
	return nil
}

func (r *MeetingRepo) Update(ctx context.Context, m *domain.Meeting) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cur, ok := r.db.meetings[m.ID]
	if !ok {
		return domain.ErrMeetingNotFound()
	}
	next := *copyMeeting(*m)
	next.CreatedAt = cur.CreatedAt
	r.db.meetings[m.ID] = next
	return nil
}

func (r *MeetingRepo) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.meetings[id]; !ok {
		return domain.ErrMeetingNotFound()
	}
	delete(r.db.meetings, id)
	return nil
}
