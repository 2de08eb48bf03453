package memory

import (
	"context"
	"sort"
	"time"

	"github.com/baechuer/taskflow/internal/application/task"
	"github.com/baechuer/taskflow/internal/domain"
)

type TaskRepo struct {
	db *DB
}

func NewTaskRepo(db *DB) *TaskRepo { return &TaskRepo{db: db} }

// caller holds the lock
func (r *TaskRepo) view(t domain.Task) *domain.Task {
	out := t
	out.AssignedToUsername = r.db.users[t.AssignedTo].Username
	if t.Deadline != nil {
		d := *t.Deadline
		out.Deadline = &d
	}
	return &out
}

func newestFirst(a, b time.Time, aID, bID string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID > bID
}

func (r *TaskRepo) List(ctx context.Context, f task.ListFilter) ([]*domain.Task, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := []*domain.Task{}
	for _, t := range r.db.tasks {
		if f.AssignedTo != "" && t.AssignedTo != f.AssignedTo {
			continue
		}
		out = append(out, r.view(t))
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	t, ok := r.db.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound()
	}
	return r.view(t), nil
}

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.users[t.AssignedTo]; !ok {
		return domain.ErrUnknownAssignee(t.AssignedTo)
	}
	if _, dup := r.db.tasks[t.ID]; dup {
		return domain.ErrInternal(nil)
	}
	stored := *t
	stored.AssignedToUsername = ""
	r.db.tasks[t.ID] = stored
	return nil
}

func (r *TaskRepo) Update(ctx context.Context, t *domain.Task) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cur, ok := r.db.tasks[t.ID]
	if !ok {
		return domain.ErrTaskNotFound()
	}
	if _, ok := r.db.users[t.AssignedTo]; !ok {
		return domain.ErrUnknownAssignee(t.AssignedTo)
	}
	next := *t
	next.CreatedAt = cur.CreatedAt
	next.AssignedToUsername = ""
	r.db.tasks[t.ID] = next
	return nil
}

func (r *TaskRepo) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.tasks[id]; !ok {
		return domain.ErrTaskNotFound()
	}
	delete(r.db.tasks, id)
	return nil
}

func (r *TaskRepo) CompleteOwned(ctx context.Context, taskID, userID string, at time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, ok := r.db.tasks[taskID]
	if !ok || t.AssignedTo != userID {
		return false, nil
	}
	t.Status = domain.TaskDone
	t.UpdatedAt = at
	r.db.tasks[taskID] = t
	return true, nil
}
