package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/baechuer/taskflow/internal/application/task"
	"github.com/baechuer/taskflow/internal/domain"
)

type TaskRepo struct {
	db *sql.DB
}

func NewTaskRepo(db *sql.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

const selectTaskSQL = `
SELECT t.id, t.title, t.description, t.assigned_to, u.username, t.status,
       t.deadline, t.created_at, t.updated_at
FROM tasks t
JOIN users u ON u.id = t.assigned_to
`

const insertTaskSQL = `
INSERT INTO tasks (id, title, description, assigned_to, status, deadline, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

const updateTaskSQL = `
UPDATE tasks SET
  title = $2, description = $3, assigned_to = $4, status = $5, deadline = $6, updated_at = $7
WHERE id = $1
`

const completeOwnedTaskSQL = `
UPDATE tasks SET status = 'DONE', updated_at = $3
WHERE id = $1 AND assigned_to = $2
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(s rowScanner) (*domain.Task, error) {
	var (
		t      domain.Task
		status string
	)
	if err := s.Scan(&t.ID, &t.Title, &t.Description, &t.AssignedTo, &t.AssignedToUsername,
		&status, &t.Deadline, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = domain.TaskStatus(status)
	return &t, nil
}

func (r *TaskRepo) List(ctx context.Context, f task.ListFilter) ([]*domain.Task, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if f.AssignedTo != "" {
		rows, err = r.db.QueryContext(ctx, selectTaskSQL+`WHERE t.assigned_to = $1
ORDER BY t.created_at DESC, t.id DESC`, f.AssignedTo)
	} else {
		rows, err = r.db.QueryContext(ctx, selectTaskSQL+`ORDER BY t.created_at DESC, t.id DESC`)
	}
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	out := []*domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return out, nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, selectTaskSQL+`WHERE t.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTaskNotFound()
	}
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return t, nil
}

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	_, err := r.db.ExecContext(ctx, insertTaskSQL,
		t.ID, t.Title, t.Description, t.AssignedTo, string(t.Status),
		t.Deadline, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return mapTaskWriteErr(err, t.AssignedTo)
	}
	return nil
}

func (r *TaskRepo) Update(ctx context.Context, t *domain.Task) error {
	res, err := r.db.ExecContext(ctx, updateTaskSQL,
		t.ID, t.Title, t.Description, t.AssignedTo, string(t.Status), t.Deadline, t.UpdatedAt,
	)
	if err != nil {
		return mapTaskWriteErr(err, t.AssignedTo)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTaskNotFound()
	}
	return nil
}

func (r *TaskRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTaskNotFound()
	}
	return nil
}

// CompleteOwned is a single conditional UPDATE; ownership and the status
// change are decided atomically by the database.
func (r *TaskRepo) CompleteOwned(ctx context.Context, taskID, userID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, completeOwnedTaskSQL, taskID, userID, at)
	if err != nil {
		return false, domain.ErrDBUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.ErrDBUnavailable(err)
	}
	return n > 0, nil
}
