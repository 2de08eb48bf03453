package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/baechuer/taskflow/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, username, password_hash, role, is_superuser, created_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &u.IsSuperuser, &u.CreatedAt)
	u.Role = domain.RoleOrDefault(role)
	return u, err
}

// ---------- auth.UserRepo ----------

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, domain.ErrUserNotFound()
	}

	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return u, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, domain.ErrUserNotFound()
	}

	const q = `SELECT ` + userColumns + ` FROM users WHERE lower(username) = lower($1)`

	u, err := scanUser(r.db.QueryRowContext(ctx, q, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return u, nil
}

// Create relies on users_username_lower_key and users_single_scrum_master;
// there is no read-then-write check here.
func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	if u.ID == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	if u.PasswordHash == "" {
		return domain.User{}, domain.ErrMissingField("password_hash")
	}
	if !domain.IsValidRole(string(u.Role)) {
		return domain.User{}, domain.ErrInvalidField("role", "unknown role")
	}

	const q = `
INSERT INTO users (id, username, password_hash, role, is_superuser)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at
`
	if err := r.db.QueryRowContext(ctx, q,
		u.ID, u.Username, u.PasswordHash, string(u.Role), u.IsSuperuser,
	).Scan(&u.CreatedAt); err != nil {
		return domain.User{}, mapUserWriteErr(err, u.Username)
	}
	return u, nil
}

// ---------- employee.Repo ----------

const employeeSummarySQL = `
SELECT u.id, u.username, COUNT(t.id)
FROM users u
LEFT JOIN tasks t ON t.assigned_to = u.id
WHERE u.role = 'EMPLOYEE'
`

func (r *UserRepo) ListEmployees(ctx context.Context) ([]domain.EmployeeSummary, error) {
	const q = employeeSummarySQL + `
GROUP BY u.id, u.username
ORDER BY lower(u.username), u.id
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	out := []domain.EmployeeSummary{}
	for rows.Next() {
		var e domain.EmployeeSummary
		if err := rows.Scan(&e.ID, &e.Username, &e.TaskCount); err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return out, nil
}

func (r *UserRepo) GetEmployee(ctx context.Context, id string) (domain.EmployeeSummary, error) {
	const q = employeeSummarySQL + `
  AND u.id = $1
GROUP BY u.id, u.username
`
	var e domain.EmployeeSummary
	err := r.db.QueryRowContext(ctx, q, id).Scan(&e.ID, &e.Username, &e.TaskCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.EmployeeSummary{}, domain.ErrEmployeeNotFound()
		}
		return domain.EmployeeSummary{}, domain.ErrDBUnavailable(err)
	}
	return e, nil
}

func (r *UserRepo) UsernameTaken(ctx context.Context, username, excludeID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE lower(username) = lower($1) AND id <> $2)`

	var taken bool
	if err := r.db.QueryRowContext(ctx, q, username, excludeID).Scan(&taken); err != nil {
		return false, domain.ErrDBUnavailable(err)
	}
	return taken, nil
}

func (r *UserRepo) UpdateUsername(ctx context.Context, id, username string) error {
	const q = `UPDATE users SET username = $2 WHERE id = $1 AND role = 'EMPLOYEE'`

	res, err := r.db.ExecContext(ctx, q, id, username)
	if err != nil {
		return mapUserWriteErr(err, username)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrEmployeeNotFound()
	}
	return nil
}

// DeleteWithTasks deletes the employee's tasks and then the employee in one
// transaction.
func (r *UserRepo) DeleteWithTasks(ctx context.Context, id string) (int, error) {
	var removed int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE assigned_to = $1`, id)
		if err != nil {
			return domain.ErrDBUnavailable(err)
		}
		removed, _ = res.RowsAffected()

		res, err = tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1 AND role = 'EMPLOYEE'`, id)
		if err != nil {
			return domain.ErrDBUnavailable(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrEmployeeNotFound()
		}
		return nil
	})
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			return 0, err
		}
		return 0, domain.ErrDBUnavailable(err)
	}
	return int(removed), nil
}
