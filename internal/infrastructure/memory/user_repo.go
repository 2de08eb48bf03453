package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/baechuer/taskflow/internal/domain"
)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

func usernameKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	u, ok := r.db.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	id, ok := r.db.byUsername[usernameKey(username)]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.db.users[id], nil
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	if u.ID == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	if !domain.IsValidRole(string(u.Role)) {
		return domain.User{}, domain.ErrInvalidField("role", "unknown role")
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if u.Role == domain.RoleScrumMaster && r.db.scrumID != "" {
		return domain.User{}, domain.ErrScrumMasterExists()
	}
	key := usernameKey(u.Username)
	if _, exists := r.db.byUsername[key]; exists {
		return domain.User{}, domain.ErrUsernameTaken(u.Username)
	}

	if u.CreatedAt.IsZero() {
		u.CreatedAt = now()
	}
	r.db.users[u.ID] = u
	r.db.byUsername[key] = u.ID
	if u.Role == domain.RoleScrumMaster {
		r.db.scrumID = u.ID
	}
	return u, nil
}

// caller holds the lock
func (r *UserRepo) summary(u domain.User) domain.EmployeeSummary {
	n := 0
	for _, t := range r.db.tasks {
		if t.AssignedTo == u.ID {
			n++
		}
	}
	return domain.EmployeeSummary{ID: u.ID, Username: u.Username, TaskCount: n}
}

func (r *UserRepo) ListEmployees(ctx context.Context) ([]domain.EmployeeSummary, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := []domain.EmployeeSummary{}
	for _, u := range r.db.users {
		if u.Role == domain.RoleEmployee {
			out = append(out, r.summary(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Username), strings.ToLower(out[j].Username)
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *UserRepo) GetEmployee(ctx context.Context, id string) (domain.EmployeeSummary, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	u, ok := r.db.users[id]
	if !ok || u.Role != domain.RoleEmployee {
		return domain.EmployeeSummary{}, domain.ErrEmployeeNotFound()
	}
	return r.summary(u), nil
}

func (r *UserRepo) UsernameTaken(ctx context.Context, username, excludeID string) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	id, ok := r.db.byUsername[usernameKey(username)]
	return ok && id != excludeID, nil
}

func (r *UserRepo) UpdateUsername(ctx context.Context, id, username string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok || u.Role != domain.RoleEmployee {
		return domain.ErrEmployeeNotFound()
	}
	key := usernameKey(username)
	if owner, taken := r.db.byUsername[key]; taken && owner != id {
		return domain.ErrUsernameTaken(username)
	}

	delete(r.db.byUsername, usernameKey(u.Username))
	u.Username = username
	r.db.users[id] = u
	r.db.byUsername[key] = id
	return nil
}

func (r *UserRepo) DeleteWithTasks(ctx context.Context, id string) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok || u.Role != domain.RoleEmployee {
		return 0, domain.ErrEmployeeNotFound()
	}

	removed := 0
	for tid, t := range r.db.tasks {
		if t.AssignedTo == id {
			delete(r.db.tasks, tid)
			removed++
		}
	}
	delete(r.db.users, id)
	delete(r.db.byUsername, usernameKey(u.Username))
	return removed, nil
}
