package employee

import (
	"context"
	"strconv"
	"strings"

	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/taskflow/internal/domain"
)

// Repo is the slice of the identity store employee management needs.
// Every method addresses users with role EMPLOYEE only.
type Repo interface {
	ListEmployees(ctx context.Context) ([]domain.EmployeeSummary, error)
	GetEmployee(ctx context.Context, id string) (domain.EmployeeSummary, error)
	UsernameTaken(ctx context.Context, username, excludeID string) (bool, error)
	// UpdateUsername must still report domain.ErrUsernameTaken if a
	// concurrent writer claims the name first.
	UpdateUsername(ctx context.Context, id, username string) error
	// DeleteWithTasks removes the user's tasks and the user atomically and
	// returns how many tasks were removed.
	DeleteWithTasks(ctx context.Context, id string) (int, error)
}

type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID string) error
}

type Service struct {
	repo     Repo
	sessions SessionRevoker
	audit    func(action string, fields map[string]string)
}

func New(repo Repo, sessions SessionRevoker) *Service {
	return &Service{
		repo:     repo,
		sessions: sessions,
		audit:    func(string, map[string]string) {},
	}
}

func (s *Service) WithAudit(fn func(action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

var employees = domain.Resource{Kind: domain.ResourceEmployee}

func (s *Service) List(ctx context.Context, actor domain.Principal) ([]domain.EmployeeSummary, error) {
	if err := domain.RequireAllowed(actor, employees, domain.OpList); err != nil {
		return nil, err
	}
	return s.repo.ListEmployees(ctx)
}

func (s *Service) Get(ctx context.Context, actor domain.Principal, id string) (domain.EmployeeSummary, error) {
	if err := domain.RequireAllowed(actor, employees, domain.OpRead); err != nil {
		return domain.EmployeeSummary{}, err
	}
	return s.repo.GetEmployee(ctx, strings.TrimSpace(id))
}

// Rename changes an employee's username. The comparison against other users
// is case-insensitive and ignores the employee being renamed.
func (s *Service) Rename(ctx context.Context, actor domain.Principal, id, username string) (domain.EmployeeSummary, error) {
	if err := domain.RequireAllowed(actor, employees, domain.OpUpdate); err != nil {
		return domain.EmployeeSummary{}, err
	}

	username, err := domain.NormalizeUsername(username)
	if err != nil {
		return domain.EmployeeSummary{}, err
	}

	emp, err := s.repo.GetEmployee(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.EmployeeSummary{}, err
	}

	taken, err := s.repo.UsernameTaken(ctx, username, emp.ID)
	if err != nil {
		return domain.EmployeeSummary{}, err
	}
	if taken {
		return domain.EmployeeSummary{}, domain.ErrUsernameTaken(username)
	}

	if err := s.repo.UpdateUsername(ctx, emp.ID, username); err != nil {
		return domain.EmployeeSummary{}, err
	}
	emp.Username = username
	return emp, nil
}

// Delete removes the employee together with every task assigned to them and
// revokes their refresh sessions.
func (s *Service) Delete(ctx context.Context, actor domain.Principal, id string) error {
	if err := domain.RequireAllowed(actor, employees, domain.OpDelete); err != nil {
		return err
	}

	emp, err := s.repo.GetEmployee(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}

	removed, err := s.repo.DeleteWithTasks(ctx, emp.ID)
	if err != nil {
		return err
	}

	if s.sessions != nil {
		if err := s.sessions.RevokeAll(ctx, emp.ID); err != nil {
			zlog.Warn().Err(err).Str("user_id", emp.ID).Msg("revoke sessions after delete failed")
		}
	}

	s.audit("employee_deleted", map[string]string{
		"user_id":       emp.ID,
		"tasks_removed": strconv.Itoa(removed),
		"by":            actor.UserID,
	})
	return nil
}
