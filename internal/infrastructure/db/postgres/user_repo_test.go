package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/taskflow/internal/domain"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var userCols = []string{"id", "username", "password_hash", "role", "is_superuser", "created_at"}

func TestUserRepo_GetByUsername_CaseInsensitive(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE lower(username) = lower($1)`)).
		WithArgs("Alice").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u1", "alice", "h", "SCRUM_MASTER", false, now))

	u, err := repo.GetByUsername(context.Background(), " Alice ")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, domain.RoleScrumMaster, u.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.True(t, domain.Is(err, "user_not_found"))
}

func TestUserRepo_GetByID_DBError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WillReturnError(errors.New("conn reset"))

	_, err := repo.GetByID(context.Background(), "u1")
	assert.Equal(t, domain.KindInfrastructure, domain.KindOf(err))
}

func TestUserRepo_Create_MapsConstraints(t *testing.T) {
	cases := []struct {
		name       string
		constraint string
		wantCode   string
	}{
		{"duplicate username", constraintUsernameLower, "username_taken"},
		{"second scrum master", constraintSingleSM, "scrum_master_exists"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewUserRepo(db)

			mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
				WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: tc.constraint})

			_, err := repo.Create(context.Background(), domain.User{
				ID: "u1", Username: "bob", PasswordHash: "h", Role: domain.RoleScrumMaster,
			})
			require.Error(t, err)
			assert.True(t, domain.Is(err, tc.wantCode), "got %v", err)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		})
	}
}

func TestUserRepo_Create_SetsCreatedAt(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("u1", "bob", "h", "EMPLOYEE", false).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	u, err := repo.Create(context.Background(), domain.User{
		ID: "u1", Username: "bob", PasswordHash: "h", Role: domain.RoleEmployee,
	})
	require.NoError(t, err)
	assert.Equal(t, now, u.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Create_RejectsBadInput(t *testing.T) {
	db, _ := newMock(t)
	repo := NewUserRepo(db)

	_, err := repo.Create(context.Background(), domain.User{Username: "x", PasswordHash: "h", Role: domain.RoleEmployee})
	assert.True(t, domain.Is(err, "missing_field"))

	_, err = repo.Create(context.Background(), domain.User{ID: "u1", Username: "x", PasswordHash: "h", Role: "ADMIN"})
	assert.True(t, domain.Is(err, "invalid_field"))
}

func TestUserRepo_ListEmployees(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`LEFT JOIN tasks t ON t.assigned_to = u.id`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "count"}).
			AddRow("e1", "ann", 2).
			AddRow("e2", "ben", 0))

	out, err := repo.ListEmployees(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, domain.EmployeeSummary{ID: "e1", Username: "ann", TaskCount: 2}, out[0])
	assert.Equal(t, 0, out[1].TaskCount)
}

func TestUserRepo_ListEmployees_EmptyIsNotNil(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE u.role = 'EMPLOYEE'`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "count"}))

	out, err := repo.ListEmployees(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestUserRepo_GetEmployee_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`AND u.id = $1`)).
		WithArgs("sm").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetEmployee(context.Background(), "sm")
	assert.True(t, domain.Is(err, "employee_not_found"))
}

func TestUserRepo_UsernameTaken(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WithArgs("ann", "e1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := repo.UsernameTaken(context.Background(), "ann", "e1")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestUserRepo_UpdateUsername(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET username = $2`)).
			WithArgs("e1", "anna").
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, NewUserRepo(db).UpdateUsername(context.Background(), "e1", "anna"))
	})

	t.Run("no row", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET username = $2`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		err := NewUserRepo(db).UpdateUsername(context.Background(), "e1", "anna")
		assert.True(t, domain.Is(err, "employee_not_found"))
	})

	t.Run("lost race on username", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET username = $2`)).
			WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: constraintUsernameLower})
		err := NewUserRepo(db).UpdateUsername(context.Background(), "e1", "anna")
		assert.True(t, domain.Is(err, "username_taken"))
	})
}

func TestUserRepo_DeleteWithTasks(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tasks WHERE assigned_to = $1`)).
		WithArgs("e1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users WHERE id = $1`)).
		WithArgs("e1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := repo.DeleteWithTasks(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_DeleteWithTasks_RollsBackWhenUserMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tasks`)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.DeleteWithTasks(context.Background(), "e1")
	assert.True(t, domain.Is(err, "employee_not_found"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_DeleteWithTasks_BeginFails(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	_, err := NewUserRepo(db).DeleteWithTasks(context.Background(), "e1")
	assert.Equal(t, domain.KindInfrastructure, domain.KindOf(err))
}
