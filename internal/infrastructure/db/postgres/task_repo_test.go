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

	"github.com/baechuer/taskflow/internal/application/task"
	"github.com/baechuer/taskflow/internal/domain"
)

var taskCols = []string{"id", "title", "description", "assigned_to", "username", "status", "deadline", "created_at", "updated_at"}

func TestTaskRepo_List_FiltersByAssignee(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskRepo(db)
	now := time.Now().UTC()
	deadline := now.Add(48 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE t.assigned_to = $1`)).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows(taskCols).
			AddRow("t2", "second", "", "e1", "ann", "IN_PROGRESS", deadline, now, now).
			AddRow("t1", "first", "d", "e1", "ann", "TODO", nil, now, now))

	out, err := repo.List(context.Background(), task.ListFilter{AssignedTo: "e1"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "ann", out[0].AssignedToUsername)
	assert.Equal(t, domain.TaskInProgress, out[0].Status)
	require.NotNil(t, out[0].Deadline)
	assert.Nil(t, out[1].Deadline)
}

func TestTaskRepo_List_All(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTaskRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY t.created_at DESC, t.id DESC`)).
		WithoutArgs().
		WillReturnRows(sqlmock.NewRows(taskCols))

	out, err := repo.List(context.Background(), task.ListFilter{})
	require.NoError(t, err)
	assert.NotNil(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE t.id = $1`)).WillReturnError(sql.ErrNoRows)

	_, err := NewTaskRepo(db).GetByID(context.Background(), "nope")
	assert.True(t, domain.Is(err, "task_not_found"))
}

func TestTaskRepo_Create_UnknownAssignee(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO tasks`)).
		WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation, ConstraintName: "tasks_assigned_to_fkey"})

	err := NewTaskRepo(db).Create(context.Background(), &domain.Task{ID: "t1", Title: "x", AssignedTo: "ghost", Status: domain.TaskTodo})
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestTaskRepo_Update_NoRow(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tasks SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewTaskRepo(db).Update(context.Background(), &domain.Task{ID: "t1", Status: domain.TaskDone})
	assert.True(t, domain.Is(err, "task_not_found"))
}

func TestTaskRepo_Delete(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tasks WHERE id = $1`)).
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewTaskRepo(db).Delete(context.Background(), "t1"))
}

func TestTaskRepo_CompleteOwned(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("owned", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta(`WHERE id = $1 AND assigned_to = $2`)).
			WithArgs("t1", "e1", at).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := NewTaskRepo(db).CompleteOwned(context.Background(), "t1", "e1", at)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("not owned", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta(`WHERE id = $1 AND assigned_to = $2`)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := NewTaskRepo(db).CompleteOwned(context.Background(), "t1", "e2", at)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("db down", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE tasks SET status = 'DONE'`)).
			WillReturnError(errors.New("broken pipe"))

		_, err := NewTaskRepo(db).CompleteOwned(context.Background(), "t1", "e1", at)
		assert.Equal(t, domain.KindInfrastructure, domain.KindOf(err))
	})
}
