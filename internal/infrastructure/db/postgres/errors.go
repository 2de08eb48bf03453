package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baechuer/taskflow/internal/domain"
)

// SQLSTATE codes we translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgStringTooLong       = "22001"
)

const (
	constraintUsernameLower = "users_username_lower_key"
	constraintSingleSM      = "users_single_scrum_master"
)

func pgError(err error) *pgconn.PgError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr
	}
	return nil
}

// mapUserWriteErr turns constraint violations on users into domain errors.
func mapUserWriteErr(err error, username string) error {
	if pe := pgError(err); pe != nil {
		switch {
		case pe.Code == pgUniqueViolation && pe.ConstraintName == constraintSingleSM:
			return domain.ErrScrumMasterExists()
		case pe.Code == pgUniqueViolation && pe.ConstraintName == constraintUsernameLower:
			return domain.ErrUsernameTaken(username)
		case pe.Code == pgCheckViolation || pe.Code == pgStringTooLong:
			return domain.ErrInvalidField(pe.ColumnName, pe.Message)
		}
	}
	return domain.ErrDBUnavailable(err)
}

func mapTaskWriteErr(err error, assignee string) error {
	if pe := pgError(err); pe != nil {
		switch pe.Code {
		case pgForeignKeyViolation:
			return domain.ErrUnknownAssignee(assignee)
		case pgCheckViolation, pgStringTooLong:
			return domain.ErrInvalidField(pe.ColumnName, pe.Message)
		}
	}
	return domain.ErrDBUnavailable(err)
}

func mapMeetingWriteErr(err error) error {
	if pe := pgError(err); pe != nil {
		if pe.Code == pgCheckViolation || pe.Code == pgStringTooLong {
			return domain.ErrInvalidField(pe.ColumnName, pe.Message)
		}
	}
	return domain.ErrDBUnavailable(err)
}
