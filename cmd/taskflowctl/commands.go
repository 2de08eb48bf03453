package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/baechuer/taskflow/internal/application/auth"
	"github.com/baechuer/taskflow/internal/domain"
	"github.com/baechuer/taskflow/internal/infrastructure/db/postgres"
	"github.com/baechuer/taskflow/internal/infrastructure/security"
)

type openDBFunc func(dsn string, debug bool) (*sql.DB, error)

const commandTimeout = time.Minute

func newRootCommand(openDB openDBFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "taskflowctl",
		Short:         "Administrative commands for the taskflow service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}
	root.PersistentFlags().String("dsn", "", "Postgres DSN (defaults to $DB_ADDR)")

	root.AddCommand(newMigrateCommand(openDB))
	root.AddCommand(newCreateSuperuserCommand(openDB))
	return root
}

func newMigrateCommand(openDB openDBFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := connect(cmd, openDB)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			applied, err := postgres.Migrate(ctx, db)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				cmd.Println("schema is up to date")
				return nil
			}
			for _, v := range applied {
				cmd.Printf("applied %s\n", v)
			}
			return nil
		},
	}
}

func newCreateSuperuserCommand(openDB openDBFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-superuser",
		Short: "Create an administrator account",
		Long: "Create an administrator account. The password is read from --password or, " +
			"when that is empty, from $TASKFLOW_SUPERUSER_PASSWORD.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			role, _ := cmd.Flags().GetString("role")
			cost, _ := cmd.Flags().GetInt("bcrypt-cost")

			if password == "" {
				password = os.Getenv("TASKFLOW_SUPERUSER_PASSWORD")
			}
			if password == "" {
				return errors.New("a password is required")
			}
			role = strings.ToUpper(strings.TrimSpace(role))
			if !domain.IsValidRole(role) {
				return fmt.Errorf("invalid role %q (want %s or %s)", role, domain.RoleScrumMaster, domain.RoleEmployee)
			}

			db, err := connect(cmd, openDB)
			if err != nil {
				return err
			}
			defer db.Close()

			svc := auth.NewService(postgres.NewUserRepo(db), security.NewBcryptHasher(cost), nil, nil, auth.Config{})

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			u, err := svc.CreateSuperuser(ctx, username, password, domain.Role(role))
			if err != nil {
				return err
			}
			cmd.Printf("created %s %q (%s)\n", u.Role, u.Username, u.ID)
			return nil
		},
	}

	cmd.Flags().StringP("username", "u", "", "Username for the new account (required)")
	cmd.Flags().StringP("password", "p", "", "Password for the new account")
	cmd.Flags().String("role", string(domain.RoleScrumMaster), "Role for the new account")
	cmd.Flags().Int("bcrypt-cost", 12, "bcrypt cost")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func connect(cmd *cobra.Command, openDB openDBFunc) (*sql.DB, error) {
	dsn, _ := cmd.Flags().GetString("dsn")
	if dsn == "" {
		dsn = os.Getenv("DB_ADDR")
	}
	if dsn == "" {
		return nil, errors.New("no database configured: pass --dsn or set DB_ADDR")
	}
	return openDB(dsn, false)
}
