package auth

import (
	"context"
	"time"

	"github.com/baechuer/taskflow/internal/domain"
)

/*
UserRepo
--------
Persistence port for users.
Username lookups are case-insensitive. Create must enforce the unique
username and the single Scrum Master at the storage level and report them as
domain.ErrUsernameTaken / domain.ErrScrumMasterExists.
*/
type UserRepo interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	Create(ctx context.Context, u domain.User) (domain.User, error)
}

/*
PasswordHasher
--------------
Abstracts bcrypt.
*/
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error // nil if match
}

/*
TokenSigner
-----------
Issues and verifies access tokens (JWT).
*/
type TokenClaims struct {
	UserID   string
	Username string
	Role     string
	Exp      time.Time
}

type TokenSigner interface {
	SignAccessToken(userID, username, role string, ttl time.Duration) (string, error)
	VerifyAccessToken(token string) (TokenClaims, error)
}

/*
SessionStore
------------
Opaque refresh tokens. Backed by Redis or memory.
*/
type SessionStore interface {
	CreateRefreshToken(ctx context.Context, userID string, ttl time.Duration) (token string, err error)
	GetUserIDByRefreshToken(ctx context.Context, token string) (string, error)
}
