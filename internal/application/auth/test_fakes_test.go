package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/baechuer/taskflow/internal/domain"
)

/*
Fakes for ports
*/

type fakeUserRepo struct {
	mu sync.Mutex

	byID map[string]domain.User

	getErr    error
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[string]domain.User{}}
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return domain.User{}, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return domain.User{}, f.getErr
	}
	for _, u := range f.byID {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

// Create mimics the storage constraints.
func (f *fakeUserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return domain.User{}, f.createErr
	}
	for _, existing := range f.byID {
		if u.Role == domain.RoleScrumMaster && existing.Role == domain.RoleScrumMaster {
			return domain.User{}, domain.ErrScrumMasterExists()
		}
		if strings.EqualFold(existing.Username, u.Username) {
			return domain.User{}, domain.ErrUsernameTaken(u.Username)
		}
	}
	u.CreatedAt = time.Now()
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUserRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakeHasher struct {
	hashErr error
}

func (h fakeHasher) Hash(password string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "h:" + password, nil
}

func (h fakeHasher) Compare(hash string, password string) error {
	if hash != "h:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type fakeSigner struct {
	mu      sync.Mutex
	signErr error
	claims  map[string]TokenClaims
}

func newFakeSigner() *fakeSigner {
	return &fakeSigner{claims: map[string]TokenClaims{}}
}

func (s *fakeSigner) SignAccessToken(userID, username, role string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signErr != nil {
		return "", s.signErr
	}
	tok := "at:" + userID + ":" + role
	s.claims[tok] = TokenClaims{UserID: userID, Username: username, Role: role, Exp: time.Now().Add(ttl)}
	return tok, nil
}

func (s *fakeSigner) VerifyAccessToken(token string) (TokenClaims, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[token]
	if !ok {
		return TokenClaims{}, domain.ErrTokenInvalid()
	}
	return c, nil
}

type fakeSessions struct {
	mu     sync.Mutex
	tokens map[string]string
	seq    int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: map[string]string{}}
}

func (s *fakeSessions) CreateRefreshToken(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	tok := "rt-" + userID + "-" + string(rune('a'+s.seq))
	s.tokens[tok] = userID
	return tok, nil
}

func (s *fakeSessions) GetUserIDByRefreshToken(ctx context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok := s.tokens[token]
	if !ok {
		return "", domain.ErrRefreshTokenInvalid()
	}
	return uid, nil
}

type auditEntry struct {
	action string
	fields map[string]string
}

func newTestService() (*Service, *fakeUserRepo, *fakeSigner, *fakeSessions, *[]auditEntry) {
	users := newFakeUserRepo()
	signer := newFakeSigner()
	sessions := newFakeSessions()
	var (
		auditMu sync.Mutex
		audits  []auditEntry
	)

	svc := NewService(users, fakeHasher{}, signer, sessions, Config{
		AccessTTL:  5 * time.Minute,
		RefreshTTL: time.Hour,
	}).WithAudit(func(action string, fields map[string]string) {
		auditMu.Lock()
		defer auditMu.Unlock()
		audits = append(audits, auditEntry{action: action, fields: fields})
	})
	return svc, users, signer, sessions, &audits
}
