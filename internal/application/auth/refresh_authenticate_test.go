package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/taskflow/internal/domain"
)

func TestRefresh_ReturnsAccessWithCurrentRole(t *testing.T) {
	svc, users, signer, _, _ := newTestService()
	res, err := svc.RegisterEmployee(context.Background(), "gina", "pw")
	require.NoError(t, err)

	// role changed after the refresh token was issued
	u := users.byID[res.User.ID]
	u.Role = domain.RoleScrumMaster
	users.byID[u.ID] = u

	access, err := svc.Refresh(context.Background(), res.Tokens.RefreshToken)
	require.NoError(t, err)

	claims, err := signer.VerifyAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, string(domain.RoleScrumMaster), claims.Role)
	assert.Equal(t, "gina", claims.Username)
}

func TestRefresh_InvalidToken(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	_, err := svc.Refresh(context.Background(), "")
	assert.True(t, domain.Is(err, "refresh_token_invalid"))

	_, err = svc.Refresh(context.Background(), "nope")
	assert.True(t, domain.Is(err, "refresh_token_invalid"))
}

func TestRefresh_DeletedUser(t *testing.T) {
	svc, users, _, _, _ := newTestService()
	res, err := svc.RegisterEmployee(context.Background(), "hank", "pw")
	require.NoError(t, err)

	delete(users.byID, res.User.ID)

	_, err = svc.Refresh(context.Background(), res.Tokens.RefreshToken)
	assert.True(t, domain.Is(err, "refresh_token_invalid"))
}

func TestAuthenticate_ReReadsRole(t *testing.T) {
	svc, users, _, _, _ := newTestService()
	res, err := svc.RegisterEmployee(context.Background(), "ivy", "pw")
	require.NoError(t, err)

	u := users.byID[res.User.ID]
	u.IsSuperuser = true
	users.byID[u.ID] = u

	p, err := svc.Authenticate(context.Background(), res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, p.UserID)
	assert.Equal(t, domain.RoleEmployee, p.Role)
	assert.True(t, p.IsSuperuser)
}

func TestAuthenticate_Errors(t *testing.T) {
	svc, users, _, _, _ := newTestService()

	_, err := svc.Authenticate(context.Background(), " ")
	assert.True(t, domain.Is(err, "token_missing"))

	_, err = svc.Authenticate(context.Background(), "garbage")
	assert.True(t, domain.Is(err, "token_invalid"))

	res, err := svc.RegisterEmployee(context.Background(), "jack", "pw")
	require.NoError(t, err)
	delete(users.byID, res.User.ID)

	_, err = svc.Authenticate(context.Background(), res.Tokens.AccessToken)
	assert.True(t, domain.Is(err, "token_invalid"))
}
