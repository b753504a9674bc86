package service

import (
	"context"
	"net/http"
	"testing"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.auth.Register(ctx, &model.RegisterRequest{Email: "Trader@Example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)

	claims, err := f.auth.ValidateToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "trader@example.com", claims.Email)
	assert.Equal(t, model.RoleUser, claims.Role)

	me, err := f.auth.Me(ctx, claims.UserID)
	require.NoError(t, err)
	assert.Equal(t, "trader@example.com", me.Email)

	login, err := f.auth.Login(ctx, &model.LoginRequest{Email: "trader@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, &model.RegisterRequest{Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = f.auth.Register(ctx, &model.RegisterRequest{Email: "A@example.com", Password: "password2"})
	appErr := util.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	assert.Equal(t, "User already exists", appErr.Message)
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, &model.RegisterRequest{Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)

	for _, req := range []*model.LoginRequest{
		{Email: "a@example.com", Password: "wrong-password"},
		{Email: "nobody@example.com", Password: "password1"},
	} {
		_, err := f.auth.Login(ctx, req)
		appErr := util.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, http.StatusUnauthorized, appErr.StatusCode)
		assert.Equal(t, "Invalid credentials", appErr.Message)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.auth.Register(ctx, &model.RegisterRequest{Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)
	claims, err := f.auth.ValidateToken(ctx, resp.Token)
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, claims))

	_, err = f.auth.ValidateToken(ctx, resp.Token)
	appErr := util.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, util.ErrCodeTokenInvalid, appErr.Code)
	assert.Equal(t, "Token has been revoked", appErr.Message)

	_, err = f.auth.ValidateToken(ctx, "garbage")
	assert.True(t, util.HasCode(err, util.ErrCodeTokenInvalid))
}

func TestEnsureAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin, err := f.auth.EnsureAdmin(ctx, "admin@example.com", "first-pass")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)

	again, err := f.auth.EnsureAdmin(ctx, "admin@example.com", "second-pass")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	_, err = f.auth.Login(ctx, &model.LoginRequest{Email: "admin@example.com", Password: "second-pass"})
	assert.NoError(t, err)
}
