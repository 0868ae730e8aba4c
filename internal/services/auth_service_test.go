package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"sidequest/internal/config"
	"sidequest/internal/models"
)

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		JWTSecret:  "test-secret-at-least-thirty-two-bytes",
		JWTExpiry:  time.Hour,
		JWTIssuer:  "sidequest",
		BCryptCost: bcrypt.MinCost,
	}
}

func registerRunner(t *testing.T, svc AuthService) *AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    "Runner@Example.com",
		Username: "runner",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	return resp
}

func TestRegister_IssuesToken(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewAuthService(users, zap.NewNop(), testAuthConfig())

	resp := registerRunner(t, svc)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "runner@example.com", resp.User.Email)
	assert.NotEqual(t, "correct horse battery", resp.User.PasswordHash)

	claims, err := svc.ValidateToken(context.Background(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, "runner", claims.Username)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), zap.NewNop(), testAuthConfig())
	registerRunner(t, svc)

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    "runner@example.com",
		Username: "another",
		Password: "correct horse battery",
	})
	require.Error(t, err)
	assert.True(t, IsConflictError(err))
	assert.Equal(t, "EMAIL_EXISTS", GetServiceError(err).Code)

	_, err = svc.Register(context.Background(), &RegisterRequest{
		Email:    "other@example.com",
		Username: "RUNNER",
		Password: "correct horse battery",
	})
	assert.Equal(t, "USERNAME_TAKEN", GetServiceError(err).Code)
}

func TestRegister_Validation(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), zap.NewNop(), testAuthConfig())

	_, err := svc.Register(context.Background(), &RegisterRequest{Email: "not-an-email", Username: "ab", Password: "short"})
	require.Error(t, err)
	var fields []string
	for _, f := range GetFieldErrors(err) {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"email", "username", "password"}, fields)
}

func TestLogin(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), zap.NewNop(), testAuthConfig())
	registerRunner(t, svc)

	resp, err := svc.Login(context.Background(), &LoginRequest{Login: "RUNNER@example.com", Password: "correct horse battery"})
	require.NoError(t, err)
	assert.Equal(t, "runner", resp.User.Username)

	_, err = svc.Login(context.Background(), &LoginRequest{Login: "runner", Password: "correct horse battery"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), &LoginRequest{Login: "runner", Password: "wrong password"})
	assert.True(t, IsAuthenticationError(err))

	_, err = svc.Login(context.Background(), &LoginRequest{Login: "ghost", Password: "whatever"})
	assert.True(t, IsAuthenticationError(err))
}

func TestValidateToken_Rejections(t *testing.T) {
	cfg := testAuthConfig()
	svc := NewAuthService(newFakeUserRepo(), zap.NewNop(), cfg)
	resp := registerRunner(t, svc)

	sign := func(method jwt.SigningMethod, issuer string, expires time.Time) string {
		claims := accessClaims{
			UserID: resp.User.ID,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    issuer,
				ExpiresAt: jwt.NewNumericDate(expires),
			},
		}
		s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(cfg.JWTSecret))
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"wrong algorithm", sign(jwt.SigningMethodHS384, cfg.JWTIssuer, time.Now().Add(time.Hour))},
		{"wrong issuer", sign(jwt.SigningMethodHS256, "someone-else", time.Now().Add(time.Hour))},
		{"expired", sign(jwt.SigningMethodHS256, cfg.JWTIssuer, time.Now().Add(-time.Minute))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(context.Background(), tt.token)
			assert.True(t, IsAuthenticationError(err))
		})
	}
}

func TestValidateToken_ExpiryFollowsClock(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), zap.NewNop(), testAuthConfig())
	resp := registerRunner(t, svc)

	impl := svc.(*authService)
	impl.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err := svc.ValidateToken(context.Background(), resp.AccessToken)
	require.Error(t, err)
	assert.True(t, IsAuthenticationError(err))
}

func TestGoogleDisabledWithoutCredentials(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), zap.NewNop(), testAuthConfig())
	assert.False(t, svc.GoogleEnabled())

	_, err := svc.GoogleAuthURL("state")
	assert.Equal(t, ErrTypeUnavailable, GetServiceError(err).Type)
}

func TestUsernameFromEmail(t *testing.T) {
	assert.Equal(t, "janedoe", usernameFromEmail("Jane.Doe@example.com"))
	assert.Equal(t, "a00", usernameFromEmail("a@example.com"))
	assert.Len(t, usernameFromEmail("averyveryveryverylongaddressname@example.com"), 26)
}

func TestAvailableUsername(t *testing.T) {
	users := newFakeUserRepo(&models.User{ID: 1, Username: "janedoe"}, &models.User{ID: 2, Username: "janedoe1"})
	svc := NewAuthService(users, zap.NewNop(), testAuthConfig()).(*authService)

	name, err := svc.availableUsername(context.Background(), "jane.doe@example.com")
	require.NoError(t, err)
	assert.Equal(t, "janedoe2", name)
}
