package service_test

import (
	"context"
	"strings"
	"taskManager/internal/auth"
	"taskManager/internal/repository/user/inmemory"
	"taskManager/internal/service"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T) (*service.AuthService, *inmemory.UserStorage, *auth.TokenManager) {
	t.Helper()

	users := inmemory.NewUserStorage()
	tokens, err := auth.NewTokenManager(auth.TokenConfig{Secret: "test-secret", TTL: time.Hour})
	require.NoError(t, err)

	return service.NewAuthService(users, auth.NewPasswordHasher(bcrypt.MinCost), tokens), users, tokens
}

// TestAuthService_SignUp тестирует регистрацию и хранение хэша вместо пароля
func TestAuthService_SignUp(t *testing.T) {
	ctx := context.Background()
	svc, users, _ := newAuthService(t)

	created, err := svc.SignUp(ctx, "alice", "Alice@Example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice", created.Username)
	assert.Equal(t, "alice@example.com", created.Email)

	stored, err := users.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", stored.Password)
	assert.True(t, strings.HasPrefix(stored.Password, "$2"))

	t.Run("duplicate username", func(t *testing.T) {
		_, err := svc.SignUp(ctx, "alice", "other@example.com", "password123")
		assert.True(t, service.IsCode(err, service.CodeConflict))
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.SignUp(ctx, "alice2", "ALICE@example.com", "password123")
		assert.True(t, service.IsCode(err, service.CodeConflict))
	})
	assert.Equal(t, 1, users.Count())
}

// TestAuthService_SignUp_Validation тестирует проверку полей регистрации
func TestAuthService_SignUp_Validation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		password string
		field    string
	}{
		{name: "missing username", username: "", email: "a@example.com", password: "password123", field: "username"},
		{name: "short username", username: "al", email: "a@example.com", password: "password123", field: "username"},
		{name: "missing email", username: "alice", email: "", password: "password123", field: "email"},
		{name: "malformed email", username: "alice", email: "not-an-email", password: "password123", field: "email"},
		{name: "missing password", username: "alice", email: "a@example.com", password: "", field: "password"},
		{name: "short password", username: "alice", email: "a@example.com", password: "short", field: "password"},
		{name: "password over bcrypt limit", username: "alice", email: "a@example.com", password: strings.Repeat("p", 73), field: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, users, _ := newAuthService(t)

			_, err := svc.SignUp(context.Background(), tt.username, tt.email, tt.password)

			busErr, ok := service.AsBusinessError(err)
			require.True(t, ok)
			assert.Equal(t, service.CodeValidation, busErr.Code)
			assert.Equal(t, tt.field, busErr.Details["field"])
			assert.Equal(t, 0, users.Count())
		})
	}
}

// TestAuthService_SignIn тестирует вход и одинаковый ответ на неверные данные
func TestAuthService_SignIn(t *testing.T) {
	ctx := context.Background()
	svc, _, tokens := newAuthService(t)

	created, err := svc.SignUp(ctx, "alice", "alice@example.com", "password123")
	require.NoError(t, err)

	res, err := svc.SignIn(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice", res.Username)
	assert.Equal(t, time.Hour, res.ExpiresIn)

	claims, err := tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.UserUUID())
	assert.Equal(t, "alice", claims.Username)

	_, wrongPassword := svc.SignIn(ctx, "alice@example.com", "wrong-password")
	_, unknownUser := svc.SignIn(ctx, "bob@example.com", "password123")

	require.Error(t, wrongPassword)
	require.Error(t, unknownUser)
	assert.True(t, service.IsCode(wrongPassword, service.CodeAuth))
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())

	_, missing := svc.SignIn(ctx, "", "password123")
	assert.True(t, service.IsCode(missing, service.CodeValidation))
}

type countingHasher struct {
	*auth.PasswordHasher
	verified []string
}

func (h *countingHasher) Verify(password, hash string) bool {
	h.verified = append(h.verified, hash)
	return h.PasswordHasher.Verify(password, hash)
}

// TestAuthService_SignIn_UnknownEmailVerifiesHash тестирует, что вход с
// неизвестным email тоже сверяет пароль с bcrypt-хэшем
func TestAuthService_SignIn_UnknownEmailVerifiesHash(t *testing.T) {
	ctx := context.Background()
	tokens, err := auth.NewTokenManager(auth.TokenConfig{Secret: "test-secret", TTL: time.Hour})
	require.NoError(t, err)
	hasher := &countingHasher{PasswordHasher: auth.NewPasswordHasher(bcrypt.MinCost)}
	svc := service.NewAuthService(inmemory.NewUserStorage(), hasher, tokens)

	_, err = svc.SignIn(ctx, "nobody@example.com", "password123")
	assert.True(t, service.IsCode(err, service.CodeAuth))
	require.Len(t, hasher.verified, 1)
	assert.True(t, strings.HasPrefix(hasher.verified[0], "$2"))

	_, err = svc.SignIn(ctx, "nobody@example.com", "other-password")
	assert.True(t, service.IsCode(err, service.CodeAuth))
	require.Len(t, hasher.verified, 2)
	assert.Equal(t, hasher.verified[0], hasher.verified[1])
}
