package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"taskManager/internal/logger"
	"taskManager/internal/models/user"
	rep "taskManager/internal/repository"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 32
	minPasswordLen = 8
	// bcrypt учитывает только первые 72 байта
	maxPasswordLen = 72
)

const invalidCredentials = "Invalid credentials"

// dummyPassword хэшируется один раз и сверяется при входе с неизвестным
// email, чтобы время ответа не выдавало наличие пользователя.
const dummyPassword = "dummy-password-for-timing"

type SignInResult struct {
	Token     string
	Username  string
	ExpiresIn time.Duration
}

type AuthService struct {
	users  UserRepository
	hasher PasswordHasher
	tokens TokenIssuer

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(users UserRepository, hasher PasswordHasher, tokens TokenIssuer) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

// SignUp создаёт пользователя. Пароль хэшируется до сохранения, токен не выдаётся.
func (s *AuthService) SignUp(ctx context.Context, username, email, password string) (*user.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if err := validateSignUp(username, email, password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("хэширование пароля: %w", err)
	}

	u := &user.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     email,
		Password:  hash,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, rep.ErrConflict) {
			logger.Info("Service: Пользователь уже существует", zap.String("username", username))
			return nil, NewConflict("username or email already exists")
		}
		return nil, fmt.Errorf("создание пользователя: %w", err)
	}

	logger.Info("Service: Пользователь зарегистрирован", zap.String("user_id", u.ID.String()))
	return u, nil
}

// SignIn проверяет учётные данные и выдаёт токен.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, NewValidationError("email", "is required")
	}
	if password == "" {
		return nil, NewValidationError("password", "is required")
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			s.hasher.Verify(password, s.dummy())
			return nil, NewAuthError(invalidCredentials)
		}
		return nil, fmt.Errorf("поиск пользователя: %w", err)
	}

	if !s.hasher.Verify(password, u.Password) {
		logger.Info("Service: Неверный пароль", zap.String("user_id", u.ID.String()))
		return nil, NewAuthError(invalidCredentials)
	}

	token, err := s.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return nil, fmt.Errorf("выпуск токена: %w", err)
	}

	return &SignInResult{
		Token:     token,
		Username:  u.Username,
		ExpiresIn: s.tokens.TTL(),
	}, nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			logger.Error("Service: Не удалось подготовить фиктивный хэш", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func validateSignUp(username, email, password string) error {
	if username == "" {
		return NewValidationError("username", "is required")
	}
	if n := len([]rune(username)); n < minUsernameLen || n > maxUsernameLen {
		return NewValidationError("username", fmt.Sprintf("must be %d-%d characters", minUsernameLen, maxUsernameLen))
	}
	if email == "" {
		return NewValidationError("email", "is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return NewValidationError("email", "must be a valid address")
	}
	if password == "" {
		return NewValidationError("password", "is required")
	}
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return NewValidationError("password", fmt.Sprintf("must be %d-%d bytes", minPasswordLen, maxPasswordLen))
	}
	return nil
}
