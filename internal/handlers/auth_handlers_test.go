package handlers_test

import (
	"context"
	"net/http"
	"taskManager/internal/handlers"
	"taskManager/internal/models/user"
	"taskManager/internal/service"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) SignUp(ctx context.Context, username, email, password string) (*user.User, error) {
	args := m.Called(ctx, username, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockAuthService) SignIn(ctx context.Context, email, password string) (*service.SignInResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SignInResult), args.Error(1)
}

func authRouter(m *MockAuthService) http.Handler {
	h := handlers.NewAuthHandler(m)
	r := chi.NewRouter()
	r.Post("/auth/signup", h.SignUp)
	r.Post("/auth/signin", h.SignIn)
	return r
}

// TestAuthHandler_SignUp тестирует регистрацию
func TestAuthHandler_SignUp(t *testing.T) {
	u := &user.User{
		ID:        uuid.New(),
		Username:  "alice",
		Email:     "alice@example.com",
		Password:  "$2a$10$hash",
		CreatedAt: time.Now().UTC(),
	}

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockAuthService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "created",
			body: `{"username":"alice","email":"alice@example.com","password":"secret1"}`,
			setupMock: func(m *MockAuthService) {
				m.On("SignUp", mock.Anything, "alice", "alice@example.com", "secret1").Return(u, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "email taken",
			body: `{"username":"alice","email":"alice@example.com","password":"secret1"}`,
			setupMock: func(m *MockAuthService) {
				m.On("SignUp", mock.Anything, "alice", "alice@example.com", "secret1").
					Return(nil, service.NewConflict("email already registered"))
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   service.CodeConflict,
		},
		{
			name: "missing field",
			body: `{"username":"alice"}`,
			setupMock: func(m *MockAuthService) {
				m.On("SignUp", mock.Anything, "alice", "", "").
					Return(nil, service.NewValidationError("email", "is required"))
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   service.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockAuthService)
			tt.setupMock(m)

			w := do(t, authRouter(m), http.MethodPost, "/auth/signup", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			body := decodeBody(t, w)
			if tt.expectedCode == "" {
				assert.Equal(t, "alice", body["username"])
				assert.NotContains(t, body, "password")
			} else {
				assert.Equal(t, tt.expectedCode, body["error"])
			}
			m.AssertExpectations(t)
		})
	}
}

// TestAuthHandler_SignIn тестирует вход и выдачу токена
func TestAuthHandler_SignIn(t *testing.T) {
	t.Run("token issued", func(t *testing.T) {
		m := new(MockAuthService)
		m.On("SignIn", mock.Anything, "alice@example.com", "secret1").
			Return(&service.SignInResult{Token: "jwt-token", Username: "alice", ExpiresIn: time.Hour}, nil)

		w := do(t, authRouter(m), http.MethodPost, "/auth/signin", `{"email":"alice@example.com","password":"secret1"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "jwt-token", body["token"])
		assert.Equal(t, "alice", body["username"])
		assert.EqualValues(t, 3600, body["expires_in"])
	})

	t.Run("bad credentials", func(t *testing.T) {
		m := new(MockAuthService)
		m.On("SignIn", mock.Anything, "alice@example.com", "wrong").
			Return(nil, service.NewAuthError("invalid email or password"))

		w := do(t, authRouter(m), http.MethodPost, "/auth/signin", `{"email":"alice@example.com","password":"wrong"}`)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, service.CodeAuth, decodeBody(t, w)["error"])
	})
}
