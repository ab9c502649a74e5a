package middleware

import (
	"context"
	"net/http"
	"strings"
	"taskManager/internal/auth"
	"taskManager/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const identityKey contextKey = "identity"

// Identity - пользователь, от имени которого выполняется запрос.
type Identity struct {
	ID       uuid.UUID
	Username string
}

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Authenticate требует заголовок "Authorization: Bearer <token>".
// Любая ошибка проверки даёт 403 до обращения к хранилищу.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, r, http.StatusForbidden, "AUTH_ERROR", "missing or malformed Authorization header", nil)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				logger.Info("Middleware: Токен отклонён",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Error(err))
				writeError(w, r, http.StatusForbidden, "AUTH_ERROR", err.Error(), nil)
				return
			}

			identity := Identity{ID: claims.UserUUID(), Username: claims.Username}
			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func UserFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// WithIdentity кладёт пользователя в контекст; используется в тестах обработчиков.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
