package handlers

import (
	"net/http"
	"taskManager/internal/handlers/dto"
	"taskManager/internal/logger"
	"time"

	"go.uber.org/zap"
)

type AuthHandler struct {
	AuthService AuthService
}

func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{AuthService: authService}
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var request dto.SignUpRequest
	if !bindJSON(w, r, &request, "signup") {
		return
	}

	created, err := h.AuthService.SignUp(r.Context(), request.Username, request.Email, request.Password)
	if err != nil {
		handleError(w, r, err, "signup")
		return
	}

	logger.Info("HTTP_OUT: Пользователь зарегистрирован",
		zap.String("user_id", created.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	writeJSON(w, http.StatusCreated, dto.FromUser(created))
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var request dto.SignInRequest
	if !bindJSON(w, r, &request, "signin") {
		return
	}

	res, err := h.AuthService.SignIn(r.Context(), request.Email, request.Password)
	if err != nil {
		handleError(w, r, err, "signin")
		return
	}

	logger.Info("HTTP_OUT: Вход выполнен",
		zap.String("username", res.Username),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromSignIn(res))
}
