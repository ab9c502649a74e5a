package handlers

import (
	"net/http"
	"taskManager/internal/logger"
	"taskManager/internal/middleware"
	"taskManager/internal/service"

	"go.uber.org/zap"
)

// handleError отвечает бизнес-ошибкой с её кодом или общим 500;
// подробности внутренних ошибок остаются только в логах.
func handleError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	requestId := middleware.GetRequestID(r.Context())

	if businessErr, ok := service.AsBusinessError(err); ok {
		statusCode := mapBusinessErrorToHTTP(businessErr.Code)

		logger.Warn("HTTP: Бизнес-ошибка",
			zap.String("request_id", requestId),
			zap.String("operation", operation),
			zap.String("error_code", businessErr.Code),
			zap.Int("http_status", statusCode))

		details := businessErr.Details
		if details == nil {
			details = map[string]any{}
		}
		responseWithJSON(w, statusCode,
			toPayload("error", businessErr.Code),
			toPayload("message", businessErr.Message),
			toPayload("details", details),
		)
		return
	}

	logger.Error("HTTP: Ошибка Service", err,
		zap.String("request_id", requestId),
		zap.String("operation", operation),
		zap.String("client_ip", r.RemoteAddr))

	responseWithJSON(w, http.StatusInternalServerError,
		toPayload("error", "INTERNAL_ERROR"),
		toPayload("message", "internal server error"),
		toPayload("details", map[string]any{}),
	)
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeAuth:
		return http.StatusForbidden
	case service.CodeConflict:
		return http.StatusConflict
	case service.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// NotFound и MethodNotAllowed подключаются к роутеру.
func NotFound(w http.ResponseWriter, r *http.Request) {
	responseWithJSON(w, http.StatusNotFound, toPayload("error", "not found"))
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	responseWithJSON(w, http.StatusMethodNotAllowed, toPayload("error", "method not allowed"))
}
