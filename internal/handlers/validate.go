package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"taskManager/internal/handlers/dto"
	"taskManager/internal/logger"
	"taskManager/internal/service"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var errUnsupportedMedia = errors.New("content type must be application/json")

func checkContentType(r *http.Request, target string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == target
}

// decodeJSON читает тело запроса; ошибки разбора становятся ошибками валидации.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if !checkContentType(r, "application/json") {
		return errUnsupportedMedia
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return service.NewValidationError("body", "malformed JSON: "+err.Error())
	}
	return nil
}

// bindJSON пишет ответ об ошибке сам и возвращает false, если тело не прочитано.
func bindJSON(w http.ResponseWriter, r *http.Request, dst any, operation string) bool {
	err := decodeJSON(w, r, dst)
	if err == nil {
		return true
	}
	if errors.Is(err, errUnsupportedMedia) {
		logger.Warn("HTTP: Неверный тип контента",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithJSON(w, http.StatusUnsupportedMediaType,
			toPayload("error", "UNSUPPORTED_MEDIA_TYPE"),
			toPayload("message", err.Error()),
			toPayload("details", map[string]any{}),
		)
		return false
	}
	handleError(w, r, err, operation)
	return false
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, service.NewValidationError(name, "must be a valid UUID")
	}
	return id, nil
}

// queryInt возвращает fallback для отсутствующего или нечислового
// параметра; дальше значение приводится к допустимому диапазону.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := dto.ParseDate(raw)
	if err != nil {
		return nil, service.NewValidationError(name, fmt.Sprintf("must be RFC 3339 or YYYY-MM-DD, got %q", raw))
	}
	return &t, nil
}
