package handlers

import (
	"errors"
	"net/http"
	"taskStream/internal/logger"
	"taskStream/internal/service"

	"go.uber.org/zap"
)

const internalErrorMessage = "internal server error"

// handleServiceError отвечает клиенту по ошибке сервиса.
// Бизнес-ошибки отображаются в свои коды, всё остальное - 500 без подробностей.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	if handleBusinessError(w, err) {
		return
	}

	logger.Error("HTTP: Ошибка Service", err,
		zap.String("operation", operation),
		zap.String("client_ip", r.RemoteAddr))

	responseWithError(w, http.StatusInternalServerError, internalErrorMessage)
}

func handleBusinessError(w http.ResponseWriter, err error) bool {
	var businessErr *service.BusinessError
	if !errors.As(err, &businessErr) {
		return false
	}

	statusCode := mapBusinessErrorToHTTP(businessErr.Code)

	logger.Warn("HTTP: Бизнес-ошибка",
		zap.String("error_code", businessErr.Code),
		zap.Int("http_status", statusCode))

	if businessErr.Code == service.CodeValidation {
		responseWithJSON(w, statusCode,
			toPayload("message", businessErr.Message),
			toPayload("errors", businessErr.Fields),
		)
		return true
	}

	responseWithJSON(w, statusCode,
		toPayload("error", businessErr.Code),
		toPayload("message", businessErr.Message),
		toPayload("details", businessErr.Details),
	)
	return true
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}
