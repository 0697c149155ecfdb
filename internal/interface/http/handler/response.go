package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"task-api/internal/application/dto"
	domainErrors "task-api/internal/domain/errors"
	"task-api/internal/infrastructure/telemetry"
)

// writeJSONResponse writes a JSON response
func writeJSONResponse(ctx context.Context, w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log error but don't change response since headers are already written
		telemetry.Log(ctx, telemetry.LevelError, "Failed to encode JSON response", err)
	}
}

// writeErrorResponse writes an error response
func writeErrorResponse(ctx context.Context, w http.ResponseWriter, message string, statusCode int, code string) {
	errorResp := dto.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Code:    code,
		Message: message,
	}
	writeJSONResponse(ctx, w, errorResp, statusCode)
}

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(kind domainErrors.Kind) int {
	switch kind {
	case domainErrors.KindValidation:
		return http.StatusUnprocessableEntity
	case domainErrors.KindNotFound:
		return http.StatusNotFound
	case domainErrors.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeErrorResponseFromDomainError writes an error response from a domain
// error. Internal failures get a generic body; the cause stays in the logs.
func writeErrorResponseFromDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	var domainErr *domainErrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Kind() == domainErrors.KindInternal {
		telemetry.Log(ctx, telemetry.LevelError, "Request failed with internal error", err,
			attribute.Int("http.status_code", http.StatusInternalServerError),
		)
		writeErrorResponse(ctx, w, "An internal error occurred", http.StatusInternalServerError,
			string(domainErrors.ErrCodeInternalError))
		return
	}

	statusCode := statusFor(domainErr.Kind())
	errorResp := dto.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Code:    string(domainErr.Code),
		Message: domainErr.Message,
		Details: domainErr.Fields,
	}
	writeJSONResponse(ctx, w, errorResp, statusCode)
}
