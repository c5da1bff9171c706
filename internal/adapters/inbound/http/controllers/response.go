package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	apperrors "paymasterhub/internal/shared_kernel/errors"

	"github.com/go-playground/validator/v10"
)

var payloadValidator = validator.New(validator.WithRequiredStructEnabled())

type errorResponse struct {
	Error errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeAppError(w http.ResponseWriter, appErr *apperrors.AppError) {
	status := http.StatusInternalServerError
	switch appErr.Type {
	case apperrors.TypeValidation:
		status = http.StatusBadRequest
	case apperrors.TypeNotFound:
		status = http.StatusNotFound
	case apperrors.TypeConflict:
		status = http.StatusConflict
	case apperrors.TypeUnavailable:
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, errorResponse{
		Error: errorEnvelope{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		},
	})
}

// decodePayload reads exactly one JSON object into target and runs its
// validate tags.
func decodePayload(body io.Reader, target any) *apperrors.AppError {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		return apperrors.NewValidation(
			"invalid_request",
			"request body must be valid JSON",
			map[string]any{"error": err.Error()},
		)
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return apperrors.NewValidation(
			"invalid_request",
			"request body must contain a single JSON object",
			nil,
		)
	}

	if err := payloadValidator.Struct(target); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			first := validationErrors[0]
			return apperrors.NewValidation(
				"invalid_request",
				"request body failed validation",
				map[string]any{
					"field": jsonFieldPath(first.Namespace()),
					"rule":  first.Tag(),
				},
			)
		}
		return apperrors.NewValidation("invalid_request", "request body failed validation", nil)
	}

	return nil
}

func jsonFieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.ToLower(strings.Join(parts, "."))
}

func projectIDFromPath(r *http.Request) (string, *apperrors.AppError) {
	projectID := strings.TrimSpace(r.PathValue("projectId"))
	if projectID == "" {
		return "", apperrors.NewValidation(
			"invalid_request",
			"projectId path parameter is required",
			map[string]any{"field": "projectId"},
		)
	}
	return projectID, nil
}
