package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go-minimal-auth/internal/model"
	"go-minimal-auth/pkg/apierror"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	var validationErr *model.ValidationError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		if apiErr.Details != "" {
			body.Details = apiErr.Details
		}
	} else if errors.As(err, &validationErr) {
		status = http.StatusUnprocessableEntity
		body.Code = "VALIDATION_FAILED"
		body.Message = "Request validation failed"
		body.Details = validationErr.Fields
	} else if errors.Is(err, model.ErrValidation) {
		status = http.StatusUnprocessableEntity
		body.Code = "VALIDATION_FAILED"
		body.Message = "Request validation failed"
	} else if errors.Is(err, model.ErrUserAlreadyExists) {
		status = http.StatusConflict
		body.Code = "ALREADY_EXISTS"
		body.Message = "Username already registered"
	} else if errors.Is(err, model.ErrInvalidCredentials) {
		status = http.StatusUnauthorized
		body.Code = "UNAUTHORIZED"
		body.Message = "Invalid username or password"
	} else if errors.Is(err, model.ErrInvalidToken) {
		status = http.StatusUnauthorized
		body.Code = "UNAUTHORIZED"
		body.Message = model.ErrInvalidToken.Error()
	} else if errors.Is(err, model.ErrStore) {
		slog.Error("user store failure", "error", err.Error())
	} else if errors.Is(err, model.ErrHashFormat) {
		slog.Error("stored password hash rejected", "error", err.Error())
	} else {
		// Log unclassified errors so they are visible in container logs.
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}

	writeJSON(w, status, model.APIResponse{
		Success: false,
		Error:   body,
	})
}

// decodeJSON reads a single JSON object. Unknown fields are ignored.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apierror.BadRequest("invalid JSON body", "")
	}
	return nil
}
