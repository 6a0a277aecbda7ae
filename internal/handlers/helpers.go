package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/expressdiff/expressdiff/internal/models"
)

// validate checks request DTO struct tags. Shared across handlers; the
// validator is safe for concurrent use.
var validate = validator.New()

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a standard success JSON response.
func WriteSuccess(w http.ResponseWriter, message string) error {
	return WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": message,
	})
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteServiceError maps service errors to HTTP status codes in one place.
// Validation failures carry their error and warning lists verbatim.
func WriteServiceError(w http.ResponseWriter, logger arbor.ILogger, err error) {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"status":   "error",
			"error":    validationErr.Error(),
			"errors":   validationErr.Result.Errors,
			"warnings": validationErr.Result.Warnings,
		})
		return
	}

	switch {
	case errors.Is(err, models.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrRerunRequired):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrConflict):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrDependency), errors.Is(err, models.ErrValidation):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrScheduler):
		WriteError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, models.ErrTemplate), errors.Is(err, models.ErrConfig):
		WriteError(w, http.StatusInternalServerError, err.Error())
	default:
		logger.Error().Err(err).Msg("Unhandled service error")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// DecodeAndValidate parses a JSON request body into dst and applies its
// validation tags. Writes the error response itself and reports success.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return false
	}
	return true
}
