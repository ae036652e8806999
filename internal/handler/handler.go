package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"orderdesk/internal/middleware"
	"orderdesk/internal/model"

	"github.com/rs/zerolog"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes the standard error body, tagged with the request id.
func writeError(w http.ResponseWriter, r *http.Request, status int, body model.ErrorResponse, logger zerolog.Logger) {
	body.CorrelationID = middleware.RequestIDFromContext(r.Context())

	event := logger.Debug()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.
		Str("error", body.Error).
		Str("message", body.Message).
		Int("status", status).
		Str("request_id", body.CorrelationID).
		Msg("handler error")

	writeJSON(w, status, body)
}

// domainStatus maps domain error codes to HTTP status codes.
var domainStatus = map[string]int{
	model.ErrCodeEmptyOrder:      http.StatusBadRequest,
	model.ErrCodeInvalidQuantity: http.StatusBadRequest,
	model.ErrCodeInvalidStatus:   http.StatusBadRequest,
	model.ErrCodeUnknownCoupon:   http.StatusBadRequest,
	model.ErrCodeOrderNotFound:   http.StatusNotFound,
	model.ErrCodeBuyerNotFound:   http.StatusNotFound,
	model.ErrCodeUnauthorised:    http.StatusUnauthorized,
	model.ErrCodeForbidden:       http.StatusForbidden,
}

// writeServiceError translates an error returned by the order engine.
// Anything unrecognised is reported as a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var (
		validationErr *model.ValidationError
		shortfallErr  *model.StockShortfallError
		transitionErr *model.TransitionError
		domainErr     *model.DomainError
	)

	switch {
	case errors.As(err, &validationErr):
		writeError(w, r, http.StatusBadRequest, model.ErrorResponse{
			Error:   model.ErrCodeValidation,
			Message: validationErr.Error(),
			Field:   validationErr.Field,
		}, logger)

	case errors.As(err, &shortfallErr):
		writeError(w, r, http.StatusConflict, model.ErrorResponse{
			Error:      model.ErrCodeInsufficientStock,
			Message:    "Insufficient stock for one or more items",
			Shortfalls: shortfallErr.Items,
		}, logger)

	case errors.As(err, &transitionErr):
		writeError(w, r, http.StatusConflict, model.ErrorResponse{
			Error:   model.ErrCodeInvalidTransition,
			Message: transitionErr.Error(),
		}, logger)

	case errors.As(err, &domainErr):
		status, ok := domainStatus[domainErr.Code]
		if !ok {
			status = http.StatusBadRequest
		}
		writeError(w, r, status, model.ErrorResponse{
			Error:   domainErr.Code,
			Message: domainErr.Message,
		}, logger)

	default:
		logger.Error().
			Err(err).
			Str("path", r.URL.Path).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Msg("unexpected service error")
		writeError(w, r, http.StatusInternalServerError, model.ErrorResponse{
			Error:   model.ErrCodeInternalError,
			Message: "internal server error",
		}, logger)
	}
}

// callerFrom returns the authenticated caller or writes a 401.
func callerFrom(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (model.Identity, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeServiceError(w, r, model.ErrUnauthorised, logger)
		return model.Identity{}, false
	}
	return identity, true
}
