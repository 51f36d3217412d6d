package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/metinatakli/seat-reservation/api"
	"github.com/metinatakli/seat-reservation/internal/domain"
	appvalidator "github.com/metinatakli/seat-reservation/internal/validator"
)

const (
	ErrInternalServer     = "The server encountered a problem and could not process your request"
	ErrNotFound           = "The requested resource not found"
	ErrUnauthorized       = "You must be authenticated to access this resource"
	ErrFailedValidation   = "One or more fields have invalid values"
	ErrMethodNotAllowed   = "The requested method is not supported for this resource"
	ErrServiceUnavailable = "The service is temporarily unavailable, please try again"
)

func (app *Application) logError(r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.contextGetLogger(r).Error(err.Error(), "method", method, "uri", uri)
}

// The errorResponse() method is a generic helper for sending JSON-formatted error
// messages to the client with a given status code.
func (app *Application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	app.writeError(w, r, status, api.ErrorResponse{Message: message})
}

func (app *Application) writeError(w http.ResponseWriter, r *http.Request, status int, resp api.ErrorResponse) {
	resp.RequestId = middleware.GetReqID(r.Context())
	resp.Timestamp = time.Now()

	err := app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

func (app *Application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	app.errorResponse(w, r, http.StatusInternalServerError, ErrInternalServer)
}

func (app *Application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, ErrNotFound)
}

func (app *Application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusMethodNotAllowed, ErrMethodNotAllowed)
}

func (app *Application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *Application) unauthorizedAccessResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusUnauthorized, ErrUnauthorized)
}

func (app *Application) editConflictResponseWithErr(w http.ResponseWriter, r *http.Request, err error) {
	app.writeError(w, r, http.StatusConflict, api.ErrorResponse{
		Message: conflictMessage(err),
		SeatIds: domain.ConflictingSeats(err),
	})
}

// conflictMessage returns the client facing part of a wrapped conflict error.
func conflictMessage(err error) string {
	var conflictErr *domain.SeatConflictError
	if errors.As(err, &conflictErr) {
		return conflictErr.Error()
	}

	for _, target := range []error{
		domain.ErrAlreadyBooked,
		domain.ErrNotLocked,
		domain.ErrInvalidTransition,
		domain.ErrSeatConflict,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}

	return err.Error()
}

func (app *Application) serviceUnavailableResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)

	w.Header().Set("Retry-After", "1")
	app.errorResponse(w, r, http.StatusServiceUnavailable, ErrServiceUnavailable)
}

func (app *Application) failedValidationResponse(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		app.badRequestResponse(w, r, err)
		return
	}

	resp := api.ValidationErrorResponse{
		Message:   ErrFailedValidation,
		RequestId: middleware.GetReqID(r.Context()),
		Timestamp: time.Now(),
	}

	for _, fieldErr := range validationErrors {
		resp.ValidationErrors = append(resp.ValidationErrors, api.ValidationError{
			Field: fieldErr.Field(),
			Issue: appvalidator.ValidationMessage(fieldErr),
		})
	}

	err = app.writeJSON(w, http.StatusUnprocessableEntity, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

// domainErrorResponse maps an error returned by the reservation core onto
// the matching HTTP status.
func (app *Application) domainErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logger := app.contextGetLogger(r)

	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		logger.Warn("requested resource not found", "error", err)
		app.notFoundResponse(w, r)
	case errors.Is(err, domain.ErrSeatConflict),
		errors.Is(err, domain.ErrAlreadyBooked),
		errors.Is(err, domain.ErrNotLocked),
		errors.Is(err, domain.ErrInvalidTransition):
		logger.Warn("request conflicts with current seat state", "error", err)
		app.editConflictResponseWithErr(w, r, err)
	case errors.Is(err, domain.ErrNoSeatsSelected), errors.Is(err, domain.ErrInvalidAmount):
		app.badRequestResponse(w, r, err)
	case errors.Is(err, domain.ErrTransientStore):
		app.serviceUnavailableResponse(w, r, err)
	default:
		app.serverErrorResponse(w, r, err)
	}
}
