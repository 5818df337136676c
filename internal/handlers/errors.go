package handlers

import (
	"errors"
	"net/http"

	"github.com/qcom/authapi/internal/service"
	"github.com/qcom/authapi/internal/validation"
	"github.com/sirupsen/logrus"
)

var errBadRequest = errors.New("invalid request body")

type ErrorResponse struct {
	Message string `json:"message"`
	// Error carries the raw internal error text, only in debug mode.
	Error string `json:"error,omitempty"`
}

type ValidationErrorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// handlerFunc is an HTTP handler that reports failures by returning them.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle adapts fn to http.HandlerFunc and translates every returned error
// into a response. Internal errors are logged and redacted.
func (h *AuthHandlers) handle(op string, fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		var verrs *validation.Errors
		switch {
		case errors.As(err, &verrs):
			h.respondWithJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
				Message: verrs.Message(),
				Errors:  verrs.Fields,
			})
		case errors.Is(err, errBadRequest):
			h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		case errors.Is(err, service.ErrPasswordMismatch):
			h.respondWithError(w, http.StatusUnauthorized, "Password mismatch")
		case errors.Is(err, service.ErrOTPMismatch):
			h.respondWithError(w, http.StatusUnauthorized, "OTP mismatch")
		case errors.Is(err, service.ErrOTPExpired):
			h.respondWithError(w, http.StatusUnauthorized, "OTP expired")
		case errors.Is(err, service.ErrUnauthenticated):
			h.respondWithError(w, http.StatusUnauthorized, "Unauthenticated.")
		default:
			h.logger.WithError(err).WithFields(logrus.Fields{
				"operation": op,
				"path":      r.URL.Path,
			}).Error("Request failed")

			resp := ErrorResponse{Message: "Something went wrong"}
			if h.debug {
				resp.Error = err.Error()
			}
			h.respondWithJSON(w, http.StatusInternalServerError, resp)
		}
	}
}
