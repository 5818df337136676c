package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/qcom/authapi/internal/middleware"
	"github.com/qcom/authapi/internal/models"
	"github.com/qcom/authapi/internal/service"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type AuthHandlers struct {
	authService *service.AuthService
	logger      *logrus.Logger
	debug       bool
}

func NewAuthHandlers(authService *service.AuthService, logger *logrus.Logger, debug bool) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
		debug:       debug,
	}
}

func (h *AuthHandlers) Register() http.HandlerFunc {
	return h.handle("register", func(w http.ResponseWriter, r *http.Request) error {
		var req models.RegisterRequest
		if err := h.decode(w, r, &req); err != nil {
			return err
		}

		resp, err := h.authService.Register(r.Context(), req)
		if err != nil {
			return err
		}

		h.respondWithJSON(w, http.StatusOK, resp)
		return nil
	})
}

func (h *AuthHandlers) RequestOTP() http.HandlerFunc {
	return h.handle("otp", func(w http.ResponseWriter, r *http.Request) error {
		var req models.OTPRequest
		if err := h.decode(w, r, &req); err != nil {
			return err
		}

		if err := h.authService.RequestOTP(r.Context(), req); err != nil {
			return err
		}

		h.respondWithJSON(w, http.StatusOK, models.MessageResponse{
			Message: "OTP sent to your email",
		})
		return nil
	})
}

func (h *AuthHandlers) Login() http.HandlerFunc {
	return h.handle("login", func(w http.ResponseWriter, r *http.Request) error {
		var req models.LoginRequest
		if err := h.decode(w, r, &req); err != nil {
			return err
		}

		resp, err := h.authService.Login(r.Context(), req)
		if err != nil {
			return err
		}

		h.respondWithJSON(w, http.StatusOK, resp)
		return nil
	})
}

func (h *AuthHandlers) Profile() http.HandlerFunc {
	return h.handle("profile", func(w http.ResponseWriter, r *http.Request) error {
		user, err := currentUser(r)
		if err != nil {
			return err
		}

		h.respondWithJSON(w, http.StatusOK, h.authService.Profile(r.Context(), user))
		return nil
	})
}

func (h *AuthHandlers) UpdateProfile() http.HandlerFunc {
	return h.handle("updateProfile", func(w http.ResponseWriter, r *http.Request) error {
		user, err := currentUser(r)
		if err != nil {
			return err
		}

		var req models.UpdateProfileRequest
		if err := h.decode(w, r, &req); err != nil {
			return err
		}

		resp, err := h.authService.UpdateProfile(r.Context(), user, req)
		if err != nil {
			return err
		}

		h.respondWithJSON(w, http.StatusOK, resp)
		return nil
	})
}

func (h *AuthHandlers) Logout() http.HandlerFunc {
	return h.handle("logout", func(w http.ResponseWriter, r *http.Request) error {
		user, err := currentUser(r)
		if err != nil {
			return err
		}

		if err := h.authService.Logout(r.Context(), user); err != nil {
			return err
		}

		h.respondWithJSON(w, http.StatusOK, models.MessageResponse{
			Message: "Logged out",
		})
		return nil
	})
}

func currentUser(r *http.Request) (*models.User, error) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		return nil, service.ErrUnauthenticated
	}
	return user, nil
}

// decode reads a JSON body into dst. An empty body leaves dst zero so that
// field rules report what is missing.
func (h *AuthHandlers) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		h.logger.WithError(err).Debug("Failed to decode request body")
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (h *AuthHandlers) respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.WithError(err).Warn("Failed to write response")
	}
}

func (h *AuthHandlers) respondWithError(w http.ResponseWriter, status int, message string) {
	h.respondWithJSON(w, status, ErrorResponse{Message: message})
}
