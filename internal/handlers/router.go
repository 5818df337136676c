package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/qcom/authapi/internal/middleware"
	"github.com/sirupsen/logrus"
)

func NewRouter(
	authHandlers *AuthHandlers,
	authMiddleware *middleware.AuthMiddleware,
	logger *logrus.Logger,
) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.LoggingMiddleware(logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "OPTIONS")

	api := router.PathPrefix("/api/v1").Subrouter()

	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", authHandlers.Register()).Methods("POST", "OPTIONS")
	auth.HandleFunc("/otp", authHandlers.RequestOTP()).Methods("POST", "OPTIONS")
	auth.HandleFunc("/login", authHandlers.Login()).Methods("POST", "OPTIONS")

	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware.RequireAuth)
	protected.HandleFunc("/profile", authHandlers.Profile()).Methods("GET")
	protected.HandleFunc("/profile", authHandlers.UpdateProfile()).Methods("PUT")
	protected.HandleFunc("/auth/logout", authHandlers.Logout()).Methods("POST")

	return router
}
