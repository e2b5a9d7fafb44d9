package handler

import (
	"net/http"

	"github.com/segyhp/loan-tracker/pkg/response"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// NewRouter wires every route. limiter may be nil to disable rate limiting; a nil admin
// disables the job-trigger endpoints.
func NewRouter(loans *LoanHandler, health *HealthHandler, limiter *RateLimiter, admin *AdminAuth, logger zerolog.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.CORSMiddleware)
	router.Use(response.LoggingMiddleware(logger))

	router.HandleFunc("/health", health.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", health.Ready).Methods(http.MethodGet)

	// Registered before /api/v1 so the admin prefix is matched first.
	adminRoutes := router.PathPrefix("/api/v1/admin").Subrouter()
	adminRoutes.Use(admin.Middleware)
	adminRoutes.HandleFunc("/reminders/run", loans.RunReminders).Methods(http.MethodPost)
	adminRoutes.HandleFunc("/overdue/sweep", loans.SweepOverdue).Methods(http.MethodPost)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(AuthMiddleware)
	if limiter != nil {
		api.Use(limiter.Middleware)
	}

	api.HandleFunc("/loans", loans.CreateLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans", loans.ListLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans/statistics", loans.GetStatistics).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}", loans.GetLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}", loans.UpdateLoan).Methods(http.MethodPut)
	api.HandleFunc("/loans/{loanId}", loans.DeleteLoan).Methods(http.MethodDelete)
	api.HandleFunc("/loans/{loanId}/payment", loans.MakePayment).Methods(http.MethodPost)
	api.HandleFunc("/loans/{loanId}/payments", loans.ListPayments).Methods(http.MethodGet)

	return router
}
