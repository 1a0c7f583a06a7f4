package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/tanmaydesai/gigflow/internal/api/middleware"
	"github.com/tanmaydesai/gigflow/internal/api/response"
	"github.com/tanmaydesai/gigflow/pkg/models"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Identity  *mw.Identity
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	CreateJobHandler  http.HandlerFunc
	ListOpenJobs      http.HandlerFunc
	ListMyJobs        http.HandlerFunc
	AcceptJobHandler  http.HandlerFunc
	PendingJobHandler http.HandlerFunc
	ConfirmJobHandler http.HandlerFunc
	CancelJobHandler  http.HandlerFunc

	WalletBalanceHandler http.HandlerFunc
	DepositHandler       http.HandlerFunc
	TransactionsHandler  http.HandlerFunc

	RecordLocationHandler http.HandlerFunc
	WorkerLocationHandler http.HandlerFunc
	StartSimHandler       http.HandlerFunc
	StopSimHandler        http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Identity.Resolve)
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/v1/jobs/open", orNotImplemented(deps.ListOpenJobs))
		r.Get("/api/v1/jobs/mine", orNotImplemented(deps.ListMyJobs))

		r.Get("/api/v1/wallet", orNotImplemented(deps.WalletBalanceHandler))
		r.Post("/api/v1/wallet/deposit", orNotImplemented(deps.DepositHandler))
		r.Get("/api/v1/wallet/transactions", orNotImplemented(deps.TransactionsHandler))

		r.Get("/api/v1/workers/{workerID}/location", orNotImplemented(deps.WorkerLocationHandler))

		// Customer-side lifecycle
		r.Group(func(r chi.Router) {
			r.Use(deps.Identity.RequireRole(models.RoleCustomer))

			r.Post("/api/v1/jobs", orNotImplemented(deps.CreateJobHandler))
			r.Post("/api/v1/jobs/{jobID}/confirm", orNotImplemented(deps.ConfirmJobHandler))
			r.Post("/api/v1/jobs/{jobID}/cancel", orNotImplemented(deps.CancelJobHandler))
		})

		// Worker-side lifecycle and tracking
		r.Group(func(r chi.Router) {
			r.Use(deps.Identity.RequireRole(models.RoleWorker))

			r.Post("/api/v1/jobs/{jobID}/accept", orNotImplemented(deps.AcceptJobHandler))
			r.Post("/api/v1/jobs/{jobID}/pending", orNotImplemented(deps.PendingJobHandler))

			r.Post("/api/v1/location", orNotImplemented(deps.RecordLocationHandler))
			r.Post("/api/v1/jobs/{jobID}/track/simulate", orNotImplemented(deps.StartSimHandler))
			r.Delete("/api/v1/jobs/{jobID}/track/simulate", orNotImplemented(deps.StopSimHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
