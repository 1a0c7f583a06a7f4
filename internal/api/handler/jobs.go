package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/tanmaydesai/gigflow/internal/api/middleware"
	"github.com/tanmaydesai/gigflow/internal/api/response"
	"github.com/tanmaydesai/gigflow/internal/cache"
	"github.com/tanmaydesai/gigflow/internal/job"
	"github.com/tanmaydesai/gigflow/pkg/models"
)

// openJobsTTL keeps the open-job listing hot for short bursts of feed
// refreshes without serving stale jobs for long.
const openJobsTTL = 5 * time.Second

// JobService defines the interface the job handlers depend on.
type JobService interface {
	Create(ctx context.Context, p job.CreateParams) (*models.Job, error)
	Accept(ctx context.Context, jobID, workerID uuid.UUID) (*models.Job, error)
	MarkPending(ctx context.Context, jobID, workerID uuid.UUID) (*models.Job, error)
	Confirm(ctx context.Context, jobID, customerID uuid.UUID) (*models.Job, *models.Transaction, error)
	Cancel(ctx context.Context, jobID, customerID uuid.UUID) (*models.Job, error)
	Get(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
	ListOpen(ctx context.Context) ([]*models.Job, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*models.Job, error)
	ListForWorker(ctx context.Context, workerID uuid.UUID) ([]*models.Job, error)
}

// Jobs bundles the job lifecycle handlers.
type Jobs struct {
	svc     JobService
	cache   cache.Cache
	tracker Tracker
}

// NewJobs creates the job handler set.
func NewJobs(svc JobService, c cache.Cache, tracker Tracker) *Jobs {
	return &Jobs{svc: svc, cache: c, tracker: tracker}
}

// Create handles POST /api/v1/jobs.
func (h *Jobs) Create(w http.ResponseWriter, r *http.Request) {
	customerID, ok := mw.GetUserID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "MISSING_IDENTITY", "Missing identity", nil)
		return
	}

	var req struct {
		Title         string         `json:"title"`
		Description   string         `json:"description"`
		Price         float64        `json:"price"`
		ServiceType   string         `json:"service_type"`
		Location      *models.LatLng `json:"location"`
		ScheduledTime *time.Time     `json:"scheduled_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid JSON body", nil)
		return
	}

	created, err := h.svc.Create(r.Context(), job.CreateParams{
		Title:         req.Title,
		Description:   req.Description,
		Price:         req.Price,
		ServiceType:   req.ServiceType,
		CustomerID:    customerID,
		Location:      req.Location,
		ScheduledTime: req.ScheduledTime,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.invalidateOpenJobs(r.Context())
	response.Created(w, created)
}

// ListOpen handles GET /api/v1/jobs/open. The listing is served from Redis
// when fresh enough.
func (h *Jobs) ListOpen(w http.ResponseWriter, r *http.Request) {
	if cached, found, err := h.cache.Get(r.Context(), cache.OpenJobsKey()); err == nil && found {
		response.JSON(w, json.RawMessage(cached))
		return
	}

	jobs, err := h.svc.ListOpen(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if raw, err := json.Marshal(jobs); err == nil {
		if err := h.cache.Set(r.Context(), cache.OpenJobsKey(), raw, openJobsTTL); err != nil {
			slog.Warn("failed to cache open-job listing", "error", err)
		}
	}
	response.JSON(w, jobs)
}

// ListMine handles GET /api/v1/jobs/mine: the caller's own jobs, on whichever
// side of the marketplace they are.
func (h *Jobs) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := mw.GetUserID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "MISSING_IDENTITY", "Missing identity", nil)
		return
	}
	role, _ := mw.GetUserRole(r)

	var (
		jobs []*models.Job
		err  error
	)
	if role == models.RoleWorker {
		jobs, err = h.svc.ListForWorker(r.Context(), userID)
	} else {
		jobs, err = h.svc.ListForCustomer(r.Context(), userID)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.JSON(w, jobs)
}

// Accept handles POST /api/v1/jobs/{jobID}/accept.
func (h *Jobs) Accept(w http.ResponseWriter, r *http.Request) {
	workerID, jobID, ok := h.parties(w, r)
	if !ok {
		return
	}

	accepted, err := h.svc.Accept(r.Context(), jobID, workerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.invalidateOpenJobs(r.Context())
	response.JSON(w, accepted)
}

// MarkPending handles POST /api/v1/jobs/{jobID}/pending: the worker reports
// the work as done. Any live tracking session for the worker ends here.
func (h *Jobs) MarkPending(w http.ResponseWriter, r *http.Request) {
	workerID, jobID, ok := h.parties(w, r)
	if !ok {
		return
	}

	updated, err := h.svc.MarkPending(r.Context(), jobID, workerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.tracker.Stop(workerID)
	response.JSON(w, updated)
}

// Confirm handles POST /api/v1/jobs/{jobID}/confirm: the customer signs off
// and payment is released to the worker.
func (h *Jobs) Confirm(w http.ResponseWriter, r *http.Request) {
	customerID, jobID, ok := h.parties(w, r)
	if !ok {
		return
	}

	confirmed, payment, err := h.svc.Confirm(r.Context(), jobID, customerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.JSON(w, map[string]any{
		"job":     confirmed,
		"payment": payment,
	})
}

// Cancel handles POST /api/v1/jobs/{jobID}/cancel.
func (h *Jobs) Cancel(w http.ResponseWriter, r *http.Request) {
	customerID, jobID, ok := h.parties(w, r)
	if !ok {
		return
	}

	cancelled, err := h.svc.Cancel(r.Context(), jobID, customerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.invalidateOpenJobs(r.Context())
	response.JSON(w, cancelled)
}

// parties extracts the caller and the target job ID, writing the error
// response itself when either is missing.
func (h *Jobs) parties(w http.ResponseWriter, r *http.Request) (userID, jobID uuid.UUID, ok bool) {
	userID, found := mw.GetUserID(r)
	if !found {
		response.Error(w, http.StatusUnauthorized, "MISSING_IDENTITY", "Missing identity", nil)
		return uuid.Nil, uuid.Nil, false
	}

	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_FAILED",
			"jobID must be a valid UUID", nil)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, jobID, true
}

func (h *Jobs) invalidateOpenJobs(ctx context.Context) {
	if err := h.cache.Delete(ctx, cache.OpenJobsKey()); err != nil {
		slog.Warn("failed to invalidate open-job listing", "error", err)
	}
}
