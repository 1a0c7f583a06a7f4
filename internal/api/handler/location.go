package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/tanmaydesai/gigflow/internal/api/middleware"
	"github.com/tanmaydesai/gigflow/internal/api/response"
	"github.com/tanmaydesai/gigflow/internal/store"
	"github.com/tanmaydesai/gigflow/pkg/models"
)

// Tracker defines the interface the location handlers depend on.
type Tracker interface {
	Record(ctx context.Context, workerID uuid.UUID, sample models.LocationSample) error
	StartSimulated(workerID uuid.UUID, start, end models.LatLng, interval time.Duration)
	Stop(workerID uuid.UUID)
	Active(workerID uuid.UUID) bool
	Progress(workerID uuid.UUID) (float64, bool)
}

// Locations bundles the live-tracking handlers.
type Locations struct {
	store    store.Store
	tracker  Tracker
	jobs     JobService
	interval time.Duration
}

// NewLocations creates the location handler set. interval is the tick used
// for simulated routes.
func NewLocations(s store.Store, tracker Tracker, jobs JobService, interval time.Duration) *Locations {
	return &Locations{store: s, tracker: tracker, jobs: jobs, interval: interval}
}

// Record handles POST /api/v1/location: a worker reports its position.
func (h *Locations) Record(w http.ResponseWriter, r *http.Request) {
	workerID, ok := mw.GetUserID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "MISSING_IDENTITY", "Missing identity", nil)
		return
	}

	var req struct {
		Lat       float64    `json:"lat"`
		Lng       float64    `json:"lng"`
		Timestamp *time.Time `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid JSON body", nil)
		return
	}
	if req.Lat < -90 || req.Lat > 90 || req.Lng < -180 || req.Lng > 180 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_FAILED",
			"lat must be in [-90, 90] and lng in [-180, 180]", nil)
		return
	}

	ts := time.Now().UTC()
	if req.Timestamp != nil {
		ts = req.Timestamp.UTC()
	}

	sample := models.LocationSample{Lat: req.Lat, Lng: req.Lng, Timestamp: ts}
	if err := h.tracker.Record(r.Context(), workerID, sample); err != nil {
		writeServiceError(w, err)
		return
	}
	response.JSON(w, sample)
}

// Get handles GET /api/v1/workers/{workerID}/location: the worker's last
// known position, for seeding a tracking view before live updates arrive.
func (h *Locations) Get(w http.ResponseWriter, r *http.Request) {
	workerID, err := uuid.Parse(chi.URLParam(r, "workerID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_FAILED",
			"workerID must be a valid UUID", nil)
		return
	}

	sample, err := h.store.ReadLocation(r.Context(), workerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if sample == nil {
		response.Error(w, http.StatusNotFound, "NOT_FOUND",
			"No position reported for this worker", nil)
		return
	}
	response.JSON(w, sample)
}

// StartSimulation handles POST /api/v1/jobs/{jobID}/track/simulate: the
// assigned worker starts a simulated drive toward the job site.
func (h *Locations) StartSimulation(w http.ResponseWriter, r *http.Request) {
	workerID, ok := mw.GetUserID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "MISSING_IDENTITY", "Missing identity", nil)
		return
	}

	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_FAILED",
			"jobID must be a valid UUID", nil)
		return
	}

	target, err := h.jobs.Get(r.Context(), jobID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if target.WorkerID == nil || *target.WorkerID != workerID {
		response.Error(w, http.StatusForbidden, "FORBIDDEN",
			"Only the assigned worker can simulate tracking", nil)
		return
	}
	if target.Status != models.JobStatusInProgress {
		response.Error(w, http.StatusConflict, "INVALID_TRANSITION",
			"Tracking only applies to in-progress jobs", nil)
		return
	}
	if target.Location == nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_FAILED",
			"The job has no location to drive to", nil)
		return
	}

	var req struct {
		Start *models.LatLng `json:"start"`
	}
	// An empty body is fine; the route then starts at the worker's last
	// reported position.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid JSON body", nil)
		return
	}

	start := req.Start
	if start == nil {
		last, err := h.store.ReadLocation(r.Context(), workerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if last == nil {
			response.Error(w, http.StatusBadRequest, "VALIDATION_FAILED",
				"No start position: provide one or report a location first", nil)
			return
		}
		p := last.LatLng()
		start = &p
	}

	h.tracker.StartSimulated(workerID, *start, *target.Location, h.interval)
	response.JSON(w, map[string]any{
		"job_id":    jobID,
		"worker_id": workerID,
		"active":    true,
	})
}

// StopSimulation handles DELETE /api/v1/jobs/{jobID}/track/simulate.
func (h *Locations) StopSimulation(w http.ResponseWriter, r *http.Request) {
	workerID, ok := mw.GetUserID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "MISSING_IDENTITY", "Missing identity", nil)
		return
	}

	h.tracker.Stop(workerID)
	response.JSON(w, map[string]any{
		"worker_id": workerID,
		"active":    false,
	})
}
