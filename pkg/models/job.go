package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusOpen                = "open"
	JobStatusInProgress          = "in_progress"
	JobStatusPendingConfirmation = "pending_confirmation"
	JobStatusCompleted           = "completed"
	JobStatusCancelled           = "cancelled"
)

const (
	ServiceTypeRideshare   = "rideshare"
	ServiceTypeDelivery    = "delivery"
	ServiceTypeHomeService = "home_service"
	ServiceTypeFreelance   = "freelance"
	ServiceTypePetCare     = "pet_care"
	ServiceTypeErrand      = "errand"
)

// ServiceTypes lists every valid job service type.
var ServiceTypes = []string{
	ServiceTypeRideshare,
	ServiceTypeDelivery,
	ServiceTypeHomeService,
	ServiceTypeFreelance,
	ServiceTypePetCare,
	ServiceTypeErrand,
}

// Job is one unit of requested work. A customer posts it with status open,
// a worker accepts it (worker_id set, status in_progress), the worker marks
// it pending_confirmation when done, and the customer confirms completion,
// which releases payment. Price is immutable after creation.
//
// Invariant: WorkerID is non-nil exactly when Status is in_progress,
// pending_confirmation or completed.
type Job struct {
	ID            uuid.UUID  `db:"id"             json:"id"`
	Title         string     `db:"title"          json:"title"`
	Description   string     `db:"description"    json:"description"`
	Price         float64    `db:"price"          json:"price"`
	ServiceType   string     `db:"service_type"   json:"service_type"`
	Status        string     `db:"status"         json:"status"`
	CustomerID    uuid.UUID  `db:"customer_id"    json:"customer_id"`
	WorkerID      *uuid.UUID `db:"worker_id"      json:"worker_id,omitempty"`
	Location      *LatLng    `db:"location"       json:"location,omitempty"`
	ScheduledTime *time.Time `db:"scheduled_time" json:"scheduled_time,omitempty"`
	CreatedAt     time.Time  `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"     json:"updated_at"`
}

// IsTerminal reports whether the job can no longer change state.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusCancelled
}

// ValidServiceType reports whether t is one of the known service types.
func ValidServiceType(t string) bool {
	for _, s := range ServiceTypes {
		if s == t {
			return true
		}
	}
	return false
}
