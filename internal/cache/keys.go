package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func RateLimitKey(userID uuid.UUID) string {
	return fmt.Sprintf("ratelimit:%s", userID)
}

// OpenJobsKey caches the serialized open-job listing for a few seconds to
// keep the hot gig-feed page off the database.
func OpenJobsKey() string {
	return "jobs:open:listing"
}
