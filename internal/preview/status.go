package preview

import (
	"sync"

	"github.com/starford/sitegen/internal/site"
)

// Status holds the outcome of the most recent build for the status and
// readiness endpoints. It is safe for concurrent use.
type Status struct {
	mu     sync.RWMutex
	last   *site.Summary
	builds int
}

// Set records a finished build. A nil summary (setup failure) still counts.
func (s *Status) Set(summary *site.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = summary
	s.builds++
}

// Last returns the latest summary and the number of builds seen.
func (s *Status) Last() (*site.Summary, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.builds
}

type statusResponse struct {
	Builds int           `json:"builds"`
	Last   *site.Summary `json:"last"`
}
