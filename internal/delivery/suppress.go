// internal/delivery/suppress.go
package delivery

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultSuppressionWindow is how long a sender's repeated identical query
// stays suppressed after the first delivery.
const DefaultSuppressionWindow = 2 * time.Minute

// suppressorCapacity bounds the tracked sender/query pairs; the expirable
// cache evicts the oldest entry once full, which only shortens a window.
const suppressorCapacity = 4096

// Suppressor deduplicates identical queries from the same sender inside a
// sliding time window. The first occurrence is allowed; repeats within the
// window are not.
type Suppressor struct {
	seen *expirable.LRU[string, struct{}]
}

// NewSuppressor builds a Suppressor with the given window. A zero window
// falls back to DefaultSuppressionWindow.
func NewSuppressor(window time.Duration) *Suppressor {
	if window <= 0 {
		window = DefaultSuppressionWindow
	}
	return &Suppressor{
		seen: expirable.NewLRU[string, struct{}](suppressorCapacity, nil, window),
	}
}

// Allow reports whether this sender/query pair should be delivered now. The
// first call inside a window starts the window; repeats do not extend it.
func (s *Suppressor) Allow(senderID, normalizedQuery string) bool {
	key := senderID + "\x00" + normalizedQuery
	if _, ok := s.seen.Get(key); ok {
		return false
	}
	s.seen.Add(key, struct{}{})
	return true
}
