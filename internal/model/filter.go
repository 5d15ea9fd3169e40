package model

// EventOrder selects which ordering axis a room listing follows.
type EventOrder string

const (
	// OrderStream orders by arrival sequence (pagination/recency axis).
	OrderStream EventOrder = "stream"
	// OrderTopological orders by (topological ordering, arrival sequence),
	// the causal axis with a deterministic tiebreak.
	OrderTopological EventOrder = "topological"
)

// IsValid checks whether the order is a known value.
func (o EventOrder) IsValid() bool {
	switch o {
	case OrderStream, OrderTopological:
		return true
	}
	return false
}

// EventFilter bounds a room event listing. From and To are exclusive tokens
// on the primary ordering column (stream ordering for OrderStream,
// topological ordering for OrderTopological); zero means unbounded. Passing
// the last-seen token back as From (or To when paging backward) resumes the
// listing, so scans are restartable and support early termination.
type EventFilter struct {
	From     int64      `json:"from,omitempty"`
	To       int64      `json:"to,omitempty"`
	Limit    int        `json:"limit,omitempty"`
	Backward bool       `json:"backward,omitempty"`
	Order    EventOrder `json:"order,omitempty"`
}

// DefaultEventLimit caps listings that do not specify their own limit.
const DefaultEventLimit = 100

// Normalize fills defaults so the storage layer never sees a zero order or
// an unbounded listing.
func (f EventFilter) Normalize() EventFilter {
	if !f.Order.IsValid() {
		f.Order = OrderStream
	}
	if f.Limit <= 0 {
		f.Limit = DefaultEventLimit
	}
	return f
}
