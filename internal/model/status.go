package model

import "strings"

// Status is the lifecycle state shared by orders and plumber requests.
// Each entity runs its own machine over the same set of values.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// TransitionPolicy selects how strictly status changes are checked.
type TransitionPolicy string

const (
	// PolicyStrict allows only pending -> accepted/cancelled and accepted -> completed/cancelled.
	PolicyStrict TransitionPolicy = "strict"
	// PolicyPermissive allows any known status to follow any other.
	PolicyPermissive TransitionPolicy = "permissive"
)

var statusTransitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusCancelled},
	StatusAccepted: {StatusCompleted, StatusCancelled},
}

// ParseStatus normalises raw input and reports whether it names a known status.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// Valid reports whether s is one of the four lifecycle values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed under the strict policy.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether from -> to is allowed under policy.
// Re-applying the current status is always allowed and is treated as a no-op by callers.
func CanTransition(policy TransitionPolicy, from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to || policy == PolicyPermissive {
		return true
	}
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidPolicy reports whether p is a known policy.
func ValidPolicy(p TransitionPolicy) bool {
	return p == PolicyStrict || p == PolicyPermissive
}
