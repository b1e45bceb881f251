package domain

import (
	"strings"
	"unicode"
)

type Status string

const (
	StatusSubmitted    Status = "submitted"
	StatusAcknowledged Status = "acknowledged"
	StatusInProgress   Status = "in_progress"
	StatusResolved     Status = "resolved"
)

var statusOrder = []Status{
	StatusSubmitted,
	StatusAcknowledged,
	StatusInProgress,
	StatusResolved,
}

func Statuses() []Status {
	out := make([]Status, len(statusOrder))
	copy(out, statusOrder)
	return out
}

// Index returns the position of s on the forward path, or -1.
func (s Status) Index() int {
	for i, st := range statusOrder {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Status) Valid() bool {
	return s.Index() >= 0
}

func (s Status) IsOpen() bool {
	return s != StatusResolved
}

// CanTransitionTo reports whether moving from s to next keeps the
// lifecycle monotonic.
func (s Status) CanTransitionTo(next Status) bool {
	if !next.Valid() {
		return false
	}
	return s.Index() <= next.Index()
}

// PredecessorsOf returns every status a report may hold for a transition
// to next to be legal, next included.
func PredecessorsOf(next Status) []Status {
	idx := next.Index()
	if idx < 0 {
		return nil
	}
	out := make([]Status, idx+1)
	copy(out, statusOrder[:idx+1])
	return out
}

func ParseStatus(raw string) (Status, error) {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, s)
	st := Status(s)
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}
