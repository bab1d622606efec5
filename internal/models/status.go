package models

import (
	"fmt"
	"strings"
)

// Status is the fulfillment state of a line item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusReturned  Status = "returned"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusShipped: true},
	StatusShipped:   {StatusDelivered: true, StatusReturned: true},
	StatusDelivered: {},
	StatusReturned:  {},
}

// rank orders statuses by progress; delivered and returned are both final.
var rank = map[Status]int{
	StatusPending:   0,
	StatusShipped:   1,
	StatusDelivered: 2,
	StatusReturned:  2,
}

// ParseStatus accepts a status name case-insensitively.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := validNext[s]; !ok {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// Terminal reports whether no further transition is defined from s.
func (s Status) Terminal() bool {
	return s.Valid() && len(validNext[s]) == 0
}

// CanTransition reports whether from may move to to. Staying in place is
// always allowed so repeated updates are idempotent.
func CanTransition(from, to Status) bool {
	if from == to {
		return to.Valid()
	}
	return validNext[from][to]
}

// LeastAdvanced returns the status furthest behind among statuses.
func LeastAdvanced(statuses ...Status) Status {
	if len(statuses) == 0 {
		return StatusPending
	}
	least := statuses[0]
	for _, s := range statuses[1:] {
		if rank[s] < rank[least] {
			least = s
		}
	}
	return least
}
