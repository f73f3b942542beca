package models

import "fmt"

// Status is the lifecycle state of a recitation. Pending is the only
// initial state; the other three are assigned by admin review and may be
// re-assigned among themselves.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusFactCheck Status = "fact_check"
)

// Valid reports whether s is one of the four known variants.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusFactCheck:
		return true
	}
	return false
}

// ParseStatus converts a wire string into a Status.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", v)
	}
	return s, nil
}
