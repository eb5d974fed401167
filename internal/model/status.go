package model

import (
	"encoding/json"
	"fmt"
)

// IssueStatus is the lifecycle state of an issue. Any state may be set from
// any other; there is no enforced transition graph.
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "open"
	IssueStatusInProgress IssueStatus = "in_progress"
	IssueStatusClosed     IssueStatus = "closed"
)

// OpenIssueStatuses are the states shown as "open" on dashboards.
var OpenIssueStatuses = []IssueStatus{IssueStatusOpen, IssueStatusInProgress}

// Valid reports whether the status is one of the three defined values.
func (s IssueStatus) Valid() bool {
	switch s {
	case IssueStatusOpen, IssueStatusInProgress, IssueStatusClosed:
		return true
	}
	return false
}

// IsOpen reports whether the issue still needs attention.
func (s IssueStatus) IsOpen() bool {
	return s == IssueStatusOpen || s == IssueStatusInProgress
}

// ParseIssueStatus converts a string to an IssueStatus, returning an error for
// anything outside the enumeration.
func ParseIssueStatus(v string) (IssueStatus, error) {
	s := IssueStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("invalid issue status: %q", v)
	}
	return s, nil
}

// UnmarshalJSON rejects values outside the enumeration.
func (s *IssueStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("issue status must be a JSON string")
	}
	ps, err := ParseIssueStatus(raw)
	if err != nil {
		return err
	}
	*s = ps
	return nil
}

// EmployeeStatus is stored as text rather than an is_active flag. Deactivation
// never removes the row.
type EmployeeStatus string

const (
	EmployeeStatusActive   EmployeeStatus = "active"
	EmployeeStatusInactive EmployeeStatus = "inactive"
)

// Valid reports whether the status is active or inactive.
func (s EmployeeStatus) Valid() bool {
	return s == EmployeeStatusActive || s == EmployeeStatusInactive
}
