// Package rules holds the business invariants gating task assignment and
// completion. Every validator is a pure predicate: it reads the entities
// it is handed and either returns nil or a *Violation. State loading and
// persistence belong to the engine.
package rules

import (
	"errors"
	"fmt"

	"taskdesk/internal/domain"
)

// Violation codes.
const (
	CodeRuleViolation = "RULE_VIOLATION"
	CodeNotFound      = "NOT_FOUND"
)

// Violation is a business-rule failure carrying a stable machine code
// and a human-readable message.
type Violation struct {
	Code    string
	Message string
}

func (v *Violation) Error() string {
	return v.Message
}

// NewViolation builds a RULE_VIOLATION failure.
func NewViolation(format string, args ...any) *Violation {
	return &Violation{Code: CodeRuleViolation, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a NOT_FOUND failure for a missing entity reference.
func NotFound(format string, args ...any) *Violation {
	return &Violation{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// IsViolation reports whether err is a Violation with the given code.
func IsViolation(err error, code string) bool {
	var v *Violation
	if errors.As(err, &v) {
		return v.Code == code
	}
	return false
}

// ValidateDateRange fails when start is after end. Checked once at task
// creation, never re-checked on reads.
func ValidateDateRange(start, end domain.Date) error {
	if start.After(end.Time) {
		return NewViolation("start date cannot be after end date")
	}
	return nil
}

// ValidateTaskCompletion fails when the transition targets completed and
// today is still before the task's start date. All other transitions are
// unrestricted.
func ValidateTaskCompletion(task domain.Task, newStatus string, today domain.Date) error {
	if newStatus == domain.TaskCompleted && today.Before(task.StartDate.Time) {
		return NewViolation("task cannot be completed before its start date")
	}
	return nil
}

// ValidateUserAssignment fails when the target user is inactive.
func ValidateUserAssignment(user domain.User) error {
	if !user.IsActive() {
		return NewViolation("user %s is inactive", user.Name)
	}
	return nil
}

// ValidateNoOverlap checks the candidate range [start, end] against the
// tasks already assigned to a user. Ranges are closed intervals: two
// tasks touching on a single shared day conflict. The entry whose id
// equals excludeTaskID is skipped so a task never conflicts with its own
// prior assignment. The first conflicting task in the supplied order is
// the one reported.
func ValidateNoOverlap(existing []domain.Task, start, end domain.Date, excludeTaskID string) error {
	for _, other := range existing {
		if other.ID == excludeTaskID {
			continue
		}
		if !start.After(other.EndDate.Time) && !end.Before(other.StartDate.Time) {
			return NewViolation("task overlaps with an existing task: %s", other.Title)
		}
	}
	return nil
}
