package engine

import (
	"context"
	"fmt"
)

// Seed loads the demo fixture: three users and three tasks with
// staggered date ranges relative to today. It is a no-op when any user
// already exists.
func (e Engine) Seed(ctx context.Context, actorID string) error {
	n, err := e.Repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	alice, err := e.CreateUser(ctx, "Alice Smith", "active", actorID)
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}
	bob, err := e.CreateUser(ctx, "Bob Jones", "active", actorID)
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}
	if _, err := e.CreateUser(ctx, "Charlie Davis", "inactive", actorID); err != nil {
		return fmt.Errorf("seed user: %w", err)
	}

	today := e.today()
	review, err := e.CreateTask(ctx, "Design System Review", today, today.AddDays(2), actorID)
	if err != nil {
		return fmt.Errorf("seed task: %w", err)
	}
	integration, err := e.CreateTask(ctx, "API Integration", today.AddDays(1), today.AddDays(5), actorID)
	if err != nil {
		return fmt.Errorf("seed task: %w", err)
	}
	if _, err := e.CreateTask(ctx, "Documentation", today.AddDays(3), today.AddDays(4), actorID); err != nil {
		return fmt.Errorf("seed task: %w", err)
	}

	if _, err := e.AssignTask(ctx, review.ID, alice.ID, actorID); err != nil {
		return fmt.Errorf("seed assignment: %w", err)
	}
	if _, err := e.AssignTask(ctx, integration.ID, bob.ID, actorID); err != nil {
		return fmt.Errorf("seed assignment: %w", err)
	}
	return nil
}
