package engine_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"taskdesk/internal/db"
	"taskdesk/internal/domain"
	"taskdesk/internal/engine"
	"taskdesk/internal/migrate"
	"taskdesk/internal/rules"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Today  domain.Date
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	eng.Now = func() time.Time { return now }
	return &testEnv{
		Engine: eng,
		Ctx:    context.Background(),
		Today:  domain.DateOf(now),
	}
}

func (env *testEnv) mustUser(t *testing.T, name, status string) domain.User {
	t.Helper()
	u, err := env.Engine.CreateUser(env.Ctx, name, status, "tester")
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func (env *testEnv) mustTask(t *testing.T, title string, start, end domain.Date) domain.Task {
	t.Helper()
	task, err := env.Engine.CreateTask(env.Ctx, title, start, end, "tester")
	if err != nil {
		t.Fatalf("create task %s: %v", title, err)
	}
	return task
}

func TestCreateTaskDefaults(t *testing.T) {
	env := newTestEnv(t)
	task := env.mustTask(t, "New work", env.Today, env.Today.AddDays(1))
	if task.Status != domain.TaskPending {
		t.Fatalf("expected pending, got %s", task.Status)
	}
	if task.UserID != nil {
		t.Fatalf("expected unassigned task")
	}
}

func TestCreateTaskInvertedRange(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateTask(env.Ctx, "Backwards", env.Today.AddDays(3), env.Today, "tester")
	if !rules.IsViolation(err, rules.CodeRuleViolation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	tasks, err := env.Engine.ListTasks(env.Ctx)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected no task persisted, got %d", len(tasks))
	}
}

func TestAssignTask(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustUser(t, "Alice", domain.UserActive)
	task := env.mustTask(t, "Review", env.Today, env.Today.AddDays(1))

	assigned, err := env.Engine.AssignTask(env.Ctx, task.ID, alice.ID, "tester")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assigned.UserID == nil || *assigned.UserID != alice.ID {
		t.Fatalf("expected task assigned to %s", alice.ID)
	}
	fetched, err := env.Engine.GetTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if fetched.UserID == nil || *fetched.UserID != alice.ID {
		t.Fatalf("assignment not persisted")
	}
}

func TestAssignInactiveUserLeavesTaskUnmodified(t *testing.T) {
	env := newTestEnv(t)
	bob := env.mustUser(t, "Bob", domain.UserInactive)
	task := env.mustTask(t, "Blocked", env.Today, env.Today.AddDays(1))

	_, err := env.Engine.AssignTask(env.Ctx, task.ID, bob.ID, "tester")
	if !rules.IsViolation(err, rules.CodeRuleViolation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if !strings.Contains(err.Error(), "inactive") {
		t.Fatalf("unexpected message: %v", err)
	}
	fetched, err := env.Engine.GetTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if fetched.UserID != nil {
		t.Fatalf("failed assignment must leave user_id unset")
	}
}

func TestAssignOverlapRejected(t *testing.T) {
	env := newTestEnv(t)
	charlie := env.mustUser(t, "Charlie", domain.UserActive)
	taskA := env.mustTask(t, "Task A", env.Today, env.Today.AddDays(1))
	taskB := env.mustTask(t, "Task B", env.Today.AddDays(1), env.Today.AddDays(2))

	if _, err := env.Engine.AssignTask(env.Ctx, taskA.ID, charlie.ID, "tester"); err != nil {
		t.Fatalf("assign A: %v", err)
	}
	// B touches A on a shared day; closed intervals conflict.
	_, err := env.Engine.AssignTask(env.Ctx, taskB.ID, charlie.ID, "tester")
	if !rules.IsViolation(err, rules.CodeRuleViolation) {
		t.Fatalf("expected overlap violation, got %v", err)
	}
	if !strings.Contains(err.Error(), "overlaps") {
		t.Fatalf("unexpected message: %v", err)
	}
	fetched, err := env.Engine.GetTask(env.Ctx, taskB.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if fetched.UserID != nil {
		t.Fatalf("failed assignment must leave user_id unset")
	}
}

func TestAssignAdjacentDisjointDays(t *testing.T) {
	env := newTestEnv(t)
	dana := env.mustUser(t, "Dana", domain.UserActive)
	first := env.mustTask(t, "Day one", env.Today, env.Today)
	second := env.mustTask(t, "Day two", env.Today.AddDays(1), env.Today.AddDays(1))

	if _, err := env.Engine.AssignTask(env.Ctx, first.ID, dana.ID, "tester"); err != nil {
		t.Fatalf("assign first: %v", err)
	}
	if _, err := env.Engine.AssignTask(env.Ctx, second.ID, dana.ID, "tester"); err != nil {
		t.Fatalf("assign adjacent disjoint task: %v", err)
	}
}

func TestReassignExcludesOwnRange(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustUser(t, "Alice", domain.UserActive)
	task := env.mustTask(t, "Repeat", env.Today, env.Today.AddDays(2))

	if _, err := env.Engine.AssignTask(env.Ctx, task.ID, alice.ID, "tester"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	// Re-assigning must not conflict with the task's own prior range.
	if _, err := env.Engine.AssignTask(env.Ctx, task.ID, alice.ID, "tester"); err != nil {
		t.Fatalf("re-assign: %v", err)
	}
}

func TestAssignNotFound(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustUser(t, "Alice", domain.UserActive)
	task := env.mustTask(t, "Orphan", env.Today, env.Today)

	_, err := env.Engine.AssignTask(env.Ctx, "missing-task", alice.ID, "tester")
	if !rules.IsViolation(err, rules.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND for task, got %v", err)
	}
	_, err = env.Engine.AssignTask(env.Ctx, task.ID, "missing-user", "tester")
	if !rules.IsViolation(err, rules.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND for user, got %v", err)
	}
}

func TestCompleteBeforeStartDate(t *testing.T) {
	env := newTestEnv(t)
	task := env.mustTask(t, "Future work", env.Today.AddDays(5), env.Today.AddDays(6))

	_, err := env.Engine.UpdateTaskStatus(env.Ctx, task.ID, domain.TaskCompleted, "tester")
	if !rules.IsViolation(err, rules.CodeRuleViolation) {
		t.Fatalf("expected violation, got %v", err)
	}
	if !strings.Contains(err.Error(), "before its start date") {
		t.Fatalf("unexpected message: %v", err)
	}
	fetched, err := env.Engine.GetTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if fetched.Status != domain.TaskPending {
		t.Fatalf("failed mutation must leave status unchanged, got %s", fetched.Status)
	}

	// advance the clock to the start date; the same call now succeeds
	env.Engine.Now = func() time.Time { return env.Today.AddDays(5).Time }
	updated, err := env.Engine.UpdateTaskStatus(env.Ctx, task.ID, domain.TaskCompleted, "tester")
	if err != nil {
		t.Fatalf("complete on start date: %v", err)
	}
	if updated.Status != domain.TaskCompleted {
		t.Fatalf("expected completed, got %s", updated.Status)
	}
}

func TestOtherTransitionsUnrestricted(t *testing.T) {
	env := newTestEnv(t)
	task := env.mustTask(t, "Flexible", env.Today, env.Today.AddDays(1))

	for _, status := range []string{domain.TaskInProgress, domain.TaskCompleted, domain.TaskPending} {
		updated, err := env.Engine.UpdateTaskStatus(env.Ctx, task.ID, status, "tester")
		if err != nil {
			t.Fatalf("to %s: %v", status, err)
		}
		if updated.Status != status {
			t.Fatalf("expected %s, got %s", status, updated.Status)
		}
	}
}

func TestUpdateStatusNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.UpdateTaskStatus(env.Ctx, "missing", domain.TaskCompleted, "tester")
	if !rules.IsViolation(err, rules.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestAuditEvents(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mustUser(t, "Alice", domain.UserActive)
	task := env.mustTask(t, "Audited", env.Today, env.Today.AddDays(1))
	if _, err := env.Engine.AssignTask(env.Ctx, task.ID, alice.ID, "tester"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := env.Engine.UpdateTaskStatus(env.Ctx, task.ID, domain.TaskInProgress, "tester"); err != nil {
		t.Fatalf("status: %v", err)
	}
	if _, err := env.Engine.UpdateTaskStatus(env.Ctx, task.ID, domain.TaskCompleted, "tester"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	events, err := env.Engine.Repo.LatestEvents(env.Ctx, 0, "", "task", task.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	types := map[string]bool{}
	for _, evt := range events {
		types[evt.Type] = true
		if evt.ActorID != "tester" {
			t.Fatalf("expected actor tester, got %s", evt.ActorID)
		}
	}
	for _, want := range []string{"task.created", "task.assigned", "task.status_changed", "task.completed"} {
		if !types[want] {
			t.Fatalf("missing audit event %s (have %v)", want, types)
		}
	}
}

func TestFailedMutationWritesNoEvent(t *testing.T) {
	env := newTestEnv(t)
	bob := env.mustUser(t, "Bob", domain.UserInactive)
	task := env.mustTask(t, "No audit", env.Today, env.Today)

	if _, err := env.Engine.AssignTask(env.Ctx, task.ID, bob.ID, "tester"); err == nil {
		t.Fatalf("expected assignment failure")
	}
	events, err := env.Engine.Repo.LatestEvents(env.Ctx, 0, "task.assigned", "", "")
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("rolled-back assignment must not leave audit rows, got %d", len(events))
	}
}

func TestSeedIdempotent(t *testing.T) {
	env := newTestEnv(t)
	if err := env.Engine.Seed(env.Ctx, "seeder"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	users, err := env.Engine.ListUsers(env.Ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 seeded users, got %d", len(users))
	}
	tasks, err := env.Engine.ListTasks(env.Ctx)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 seeded tasks, got %d", len(tasks))
	}
	assigned := 0
	for _, task := range tasks {
		if task.UserID != nil {
			assigned++
		}
	}
	if assigned != 2 {
		t.Fatalf("expected 2 assigned seed tasks, got %d", assigned)
	}
	// second run is a no-op
	if err := env.Engine.Seed(env.Ctx, "seeder"); err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	users, _ = env.Engine.ListUsers(env.Ctx)
	if len(users) != 3 {
		t.Fatalf("seed must be idempotent, got %d users", len(users))
	}
}
