// Package engine orchestrates the write operations of the task board.
// Each public method runs a single all-or-nothing transaction: lookups,
// rule checks, the mutation, and its audit event commit together or not
// at all.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"taskdesk/internal/domain"
	"taskdesk/internal/events"
	"taskdesk/internal/repo"
	"taskdesk/internal/rules"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Now    func() time.Time
}

func New(db *sql.DB) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

// today is the calendar date the completion rule compares against.
func (e Engine) today() domain.Date {
	return domain.DateOf(e.now())
}

// CreateUser persists a new user. Status defaults to active.
func (e Engine) CreateUser(ctx context.Context, name, status, actorID string) (domain.User, error) {
	if name == "" {
		return domain.User{}, errors.New("name is required")
	}
	if status == "" {
		status = domain.UserActive
	}
	if !domain.ValidUserStatus(status) {
		return domain.User{}, errors.New("invalid user status")
	}
	u := domain.User{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    status,
		CreatedAt: e.timestamp(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertUserTx(ctx, tx, u); err != nil {
		return domain.User{}, err
	}
	if err := e.Events.Append(ctx, tx, "user.created", "user", u.ID, actorID, events.EventPayload{
		"name":   u.Name,
		"status": u.Status,
	}); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (e Engine) ListUsers(ctx context.Context) ([]domain.User, error) {
	return e.Repo.ListUsers(ctx)
}

func (e Engine) GetUser(ctx context.Context, id string) (domain.User, error) {
	u, err := e.Repo.GetUser(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, rules.NotFound("user %s not found", id)
	}
	return u, err
}

// CreateTask persists a new unassigned pending task. The date range must
// not be inverted; that is the one invariant checked at creation.
func (e Engine) CreateTask(ctx context.Context, title string, start, end domain.Date, actorID string) (domain.Task, error) {
	if title == "" {
		return domain.Task{}, errors.New("title is required")
	}
	if !start.IsValid() || !end.IsValid() {
		return domain.Task{}, errors.New("start_date and end_date are required")
	}
	if err := rules.ValidateDateRange(start, end); err != nil {
		return domain.Task{}, err
	}
	now := e.timestamp()
	t := domain.Task{
		ID:        uuid.NewString(),
		Title:     title,
		StartDate: start,
		EndDate:   end,
		Status:    domain.TaskPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertTaskTx(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, "task.created", "task", t.ID, actorID, events.EventPayload{
		"title":      t.Title,
		"status":     t.Status,
		"start_date": t.StartDate.String(),
		"end_date":   t.EndDate.String(),
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (e Engine) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return e.Repo.ListTasks(ctx)
}

func (e Engine) GetTask(ctx context.Context, id string) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Task{}, rules.NotFound("task %s not found", id)
	}
	return t, err
}

// AssignTask sets the task's owning user after checking the assignment
// rules: the user must be active and the task's date range must not
// overlap any task already assigned to that user. The task's own prior
// assignment is excluded from the overlap comparison by id.
func (e Engine) AssignTask(ctx context.Context, taskID, userID, actorID string) (domain.Task, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTaskTx(ctx, tx, taskID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Task{}, rules.NotFound("task %s not found", taskID)
	}
	if err != nil {
		return domain.Task{}, err
	}
	u, err := e.Repo.GetUserTx(ctx, tx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Task{}, rules.NotFound("user %s not found", userID)
	}
	if err != nil {
		return domain.Task{}, err
	}
	if err := rules.ValidateUserAssignment(u); err != nil {
		return domain.Task{}, err
	}
	assigned, err := e.Repo.ListTasksForUserTx(ctx, tx, userID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := rules.ValidateNoOverlap(assigned, t.StartDate, t.EndDate, t.ID); err != nil {
		return domain.Task{}, err
	}

	previous := t.UserID
	now := e.timestamp()
	if err := e.Repo.UpdateTaskAssigneeTx(ctx, tx, t.ID, &userID, now); err != nil {
		return domain.Task{}, err
	}
	payload := events.EventPayload{"user_id": userID}
	if previous != nil {
		payload["previous_user_id"] = *previous
	}
	if err := e.Events.Append(ctx, tx, "task.assigned", "task", t.ID, actorID, payload); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	t.UserID = &userID
	t.UpdatedAt = now
	return t, nil
}

// UpdateTaskStatus moves a task to a new status. Only the transition to
// completed is rule-gated: it may not happen before the task's start
// date. Every other transition is unrestricted.
func (e Engine) UpdateTaskStatus(ctx context.Context, taskID, newStatus, actorID string) (domain.Task, error) {
	if !domain.ValidTaskStatus(newStatus) {
		return domain.Task{}, errors.New("invalid task status")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTaskTx(ctx, tx, taskID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Task{}, rules.NotFound("task %s not found", taskID)
	}
	if err != nil {
		return domain.Task{}, err
	}
	if err := rules.ValidateTaskCompletion(t, newStatus, e.today()); err != nil {
		return domain.Task{}, err
	}

	oldStatus := t.Status
	now := e.timestamp()
	if err := e.Repo.UpdateTaskStatusTx(ctx, tx, t.ID, newStatus, now); err != nil {
		return domain.Task{}, err
	}
	evtType := "task.status_changed"
	if newStatus == domain.TaskCompleted {
		evtType = "task.completed"
	}
	if err := e.Events.Append(ctx, tx, evtType, "task", t.ID, actorID, events.EventPayload{
		"from": oldStatus,
		"to":   newStatus,
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	t.Status = newStatus
	t.UpdatedAt = now
	return t, nil
}
