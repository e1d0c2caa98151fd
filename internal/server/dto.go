package server

import "taskdesk/internal/domain"

// Request payloads

type CreateUserRequest struct {
	Name   string `json:"name"`
	Status string `json:"status,omitempty" enum:"active,inactive" default:"active"`
}

type CreateTaskRequest struct {
	Title     string `json:"title"`
	StartDate string `json:"start_date" format:"date"`
	EndDate   string `json:"end_date" format:"date"`
}

type AssignTaskRequest struct {
	UserID string `json:"user_id"`
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status" enum:"pending,in_progress,completed"`
}

// Response payloads

type UserResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status" enum:"active,inactive"`
}

type TaskResponse struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	StartDate string  `json:"start_date" format:"date"`
	EndDate   string  `json:"end_date" format:"date"`
	Status    string  `json:"status" enum:"pending,in_progress,completed"`
	UserID    *string `json:"user_id"`
}

func userResponse(u domain.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Status: u.Status}
}

func mapUsers(items []domain.User) []UserResponse {
	res := make([]UserResponse, 0, len(items))
	for _, u := range items {
		res = append(res, userResponse(u))
	}
	return res
}

func taskResponse(t domain.Task) TaskResponse {
	return TaskResponse{
		ID:        t.ID,
		Title:     t.Title,
		StartDate: t.StartDate.String(),
		EndDate:   t.EndDate.String(),
		Status:    t.Status,
		UserID:    t.UserID,
	}
}

func mapTasks(items []domain.Task) []TaskResponse {
	res := make([]TaskResponse, 0, len(items))
	for _, t := range items {
		res = append(res, taskResponse(t))
	}
	return res
}
