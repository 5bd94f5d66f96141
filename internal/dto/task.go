package dto

import (
	"time"

	"github.com/taskhub/task-management-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       uint64  `json:"id"`
	Email    string  `json:"email"`
	Username *string `json:"username,omitempty"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID           uint64              `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	DueDate      time.Time           `json:"due_date"`
	Status       models.TaskStatus   `json:"status"`
	Priority     models.TaskPriority `json:"priority"`
	CreatorID    uint64              `json:"creator_id"`
	ParentTaskID *uint64             `json:"parent_task_id,omitempty"`
	Tags         []string            `json:"tags"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	CreatedBy    *UserDTO            `json:"created_by,omitempty"`
	AssignedTo   []UserDTO           `json:"assigned_to,omitempty"`
	Subtasks     []TaskDTO           `json:"subtasks,omitempty"`
}

// TaskListResponse is the paginated listing envelope. It is also the payload
// cached by the task list cache, so the field set must stay JSON round-trip
// safe.
type TaskListResponse struct {
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
	Tasks []TaskDTO `json:"tasks"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
	}
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		DueDate:      task.DueDate,
		Status:       task.Status,
		Priority:     task.Priority,
		CreatorID:    task.CreatorID,
		ParentTaskID: task.ParentTaskID,
		Tags:         make([]string, 0, len(task.Tags)),
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
	}

	for _, tag := range task.Tags {
		dto.Tags = append(dto.Tags, tag.Name)
	}

	// Include creator if preloaded
	if task.Creator.ID != 0 {
		creator := ToUserDTO(task.Creator)
		dto.CreatedBy = &creator
	}

	// Include assignees if preloaded
	if len(task.Assignments) > 0 {
		dto.AssignedTo = make([]UserDTO, 0, len(task.Assignments))
		for _, assignment := range task.Assignments {
			dto.AssignedTo = append(dto.AssignedTo, ToUserDTO(assignment.User))
		}
	}

	// Include subtasks if preloaded
	if len(task.Subtasks) > 0 {
		dto.Subtasks = make([]TaskDTO, 0, len(task.Subtasks))
		for _, subtask := range task.Subtasks {
			dto.Subtasks = append(dto.Subtasks, ToTaskDTO(subtask))
		}
	}

	return dto
}

// ToTaskListResponse converts a page of tasks to the listing envelope
func ToTaskListResponse(tasks []models.Task, page, limit int, total int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}

	return TaskListResponse{
		Total: total,
		Page:  page,
		Limit: limit,
		Tasks: items,
	}
}
