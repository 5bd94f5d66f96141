package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/taskhub/task-management-api/internal/cache"
	"github.com/taskhub/task-management-api/internal/dto"
	"github.com/taskhub/task-management-api/internal/models"
	"github.com/taskhub/task-management-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound          = errors.New("task not found")
	ErrTaskPermissionDenied  = errors.New("user does not have permission to modify this task")
	ErrNotTaskCreator        = errors.New("only the task creator can share this task")
	ErrShareTargetNotFound   = errors.New("user to share with not found")
	ErrAlreadyAssigned       = errors.New("user is already assigned to this task")
	ErrTitleRequired         = errors.New("title is required")
	ErrTitleEmpty            = errors.New("title cannot be empty")
	ErrDueDateInPast         = errors.New("due date must be in the future")
	ErrInvalidStatus         = errors.New("invalid task status")
	ErrInvalidPriority       = errors.New("invalid task priority")
	ErrSubtaskDueAfterParent = errors.New("subtask due date cannot exceed parent task due date")
)

// taskPreloads loads everything a single-task response needs.
var taskPreloads = []string{"Creator", "Assignments.User", "Tags", "Subtasks"}

// TaskService owns the task access policy, the listing cache coordination
// and the sharing flow. Every operation authorizes the caller before
// touching the store and flushes the cached listings of every participant
// of a mutated task before reporting success.
type TaskService struct {
	taskRepo  repository.TaskRepository
	userRepo  repository.UserRepository
	listCache *cache.TaskListCache
	emails    EmailService
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, userRepo repository.UserRepository, listCache *cache.TaskListCache, emails EmailService) *TaskService {
	return &TaskService{
		taskRepo:  taskRepo,
		userRepo:  userRepo,
		listCache: listCache,
		emails:    emails,
	}
}

// CreateTaskInput represents input for creating a task or subtask
type CreateTaskInput struct {
	Title       string
	Description string
	DueDate     time.Time
	Status      models.TaskStatus
	Priority    models.TaskPriority
	Tags        []string
	CreatorID   uint64
}

// UpdateTaskInput represents a field-level merge for updating a task
type UpdateTaskInput struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Status      *models.TaskStatus
	Priority    *models.TaskPriority
	Tags        *[]string
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	UserID   uint64
	Status   *models.TaskStatus
	Priority *models.TaskPriority
	Tags     []string
	Page     int
	Limit    int
}

// CreateTask creates a task owned by the caller, who is always auto-added
// to the assignee set even when the client omits it.
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}
	if !input.DueDate.After(time.Now()) {
		return nil, ErrDueDateInPast
	}
	if input.Status == "" {
		input.Status = models.TaskStatusPending
	}
	if !input.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	// The creator's assignment rides the same insert so a task can never
	// land without its creator in the assignee set.
	task := &models.Task{
		Title:       input.Title,
		Description: input.Description,
		DueDate:     input.DueDate,
		Status:      input.Status,
		Priority:    input.Priority,
		CreatorID:   input.CreatorID,
		Assignments: []models.TaskAssignment{{UserID: input.CreatorID}},
		Tags:        tagRows(input.Tags),
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.invalidateListings(ctx, input.CreatorID)

	return s.taskRepo.FindByID(task.ID, taskPreloads...)
}

// GetTask returns a task if the caller participates in it. Non-participants
// get a not-found, never a forbidden, so existence is not revealed.
func (s *TaskService) GetTask(taskID, callerID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, taskPreloads...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if !task.IsParticipant(callerID) {
		return nil, ErrTaskNotFound
	}

	return task, nil
}

// ListTasks returns the caller's listing page, served from cache when the
// request carries no filters. Filtered requests always hit the store since
// filters are not part of the cache key.
func (s *TaskService) ListTasks(ctx context.Context, input ListTasksInput) (*dto.TaskListResponse, error) {
	cacheable := input.Status == nil && input.Priority == nil && len(input.Tags) == 0

	if cacheable {
		cached, err := s.listCache.Get(ctx, input.UserID, input.Page, input.Limit)
		if err != nil {
			log.Printf("Task list cache read failed for user %d: %v", input.UserID, err)
		} else if cached != nil {
			return cached, nil
		}
	}

	filter := repository.TaskFilter{
		UserID:   input.UserID,
		Status:   input.Status,
		Priority: input.Priority,
		Tags:     input.Tags,
		Page:     input.Page,
		PageSize: input.Limit,
	}

	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	result := dto.ToTaskListResponse(tasks, input.Page, input.Limit, total)

	if cacheable {
		if err := s.listCache.Set(ctx, input.UserID, input.Page, input.Limit, &result); err != nil {
			log.Printf("Task list cache write failed for user %d: %v", input.UserID, err)
		}
	}

	return &result, nil
}

// UpdateTask applies a field-level merge. Creator and assignees may update;
// anyone else is rejected with a permission error. CreatorID is never
// touched.
func (s *TaskService) UpdateTask(ctx context.Context, taskID, actorID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Assignments", "Subtasks")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if !task.IsParticipant(actorID) {
		return nil, ErrTaskPermissionDenied
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, ErrTitleEmpty
		}
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		task.Status = *input.Status
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, ErrInvalidPriority
		}
		task.Priority = *input.Priority
	}
	if input.DueDate != nil {
		if !input.DueDate.After(time.Now()) {
			return nil, ErrDueDateInPast
		}
		if task.ParentTaskID != nil {
			parent, err := s.taskRepo.FindByID(*task.ParentTaskID)
			if err != nil {
				return nil, fmt.Errorf("failed to find parent task: %w", err)
			}
			if input.DueDate.After(parent.DueDate) {
				return nil, ErrSubtaskDueAfterParent
			}
		}
		// Pulling a parent's due date below an existing subtask's would
		// break the bound from the other side.
		for _, subtask := range task.Subtasks {
			if subtask.DueDate.After(*input.DueDate) {
				return nil, ErrSubtaskDueAfterParent
			}
		}
		task.DueDate = *input.DueDate
	}

	// Detach the preloaded relations so Save does not attempt to upsert
	// the join rows or child tasks.
	participants := task.ParticipantIDs()
	task.Assignments = nil
	task.Subtasks = nil

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if input.Tags != nil {
		if err := s.taskRepo.ReplaceTags(task.ID, *input.Tags); err != nil {
			return nil, fmt.Errorf("failed to update tags: %w", err)
		}
	}

	s.invalidateListings(ctx, participants...)

	return s.taskRepo.FindByID(task.ID, taskPreloads...)
}

// DeleteTask removes a task and its subtasks. Creator and assignees may
// delete; anyone else is rejected with a permission error.
func (s *TaskService) DeleteTask(ctx context.Context, taskID, actorID uint64) error {
	task, err := s.taskRepo.FindByID(taskID, "Assignments")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if !task.IsParticipant(actorID) {
		return ErrTaskPermissionDenied
	}

	participants := task.ParticipantIDs()

	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.invalidateListings(ctx, participants...)

	return nil
}

// ShareTask appends the user identified by email to the task's assignee
// set. Only the creator may share. The notification email is best-effort:
// its failure is returned separately and never rolls back the assignment.
func (s *TaskService) ShareTask(ctx context.Context, taskID uint64, email string, actorID uint64) (task *models.Task, notifyErr error, err error) {
	task, err = s.taskRepo.FindByID(taskID, "Assignments")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrTaskNotFound
		}
		return nil, nil, fmt.Errorf("failed to find task: %w", err)
	}

	if task.CreatorID != actorID {
		return nil, nil, ErrNotTaskCreator
	}

	target, err := s.userRepo.FindByEmail(strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrShareTargetNotFound
		}
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	// A share targeting the creator counts as already assigned.
	if target.ID == task.CreatorID {
		return nil, nil, ErrAlreadyAssigned
	}
	if _, err := s.taskRepo.FindAssignment(task.ID, target.ID); err == nil {
		return nil, nil, ErrAlreadyAssigned
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("failed to check assignment: %w", err)
	}

	if err := s.taskRepo.AssignUsers(task.ID, []uint64{target.ID}); err != nil {
		return nil, nil, fmt.Errorf("failed to assign user: %w", err)
	}

	s.invalidateListings(ctx, append(task.ParticipantIDs(), target.ID)...)

	task, err = s.taskRepo.FindByID(task.ID, taskPreloads...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reload task: %w", err)
	}

	if mailErr := s.emails.SendTaskSharedEmail(target.Email, task.Title); mailErr != nil {
		log.Printf("Failed to send share notification to %s: %v", target.Email, mailErr)
		notifyErr = mailErr
	}

	return task, notifyErr, nil
}

// CreateSubtask creates a task under a parent. Any participant of the
// parent may do so; the subtask inherits the parent's assignee set and its
// due date must not exceed the parent's.
func (s *TaskService) CreateSubtask(ctx context.Context, parentID uint64, input CreateTaskInput) (*models.Task, error) {
	parent, err := s.taskRepo.FindByID(parentID, "Assignments")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find parent task: %w", err)
	}

	if !parent.IsParticipant(input.CreatorID) {
		return nil, ErrTaskPermissionDenied
	}

	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}
	if !input.DueDate.After(time.Now()) {
		return nil, ErrDueDateInPast
	}
	if input.DueDate.After(parent.DueDate) {
		return nil, ErrSubtaskDueAfterParent
	}
	if input.Status == "" {
		input.Status = models.TaskStatusPending
	}
	if !input.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	// Inherit the parent's assignee set; the caller is a participant of the
	// parent, so this also satisfies the creator-is-assigned invariant. The
	// assignments ride the same insert as the task row.
	assignees := uniqueUint64(append(parent.ParticipantIDs(), input.CreatorID))
	assignments := make([]models.TaskAssignment, len(assignees))
	for i, userID := range assignees {
		assignments[i] = models.TaskAssignment{UserID: userID}
	}

	subtask := &models.Task{
		Title:        input.Title,
		Description:  input.Description,
		DueDate:      input.DueDate,
		Status:       input.Status,
		Priority:     input.Priority,
		CreatorID:    input.CreatorID,
		ParentTaskID: &parent.ID,
		Assignments:  assignments,
		Tags:         tagRows(input.Tags),
	}

	if err := s.taskRepo.Create(subtask); err != nil {
		return nil, fmt.Errorf("failed to create subtask: %w", err)
	}

	s.invalidateListings(ctx, assignees...)

	return s.taskRepo.FindByID(subtask.ID, taskPreloads...)
}

// DeleteSubtask removes a subtask from its parent. Authorization follows
// the parent's update/delete rule.
func (s *TaskService) DeleteSubtask(ctx context.Context, parentID, subtaskID, actorID uint64) error {
	parent, err := s.taskRepo.FindByID(parentID, "Assignments")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find parent task: %w", err)
	}

	if !parent.IsParticipant(actorID) {
		return ErrTaskPermissionDenied
	}

	subtask, err := s.taskRepo.FindByID(subtaskID, "Assignments")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find subtask: %w", err)
	}

	if subtask.ParentTaskID == nil || *subtask.ParentTaskID != parentID {
		return ErrTaskNotFound
	}

	participants := uniqueUint64(append(parent.ParticipantIDs(), subtask.ParticipantIDs()...))

	if err := s.taskRepo.Delete(subtaskID); err != nil {
		return fmt.Errorf("failed to delete subtask: %w", err)
	}

	s.invalidateListings(ctx, participants...)

	return nil
}

// invalidateListings flushes the cached listings of the given users. The
// store write is the source of truth, so a cache failure is logged and
// never fails the mutation.
func (s *TaskService) invalidateListings(ctx context.Context, userIDs ...uint64) {
	if err := s.listCache.InvalidateUsers(ctx, userIDs...); err != nil {
		log.Printf("Task list cache invalidation failed for users %v: %v", userIDs, err)
	}
}

// uniqueUint64 removes duplicate values from a slice of uint64
func uniqueUint64(values []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(values))
	result := make([]uint64, 0, len(values))

	for _, v := range values {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}

func tagRows(names []string) []models.TaskTag {
	tags := make([]models.TaskTag, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		tags = append(tags, models.TaskTag{Name: name})
	}
	return tags
}
