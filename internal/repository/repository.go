package repository

import "github.com/taskhub/task-management-api/internal/models"

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task together with its tag rows
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks visible to the scoped user with filtering and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(task *models.Task) error

	// ReplaceTags replaces the task's tag rows with the given names
	ReplaceTags(taskID uint64, names []string) error

	// Delete removes a task along with its subtasks, assignments and tags
	Delete(id uint64) error

	// AssignUsers adds the users to the task's assignee set
	AssignUsers(taskID uint64, userIDs []uint64) error

	// FindAssignment finds a specific task assignment
	FindAssignment(taskID, userID uint64) (*models.TaskAssignment, error)
}

// TaskFilter holds filtering options for listing tasks. The scope is fixed:
// tasks the user created or is assigned to. Optional filters are ANDed onto
// the scope.
type TaskFilter struct {
	UserID   uint64
	Status   *models.TaskStatus
	Priority *models.TaskPriority
	Tags     []string
	Page     int
	PageSize int
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// Update persists changes to a user
	Update(user *models.User) error
}
