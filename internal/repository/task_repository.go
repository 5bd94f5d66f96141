package repository

import (
	"github.com/taskhub/task-management-api/internal/database"
	"github.com/taskhub/task-management-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task together with its tag rows
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves tasks visible to the scoped user. Visibility means the user
// created the task or appears in its assignee set; optional status, priority
// and tag filters narrow the scope further. Results are newest first.
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	assignmentSubQuery := r.db.Model(&models.TaskAssignment{}).
		Select("1").
		Where("task_assignments.task_id = tasks.id").
		Where("task_assignments.user_id = ?", filter.UserID)

	query := r.db.Model(&models.Task{}).
		Where("tasks.creator_id = ? OR EXISTS (?)", filter.UserID, assignmentSubQuery)

	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if len(filter.Tags) > 0 {
		tagSubQuery := r.db.Model(&models.TaskTag{}).
			Select("1").
			Where("task_tags.task_id = tasks.id").
			Where("task_tags.name IN ?", filter.Tags)
		query = query.Where("EXISTS (?)", tagSubQuery)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("tasks.created_at DESC").
		Scopes(database.Paginate(filter.Page, filter.PageSize)).
		Preload("Creator").
		Preload("Assignments.User").
		Preload("Tags").
		Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// ReplaceTags replaces the task's tag rows with the given names
func (r *GormTaskRepository) ReplaceTags(taskID uint64, names []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskTag{}).Error; err != nil {
			return err
		}

		if len(names) == 0 {
			return nil
		}

		tags := make([]models.TaskTag, len(names))
		for i, name := range names {
			tags[i] = models.TaskTag{TaskID: taskID, Name: name}
		}

		return tx.Create(&tags).Error
	})
}

// Delete removes a task, its subtasks and all dependent rows in a transaction
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var subtaskIDs []uint64
		if err := tx.Model(&models.Task{}).
			Where("parent_task_id = ?", id).
			Pluck("id", &subtaskIDs).Error; err != nil {
			return err
		}

		ids := append(subtaskIDs, id)

		if err := tx.Where("task_id IN ?", ids).Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id IN ?", ids).Delete(&models.TaskTag{}).Error; err != nil {
			return err
		}

		return tx.Where("id IN ?", ids).Delete(&models.Task{}).Error
	})
}

// AssignUsers adds the users to the task's assignee set
func (r *GormTaskRepository) AssignUsers(taskID uint64, userIDs []uint64) error {
	assignments := make([]models.TaskAssignment, len(userIDs))

	for i, userID := range userIDs {
		assignments[i] = models.TaskAssignment{
			TaskID: taskID,
			UserID: userID,
		}
	}

	return r.db.
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&assignments).Error
}

// FindAssignment finds a specific task assignment
func (r *GormTaskRepository) FindAssignment(taskID, userID uint64) (*models.TaskAssignment, error) {
	var assignment models.TaskAssignment
	if err := r.db.Where("task_id = ? AND user_id = ?", taskID, userID).
		First(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}
