package models

import "time"

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID          uint64       `gorm:"primarykey" json:"id"`
	Title       string       `gorm:"not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	DueDate     time.Time    `gorm:"not null" json:"due_date"`
	Status      TaskStatus   `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Priority    TaskPriority `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	// CreatorID is set once at creation and never reassigned.
	CreatorID    uint64    `gorm:"not null" json:"creator_id"`
	ParentTaskID *uint64   `gorm:"index" json:"parent_task_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	Creator     User             `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Assignments []TaskAssignment `gorm:"foreignKey:TaskID" json:"assignments,omitempty"`
	Subtasks    []Task           `gorm:"foreignKey:ParentTaskID;constraint:OnDelete:CASCADE" json:"subtasks,omitempty"`
	Tags        []TaskTag        `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"tags,omitempty"`
}

// IsParticipant reports whether the user created the task or appears in its
// assignee set. Assignments must be preloaded.
func (t *Task) IsParticipant(userID uint64) bool {
	if t.CreatorID == userID {
		return true
	}
	for _, assignment := range t.Assignments {
		if assignment.UserID == userID {
			return true
		}
	}
	return false
}

// IsAssignee reports whether the user appears in the assignee set.
// Assignments must be preloaded.
func (t *Task) IsAssignee(userID uint64) bool {
	for _, assignment := range t.Assignments {
		if assignment.UserID == userID {
			return true
		}
	}
	return false
}

// ParticipantIDs returns the creator plus all assignees, deduplicated.
// Assignments must be preloaded.
func (t *Task) ParticipantIDs() []uint64 {
	seen := map[uint64]struct{}{t.CreatorID: {}}
	ids := []uint64{t.CreatorID}
	for _, assignment := range t.Assignments {
		if _, ok := seen[assignment.UserID]; ok {
			continue
		}
		seen[assignment.UserID] = struct{}{}
		ids = append(ids, assignment.UserID)
	}
	return ids
}
