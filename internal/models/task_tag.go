package models

// TaskTag is a label row attached to a task. Listing filters match tasks
// carrying any of the requested tag names.
type TaskTag struct {
	TaskID uint64 `gorm:"primarykey" json:"-"`
	Name   string `gorm:"primarykey;type:varchar(100)" json:"name"`
}
