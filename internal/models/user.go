package models

import "time"

type User struct {
	ID           uint64  `gorm:"primarykey" json:"id"`
	Email        string  `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Username     *string `gorm:"type:varchar(100);uniqueIndex" json:"username,omitempty"`
	PasswordHash *string `gorm:"type:varchar(255)" json:"-"`
	// ExternalID holds the identity-provider subject for accounts created
	// through Google login. Such accounts have no password hash.
	ExternalID *string   `gorm:"type:varchar(255);uniqueIndex" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Relations
	CreatedTasks []Task           `gorm:"foreignKey:CreatorID" json:"-"`
	Assignments  []TaskAssignment `gorm:"foreignKey:UserID" json:"-"`
}
