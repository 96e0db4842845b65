package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an application account. UserID is the external auth
// identity assigned at registration, distinct from the row's own ID.
type User struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID  `json:"user_id" gorm:"type:uuid;uniqueIndex"`
	RoleID      *uuid.UUID `json:"role_id" gorm:"type:uuid;index"`
	Name        *string    `json:"name" gorm:"type:varchar(255)"`
	PhoneNumber *string    `json:"phone_number" gorm:"type:varchar(50)"`
	Email       string     `json:"email" gorm:"type:varchar(255);uniqueIndex"`
	Password    string     `json:"-" gorm:"type:varchar(255)"`
	IsActive    bool       `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relations
	Role *Role `json:"role,omitempty" gorm:"foreignKey:RoleID"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
