package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the lookup table for application roles. Seeded with
// "admin" and "distributer"; referenced by users.
type Role struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	RoleName  string    `json:"role_name" gorm:"type:varchar(50);not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Role) TableName() string {
	return "role"
}

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
