package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Type is the lookup table for machine categories. Seeded with
// "pump" and "part".
type Type struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Type      string    `json:"type" gorm:"type:varchar(50);not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Type) TableName() string {
	return "type"
}

func (t *Type) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Machine is a catalog entry for a manufactured model, independent of any
// sale. Serial numbers live on SoldMachine; FileKey points at the datasheet
// in object storage.
type Machine struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	ModelNo   string     `json:"model_no" gorm:"type:varchar(100);not null"`
	PartNo    *string    `json:"part_no" gorm:"type:varchar(100)"`
	TypeID    *uuid.UUID `json:"type_id" gorm:"type:uuid;index"`
	FileKey   *string    `json:"file_key,omitempty" gorm:"type:varchar(255)"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Relations
	MachineType *Type        `json:"machine_type,omitempty" gorm:"foreignKey:TypeID"`
	SoldInfo    *SoldMachine `json:"sold_info,omitempty" gorm:"foreignKey:MachineID"`
}

func (Machine) TableName() string {
	return "machines"
}

func (m *Machine) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// SoldMachine is a customer-owned unit. Each sold unit carries its own
// unique serial number; UserID records the distributor who made the sale.
type SoldMachine struct {
	ID                  uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	MachineID           uuid.UUID  `json:"machine_id" gorm:"type:uuid;not null;index"`
	UserID              *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	SerialNo            *string    `json:"serial_no" gorm:"type:varchar(100);uniqueIndex"`
	CustomerName        *string    `json:"customer_name" gorm:"type:varchar(255)"`
	CustomerContact     *string    `json:"customer_contact" gorm:"type:varchar(50)"`
	CustomerEmail       *string    `json:"customer_email" gorm:"type:varchar(255)"`
	CustomerAddress     *string    `json:"customer_address" gorm:"type:text"`
	CustomerCompany     *string    `json:"customer_company" gorm:"type:varchar(255)"`
	DateOfManufacturing *time.Time `json:"date_of_manufacturing" gorm:"type:date"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`

	// Relations
	Machine *Machine `json:"machine,omitempty" gorm:"foreignKey:MachineID"`
}

func (SoldMachine) TableName() string {
	return "sold_machines"
}

func (s *SoldMachine) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
