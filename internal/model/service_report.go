package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ServiceType is the lookup table for service classifications. Seeded with
// "Paid", "Health Check", "Warranty" and "AMC".
type ServiceType struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ServiceType string    `json:"service_type" gorm:"type:varchar(100);not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (ServiceType) TableName() string {
	return "service_types"
}

func (s *ServiceType) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// ServiceReport records a single field-service visit. MachineID links the
// serviced catalog entry; SoldMachineID links the customer's unit when the
// report was opened from a serial-number lookup. Both columns exist in the
// schema and either may be null.
type ServiceReport struct {
	ID                uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID  `json:"user_id" gorm:"type:uuid;index"`
	MachineID         *uuid.UUID `json:"machine_id" gorm:"type:uuid;index"`
	SoldMachineID     *uuid.UUID `json:"sold_machine_id" gorm:"type:uuid;index"`
	ServiceTypeID     uuid.UUID  `json:"service_type_id" gorm:"type:uuid;index"`
	Problem           *string    `json:"problem" gorm:"type:text"`
	Solution          *string    `json:"solution" gorm:"type:text"`
	ServicePersonName *string    `json:"service_person_name" gorm:"type:varchar(255)"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// Relations
	User        *User               `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Machine     *Machine            `json:"machine,omitempty" gorm:"foreignKey:MachineID"`
	ServiceType *ServiceType        `json:"service_type,omitempty" gorm:"foreignKey:ServiceTypeID"`
	Parts       []ServiceReportPart `json:"parts,omitempty" gorm:"foreignKey:ServiceReportID"`
	Files       []ServiceReportFile `json:"files,omitempty" gorm:"foreignKey:ServiceReportID"`
}

func (ServiceReport) TableName() string {
	return "service_report"
}

func (r *ServiceReport) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ServiceReportPart records a part (a catalog machine of type "part")
// consumed during a service visit.
type ServiceReportPart struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ServiceReportID uuid.UUID `json:"service_report_id" gorm:"type:uuid;index"`
	MachineID       uuid.UUID `json:"machine_id" gorm:"type:uuid;index"`
	Quantity        int       `json:"quantity" gorm:"default:1"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Relations
	Machine *Machine `json:"machine,omitempty" gorm:"foreignKey:MachineID"`
}

func (ServiceReportPart) TableName() string {
	return "service_report_parts"
}

func (p *ServiceReportPart) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ServiceReportFile is an attachment stored in object storage under FileKey.
type ServiceReportFile struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ServiceReportID uuid.UUID `json:"service_report_id" gorm:"type:uuid;index"`
	FileKey         string    `json:"file_key" gorm:"type:varchar(255);not null"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (ServiceReportFile) TableName() string {
	return "service_report_files"
}

func (f *ServiceReportFile) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
