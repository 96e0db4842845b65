package database

import (
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// The schema is evolved by three ordered migrations. Each migration defines
// the table shapes as they existed at that point in history, so the structs
// below are versioned snapshots rather than the live models in
// internal/model. Applied migration IDs are recorded by the runner; applying
// the chain to an empty database yields the current schema and seed rows.

// --- migration 1: initial schema ---

type roleV1 struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoleName  string    `gorm:"type:varchar(50);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (roleV1) TableName() string { return "role" }

type typeV1 struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Type      string    `gorm:"type:varchar(50);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (typeV1) TableName() string { return "type" }

type serviceTypeV1 struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ServiceType string    `gorm:"type:varchar(100);not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (serviceTypeV1) TableName() string { return "service_types" }

// machineV1 still carries the serial number and manufacturing date; both
// move to sold_machines in migration 2.
type machineV1 struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SerialNo            string     `gorm:"type:varchar(100);not null;uniqueIndex"`
	ModelNo             string     `gorm:"type:varchar(100);not null"`
	PartNo              *string    `gorm:"type:varchar(100)"`
	TypeID              *uuid.UUID `gorm:"type:uuid;index"`
	DateOfManufacturing *time.Time `gorm:"type:date"`
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Type *typeV1 `gorm:"foreignKey:TypeID"`
}

func (machineV1) TableName() string { return "machines" }

type userV1 struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID  `gorm:"type:uuid;uniqueIndex"`
	RoleID      *uuid.UUID `gorm:"type:uuid;index"`
	Name        *string    `gorm:"type:varchar(255)"`
	PhoneNumber *string    `gorm:"type:varchar(50)"`
	Email       string     `gorm:"type:varchar(255);uniqueIndex"`
	Password    string     `gorm:"type:varchar(255)"`
	IsActive    bool       `gorm:"default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Role *roleV1 `gorm:"foreignKey:RoleID"`
}

func (userV1) TableName() string { return "users" }

type soldMachineV1 struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	MachineID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	CustomerName    *string    `gorm:"type:varchar(255)"`
	CustomerContact *string    `gorm:"type:varchar(50)"`
	CustomerEmail   *string    `gorm:"type:varchar(255)"`
	CustomerAddress *string    `gorm:"type:text"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Machine *machineV1 `gorm:"foreignKey:MachineID"`
}

func (soldMachineV1) TableName() string { return "sold_machines" }

// serviceReportV1 references the catalog machine directly; migration 2
// swaps this for a sold_machines reference and migration 3 restores it.
type serviceReportV1 struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID  `gorm:"type:uuid;index"`
	MachineID         *uuid.UUID `gorm:"type:uuid;index"`
	ServiceTypeID     uuid.UUID  `gorm:"type:uuid;index"`
	Problem           *string    `gorm:"type:text"`
	Solution          *string    `gorm:"type:text"`
	ServicePersonName *string    `gorm:"type:varchar(255)"`
	CreatedAt         time.Time
	UpdatedAt         time.Time

	User        *userV1        `gorm:"foreignKey:UserID"`
	Machine     *machineV1     `gorm:"foreignKey:MachineID"`
	ServiceType *serviceTypeV1 `gorm:"foreignKey:ServiceTypeID"`
}

func (serviceReportV1) TableName() string { return "service_report" }

type serviceReportPartV1 struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	ServiceReportID uuid.UUID `gorm:"type:uuid;index"`
	MachineID       uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	ServiceReport *serviceReportV1 `gorm:"foreignKey:ServiceReportID"`
	Machine       *machineV1       `gorm:"foreignKey:MachineID"`
}

func (serviceReportPartV1) TableName() string { return "service_report_parts" }

type serviceReportFileV1 struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	ServiceReportID uuid.UUID `gorm:"type:uuid;index"`
	FileKey         string    `gorm:"type:varchar(255);not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	ServiceReport *serviceReportV1 `gorm:"foreignKey:ServiceReportID"`
}

func (serviceReportFileV1) TableName() string { return "service_report_files" }

// --- migration 2: serial tracking moves to sold_machines ---

type machineV2 struct {
	FileKey *string `gorm:"type:varchar(255)"`
}

func (machineV2) TableName() string { return "machines" }

type soldMachineV2 struct {
	UserID              *uuid.UUID `gorm:"type:uuid;index"`
	SerialNo            *string    `gorm:"type:varchar(100);uniqueIndex"`
	CustomerCompany     *string    `gorm:"type:varchar(255)"`
	DateOfManufacturing *time.Time `gorm:"type:date"`
}

func (soldMachineV2) TableName() string { return "sold_machines" }

// The original index statement named a non-existent "sold_machines_id"
// column; the index here targets the real column.
type serviceReportV2 struct {
	SoldMachineID *uuid.UUID `gorm:"type:uuid;index"`
}

func (serviceReportV2) TableName() string { return "service_report" }

// --- migration 3: machine link restored, part quantities ---

type serviceReportV3 struct {
	MachineID *uuid.UUID `gorm:"type:uuid;index"`
}

func (serviceReportV3) TableName() string { return "service_report" }

type serviceReportPartV3 struct {
	Quantity int `gorm:"default:1"`
}

func (serviceReportPartV3) TableName() string { return "service_report_parts" }

// Migrate applies all pending schema migrations in order.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations())
	return m.Migrate()
}

func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "202401080001_initial_schema",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.Migrator().CreateTable(
					&roleV1{},
					&typeV1{},
					&serviceTypeV1{},
					&userV1{},
					&machineV1{},
					&soldMachineV1{},
					&serviceReportV1{},
					&serviceReportPartV1{},
					&serviceReportFileV1{},
				); err != nil {
					return err
				}
				return seedLookupTables(tx)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					&serviceReportFileV1{},
					&serviceReportPartV1{},
					&serviceReportV1{},
					&soldMachineV1{},
					&machineV1{},
					&userV1{},
					&serviceTypeV1{},
					&typeV1{},
					&roleV1{},
				)
			},
		},
		{
			ID: "202403190002_sold_machine_serial",
			Migrate: func(tx *gorm.DB) error {
				// sold_machines takes over unit-level tracking
				for _, field := range []string{"UserID", "SerialNo", "CustomerCompany", "DateOfManufacturing"} {
					if err := tx.Migrator().AddColumn(&soldMachineV2{}, field); err != nil {
						return err
					}
				}
				if err := tx.Migrator().CreateIndex(&soldMachineV2{}, "UserID"); err != nil {
					return err
				}
				if err := tx.Migrator().CreateIndex(&soldMachineV2{}, "SerialNo"); err != nil {
					return err
				}

				// machines becomes a pure catalog table with a datasheet key
				if err := tx.Migrator().DropIndex(&machineV1{}, "SerialNo"); err != nil {
					return err
				}
				if err := tx.Migrator().DropColumn(&machineV1{}, "SerialNo"); err != nil {
					return err
				}
				if err := tx.Migrator().DropColumn(&machineV1{}, "DateOfManufacturing"); err != nil {
					return err
				}
				if err := tx.Migrator().AddColumn(&machineV2{}, "FileKey"); err != nil {
					return err
				}

				// service_report links the sold unit instead of the catalog entry
				if err := tx.Migrator().DropIndex(&serviceReportV1{}, "MachineID"); err != nil {
					return err
				}
				if err := tx.Migrator().DropColumn(&serviceReportV1{}, "MachineID"); err != nil {
					return err
				}
				if err := tx.Migrator().AddColumn(&serviceReportV2{}, "SoldMachineID"); err != nil {
					return err
				}
				return tx.Migrator().CreateIndex(&serviceReportV2{}, "SoldMachineID")
			},
			Rollback: func(tx *gorm.DB) error {
				if err := tx.Migrator().DropColumn(&serviceReportV2{}, "SoldMachineID"); err != nil {
					return err
				}
				if err := tx.Migrator().AddColumn(&serviceReportV1{}, "MachineID"); err != nil {
					return err
				}
				if err := tx.Migrator().DropColumn(&machineV2{}, "FileKey"); err != nil {
					return err
				}
				if err := tx.Migrator().AddColumn(&machineV1{}, "DateOfManufacturing"); err != nil {
					return err
				}
				if err := tx.Migrator().AddColumn(&machineV1{}, "SerialNo"); err != nil {
					return err
				}
				for _, field := range []string{"DateOfManufacturing", "CustomerCompany", "SerialNo", "UserID"} {
					if err := tx.Migrator().DropColumn(&soldMachineV2{}, field); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			ID: "202404220003_service_report_machine_link",
			Migrate: func(tx *gorm.DB) error {
				// machine_id returns alongside sold_machine_id
				if err := tx.Migrator().AddColumn(&serviceReportV3{}, "MachineID"); err != nil {
					return err
				}
				if err := tx.Migrator().CreateIndex(&serviceReportV3{}, "MachineID"); err != nil {
					return err
				}
				return tx.Migrator().AddColumn(&serviceReportPartV3{}, "Quantity")
			},
			Rollback: func(tx *gorm.DB) error {
				if err := tx.Migrator().DropColumn(&serviceReportPartV3{}, "Quantity"); err != nil {
					return err
				}
				return tx.Migrator().DropColumn(&serviceReportV3{}, "MachineID")
			},
		},
	}
}

// seedLookupTables inserts the fixed rows the application expects in the
// three lookup tables.
func seedLookupTables(tx *gorm.DB) error {
	roles := []roleV1{
		{ID: uuid.New(), RoleName: "admin"},
		{ID: uuid.New(), RoleName: "distributer"},
	}
	if err := tx.Create(&roles).Error; err != nil {
		return err
	}

	types := []typeV1{
		{ID: uuid.New(), Type: "pump"},
		{ID: uuid.New(), Type: "part"},
	}
	if err := tx.Create(&types).Error; err != nil {
		return err
	}

	serviceTypes := []serviceTypeV1{
		{ID: uuid.New(), ServiceType: "Paid"},
		{ID: uuid.New(), ServiceType: "Health Check"},
		{ID: uuid.New(), ServiceType: "Warranty"},
		{ID: uuid.New(), ServiceType: "AMC"},
	}
	return tx.Create(&serviceTypes).Error
}
