package handler

import (
	"errors"
	"net/http"
	"time"

	"vacuumvp-service/internal/model"
	"vacuumvp-service/pkg/database"
	"vacuumvp-service/pkg/logger"
	"vacuumvp-service/pkg/storage"
	"vacuumvp-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var machineSortColumns = map[string]string{
	"created_at": "machines.created_at",
	"updated_at": "machines.updated_at",
	"model_no":   "machines.model_no",
	"part_no":    "machines.part_no",
}

// ListPumps returns the pump catalog with sale details embedded. Admin only.
func ListPumps(c echo.Context) error {
	return listMachinesByType(c, "pump")
}

// ListParts returns the spare part catalog. Admin only.
func ListParts(c echo.Context) error {
	return listMachinesByType(c, "part")
}

func listMachinesByType(c echo.Context, typeName string) error {
	log := logger.FromContext(c)
	params, order := parseListParams(c, machineSortColumns)

	db := database.GetDB()
	defer prometheus.TrackDBOperation("query")(time.Now())

	query := db.Model(&model.Machine{}).
		Joins("JOIN type ON type.id = machines.type_id").
		Where("type.type = ?", typeName)

	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		query = query.
			Joins("LEFT JOIN sold_machines ON sold_machines.machine_id = machines.id").
			Where(`LOWER(machines.model_no) LIKE LOWER(?)
				OR LOWER(machines.part_no) LIKE LOWER(?)
				OR LOWER(sold_machines.serial_no) LIKE LOWER(?)
				OR LOWER(sold_machines.customer_name) LIKE LOWER(?)
				OR LOWER(sold_machines.customer_email) LIKE LOWER(?)`,
				pattern, pattern, pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Error("Failed to count machines", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch machines"})
	}

	var machines []model.Machine
	if err := query.Preload("MachineType").Preload("SoldInfo").
		Order(order).
		Offset((params.Page - 1) * params.Limit).
		Limit(params.Limit).
		Find(&machines).Error; err != nil {
		log.Error("Failed to fetch machines", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch machines"})
	}

	log.Info("Machines listed",
		zap.String("type", typeName),
		zap.Int64("total", total),
		zap.Int("page", params.Page))

	return c.JSON(http.StatusOK, newPaginated(total, params, machines))
}

// CreateMachine adds a catalog entry. The request is multipart: model_no,
// optional part_no, type ("pump" or "part") and an optional datasheet file
// stored in object storage. Admin only.
func CreateMachine(c echo.Context) error {
	log := logger.FromContext(c)

	modelNo := c.FormValue("model_no")
	partNo := c.FormValue("part_no")
	typeName := c.FormValue("type")

	if modelNo == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "model_no is required"})
	}
	if typeName == "" {
		typeName = "pump"
	}

	db := database.GetDB()
	defer prometheus.TrackDBOperation("insert")(time.Now())

	var machineType model.Type
	if err := db.Where("type = ?", typeName).First(&machineType).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Unknown machine type: " + typeName})
		}
		log.Error("Database error while looking up machine type", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create machine"})
	}

	machine := model.Machine{
		ModelNo: modelNo,
		TypeID:  &machineType.ID,
	}
	if partNo != "" {
		machine.PartNo = &partNo
	}

	if fileHeader, err := c.FormFile("file"); err == nil {
		client := storage.GetClient()
		if client == nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "File storage is not configured"})
		}

		src, err := fileHeader.Open()
		if err != nil {
			log.Error("Failed to open uploaded datasheet", zap.Error(err))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Failed to read uploaded file"})
		}
		defer src.Close()

		key, err := client.Upload(c.Request().Context(), "datasheets",
			fileHeader.Filename, fileHeader.Header.Get("Content-Type"), src)
		if err != nil {
			prometheus.RecordFileUpload("failure")
			log.Error("Failed to upload datasheet", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to upload file"})
		}
		prometheus.RecordFileUpload("success")
		machine.FileKey = &key
	}

	if err := db.Create(&machine).Error; err != nil {
		log.Error("Failed to create machine", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create machine"})
	}

	machine.MachineType = &machineType
	log.Info("Machine created",
		zap.String("machine_id", machine.ID.String()),
		zap.String("model_no", machine.ModelNo),
		zap.String("type", typeName))

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Machine created successfully",
		"machine": machine,
	})
}
