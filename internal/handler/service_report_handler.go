package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"vacuumvp-service/internal/model"
	"vacuumvp-service/pkg/database"
	"vacuumvp-service/pkg/logger"
	"vacuumvp-service/pkg/pdfgen"
	"vacuumvp-service/pkg/storage"
	"vacuumvp-service/prometheus"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var reportSortColumns = map[string]string{
	"created_at": "service_report.created_at",
	"updated_at": "service_report.updated_at",
}

// GetServiceTypes returns the service classification lookup table.
func GetServiceTypes(c echo.Context) error {
	log := logger.FromContext(c)

	defer prometheus.TrackDBOperation("query")(time.Now())

	var types []model.ServiceType
	if err := database.GetDB().Order("service_type ASC").Find(&types).Error; err != nil {
		log.Error("Failed to fetch service types", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch service types"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"service_types": types,
	})
}

// GetMachineBySerial looks up a sold unit by its serial number, returning
// the unit together with its catalog machine. Engineers use this to open
// a service report from the serial plate.
func GetMachineBySerial(c echo.Context) error {
	log := logger.FromContext(c)

	serialNo := c.QueryParam("serial_no")
	if serialNo == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "serial_no is required"})
	}

	db := database.GetDB()
	defer prometheus.TrackDBOperation("query")(time.Now())

	var sold model.SoldMachine
	err := db.Preload("Machine").Preload("Machine.MachineType").
		Where("serial_no = ?", serialNo).
		First(&sold).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Info("Serial number not found", zap.String("serial_no", serialNo))
			return c.JSON(http.StatusNotFound, echo.Map{"error": "No machine found with this serial number"})
		}
		log.Error("Failed to look up serial number", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to look up serial number"})
	}

	response := echo.Map{
		"success":      true,
		"sold_machine": sold,
	}

	// Attach a datasheet link when one exists.
	if sold.Machine != nil && sold.Machine.FileKey != nil {
		if client := storage.GetClient(); client != nil {
			url, err := client.PresignedURL(c.Request().Context(), *sold.Machine.FileKey)
			if err != nil {
				log.Warn("Failed to presign datasheet URL", zap.Error(err))
				url = client.ObjectURL(*sold.Machine.FileKey)
			}
			response["datasheet_url"] = url
		}
	}

	return c.JSON(http.StatusOK, response)
}

type customerRecordRequest struct {
	MachineID           string  `json:"machine_id"`
	SerialNo            string  `json:"serial_no"`
	CustomerName        *string `json:"customer_name"`
	CustomerContact     *string `json:"customer_contact"`
	CustomerEmail       *string `json:"customer_email"`
	CustomerAddress     *string `json:"customer_address"`
	CustomerCompany     *string `json:"customer_company"`
	DateOfManufacturing *string `json:"date_of_manufacturing"`
}

// CreateCustomerRecord registers a sold unit: which catalog machine, its
// serial number and the customer who owns it. Duplicate serial numbers
// are rejected with 409.
func CreateCustomerRecord(c echo.Context) error {
	log := logger.FromContext(c)

	var req customerRecordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request format"})
	}
	if req.MachineID == "" || req.SerialNo == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "machine_id and serial_no are required"})
	}

	machineID, err := uuid.Parse(req.MachineID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid machine_id"})
	}

	db := database.GetDB()
	defer prometheus.TrackDBOperation("insert")(time.Now())

	var machine model.Machine
	if err := db.First(&machine, "id = ?", machineID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Machine not found"})
		}
		log.Error("Failed to fetch machine", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create customer record"})
	}

	var existing model.SoldMachine
	if err := db.Where("serial_no = ?", req.SerialNo).First(&existing).Error; err == nil {
		log.Warn("Duplicate serial number", zap.String("serial_no", req.SerialNo))
		return c.JSON(http.StatusConflict, echo.Map{"error": "A machine with this serial number is already registered"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error("Failed to check serial number", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create customer record"})
	}

	sold := model.SoldMachine{
		MachineID:       machineID,
		SerialNo:        &req.SerialNo,
		CustomerName:    req.CustomerName,
		CustomerContact: req.CustomerContact,
		CustomerEmail:   req.CustomerEmail,
		CustomerAddress: req.CustomerAddress,
		CustomerCompany: req.CustomerCompany,
	}
	if userID, ok := currentUserID(c); ok {
		sold.UserID = &userID
	}
	if req.DateOfManufacturing != nil && *req.DateOfManufacturing != "" {
		dom, err := time.Parse("2006-01-02", *req.DateOfManufacturing)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date_of_manufacturing must be YYYY-MM-DD"})
		}
		sold.DateOfManufacturing = &dom
	}

	if err := db.Create(&sold).Error; err != nil {
		log.Error("Failed to create customer record", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create customer record"})
	}

	prometheus.MachineSoldCounter.Inc()
	log.Info("Customer record created",
		zap.String("sold_machine_id", sold.ID.String()),
		zap.String("machine_id", machineID.String()),
		zap.String("serial_no", req.SerialNo))

	sold.Machine = &machine
	return c.JSON(http.StatusCreated, echo.Map{
		"success":      true,
		"message":      "Customer record created successfully",
		"sold_machine": sold,
	})
}

type reportPartInput struct {
	MachineID string `json:"machine_id"`
	Quantity  int    `json:"quantity"`
}

// CreateServiceReport records a service visit. The request is multipart:
// service_type_id (required), machine_id and/or sold_machine_id, problem,
// solution, service_person_name, a "parts" JSON array of consumed parts,
// and any number of "files" attachments stored in object storage.
func CreateServiceReport(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid token"})
	}

	serviceTypeID, err := uuid.Parse(c.FormValue("service_type_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "service_type_id is required"})
	}

	db := database.GetDB()
	defer prometheus.TrackDBOperation("insert")(time.Now())

	var serviceType model.ServiceType
	if err := db.First(&serviceType, "id = ?", serviceTypeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Unknown service type"})
		}
		log.Error("Failed to fetch service type", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create service report"})
	}

	report := model.ServiceReport{
		UserID:        userID,
		ServiceTypeID: serviceTypeID,
	}

	if v := c.FormValue("machine_id"); v != "" {
		machineID, err := uuid.Parse(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid machine_id"})
		}
		var machine model.Machine
		if err := db.First(&machine, "id = ?", machineID).Error; err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Machine not found"})
		}
		report.MachineID = &machineID
	}

	if v := c.FormValue("sold_machine_id"); v != "" {
		soldID, err := uuid.Parse(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid sold_machine_id"})
		}
		var sold model.SoldMachine
		if err := db.First(&sold, "id = ?", soldID).Error; err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Sold machine not found"})
		}
		report.SoldMachineID = &soldID
		// Fill the catalog link from the sold unit when not given directly.
		if report.MachineID == nil {
			report.MachineID = &sold.MachineID
		}
	}

	if v := c.FormValue("problem"); v != "" {
		report.Problem = &v
	}
	if v := c.FormValue("solution"); v != "" {
		report.Solution = &v
	}
	if v := c.FormValue("service_person_name"); v != "" {
		report.ServicePersonName = &v
	}

	var parts []reportPartInput
	if raw := c.FormValue("parts"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &parts); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "parts must be a JSON array"})
		}
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		for _, p := range parts {
			partMachineID, err := uuid.Parse(p.MachineID)
			if err != nil {
				return fmt.Errorf("invalid part machine_id %q", p.MachineID)
			}
			var partMachine model.Machine
			if err := tx.First(&partMachine, "id = ?", partMachineID).Error; err != nil {
				return fmt.Errorf("part machine %s not found", p.MachineID)
			}
			quantity := p.Quantity
			if quantity < 1 {
				quantity = 1
			}
			part := model.ServiceReportPart{
				ServiceReportID: report.ID,
				MachineID:       partMachineID,
				Quantity:        quantity,
			}
			if err := tx.Create(&part).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to create service report", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	// Attachments are uploaded after the report row exists; a failed upload
	// is logged and skipped rather than losing the whole report.
	if form, err := c.MultipartForm(); err == nil && form != nil {
		client := storage.GetClient()
		for _, fileHeader := range form.File["files"] {
			if client == nil {
				log.Warn("File storage not configured, skipping attachment",
					zap.String("file", fileHeader.Filename))
				continue
			}
			src, err := fileHeader.Open()
			if err != nil {
				log.Error("Failed to open attachment", zap.Error(err))
				continue
			}
			key, err := client.Upload(c.Request().Context(), "service-reports",
				fileHeader.Filename, fileHeader.Header.Get("Content-Type"), src)
			src.Close()
			if err != nil {
				prometheus.RecordFileUpload("failure")
				log.Error("Failed to upload attachment",
					zap.String("file", fileHeader.Filename), zap.Error(err))
				continue
			}
			prometheus.RecordFileUpload("success")
			file := model.ServiceReportFile{
				ServiceReportID: report.ID,
				FileKey:         key,
			}
			if err := db.Create(&file).Error; err != nil {
				log.Error("Failed to record attachment", zap.Error(err))
			}
		}
	}

	var created model.ServiceReport
	if err := db.Preload("ServiceType").Preload("Machine").
		Preload("Parts").Preload("Parts.Machine").Preload("Files").
		First(&created, "id = ?", report.ID).Error; err != nil {
		log.Error("Failed to reload service report", zap.Error(err))
		created = report
	}

	prometheus.ServiceReportCounter.Inc()
	log.Info("Service report created",
		zap.String("report_id", report.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("service_type", serviceType.ServiceType),
		zap.Int("parts", len(parts)))

	return c.JSON(http.StatusCreated, echo.Map{
		"success":        true,
		"message":        "Service report created successfully",
		"service_report": created,
	})
}

// ListServiceReports returns service reports, newest first. Admins see
// every report; distributers only their own.
func ListServiceReports(c echo.Context) error {
	log := logger.FromContext(c)
	params, order := parseListParams(c, reportSortColumns)

	db := database.GetDB()
	defer prometheus.TrackDBOperation("query")(time.Now())

	query := db.Model(&model.ServiceReport{})
	if !isAdmin(c) {
		userID, ok := currentUserID(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid token"})
		}
		query = query.Where("service_report.user_id = ?", userID)
	}

	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		query = query.Where(
			"LOWER(problem) LIKE LOWER(?) OR LOWER(solution) LIKE LOWER(?) OR LOWER(service_person_name) LIKE LOWER(?)",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Error("Failed to count service reports", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch service reports"})
	}

	var reports []model.ServiceReport
	if err := query.
		Preload("User").Preload("ServiceType").Preload("Machine").
		Order(order).
		Offset((params.Page - 1) * params.Limit).
		Limit(params.Limit).
		Find(&reports).Error; err != nil {
		log.Error("Failed to fetch service reports", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch service reports"})
	}

	log.Info("Service reports listed", zap.Int64("total", total), zap.Int("page", params.Page))

	return c.JSON(http.StatusOK, newPaginated(total, params, reports))
}

// loadReportForUser fetches a report with all relations, enforcing that
// non-admin callers only reach their own reports.
func loadReportForUser(c echo.Context, reportID uuid.UUID) (*model.ServiceReport, error) {
	db := database.GetDB()
	defer prometheus.TrackDBOperation("query")(time.Now())

	query := db.
		Preload("User").Preload("ServiceType").
		Preload("Machine").Preload("Machine.MachineType").
		Preload("Parts").Preload("Parts.Machine").
		Preload("Files").
		Where("id = ?", reportID)
	if !isAdmin(c) {
		userID, ok := currentUserID(c)
		if !ok {
			return nil, gorm.ErrRecordNotFound
		}
		query = query.Where("user_id = ?", userID)
	}

	var report model.ServiceReport
	if err := query.First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// GetServiceReportDetail returns one report with parts, attachments and
// presigned download URLs.
func GetServiceReportDetail(c echo.Context) error {
	log := logger.FromContext(c)

	reportID, err := uuid.Parse(c.Param("report_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid report id"})
	}

	report, err := loadReportForUser(c, reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Service report not found"})
		}
		log.Error("Failed to fetch service report", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch service report"})
	}

	fileURLs := make([]echo.Map, 0, len(report.Files))
	if client := storage.GetClient(); client != nil {
		for _, f := range report.Files {
			url, err := client.PresignedURL(c.Request().Context(), f.FileKey)
			if err != nil {
				log.Warn("Failed to presign attachment URL", zap.String("key", f.FileKey), zap.Error(err))
				url = client.ObjectURL(f.FileKey)
			}
			fileURLs = append(fileURLs, echo.Map{"id": f.ID, "url": url})
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":        true,
		"service_report": report,
		"file_urls":      fileURLs,
	})
}

// ExportServiceReportPDF renders the report as a printable PDF.
func ExportServiceReportPDF(c echo.Context) error {
	log := logger.FromContext(c)

	reportID, err := uuid.Parse(c.Param("report_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid report id"})
	}

	report, err := loadReportForUser(c, reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Service report not found"})
		}
		log.Error("Failed to fetch service report", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to export service report"})
	}

	data := pdfgen.ReportData{
		ReportID:  report.ID.String(),
		CreatedAt: report.CreatedAt,
	}
	if report.ServiceType != nil {
		data.ServiceTypeName = report.ServiceType.ServiceType
	}
	if report.Machine != nil {
		data.ModelNo = report.Machine.ModelNo
	}
	if report.Problem != nil {
		data.Problem = *report.Problem
	}
	if report.Solution != nil {
		data.Solution = *report.Solution
	}
	if report.ServicePersonName != nil {
		data.ServicePersonName = *report.ServicePersonName
	}

	// Customer details come from the sold unit when the report has one.
	if report.SoldMachineID != nil {
		var sold model.SoldMachine
		if err := database.GetDB().First(&sold, "id = ?", *report.SoldMachineID).Error; err == nil {
			if sold.SerialNo != nil {
				data.SerialNo = *sold.SerialNo
			}
			if sold.CustomerName != nil {
				data.CustomerName = *sold.CustomerName
			}
			if sold.CustomerAddress != nil {
				data.CustomerAddress = *sold.CustomerAddress
			}
			if sold.CustomerContact != nil {
				data.CustomerContact = *sold.CustomerContact
			}
			if sold.CustomerEmail != nil {
				data.CustomerEmail = *sold.CustomerEmail
			}
		}
	}

	pdfBytes, err := pdfgen.Render(data)
	if err != nil {
		log.Error("Failed to render service report PDF", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to export service report"})
	}

	prometheus.PDFExportCounter.Inc()
	log.Info("Service report exported", zap.String("report_id", reportID.String()))

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="service_report_%s.pdf"`, reportID))
	return c.Blob(http.StatusOK, "application/pdf", pdfBytes)
}
