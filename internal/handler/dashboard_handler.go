package handler

import (
	"net/http"
	"time"

	"vacuumvp-service/internal/model"
	"vacuumvp-service/pkg/database"
	"vacuumvp-service/pkg/logger"
	"vacuumvp-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// GetDashboardStatistics returns the headline counters: distributers,
// machines sold, catalog size and this month's service reports.
func GetDashboardStatistics(c echo.Context) error {
	log := logger.FromContext(c)
	db := database.GetDB()
	defer prometheus.TrackDBOperation("query")(time.Now())

	var totalDistributers int64
	if err := db.Model(&model.User{}).
		Joins("JOIN role ON role.id = users.role_id").
		Where("role.role_name = ?", "distributer").
		Count(&totalDistributers).Error; err != nil {
		log.Error("Failed to count distributers", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch statistics"})
	}

	var machinesSold int64
	if err := db.Model(&model.SoldMachine{}).Count(&machinesSold).Error; err != nil {
		log.Error("Failed to count sold machines", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch statistics"})
	}

	var totalMachines int64
	if err := db.Model(&model.Machine{}).Count(&totalMachines).Error; err != nil {
		log.Error("Failed to count machines", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch statistics"})
	}

	availableMachines := totalMachines - machinesSold
	if availableMachines < 0 {
		availableMachines = 0
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var monthlyReports int64
	if err := db.Model(&model.ServiceReport{}).
		Where("created_at >= ?", monthStart).
		Count(&monthlyReports).Error; err != nil {
		log.Error("Failed to count monthly reports", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch statistics"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"statistics": echo.Map{
			"total_distributers":      totalDistributers,
			"machines_sold":           machinesSold,
			"total_machines":          totalMachines,
			"available_machines":      availableMachines,
			"monthly_service_reports": monthlyReports,
		},
	})
}

type serviceTypeStat struct {
	ServiceType string `json:"service_type"`
	Count       int64  `json:"count"`
}

// GetServiceTypeStatistics returns the report count per service type,
// including types with zero reports.
func GetServiceTypeStatistics(c echo.Context) error {
	log := logger.FromContext(c)
	defer prometheus.TrackDBOperation("query")(time.Now())

	var stats []serviceTypeStat
	err := database.GetDB().Model(&model.ServiceType{}).
		Select("service_types.service_type AS service_type, COUNT(service_report.id) AS count").
		Joins("LEFT JOIN service_report ON service_report.service_type_id = service_types.id").
		Group("service_types.id, service_types.service_type").
		Order("count DESC").
		Scan(&stats).Error
	if err != nil {
		log.Error("Failed to fetch service type statistics", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch statistics"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"statistics": stats,
	})
}

type recentActivity struct {
	ID                string    `json:"id"`
	ServiceType       string    `json:"service_type"`
	Problem           *string   `json:"problem"`
	ServicePersonName *string   `json:"service_person_name"`
	UserName          *string   `json:"user_name"`
	UserEmail         string    `json:"user_email"`
	CreatedAt         time.Time `json:"created_at"`
}

// GetRecentActivities lists recent service visits with the engineer and
// service type resolved. Admins see everything; distributers their own.
func GetRecentActivities(c echo.Context) error {
	log := logger.FromContext(c)
	params, order := parseListParams(c, reportSortColumns)

	db := database.GetDB()
	defer prometheus.TrackDBOperation("query")(time.Now())

	query := db.Model(&model.ServiceReport{}).
		Joins("JOIN service_types ON service_types.id = service_report.service_type_id").
		Joins("JOIN users ON users.id = service_report.user_id")

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
			"LOWER(users.name) LIKE LOWER(?) OR LOWER(users.email) LIKE LOWER(?) OR LOWER(service_types.service_type) LIKE LOWER(?)",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Error("Failed to count activities", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch activities"})
	}

	var activities []recentActivity
	if err := query.
		Select(`service_report.id AS id,
			service_types.service_type AS service_type,
			service_report.problem AS problem,
			service_report.service_person_name AS service_person_name,
			users.name AS user_name,
			users.email AS user_email,
			service_report.created_at AS created_at`).
		Order(order).
		Offset((params.Page - 1) * params.Limit).
		Limit(params.Limit).
		Scan(&activities).Error; err != nil {
		log.Error("Failed to fetch activities", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch activities"})
	}

	return c.JSON(http.StatusOK, newPaginated(total, params, activities))
}

type partUsageStat struct {
	PartNo       *string `json:"part_no"`
	ModelNo      string  `json:"model_no"`
	ServiceCount int64   `json:"service_count"`
	TotalUsed    int64   `json:"total_used"`
}

// GetPartNumberStatistics returns consumption per spare part across all
// service reports, most used first.
func GetPartNumberStatistics(c echo.Context) error {
	log := logger.FromContext(c)
	defer prometheus.TrackDBOperation("query")(time.Now())

	var stats []partUsageStat
	err := database.GetDB().Model(&model.ServiceReportPart{}).
		Select(`machines.part_no AS part_no,
			machines.model_no AS model_no,
			COUNT(service_report_parts.id) AS service_count,
			SUM(service_report_parts.quantity) AS total_used`).
		Joins("JOIN machines ON machines.id = service_report_parts.machine_id").
		Group("machines.id, machines.part_no, machines.model_no").
		Order("total_used DESC").
		Scan(&stats).Error
	if err != nil {
		log.Error("Failed to fetch part statistics", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch statistics"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"statistics": stats,
	})
}

type customerMachineStat struct {
	CustomerName *string `json:"customer_name"`
	MachineCount int64   `json:"machine_count"`
}

// GetCustomerMachineStatistics returns how many units each customer owns.
func GetCustomerMachineStatistics(c echo.Context) error {
	log := logger.FromContext(c)
	defer prometheus.TrackDBOperation("query")(time.Now())

	var stats []customerMachineStat
	err := database.GetDB().Model(&model.SoldMachine{}).
		Select("customer_name AS customer_name, COUNT(id) AS machine_count").
		Where("customer_name IS NOT NULL").
		Group("customer_name").
		Order("machine_count DESC").
		Scan(&stats).Error
	if err != nil {
		log.Error("Failed to fetch customer statistics", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch statistics"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"statistics": stats,
	})
}
