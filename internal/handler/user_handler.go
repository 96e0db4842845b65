package handler

import (
	"errors"
	"net/http"
	"time"

	"vacuumvp-service/internal/model"
	"vacuumvp-service/pkg/database"
	"vacuumvp-service/pkg/logger"
	"vacuumvp-service/prometheus"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var userSortColumns = map[string]string{
	"created_at": "users.created_at",
	"updated_at": "users.updated_at",
	"name":       "users.name",
	"email":      "users.email",
}

// ListAdmins returns all admin accounts. Admin only.
func ListAdmins(c echo.Context) error {
	return listUsersByRole(c, "admin")
}

// ListDistributers returns all distributer accounts. Admin only.
func ListDistributers(c echo.Context) error {
	return listUsersByRole(c, "distributer")
}

func listUsersByRole(c echo.Context, roleName string) error {
	log := logger.FromContext(c)
	params, order := parseListParams(c, userSortColumns)

	db := database.GetDB()
	defer prometheus.TrackDBOperation("query")(time.Now())

	query := db.Model(&model.User{}).
		Joins("JOIN role ON role.id = users.role_id").
		Where("role.role_name = ?", roleName)

	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		query = query.Where(
			"LOWER(users.name) LIKE LOWER(?) OR LOWER(users.email) LIKE LOWER(?) OR users.phone_number LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Error("Failed to count users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch users"})
	}

	var users []model.User
	if err := query.Preload("Role").
		Order(order).
		Offset((params.Page - 1) * params.Limit).
		Limit(params.Limit).
		Find(&users).Error; err != nil {
		log.Error("Failed to fetch users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch users"})
	}

	log.Info("Users listed",
		zap.String("role", roleName),
		zap.Int64("total", total),
		zap.Int("page", params.Page))

	return c.JSON(http.StatusOK, newPaginated(total, params, users))
}

// GetProfile returns the authenticated user's account with its role.
func GetProfile(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid token"})
	}

	db := database.GetDB()
	defer prometheus.TrackDBOperation("query")(time.Now())

	var user model.User
	if err := db.Preload("Role").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
		}
		log.Error("Failed to fetch profile", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch profile"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    user,
	})
}

// DeleteUser removes an account and everything hanging off it: the user's
// service reports (with parts and file records), and the link from any
// machines they sold. Admin only.
func DeleteUser(c echo.Context) error {
	log := logger.FromContext(c)

	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user id"})
	}

	if self, ok := currentUserID(c); ok && self == userID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Cannot delete your own account"})
	}

	db := database.GetDB()
	defer prometheus.TrackDBOperation("delete")(time.Now())

	var user model.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
		}
		log.Error("Failed to fetch user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete user"})
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var reportIDs []uuid.UUID
		if err := tx.Model(&model.ServiceReport{}).
			Where("user_id = ?", userID).
			Pluck("id", &reportIDs).Error; err != nil {
			return err
		}

		if len(reportIDs) > 0 {
			if err := tx.Where("service_report_id IN ?", reportIDs).
				Delete(&model.ServiceReportPart{}).Error; err != nil {
				return err
			}
			if err := tx.Where("service_report_id IN ?", reportIDs).
				Delete(&model.ServiceReportFile{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", reportIDs).
				Delete(&model.ServiceReport{}).Error; err != nil {
				return err
			}
		}

		// Sold machines survive; they just lose the seller link.
		if err := tx.Model(&model.SoldMachine{}).
			Where("user_id = ?", userID).
			Update("user_id", nil).Error; err != nil {
			return err
		}

		return tx.Delete(&user).Error
	})
	if err != nil {
		log.Error("Failed to delete user", zap.String("user_id", userID.String()), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete user"})
	}

	log.Info("User deleted", zap.String("user_id", userID.String()), zap.String("email", user.Email))

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "User deleted successfully",
	})
}
