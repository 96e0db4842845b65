package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"vacuumvp-service/internal/model"
	"vacuumvp-service/pkg/config"
	"vacuumvp-service/pkg/database"
	"vacuumvp-service/pkg/jwtutil"
	"vacuumvp-service/pkg/storage"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "password123"

// setupTest points the handlers at a fresh in-memory database with the
// full migration chain applied and no object storage configured.
func setupTest(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	database.SetDB(db)
	storage.SetClient(nil)
	jwtutil.Initialize(&config.JWTConfig{
		SigningKey:     "handler-test-key",
		ExpirationTime: time.Hour,
	})

	return db
}

// createTestUser inserts a user carrying the named role.
func createTestUser(t *testing.T, db *gorm.DB, roleName, email string) model.User {
	t.Helper()

	var role model.Role
	require.NoError(t, db.Where("role_name = ?", roleName).First(&role).Error)

	hashed, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	name := strings.Split(email, "@")[0]
	user := model.User{
		UserID:   uuid.New(),
		RoleID:   &role.ID,
		Name:     &name,
		Email:    email,
		Password: string(hashed),
		IsActive: true,
	}
	require.NoError(t, db.Create(&user).Error)
	user.Role = &role
	return user
}

// createTestMachine inserts a catalog machine of the named type.
func createTestMachine(t *testing.T, db *gorm.DB, typeName, modelNo string) model.Machine {
	t.Helper()

	var machineType model.Type
	require.NoError(t, db.Where("type = ?", typeName).First(&machineType).Error)

	machine := model.Machine{ModelNo: modelNo, TypeID: &machineType.ID}
	require.NoError(t, db.Create(&machine).Error)
	machine.MachineType = &machineType
	return machine
}

// newJSONContext builds an echo context carrying a JSON body.
func newJSONContext(t *testing.T, method, target string, payload interface{}) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = strings.NewReader(string(raw))
	}

	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

// newFormContext builds an echo context carrying a form-encoded body.
func newFormContext(t *testing.T, method, target string, form url.Values) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

// actAs stores the claims the auth middleware would have set for user.
func actAs(c echo.Context, user model.User) {
	c.Set("user_id", user.ID.String())
	c.Set("email", user.Email)
	role := ""
	if user.Role != nil {
		role = user.Role.RoleName
	}
	c.Set("user_role", role)
}

// decodeBody unmarshals the recorded JSON response.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rec.Code, "unexpected status, body: %s", rec.Body.String())
}
