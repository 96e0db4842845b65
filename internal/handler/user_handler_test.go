package handler

import (
	"net/http"
	"testing"

	"vacuumvp-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListDistributers(t *testing.T) {
	db := setupTest(t)
	admin := createTestUser(t, db, "admin", "admin@example.com")
	createTestUser(t, db, "distributer", "d1@example.com")
	createTestUser(t, db, "distributer", "d2@example.com")

	c, rec := newJSONContext(t, http.MethodGet, "/users/distributers", nil)
	actAs(c, admin)
	require.NoError(t, ListDistributers(c))
	requireStatus(t, rec, http.StatusOK)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, false, body["has_next"])
	assert.Len(t, body["items"], 2)
}

func TestListDistributersSearch(t *testing.T) {
	db := setupTest(t)
	admin := createTestUser(t, db, "admin", "admin@example.com")
	createTestUser(t, db, "distributer", "mumbai.sales@example.com")
	createTestUser(t, db, "distributer", "pune.sales@example.com")

	c, rec := newJSONContext(t, http.MethodGet, "/users/distributers?search=MUMBAI", nil)
	actAs(c, admin)
	require.NoError(t, ListDistributers(c))
	requireStatus(t, rec, http.StatusOK)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["total"])
}

func TestGetProfile(t *testing.T) {
	db := setupTest(t)
	user := createTestUser(t, db, "distributer", "me@example.com")

	c, rec := newJSONContext(t, http.MethodGet, "/users/profile", nil)
	actAs(c, user)
	require.NoError(t, GetProfile(c))
	requireStatus(t, rec, http.StatusOK)

	body := decodeBody(t, rec)
	profile := body["user"].(map[string]interface{})
	assert.Equal(t, "me@example.com", profile["email"])
	assert.NotContains(t, profile, "password")
}

func TestDeleteUserCascades(t *testing.T) {
	db := setupTest(t)
	admin := createTestUser(t, db, "admin", "admin@example.com")
	victim := createTestUser(t, db, "distributer", "victim@example.com")

	var serviceType model.ServiceType
	require.NoError(t, db.First(&serviceType).Error)

	machine := model.Machine{ModelNo: "MD-4C"}
	require.NoError(t, db.Create(&machine).Error)

	serial := "SN-DEL-1"
	sold := model.SoldMachine{MachineID: machine.ID, UserID: &victim.ID, SerialNo: &serial}
	require.NoError(t, db.Create(&sold).Error)

	report := model.ServiceReport{UserID: victim.ID, ServiceTypeID: serviceType.ID, MachineID: &machine.ID}
	require.NoError(t, db.Create(&report).Error)
	part := model.ServiceReportPart{ServiceReportID: report.ID, MachineID: machine.ID, Quantity: 2}
	require.NoError(t, db.Create(&part).Error)
	file := model.ServiceReportFile{ServiceReportID: report.ID, FileKey: "service-reports/x.jpg"}
	require.NoError(t, db.Create(&file).Error)

	c, rec := newJSONContext(t, http.MethodDelete, "/users/"+victim.ID.String(), nil)
	c.SetParamNames("user_id")
	c.SetParamValues(victim.ID.String())
	actAs(c, admin)
	require.NoError(t, DeleteUser(c))
	requireStatus(t, rec, http.StatusOK)

	var count int64
	db.Model(&model.User{}).Where("id = ?", victim.ID).Count(&count)
	assert.Zero(t, count)
	db.Model(&model.ServiceReport{}).Where("user_id = ?", victim.ID).Count(&count)
	assert.Zero(t, count)
	db.Model(&model.ServiceReportPart{}).Where("service_report_id = ?", report.ID).Count(&count)
	assert.Zero(t, count)
	db.Model(&model.ServiceReportFile{}).Where("service_report_id = ?", report.ID).Count(&count)
	assert.Zero(t, count)

	// The sold unit survives without a seller.
	var orphan model.SoldMachine
	require.NoError(t, db.First(&orphan, "id = ?", sold.ID).Error)
	assert.Nil(t, orphan.UserID)
}

func TestDeleteUserSelf(t *testing.T) {
	db := setupTest(t)
	admin := createTestUser(t, db, "admin", "admin@example.com")

	c, rec := newJSONContext(t, http.MethodDelete, "/users/"+admin.ID.String(), nil)
	c.SetParamNames("user_id")
	c.SetParamValues(admin.ID.String())
	actAs(c, admin)
	require.NoError(t, DeleteUser(c))
	requireStatus(t, rec, http.StatusBadRequest)
}

func TestDeleteUserNotFound(t *testing.T) {
	db := setupTest(t)
	admin := createTestUser(t, db, "admin", "admin@example.com")

	c, rec := newJSONContext(t, http.MethodDelete, "/users/00000000-0000-0000-0000-000000000001", nil)
	c.SetParamNames("user_id")
	c.SetParamValues("00000000-0000-0000-0000-000000000001")
	actAs(c, admin)
	require.NoError(t, DeleteUser(c))
	requireStatus(t, rec, http.StatusNotFound)
}
