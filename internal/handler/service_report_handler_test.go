package handler

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"vacuumvp-service/internal/model"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func lookupServiceType(t *testing.T, db *gorm.DB, name string) model.ServiceType {
	t.Helper()

	var serviceType model.ServiceType
	require.NoError(t, db.Where("service_type = ?", name).First(&serviceType).Error)
	return serviceType
}

func TestGetServiceTypes(t *testing.T) {
	db := setupTest(t)
	user := createTestUser(t, db, "distributer", "eng@example.com")

	c, rec := newJSONContext(t, http.MethodGet, "/service-reports/types", nil)
	actAs(c, user)
	require.NoError(t, GetServiceTypes(c))
	requireStatus(t, rec, http.StatusOK)

	body := decodeBody(t, rec)
	assert.Len(t, body["service_types"], 4)
}

func TestCreateCustomerRecord(t *testing.T) {
	db := setupTest(t)
	user := createTestUser(t, db, "distributer", "seller@example.com")
	pump := createTestMachine(t, db, "pump", "MD-4C")

	c, rec := newJSONContext(t, http.MethodPost, "/service-reports/customer", map[string]string{
		"machine_id":            pump.ID.String(),
		"serial_no":             "SN-2024-0001",
		"customer_name":         "Acme Labs",
		"customer_company":      "Acme Pvt. Ltd.",
		"date_of_manufacturing": "2023-11-02",
	})
	actAs(c, user)
	require.NoError(t, CreateCustomerRecord(c))
	requireStatus(t, rec, http.StatusCreated)

	var sold model.SoldMachine
	require.NoError(t, db.Where("serial_no = ?", "SN-2024-0001").First(&sold).Error)
	assert.Equal(t, pump.ID, sold.MachineID)
	require.NotNil(t, sold.UserID)
	assert.Equal(t, user.ID, *sold.UserID)
	require.NotNil(t, sold.DateOfManufacturing)
	assert.Equal(t, 2023, sold.DateOfManufacturing.Year())
}

func TestCreateCustomerRecordDuplicateSerial(t *testing.T) {
	db := setupTest(t)
	user := createTestUser(t, db, "distributer", "seller@example.com")
	pump := createTestMachine(t, db, "pump", "MD-4C")

	serial := "SN-DUP-1"
	require.NoError(t, db.Create(&model.SoldMachine{MachineID: pump.ID, SerialNo: &serial}).Error)

	c, rec := newJSONContext(t, http.MethodPost, "/service-reports/customer", map[string]string{
		"machine_id": pump.ID.String(),
		"serial_no":  serial,
	})
	actAs(c, user)
	require.NoError(t, CreateCustomerRecord(c))
	requireStatus(t, rec, http.StatusConflict)
}

func TestCreateCustomerRecordMachineNotFound(t *testing.T) {
	db := setupTest(t)
	user := createTestUser(t, db, "distributer", "seller@example.com")

	c, rec := newJSONContext(t, http.MethodPost, "/service-reports/customer", map[string]string{
		"machine_id": "00000000-0000-0000-0000-000000000009",
		"serial_no":  "SN-1",
	})
	actAs(c, user)
	require.NoError(t, CreateCustomerRecord(c))
	requireStatus(t, rec, http.StatusNotFound)
}

func TestGetMachineBySerial(t *testing.T) {
	db := setupTest(t)
	user := createTestUser(t, db, "distributer", "eng@example.com")
	pump := createTestMachine(t, db, "pump", "MD-4C")

	serial := "SN-FIND-1"
	customer := "Acme Labs"
	require.NoError(t, db.Create(&model.SoldMachine{
		MachineID:    pump.ID,
		SerialNo:     &serial,
		CustomerName: &customer,
	}).Error)

	c, rec := newJSONContext(t, http.MethodGet, "/service-reports/machine?serial_no=SN-FIND-1", nil)
	actAs(c, user)
	require.NoError(t, GetMachineBySerial(c))
	requireStatus(t, rec, http.StatusOK)

	body := decodeBody(t, rec)
	sold := body["sold_machine"].(map[string]interface{})
	assert.Equal(t, "Acme Labs", sold["customer_name"])
	machine := sold["machine"].(map[string]interface{})
	assert.Equal(t, "MD-4C", machine["model_no"])
}

func TestGetMachineBySerialNotFound(t *testing.T) {
	db := setupTest(t)
	user := createTestUser(t, db, "distributer", "eng@example.com")

	c, rec := newJSONContext(t, http.MethodGet, "/service-reports/machine?serial_no=NOPE", nil)
	actAs(c, user)
	require.NoError(t, GetMachineBySerial(c))
	requireStatus(t, rec, http.StatusNotFound)
}

func TestCreateServiceReportWithParts(t *testing.T) {
	db := setupTest(t)
	user := createTestUser(t, db, "distributer", "eng@example.com")
	pump := createTestMachine(t, db, "pump", "MD-4C")
	part := createTestMachine(t, db, "part", "Diaphragm Kit")
	paid := lookupServiceType(t, db, "Paid")

	form := url.Values{}
	form.Set("service_type_id", paid.ID.String())
	form.Set("machine_id", pump.ID.String())
	form.Set("problem", "Low vacuum at full speed")
	form.Set("solution", "Replaced diaphragms, cleaned heads")
	form.Set("service_person_name", "R. Iyer")
	form.Set("parts", `[{"machine_id":"`+part.ID.String()+`","quantity":2}]`)

	c, rec := newFormContext(t, http.MethodPost, "/service-reports", form)
	actAs(c, user)
	require.NoError(t, CreateServiceReport(c))
	requireStatus(t, rec, http.StatusCreated)

	var report model.ServiceReport
	require.NoError(t, db.Preload("Parts").Where("user_id = ?", user.ID).First(&report).Error)
	require.NotNil(t, report.MachineID)
	assert.Equal(t, pump.ID, *report.MachineID)
	require.Len(t, report.Parts, 1)
	assert.Equal(t, part.ID, report.Parts[0].MachineID)
	assert.Equal(t, 2, report.Parts[0].Quantity)
}

func TestCreateServiceReportFillsMachineFromSoldUnit(t *testing.T) {
	db := setupTest(t)
	user := createTestUser(t, db, "distributer", "eng@example.com")
	pump := createTestMachine(t, db, "pump", "MD-4C")
	paid := lookupServiceType(t, db, "Paid")

	serial := "SN-LINK-1"
	sold := model.SoldMachine{MachineID: pump.ID, SerialNo: &serial}
	require.NoError(t, db.Create(&sold).Error)

	form := url.Values{}
	form.Set("service_type_id", paid.ID.String())
	form.Set("sold_machine_id", sold.ID.String())

	c, rec := newFormContext(t, http.MethodPost, "/service-reports", form)
	actAs(c, user)
	require.NoError(t, CreateServiceReport(c))
	requireStatus(t, rec, http.StatusCreated)

	var report model.ServiceReport
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&report).Error)
	require.NotNil(t, report.SoldMachineID)
	assert.Equal(t, sold.ID, *report.SoldMachineID)
	require.NotNil(t, report.MachineID)
	assert.Equal(t, pump.ID, *report.MachineID)
}

func TestCreateServiceReportUnknownPart(t *testing.T) {
	db := setupTest(t)
	user := createTestUser(t, db, "distributer", "eng@example.com")
	paid := lookupServiceType(t, db, "Paid")

	form := url.Values{}
	form.Set("service_type_id", paid.ID.String())
	form.Set("parts", `[{"machine_id":"00000000-0000-0000-0000-000000000009","quantity":1}]`)

	c, rec := newFormContext(t, http.MethodPost, "/service-reports", form)
	actAs(c, user)
	require.NoError(t, CreateServiceReport(c))
	requireStatus(t, rec, http.StatusBadRequest)

	// The whole report must roll back with the bad part.
	var count int64
	db.Model(&model.ServiceReport{}).Count(&count)
	assert.Zero(t, count)
}

func TestListServiceReportsRoleScoped(t *testing.T) {
	db := setupTest(t)
	admin := createTestUser(t, db, "admin", "admin@example.com")
	engineer := createTestUser(t, db, "distributer", "eng@example.com")
	other := createTestUser(t, db, "distributer", "other@example.com")
	paid := lookupServiceType(t, db, "Paid")

	require.NoError(t, db.Create(&model.ServiceReport{UserID: engineer.ID, ServiceTypeID: paid.ID}).Error)
	require.NoError(t, db.Create(&model.ServiceReport{UserID: other.ID, ServiceTypeID: paid.ID}).Error)

	c, rec := newJSONContext(t, http.MethodGet, "/service-reports", nil)
	actAs(c, engineer)
	require.NoError(t, ListServiceReports(c))
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, float64(1), decodeBody(t, rec)["total"])

	c, rec = newJSONContext(t, http.MethodGet, "/service-reports", nil)
	actAs(c, admin)
	require.NoError(t, ListServiceReports(c))
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, float64(2), decodeBody(t, rec)["total"])
}

func TestGetServiceReportDetailScoped(t *testing.T) {
	db := setupTest(t)
	engineer := createTestUser(t, db, "distributer", "eng@example.com")
	other := createTestUser(t, db, "distributer", "other@example.com")
	paid := lookupServiceType(t, db, "Paid")

	report := model.ServiceReport{UserID: other.ID, ServiceTypeID: paid.ID}
	require.NoError(t, db.Create(&report).Error)

	c, rec := newJSONContext(t, http.MethodGet, "/service-reports/"+report.ID.String(), nil)
	c.SetParamNames("report_id")
	c.SetParamValues(report.ID.String())
	actAs(c, engineer)
	require.NoError(t, GetServiceReportDetail(c))
	requireStatus(t, rec, http.StatusNotFound)

	c, rec = newJSONContext(t, http.MethodGet, "/service-reports/"+report.ID.String(), nil)
	c.SetParamNames("report_id")
	c.SetParamValues(report.ID.String())
	actAs(c, other)
	require.NoError(t, GetServiceReportDetail(c))
	requireStatus(t, rec, http.StatusOK)
}

func TestExportServiceReportPDF(t *testing.T) {
	db := setupTest(t)
	engineer := createTestUser(t, db, "distributer", "eng@example.com")
	pump := createTestMachine(t, db, "pump", "MD-4C")
	paid := lookupServiceType(t, db, "Paid")

	problem := "Oil mist at exhaust"
	report := model.ServiceReport{
		UserID:        engineer.ID,
		ServiceTypeID: paid.ID,
		MachineID:     &pump.ID,
		Problem:       &problem,
	}
	require.NoError(t, db.Create(&report).Error)

	c, rec := newJSONContext(t, http.MethodGet, "/service-reports/"+report.ID.String()+"/pdf", nil)
	c.SetParamNames("report_id")
	c.SetParamValues(report.ID.String())
	actAs(c, engineer)
	require.NoError(t, ExportServiceReportPDF(c))
	requireStatus(t, rec, http.StatusOK)

	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"), "response should be a PDF document")
}
