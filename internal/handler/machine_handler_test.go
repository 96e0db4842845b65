package handler

import (
	"net/http"
	"net/url"
	"testing"

	"vacuumvp-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPumpsFiltersByType(t *testing.T) {
	db := setupTest(t)
	admin := createTestUser(t, db, "admin", "admin@example.com")
	createTestMachine(t, db, "pump", "RZ-6")
	createTestMachine(t, db, "part", "Diaphragm Kit")

	c, rec := newJSONContext(t, http.MethodGet, "/machines/pumps", nil)
	actAs(c, admin)
	require.NoError(t, ListPumps(c))
	requireStatus(t, rec, http.StatusOK)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["total"])
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "RZ-6", items[0].(map[string]interface{})["model_no"])
}

func TestListPumpsSearchBySoldSerial(t *testing.T) {
	db := setupTest(t)
	admin := createTestUser(t, db, "admin", "admin@example.com")
	pump := createTestMachine(t, db, "pump", "MD-4C")
	createTestMachine(t, db, "pump", "RZ-2.5")

	serial := "SN-2023-0042"
	customer := "Acme Labs"
	sold := model.SoldMachine{MachineID: pump.ID, SerialNo: &serial, CustomerName: &customer}
	require.NoError(t, db.Create(&sold).Error)

	c, rec := newJSONContext(t, http.MethodGet, "/machines/pumps?search=2023-0042", nil)
	actAs(c, admin)
	require.NoError(t, ListPumps(c))
	requireStatus(t, rec, http.StatusOK)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["total"])
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, "MD-4C", item["model_no"])
	require.NotNil(t, item["sold_info"], "sale details should be embedded")
}

func TestListPumpsPagination(t *testing.T) {
	db := setupTest(t)
	admin := createTestUser(t, db, "admin", "admin@example.com")
	for i := 0; i < 15; i++ {
		createTestMachine(t, db, "pump", "PUMP")
	}

	c, rec := newJSONContext(t, http.MethodGet, "/machines/pumps?page=2&limit=10", nil)
	actAs(c, admin)
	require.NoError(t, ListPumps(c))
	requireStatus(t, rec, http.StatusOK)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(15), body["total"])
	assert.Equal(t, float64(2), body["page"])
	assert.Equal(t, false, body["has_next"])
	assert.Equal(t, true, body["has_previous"])
	assert.Len(t, body["items"], 5)
}

func TestCreateMachine(t *testing.T) {
	db := setupTest(t)
	admin := createTestUser(t, db, "admin", "admin@example.com")

	form := url.Values{}
	form.Set("model_no", "RZ-9")
	form.Set("part_no", "20698132")
	form.Set("type", "pump")

	c, rec := newFormContext(t, http.MethodPost, "/machines", form)
	actAs(c, admin)
	require.NoError(t, CreateMachine(c))
	requireStatus(t, rec, http.StatusCreated)

	var created model.Machine
	require.NoError(t, db.Preload("MachineType").Where("model_no = ?", "RZ-9").First(&created).Error)
	require.NotNil(t, created.PartNo)
	assert.Equal(t, "20698132", *created.PartNo)
	require.NotNil(t, created.MachineType)
	assert.Equal(t, "pump", created.MachineType.Type)
}

func TestCreateMachineMissingModelNo(t *testing.T) {
	db := setupTest(t)
	admin := createTestUser(t, db, "admin", "admin@example.com")

	form := url.Values{}
	form.Set("type", "pump")

	c, rec := newFormContext(t, http.MethodPost, "/machines", form)
	actAs(c, admin)
	require.NoError(t, CreateMachine(c))
	requireStatus(t, rec, http.StatusBadRequest)
}

func TestCreateMachineUnknownType(t *testing.T) {
	db := setupTest(t)
	admin := createTestUser(t, db, "admin", "admin@example.com")

	form := url.Values{}
	form.Set("model_no", "RZ-9")
	form.Set("type", "compressor")

	c, rec := newFormContext(t, http.MethodPost, "/machines", form)
	actAs(c, admin)
	require.NoError(t, CreateMachine(c))
	requireStatus(t, rec, http.StatusBadRequest)
}
