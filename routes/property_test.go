package routes

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/E-ugine/apartment-mgmt-system-backend/models"
	"github.com/stretchr/testify/assert"
)

func TestCreatePropertyValidatesCaretakers(t *testing.T) {
	db := setupTestDB(t)
	app := buildTestApp(t)

	landlord := createTestUser(t, db, "l@example.com", models.RoleLandlord)
	caretaker := createTestUser(t, db, "c@example.com", models.RoleCaretaker)
	tenant := createTestUser(t, db, "t@example.com", models.RoleTenant)

	// only landlords create properties
	resp := doJSON(t, app, caretaker, http.MethodPost, "/api/properties", CreatePropertyInput{
		Name: "Hillside", Address: "1 Main St",
	})
	assertStatus(t, resp, http.StatusForbidden)

	// a tenant id in the caretaker list is rejected
	resp = doJSON(t, app, landlord, http.MethodPost, "/api/properties", CreatePropertyInput{
		Name: "Hillside", Address: "1 Main St", CaretakerIDs: []uint{caretaker.ID, tenant.ID},
	})
	assertStatus(t, resp, http.StatusBadRequest)

	resp = doJSON(t, app, landlord, http.MethodPost, "/api/properties", CreatePropertyInput{
		Name: "Hillside", Address: "1 Main St", CaretakerIDs: []uint{caretaker.ID},
	})
	assertStatus(t, resp, http.StatusCreated)

	var created models.Property
	decodeJSON(t, resp, &created)
	assert.Equal(t, landlord.ID, created.LandlordID)

	// the assigned caretaker now sees the property in their list
	resp = doJSON(t, app, caretaker, http.MethodGet, "/api/properties", nil)
	assertStatus(t, resp, http.StatusOK)
	var listed []models.Property
	decodeJSON(t, resp, &listed)
	assert.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}

func TestPropertyListingsAreDisjointPerLandlord(t *testing.T) {
	db := setupTestDB(t)
	app := buildTestApp(t)

	l1 := createTestUser(t, db, "l1@example.com", models.RoleLandlord)
	l2 := createTestUser(t, db, "l2@example.com", models.RoleLandlord)
	p1 := createTestProperty(t, db, l1)
	createTestProperty(t, db, l2)

	var listed []models.Property
	resp := doJSON(t, app, l1, http.MethodGet, "/api/properties", nil)
	assertStatus(t, resp, http.StatusOK)
	decodeJSON(t, resp, &listed)
	assert.Len(t, listed, 1)
	assert.Equal(t, p1.ID, listed[0].ID)

	// cross-landlord retrieval is a 404
	resp = doJSON(t, app, l2, http.MethodGet, fmt.Sprintf("/api/properties/%d", p1.ID), nil)
	assertStatus(t, resp, http.StatusNotFound)
}

func TestDeletePropertyIsOwnerOnly(t *testing.T) {
	db := setupTestDB(t)
	app := buildTestApp(t)

	landlord := createTestUser(t, db, "l@example.com", models.RoleLandlord)
	caretaker := createTestUser(t, db, "c@example.com", models.RoleCaretaker)
	prop := createTestProperty(t, db, landlord, caretaker)

	path := fmt.Sprintf("/api/properties/%d", prop.ID)

	// caretakers manage but never archive
	resp := doJSON(t, app, caretaker, http.MethodDelete, path, nil)
	assertStatus(t, resp, http.StatusForbidden)

	resp = doJSON(t, app, landlord, http.MethodDelete, path, nil)
	assertStatus(t, resp, http.StatusNoContent)

	// soft deleted rows disappear from listings
	resp = doJSON(t, app, landlord, http.MethodGet, path, nil)
	assertStatus(t, resp, http.StatusNotFound)
}
