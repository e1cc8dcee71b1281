package routes

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/E-ugine/apartment-mgmt-system-backend/models"
	"github.com/E-ugine/apartment-mgmt-system-backend/storage"
	"github.com/E-ugine/apartment-mgmt-system-backend/utils"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB points the package-level DB at a fresh in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{}, &models.Property{}, &models.Unit{},
		&models.Payment{}, &models.Notice{}, &models.NoticeReadStatus{},
		&models.AuditLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	storage.DB = db
	return db
}

// buildTestApp wires the resource routes exactly like the production router,
// backed by the JWT verifier and actor loading.
func buildTestApp(t *testing.T) *iris.Application {
	t.Helper()
	os.Setenv("ACCESS_TOKEN_SECRET", "testsecret")

	app := iris.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})
	authed := []iris.Handler{accessTokenVerifierMiddleware, utils.ActorMiddleware}

	auth := app.Party("/api/auth")
	{
		auth.Post("/register", accessTokenVerifierMiddleware, utils.ActorMiddleware, Register)
		auth.Post("/login", Login)
	}

	property := app.Party("/api/properties", authed...)
	{
		property.Get("/", ListProperties)
		property.Post("/", CreateProperty)
		property.Get("/{id:uint}", GetProperty)
		property.Patch("/{id:uint}", UpdateProperty)
		property.Delete("/{id:uint}", DeleteProperty)
	}

	unit := app.Party("/api/units", authed...)
	{
		unit.Get("/", ListUnits)
		unit.Post("/", CreateUnit)
		unit.Get("/available", ListAvailableUnits)
		unit.Get("/{id:uint}", GetUnit)
		unit.Patch("/{id:uint}", UpdateUnit)
		unit.Delete("/{id:uint}", DeleteUnit)
		unit.Post("/{id:uint}/assign-tenant", AssignTenant)
	}

	payment := app.Party("/api/payments", authed...)
	{
		payment.Get("/", ListPayments)
		payment.Post("/", CreatePayment)
		payment.Get("/summary", utils.RequireRoles(models.RoleLandlord, models.RoleCaretaker), PaymentSummary)
		payment.Get("/monthly-report", utils.RequireRoles(models.RoleLandlord), MonthlyReport)
		payment.Get("/{id:uint}", GetPayment)
	}

	notice := app.Party("/api/notices", authed...)
	{
		notice.Get("/", ListNotices)
		notice.Post("/", CreateNotice)
		notice.Get("/feed", utils.RequireRoles(models.RoleTenant), NoticeFeed)
		notice.Get("/stats", NoticeStats)
		notice.Get("/{id:uint}", GetNotice)
		notice.Patch("/{id:uint}", UpdateNotice)
		notice.Delete("/{id:uint}", DeleteNotice)
		notice.Post("/{id:uint}/read", MarkNoticeAsRead)
		notice.Get("/{id:uint}/read-report", NoticeReadReport)
	}

	if err := app.Build(); err != nil {
		t.Fatalf("failed to build app: %v", err)
	}
	return app
}

func signTestToken(t *testing.T, user models.User) string {
	t.Helper()
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), utils.AccessTokenLifetime)
	token, err := signer.Sign(utils.AccessToken{ID: user.ID, Role: user.Role})
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return string(token)
}

func doJSON(t *testing.T, app *iris.Application, user models.User, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, user))
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	return resp
}

func decodeJSON(t *testing.T, resp *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(resp.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %q: %v", resp.Body.String(), err)
	}
}

func createTestUser(t *testing.T, db *gorm.DB, email, role string) models.User {
	t.Helper()
	yes := true
	u := models.User{
		FirstName: "Test", LastName: "User",
		Email: email, Password: "x", Role: role, IsActive: &yes,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("failed to create %s: %v", role, err)
	}
	return u
}

func createTestProperty(t *testing.T, db *gorm.DB, landlord models.User, caretakers ...models.User) models.Property {
	t.Helper()
	p := models.Property{Name: "Hilltop", LandlordID: landlord.ID, Caretakers: caretakers}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("failed to create property: %v", err)
	}
	return p
}

func createTestUnit(t *testing.T, db *gorm.DB, prop models.Property, number string, tenant *models.User) models.Unit {
	t.Helper()
	u := models.Unit{PropertyID: prop.ID, UnitNumber: number, RentAmount: 1000}
	if tenant != nil {
		u.TenantID = &tenant.ID
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("failed to create unit: %v", err)
	}
	return u
}

func assertStatus(t *testing.T, resp *httptest.ResponseRecorder, want int) {
	t.Helper()
	if resp.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.Code, resp.Body.String())
	}
}
