package authz

import (
	"testing"
	"time"

	"github.com/E-ugine/apartment-mgmt-system-backend/models"
	"github.com/E-ugine/apartment-mgmt-system-backend/services"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// fixture is a small two-landlord world: each landlord owns one property
// with one occupied unit, landlord one's property also has a caretaker.
type fixture struct {
	landlord1, landlord2 models.User
	caretaker            models.User
	tenant1, tenant2     models.User
	agent                models.User
	inactive             models.User
	prop1, prop2         models.Property
	unit1, unit2         models.Unit
	payment1, payment2   models.Payment
}

func buildFixture(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	yes, no := true, false
	mkUser := func(email, role string, isActive bool) models.User {
		act := &yes
		if !isActive {
			act = &no
		}
		u := models.User{FirstName: "F", LastName: "L", Email: email, Password: "x", Role: role, IsActive: act}
		if err := db.Create(&u).Error; err != nil {
			t.Fatalf("seed user %s: %v", email, err)
		}
		return u
	}

	f := fixture{
		landlord1: mkUser("l1@example.com", models.RoleLandlord, true),
		landlord2: mkUser("l2@example.com", models.RoleLandlord, true),
		caretaker: mkUser("c1@example.com", models.RoleCaretaker, true),
		tenant1:   mkUser("t1@example.com", models.RoleTenant, true),
		tenant2:   mkUser("t2@example.com", models.RoleTenant, true),
		agent:     mkUser("a1@example.com", models.RoleAgent, true),
		inactive:  mkUser("x1@example.com", models.RoleLandlord, false),
	}

	f.prop1 = models.Property{Name: "One", LandlordID: f.landlord1.ID, Caretakers: []models.User{f.caretaker}}
	f.prop2 = models.Property{Name: "Two", LandlordID: f.landlord2.ID}
	for _, p := range []*models.Property{&f.prop1, &f.prop2} {
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("seed property: %v", err)
		}
	}

	f.unit1 = models.Unit{PropertyID: f.prop1.ID, UnitNumber: "A1", RentAmount: 1000, TenantID: &f.tenant1.ID}
	f.unit2 = models.Unit{PropertyID: f.prop2.ID, UnitNumber: "B1", RentAmount: 1200, TenantID: &f.tenant2.ID}
	for _, u := range []*models.Unit{&f.unit1, &f.unit2} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("seed unit: %v", err)
		}
	}

	month, year := 3, 2026
	f.payment1 = models.Payment{TenantID: f.tenant1.ID, UnitID: f.unit1.ID, Amount: 1000,
		PaymentType: models.PaymentTypeRent, Status: models.PaymentCompleted, PaymentMonth: &month, PaymentYear: &year}
	f.payment2 = models.Payment{TenantID: f.tenant2.ID, UnitID: f.unit2.ID, Amount: 1200,
		PaymentType: models.PaymentTypeRent, Status: models.PaymentCompleted, PaymentMonth: &month, PaymentYear: &year}
	for _, p := range []*models.Payment{&f.payment1, &f.payment2} {
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("seed payment: %v", err)
		}
	}

	// reload with the associations the predicates expect
	db.Preload("Caretakers").First(&f.prop1, f.prop1.ID)
	db.Preload("Caretakers").First(&f.prop2, f.prop2.ID)
	db.Preload("Property.Caretakers").First(&f.unit1, f.unit1.ID)
	db.Preload("Property.Caretakers").First(&f.unit2, f.unit2.ID)
	db.Preload("Unit.Property.Caretakers").First(&f.payment1, f.payment1.ID)
	db.Preload("Unit.Property.Caretakers").First(&f.payment2, f.payment2.ID)
	return f
}

func TestPropertyPredicates(t *testing.T) {
	db := setupTestDB(t)
	f := buildFixture(t, db)

	assert.True(t, CanAccessProperty(&f.landlord1, &f.prop1, Write))
	assert.False(t, CanAccessProperty(&f.landlord1, &f.prop2, Read))
	assert.True(t, CanAccessProperty(&f.caretaker, &f.prop1, Write))
	assert.False(t, CanAccessProperty(&f.caretaker, &f.prop2, Read))
	assert.False(t, CanAccessProperty(&f.tenant1, &f.prop1, Read))
	assert.False(t, CanAccessProperty(&f.agent, &f.prop1, Read))
	assert.False(t, CanAccessProperty(&f.inactive, &f.prop1, Read))
	assert.False(t, CanAccessProperty(nil, &f.prop1, Read))
}

func TestUnitPredicates(t *testing.T) {
	db := setupTestDB(t)
	f := buildFixture(t, db)

	assert.True(t, CanAccessUnit(&f.landlord1, &f.unit1, Write))
	assert.False(t, CanAccessUnit(&f.landlord1, &f.unit2, Read))
	assert.True(t, CanAccessUnit(&f.caretaker, &f.unit1, Write))
	assert.True(t, CanAccessUnit(&f.tenant1, &f.unit1, Read))
	assert.False(t, CanAccessUnit(&f.tenant1, &f.unit1, Write))
	assert.False(t, CanAccessUnit(&f.tenant1, &f.unit2, Read))
	assert.False(t, CanAccessUnit(&f.agent, &f.unit1, Read))
}

func TestPaymentPredicates(t *testing.T) {
	db := setupTestDB(t)
	f := buildFixture(t, db)

	assert.True(t, CanAccessPayment(&f.landlord1, &f.payment1, Read))
	assert.False(t, CanAccessPayment(&f.landlord1, &f.payment2, Read))
	assert.True(t, CanAccessPayment(&f.caretaker, &f.payment1, Write))
	assert.True(t, CanAccessPayment(&f.tenant1, &f.payment1, Read))
	assert.False(t, CanAccessPayment(&f.tenant1, &f.payment1, Write))
	assert.False(t, CanAccessPayment(&f.tenant2, &f.payment1, Read))
	assert.False(t, CanAccessPayment(&f.agent, &f.payment1, Read))
}

func TestNoticePredicates(t *testing.T) {
	db := setupTestDB(t)
	f := buildFixture(t, db)

	notice := models.Notice{
		Title: "Water", Message: "m",
		AudienceType: models.AudienceUnit,
		TargetUnitID: &f.unit1.ID,
		CreatedByID:  f.landlord1.ID,
	}
	assert.NoError(t, db.Create(&notice).Error)
	db.Preload("TargetUnit.Property.Caretakers").First(&notice, notice.ID)

	recipients := []uint{f.tenant1.ID}
	assert.True(t, CanAccessNotice(&f.landlord1, &notice, nil, Write))
	assert.True(t, CanAccessNotice(&f.caretaker, &notice, nil, Write))
	assert.False(t, CanAccessNotice(&f.landlord2, &notice, nil, Read))
	assert.True(t, CanAccessNotice(&f.tenant1, &notice, recipients, Read))
	assert.False(t, CanAccessNotice(&f.tenant1, &notice, recipients, Write))
	assert.False(t, CanAccessNotice(&f.tenant2, &notice, recipients, Read))
	assert.False(t, CanAccessNotice(&f.agent, &notice, recipients, Read))
}

// Unknown roles must be denied everywhere, not just where a rule happens
// to exist.
func TestUnknownRoleFailsClosed(t *testing.T) {
	db := setupTestDB(t)
	f := buildFixture(t, db)

	yes := true
	stranger := models.User{Model: gorm.Model{ID: 999}, Role: "superuser", IsActive: &yes}
	assert.False(t, CanAccessProperty(&stranger, &f.prop1, Read))
	assert.False(t, CanAccessUnit(&stranger, &f.unit1, Read))
	assert.False(t, CanAccessPayment(&stranger, &f.payment1, Read))
	assert.False(t, CanAccessNotice(&stranger, &models.Notice{}, nil, Read))

	var props []models.Property
	assert.NoError(t, PropertyScope(db, &stranger).Find(&props).Error)
	assert.Empty(t, props)
}

// sweepScopesAgainstPredicates asserts, for every actor, that each row a
// scope returns passes the matching object predicate and each row outside
// the scope fails it. Rows are reloaded from the database on every call so
// the sweep can run again after mutations. Notice scopes additionally apply
// the publish/expiry window the predicates do not know about, so the
// out-of-scope leg only considers notices visible at now.
func sweepScopesAgainstPredicates(t *testing.T, db *gorm.DB, actors []*models.User, now time.Time) {
	t.Helper()

	var allProps []models.Property
	assert.NoError(t, db.Preload("Caretakers").Find(&allProps).Error)
	var allUnits []models.Unit
	assert.NoError(t, db.Preload("Property.Caretakers").Find(&allUnits).Error)
	var allPayments []models.Payment
	assert.NoError(t, db.Preload("Unit.Property.Caretakers").Find(&allPayments).Error)
	var allNotices []models.Notice
	assert.NoError(t, db.
		Preload("TargetProperty.Caretakers").
		Preload("TargetUnit.Property.Caretakers").
		Preload("TargetUser.AssignedUnit.Property").
		Preload("CustomRecipients").
		Find(&allNotices).Error)

	resolver := services.NewAudienceResolver(db)
	recipients := map[uint][]uint{}
	for i := range allNotices {
		users, err := resolver.Recipients(&allNotices[i])
		assert.NoError(t, err)
		ids := make([]uint, 0, len(users))
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		recipients[allNotices[i].ID] = ids
	}

	for _, actor := range actors {
		var props []models.Property
		assert.NoError(t, PropertyScope(db, actor).Preload("Caretakers").Find(&props).Error)
		scoped := map[uint]bool{}
		for i := range props {
			scoped[props[i].ID] = true
			assert.True(t, CanAccessProperty(actor, &props[i], Read),
				"role %s: scoped property %d rejected by predicate", actor.Role, props[i].ID)
		}
		for i := range allProps {
			if !scoped[allProps[i].ID] {
				assert.False(t, CanAccessProperty(actor, &allProps[i], Read),
					"role %s: out-of-scope property %d accepted by predicate", actor.Role, allProps[i].ID)
			}
		}

		var units []models.Unit
		assert.NoError(t, UnitScope(db, actor).Preload("Property.Caretakers").Find(&units).Error)
		unitScoped := map[uint]bool{}
		for i := range units {
			unitScoped[units[i].ID] = true
			assert.True(t, CanAccessUnit(actor, &units[i], Read),
				"role %s: scoped unit %d rejected by predicate", actor.Role, units[i].ID)
		}
		for i := range allUnits {
			if !unitScoped[allUnits[i].ID] {
				assert.False(t, CanAccessUnit(actor, &allUnits[i], Read),
					"role %s: out-of-scope unit %d accepted by predicate", actor.Role, allUnits[i].ID)
			}
		}

		var payments []models.Payment
		assert.NoError(t, PaymentScope(db, actor).Preload("Unit.Property.Caretakers").Find(&payments).Error)
		payScoped := map[uint]bool{}
		for i := range payments {
			payScoped[payments[i].ID] = true
			assert.True(t, CanAccessPayment(actor, &payments[i], Read),
				"role %s: scoped payment %d rejected by predicate", actor.Role, payments[i].ID)
		}
		for i := range allPayments {
			if !payScoped[allPayments[i].ID] {
				assert.False(t, CanAccessPayment(actor, &allPayments[i], Read),
					"role %s: out-of-scope payment %d accepted by predicate", actor.Role, allPayments[i].ID)
			}
		}

		var notices []models.Notice
		assert.NoError(t, NoticeScope(db, actor, now).
			Preload("TargetProperty.Caretakers").
			Preload("TargetUnit.Property.Caretakers").
			Preload("TargetUser.AssignedUnit.Property").
			Find(&notices).Error)
		noticeScoped := map[uint]bool{}
		for i := range notices {
			noticeScoped[notices[i].ID] = true
			assert.True(t, CanAccessNotice(actor, &notices[i], recipients[notices[i].ID], Read),
				"role %s: scoped notice %d rejected by predicate", actor.Role, notices[i].ID)
		}
		for i := range allNotices {
			n := &allNotices[i]
			if !noticeScoped[n.ID] && n.ActiveAt(now) {
				assert.False(t, CanAccessNotice(actor, n, recipients[n.ID], Read),
					"role %s: out-of-scope notice %d accepted by predicate", actor.Role, n.ID)
			}
		}
	}
}

func TestScopesAgreeWithPredicates(t *testing.T) {
	db := setupTestDB(t)
	f := buildFixture(t, db)
	now := time.Now()
	past := now.Add(-time.Hour)

	for _, n := range []*models.Notice{
		{Title: "n1", Message: "m", AudienceType: models.AudienceUnit,
			TargetUnitID: &f.unit1.ID, CreatedByID: f.landlord1.ID, PublishDate: past},
		{Title: "n2", Message: "m", AudienceType: models.AudienceUnit,
			TargetUnitID: &f.unit2.ID, CreatedByID: f.landlord2.ID, PublishDate: past},
	} {
		assert.NoError(t, db.Create(n).Error)
	}

	actors := []*models.User{&f.landlord1, &f.landlord2, &f.caretaker, &f.tenant1, &f.tenant2, &f.agent, &f.inactive}

	sweepScopesAgainstPredicates(t, db, actors, now)

	// archiving a property must take its rows out of every scope, the same
	// way the predicates stop accepting them once the property is gone
	assert.NoError(t, db.Delete(&models.Property{}, f.prop1.ID).Error)
	sweepScopesAgainstPredicates(t, db, actors, now)
}

func TestTenantNoticeScopeHonorsVisibilityWindow(t *testing.T) {
	db := setupTestDB(t)
	f := buildFixture(t, db)
	now := time.Now()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	visible := models.Notice{Title: "v", Message: "m", AudienceType: models.AudienceAllTenants,
		CreatedByID: f.landlord1.ID, PublishDate: past}
	expired := models.Notice{Title: "e", Message: "m", AudienceType: models.AudienceAllTenants,
		CreatedByID: f.landlord1.ID, PublishDate: past, ExpiryDate: &past}
	scheduled := models.Notice{Title: "s", Message: "m", AudienceType: models.AudienceAllTenants,
		CreatedByID: f.landlord1.ID, PublishDate: future}
	no := false
	draft := models.Notice{Title: "d", Message: "m", AudienceType: models.AudienceAllTenants,
		CreatedByID: f.landlord1.ID, PublishDate: past}
	for _, n := range []*models.Notice{&visible, &expired, &scheduled, &draft} {
		assert.NoError(t, db.Create(n).Error)
	}
	assert.NoError(t, db.Model(&draft).Update("is_published", no).Error)

	var seen []models.Notice
	assert.NoError(t, NoticeScope(db, &f.tenant1, now).Find(&seen).Error)
	assert.Len(t, seen, 1)
	assert.Equal(t, visible.ID, seen[0].ID)
}

func TestNoticeScopeIsolatesLandlords(t *testing.T) {
	db := setupTestDB(t)
	f := buildFixture(t, db)
	now := time.Now()

	mine := models.Notice{Title: "mine", Message: "m", AudienceType: models.AudienceUnit,
		TargetUnitID: &f.unit1.ID, CreatedByID: f.landlord1.ID}
	theirs := models.Notice{Title: "theirs", Message: "m", AudienceType: models.AudienceUnit,
		TargetUnitID: &f.unit2.ID, CreatedByID: f.landlord2.ID}
	assert.NoError(t, db.Create(&mine).Error)
	assert.NoError(t, db.Create(&theirs).Error)

	var seen []models.Notice
	assert.NoError(t, NoticeScope(db, &f.landlord1, now).Find(&seen).Error)
	assert.Len(t, seen, 1)
	assert.Equal(t, mine.ID, seen[0].ID)

	var caretakerSees []models.Notice
	assert.NoError(t, NoticeScope(db, &f.caretaker, now).Find(&caretakerSees).Error)
	assert.Len(t, caretakerSees, 1)
	assert.Equal(t, mine.ID, caretakerSees[0].ID)
}
