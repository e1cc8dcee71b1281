package authz

import (
	"time"

	"github.com/E-ugine/apartment-mgmt-system-backend/models"
	"gorm.io/gorm"
)

// Scopes build the role-filtered queries behind every collection listing.
// They are kept in the same package as the object predicates so the two
// stay consistent: a row a scope returns must pass the predicate and a row
// the predicate accepts must be reachable through the scope. Resource
// lookups go through the same scopes, which is what makes "exists but
// forbidden" indistinguishable from "not found". Archiving a property takes
// its units, payments and notices out of scope along with it.

// PropertyScope: landlords see what they own, caretakers what they manage.
func PropertyScope(db *gorm.DB, actor *models.User) *gorm.DB {
	if actor == nil || !actor.Active() {
		return none(db.Model(&models.Property{}))
	}
	switch actor.Role {
	case models.RoleLandlord:
		return db.Model(&models.Property{}).Where("properties.landlord_id = ?", actor.ID)
	case models.RoleCaretaker:
		return db.Model(&models.Property{}).
			Joins("JOIN property_caretakers pc ON pc.property_id = properties.id").
			Where("pc.user_id = ?", actor.ID)
	}
	return none(db.Model(&models.Property{}))
}

// UnitScope: tenants additionally see the single unit assigned to them.
func UnitScope(db *gorm.DB, actor *models.User) *gorm.DB {
	if actor == nil || !actor.Active() {
		return none(db.Model(&models.Unit{}))
	}
	switch actor.Role {
	case models.RoleLandlord:
		return db.Model(&models.Unit{}).
			Joins("JOIN properties ON properties.id = units.property_id").
			Where("properties.landlord_id = ? AND properties.deleted_at IS NULL", actor.ID)
	case models.RoleCaretaker:
		return db.Model(&models.Unit{}).
			Joins("JOIN properties ON properties.id = units.property_id").
			Joins("JOIN property_caretakers pc ON pc.property_id = units.property_id").
			Where("pc.user_id = ? AND properties.deleted_at IS NULL", actor.ID)
	case models.RoleTenant:
		return db.Model(&models.Unit{}).Where("units.tenant_id = ?", actor.ID)
	}
	return none(db.Model(&models.Unit{}))
}

// PaymentScope mirrors UnitScope one level down the ownership chain.
func PaymentScope(db *gorm.DB, actor *models.User) *gorm.DB {
	if actor == nil || !actor.Active() {
		return none(db.Model(&models.Payment{}))
	}
	switch actor.Role {
	case models.RoleLandlord:
		return db.Model(&models.Payment{}).
			Joins("JOIN units ON units.id = payments.unit_id").
			Joins("JOIN properties ON properties.id = units.property_id").
			Where("properties.landlord_id = ? AND properties.deleted_at IS NULL", actor.ID)
	case models.RoleCaretaker:
		return db.Model(&models.Payment{}).
			Joins("JOIN units ON units.id = payments.unit_id").
			Joins("JOIN properties ON properties.id = units.property_id").
			Joins("JOIN property_caretakers pc ON pc.property_id = units.property_id").
			Where("pc.user_id = ? AND properties.deleted_at IS NULL", actor.ID)
	case models.RoleTenant:
		return db.Model(&models.Payment{}).Where("payments.tenant_id = ?", actor.ID)
	}
	return none(db.Model(&models.Payment{}))
}

// NoticeScope: tenants see published, currently-visible notices whose
// targeting reaches them; landlords and caretakers see notices they created
// or notices aimed into properties they own or manage.
func NoticeScope(db *gorm.DB, actor *models.User, now time.Time) *gorm.DB {
	if actor == nil || !actor.Active() {
		return none(db.Model(&models.Notice{}))
	}
	switch actor.Role {
	case models.RoleTenant:
		return db.Model(&models.Notice{}).
			Where(`(
				notices.audience_type = 'all_tenants'
				OR (notices.audience_type = 'property' AND notices.target_property_id IN (
					SELECT property_id FROM units WHERE tenant_id = ? AND deleted_at IS NULL))
				OR (notices.audience_type = 'unit' AND notices.target_unit_id IN (
					SELECT id FROM units WHERE tenant_id = ? AND deleted_at IS NULL))
				OR (notices.audience_type = 'individual' AND notices.target_user_id = ?)
				OR (notices.audience_type = 'custom' AND notices.id IN (
					SELECT notice_id FROM notice_custom_recipients WHERE user_id = ?))
			)`, actor.ID, actor.ID, actor.ID, actor.ID).
			Where("notices.is_published = ?", true).
			Where("notices.publish_date <= ?", now).
			Where("notices.expiry_date IS NULL OR notices.expiry_date > ?", now)
	case models.RoleLandlord:
		return db.Model(&models.Notice{}).
			Where(`(
				notices.created_by_id = ?
				OR (notices.audience_type = 'property' AND notices.target_property_id IN (
					SELECT id FROM properties WHERE landlord_id = ? AND deleted_at IS NULL))
				OR (notices.audience_type = 'unit' AND notices.target_unit_id IN (
					SELECT units.id FROM units JOIN properties ON properties.id = units.property_id
					WHERE properties.landlord_id = ? AND properties.deleted_at IS NULL AND units.deleted_at IS NULL))
				OR (notices.audience_type = 'individual' AND notices.target_user_id IN (
					SELECT units.tenant_id FROM units JOIN properties ON properties.id = units.property_id
					WHERE properties.landlord_id = ? AND properties.deleted_at IS NULL
						AND units.tenant_id IS NOT NULL AND units.deleted_at IS NULL))
			)`, actor.ID, actor.ID, actor.ID, actor.ID)
	case models.RoleCaretaker:
		// Caretakers see their managed slice plus notices where they are
		// themselves the audience; the recipient branches respect the same
		// visibility window tenants get.
		return db.Model(&models.Notice{}).
			Where(`(
				notices.created_by_id = ?
				OR (notices.audience_type = 'property' AND notices.target_property_id IN (
					SELECT pc.property_id FROM property_caretakers pc
					JOIN properties ON properties.id = pc.property_id
					WHERE pc.user_id = ? AND properties.deleted_at IS NULL))
				OR (notices.audience_type = 'unit' AND notices.target_unit_id IN (
					SELECT units.id FROM units
					JOIN properties ON properties.id = units.property_id
					JOIN property_caretakers pc ON pc.property_id = units.property_id
					WHERE pc.user_id = ? AND properties.deleted_at IS NULL AND units.deleted_at IS NULL))
				OR (notices.audience_type IN ('caretakers', 'custom')
					AND (notices.audience_type = 'caretakers' OR notices.id IN (
						SELECT notice_id FROM notice_custom_recipients WHERE user_id = ?))
					AND notices.is_published = ?
					AND notices.publish_date <= ?
					AND (notices.expiry_date IS NULL OR notices.expiry_date > ?))
			)`, actor.ID, actor.ID, actor.ID, actor.ID, true, now, now)
	}
	return none(db.Model(&models.Notice{}))
}
