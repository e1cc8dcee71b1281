package services

import (
	"github.com/E-ugine/apartment-mgmt-system-backend/models"
	"gorm.io/gorm"
)

// AudienceResolver maps a notice's targeting declaration to the concrete set
// of recipient users. Recipients are computed on demand from current
// registry state and never cached: unit, tenant and caretaker relations can
// shift between calls.
type AudienceResolver struct {
	db *gorm.DB
}

func NewAudienceResolver(db *gorm.DB) *AudienceResolver {
	return &AudienceResolver{db: db}
}

// Recipients resolves the users who should see the notice. A unit notice
// whose unit currently has no tenant resolves to an empty set, which is
// valid. Inactive users are excluded from every audience.
func (r *AudienceResolver) Recipients(notice *models.Notice) ([]models.User, error) {
	var users []models.User

	switch notice.AudienceType {
	case models.AudienceAllTenants:
		err := r.db.Where("role = ? AND is_active = ?", models.RoleTenant, true).
			Order("id").Find(&users).Error
		return users, err

	case models.AudienceProperty:
		if notice.TargetPropertyID == nil {
			return nil, nil
		}
		err := r.db.
			Joins("JOIN units ON units.tenant_id = users.id AND units.deleted_at IS NULL").
			Where("units.property_id = ?", *notice.TargetPropertyID).
			Where("users.role = ? AND users.is_active = ?", models.RoleTenant, true).
			Order("users.id").Find(&users).Error
		return users, err

	case models.AudienceUnit:
		if notice.TargetUnitID == nil {
			return nil, nil
		}
		var unit models.Unit
		result := r.db.Limit(1).Find(&unit, *notice.TargetUnitID)
		if result.Error != nil || result.RowsAffected == 0 || unit.TenantID == nil {
			return nil, result.Error
		}
		err := r.db.Where("id = ? AND is_active = ?", *unit.TenantID, true).Find(&users).Error
		return users, err

	case models.AudienceIndividual:
		if notice.TargetUserID == nil {
			return nil, nil
		}
		err := r.db.Where("id = ?", *notice.TargetUserID).Find(&users).Error
		return users, err

	case models.AudienceCaretakers:
		err := r.db.Where("role = ? AND is_active = ?", models.RoleCaretaker, true).
			Order("id").Find(&users).Error
		return users, err

	case models.AudienceCustom:
		err := r.db.
			Joins("JOIN notice_custom_recipients ncr ON ncr.user_id = users.id").
			Where("ncr.notice_id = ?", notice.ID).
			Where("users.is_active = ?", true).
			Order("users.id").Find(&users).Error
		return users, err
	}

	return nil, nil
}

func (r *AudienceResolver) RecipientIDs(notice *models.Notice) ([]uint, error) {
	users, err := r.Recipients(notice)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

// RecipientCount is a derived quantity, never persisted.
func (r *AudienceResolver) RecipientCount(notice *models.Notice) (int, error) {
	ids, err := r.RecipientIDs(notice)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (r *AudienceResolver) IsRecipient(notice *models.Notice, userID uint) (bool, error) {
	ids, err := r.RecipientIDs(notice)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}
