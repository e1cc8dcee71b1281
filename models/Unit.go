package models

import (
	"gorm.io/gorm"
)

const (
	UnitAvailable   = "available"
	UnitOccupied    = "occupied"
	UnitMaintenance = "maintenance"
	UnitReserved    = "reserved"
)

type Unit struct {
	gorm.Model
	PropertyID  uint    `json:"propertyID" gorm:"index;uniqueIndex:idx_property_unit_number"`
	UnitNumber  string  `json:"unitNumber" gorm:"size:20;uniqueIndex:idx_property_unit_number"`
	TenantID    *uint   `json:"tenantID" gorm:"uniqueIndex"` // at most one unit per tenant
	Bedrooms    int     `json:"bedrooms" gorm:"default:1"`
	Bathrooms   float32 `json:"bathrooms" gorm:"default:1"`
	RentAmount  float64 `json:"rentAmount"`
	Status      string  `json:"status" gorm:"type:varchar(20);default:available;index"` // available, occupied, maintenance, reserved
	Description string  `json:"description" gorm:"type:text"`

	Property Property `json:"property,omitempty" gorm:"foreignKey:PropertyID;references:ID"`
	Tenant   *User    `json:"tenant,omitempty" gorm:"foreignKey:TenantID;references:ID"`
}

// BeforeSave keeps status and tenant assignment in sync: a tenant makes the
// unit occupied, losing the tenant makes an occupied unit available again.
func (u *Unit) BeforeSave(tx *gorm.DB) error {
	if u.TenantID != nil {
		u.Status = UnitOccupied
	} else if u.Status == UnitOccupied {
		u.Status = UnitAvailable
	}
	return nil
}

// AfterSave keeps the parent property's derived unit counter current.
func (u *Unit) AfterSave(tx *gorm.DB) error {
	p := Property{Model: gorm.Model{ID: u.PropertyID}}
	return p.RefreshTotalUnits(tx)
}

func (u *Unit) AfterDelete(tx *gorm.DB) error {
	p := Property{Model: gorm.Model{ID: u.PropertyID}}
	return p.RefreshTotalUnits(tx)
}
