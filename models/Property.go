package models

import (
	"errors"

	"gorm.io/gorm"
)

type Property struct {
	gorm.Model
	Name        string `json:"name"`
	Address     string `json:"address" gorm:"type:text;default:'Not specified'"`
	Description string `json:"description" gorm:"type:text"`
	LandlordID  uint   `json:"landlordID" gorm:"index"`
	TotalUnits  int    `json:"totalUnits" gorm:"default:0"`

	Landlord   User   `json:"landlord,omitempty" gorm:"foreignKey:LandlordID;references:ID"`
	Caretakers []User `json:"caretakers,omitempty" gorm:"many2many:property_caretakers"`
	Units      []Unit `json:"units,omitempty"`
}

// BeforeSave rejects properties whose owner is not a landlord account.
func (p *Property) BeforeSave(tx *gorm.DB) error {
	if p.LandlordID == 0 {
		return errors.New("property requires a landlord")
	}
	var owner User
	if err := tx.Select("id, role").First(&owner, p.LandlordID).Error; err != nil {
		return errors.New("property landlord not found")
	}
	if owner.Role != RoleLandlord {
		return errors.New("property owner must have the landlord role")
	}
	return nil
}

// RefreshTotalUnits recomputes the derived unit counter from actual rows.
func (p *Property) RefreshTotalUnits(tx *gorm.DB) error {
	var count int64
	if err := tx.Model(&Unit{}).Where("property_id = ?", p.ID).Count(&count).Error; err != nil {
		return err
	}
	return tx.Model(&Property{}).Where("id = ?", p.ID).
		UpdateColumn("total_units", count).Error
}
