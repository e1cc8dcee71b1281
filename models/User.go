package models

import (
	"gorm.io/gorm"
)

const (
	RoleLandlord  = "landlord"
	RoleCaretaker = "caretaker"
	RoleTenant    = "tenant"
	RoleAgent     = "agent"
)

type User struct {
	gorm.Model
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email" gorm:"uniqueIndex"`
	Phone      string `json:"phone"`
	Password   string `json:"-"`
	Role       string `json:"role" gorm:"type:varchar(20);default:tenant;index"` // landlord, caretaker, tenant, agent
	IsActive   *bool  `json:"isActive" gorm:"default:true"`
	IsVerified *bool  `json:"isVerified" gorm:"default:false"`

	Properties        []Property `json:"properties,omitempty" gorm:"foreignKey:LandlordID;references:ID"`
	ManagedProperties []Property `json:"managedProperties,omitempty" gorm:"many2many:property_caretakers"`
	AssignedUnit      *Unit      `json:"assignedUnit,omitempty" gorm:"foreignKey:TenantID;references:ID"`
}

func (u *User) IsLandlord() bool  { return u.Role == RoleLandlord }
func (u *User) IsCaretaker() bool { return u.Role == RoleCaretaker }
func (u *User) IsTenant() bool    { return u.Role == RoleTenant }
func (u *User) IsAgent() bool     { return u.Role == RoleAgent }

// Active treats a missing flag as active so rows created before the column
// existed keep behaving.
func (u *User) Active() bool {
	return u.IsActive == nil || *u.IsActive
}

func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
