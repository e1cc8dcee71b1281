package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

const (
	AudienceAllTenants = "all_tenants"
	AudienceProperty   = "property"
	AudienceUnit       = "unit"
	AudienceIndividual = "individual"
	AudienceCaretakers = "caretakers"
	AudienceCustom     = "custom"
)

type Notice struct {
	gorm.Model
	Title    string `json:"title" gorm:"size:200"`
	Message  string `json:"message" gorm:"type:text"`
	Priority string `json:"priority" gorm:"type:varchar(10);default:normal;index"`

	AudienceType     string `json:"audienceType" gorm:"type:varchar(20);default:all_tenants;index"`
	TargetPropertyID *uint  `json:"targetPropertyID"`
	TargetUnitID     *uint  `json:"targetUnitID"`
	TargetUserID     *uint  `json:"targetUserID"`
	CustomRecipients []User `json:"customRecipients,omitempty" gorm:"many2many:notice_custom_recipients"`

	IsPublished            bool       `json:"isPublished" gorm:"default:true;index"`
	PublishDate            time.Time  `json:"publishDate"`
	ExpiryDate             *time.Time `json:"expiryDate"`
	RequiresAcknowledgment bool       `json:"requiresAcknowledgment" gorm:"default:false"`
	CreatedByID            uint       `json:"createdByID" gorm:"index"`

	TargetProperty *Property `json:"targetProperty,omitempty" gorm:"foreignKey:TargetPropertyID;references:ID"`
	TargetUnit     *Unit     `json:"targetUnit,omitempty" gorm:"foreignKey:TargetUnitID;references:ID"`
	TargetUser     *User     `json:"targetUser,omitempty" gorm:"foreignKey:TargetUserID;references:ID"`
	CreatedBy      User      `json:"createdBy,omitempty" gorm:"foreignKey:CreatedByID;references:ID"`
}

// BeforeSave enforces audience targeting: a missing required target is a
// validation failure, never an empty audience.
func (n *Notice) BeforeSave(tx *gorm.DB) error {
	switch n.AudienceType {
	case AudienceAllTenants, AudienceCaretakers:
	case AudienceProperty:
		if n.TargetPropertyID == nil {
			return errors.New("targetProperty is required when audienceType is 'property'")
		}
	case AudienceUnit:
		if n.TargetUnitID == nil {
			return errors.New("targetUnit is required when audienceType is 'unit'")
		}
	case AudienceIndividual:
		if n.TargetUserID == nil {
			return errors.New("targetUser is required when audienceType is 'individual'")
		}
	case AudienceCustom:
		// recipients live in a join table; creation paths check the input
		// list before saving, this guards direct model writes
		if n.ID == 0 && len(n.CustomRecipients) == 0 {
			return errors.New("customRecipients is required when audienceType is 'custom'")
		}
	default:
		return errors.New("unknown audience type")
	}
	if n.PublishDate.IsZero() {
		n.PublishDate = time.Now()
	}
	return nil
}

// ActiveAt reports whether the notice is visible at the given time.
func (n *Notice) ActiveAt(now time.Time) bool {
	if !n.IsPublished {
		return false
	}
	if n.PublishDate.After(now) {
		return false
	}
	if n.ExpiryDate != nil && n.ExpiryDate.Before(now) {
		return false
	}
	return true
}
