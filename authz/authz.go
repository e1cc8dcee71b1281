// Package authz is the authorization core: for every entity type it decides
// whether an actor may read or write a given object, and builds the matching
// role-scoped queries so collection listings can never disagree with the
// object-level decision.
//
// Rules are strategy maps keyed by role. A role with no entry is denied,
// so every predicate is total and fails closed.
package authz

import (
	"github.com/E-ugine/apartment-mgmt-system-backend/models"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// Access classifies an operation for permission purposes.
type Access int

const (
	Read Access = iota
	Write
)

type propertyRule func(actor *models.User, p *models.Property, access Access) bool
type unitRule func(actor *models.User, u *models.Unit, access Access) bool
type paymentRule func(actor *models.User, p *models.Payment, access Access) bool
type noticeRule func(actor *models.User, n *models.Notice, recipientIDs []uint, access Access) bool

func hasCaretaker(caretakers []models.User, id uint) bool {
	return slices.ContainsFunc(caretakers, func(u models.User) bool { return u.ID == id })
}

// Property rules. Expects p.Caretakers preloaded.
var propertyRules = map[string]propertyRule{
	models.RoleLandlord: func(actor *models.User, p *models.Property, _ Access) bool {
		return p.LandlordID == actor.ID
	},
	models.RoleCaretaker: func(actor *models.User, p *models.Property, _ Access) bool {
		return hasCaretaker(p.Caretakers, actor.ID)
	},
}

// Unit rules. Expects u.Property and u.Property.Caretakers preloaded.
var unitRules = map[string]unitRule{
	models.RoleLandlord: func(actor *models.User, u *models.Unit, _ Access) bool {
		return u.Property.LandlordID == actor.ID
	},
	models.RoleCaretaker: func(actor *models.User, u *models.Unit, _ Access) bool {
		return hasCaretaker(u.Property.Caretakers, actor.ID)
	},
	models.RoleTenant: func(actor *models.User, u *models.Unit, access Access) bool {
		if access != Read {
			return false
		}
		return u.TenantID != nil && *u.TenantID == actor.ID
	},
}

// Payment rules. Expects p.Unit.Property.Caretakers preloaded.
var paymentRules = map[string]paymentRule{
	models.RoleLandlord: func(actor *models.User, p *models.Payment, _ Access) bool {
		return p.Unit.Property.LandlordID == actor.ID
	},
	models.RoleCaretaker: func(actor *models.User, p *models.Payment, _ Access) bool {
		return hasCaretaker(p.Unit.Property.Caretakers, actor.ID)
	},
	models.RoleTenant: func(actor *models.User, p *models.Payment, access Access) bool {
		return access == Read && p.TenantID == actor.ID
	},
}

// Notice rules. Expects targets preloaded (TargetProperty with Caretakers,
// TargetUnit with Property and its Caretakers, TargetUser with
// AssignedUnit.Property). recipientIDs is the resolved recipient set,
// consulted when the actor can only be a recipient, not a manager.
var noticeRules = map[string]noticeRule{
	models.RoleTenant: func(actor *models.User, n *models.Notice, recipientIDs []uint, access Access) bool {
		return access == Read && slices.Contains(recipientIDs, actor.ID)
	},
	models.RoleLandlord: func(actor *models.User, n *models.Notice, _ []uint, _ Access) bool {
		if n.CreatedByID == actor.ID {
			return true
		}
		switch n.AudienceType {
		case models.AudienceProperty:
			return n.TargetProperty != nil && n.TargetProperty.LandlordID == actor.ID
		case models.AudienceUnit:
			return n.TargetUnit != nil && n.TargetUnit.Property.LandlordID == actor.ID
		case models.AudienceIndividual:
			// target user must be housed in one of the landlord's units
			return n.TargetUser != nil && n.TargetUser.AssignedUnit != nil &&
				n.TargetUser.AssignedUnit.Property.LandlordID == actor.ID
		}
		return false
	},
	models.RoleCaretaker: func(actor *models.User, n *models.Notice, recipientIDs []uint, access Access) bool {
		if n.CreatedByID == actor.ID {
			return true
		}
		switch n.AudienceType {
		case models.AudienceProperty:
			return n.TargetProperty != nil && hasCaretaker(n.TargetProperty.Caretakers, actor.ID)
		case models.AudienceUnit:
			return n.TargetUnit != nil && hasCaretaker(n.TargetUnit.Property.Caretakers, actor.ID)
		case models.AudienceCaretakers, models.AudienceCustom:
			// caretakers can be the audience too, read only
			return access == Read && slices.Contains(recipientIDs, actor.ID)
		}
		return false
	},
}

func CanAccessProperty(actor *models.User, p *models.Property, access Access) bool {
	if actor == nil || p == nil || !actor.Active() {
		return false
	}
	rule, ok := propertyRules[actor.Role]
	if !ok {
		return false
	}
	return rule(actor, p, access)
}

func CanAccessUnit(actor *models.User, u *models.Unit, access Access) bool {
	if actor == nil || u == nil || !actor.Active() {
		return false
	}
	rule, ok := unitRules[actor.Role]
	if !ok {
		return false
	}
	return rule(actor, u, access)
}

func CanAccessPayment(actor *models.User, p *models.Payment, access Access) bool {
	if actor == nil || p == nil || !actor.Active() {
		return false
	}
	rule, ok := paymentRules[actor.Role]
	if !ok {
		return false
	}
	return rule(actor, p, access)
}

func CanAccessNotice(actor *models.User, n *models.Notice, recipientIDs []uint, access Access) bool {
	if actor == nil || n == nil || !actor.Active() {
		return false
	}
	rule, ok := noticeRules[actor.Role]
	if !ok {
		return false
	}
	return rule(actor, n, recipientIDs, access)
}

// none is the empty scope: listings for roles with no rule return nothing.
func none(db *gorm.DB) *gorm.DB {
	return db.Where("1 = 0")
}
