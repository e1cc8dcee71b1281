package routes

import (
	"errors"

	"github.com/E-ugine/apartment-mgmt-system-backend/authz"
	"github.com/E-ugine/apartment-mgmt-system-backend/models"
	"github.com/E-ugine/apartment-mgmt-system-backend/storage"
	"github.com/E-ugine/apartment-mgmt-system-backend/utils"
	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateUnit adds a unit to a property the actor owns or manages.
func CreateUnit(ctx iris.Context) {
	actor := utils.Actor(ctx)
	if !actor.IsLandlord() && !actor.IsCaretaker() {
		utils.CreateForbidden(ctx)
		return
	}

	var input CreateUnitInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var property models.Property
	result := authz.PropertyScope(storage.DB, actor).
		Preload("Caretakers").
		Where("properties.id = ?", input.PropertyID).
		Limit(1).
		Find(&property)
	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if result.RowsAffected == 0 {
		utils.CreateError(iris.StatusForbidden, "Forbidden",
			"You can only create units in properties you own or manage", ctx)
		return
	}

	unit := models.Unit{
		PropertyID:  property.ID,
		UnitNumber:  input.UnitNumber,
		Bedrooms:    input.Bedrooms,
		Bathrooms:   input.Bathrooms,
		RentAmount:  input.RentAmount,
		Status:      input.Status,
		Description: input.Description,
	}
	if unit.Status == "" {
		unit.Status = models.UnitAvailable
	}

	if err := storage.DB.Create(&unit).Error; err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error",
			"Unit number already exists in this property", ctx)
		return
	}

	utils.Audit(ctx, "unit.create", "unit", unit.ID, nil, unit)
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(unit)
}

func ListUnits(ctx iris.Context) {
	actor := utils.Actor(ctx)

	var units []models.Unit
	if err := authz.UnitScope(storage.DB, actor).
		Preload("Property").
		Preload("Tenant").
		Order("units.property_id, units.unit_number").
		Find(&units).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(units)
}

// ListAvailableUnits narrows the actor's unit scope to vacant units.
func ListAvailableUnits(ctx iris.Context) {
	actor := utils.Actor(ctx)

	var units []models.Unit
	if err := authz.UnitScope(storage.DB, actor).
		Where("units.status = ?", models.UnitAvailable).
		Preload("Property").
		Order("units.property_id, units.unit_number").
		Find(&units).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(units)
}

func GetUnit(ctx iris.Context) {
	actor := utils.Actor(ctx)
	unit := findUnitInScope(ctx, actor)
	if unit == nil {
		return
	}
	ctx.JSON(unit)
}

func UpdateUnit(ctx iris.Context) {
	actor := utils.Actor(ctx)
	unit := findUnitInScope(ctx, actor)
	if unit == nil {
		return
	}

	if !authz.CanAccessUnit(actor, unit, authz.Write) {
		utils.CreateForbidden(ctx)
		return
	}

	var input UpdateUnitInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	before := *unit
	unit.UnitNumber = input.UnitNumber
	unit.Bedrooms = input.Bedrooms
	unit.Bathrooms = input.Bathrooms
	unit.RentAmount = input.RentAmount
	unit.Description = input.Description
	if input.Status != "" {
		unit.Status = input.Status
	}

	if err := storage.DB.Save(unit).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "unit.update", "unit", unit.ID, before, unit)
	ctx.StatusCode(iris.StatusNoContent)
}

func DeleteUnit(ctx iris.Context) {
	actor := utils.Actor(ctx)
	unit := findUnitInScope(ctx, actor)
	if unit == nil {
		return
	}

	if !authz.CanAccessUnit(actor, unit, authz.Write) {
		utils.CreateForbidden(ctx)
		return
	}

	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Unit{}, unit.ID).Error; err != nil {
			return err
		}
		p := models.Property{Model: gorm.Model{ID: unit.PropertyID}}
		return p.RefreshTotalUnits(tx)
	})
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "unit.delete", "unit", unit.ID, unit, nil)
	ctx.StatusCode(iris.StatusNoContent)
}

// AssignTenant puts a tenant into a unit. The unit row is locked for the
// duration of the transaction and the tenant's existing assignment is
// re-checked under the lock, so two concurrent assignments cannot give one
// tenant two units. Re-assigning the same tenant to the same unit succeeds
// as a no-op.
func AssignTenant(ctx iris.Context) {
	actor := utils.Actor(ctx)
	unit := findUnitInScope(ctx, actor)
	if unit == nil {
		return
	}

	if !authz.CanAccessUnit(actor, unit, authz.Write) {
		utils.CreateForbidden(ctx)
		return
	}

	var input AssignTenantInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var tenant models.User
	tenantExists := storage.DB.
		Where("id = ? AND role = ?", input.TenantID, models.RoleTenant).
		Limit(1).
		Find(&tenant)
	if tenantExists.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if tenantExists.RowsAffected == 0 {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Tenant not found", ctx)
		return
	}

	errAlreadyAssigned := errors.New("tenant already assigned to another unit")

	txErr := storage.DB.Transaction(func(tx *gorm.DB) error {
		var locked models.Unit
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&locked, unit.ID).Error; err != nil {
			return err
		}

		// Same tenant already in this unit: nothing to do
		if locked.TenantID != nil && *locked.TenantID == tenant.ID {
			return nil
		}

		var existing models.Unit
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ? AND id <> ?", tenant.ID, locked.ID).
			Limit(1).
			Find(&existing)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return errAlreadyAssigned
		}

		locked.TenantID = &tenant.ID
		return tx.Save(&locked).Error
	})

	if txErr != nil {
		if errors.Is(txErr, errAlreadyAssigned) {
			utils.CreateError(iris.StatusBadRequest, "Validation Error",
				"Tenant already assigned to another unit", ctx)
			return
		}
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "unit.assign_tenant", "unit", unit.ID, unit, iris.Map{"tenantID": tenant.ID})

	updated := findUnitInScope(ctx, actor)
	if updated == nil {
		return
	}
	ctx.JSON(updated)
}

func findUnitInScope(ctx iris.Context, actor *models.User) *models.Unit {
	id := ctx.Params().Get("id")

	var unit models.Unit
	result := authz.UnitScope(storage.DB, actor).
		Preload("Property").
		Preload("Property.Caretakers").
		Preload("Tenant").
		Where("units.id = ?", id).
		Limit(1).
		Find(&unit)

	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return nil
	}
	if result.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return nil
	}
	return &unit
}

type CreateUnitInput struct {
	PropertyID  uint    `json:"propertyID" validate:"required"`
	UnitNumber  string  `json:"unitNumber" validate:"required,max=20"`
	Bedrooms    int     `json:"bedrooms" validate:"omitempty,gte=0,lte=20"`
	Bathrooms   float32 `json:"bathrooms" validate:"omitempty,gte=0,lte=10"`
	RentAmount  float64 `json:"rentAmount" validate:"required,gt=0"`
	Status      string  `json:"status" validate:"omitempty,oneof=available occupied maintenance reserved"`
	Description string  `json:"description"`
}

type UpdateUnitInput struct {
	UnitNumber  string  `json:"unitNumber" validate:"required,max=20"`
	Bedrooms    int     `json:"bedrooms" validate:"omitempty,gte=0,lte=20"`
	Bathrooms   float32 `json:"bathrooms" validate:"omitempty,gte=0,lte=10"`
	RentAmount  float64 `json:"rentAmount" validate:"required,gt=0"`
	Status      string  `json:"status" validate:"omitempty,oneof=available occupied maintenance reserved"`
	Description string  `json:"description"`
}

type AssignTenantInput struct {
	TenantID uint `json:"tenantID" validate:"required"`
}
