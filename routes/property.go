package routes

import (
	"github.com/E-ugine/apartment-mgmt-system-backend/authz"
	"github.com/E-ugine/apartment-mgmt-system-backend/models"
	"github.com/E-ugine/apartment-mgmt-system-backend/storage"
	"github.com/E-ugine/apartment-mgmt-system-backend/utils"
	"github.com/kataras/iris/v12"
)

// CreateProperty registers a property for the acting landlord. Caretakers
// cannot create properties they would then manage for themselves.
func CreateProperty(ctx iris.Context) {
	actor := utils.Actor(ctx)
	if !actor.IsLandlord() {
		utils.CreateForbidden(ctx)
		return
	}

	var input CreatePropertyInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	property := models.Property{
		Name:        input.Name,
		Address:     input.Address,
		Description: input.Description,
		LandlordID:  actor.ID,
	}

	if len(input.CaretakerIDs) > 0 {
		var caretakers []models.User
		storage.DB.Where("id IN ? AND role = ?", input.CaretakerIDs, models.RoleCaretaker).
			Find(&caretakers)
		if len(caretakers) != len(input.CaretakerIDs) {
			utils.CreateError(iris.StatusBadRequest, "Validation Error",
				"One or more caretaker ids do not refer to caretaker accounts", ctx)
			return
		}
		property.Caretakers = caretakers
	}

	if err := storage.DB.Create(&property).Error; err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", err.Error(), ctx)
		return
	}

	utils.Audit(ctx, "property.create", "property", property.ID, nil, property)
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(property)
}

// ListProperties returns the actor's visible properties: own for landlords,
// managed for caretakers, nothing for anyone else.
func ListProperties(ctx iris.Context) {
	actor := utils.Actor(ctx)

	var properties []models.Property
	if err := authz.PropertyScope(storage.DB, actor).
		Preload("Caretakers").
		Order("properties.created_at DESC").
		Find(&properties).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(properties)
}

func GetProperty(ctx iris.Context) {
	actor := utils.Actor(ctx)
	property := findPropertyInScope(ctx, actor)
	if property == nil {
		return
	}
	ctx.JSON(property)
}

func UpdateProperty(ctx iris.Context) {
	actor := utils.Actor(ctx)
	property := findPropertyInScope(ctx, actor)
	if property == nil {
		return
	}

	if !authz.CanAccessProperty(actor, property, authz.Write) {
		utils.CreateForbidden(ctx)
		return
	}

	var input UpdatePropertyInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	before := *property
	property.Name = input.Name
	property.Address = input.Address
	property.Description = input.Description

	if err := storage.DB.Model(property).
		Select("name", "address", "description").
		Updates(property).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	// Caretaker assignment stays with the owner
	if input.CaretakerIDs != nil && actor.IsLandlord() {
		var caretakers []models.User
		storage.DB.Where("id IN ? AND role = ?", input.CaretakerIDs, models.RoleCaretaker).
			Find(&caretakers)
		if err := storage.DB.Model(property).Association("Caretakers").Replace(caretakers); err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	}

	utils.Audit(ctx, "property.update", "property", property.ID, before, property)
	ctx.StatusCode(iris.StatusNoContent)
}

func DeleteProperty(ctx iris.Context) {
	actor := utils.Actor(ctx)
	property := findPropertyInScope(ctx, actor)
	if property == nil {
		return
	}

	// Only the owning landlord may archive a property
	if !actor.IsLandlord() || !authz.CanAccessProperty(actor, property, authz.Write) {
		utils.CreateForbidden(ctx)
		return
	}

	if err := storage.DB.Delete(&models.Property{}, property.ID).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "property.delete", "property", property.ID, property, nil)
	ctx.StatusCode(iris.StatusNoContent)
}

// findPropertyInScope loads a property through the actor's scope, so rows
// outside the actor's visible set come back as plain 404s.
func findPropertyInScope(ctx iris.Context, actor *models.User) *models.Property {
	id := ctx.Params().Get("id")

	var property models.Property
	result := authz.PropertyScope(storage.DB, actor).
		Preload("Caretakers").
		Preload("Units").
		Where("properties.id = ?", id).
		Limit(1).
		Find(&property)

	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return nil
	}
	if result.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return nil
	}
	return &property
}

type CreatePropertyInput struct {
	Name         string `json:"name" validate:"required,max=200"`
	Address      string `json:"address" validate:"required"`
	Description  string `json:"description"`
	CaretakerIDs []uint `json:"caretakerIDs"`
}

type UpdatePropertyInput struct {
	Name         string `json:"name" validate:"required,max=200"`
	Address      string `json:"address" validate:"required"`
	Description  string `json:"description"`
	CaretakerIDs []uint `json:"caretakerIDs"`
}
