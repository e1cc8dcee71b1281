package routes

import (
	"time"

	"github.com/E-ugine/apartment-mgmt-system-backend/authz"
	"github.com/E-ugine/apartment-mgmt-system-backend/models"
	"github.com/E-ugine/apartment-mgmt-system-backend/services"
	"github.com/E-ugine/apartment-mgmt-system-backend/storage"
	"github.com/E-ugine/apartment-mgmt-system-backend/utils"
	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
	"golang.org/x/exp/slices"
)

var manualPaymentMethods = []string{"cash", "bank_transfer", "check"}

// CreatePayment records a payment against a unit. Tenants cannot record
// payments; landlords and caretakers can only record against units they own
// or manage.
func CreatePayment(ctx iris.Context) {
	actor := utils.Actor(ctx)
	if actor.IsTenant() || actor.IsAgent() {
		utils.CreateError(iris.StatusForbidden, "Forbidden",
			"Tenants cannot create payment records", ctx)
		return
	}

	var input CreatePaymentInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	// The unit must sit inside the actor's scope
	var unit models.Unit
	result := authz.UnitScope(storage.DB, actor).
		Where("units.id = ?", input.UnitID).
		Limit(1).
		Find(&unit)
	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if result.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	// The named tenant must actually live in the unit
	if unit.TenantID == nil || *unit.TenantID != input.TenantID {
		utils.CreateError(iris.StatusBadRequest, "Validation Error",
			"Selected tenant is not assigned to this unit", ctx)
		return
	}

	// Rent payments carry the period they cover
	if input.PaymentType == models.PaymentTypeRent {
		if input.PaymentMonth == nil || input.PaymentYear == nil {
			utils.CreateError(iris.StatusBadRequest, "Validation Error",
				"Month and year are required for rent payments", ctx)
			return
		}
		if *input.PaymentMonth < 1 || *input.PaymentMonth > 12 {
			utils.CreateError(iris.StatusBadRequest, "Validation Error",
				"Payment month must be between 1 and 12", ctx)
			return
		}
		currentYear := time.Now().Year()
		if *input.PaymentYear < currentYear-1 || *input.PaymentYear > currentYear+1 {
			utils.CreateError(iris.StatusBadRequest, "Validation Error",
				"Payment year is out of range", ctx)
			return
		}
	}

	recordedBy := actor.ID
	payment := models.Payment{
		TenantID:      input.TenantID,
		UnitID:        unit.ID,
		Amount:        input.Amount,
		PaymentType:   input.PaymentType,
		PaymentMethod: input.PaymentMethod,
		PaymentMonth:  input.PaymentMonth,
		PaymentYear:   input.PaymentYear,
		Reference:     input.Reference,
		RecordedByID:  &recordedBy,
		Notes:         input.Notes,
		Status:        models.PaymentPending,
	}

	// Manual payments settle immediately
	if slices.Contains(manualPaymentMethods, input.PaymentMethod) {
		payment.Status = models.PaymentCompleted
	}

	if payment.Reference == "" {
		payment.Reference = uuid.NewString()
	}

	if err := storage.DB.Create(&payment).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "payment.create", "payment", payment.ID, nil, payment)
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(payment)
}

// ListPayments returns the actor's visible payment history, newest first,
// paginated.
func ListPayments(ctx iris.Context) {
	actor := utils.Actor(ctx)

	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 50)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	var total int64
	if err := authz.PaymentScope(storage.DB, actor).Count(&total).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var payments []models.Payment
	if err := authz.PaymentScope(storage.DB, actor).
		Preload("Tenant").
		Preload("Unit").
		Preload("Unit.Property").
		Order("payments.date_paid DESC, payments.created_at DESC").
		Offset((page-1)*perPage).
		Limit(perPage).
		Find(&payments).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.JSONPage(ctx, payments, page, perPage, total)
}

func GetPayment(ctx iris.Context) {
	actor := utils.Actor(ctx)
	id := ctx.Params().Get("id")

	var payment models.Payment
	result := authz.PaymentScope(storage.DB, actor).
		Preload("Tenant").
		Preload("Unit").
		Preload("Unit.Property").
		Preload("Unit.Property.Caretakers").
		Preload("RecordedBy").
		Where("payments.id = ?", id).
		Limit(1).
		Find(&payment)

	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if result.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	ctx.JSON(payment)
}

// PaymentSummary lists the rent position of every occupied unit the actor
// can see for one month.
func PaymentSummary(ctx iris.Context) {
	actor := utils.Actor(ctx)
	if actor.IsTenant() || actor.IsAgent() {
		utils.CreateForbidden(ctx)
		return
	}

	now := time.Now()
	month := ctx.URLParamIntDefault("month", int(now.Month()))
	year := ctx.URLParamIntDefault("year", now.Year())
	if month < 1 || month > 12 {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid month or year", ctx)
		return
	}

	var units []models.Unit
	if err := authz.UnitScope(storage.DB, actor).
		Where("units.tenant_id IS NOT NULL").
		Preload("Tenant").
		Preload("Property").
		Find(&units).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	summary := make([]iris.Map, 0, len(units))
	for i := range units {
		unit := &units[i]
		balance, err := services.BalanceForUnit(storage.DB, unit, year, month)
		if err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}

		var lastPayment models.Payment
		lastResult := storage.DB.
			Where("tenant_id = ? AND status = ?", *unit.TenantID, models.PaymentCompleted).
			Order("date_paid DESC").
			Limit(1).
			Find(&lastPayment)
		var lastPaymentDate *time.Time
		if lastResult.RowsAffected > 0 {
			lastPaymentDate = lastPayment.DatePaid
		}

		var paymentCount int64
		storage.DB.Model(&models.Payment{}).
			Where("tenant_id = ? AND payment_year = ? AND payment_month = ? AND status = ?",
				*unit.TenantID, year, month, models.PaymentCompleted).
			Count(&paymentCount)

		tenantName := ""
		if unit.Tenant != nil {
			tenantName = unit.Tenant.FullName()
		}
		summary = append(summary, iris.Map{
			"unitID":          unit.ID,
			"unitNumber":      unit.UnitNumber,
			"propertyName":    unit.Property.Name,
			"tenantName":      tenantName,
			"expectedRent":    balance.Expected,
			"totalPaid":       balance.Paid,
			"balance":         balance.Balance,
			"isBehind":        balance.IsBehind,
			"lastPaymentDate": lastPaymentDate,
			"paymentCount":    paymentCount,
		})
	}

	ctx.JSON(iris.Map{"month": month, "year": year, "units": summary})
}

// MonthlyReport rolls the landlord's portfolio up over the last N months.
func MonthlyReport(ctx iris.Context) {
	actor := utils.Actor(ctx)
	if !actor.IsLandlord() {
		utils.CreateError(iris.StatusForbidden, "Forbidden",
			"Only landlords can access monthly reports", ctx)
		return
	}

	monthsBack := ctx.URLParamIntDefault("months", 6)
	if monthsBack < 1 || monthsBack > 24 {
		monthsBack = 6
	}

	var units []models.Unit
	if err := authz.UnitScope(storage.DB, actor).
		Where("units.tenant_id IS NOT NULL").
		Find(&units).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	now := time.Now()
	report := make([]iris.Map, 0, monthsBack)
	for i := 0; i < monthsBack; i++ {
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -i, 0)
		month := int(monthStart.Month())
		year := monthStart.Year()

		var totalExpected, totalCollected float64
		unitsPaid, unitsBehind := 0, 0
		for j := range units {
			balance, err := services.BalanceForUnit(storage.DB, &units[j], year, month)
			if err != nil {
				utils.CreateInternalServerError(ctx)
				return
			}
			totalExpected += balance.Expected
			totalCollected += balance.Paid
			if balance.IsBehind {
				unitsBehind++
			} else {
				unitsPaid++
			}
		}

		report = append(report, iris.Map{
			"month":          month,
			"year":           year,
			"totalUnits":     len(units),
			"totalExpected":  totalExpected,
			"totalCollected": totalCollected,
			"unitsPaid":      unitsPaid,
			"unitsBehind":    unitsBehind,
		})
	}

	ctx.JSON(report)
}

type CreatePaymentInput struct {
	TenantID      uint    `json:"tenantID" validate:"required"`
	UnitID        uint    `json:"unitID" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	PaymentType   string  `json:"paymentType" validate:"required,oneof=rent deposit service late_fee maintenance other"`
	PaymentMethod string  `json:"paymentMethod" validate:"required,oneof=cash bank_transfer mobile_money check"`
	PaymentMonth  *int    `json:"paymentMonth"`
	PaymentYear   *int    `json:"paymentYear"`
	Reference     string  `json:"reference" validate:"omitempty,max=100"`
	Notes         string  `json:"notes"`
}
