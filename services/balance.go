package services

import (
	"github.com/E-ugine/apartment-mgmt-system-backend/models"
	"gorm.io/gorm"
)

// TenantBalance is the rent position of a tenant for one period. Expected
// rent is the unit's current rent amount, there is no rent history.
type TenantBalance struct {
	UnitID   *uint   `json:"unitID"`
	Expected float64 `json:"expected"`
	Paid     float64 `json:"paid"`
	Balance  float64 `json:"balance"`
	IsBehind bool    `json:"isBehind"`
}

// MonthlyTotal sums completed payments recorded against a unit for the
// given period.
func MonthlyTotal(db *gorm.DB, unitID uint, year, month int) (float64, error) {
	var total float64
	err := db.Model(&models.Payment{}).
		Where("unit_id = ? AND payment_year = ? AND payment_month = ? AND status = ?",
			unitID, year, month, models.PaymentCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

// BalanceForTenant computes expected vs paid rent for the tenant's assigned
// unit. A tenant with no unit yields an all-zero balance.
func BalanceForTenant(db *gorm.DB, tenantID uint, year, month int) (TenantBalance, error) {
	var unit models.Unit
	result := db.Where("tenant_id = ?", tenantID).Limit(1).Find(&unit)
	if result.Error != nil {
		return TenantBalance{}, result.Error
	}
	if result.RowsAffected == 0 {
		return TenantBalance{}, nil
	}
	return BalanceForUnit(db, &unit, year, month)
}

// BalanceForUnit is the aggregation behind every balance figure:
// balance = rent_amount - sum(completed payments for the period).
func BalanceForUnit(db *gorm.DB, unit *models.Unit, year, month int) (TenantBalance, error) {
	paid, err := MonthlyTotal(db, unit.ID, year, month)
	if err != nil {
		return TenantBalance{}, err
	}
	balance := unit.RentAmount - paid
	return TenantBalance{
		UnitID:   &unit.ID,
		Expected: unit.RentAmount,
		Paid:     paid,
		Balance:  balance,
		IsBehind: balance > 0,
	}, nil
}
