package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	PaymentTypeRent        = "rent"
	PaymentTypeDeposit     = "deposit"
	PaymentTypeService     = "service"
	PaymentTypeLateFee     = "late_fee"
	PaymentTypeMaintenance = "maintenance"
	PaymentTypeOther       = "other"
)

const (
	PaymentPending    = "pending"
	PaymentProcessing = "processing"
	PaymentCompleted  = "completed"
	PaymentFailed     = "failed"
	PaymentCancelled  = "cancelled"
	PaymentRefunded   = "refunded"
)

type Payment struct {
	gorm.Model
	TenantID      uint       `json:"tenantID" gorm:"index"`
	UnitID        uint       `json:"unitID" gorm:"index"`
	Amount        float64    `json:"amount"`
	PaymentType   string     `json:"paymentType" gorm:"type:varchar(20);default:rent"`
	PaymentMethod string     `json:"paymentMethod" gorm:"type:varchar(20);default:cash"` // cash, bank_transfer, mobile_money, check
	Status        string     `json:"status" gorm:"type:varchar(20);default:completed;index"`
	DatePaid      *time.Time `json:"datePaid"`
	PaymentMonth  *int       `json:"paymentMonth" gorm:"index:idx_payment_period"` // 1-12, rent payments only
	PaymentYear   *int       `json:"paymentYear" gorm:"index:idx_payment_period"`
	Reference     string     `json:"reference" gorm:"size:100"`
	RecordedByID  *uint      `json:"recordedByID"`
	Notes         string     `json:"notes" gorm:"type:text"`

	Tenant     User  `json:"tenant,omitempty" gorm:"foreignKey:TenantID;references:ID"`
	Unit       Unit  `json:"unit,omitempty" gorm:"foreignKey:UnitID;references:ID"`
	RecordedBy *User `json:"recordedBy,omitempty" gorm:"foreignKey:RecordedByID;references:ID"`
}

// BeforeSave stamps the completion time for payments recorded as completed,
// mirroring how manual (cash, bank transfer, check) payments settle at once.
func (p *Payment) BeforeSave(tx *gorm.DB) error {
	if p.Status == PaymentCompleted && p.DatePaid == nil {
		now := time.Now()
		p.DatePaid = &now
	}
	return nil
}

func (p *Payment) IsRentPayment() bool { return p.PaymentType == PaymentTypeRent }
