package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// BillStatus is the settlement status of a bill.
type BillStatus string

const (
	BillStatusGenerated     BillStatus = "GENERATED"
	BillStatusSent          BillStatus = "SENT"
	BillStatusPartiallyPaid BillStatus = "PARTIALLY_PAID"
	BillStatusPaid          BillStatus = "PAID"
)

// Entry modes for the daily delivery form.
const (
	EntryModeSplit  = "SPLIT"
	EntryModeSingle = "SINGLE"
)

// SettingsID is the fixed identifier of the singleton settings row.
const SettingsID = "default"

// Customer represents a milk delivery customer
type Customer struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	Name          string     `gorm:"not null;index" json:"name"`
	PhoneNumber   string     `gorm:"not null;index" json:"phone_number"`
	Address       *string    `json:"address"`
	PricePerLiter *float64   `json:"price_per_liter"`
	IsActive      bool       `gorm:"not null;default:true" json:"is_active"`
	StartDate     time.Time  `gorm:"not null" json:"start_date"`
	Bills         []Bill     `gorm:"foreignKey:CustomerID" json:"-"`
	Deliveries    []DeliveryEntry `gorm:"foreignKey:CustomerID" json:"-"`
}

// DeliveryEntry records one day's milk delivery for one customer.
// The (customer, date) pair is unique; morning/evening split is optional,
// the ledger stores whatever total the caller computed.
type DeliveryEntry struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	CustomerID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_delivery_customer_date" json:"customer_id"`
	Date          time.Time `gorm:"not null;uniqueIndex:idx_delivery_customer_date" json:"date"`
	MorningLiters *float64  `json:"morning_liters"`
	EveningLiters *float64  `json:"evening_liters"`
	TotalLiters   float64   `gorm:"not null" json:"total_liters"`
	Notes         *string   `json:"notes"`
	Customer      Customer  `gorm:"foreignKey:CustomerID" json:"-"`
}

// Bill is the generated charge document for one customer over one period.
// The invoice number is assigned once and survives regeneration; the unique
// index is the last line of defense against concurrent allocation.
type Bill struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	CustomerID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_bill_customer_period" json:"customer_id"`
	PeriodStart   time.Time  `gorm:"not null;uniqueIndex:idx_bill_customer_period" json:"period_start"`
	PeriodEnd     time.Time  `gorm:"not null;uniqueIndex:idx_bill_customer_period" json:"period_end"`
	TotalLiters   float64    `gorm:"not null" json:"total_liters"`
	PricePerLiter float64    `gorm:"not null" json:"price_per_liter"`
	TotalAmount   float64    `gorm:"not null" json:"total_amount"`
	InvoiceNumber string     `gorm:"not null;uniqueIndex" json:"invoice_number"`
	Status        BillStatus `gorm:"not null;default:GENERATED" json:"status"`
	SentAt        *time.Time `json:"sent_at"`
	WhatsAppMsgID *string    `gorm:"column:whatsapp_msg_id" json:"whatsapp_msg_id"`
	Notes         *string    `json:"notes"`
	Customer      Customer   `gorm:"foreignKey:CustomerID" json:"-"`
	Payments      []Payment  `gorm:"foreignKey:BillID" json:"payments,omitempty"`
}

// Payment records money received against a bill. Append-only.
type Payment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	BillID     uuid.UUID `gorm:"type:uuid;not null;index" json:"bill_id"`
	AmountPaid float64   `gorm:"not null" json:"amount_paid"`
	PaidOn     time.Time `gorm:"not null" json:"paid_on"`
	Note       *string   `json:"note"`
	Bill       Bill      `gorm:"foreignKey:BillID" json:"-"`
}

// Settings is the singleton configuration row (id = "default") holding
// the farm identity, the global milk rate and messaging credentials.
type Settings struct {
	ID                  string    `gorm:"primaryKey" json:"id"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	FarmName            string    `gorm:"not null" json:"farm_name"`
	FarmAddress         *string   `json:"farm_address"`
	FarmPhone           *string   `json:"farm_phone"`
	GlobalPricePerLiter float64   `gorm:"not null" json:"global_price_per_liter"`
	BillingCycleType    string    `gorm:"not null;default:MONTHLY" json:"billing_cycle_type"`
	EntryMode           string    `gorm:"not null;default:SPLIT" json:"entry_mode"`
	WhatsAppInstanceID  *string   `gorm:"column:whatsapp_instance_id" json:"whatsapp_instance_id"`
	WhatsAppAPIToken    *string   `gorm:"column:whatsapp_api_token" json:"-"`
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	// Apply all migrations
	err := db.AutoMigrate(
		&Customer{},
		&DeliveryEntry{},
		&Bill{},
		&Payment{},
		&Settings{},
	)

	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
