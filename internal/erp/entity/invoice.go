package entity

import (
	"time"
)

// InvoiceStatus 销售发票状态
const (
	InvoiceStatusDraft         = "draft"
	InvoiceStatusSent          = "sent"
	InvoiceStatusPartiallyPaid = "partially_paid"
	InvoiceStatusPaid          = "paid"
	InvoiceStatusOverdue       = "overdue"
	InvoiceStatusCancelled     = "cancelled"
)

// PaymentMethod 收款方式
const (
	PaymentMethodCash          = "cash"
	PaymentMethodBankTransfer  = "bank_transfer"
	PaymentMethodCreditCard    = "credit_card"
	PaymentMethodCheck         = "check"
	PaymentMethodOnlinePayment = "online_payment"
)

// PaymentStatus 收款记录状态
const (
	PaymentStatusConfirmed = "confirmed"
	PaymentStatusVoided    = "voided"
)

// SalesInvoice 销售发票
type SalesInvoice struct {
	ID             string     `json:"id" gorm:"primaryKey;type:uuid"`
	InvoiceNumber  string     `json:"invoice_number" gorm:"size:50;not null;uniqueIndex"`
	OrderID        *string    `json:"order_id" gorm:"type:uuid;index"`
	CustomerID     string     `json:"customer_id" gorm:"type:uuid;not null;index"`
	Status         string     `json:"status" gorm:"size:20;not null;default:draft;index"`
	InvoiceDate    *time.Time `json:"invoice_date" gorm:"type:date"`
	DueDate        *time.Time `json:"due_date" gorm:"type:date"`
	TotalAmount    float64    `json:"total_amount" gorm:"type:decimal(12,2);default:0"`
	TaxAmount      float64    `json:"tax_amount" gorm:"type:decimal(12,2);default:0"`
	DiscountAmount float64    `json:"discount_amount" gorm:"type:decimal(12,2);default:0"`
	ShippingAmount float64    `json:"shipping_amount" gorm:"type:decimal(12,2);default:0"`
	GrandTotal     float64    `json:"grand_total" gorm:"type:decimal(12,2);default:0"`
	AmountPaid     float64    `json:"amount_paid" gorm:"type:decimal(12,2);default:0"`
	AmountDue      float64    `json:"amount_due" gorm:"type:decimal(12,2);default:0"`
	Currency       string     `json:"currency" gorm:"size:10;not null;default:CNY"`
	PaymentTerms   string     `json:"payment_terms" gorm:"type:text"`
	Notes          string     `json:"notes" gorm:"type:text"`
	CreatedBy      string     `json:"created_by" gorm:"size:64"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Customer *Customer          `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Items    []SalesInvoiceItem `json:"items,omitempty" gorm:"foreignKey:InvoiceID"`
	Payments []SalesPayment     `json:"payments,omitempty" gorm:"foreignKey:InvoiceID"`
}

func (SalesInvoice) TableName() string {
	return "erp_sales_invoices"
}

// SalesInvoiceItem 发票明细
type SalesInvoiceItem struct {
	ID              string    `json:"id" gorm:"primaryKey;type:uuid"`
	InvoiceID       string    `json:"invoice_id" gorm:"type:uuid;not null;index"`
	LineNo          int       `json:"line_no" gorm:"default:0"`
	OrderItemID     *string   `json:"order_item_id" gorm:"type:uuid"`
	ProductID       *string   `json:"product_id" gorm:"type:uuid"`
	Description     string    `json:"description" gorm:"type:text"`
	Quantity        float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	Unit            string    `json:"unit" gorm:"size:20"`
	UnitPrice       float64   `json:"unit_price" gorm:"type:decimal(12,4);not null"`
	TaxRate         float64   `json:"tax_rate" gorm:"type:decimal(5,2);default:0"`
	DiscountPercent float64   `json:"discount_percent" gorm:"type:decimal(5,2);default:0"`
	TotalPrice      float64   `json:"total_price" gorm:"type:decimal(12,2);not null"`
	Notes           string    `json:"notes" gorm:"type:text"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (SalesInvoiceItem) TableName() string {
	return "erp_sales_invoice_items"
}

// SalesPayment 收款记录
type SalesPayment struct {
	ID              string     `json:"id" gorm:"primaryKey;type:uuid"`
	PaymentNumber   string     `json:"payment_number" gorm:"size:50;not null;uniqueIndex"`
	InvoiceID       string     `json:"invoice_id" gorm:"type:uuid;not null;index"`
	CustomerID      string     `json:"customer_id" gorm:"type:uuid;not null;index"`
	Status          string     `json:"status" gorm:"size:20;not null;default:confirmed"`
	PaymentDate     *time.Time `json:"payment_date" gorm:"type:date"`
	Amount          float64    `json:"amount" gorm:"type:decimal(12,2);not null"`
	PaymentMethod   string     `json:"payment_method" gorm:"size:20;not null"`
	ReferenceNumber string     `json:"reference_number" gorm:"size:100"`
	Notes           string     `json:"notes" gorm:"type:text"`
	CreatedBy       string     `json:"created_by" gorm:"size:64"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (SalesPayment) TableName() string {
	return "erp_sales_payments"
}
