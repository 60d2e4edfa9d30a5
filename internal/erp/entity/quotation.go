package entity

import (
	"time"
)

// QuotationStatus 报价单状态
const (
	QuotationStatusDraft     = "draft"
	QuotationStatusSent      = "sent"
	QuotationStatusApproved  = "approved"
	QuotationStatusRejected  = "rejected"
	QuotationStatusExpired   = "expired"
	QuotationStatusConverted = "converted"
)

// Quotation 销售报价单
type Quotation struct {
	ID                 string     `json:"id" gorm:"primaryKey;type:uuid"`
	QuotationNumber    string     `json:"quotation_number" gorm:"size:50;not null;uniqueIndex"`
	CustomerID         string     `json:"customer_id" gorm:"type:uuid;not null;index"`
	ContactID          *string    `json:"contact_id" gorm:"type:uuid"`
	Status             string     `json:"status" gorm:"size:20;not null;default:draft;index"`
	Subject            string     `json:"subject" gorm:"size:200"`
	QuotationDate      *time.Time `json:"quotation_date" gorm:"type:date"`
	ValidUntil         *time.Time `json:"valid_until" gorm:"type:date"`
	TotalAmount        float64    `json:"total_amount" gorm:"type:decimal(12,2);default:0"`
	TaxAmount          float64    `json:"tax_amount" gorm:"type:decimal(12,2);default:0"`
	DiscountAmount     float64    `json:"discount_amount" gorm:"type:decimal(12,2);default:0"`
	GrandTotal         float64    `json:"grand_total" gorm:"type:decimal(12,2);default:0"`
	Currency           string     `json:"currency" gorm:"size:10;not null;default:CNY"`
	PaymentTerms       string     `json:"payment_terms" gorm:"type:text"`
	DeliveryTerms      string     `json:"delivery_terms" gorm:"type:text"`
	Notes              string     `json:"notes" gorm:"type:text"`
	TermsAndConditions string     `json:"terms_and_conditions" gorm:"type:text"`
	CreatedBy          string     `json:"created_by" gorm:"size:64"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	Customer *Customer       `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Items    []QuotationItem `json:"items,omitempty" gorm:"foreignKey:QuotationID"`
}

func (Quotation) TableName() string {
	return "erp_quotations"
}

// QuotationItem 报价单明细
type QuotationItem struct {
	ID              string    `json:"id" gorm:"primaryKey;type:uuid"`
	QuotationID     string    `json:"quotation_id" gorm:"type:uuid;not null;index"`
	LineNo          int       `json:"line_no" gorm:"default:0"`
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

func (QuotationItem) TableName() string {
	return "erp_quotation_items"
}
