package entity

import (
	"time"
)

// Supplier 供应商
type Supplier struct {
	ID            string    `json:"id" gorm:"primaryKey;type:uuid"`
	Code          string    `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name          string    `json:"name" gorm:"size:200;not null"`
	ContactPerson string    `json:"contact_person" gorm:"size:100"`
	Phone         string    `json:"phone" gorm:"size:30"`
	Email         string    `json:"email" gorm:"size:100"`
	Address       string    `json:"address" gorm:"size:500"`
	TaxID         string    `json:"tax_id" gorm:"size:50"`
	PaymentTerms  string    `json:"payment_terms" gorm:"size:100"`
	Notes         string    `json:"notes" gorm:"type:text"`
	IsActive      bool      `json:"is_active" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Supplier) TableName() string {
	return "erp_suppliers"
}

// POStatus 采购订单状态
const (
	POStatusDraft             = "draft"
	POStatusConfirmed         = "confirmed"
	POStatusPartiallyReceived = "partially_received"
	POStatusReceived          = "received"
	POStatusCancelled         = "cancelled"
)

// PurchaseOrder 采购订单
type PurchaseOrder struct {
	ID           string     `json:"id" gorm:"primaryKey;type:uuid"`
	PONumber     string     `json:"po_number" gorm:"column:po_number;size:50;not null;uniqueIndex"`
	SupplierID   string     `json:"supplier_id" gorm:"type:uuid;not null;index"`
	Status       string     `json:"status" gorm:"size:20;not null;default:draft;index"`
	OrderDate    *time.Time `json:"order_date" gorm:"type:date"`
	ExpectedDate *time.Time `json:"expected_date" gorm:"type:date"`
	TotalAmount  float64    `json:"total_amount" gorm:"type:decimal(12,2);default:0"`
	TaxAmount    float64    `json:"tax_amount" gorm:"type:decimal(12,2);default:0"`
	GrandTotal   float64    `json:"grand_total" gorm:"type:decimal(12,2);default:0"`
	Currency     string     `json:"currency" gorm:"size:10;not null;default:CNY"`
	Notes        string     `json:"notes" gorm:"type:text"`
	CreatedBy    string     `json:"created_by" gorm:"size:64"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Supplier *Supplier           `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
	Items    []PurchaseOrderItem `json:"items,omitempty" gorm:"foreignKey:POID"`
}

func (PurchaseOrder) TableName() string {
	return "erp_purchase_orders"
}

// PurchaseOrderItem 采购订单明细
type PurchaseOrderItem struct {
	ID               string    `json:"id" gorm:"primaryKey;type:uuid"`
	POID             string    `json:"po_id" gorm:"column:po_id;type:uuid;not null;index"`
	ProductID        string    `json:"product_id" gorm:"type:uuid;not null;index"`
	Quantity         float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	ReceivedQuantity float64   `json:"received_quantity" gorm:"type:decimal(12,4);default:0"`
	UnitPrice        float64   `json:"unit_price" gorm:"type:decimal(12,4);not null"`
	TaxRate          float64   `json:"tax_rate" gorm:"type:decimal(5,2);default:0"`
	TotalPrice       float64   `json:"total_price" gorm:"type:decimal(12,2);not null"`
	Notes            string    `json:"notes" gorm:"type:text"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (PurchaseOrderItem) TableName() string {
	return "erp_purchase_order_items"
}
