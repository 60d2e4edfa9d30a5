package entity

import (
	"time"
)

// SalesOrderStatus 销售订单状态
const (
	SOStatusDraft            = "draft"
	SOStatusConfirmed        = "confirmed"
	SOStatusInProduction     = "in_production"
	SOStatusReadyForShipment = "ready_for_shipment"
	SOStatusPartiallyShipped = "partially_shipped"
	SOStatusShipped          = "shipped"
	SOStatusDelivered        = "delivered"
	SOStatusCompleted        = "completed"
	SOStatusCancelled        = "cancelled"
)

// SalesOrder 销售订单
type SalesOrder struct {
	ID                   string     `json:"id" gorm:"primaryKey;type:uuid"`
	OrderNumber          string     `json:"order_number" gorm:"size:50;not null;uniqueIndex"`
	CustomerID           string     `json:"customer_id" gorm:"type:uuid;not null;index"`
	ContactID            *string    `json:"contact_id" gorm:"type:uuid"`
	QuotationID          *string    `json:"quotation_id" gorm:"type:uuid;index"`
	Status               string     `json:"status" gorm:"size:20;not null;default:draft;index"`
	OrderDate            *time.Time `json:"order_date" gorm:"type:date"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date" gorm:"type:date"`
	TotalAmount          float64    `json:"total_amount" gorm:"type:decimal(12,2);default:0"`
	TaxAmount            float64    `json:"tax_amount" gorm:"type:decimal(12,2);default:0"`
	DiscountAmount       float64    `json:"discount_amount" gorm:"type:decimal(12,2);default:0"`
	ShippingAmount       float64    `json:"shipping_amount" gorm:"type:decimal(12,2);default:0"`
	GrandTotal           float64    `json:"grand_total" gorm:"type:decimal(12,2);default:0"`
	Currency             string     `json:"currency" gorm:"size:10;not null;default:CNY"`
	PaymentTerms         string     `json:"payment_terms" gorm:"type:text"`
	DeliveryTerms        string     `json:"delivery_terms" gorm:"type:text"`
	ShippingAddress      string     `json:"shipping_address" gorm:"size:500"`
	BillingAddress       string     `json:"billing_address" gorm:"size:500"`
	Notes                string     `json:"notes" gorm:"type:text"`
	TermsAndConditions   string     `json:"terms_and_conditions" gorm:"type:text"`
	CreatedBy            string     `json:"created_by" gorm:"size:64"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	Customer *Customer        `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Items    []SalesOrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
}

func (SalesOrder) TableName() string {
	return "erp_sales_orders"
}

// SalesOrderItem 销售订单明细
type SalesOrderItem struct {
	ID                   string     `json:"id" gorm:"primaryKey;type:uuid"`
	OrderID              string     `json:"order_id" gorm:"type:uuid;not null;index"`
	LineNo               int        `json:"line_no" gorm:"default:0"`
	ProductID            *string    `json:"product_id" gorm:"type:uuid"`
	QuotationItemID      *string    `json:"quotation_item_id" gorm:"type:uuid"`
	Description          string     `json:"description" gorm:"type:text"`
	Quantity             float64    `json:"quantity" gorm:"type:decimal(12,4);not null"`
	Unit                 string     `json:"unit" gorm:"size:20"`
	UnitPrice            float64    `json:"unit_price" gorm:"type:decimal(12,4);not null"`
	TaxRate              float64    `json:"tax_rate" gorm:"type:decimal(5,2);default:0"`
	DiscountPercent      float64    `json:"discount_percent" gorm:"type:decimal(5,2);default:0"`
	TotalPrice           float64    `json:"total_price" gorm:"type:decimal(12,2);not null"`
	DeliveredQuantity    float64    `json:"delivered_quantity" gorm:"type:decimal(12,4);default:0"`
	PendingQuantity      float64    `json:"pending_quantity" gorm:"type:decimal(12,4);default:0"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date" gorm:"type:date"`
	Notes                string     `json:"notes" gorm:"type:text"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (SalesOrderItem) TableName() string {
	return "erp_sales_order_items"
}
