package entity

import (
	"time"
)

// DeliveryStatus 发货单状态
const (
	DeliveryStatusPending    = "pending"
	DeliveryStatusProcessing = "processing"
	DeliveryStatusShipped    = "shipped"
	DeliveryStatusDelivered  = "delivered"
	DeliveryStatusReturned   = "returned"
	DeliveryStatusCancelled  = "cancelled"
)

// SalesDelivery 销售发货单
type SalesDelivery struct {
	ID              string     `json:"id" gorm:"primaryKey;type:uuid"`
	DeliveryNumber  string     `json:"delivery_number" gorm:"size:50;not null;uniqueIndex"`
	OrderID         string     `json:"order_id" gorm:"type:uuid;not null;index"`
	CustomerID      string     `json:"customer_id" gorm:"type:uuid;not null;index"`
	Status          string     `json:"status" gorm:"size:20;not null;default:pending;index"`
	DeliveryDate    *time.Time `json:"delivery_date" gorm:"type:date"`
	ShippingAddress string     `json:"shipping_address" gorm:"size:500"`
	TrackingNumber  string     `json:"tracking_number" gorm:"size:100"`
	Carrier         string     `json:"carrier" gorm:"size:100"`
	PackagingNotes  string     `json:"packaging_notes" gorm:"type:text"`
	Notes           string     `json:"notes" gorm:"type:text"`
	ShippedAt       *time.Time `json:"shipped_at"`
	DeliveredAt     *time.Time `json:"delivered_at"`
	CreatedBy       string     `json:"created_by" gorm:"size:64"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Items []SalesDeliveryItem `json:"items,omitempty" gorm:"foreignKey:DeliveryID"`
}

func (SalesDelivery) TableName() string {
	return "erp_sales_deliveries"
}

// SalesDeliveryItem 发货明细
type SalesDeliveryItem struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	DeliveryID  string    `json:"delivery_id" gorm:"type:uuid;not null;index"`
	OrderItemID string    `json:"order_item_id" gorm:"type:uuid;not null;index"`
	ProductID   *string   `json:"product_id" gorm:"type:uuid"`
	Description string    `json:"description" gorm:"type:text"`
	Quantity    float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	Notes       string    `json:"notes" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (SalesDeliveryItem) TableName() string {
	return "erp_sales_delivery_items"
}

// ReturnStatus 退货单状态
const (
	ReturnStatusPending   = "pending"
	ReturnStatusApproved  = "approved"
	ReturnStatusRejected  = "rejected"
	ReturnStatusCompleted = "completed"
)

// SalesReturn 销售退货单
type SalesReturn struct {
	ID           string     `json:"id" gorm:"primaryKey;type:uuid"`
	ReturnNumber string     `json:"return_number" gorm:"size:50;not null;uniqueIndex"`
	OrderID      string     `json:"order_id" gorm:"type:uuid;not null;index"`
	DeliveryID   *string    `json:"delivery_id" gorm:"type:uuid"`
	CustomerID   string     `json:"customer_id" gorm:"type:uuid;not null;index"`
	Status       string     `json:"status" gorm:"size:20;not null;default:pending"`
	ReturnDate   *time.Time `json:"return_date" gorm:"type:date"`
	Reason       string     `json:"reason" gorm:"type:text"`
	TotalAmount  float64    `json:"total_amount" gorm:"type:decimal(12,2);default:0"`
	Notes        string     `json:"notes" gorm:"type:text"`
	CreatedBy    string     `json:"created_by" gorm:"size:64"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Items []SalesReturnItem `json:"items,omitempty" gorm:"foreignKey:ReturnID"`
}

func (SalesReturn) TableName() string {
	return "erp_sales_returns"
}

// SalesReturnItem 退货明细
type SalesReturnItem struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	ReturnID    string    `json:"return_id" gorm:"type:uuid;not null;index"`
	OrderItemID string    `json:"order_item_id" gorm:"type:uuid;not null"`
	ProductID   *string   `json:"product_id" gorm:"type:uuid"`
	Description string    `json:"description" gorm:"type:text"`
	Quantity    float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	Unit        string    `json:"unit" gorm:"size:20"`
	UnitPrice   float64   `json:"unit_price" gorm:"type:decimal(12,4);not null"`
	TotalPrice  float64   `json:"total_price" gorm:"type:decimal(12,2);not null"`
	Reason      string    `json:"reason" gorm:"type:text"`
	Notes       string    `json:"notes" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (SalesReturnItem) TableName() string {
	return "erp_sales_return_items"
}
