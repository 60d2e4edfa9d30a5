package entity

import (
	"time"
)

// WorkOrderStatus 工单状态
const (
	WOStatusPlanned    = "planned"
	WOStatusReleased   = "released"
	WOStatusInProgress = "in_progress"
	WOStatusCompleted  = "completed"
	WOStatusCancelled  = "cancelled"
)

// WorkOrder 生产工单
type WorkOrder struct {
	ID                string     `json:"id" gorm:"primaryKey;type:uuid"`
	WorkOrderNumber   string     `json:"work_order_number" gorm:"size:50;not null;uniqueIndex"`
	ProductID         string     `json:"product_id" gorm:"type:uuid;not null;index"`
	RouteID           *string    `json:"route_id" gorm:"type:uuid"`
	BOMID             *string    `json:"bom_id" gorm:"column:bom_id;type:uuid"`
	OrderID           *string    `json:"order_id" gorm:"type:uuid;index"`
	Quantity          float64    `json:"quantity" gorm:"type:decimal(12,4);not null"`
	CompletedQuantity float64    `json:"completed_quantity" gorm:"type:decimal(12,4);default:0"`
	Status            string     `json:"status" gorm:"size:20;not null;default:planned;index"`
	Priority          int        `json:"priority" gorm:"default:0"` // 0=普通, 1=紧急, 2=特急
	PlannedStart      *time.Time `json:"planned_start"`
	PlannedEnd        *time.Time `json:"planned_end"`
	ActualStart       *time.Time `json:"actual_start"`
	ActualEnd         *time.Time `json:"actual_end"`
	Notes             string     `json:"notes" gorm:"type:text"`
	CreatedBy         string     `json:"created_by" gorm:"size:64"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (WorkOrder) TableName() string {
	return "erp_work_orders"
}
