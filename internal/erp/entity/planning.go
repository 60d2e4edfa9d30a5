package entity

import (
	"time"
)

// PlanStatus 计划状态，生产计划与MRP共用
const (
	PlanStatusDraft      = "draft"
	PlanStatusConfirmed  = "confirmed"
	PlanStatusInProgress = "in_progress"
	PlanStatusCompleted  = "completed"
	PlanStatusCancelled  = "cancelled"
)

// ProductionPlan 生产计划
type ProductionPlan struct {
	ID               string     `json:"id" gorm:"primaryKey;type:uuid"`
	PlanNumber       string     `json:"plan_number" gorm:"size:50;not null;uniqueIndex"`
	Name             string     `json:"name" gorm:"size:200;not null"`
	Description      string     `json:"description" gorm:"type:text"`
	Status           string     `json:"status" gorm:"size:20;not null;default:draft;index"`
	PlannedStartDate *time.Time `json:"planned_start_date" gorm:"type:date"`
	PlannedEndDate   *time.Time `json:"planned_end_date" gorm:"type:date"`
	CreatedBy        string     `json:"created_by" gorm:"size:64"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Items []ProductionPlanItem `json:"items,omitempty" gorm:"foreignKey:PlanID"`
}

func (ProductionPlan) TableName() string {
	return "erp_production_plans"
}

// ProductionPlanItem 生产计划明细
type ProductionPlanItem struct {
	ID               string     `json:"id" gorm:"primaryKey;type:uuid"`
	PlanID           string     `json:"plan_id" gorm:"type:uuid;not null;index"`
	ProductID        string     `json:"product_id" gorm:"type:uuid;not null"`
	OrderID          *string    `json:"order_id" gorm:"type:uuid"`
	OrderItemID      *string    `json:"order_item_id" gorm:"type:uuid"`
	Quantity         float64    `json:"quantity" gorm:"type:decimal(12,4);not null"`
	PlannedStartDate *time.Time `json:"planned_start_date" gorm:"type:date"`
	PlannedEndDate   *time.Time `json:"planned_end_date" gorm:"type:date"`
	Status           string     `json:"status" gorm:"size:20;not null;default:draft"`
	Notes            string     `json:"notes" gorm:"type:text"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (ProductionPlanItem) TableName() string {
	return "erp_production_plan_items"
}

// MaterialRequirementPlan 物料需求计划
type MaterialRequirementPlan struct {
	ID               string    `json:"id" gorm:"primaryKey;type:uuid"`
	MRPNumber        string    `json:"mrp_number" gorm:"column:mrp_number;size:50;not null;uniqueIndex"`
	Name             string    `json:"name" gorm:"size:200;not null"`
	Description      string    `json:"description" gorm:"type:text"`
	Status           string    `json:"status" gorm:"size:20;not null;default:draft;index"`
	PlanningHorizon  int       `json:"planning_horizon" gorm:"default:30"` // 天
	ProductionPlanID *string   `json:"production_plan_id" gorm:"type:uuid;index"`
	CreatedBy        string    `json:"created_by" gorm:"size:64"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Items []MRPItem `json:"items,omitempty" gorm:"foreignKey:MRPID"`
}

func (MaterialRequirementPlan) TableName() string {
	return "erp_material_requirement_plans"
}

// MRPItem MRP明细
type MRPItem struct {
	ID                string     `json:"id" gorm:"primaryKey;type:uuid"`
	MRPID             string     `json:"mrp_id" gorm:"column:mrp_id;type:uuid;not null;index"`
	MaterialID        string     `json:"material_id" gorm:"type:uuid;not null"`
	RequiredDate      *time.Time `json:"required_date" gorm:"type:date"`
	RequiredQuantity  float64    `json:"required_quantity" gorm:"type:decimal(12,4);default:0"`
	AvailableQuantity float64    `json:"available_quantity" gorm:"type:decimal(12,4);default:0"`
	OnOrderQuantity   float64    `json:"on_order_quantity" gorm:"type:decimal(12,4);default:0"`
	NetRequirement    float64    `json:"net_requirement" gorm:"type:decimal(12,4);default:0"`
	Notes             string     `json:"notes" gorm:"type:text"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (MRPItem) TableName() string {
	return "erp_mrp_items"
}
