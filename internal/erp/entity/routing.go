package entity

import (
	"time"
)

// WorkCenter 工作中心
type WorkCenter struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	Code        string    `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name        string    `json:"name" gorm:"size:200;not null"`
	Description string    `json:"description" gorm:"type:text"`
	Capacity    float64   `json:"capacity" gorm:"type:decimal(12,4);default:1"`
	Efficiency  float64   `json:"efficiency" gorm:"type:decimal(5,2);default:100"`
	Location    string    `json:"location" gorm:"size:200"`
	CostPerHour float64   `json:"cost_per_hour" gorm:"type:decimal(12,2);default:0"`
	IsActive    bool      `json:"is_active" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (WorkCenter) TableName() string {
	return "erp_work_centers"
}

// Operation 标准工序，时间单位为分钟
type Operation struct {
	ID                   string    `json:"id" gorm:"primaryKey;type:uuid"`
	Code                 string    `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name                 string    `json:"name" gorm:"size:200;not null"`
	Description          string    `json:"description" gorm:"type:text"`
	WorkCenterID         string    `json:"work_center_id" gorm:"type:uuid;not null;index"`
	SetupTime            float64   `json:"setup_time" gorm:"type:decimal(10,2);default:0"`
	Runtime              float64   `json:"runtime" gorm:"type:decimal(10,2);default:0"`
	TeardownTime         float64   `json:"teardown_time" gorm:"type:decimal(10,2);default:0"`
	QueueTime            float64   `json:"queue_time" gorm:"type:decimal(10,2);default:0"`
	MoveTime             float64   `json:"move_time" gorm:"type:decimal(10,2);default:0"`
	QualityCheckRequired bool      `json:"quality_check_required" gorm:"not null"`
	Instructions         string    `json:"instructions" gorm:"type:text"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`

	WorkCenter *WorkCenter `json:"work_center,omitempty" gorm:"foreignKey:WorkCenterID"`
}

func (Operation) TableName() string {
	return "erp_operations"
}

// RouteStatus 工艺路线状态
const (
	RouteStatusDraft    = "draft"
	RouteStatusActive   = "active"
	RouteStatusInactive = "inactive"
)

// ProductionRoute 工艺路线
type ProductionRoute struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	ProductID string    `json:"product_id" gorm:"type:uuid;not null;index"`
	Code      string    `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	Version   string    `json:"version" gorm:"size:20;not null;default:1.0"`
	Status    string    `json:"status" gorm:"size:20;not null;default:draft"`
	IsDefault bool      `json:"is_default" gorm:"not null"`
	BatchSize float64   `json:"batch_size" gorm:"type:decimal(12,4);default:1"`
	CycleTime float64   `json:"cycle_time" gorm:"type:decimal(12,2);default:0"`
	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedBy string    `json:"created_by" gorm:"size:64"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Operations []RouteOperation `json:"operations,omitempty" gorm:"foreignKey:RouteID"`
}

func (ProductionRoute) TableName() string {
	return "erp_production_routes"
}

// RouteOperation 工艺路线工序，覆盖字段为空时取标准工序时间
type RouteOperation struct {
	ID           string    `json:"id" gorm:"primaryKey;type:uuid"`
	RouteID      string    `json:"route_id" gorm:"type:uuid;not null;uniqueIndex:idx_route_sequence"`
	OperationID  string    `json:"operation_id" gorm:"type:uuid;not null;index"`
	Sequence     int       `json:"sequence" gorm:"not null;uniqueIndex:idx_route_sequence"`
	SetupTime    *float64  `json:"setup_time" gorm:"type:decimal(10,2)"`
	Runtime      *float64  `json:"runtime" gorm:"type:decimal(10,2)"`
	TeardownTime *float64  `json:"teardown_time" gorm:"type:decimal(10,2)"`
	Notes        string    `json:"notes" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Operation *Operation `json:"operation,omitempty" gorm:"foreignKey:OperationID"`
}

func (RouteOperation) TableName() string {
	return "erp_route_operations"
}
