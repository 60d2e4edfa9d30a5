package entity

import (
	"time"
)

// Warehouse 仓库
type Warehouse struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	Code      string    `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	Address   string    `json:"address" gorm:"size:500"`
	Manager   string    `json:"manager" gorm:"size:100"`
	IsActive  bool      `json:"is_active" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Warehouse) TableName() string {
	return "erp_warehouses"
}

// Inventory 库存记录，仓库+产品唯一
type Inventory struct {
	ID                string     `json:"id" gorm:"primaryKey;type:uuid"`
	WarehouseID       string     `json:"warehouse_id" gorm:"type:uuid;not null;uniqueIndex:idx_inventory_wh_product"`
	ProductID         string     `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_inventory_wh_product"`
	Quantity          float64    `json:"quantity" gorm:"type:decimal(12,4);not null;default:0"`
	ReservedQuantity  float64    `json:"reserved_quantity" gorm:"type:decimal(12,4);default:0"`
	AvailableQuantity float64    `json:"available_quantity" gorm:"type:decimal(12,4);default:0"`
	LastMovedAt       *time.Time `json:"last_moved_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	Warehouse *Warehouse `json:"warehouse,omitempty" gorm:"foreignKey:WarehouseID"`
	Product   *Product   `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (Inventory) TableName() string {
	return "erp_inventory"
}

// StockMovementType 库存移动类型
const (
	MovementTypeIn     = "in"
	MovementTypeOut    = "out"
	MovementTypeAdjust = "adjust" // 数量为调整后的目标库存
)

// StockMovement 库存移动记录
type StockMovement struct {
	ID             string    `json:"id" gorm:"primaryKey;type:uuid"`
	MovementNumber string    `json:"movement_number" gorm:"size:50;not null;uniqueIndex"`
	MovementType   string    `json:"movement_type" gorm:"size:20;not null"`
	WarehouseID    string    `json:"warehouse_id" gorm:"type:uuid;not null;index"`
	ProductID      string    `json:"product_id" gorm:"type:uuid;not null;index"`
	Quantity       float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	BalanceAfter   float64   `json:"balance_after" gorm:"type:decimal(12,4);default:0"`
	ReferenceType  string    `json:"reference_type" gorm:"size:50"` // PO, SO, MANUAL
	ReferenceID    string    `json:"reference_id" gorm:"size:64"`
	Notes          string    `json:"notes" gorm:"type:text"`
	CreatedBy      string    `json:"created_by" gorm:"size:64"`
	CreatedAt      time.Time `json:"created_at"`
}

func (StockMovement) TableName() string {
	return "erp_stock_movements"
}
