package entity

import (
	"time"
)

// BOMType BOM类型
const (
	BOMTypeManufacturing = "manufacturing"
	BOMTypeEngineering   = "engineering"
	BOMTypeSales         = "sales"
	BOMTypeTemplate      = "template"
)

// BOM 物料清单
type BOM struct {
	ID            string     `json:"id" gorm:"primaryKey;type:uuid"`
	ProductID     string     `json:"product_id" gorm:"type:uuid;not null;index"`
	Code          string     `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name          string     `json:"name" gorm:"size:200;not null"`
	Version       string     `json:"version" gorm:"size:20;not null;default:1.0"`
	BOMType       string     `json:"bom_type" gorm:"column:bom_type;size:20;not null;default:manufacturing"`
	IsDefault     bool       `json:"is_default" gorm:"not null"`
	IsActive      bool       `json:"is_active" gorm:"not null"`
	EffectiveFrom *time.Time `json:"effective_from" gorm:"type:date"`
	EffectiveTo   *time.Time `json:"effective_to" gorm:"type:date"`
	Notes         string     `json:"notes" gorm:"type:text"`
	CreatedBy     string     `json:"created_by" gorm:"size:64"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Product *Product  `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Items   []BOMItem `json:"items,omitempty" gorm:"foreignKey:BOMID"`
}

func (BOM) TableName() string {
	return "erp_boms"
}

// BOMItem BOM行项
type BOMItem struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	BOMID       string    `json:"bom_id" gorm:"column:bom_id;type:uuid;not null;index"`
	ComponentID string    `json:"component_id" gorm:"type:uuid;not null;index"`
	Position    int       `json:"position" gorm:"default:0"`
	Quantity    float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	Unit        string    `json:"unit" gorm:"size:20"`
	ScrapRate   float64   `json:"scrap_rate" gorm:"type:decimal(5,2);default:0"`
	IsCritical  bool      `json:"is_critical" gorm:"not null"`
	Notes       string    `json:"notes" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Component *Product `json:"component,omitempty" gorm:"foreignKey:ComponentID"`
}

func (BOMItem) TableName() string {
	return "erp_bom_items"
}
