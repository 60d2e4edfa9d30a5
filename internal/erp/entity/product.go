package entity

import (
	"time"
)

// ProductCategory 产品类别
const (
	CategoryRawMaterial  = "raw_material"
	CategoryComponent    = "component"
	CategorySemiFinished = "semi_finished"
	CategoryFinished     = "finished"
	CategoryService      = "service"
)

// ProductCategories 全部合法类别
var ProductCategories = []string{
	CategoryRawMaterial, CategoryComponent, CategorySemiFinished, CategoryFinished, CategoryService,
}

// UnitOfMeasure 计量单位
const (
	UOMPiece   = "piece"
	UOMKg      = "kg"
	UOMMeter   = "meter"
	UOMLiter   = "liter"
	UOMHour    = "hour"
	UOMSet     = "set"
	UOMPackage = "package"
)

// UnitsOfMeasure 全部合法计量单位
var UnitsOfMeasure = []string{UOMPiece, UOMKg, UOMMeter, UOMLiter, UOMHour, UOMSet, UOMPackage}

// Product 产品/物料主数据
type Product struct {
	ID            string    `json:"id" gorm:"primaryKey;type:uuid"`
	Code          string    `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name          string    `json:"name" gorm:"size:200;not null;index"`
	Description   string    `json:"description" gorm:"type:text"`
	Category      string    `json:"category" gorm:"size:20;not null;default:raw_material"`
	UOM           string    `json:"uom" gorm:"column:uom;size:20;not null;default:piece"`
	Specification string    `json:"specification" gorm:"size:500"`
	StandardCost  float64   `json:"standard_cost" gorm:"type:decimal(12,4);default:0"`
	CurrentCost   float64   `json:"current_cost" gorm:"type:decimal(12,4);default:0"`
	SellingPrice  float64   `json:"selling_price" gorm:"type:decimal(12,4);default:0"`
	MinimumPrice  float64   `json:"minimum_price" gorm:"type:decimal(12,4);default:0"`
	TaxRate       float64   `json:"tax_rate" gorm:"type:decimal(5,2);default:0"`
	Barcode       string    `json:"barcode" gorm:"size:100"`
	MinStockLevel float64   `json:"min_stock_level" gorm:"type:decimal(12,4);default:0"`
	MaxStockLevel float64   `json:"max_stock_level" gorm:"type:decimal(12,4);default:0"`
	ReorderLevel  float64   `json:"reorder_level" gorm:"type:decimal(12,4);default:0"`
	LeadTimeDays  int       `json:"lead_time_days" gorm:"default:0"`
	IsActive      bool      `json:"is_active" gorm:"not null"`
	IsPurchasable bool      `json:"is_purchasable" gorm:"not null"`
	IsSellable    bool      `json:"is_sellable" gorm:"not null"`
	IsStockable   bool      `json:"is_stockable" gorm:"not null"`
	CreatedBy     string    `json:"created_by" gorm:"size:64"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Product) TableName() string {
	return "erp_products"
}
