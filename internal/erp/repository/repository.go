package repository

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound = errors.New("record not found")
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListParams 列表查询参数，过滤条件之间为 AND
type ListParams struct {
	Page       int
	PageSize   int
	Status     string
	CustomerID string
	OrderID    string
	ProductID  string
	SupplierID string
	Keyword    string
	DateFrom   *time.Time
	DateTo     *time.Time
}

// Normalize 规范分页参数
func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
}

// Offset 分页偏移
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Repositories ERP仓库集合
type Repositories struct {
	db *gorm.DB

	User       *UserRepository
	Sequence   *SequenceRepository
	Customer   *CustomerRepository
	Quotation  *QuotationRepository
	SalesOrder *SalesOrderRepository
	Delivery   *DeliveryRepository
	Invoice    *InvoiceRepository
	Return     *ReturnRepository
	Product    *ProductRepository
	BOM        *BOMRepository
	Routing    *RoutingRepository
	Document   *DocumentRepository
	WorkOrder  *WorkOrderRepository
	Planning   *PlanningRepository
	Purchase   *PurchaseRepository
	Inventory  *InventoryRepository
	Dashboard  *DashboardRepository
}

// NewRepositories 创建ERP仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:         db,
		User:       NewUserRepository(db),
		Sequence:   NewSequenceRepository(db),
		Customer:   NewCustomerRepository(db),
		Quotation:  NewQuotationRepository(db),
		SalesOrder: NewSalesOrderRepository(db),
		Delivery:   NewDeliveryRepository(db),
		Invoice:    NewInvoiceRepository(db),
		Return:     NewReturnRepository(db),
		Product:    NewProductRepository(db),
		BOM:        NewBOMRepository(db),
		Routing:    NewRoutingRepository(db),
		Document:   NewDocumentRepository(db),
		WorkOrder:  NewWorkOrderRepository(db),
		Planning:   NewPlanningRepository(db),
		Purchase:   NewPurchaseRepository(db),
		Inventory:  NewInventoryRepository(db),
		Dashboard:  NewDashboardRepository(db),
	}
}

// DB 返回底层连接，用于开启事务
func (r *Repositories) DB() *gorm.DB {
	return r.db
}

// WithTx 返回绑定到事务的仓库集合
func (r *Repositories) WithTx(tx *gorm.DB) *Repositories {
	return NewRepositories(tx)
}

func lockForUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// keyword 在给定列上做不区分大小写的模糊匹配（任一列命中即可）
func keyword(query *gorm.DB, kw string, columns ...string) *gorm.DB {
	kw = strings.TrimSpace(kw)
	if kw == "" || len(columns) == 0 {
		return query
	}
	like := "%" + strings.ToLower(kw) + "%"
	conds := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, c := range columns {
		conds[i] = "LOWER(" + c + ") LIKE ?"
		args[i] = like
	}
	return query.Where("("+strings.Join(conds, " OR ")+")", args...)
}

func dateRange(query *gorm.DB, column string, p ListParams) *gorm.DB {
	if p.DateFrom != nil {
		query = query.Where(column+" >= ?", *p.DateFrom)
	}
	if p.DateTo != nil {
		query = query.Where(column+" <= ?", *p.DateTo)
	}
	return query
}

func eq(query *gorm.DB, column, value string) *gorm.DB {
	if value == "" {
		return query
	}
	return query.Where(column+" = ?", value)
}

// paginate 统计总数并按页取数据，关联在计数之后预加载
func paginate(query *gorm.DB, p ListParams, dest interface{}, order string, preloads ...string) (int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	for _, rel := range preloads {
		query = query.Preload(rel)
	}
	err := query.Order(order).Offset(p.Offset()).Limit(p.PageSize).Find(dest).Error
	return total, err
}

func exists(db *gorm.DB, model interface{}, where string, args ...interface{}) (bool, error) {
	var n int64
	if err := db.Model(model).Where(where, args...).Limit(1).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
