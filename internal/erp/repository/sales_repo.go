package repository

import (
	"context"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SalesOrderRepository 销售订单仓库
type SalesOrderRepository struct {
	db *gorm.DB
}

func NewSalesOrderRepository(db *gorm.DB) *SalesOrderRepository {
	return &SalesOrderRepository{db: db}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC, created_at ASC")
}

func (r *SalesOrderRepository) filtered(ctx context.Context, p ListParams) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&entity.SalesOrder{})
	query = eq(query, "status", p.Status)
	query = eq(query, "customer_id", p.CustomerID)
	query = dateRange(query, "order_date", p)
	return keyword(query, p.Keyword, "order_number", "notes")
}

// FindAll 查询销售订单列表
func (r *SalesOrderRepository) FindAll(ctx context.Context, p ListParams) ([]entity.SalesOrder, int64, error) {
	var list []entity.SalesOrder
	total, err := paginate(r.filtered(ctx, p), p, &list, "order_date DESC, created_at DESC", "Customer")
	return list, total, err
}

// FindForExport 按条件导出全部订单（含明细）
func (r *SalesOrderRepository) FindForExport(ctx context.Context, p ListParams) ([]entity.SalesOrder, error) {
	var list []entity.SalesOrder
	err := r.filtered(ctx, p).
		Preload("Customer").
		Preload("Items", orderedLines).
		Order("order_date DESC, created_at DESC").
		Find(&list).Error
	return list, err
}

// FindByID 查找订单（含明细），lock 为 true 时锁定表头行
func (r *SalesOrderRepository) FindByID(ctx context.Context, id string, lock bool) (*entity.SalesOrder, error) {
	var o entity.SalesOrder
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(lockForUpdate())
	}
	err := query.
		Preload("Customer").
		Preload("Items", orderedLines).
		Where("id = ?", id).
		First(&o).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (r *SalesOrderRepository) Create(ctx context.Context, o *entity.SalesOrder) error {
	return r.db.WithContext(ctx).Omit("Customer").Create(o).Error
}

func (r *SalesOrderRepository) Update(ctx context.Context, o *entity.SalesOrder) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(o).Error
}

// UpdateStatus 仅更新订单状态
func (r *SalesOrderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).Model(&entity.SalesOrder{}).Where("id = ?", id).Update("status", status).Error
}

// Delete 删除订单及明细
func (r *SalesOrderRepository) Delete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", id).Delete(&entity.SalesOrderItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&entity.SalesOrder{}).Error
}

// HasDocuments 是否存在引用该订单的发货单或发票
func (r *SalesOrderRepository) HasDocuments(ctx context.Context, id string) (bool, error) {
	db := r.db.WithContext(ctx)
	found, err := exists(db, &entity.SalesDelivery{}, "order_id = ?", id)
	if err != nil || found {
		return found, err
	}
	return exists(db, &entity.SalesInvoice{}, "order_id = ?", id)
}

func (r *SalesOrderRepository) FindItems(ctx context.Context, orderID string) ([]entity.SalesOrderItem, error) {
	var items []entity.SalesOrderItem
	err := orderedLines(r.db.WithContext(ctx).Where("order_id = ?", orderID)).Find(&items).Error
	return items, err
}

func (r *SalesOrderRepository) FindItem(ctx context.Context, orderID, itemID string) (*entity.SalesOrderItem, error) {
	var item entity.SalesOrderItem
	err := r.db.WithContext(ctx).Where("id = ? AND order_id = ?", itemID, orderID).First(&item).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (r *SalesOrderRepository) NextLineNo(ctx context.Context, orderID string) (int, error) {
	var max int
	err := r.db.WithContext(ctx).Model(&entity.SalesOrderItem{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(MAX(line_no), 0)").Scan(&max).Error
	return max + 1, err
}

func (r *SalesOrderRepository) CreateItem(ctx context.Context, item *entity.SalesOrderItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *SalesOrderRepository) UpdateItem(ctx context.Context, item *entity.SalesOrderItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *SalesOrderRepository) DeleteItem(ctx context.Context, itemID string) error {
	return r.db.WithContext(ctx).Where("id = ?", itemID).Delete(&entity.SalesOrderItem{}).Error
}
